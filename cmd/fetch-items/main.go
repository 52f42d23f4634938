// Command fetch-items archives rust-lang/rust issues and pull requests
// from the GitHub API into per-item marker files, resumably.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/go-gh/v2/pkg/auth"
	flag "github.com/spf13/pflag"

	"github.com/brson/rust-issue-archive/pkg/archive"
	"github.com/brson/rust-issue-archive/pkg/client"
	"github.com/brson/rust-issue-archive/pkg/logging"
	"github.com/brson/rust-issue-archive/pkg/metrics"
)

func main() {
	var (
		start       = flag.Int("start", 0, "first item number (required unless --discover)")
		end         = flag.Int("end", 0, "last item number, inclusive (required unless --discover)")
		doMain      = flag.Bool("main", true, "fetch the item body")
		doComments  = flag.Bool("comments", true, "fetch item comments")
		doTimeline  = flag.Bool("timeline", false, "fetch the item timeline")
		doXrefs     = flag.Bool("xrefs", false, "derive cross-references from the timeline")
		discover    = flag.Bool("discover", false, "print the latest item number and exit")
		dir         = flag.String("dir", "items", "archive directory")
		repo        = flag.String("repo", "rust-lang/rust", "repository to archive")
		cutoffFlag  = flag.String("cutoff", "2016-01-01T00:00:00Z", "exclude items created at or after this RFC3339 time")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		pretty      = flag.Bool("pretty", true, "human-readable log output")
		metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address (empty: disabled)")
	)
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  *logLevel,
		Pretty: *pretty,
		Output: os.Stderr,
	})

	cutoff, err := time.Parse(time.RFC3339, *cutoffFlag)
	if err != nil {
		logger.Fatal().Err(err).Str("cutoff", *cutoffFlag).Msg("Invalid cutoff date")
	}

	// TokenForHost checks GITHUB_TOKEN / GH_TOKEN, then the gh CLI's
	// stored credentials.
	token, _ := auth.TokenForHost("github.com")
	if token == "" {
		logger.Warn().Msg("No GitHub token found, rate limits will be very low")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go func() {
			logger.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
			if err := http.ListenAndServe(*metricsAddr, metrics.Handler()); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	api := client.New(client.DefaultConfig(token), logging.NewLogger("client"))

	if *discover {
		latest, err := archive.DiscoverLatest(ctx, api, *repo)
		if err != nil {
			logger.Fatal().Err(err).Msg("Discovery failed")
		}
		fmt.Println(latest)
		return
	}

	if *start <= 0 || *end <= 0 || *end < *start {
		fmt.Fprintln(os.Stderr, "--start and --end are required and must form a valid range")
		flag.Usage()
		os.Exit(2)
	}

	store, err := archive.NewStore(*dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("Cannot open archive directory")
	}

	driver := archive.NewDriver(store, api, *repo, cutoff, logging.NewLogger("driver"))
	runner := archive.NewRunner(driver, logging.NewLogger("runner"))

	want := archive.Components{
		Main:     *doMain,
		Comments: *doComments,
		Timeline: *doTimeline,
		Xrefs:    *doXrefs,
	}

	if _, err := runner.Run(ctx, *start, *end, want); err != nil {
		logger.Fatal().Err(err).Msg("Run failed")
	}
}
