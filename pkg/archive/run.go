package archive

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// progressEvery is how many item numbers pass between aggregate progress
// log lines.
const progressEvery = 100

// Runner iterates an inclusive item number range through a Driver,
// aggregating per-outcome counts. Strictly sequential: each item finishes
// before the next starts.
type Runner struct {
	driver *Driver
	logger zerolog.Logger
}

// NewRunner creates a runner around the given driver.
func NewRunner(driver *Driver, logger zerolog.Logger) *Runner {
	return &Runner{driver: driver, logger: logger}
}

// Run processes every item number in [start, end], returning aggregate
// counts. Stops early on cancellation or a storage error, returning the
// totals accumulated so far.
func (r *Runner) Run(ctx context.Context, start, end int, want Components) (Stats, error) {
	var totals Stats

	r.logger.Info().
		Int("start", start).
		Int("end", end).
		Bool("main", want.Main).
		Bool("comments", want.Comments).
		Bool("timeline", want.Timeline).
		Bool("xrefs", want.Xrefs).
		Msg("Fetching item range")

	for num := start; num <= end; num++ {
		if err := ctx.Err(); err != nil {
			return totals, fmt.Errorf("run interrupted at #%s: %w", Key(num), err)
		}

		stats, err := r.driver.Process(ctx, num, want)
		totals.Add(stats)
		if err != nil {
			return totals, fmt.Errorf("item #%s: %w", Key(num), err)
		}

		if num%progressEvery == 0 {
			r.logger.Info().
				Int("current", num).
				Int("end", end).
				Int("fetched", totals.Fetched).
				Int("exists", totals.SkipExists).
				Int("date", totals.SkipCutoff).
				Int("not_found", totals.SkipNotFound).
				Int("failed", totals.Failed).
				Msg("Progress")
		}
	}

	r.logger.Info().
		Int("fetched", totals.Fetched).
		Int("exists", totals.SkipExists).
		Int("date", totals.SkipCutoff).
		Int("not_found", totals.SkipNotFound).
		Int("failed", totals.Failed).
		Msg("Done")

	return totals, nil
}
