package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brson/rust-issue-archive/pkg/client"
	"github.com/brson/rust-issue-archive/pkg/xref"
)

// Fetcher is the client surface the driver needs. Satisfied by
// *client.Client.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (json.RawMessage, error)
	FetchPaginated(ctx context.Context, endpoint string) ([]json.RawMessage, error)
}

// Components selects which sub-resources to fetch for each item.
type Components struct {
	Main     bool
	Comments bool
	Timeline bool
	Xrefs    bool
}

// DefaultComponents enables main and comments, the cheap always-wanted
// pair.
func DefaultComponents() Components {
	return Components{Main: true, Comments: true}
}

// Stats counts per-outcome results for one or more items.
type Stats struct {
	Fetched      int
	SkipNotFound int
	SkipCutoff   int
	SkipExists   int
	Failed       int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Fetched += other.Fetched
	s.SkipNotFound += other.SkipNotFound
	s.SkipCutoff += other.SkipCutoff
	s.SkipExists += other.SkipExists
	s.Failed += other.Failed
}

// Driver processes one item at a time: consults the checkpoint store,
// fetches missing components, persists results.
type Driver struct {
	store   *Store
	fetcher Fetcher
	repo    string
	cutoff  time.Time
	logger  zerolog.Logger
}

// NewDriver creates a driver for the given repository. Items created at or
// after cutoff get a terminal excluded marker instead of being archived.
func NewDriver(store *Store, fetcher Fetcher, repo string, cutoff time.Time, logger zerolog.Logger) *Driver {
	return &Driver{
		store:   store,
		fetcher: fetcher,
		repo:    repo,
		cutoff:  cutoff,
		logger:  logger,
	}
}

// Process runs the checkpoint state machine for one item number. Fetch
// failures become failure markers and counts; only storage errors and
// cancellation propagate.
func (d *Driver) Process(ctx context.Context, num int, want Components) (Stats, error) {
	var stats Stats

	// Terminal markers short-circuit everything, with no network calls.
	switch d.store.Terminal(num) {
	case TerminalNotFound:
		stats.SkipNotFound = 1
		return stats, nil
	case TerminalCutoff:
		stats.SkipCutoff = 1
		return stats, nil
	}

	var status []string
	defer func() {
		if len(status) > 0 {
			d.logger.Info().Str("item", "#"+Key(num)).Msg(strings.Join(status, " "))
		}
	}()

	if want.Main {
		stop, err := d.processMain(ctx, num, &stats, &status)
		if err != nil || stop {
			return stats, err
		}
	} else if want.Comments || want.Timeline || want.Xrefs {
		// Sub-resources need main's classification context from this
		// run or a prior one.
		if !d.store.HasComponent(num, ComponentMain) {
			return stats, nil
		}
	}

	// The optional components are independent: one failing does not
	// block the others.
	if want.Comments {
		err := d.processList(ctx, num, ComponentComments, &stats, &status, func(ctx context.Context) ([]byte, int, error) {
			return d.fetchList(ctx, num, "comments")
		})
		if err != nil {
			return stats, err
		}
	}

	if want.Timeline {
		err := d.processList(ctx, num, ComponentTimeline, &stats, &status, func(ctx context.Context) ([]byte, int, error) {
			return d.fetchList(ctx, num, "timeline")
		})
		if err != nil {
			return stats, err
		}
	}

	if want.Xrefs {
		// Derived from a fresh timeline pull, deliberately ignoring any
		// persisted timeline payload: no cross-component read
		// dependency.
		err := d.processList(ctx, num, ComponentXrefs, &stats, &status, func(ctx context.Context) ([]byte, int, error) {
			events, err := d.fetcher.FetchPaginated(ctx, d.endpoint(num, "timeline"))
			if err != nil {
				return nil, 0, err
			}
			refs := xref.Extract(events)
			payload, err := json.MarshalIndent(refs, "", "  ")
			return payload, len(refs), err
		})
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// processMain fetches and persists the main component. stop reports
// whether processing of this item must end here (terminal marker written
// or main failed).
func (d *Driver) processMain(ctx context.Context, num int, stats *Stats, status *[]string) (stop bool, err error) {
	if d.store.HasComponent(num, ComponentMain) {
		*status = append(*status, "main=EXISTS")
		stats.SkipExists++
		return false, nil
	}

	data, err := d.fetcher.Fetch(ctx, d.endpoint(num, ""))
	if errors.Is(err, client.ErrNotFound) {
		if werr := d.store.WriteTerminal(num, TerminalNotFound); werr != nil {
			return true, werr
		}
		d.logger.Info().Str("item", "#"+Key(num)).Msg("404")
		stats.SkipNotFound = 1
		return true, nil
	}
	if err != nil {
		return true, d.recordMainFailure(ctx, num, stats, status, err)
	}

	var fields map[string]json.RawMessage
	if uerr := json.Unmarshal(data, &fields); uerr != nil {
		return true, d.recordMainFailure(ctx, num, stats, status, fmt.Errorf("parse main body: %w", uerr))
	}

	var createdAt time.Time
	if uerr := json.Unmarshal(fields["created_at"], &createdAt); uerr != nil {
		return true, d.recordMainFailure(ctx, num, stats, status, fmt.Errorf("parse main body: %w", uerr))
	}

	if !createdAt.Before(d.cutoff) {
		if werr := d.store.WriteTerminal(num, TerminalCutoff); werr != nil {
			return true, werr
		}
		d.logger.Info().
			Str("item", "#"+Key(num)).
			Str("created", createdAt.Format("2006-01-02")).
			Msg("skip (past cutoff)")
		stats.SkipCutoff = 1
		return true, nil
	}

	// The API marks pull requests with a pull_request key; presence alone
	// decides, the value may be null.
	itemType := "issue"
	if _, ok := fields["pull_request"]; ok {
		itemType = "pr"
	}

	payload, perr := attachMeta(fields, itemType)
	if perr != nil {
		return true, d.recordMainFailure(ctx, num, stats, status, perr)
	}

	if werr := d.store.WriteComponent(num, ComponentMain, payload); werr != nil {
		return true, werr
	}
	*status = append(*status, fmt.Sprintf("main=OK (%s)", itemType))
	stats.Fetched++
	return false, nil
}

// recordMainFailure writes the main failure marker unless the cause was
// cancellation, which propagates without leaving a marker.
func (d *Driver) recordMainFailure(ctx context.Context, num int, stats *Stats, status *[]string, cause error) error {
	if errors.Is(cause, client.ErrCancelled) || ctx.Err() != nil {
		return cause
	}
	if werr := d.store.WriteFailure(num, ComponentMain, cause); werr != nil {
		return werr
	}
	*status = append(*status, "main=FAIL")
	stats.Failed++
	return nil
}

// processList handles one optional list-backed component: skip if its
// success marker exists, otherwise fetch, persist, and count.
func (d *Driver) processList(ctx context.Context, num int, comp Component, stats *Stats, status *[]string, fetch func(context.Context) ([]byte, int, error)) error {
	if d.store.HasComponent(num, comp) {
		*status = append(*status, string(comp)+"=EXISTS")
		stats.SkipExists++
		return nil
	}

	payload, count, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, client.ErrCancelled) || ctx.Err() != nil {
			return err
		}
		if werr := d.store.WriteFailure(num, comp, err); werr != nil {
			return werr
		}
		*status = append(*status, string(comp)+"=FAIL")
		stats.Failed++
		return nil
	}

	if werr := d.store.WriteComponent(num, comp, payload); werr != nil {
		return werr
	}
	*status = append(*status, fmt.Sprintf("%s=OK (%d)", comp, count))
	stats.Fetched++
	return nil
}

// fetchList pulls all pages of an item sub-resource and serializes them.
func (d *Driver) fetchList(ctx context.Context, num int, resource string) ([]byte, int, error) {
	items, err := d.fetcher.FetchPaginated(ctx, d.endpoint(num, resource))
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	payload, err := json.MarshalIndent(items, "", "  ")
	return payload, len(items), err
}

// endpoint builds the API path for an item, or one of its sub-resources
// when resource is non-empty.
func (d *Driver) endpoint(num int, resource string) string {
	if resource == "" {
		return fmt.Sprintf("/repos/%s/issues/%d", d.repo, num)
	}
	return fmt.Sprintf("/repos/%s/issues/%d/%s", d.repo, num, resource)
}

// attachMeta re-serializes the item body with a _meta classification field
// added.
func attachMeta(fields map[string]json.RawMessage, itemType string) ([]byte, error) {
	meta, err := json.Marshal(map[string]string{"type": itemType})
	if err != nil {
		return nil, err
	}
	fields["_meta"] = meta

	return json.MarshalIndent(fields, "", "  ")
}
