package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brson/rust-issue-archive/pkg/client"
)

func TestRun_AggregatesOutcomes(t *testing.T) {
	// #1 is a 404, #2 fetches, #3 fails.
	fetcher := &fakeFetcher{
		fetch: func(endpoint string) (json.RawMessage, error) {
			switch {
			case strings.HasSuffix(endpoint, "/1"):
				return nil, client.ErrNotFound
			case strings.HasSuffix(endpoint, "/2"):
				return issueBody("2015-05-01T00:00:00Z", false), nil
			default:
				return nil, errors.New("server on fire")
			}
		},
	}
	driver, _ := newTestDriver(t, fetcher)
	runner := NewRunner(driver, zerolog.Nop())

	totals, err := runner.Run(context.Background(), 1, 3, Components{Main: true})
	require.NoError(t, err)

	assert.Equal(t, Stats{Fetched: 1, SkipNotFound: 1, Failed: 1}, totals)
}

func TestRun_SecondPassIsAllSkips(t *testing.T) {
	fetcher := &fakeFetcher{
		fetch: func(string) (json.RawMessage, error) {
			return issueBody("2015-05-01T00:00:00Z", false), nil
		},
		paginated: func(string) ([]json.RawMessage, error) {
			return nil, nil
		},
	}
	driver, _ := newTestDriver(t, fetcher)
	runner := NewRunner(driver, zerolog.Nop())
	want := Components{Main: true, Comments: true}

	_, err := runner.Run(context.Background(), 10, 12, want)
	require.NoError(t, err)
	callsAfterFirst := len(fetcher.calls)

	totals, err := runner.Run(context.Background(), 10, 12, want)
	require.NoError(t, err)

	assert.Equal(t, Stats{SkipExists: 6}, totals)
	assert.Len(t, fetcher.calls, callsAfterFirst)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	processed := 0
	fetcher := &fakeFetcher{
		fetch: func(string) (json.RawMessage, error) {
			processed++
			if processed == 2 {
				cancel()
			}
			return issueBody("2015-05-01T00:00:00Z", false), nil
		},
	}
	driver, _ := newTestDriver(t, fetcher)
	runner := NewRunner(driver, zerolog.Nop())

	totals, err := runner.Run(ctx, 1, 100, Components{Main: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// The two items completed before cancellation are still counted.
	assert.Equal(t, Stats{Fetched: 2}, totals)
}

func TestDiscoverLatest(t *testing.T) {
	fetcher := &fakeFetcher{
		fetch: func(endpoint string) (json.RawMessage, error) {
			assert.Contains(t, endpoint, "sort=created&direction=desc&per_page=1")
			return json.RawMessage(`[{"number": 135742, "title": "newest"}]`), nil
		},
	}

	latest, err := DiscoverLatest(context.Background(), fetcher, "rust-lang/rust")
	require.NoError(t, err)
	assert.Equal(t, 135742, latest)
}

func TestDiscoverLatest_EmptyListing(t *testing.T) {
	fetcher := &fakeFetcher{
		fetch: func(string) (json.RawMessage, error) {
			return json.RawMessage(`[]`), nil
		},
	}

	_, err := DiscoverLatest(context.Background(), fetcher, "rust-lang/rust")
	assert.Error(t, err)
}

func TestDiscoverLatest_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{
		fetch: func(string) (json.RawMessage, error) {
			return nil, errors.New("attempts exhausted")
		},
	}

	_, err := DiscoverLatest(context.Background(), fetcher, "rust-lang/rust")
	assert.Error(t, err)
}
