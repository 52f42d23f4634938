package archive

import (
	"context"
	"encoding/json"
	"fmt"
)

// DiscoverLatest returns the highest known item number for the repository
// by querying the listing endpoint newest-first with a single-result page.
// Unlike per-item fetches, a failure here is not caught anywhere and ends
// the run.
func DiscoverLatest(ctx context.Context, fetcher Fetcher, repo string) (int, error) {
	endpoint := fmt.Sprintf("/repos/%s/issues?state=all&sort=created&direction=desc&per_page=1", repo)

	data, err := fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("discover latest item: %w", err)
	}

	var items []struct {
		Number int `json:"number"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("discover latest item: parse listing: %w", err)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("discover latest item: empty listing for %s", repo)
	}

	return items[0].Number, nil
}
