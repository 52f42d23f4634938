// Package ratelimit tracks the GitHub API quota from the
// x-ratelimit-remaining and x-ratelimit-reset response headers and computes
// how long the caller must pause before the quota window resets.
package ratelimit

import (
	"time"
)

// Margins added on top of the reset time when sleeping, so the first
// request after the pause lands inside the fresh window.
const (
	// PreRequestMargin is used for the proactive low-quota pause.
	PreRequestMargin = 5 * time.Second

	// ThrottleMargin is used after an explicit 403/429 response. Larger,
	// because the server has already rejected us once.
	ThrottleMargin = 10 * time.Second
)

// DefaultBuffer is the remaining-quota threshold below which requests pause
// until the window resets. Leaving headroom avoids burning the final
// requests of a window on secondary rate limits.
const DefaultBuffer = 100

// Snapshot is a point-in-time copy of the tracked quota state.
type Snapshot struct {
	// Remaining is the request quota left in the current window.
	Remaining int

	// ResetAt is when the window resets.
	ResetAt time.Time

	// Known reports whether a remaining-quota header has been observed
	// yet. Until then the tracker applies no pauses.
	Known bool
}

// Low reports whether the remaining quota is below the given buffer.
func (s Snapshot) Low(buffer int) bool {
	return s.Known && s.Remaining < buffer
}

// UntilReset returns the duration until the window resets, or 0 if the
// reset time has passed or was never observed.
func (s Snapshot) UntilReset(now time.Time) time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
