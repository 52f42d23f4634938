// Package backoff implements exponential backoff with bounded random jitter
// for retrying failed API requests.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy computes retry delays. The zero value is not usable; use Default
// or fill all fields.
type Policy struct {
	// Base is the delay for attempt 0.
	Base time.Duration

	// Multiplier is the exponential growth factor per attempt.
	Multiplier float64

	// Jitter is the random perturbation as a fraction of the computed
	// delay, applied in the range [-Jitter, +Jitter].
	Jitter float64
}

// Default returns the standard policy: 1s base, doubling per attempt,
// +/-25% jitter.
func Default() Policy {
	return Policy{
		Base:       1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.25,
	}
}

// Delay returns the sleep duration for the given attempt index (starting
// at 0). The result is never negative.
func (p Policy) Delay(attempt int) time.Duration {
	base := float64(p.Base) * math.Pow(p.Multiplier, float64(attempt))
	jitter := base * p.Jitter * (2*rand.Float64() - 1)

	d := time.Duration(base + jitter)
	if d < 0 {
		return 0
	}
	return d
}
