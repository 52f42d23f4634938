package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	rateLimitPausesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_rate_limit_pauses_total",
		Help: "Total pauses taken for rate limiting, by kind (low_quota, throttled)",
	}, []string{"kind"})

	rateLimitPauseSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_rate_limit_pause_seconds_total",
		Help: "Total seconds spent paused for rate limiting, by kind",
	}, []string{"kind"})
)

// Tracker holds the most recently observed quota state for one API client.
// It is owned by a single client instance and is not safe for concurrent
// use; the fetch pipeline is strictly sequential.
type Tracker struct {
	remaining int
	resetAt   time.Time
	known     bool

	buffer int
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker with the given low-quota buffer. A buffer
// of 0 or less falls back to DefaultBuffer.
func NewTracker(buffer int, logger zerolog.Logger) *Tracker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Tracker{
		buffer: buffer,
		logger: logger,
		now:    time.Now,
	}
}

// Update records quota state from response headers. A header absent from a
// given response leaves the previously observed value in place.
func (t *Tracker) Update(headers http.Header) {
	if v := headers.Get("x-ratelimit-remaining"); v != "" {
		remaining, err := strconv.Atoi(v)
		if err != nil {
			t.logger.Warn().Str("value", v).Msg("Unparseable x-ratelimit-remaining header")
		} else {
			t.remaining = remaining
			t.known = true
			rateLimitRemaining.Set(float64(remaining))
		}
	}

	if v := headers.Get("x-ratelimit-reset"); v != "" {
		epoch, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			t.logger.Warn().Str("value", v).Msg("Unparseable x-ratelimit-reset header")
		} else {
			t.resetAt = time.Unix(epoch, 0)
		}
	}
}

// State returns a copy of the current quota state.
func (t *Tracker) State() Snapshot {
	return Snapshot{
		Remaining: t.remaining,
		ResetAt:   t.resetAt,
		Known:     t.known,
	}
}

// PreRequestDelay returns how long to pause before the next request. It is
// zero unless the remaining quota has dropped below the buffer, in which
// case it covers the time until the window resets plus a small margin.
func (t *Tracker) PreRequestDelay() time.Duration {
	state := t.State()
	if !state.Low(t.buffer) {
		return 0
	}

	wait := state.UntilReset(t.now())
	if wait == 0 {
		return 0
	}
	wait += PreRequestMargin

	t.logger.Warn().
		Int("remaining", state.Remaining).
		Dur("wait", wait).
		Msg("Rate limit low, pausing until reset")

	rateLimitPausesTotal.WithLabelValues("low_quota").Inc()
	rateLimitPauseSeconds.WithLabelValues("low_quota").Add(wait.Seconds())
	return wait
}

// ThrottleDelay returns how long to pause after an explicit
// rate-limit-exceeded response (403 or 429), independent of the buffer
// check: the time until the window resets plus ThrottleMargin. The margin
// alone applies when no reset time has been observed or it already passed,
// so a throttled endpoint is never re-requested without a pause.
func (t *Tracker) ThrottleDelay(status int) time.Duration {
	wait := t.State().UntilReset(t.now()) + ThrottleMargin

	t.logger.Warn().
		Int("status", status).
		Dur("wait", wait).
		Msg("Rate limited, pausing until reset")

	rateLimitPausesTotal.WithLabelValues("throttled").Inc()
	rateLimitPauseSeconds.WithLabelValues("throttled").Add(wait.Seconds())
	return wait
}
