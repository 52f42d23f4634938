// Package client provides the resilient GitHub API client: retries with
// exponential backoff, rate-limit backpressure, and pagination flattening.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/brson/rust-issue-archive/pkg/backoff"
	"github.com/brson/rust-issue-archive/pkg/ratelimit"
)

// pageSize is the fixed per_page value for paginated endpoints.
const pageSize = 100

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub API requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total failed request attempts by error class",
	}, []string{"class"})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_retry_exhausted_total",
		Help: "Total logical fetches that exhausted every attempt",
	})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// Token is the bearer token attached to every request. Empty means
	// unauthenticated.
	Token string

	// UserAgent identifies the archiver to the API.
	UserAgent string

	// APIVersion is sent in the X-GitHub-Api-Version header.
	APIVersion string

	// Timeout bounds a single request attempt.
	Timeout time.Duration

	// MaxAttempts is the attempt budget for one logical fetch.
	MaxAttempts int

	// RateLimitBuffer is the remaining-quota threshold below which the
	// client pauses until the window resets.
	RateLimitBuffer int

	// Backoff computes the wait between transient-failure attempts.
	Backoff backoff.Policy

	// RetryOnThrottle controls whether a 403/429 quota response consumes
	// one of MaxAttempts. When false, throttling waits never count
	// against the budget and only genuine errors can exhaust it.
	RetryOnThrottle bool
}

// DefaultConfig returns the standard configuration for api.github.com.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:         "https://api.github.com",
		Token:           token,
		UserAgent:       "rust-issue-archive/1.0",
		APIVersion:      "2022-11-28",
		Timeout:         30 * time.Second,
		MaxAttempts:     5,
		RateLimitBuffer: ratelimit.DefaultBuffer,
		Backoff:         backoff.Default(),
		RetryOnThrottle: true,
	}
}

// Client issues logical fetches against the API, absorbing transient
// failures and quota exhaustion. One Client owns one rate-limit tracker;
// it is intended for sequential use by a single caller.
type Client struct {
	httpClient *http.Client
	limits     *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger

	// after is time.After, injectable for tests.
	after func(time.Duration) <-chan time.Time
}

// New creates a client from the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == (backoff.Policy{}) {
		cfg.Backoff = backoff.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limits:     ratelimit.NewTracker(cfg.RateLimitBuffer, logger),
		config:     cfg,
		logger:     logger,
		after:      time.After,
	}
}

// Limits returns the rate-limit tracker owned by this client.
func (c *Client) Limits() *ratelimit.Tracker {
	return c.limits
}

// attemptOutcome classifies one request attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeNotFound
	outcomeThrottled
	outcomeTransient
)

// Fetch performs one logical GET against endpoint, retrying internally up
// to the configured attempt budget. Returns ErrNotFound for a 404 and
// ErrAttemptsExhausted when the budget runs out.
func (c *Client) Fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt < c.config.MaxAttempts; {
		data, outcome, status, err := c.attempt(ctx, endpoint)

		switch outcome {
		case outcomeSuccess:
			// Proactive backpressure: if this response showed the
			// quota running low, absorb the wait here so the next
			// request lands in a fresh window.
			if pauseErr := c.pause(ctx, c.limits.PreRequestDelay()); pauseErr != nil {
				return nil, pauseErr
			}
			return data, nil

		case outcomeNotFound:
			return nil, ErrNotFound

		case outcomeThrottled:
			lastErr = err
			if pauseErr := c.pause(ctx, c.limits.ThrottleDelay(status)); pauseErr != nil {
				return nil, pauseErr
			}
			if c.config.RetryOnThrottle {
				attempt++
			}

		case outcomeTransient:
			lastErr = err
			c.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Int("max_attempts", c.config.MaxAttempts).
				Msg("Request attempt failed")

			if pauseErr := c.pause(ctx, c.config.Backoff.Delay(attempt)); pauseErr != nil {
				return nil, pauseErr
			}
			attempt++
		}
	}

	retryExhaustedTotal.Inc()
	return nil, fmt.Errorf("%w: %s after %d attempts: %v",
		ErrAttemptsExhausted, endpoint, c.config.MaxAttempts, lastErr)
}

// FetchPaginated fetches every page of a list endpoint and concatenates
// the results in API order. Termination: a 404 page, an empty page, or a
// short page. A page that is not a JSON list is a fatal ErrNotList.
func (c *Client) FetchPaginated(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	var all []json.RawMessage
	for page := 1; ; page++ {
		data, err := c.Fetch(ctx, fmt.Sprintf("%s%sper_page=%d&page=%d", endpoint, sep, pageSize, page))
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", ErrNotList, endpoint, page, err)
		}

		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		if len(items) < pageSize {
			break
		}
	}

	return all, nil
}

// attempt performs a single HTTP request and classifies the result. The
// returned error is non-nil only for throttled and transient outcomes.
func (c *Client) attempt(ctx context.Context, endpoint string) (json.RawMessage, attemptOutcome, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, outcomeTransient, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", c.config.APIVersion)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, outcomeTransient, 0, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.limits.Update(resp.Header)
	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, outcomeNotFound, resp.StatusCode, nil

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, outcomeThrottled, resp.StatusCode,
			fmt.Errorf("rate limited: HTTP %d from %s", resp.StatusCode, endpoint)

	case resp.StatusCode != http.StatusOK:
		errorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, outcomeTransient, resp.StatusCode,
			fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, outcomeTransient, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	if !json.Valid(body) {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, outcomeTransient, resp.StatusCode, fmt.Errorf("invalid JSON from %s", endpoint)
	}

	return json.RawMessage(body), outcomeSuccess, resp.StatusCode, nil
}

// pause blocks for d, honoring context cancellation. A non-positive d
// returns immediately.
func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-c.after(d):
		return nil
	}
}
