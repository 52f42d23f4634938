// Package metrics anchors the Prometheus registry for the archiver.
// Collectors are defined in the packages that own the events (client,
// ratelimit) via promauto; this package exposes them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all collectors attach to.
var Registry = prometheus.DefaultRegisterer

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Reference
//
// Request metrics (pkg/client):
//   - github_requests_total{status} (Counter): requests by HTTP status
//   - github_request_duration_seconds (Histogram): request latency
//   - github_errors_total{class} (Counter): failed attempts by class
//     (network, server, rate_limit, decode)
//   - github_retry_exhausted_total (Counter): logical fetches that ran
//     out of attempts
//
// Rate limit metrics (pkg/ratelimit):
//   - github_rate_limit_remaining (Gauge): quota left in the window
//   - github_rate_limit_pauses_total{kind} (Counter): pauses by kind
//     (low_quota, throttled)
//   - github_rate_limit_pause_seconds_total{kind} (Counter): time spent
//     paused
