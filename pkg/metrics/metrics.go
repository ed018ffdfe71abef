// Package metrics exposes the Prometheus registry used by the cascade.
// Metrics are defined next to the code that updates them (cache, cascade,
// backend) and registered via promauto; this package serves them and
// documents the full set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the cascade.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cascade Metrics (pkg/cascade):
//   - cascade_requests_total{namespace} (Counter): Predict calls
//   - cascade_hits_total{namespace, level} (Counter): Hits by tier (fast_tier, shared_tier)
//   - cascade_misses_total{namespace} (Counter): Requests that reached the backend
//   - cascade_backend_errors_total{namespace, reason} (Counter): Failed computations (error, timeout, cancelled)
//   - cascade_backend_duration_seconds{namespace} (Histogram): Backend computation duration
//
// Cache Metrics (pkg/cache):
//   - cascade_fast_tier_entries (Gauge): Entries held in all fast tiers of the process
//   - cascade_fast_tier_evictions_total (Counter): LRU capacity evictions
//   - cascade_fast_tier_expirations_total (Counter): Entries dropped on read after their TTL
//   - cascade_shared_tier_errors_total{operation} (Counter): Shared tier failures (get, set, decode, encode, delete)
//   - cascade_shared_tier_read_bytes_total (Counter): Bytes read from the shared tier
//   - cascade_shared_tier_written_bytes_total (Counter): Bytes written to the shared tier
//
// HTTP Backend Metrics (pkg/backend):
//   - cascade_backend_requests_total{status} (Counter): Inference requests by HTTP status
//   - cascade_backend_request_duration_seconds (Histogram): Single attempt duration
//   - cascade_backend_http_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - cascade_backend_retries_total{error_class} (Counter): Retry attempts by error class
//   - cascade_backend_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - cascade_backend_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Hit Rate
//   sum(rate(cascade_hits_total[5m])) / sum(rate(cascade_requests_total[5m]))
//
//   # Share of hits served by the shared tier
//   sum(rate(cascade_hits_total{level="shared_tier"}[5m])) / sum(rate(cascade_hits_total[5m]))
//
//   # Shared tier degraded
//   rate(cascade_shared_tier_errors_total[5m]) > 0
//
//   # P95 Backend Latency
//   histogram_quantile(0.95, rate(cascade_backend_duration_seconds_bucket[5m]))
//
//   # Eviction Pressure
//   rate(cascade_fast_tier_evictions_total[5m])
