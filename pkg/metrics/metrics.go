// Package metrics documents the Prometheus metrics exposed by the
// governor. Metrics are defined in their owning packages (budget,
// lockdown, cache, client) via promauto to keep registration local and
// avoid circular dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the governor.
var Registry = prometheus.DefaultRegisterer

// Metrics Reference
//
// Budget (pkg/budget):
//   - esi_error_budget_count (Gauge): current error count in the shared window
//   - esi_error_budget_updates_total{status} (Counter): budget updates by resulting status
//   - esi_error_budget_read_failures_total (Counter): reads that failed open
//
// Lockdown (pkg/lockdown):
//   - esi_lockdowns_triggered_total (Counter): hard stops observed
//   - esi_lockdown_rejections_total (Counter): requests rejected while locked
//
// Cache (pkg/cache):
//   - esi_cache_hits_total (Counter)
//   - esi_cache_misses_total (Counter)
//   - esi_cache_stored_bytes_total (Counter)
//   - esi_cache_errors_total{operation} (Counter)
//
// Pipeline (pkg/client):
//   - esi_requests_total{endpoint, outcome} (Counter): outcome is an HTTP
//     status or one of locked, budget_exhausted, cache_hit, hard_stop,
//     transport_error
//   - esi_request_duration_seconds{endpoint} (Histogram)
//   - esi_budget_rejections_total (Counter)
//
// Example queries:
//
//   # Cache hit rate
//   sum(rate(esi_cache_hits_total[5m])) /
//   (sum(rate(esi_cache_hits_total[5m])) + sum(rate(esi_cache_misses_total[5m])))
//
//   # Budget pressure
//   esi_error_budget_count >= 50
//
//   # Lockdown activity
//   increase(esi_lockdowns_triggered_total[1h])
