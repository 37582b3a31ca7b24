// Package metrics provides the centralized Prometheus metrics registry for
// ticker-sync. All metrics are defined in their respective packages (catalog,
// pacing, checkpoint, fetcher) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by ticker-sync.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/catalog):
//   - tickersync_requests_total{class} (Counter): Catalog requests by response class (ok, throttled, error, malformed, network)
//   - tickersync_request_duration_seconds (Histogram): Catalog request duration
//   - tickersync_records_fetched_total (Counter): Records returned across all pages
//
// Pacing Metrics (pkg/pacing):
//   - tickersync_interval_waits_total (Counter): Happy-path inter-request waits
//   - tickersync_throttle_backoffs_total (Counter): Backoffs after throttled responses
//   - tickersync_pacing_wait_seconds{reason} (Histogram): Wait duration by reason (interval, throttle)
//
// Checkpoint Metrics (pkg/checkpoint):
//   - tickersync_checkpoint_saves_total{backend} (Counter): Saves by backend (file, sqlite, redis)
//   - tickersync_checkpoint_loads_total{backend, outcome} (Counter): Loads by backend and outcome (found, empty, corrupt)
//   - tickersync_checkpoint_discards_total{backend} (Counter): Discards by backend
//
// Run Metrics (pkg/fetcher):
//   - tickersync_runs_total{outcome} (Counter): Runs by outcome (completed, aborted)
//   - tickersync_pages_total (Counter): Pages successfully retrieved
//   - tickersync_run_duration_seconds (Histogram): Full run duration
//
// Example Prometheus Queries:
//
//   # Throttle rate
//   rate(tickersync_throttle_backoffs_total[1h])
//
//   # Aborted run ratio
//   sum(rate(tickersync_runs_total{outcome="aborted"}[1d])) /
//   sum(rate(tickersync_runs_total[1d]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(tickersync_request_duration_seconds_bucket[1h]))
