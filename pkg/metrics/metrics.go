// Package metrics provides the central Prometheus registry reference
// for the release pipeline. Metrics themselves are defined next to the
// code they observe (release, fetch, memo, pagecache, session) to keep
// packages self-contained; this package documents what is exported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics register automatically via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/release):
//   - release_page_fetches_total{status} (Counter): Page fetches by HTTP status or error kind
//   - release_page_fetch_duration_seconds (Histogram): Page fetch duration
//
// Cycle Metrics (pkg/fetch):
//   - release_cycle_pages (Histogram): Pages fetched per completed cycle
//   - release_cycle_duration_seconds (Histogram): Full cycle duration
//   - release_cycle_errors_total (Counter): Cycles aborted by a page fetch error
//
// Memoization Metrics (pkg/memo):
//   - release_memo_hits_total (Counter): Futures reused, pending or completed
//   - release_memo_misses_total (Counter): Producers invoked
//
// Page Cache Metrics (pkg/pagecache):
//   - release_page_cache_hits_total (Counter): Redis page cache hits
//   - release_page_cache_misses_total (Counter): Redis page cache misses
//   - release_page_cache_written_bytes_total (Counter): Bytes written to the page cache
//   - release_page_cache_errors_total{operation} (Counter): Cache operation errors
//
// Session Metrics (pkg/session):
//   - release_session_cycles_started_total (Counter): Cycles started by condition changes
//   - release_session_cycles_superseded_total (Counter): Cycles cancelled by newer changes
//   - release_session_snapshots_total (Counter): Snapshots published to subscribers
//
// Example Prometheus Queries:
//
//   # Memoization hit rate
//   rate(release_memo_hits_total[5m]) /
//   (rate(release_memo_hits_total[5m]) + rate(release_memo_misses_total[5m]))
//
//   # Cycle failure rate
//   rate(release_cycle_errors_total[5m])
//
//   # P95 page fetch latency
//   histogram_quantile(0.95, rate(release_page_fetch_duration_seconds_bucket[5m]))
