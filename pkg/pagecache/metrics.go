package pagecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageCacheHits tracks page cache hits.
	PageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_page_cache_hits_total",
			Help: "Total number of release page cache hits",
		},
	)

	// PageCacheMisses tracks page cache misses.
	PageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_page_cache_misses_total",
			Help: "Total number of release page cache misses",
		},
	)

	// PageCacheSize tracks bytes written to the page cache.
	PageCacheSize = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_page_cache_written_bytes_total",
			Help: "Total bytes written to the release page cache",
		},
	)

	// PageCacheErrors tracks cache operation errors.
	PageCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "release_page_cache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
