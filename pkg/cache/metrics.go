package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks lookups served from Redis.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "esi_cache_hits_total",
			Help: "Total number of ESI cache hits",
		},
	)

	// cacheMisses tracks lookups that fell through to dispatch.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "esi_cache_misses_total",
			Help: "Total number of ESI cache misses",
		},
	)

	// cacheStoredBytes tracks the volume of cached response data.
	cacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "esi_cache_stored_bytes_total",
			Help: "Total bytes of response data written to the ESI cache",
		},
	)

	// cacheErrors tracks cache operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
