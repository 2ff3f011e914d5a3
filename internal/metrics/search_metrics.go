package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Query and Cache Metrics
// =============================================================================

var (
	// QueryLatencySeconds measures engine query latency by kind
	QueryLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordscope_query_latency_seconds",
			Help:    "Latency of similarity queries by kind",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	// QueryErrorsTotal counts failed queries by kind and reason
	QueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_query_errors_total",
			Help: "Total number of failed similarity queries",
		},
		[]string{"kind", "reason"},
	)

	// QueryCandidatesVisited tracks how many candidates were re-ranked per query
	QueryCandidatesVisited = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wordscope_query_candidates_visited",
			Help:    "Number of candidate vectors re-ranked per forest query",
			Buckets: prometheus.ExponentialBuckets(8, 2, 12),
		},
	)

	// QueryCacheHitsTotal counts result cache hits
	QueryCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_query_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"kind"},
	)

	// QueryCacheMissesTotal counts result cache misses
	QueryCacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_query_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"kind"},
	)

	// QueryCacheEvictionsTotal counts LRU evictions
	QueryCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wordscope_query_cache_evictions_total",
			Help: "Total number of result cache evictions",
		},
	)

	// QueryCacheSize is the current number of cached results
	QueryCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wordscope_query_cache_size",
			Help: "Current number of entries in the result cache",
		},
	)
)
