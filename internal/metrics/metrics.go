package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoadLinesTotal counts embedding file lines by outcome
	LoadLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_load_lines_total",
			Help: "Total number of embedding file lines processed, by outcome",
		},
		[]string{"outcome"}, // valid, malformed, duplicate, pruned
	)

	// LoadDurationSeconds measures the time to parse the embedding file
	LoadDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wordscope_load_duration_seconds",
			Help:    "Time taken to load the embedding table",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// VocabularySize is the number of tokens retained after pruning
	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wordscope_vocabulary_size",
			Help: "Number of tokens held by the embedding table",
		},
	)

	// VectorDimension is the fixed dimension of the loaded table
	VectorDimension = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wordscope_vector_dimension",
			Help: "Dimension of the loaded embedding vectors",
		},
	)

	// IndexBuildDurationSeconds measures ANN index construction time
	IndexBuildDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordscope_index_build_duration_seconds",
			Help:    "Time taken to build the ANN index",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"backend"},
	)

	// IndexTreesBuilt counts completed forest trees
	IndexTreesBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wordscope_index_trees_built_total",
			Help: "Total number of random projection trees built",
		},
	)

	// FlightOperationsTotal counts the number of Flight operations
	FlightOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_flight_operations_total",
			Help: "The total number of processed Arrow Flight operations",
		},
		[]string{"method", "status"},
	)

	// FlightDurationSeconds measures the latency of Flight operations
	FlightDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordscope_flight_duration_seconds",
			Help:    "Duration of Arrow Flight operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RateLimitRequestsTotal counts rate limiter decisions
	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordscope_rate_limit_requests_total",
			Help: "Total number of requests seen by the rate limiter",
		},
		[]string{"status"}, // allowed, throttled
	)
)

var (
	// HealthCheckDurationSeconds measures each component probe
	HealthCheckDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordscope_health_check_duration_seconds",
			Help:    "Duration of health checks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"component"},
	)

	// HealthStatus is 1 for healthy, 0.5 for degraded and 0 for unhealthy
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wordscope_health_status",
			Help: "Current component health status (1=healthy, 0.5=degraded, 0=unhealthy)",
		},
		[]string{"component"},
	)
)
