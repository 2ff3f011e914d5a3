package core

import "fmt"

// DistanceMetric defines the distance metric used for vector comparison.
type DistanceMetric string

const (
	// MetricAngular treats vectors as directions: sqrt(2 - 2*cos(a, b)).
	MetricAngular DistanceMetric = "angular"
	// MetricEuclidean is plain L2 distance (magnitude matters).
	MetricEuclidean DistanceMetric = "euclidean"
)

// IndexBackend selects the ANN structure built over the table.
type IndexBackend string

const (
	// BackendForest is a random-hyperplane forest.
	BackendForest IndexBackend = "forest"
	// BackendHNSW is a navigable small world graph.
	BackendHNSW IndexBackend = "hnsw"
)

// ParseMetric converts a config string into a DistanceMetric.
func ParseMetric(s string) (DistanceMetric, error) {
	switch DistanceMetric(s) {
	case MetricAngular, MetricEuclidean:
		return DistanceMetric(s), nil
	case "cosine":
		return MetricAngular, nil
	default:
		return "", NewInvalidArgumentError("metric", fmt.Sprintf("unknown metric %q", s))
	}
}

// ParseBackend converts a config string into an IndexBackend.
func ParseBackend(s string) (IndexBackend, error) {
	switch IndexBackend(s) {
	case BackendForest, BackendHNSW:
		return IndexBackend(s), nil
	default:
		return "", NewInvalidArgumentError("backend", fmt.Sprintf("unknown backend %q", s))
	}
}
