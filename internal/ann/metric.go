package ann

import (
	"math"

	"github.com/23skdu/wordscope/internal/core"
)

type distanceFunc func(a, b []float32) float32

func distanceFor(metric core.DistanceMetric) distanceFunc {
	if metric == core.MetricEuclidean {
		return euclidean
	}
	return angular
}

// angular expects unit vectors. For those ||a-b|| equals sqrt(2 - 2cos),
// and it is exactly zero when a query matches a stored vector.
func angular(a, b []float32) float32 {
	return euclidean(a, b)
}

func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		diff := float64(a[i] - b[i])
		sum += diff * diff
	}
	return float32(math.Sqrt(sum))
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func magnitude(vec []float32) float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	return float32(math.Sqrt(sum))
}

// normalise scales vec to unit length in place. Zero vectors are left alone.
func normalise(vec []float32) {
	m := magnitude(vec)
	if m == 0 {
		return
	}
	inv := 1 / m
	for i := range vec {
		vec[i] *= inv
	}
}

// prepare copies vec, normalising it when the metric is directional.
func prepare(metric core.DistanceMetric, vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	if metric == core.MetricAngular {
		normalise(out)
	}
	return out
}
