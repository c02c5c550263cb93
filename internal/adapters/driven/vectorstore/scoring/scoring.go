// Package scoring implements brute-force similarity ranking shared by the
// in-process vector stores.
package scoring

import (
	"math"
	"sort"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Score computes the metric's score for a candidate against the query.
func Score(metric domain.Metric, query, candidate []float32) float64 {
	if metric == domain.MetricEuclidean {
		return Euclidean(query, candidate)
	}
	return Cosine(query, candidate)
}

// Scored is a candidate with its score and its insertion position.
type Scored struct {
	Pos   int
	Score float64
}

// Rank orders candidates best first: descending similarity for cosine,
// ascending distance for euclidean. Equal scores keep insertion order.
// The result is truncated to topK when topK > 0.
func Rank(metric domain.Metric, items []Scored, topK int) []Scored {
	sort.SliceStable(items, func(i, j int) bool {
		if metric == domain.MetricEuclidean {
			return items[i].Score < items[j].Score
		}
		return items[i].Score > items[j].Score
	})
	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return items
}
