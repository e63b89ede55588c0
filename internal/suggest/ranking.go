package suggest

import (
	"math"
	"sort"
	"strconv"
)

// RankRecommendations sorts recommendations by priority, highest first.
// The sort is stable, so equal priorities keep their input order. The input
// slice is not modified.
func RankRecommendations(recs []Recommendation) []Recommendation {
	sorted := make([]Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() < sorted[j].Priority.Rank()
	})
	return sorted
}

// roundTo rounds v to the given number of decimal places, half away from
// zero.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func rounded(v float64) *int {
	n := int(math.Round(v))
	return &n
}

func count(n int) *int {
	return &n
}

// num formats a value without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
