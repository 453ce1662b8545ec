package engine

import (
	"math"
	"slices"

	"github.com/samber/lo"
)

// round2 rounds half away from zero on the decimal value, so 120.555 is
// 120.56 even though its binary form sits just below the half.
func round2(v float64) float64 {
	return math.Round(v*100*(1+1e-12)) / 100
}

// safeDiv maps division by zero, NaN and Inf to 0
func safeDiv(a, b float64) float64 {
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return lo.Sum(vs) / float64(len(vs))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func allTrue(m map[string]bool) bool {
	return lo.EveryBy(lo.Values(m), func(v bool) bool { return v })
}

var monthLabels = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
