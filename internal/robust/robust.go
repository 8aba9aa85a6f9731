// Package robust provides order-statistic helpers shared by the analysis
// packages: medians and linearly interpolated quantiles.
package robust

import (
	"math"
	"sort"
)

// Median returns the median of values, averaging the two middle elements for
// even lengths. The input is left unmodified. Returns 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	scratch := append([]float64(nil), values...)

	return MedianInPlace(scratch)
}

// MedianInPlace sorts values and returns their median.
// Returns 0 for an empty slice.
func MedianInPlace(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)

	return SortedMedian(values)
}

// SortedMedian returns the median of an ascending-sorted non-empty slice.
func SortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// Quantile returns the quantile of an ascending-sorted non-empty slice at
// the given fraction in [0, 1], interpolating linearly between the two
// nearest ranks.
func Quantile(sorted []float64, fraction float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	pos := fraction * float64(n-1)
	lo := int(math.Floor(pos))

	if lo >= n-1 {
		return sorted[n-1]
	}

	frac := pos - float64(lo)

	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
