// Package mask flags contaminated parts of a folded data cube using Tukey's
// outlier fences. Profiles computes a per-profile bad-data mask from a
// feature table; FindSpikes locates broadband transients in the
// frequency-collapsed cube and synthesizes replacement values for them.
package mask

import (
	"errors"
	"math"
	"sort"

	"github.com/v-morello/clfd/internal/robust"
)

var (
	// ErrBadFence reports a non-positive or non-finite fence multiplier.
	ErrBadFence = errors.New("mask: fence multiplier must be a positive finite number")

	// ErrNoValidChannels reports a zap set covering the whole band.
	ErrNoValidChannels = errors.New("mask: zap channels cover the entire band")
)

// Stats holds the Tukey fence statistics of one value population: the
// quartiles, the inter-quartile range and the acceptance bounds
// [Q1 - q*IQR, Q3 + q*IQR] for the fence multiplier the stats were built
// with.
type Stats struct {
	Q1   float64
	Med  float64
	Q3   float64
	IQR  float64
	VMin float64
	VMax float64
}

// FenceStats computes fence statistics over a value population for the fence
// multiplier q. Quartiles interpolate linearly between the two nearest
// ranks; NaN values are ignored. An empty (or all-NaN) population yields
// zero-valued Stats.
func FenceStats(values []float64, q float64) Stats {
	finite := make([]float64, 0, len(values))

	for _, x := range values {
		if !math.IsNaN(x) {
			finite = append(finite, x)
		}
	}

	if len(finite) == 0 {
		return Stats{}
	}

	sort.Float64s(finite)

	q1 := robust.Quantile(finite, 0.25)
	med := robust.Quantile(finite, 0.50)
	q3 := robust.Quantile(finite, 0.75)
	iqr := q3 - q1

	return Stats{
		Q1:   q1,
		Med:  med,
		Q3:   q3,
		IQR:  iqr,
		VMin: q1 - q*iqr,
		VMax: q3 + q*iqr,
	}
}

// Outlier reports whether x lies outside the acceptance bounds. With a
// zero-width fence (zero IQR) only values equal to the collapsed bound are
// inliers. NaN is never an outlier: a fence computed on a degenerate
// population that flags nothing is a valid result.
func (s Stats) Outlier(x float64) bool {
	return x < s.VMin || x > s.VMax
}

func checkFenceMultiplier(q float64) error {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return ErrBadFence
	}

	return nil
}

// sanitizeZap deduplicates zap channel indices and drops the ones outside
// [0, numChans). Returns the sorted zap list and a per-channel zap flag.
func sanitizeZap(zapChans []int, numChans int) ([]int, []bool) {
	flags := make([]bool, numChans)

	for _, ch := range zapChans {
		if ch >= 0 && ch < numChans {
			flags[ch] = true
		}
	}

	out := make([]int, 0, len(zapChans))

	for ch, zapped := range flags {
		if zapped {
			out = append(out, ch)
		}
	}

	return out, flags
}
