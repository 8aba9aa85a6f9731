// Package testutil provides deterministic folded-data generators and
// tolerance assertions shared by tests across the module.
package testutil

import (
	"math"
	"math/rand"
)

// GaussianPulse generates a folded pulse profile: a Gaussian peak of the
// given amplitude centered on peakBin, with width expressed in phase bins.
func GaussianPulse(amplitude float64, peakBin, width, numBins int) []float64 {
	out := make([]float64, numBins)
	sigma := float64(width)

	for p := range out {
		// Wrapped distance so the pulse folds across the phase boundary.
		d := math.Abs(float64(p - peakBin))
		if d > float64(numBins)/2 {
			d = float64(numBins) - d
		}

		out[p] = amplitude * math.Exp(-d*d/(2*sigma*sigma))
	}

	return out
}

// NoiseProfile generates uniform noise in [-amplitude, amplitude] with a
// fixed seed for reproducibility.
func NoiseProfile(seed int64, amplitude float64, numBins int) []float64 {
	out := make([]float64, numBins)
	rng := rand.New(rand.NewSource(seed))

	for p := range out {
		out[p] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// ConstantProfile generates a flat profile, the degenerate case every robust
// statistic must tolerate.
func ConstantProfile(value float64, numBins int) []float64 {
	out := make([]float64, numBins)
	for p := range out {
		out[p] = value
	}

	return out
}

// CubeData assembles flat (subint, chan, bin) row-major data from a
// per-profile generator.
func CubeData(numSubints, numChans, numBins int, profile func(subint, channel int) []float64) []float64 {
	data := make([]float64, 0, numSubints*numChans*numBins)

	for s := 0; s < numSubints; s++ {
		for ch := 0; ch < numChans; ch++ {
			data = append(data, profile(s, ch)...)
		}
	}

	return data
}
