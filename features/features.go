// Package features computes a fixed catalogue of scalar statistics for every
// profile of a folded data cube. A profile is the phase-resolved intensity
// vector of one (sub-integration, channel) pair; all features operate on the
// normalized view of the cube, which makes them dimensionless and comparable
// across channels of differing mean power.
//
// Each feature is a pure function of a single profile, so extraction is
// deterministic: running it twice over the same cube with the same selection
// yields bit-for-bit identical tables.
package features

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/v-morello/clfd/cube"
)

var (
	// ErrUnknownFeature reports a feature name outside the catalogue.
	ErrUnknownFeature = errors.New("features: unknown feature")

	// ErrNoFeatures reports an empty feature selection.
	ErrNoFeatures = errors.New("features: empty feature selection")
)

// Name identifies a profile feature.
type Name string

// The feature catalogue.
const (
	// Ptp is the peak-to-peak difference, max - min.
	Ptp Name = "ptp"

	// Std is the population standard deviation.
	Std Name = "std"

	// Var is the population variance.
	Var Name = "var"

	// Lfamp is the magnitude of the second coefficient (index 1) of the
	// profile's discrete Fourier transform, capturing low-frequency
	// broadband shape.
	Lfamp Name = "lfamp"

	// Skew is the third standardized moment. Zero-variance profiles
	// yield 0.
	Skew Name = "skew"

	// Kurtosis is the fourth standardized moment minus 3 (excess
	// kurtosis). Zero-variance profiles yield 0.
	Kurtosis Name = "kurtosis"

	// ACF is the lag-1 autocorrelation of the profile, circularly wrapped
	// and normalized by the variance. Zero-variance profiles yield 0.
	ACF Name = "acf"
)

// profileFunc computes one scalar feature from a single normalized profile.
type profileFunc func(profile []float64) float64

var catalogue = map[Name]profileFunc{
	Ptp:      ptp,
	Std:      std,
	Var:      variance,
	Lfamp:    lfamp,
	Skew:     skew,
	Kurtosis: kurtosis,
	ACF:      acf,
}

// All returns the full feature catalogue in canonical order.
func All() []Name {
	return []Name{Ptp, Std, Var, Lfamp, Skew, Kurtosis, ACF}
}

// Parse validates a feature name string.
func Parse(s string) (Name, error) {
	name := Name(s)
	if _, ok := catalogue[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
	}

	return name, nil
}

// Table maps every (sub-integration, channel) pair of a cube to its feature
// values. Rows are ordered row-major over sub-integration then channel.
// A Table is never modified after Extract returns it.
type Table struct {
	names      []Name
	numSubints int
	numChans   int
	cols       map[Name][]float64
}

// Extract computes the selected features for every profile of the cube.
// Duplicate names are collapsed keeping first occurrence order; unknown
// names are rejected with ErrUnknownFeature, an empty selection with
// ErrNoFeatures.
func Extract(c *cube.Cube, names []Name) (*Table, error) {
	selected, err := dedupe(names)
	if err != nil {
		return nil, err
	}

	numSubints := c.NumSubints()
	numChans := c.NumChans()
	numProfiles := numSubints * numChans

	t := &Table{
		names:      selected,
		numSubints: numSubints,
		numChans:   numChans,
		cols:       make(map[Name][]float64, len(selected)),
	}

	for _, name := range selected {
		t.cols[name] = make([]float64, numProfiles)
	}

	for s := 0; s < numSubints; s++ {
		for ch := 0; ch < numChans; ch++ {
			profile := c.NormProfile(s, ch)
			row := s*numChans + ch

			for _, name := range selected {
				t.cols[name][row] = catalogue[name](profile)
			}
		}
	}

	return t, nil
}

func dedupe(names []Name) ([]Name, error) {
	if len(names) == 0 {
		return nil, ErrNoFeatures
	}

	seen := make(map[Name]bool, len(names))
	out := make([]Name, 0, len(names))

	for _, name := range names {
		if _, ok := catalogue[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}

		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	return out, nil
}

// Names returns the selected feature names in extraction order.
func (t *Table) Names() []Name {
	return append([]Name(nil), t.names...)
}

// NumSubints returns the sub-integration count of the source cube.
func (t *Table) NumSubints() int { return t.numSubints }

// NumChans returns the channel count of the source cube.
func (t *Table) NumChans() int { return t.numChans }

// Value returns the feature value for one (sub-integration, channel) pair.
// The second return is false if the feature was not extracted.
func (t *Table) Value(name Name, subint, channel int) (float64, bool) {
	col, ok := t.cols[name]
	if !ok {
		return 0, false
	}

	return col[subint*t.numChans+channel], true
}

// Column returns all values of one feature in row-major (subint, channel)
// order. The returned slice must not be modified. The second return is false
// if the feature was not extracted.
func (t *Table) Column(name Name) ([]float64, bool) {
	col, ok := t.cols[name]
	return col, ok
}

// Columns returns a copy of every extracted feature column, keyed by name.
func (t *Table) Columns() map[Name][]float64 {
	out := make(map[Name][]float64, len(t.cols))
	for name, col := range t.cols {
		out[name] = append([]float64(nil), col...)
	}

	return out
}

func ptp(profile []float64) float64 {
	minVal, maxVal := profile[0], profile[0]

	for _, x := range profile[1:] {
		if x < minVal {
			minVal = x
		}

		if x > maxVal {
			maxVal = x
		}
	}

	return maxVal - minVal
}

// moments returns the mean and second, third and fourth central moments of
// the profile. Two-pass with float64 accumulators, population convention
// (no Bessel correction), matching the per-profile reference definition.
func moments(profile []float64) (mean, m2, m3, m4 float64) {
	n := float64(len(profile))

	var sum float64
	for _, x := range profile {
		sum += x
	}

	mean = sum / n

	for _, x := range profile {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}

	m2 /= n
	m3 /= n
	m4 /= n

	return mean, m2, m3, m4
}

func variance(profile []float64) float64 {
	_, m2, _, _ := moments(profile)
	return m2
}

func std(profile []float64) float64 {
	return math.Sqrt(variance(profile))
}

func skew(profile []float64) float64 {
	_, m2, m3, _ := moments(profile)
	if m2 == 0 {
		return 0
	}

	return m3 / (m2 * math.Sqrt(m2))
}

func kurtosis(profile []float64) float64 {
	_, m2, _, m4 := moments(profile)
	if m2 == 0 {
		return 0
	}

	return m4/(m2*m2) - 3
}

func lfamp(profile []float64) float64 {
	bins := fft.FFTReal(profile)
	return cmplx.Abs(bins[1])
}

func acf(profile []float64) float64 {
	mean, m2, _, _ := moments(profile)
	if m2 == 0 {
		return 0
	}

	n := len(profile)

	var acov float64

	for i, x := range profile {
		next := profile[(i+1)%n]
		acov += (x - mean) * (next - mean)
	}

	acov /= float64(n)

	return acov / m2
}
