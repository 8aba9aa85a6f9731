// Package cube wraps three-dimensional folded pulsar data in
// (sub-integration, channel, phase bin) order and derives the
// baseline-subtracted, scale-normalized view consumed by all downstream
// analysis stages.
//
// A Cube is immutable once constructed. The normalized view is a pure
// function of the raw data: every profile has its median (the off-pulse
// baseline) subtracted, then the whole cube is divided by a single global
// scale, the median absolute deviation over all non-zero baseline-subtracted
// samples. The global scale keeps features dimensionless and comparable
// across channels of differing mean power, and stops a few saturated or
// all-zero channels from skewing the normalization.
package cube

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/v-morello/clfd/internal/robust"
)

var (
	// ErrShape reports a dimension mismatch between the data array and its
	// metadata.
	ErrShape = errors.New("cube: shape mismatch")

	// ErrDegenerateInput reports an input that has no usable statistics.
	// It is only returned when strict mode is enabled; the default behavior
	// is a well-defined fallback (an all-zero normalized view).
	ErrDegenerateInput = errors.New("cube: degenerate input")
)

// Cube holds folded data for one observation plus per-channel frequency
// metadata. The raw data is never modified after construction.
type Cube struct {
	data  []float64 // raw samples, row-major (subint, chan, bin)
	freqs []float64 // channel center frequencies in MHz

	numSubints int
	numChans   int
	numBins    int

	strict bool

	// Normalized view, derived once on first access.
	once      sync.Once
	norm      []float64
	baselines []float64 // per-profile medians, row-major (subint, chan)
	scale     float64   // global MAD of non-zero baseline-subtracted samples
}

// Option configures cube construction.
type Option func(*Cube)

// WithStrict makes construction fail with ErrDegenerateInput on inputs that
// would otherwise fall back to defined degenerate behavior: an all-zero cube
// or a cube holding a single profile.
func WithStrict() Option {
	return func(c *Cube) { c.strict = true }
}

// New creates a Cube from flat row-major samples with the given dimensions
// and a frequency array of matching channel count. The input slices are
// copied.
func New(data []float64, numSubints, numChans, numBins int, freqs []float64, opts ...Option) (*Cube, error) {
	if numSubints < 1 || numChans < 1 {
		return nil, fmt.Errorf("%w: need at least one profile, got (%d, %d)", ErrShape, numSubints, numChans)
	}

	if numBins < 2 {
		return nil, fmt.Errorf("%w: need at least 2 phase bins, got %d", ErrShape, numBins)
	}

	if len(data) != numSubints*numChans*numBins {
		return nil, fmt.Errorf("%w: %d samples for dimensions (%d, %d, %d)",
			ErrShape, len(data), numSubints, numChans, numBins)
	}

	if len(freqs) != numChans {
		return nil, fmt.Errorf("%w: %d frequencies for %d channels", ErrShape, len(freqs), numChans)
	}

	c := &Cube{
		data:       append([]float64(nil), data...),
		freqs:      append([]float64(nil), freqs...),
		numSubints: numSubints,
		numChans:   numChans,
		numBins:    numBins,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.strict {
		if err := c.CheckDegenerate(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// FromProfiles creates a Cube from a nested [subint][chan][bin] array.
// Ragged input is rejected with ErrShape.
func FromProfiles(data [][][]float64, freqs []float64, opts ...Option) (*Cube, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("%w: empty data array", ErrShape)
	}

	numSubints := len(data)
	numChans := len(data[0])
	numBins := len(data[0][0])

	flat := make([]float64, 0, numSubints*numChans*numBins)

	for _, sub := range data {
		if len(sub) != numChans {
			return nil, fmt.Errorf("%w: ragged channel dimension", ErrShape)
		}

		for _, prof := range sub {
			if len(prof) != numBins {
				return nil, fmt.Errorf("%w: ragged phase dimension", ErrShape)
			}

			flat = append(flat, prof...)
		}
	}

	return New(flat, numSubints, numChans, numBins, freqs, opts...)
}

// CheckDegenerate returns ErrDegenerateInput for cubes whose statistics
// collapse to defined fallback values: a single-profile cube (the outlier
// fence degenerates to accept-all) or an all-zero cube (zero MAD, all-zero
// normalized view). Such cubes are processed without error by default; this
// check is what strict mode enforces at construction.
func (c *Cube) CheckDegenerate() error {
	if c.numSubints*c.numChans < 2 {
		return fmt.Errorf("%w: single profile", ErrDegenerateInput)
	}

	for _, x := range c.data {
		if x != 0 {
			return nil
		}
	}

	return fmt.Errorf("%w: all samples are zero", ErrDegenerateInput)
}

// NumSubints returns the number of sub-integrations.
func (c *Cube) NumSubints() int { return c.numSubints }

// NumChans returns the number of frequency channels.
func (c *Cube) NumChans() int { return c.numChans }

// NumBins returns the number of phase bins per profile.
func (c *Cube) NumBins() int { return c.numBins }

// Frequencies returns the channel center frequencies in MHz.
// The returned slice must not be modified.
func (c *Cube) Frequencies() []float64 { return c.freqs }

// Raw returns the raw samples, row-major (subint, chan, bin).
// The returned slice must not be modified.
func (c *Cube) Raw() []float64 { return c.data }

// RawProfile returns the raw phase-resolved intensity vector for one
// (sub-integration, channel) pair. The returned slice must not be modified.
func (c *Cube) RawProfile(subint, channel int) []float64 {
	start := (subint*c.numChans + channel) * c.numBins
	return c.data[start : start+c.numBins]
}

// Normalized returns the normalized samples, row-major (subint, chan, bin),
// derived once and cached. The returned slice must not be modified.
func (c *Cube) Normalized() []float64 {
	c.once.Do(c.derive)
	return c.norm
}

// NormProfile returns the normalized phase-resolved intensity vector for one
// (sub-integration, channel) pair. The returned slice must not be modified.
func (c *Cube) NormProfile(subint, channel int) []float64 {
	c.once.Do(c.derive)
	start := (subint*c.numChans + channel) * c.numBins

	return c.norm[start : start+c.numBins]
}

// Baselines returns the per-profile medians subtracted during normalization,
// row-major (subint, chan). The returned slice must not be modified.
func (c *Cube) Baselines() []float64 {
	c.once.Do(c.derive)
	return c.baselines
}

// Baseline returns the median of the raw profile at (subint, channel).
func (c *Cube) Baseline(subint, channel int) float64 {
	c.once.Do(c.derive)
	return c.baselines[subint*c.numChans+channel]
}

// Scale returns the global median absolute deviation the cube was divided by
// during normalization. It is zero for an all-zero cube, in which case the
// normalized view is all-zero as well.
func (c *Cube) Scale() float64 {
	c.once.Do(c.derive)
	return c.scale
}

// derive computes the baseline-subtracted, MAD-scaled view.
func (c *Cube) derive() {
	numProfiles := c.numSubints * c.numChans

	c.baselines = make([]float64, numProfiles)
	sub := make([]float64, len(c.data))
	scratch := make([]float64, c.numBins)

	for i := 0; i < numProfiles; i++ {
		start := i * c.numBins
		profile := c.data[start : start+c.numBins]
		baseline := medianOf(profile, scratch)
		c.baselines[i] = baseline

		for j, x := range profile {
			sub[start+j] = x - baseline
		}
	}

	// Global MAD over non-zero baseline-subtracted samples. The per-profile
	// median is already removed, so the deviations are the samples
	// themselves.
	dev := make([]float64, 0, len(sub))
	for _, x := range sub {
		if x != 0 && !math.IsNaN(x) {
			dev = append(dev, math.Abs(x))
		}
	}

	c.norm = make([]float64, len(sub))

	if len(dev) == 0 {
		// All-zero cube: leave the normalized view all-zero rather than
		// dividing by a zero MAD.
		c.scale = 0
		return
	}

	c.scale = robust.MedianInPlace(dev)

	if c.scale == 0 {
		return
	}

	vecmath.ScaleBlock(c.norm, sub, 1/c.scale)
}

// medianOf returns the median of values using scratch as sorting space.
// scratch must have len(values) capacity.
func medianOf(values, scratch []float64) float64 {
	scratch = scratch[:len(values)]
	copy(scratch, values)
	sort.Float64s(scratch)

	return robust.SortedMedian(scratch)
}
