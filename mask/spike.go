package mask

import (
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/internal/robust"
)

// SpikeResult holds the outputs of one spike-finding run over the zero-DM
// (frequency-collapsed) view of a cube. It is never modified after
// FindSpikes returns it.
type SpikeResult struct {
	// Q is the fence multiplier the mask was derived with.
	Q float64

	// ZapChans lists the channel indices excluded from the frequency
	// collapse, sorted ascending.
	ZapChans []int

	// ValidChans is the complement of ZapChans: the channels that were
	// summed and that replacement values exist for.
	ValidChans []int

	// Stats is the single fence computed over the flattened
	// (sub-integration, phase) population of the zero-DM array.
	Stats Stats

	// Mask is shaped (numSubints, numBins); true marks a time-phase cell
	// contaminated across the band.
	Mask [][]bool

	// replacements holds the normalized-scale replacement value for every
	// profile, row-major (subint, chan). The value for a flagged
	// (subint, phase) cell is the same for every phase bin of the profile:
	// the median of that channel's own normalized profile.
	replacements []float64

	numChans int
}

// Replacement returns the normalized-scale replacement value for the data at
// (subint, channel, phase). The value is the median of that channel's own
// normalized profile at the given sub-integration, so patching a flagged
// cell preserves the channel's baseline statistics while erasing the
// localized contamination. It is only meaningful for flagged cells and valid
// channels; zapped channels are not repaired.
func (r *SpikeResult) Replacement(subint, channel int) float64 {
	return r.replacements[subint*r.numChans+channel]
}

// BadBins returns the flagged phase bin indices of one sub-integration.
func (r *SpikeResult) BadBins(subint int) []int {
	var bins []int

	for p, bad := range r.Mask[subint] {
		if bad {
			bins = append(bins, p)
		}
	}

	return bins
}

// NumMasked returns the number of flagged time-phase cells.
func (r *SpikeResult) NumMasked() int {
	var n int

	for _, row := range r.Mask {
		for _, bad := range row {
			if bad {
				n++
			}
		}
	}

	return n
}

// FindSpikes detects interference transients that do not survive
// dispersion-free frequency summation. The normalized cube is collapsed by
// summing over the valid (non-zapped) channels, a single Tukey fence is
// computed over the flattened (sub-integration, phase) population of the
// collapsed array, and cells outside the fence are flagged. The fence pools
// the whole population on purpose: per-sub-integration fences would be far
// less stable.
//
// Dispersion delay across the band is assumed negligible for this step; the
// collapse is a plain zero-DM sum.
func FindSpikes(c *cube.Cube, q float64, zapChans []int) (*SpikeResult, error) {
	if err := checkFenceMultiplier(q); err != nil {
		return nil, err
	}

	numSubints := c.NumSubints()
	numChans := c.NumChans()
	numBins := c.NumBins()

	zap, zapped := sanitizeZap(zapChans, numChans)
	if len(zap) == numChans {
		return nil, ErrNoValidChannels
	}

	valid := make([]int, 0, numChans-len(zap))

	for ch := 0; ch < numChans; ch++ {
		if !zapped[ch] {
			valid = append(valid, ch)
		}
	}

	// Zero-DM time series per sub-integration: sum the normalized data
	// over the valid channels for every (subint, phase) cell.
	scrunch := make([]float64, numSubints*numBins)

	for s := 0; s < numSubints; s++ {
		row := scrunch[s*numBins : (s+1)*numBins]

		for _, ch := range valid {
			vecmath.AddBlockInPlace(row, c.NormProfile(s, ch))
		}
	}

	stats := FenceStats(scrunch, q)

	res := &SpikeResult{
		Q:            q,
		ZapChans:     zap,
		ValidChans:   valid,
		Stats:        stats,
		Mask:         newBoolGrid(numSubints, numBins),
		replacements: make([]float64, numSubints*numChans),
		numChans:     numChans,
	}

	for s := 0; s < numSubints; s++ {
		for p := 0; p < numBins; p++ {
			if stats.Outlier(scrunch[s*numBins+p]) {
				res.Mask[s][p] = true
			}
		}
	}

	for s := 0; s < numSubints; s++ {
		for _, ch := range valid {
			res.replacements[s*numChans+ch] = robust.Median(c.NormProfile(s, ch))
		}
	}

	return res, nil
}
