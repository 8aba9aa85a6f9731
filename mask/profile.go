package mask

import (
	"github.com/v-morello/clfd/features"
)

// ProfileResult holds the inputs and outputs of one profile-masking run.
// It is never modified after Profiles returns it.
type ProfileResult struct {
	// Q is the fence multiplier the mask was derived with.
	Q float64

	// ZapChans lists the channel indices that were excluded from the fence
	// statistics and then forcibly masked, sorted ascending.
	ZapChans []int

	// Stats holds the fence statistics of every selected feature.
	Stats map[features.Name]Stats

	// Mask is shaped (numSubints, numChans); true marks a profile to
	// discard.
	Mask [][]bool
}

// Profiles applies Tukey's fence rule to every feature column of the table
// independently and combines the per-feature flags with a logical OR: any
// one outlying statistic is sufficient evidence of contamination. Channels
// in the zap set are excluded from the fence populations and forced to true
// in the final mask. Zapping the whole band fails with ErrNoValidChannels.
func Profiles(table *features.Table, q float64, zapChans []int) (*ProfileResult, error) {
	if err := checkFenceMultiplier(q); err != nil {
		return nil, err
	}

	numSubints := table.NumSubints()
	numChans := table.NumChans()

	zap, zapped := sanitizeZap(zapChans, numChans)
	if len(zap) == numChans {
		return nil, ErrNoValidChannels
	}

	res := &ProfileResult{
		Q:        q,
		ZapChans: zap,
		Stats:    make(map[features.Name]Stats, len(table.Names())),
		Mask:     newBoolGrid(numSubints, numChans),
	}

	population := make([]float64, 0, numSubints*numChans)

	for _, name := range table.Names() {
		col, _ := table.Column(name)

		population = population[:0]

		for row, v := range col {
			if !zapped[row%numChans] {
				population = append(population, v)
			}
		}

		stats := FenceStats(population, q)
		res.Stats[name] = stats

		for row, v := range col {
			if stats.Outlier(v) {
				res.Mask[row/numChans][row%numChans] = true
			}
		}
	}

	for s := 0; s < numSubints; s++ {
		for _, ch := range zap {
			res.Mask[s][ch] = true
		}
	}

	return res, nil
}

// NumMasked returns the number of true entries in the profile mask.
func (r *ProfileResult) NumMasked() int {
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

// MaskedFraction returns the fraction of profiles flagged as bad.
func (r *ProfileResult) MaskedFraction() float64 {
	total := len(r.Mask) * len(r.Mask[0])
	return float64(r.NumMasked()) / float64(total)
}

func newBoolGrid(rows, cols int) [][]bool {
	grid := make([][]bool, rows)
	backing := make([]bool, rows*cols)

	for i := range grid {
		grid[i] = backing[i*cols : (i+1)*cols]
	}

	return grid
}
