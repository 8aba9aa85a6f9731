// Package report aggregates the artifacts of one cleaning run into an
// immutable value that can be snapshotted to JSON. A report only stores
// copies of core outputs; it holds no reference to the cube it was derived
// from.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/features"
	"github.com/v-morello/clfd/mask"
)

// Version identifies the report schema.
const Version = "1.0"

// Report captures the inputs and outputs of one cleaning run.
type Report struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Filename    string    `json:"filename,omitempty"`

	NumSubints int `json:"num_subints"`
	NumChans   int `json:"num_chans"`
	NumBins    int `json:"num_bins"`

	QMask          float64                        `json:"qmask"`
	Features       []features.Name                `json:"features"`
	FeatureValues  map[features.Name][]float64    `json:"feature_values"`
	FeatureStats   map[features.Name]mask.Stats   `json:"feature_stats"`
	ProfileMask    [][]bool                       `json:"profile_mask"`
	ZapChans       []int                          `json:"zap_chans"`
	MaskedFraction float64                        `json:"masked_fraction"`

	// Spike-finding outputs, present only when despiking ran.
	QSpike        float64 `json:"qspike,omitempty"`
	TimePhaseMask [][]bool `json:"time_phase_mask,omitempty"`
	ValidChans    []int    `json:"valid_chans,omitempty"`
}

// New builds a report from the outputs of one run. spikes may be nil when
// spike finding was not performed.
func New(filename string, c *cube.Cube, table *features.Table, prof *mask.ProfileResult, spikes *mask.SpikeResult) *Report {
	r := &Report{
		Version:        Version,
		GeneratedAt:    time.Now().UTC(),
		Filename:       filename,
		NumSubints:     c.NumSubints(),
		NumChans:       c.NumChans(),
		NumBins:        c.NumBins(),
		QMask:          prof.Q,
		Features:       table.Names(),
		FeatureValues:  table.Columns(),
		FeatureStats:   copyStats(prof.Stats),
		ProfileMask:    copyGrid(prof.Mask),
		ZapChans:       append([]int(nil), prof.ZapChans...),
		MaskedFraction: prof.MaskedFraction(),
	}

	if spikes != nil {
		r.QSpike = spikes.Q
		r.TimePhaseMask = copyGrid(spikes.Mask)
		r.ValidChans = append([]int(nil), spikes.ValidChans...)
	}

	return r
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}

// Load reads a report previously written by Save.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parsing %s: %w", path, err)
	}

	return &r, nil
}

func copyGrid(grid [][]bool) [][]bool {
	out := make([][]bool, len(grid))
	for i, row := range grid {
		out[i] = append([]bool(nil), row...)
	}

	return out
}

func copyStats(stats map[features.Name]mask.Stats) map[features.Name]mask.Stats {
	out := make(map[features.Name]mask.Stats, len(stats))
	for name, s := range stats {
		out[name] = s
	}

	return out
}
