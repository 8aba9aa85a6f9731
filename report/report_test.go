package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/features"
	"github.com/v-morello/clfd/mask"
)

// runOutputs produces a cube with one loud channel, its feature table and the
// matching profile and spike results.
func runOutputs(t *testing.T) (*cube.Cube, *features.Table, *mask.ProfileResult, *mask.SpikeResult) {
	t.Helper()

	numSubints, numChans, numBins := 2, 8, 16
	data := make([]float64, numSubints*numChans*numBins)

	for s := 0; s < numSubints; s++ {
		for ch := 0; ch < numChans; ch++ {
			amp := 1 + 0.1*float64(s*numChans+ch)
			if ch == 5 {
				amp = 100
			}

			for p := 0; p < numBins; p++ {
				phase := 2 * math.Pi * float64(p) / float64(numBins)
				data[(s*numChans+ch)*numBins+p] = amp * math.Sin(phase+float64(ch))
			}
		}
	}

	freqs := make([]float64, numChans)
	for i := range freqs {
		freqs[i] = 1400 + float64(i)
	}

	c, err := cube.New(data, numSubints, numChans, numBins, freqs)
	if err != nil {
		t.Fatal(err)
	}

	table, err := features.Extract(c, []features.Name{features.Std, features.Ptp})
	if err != nil {
		t.Fatal(err)
	}

	prof, err := mask.Profiles(table, 2.0, []int{0})
	if err != nil {
		t.Fatal(err)
	}

	spikes, err := mask.FindSpikes(c, 4.0, []int{0})
	if err != nil {
		t.Fatal(err)
	}

	return c, table, prof, spikes
}

func TestReport_RoundTrip(t *testing.T) {
	c, table, prof, spikes := runOutputs(t)

	r := New("folded.npy", c, table, prof, spikes)
	path := filepath.Join(t.TempDir(), "report.json")

	if err := r.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.Version != Version {
		t.Errorf("Version: got %q, want %q", got.Version, Version)
	}

	if got.Filename != "folded.npy" {
		t.Errorf("Filename: got %q", got.Filename)
	}

	if got.NumSubints != 2 || got.NumChans != 8 || got.NumBins != 16 {
		t.Errorf("dims: got (%d,%d,%d)", got.NumSubints, got.NumChans, got.NumBins)
	}

	if got.QMask != 2.0 || got.QSpike != 4.0 {
		t.Errorf("fence multipliers: got qmask=%g qspike=%g", got.QMask, got.QSpike)
	}

	if len(got.Features) != 2 || got.Features[0] != features.Std || got.Features[1] != features.Ptp {
		t.Errorf("Features: got %v", got.Features)
	}

	for _, name := range got.Features {
		col, ok := table.Column(name)
		if !ok {
			t.Fatalf("table missing column %s", name)
		}

		for i, x := range got.FeatureValues[name] {
			if x != col[i] {
				t.Errorf("%s[%d]: got %g, want %g", name, i, x, col[i])
			}
		}
	}

	for s, row := range got.ProfileMask {
		for ch, bad := range row {
			if bad != prof.Mask[s][ch] {
				t.Errorf("ProfileMask[%d][%d]: got %v", s, ch, bad)
			}
		}
	}

	if got.MaskedFraction != prof.MaskedFraction() {
		t.Errorf("MaskedFraction: got %g, want %g", got.MaskedFraction, prof.MaskedFraction())
	}

	if len(got.ZapChans) != 1 || got.ZapChans[0] != 0 {
		t.Errorf("ZapChans: got %v, want [0]", got.ZapChans)
	}

	if len(got.ValidChans) != 7 {
		t.Errorf("ValidChans: got %v, want 7 channels", got.ValidChans)
	}
}

func TestReport_WithoutSpikes(t *testing.T) {
	c, table, prof, _ := runOutputs(t)

	r := New("folded.npy", c, table, prof, nil)

	if r.QSpike != 0 || r.TimePhaseMask != nil || r.ValidChans != nil {
		t.Error("spike fields set on a report without spike finding")
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := r.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.TimePhaseMask != nil {
		t.Errorf("TimePhaseMask: got %v, want none", got.TimePhaseMask)
	}
}

func TestReport_CopiesInputs(t *testing.T) {
	c, table, prof, spikes := runOutputs(t)

	r := New("folded.npy", c, table, prof, spikes)

	prof.Mask[0][0] = !prof.Mask[0][0]
	spikes.Mask[0][0] = !spikes.Mask[0][0]

	if r.ProfileMask[0][0] == prof.Mask[0][0] {
		t.Error("report aliases the profile mask")
	}

	if r.TimePhaseMask[0][0] == spikes.Mask[0][0] {
		t.Error("report aliases the time-phase mask")
	}
}

func TestLoad_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Fatalf("got %v, want a parse error", err)
	}
}
