package testutil

import (
	"math"
	"testing"
)

func TestGaussianPulse(t *testing.T) {
	p := GaussianPulse(5, 8, 2, 16)

	if len(p) != 16 {
		t.Fatalf("length: got %d, want 16", len(p))
	}

	if p[8] != 5 {
		t.Errorf("peak: got %g, want 5", p[8])
	}

	for i, x := range p {
		if x > p[8] {
			t.Errorf("bin %d exceeds the peak: %g", i, x)
		}
	}

	if math.Abs(p[7]-p[9]) > 1e-12 {
		t.Errorf("pulse not symmetric about the peak: p[7]=%g p[9]=%g", p[7], p[9])
	}

	wrapped := GaussianPulse(1, 0, 2, 16)
	if math.Abs(wrapped[1]-wrapped[15]) > 1e-12 {
		t.Errorf("pulse does not wrap: p[1]=%g p[15]=%g", wrapped[1], wrapped[15])
	}
}

func TestNoiseProfile_Deterministic(t *testing.T) {
	a := NoiseProfile(42, 1, 64)
	b := NoiseProfile(42, 1, 64)

	if MaxAbsDiff(a, b) != 0 {
		t.Error("same seed produced different noise")
	}

	for i, x := range a {
		if x < -1 || x > 1 {
			t.Errorf("sample %d out of range: %g", i, x)
		}
	}
}

func TestCubeData(t *testing.T) {
	data := CubeData(2, 3, 4, func(s, ch int) []float64 {
		return ConstantProfile(float64(s*3+ch), 4)
	})

	if len(data) != 24 {
		t.Fatalf("length: got %d, want 24", len(data))
	}

	// Profile (1, 2) occupies the last 4 samples.
	for _, x := range data[20:] {
		if x != 5 {
			t.Errorf("got %g, want 5", x)
		}
	}
}
