package detect

import (
	"testing"
)

func TestParabolicFit1DSymmetric(t *testing.T) {
	// A symmetric peak should refine to exactly the argmax.
	got := parabolicFit1D(10, 20, 10, 5)
	if got != 5 {
		t.Errorf("parabolicFit1D(10,20,10,5) = %v, want 5", got)
	}
}

func TestParabolicFit1DAsymmetric(t *testing.T) {
	// A peak leaning right should refine toward the larger neighbor.
	got := parabolicFit1D(10, 20, 18, 5)
	if got <= 5 {
		t.Errorf("parabolicFit1D(10,20,18,5) = %v, want > 5 (peak leans toward the larger neighbor)", got)
	}
}

func TestParabolicFit1DFlatFallsBackToArgmax(t *testing.T) {
	got := parabolicFit1D(20, 20, 20, 7)
	if got != 7 {
		t.Errorf("parabolicFit1D(20,20,20,7) = %v, want 7 (flat denominator falls back to integer argmax)", got)
	}
}

func TestMedianAbsDiff(t *testing.T) {
	tests := []struct {
		name string
		ray  []float64
		want float64
	}{
		{"monotonic ramp", []float64{0, 10, 20, 30, 40}, 10},
		{"single step", []float64{5, 5}, 0},
		{"too short", []float64{5}, 0},
		{"noisy with one outlier", []float64{0, 1, 2, 50, 3, 4}, 1},
	}
	for _, tt := range tests {
		if got := medianAbsDiff(tt.ray); got != tt.want {
			t.Errorf("%s: medianAbsDiff(%v) = %v, want %v", tt.name, tt.ray, got, tt.want)
		}
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}
	if got := percentile(vals, 0); got != 10 {
		t.Errorf("percentile(0) = %v, want 10", got)
	}
	if got := percentile(vals, 1); got != 50 {
		t.Errorf("percentile(1) = %v, want 50", got)
	}
	if got := percentile(nil, 0.9); got != 0 {
		t.Errorf("percentile of empty slice = %v, want 0", got)
	}
	// percentile must not mutate the input slice.
	orig := []float64{50, 10, 30}
	_ = percentile(orig, 0.5)
	if orig[0] != 50 || orig[1] != 10 || orig[2] != 30 {
		t.Errorf("percentile mutated its input: %v", orig)
	}
}

func TestBrightCoreAndEdgeConfidenceConstants(t *testing.T) {
	// Pin the fixed refinement-gate constants so a future edit can't
	// silently drift them.
	if brightCoreThreshold != 150.0 {
		t.Errorf("brightCoreThreshold = %v, want 150.0", brightCoreThreshold)
	}
	if edgeConfidenceFloor != 2.0 {
		t.Errorf("edgeConfidenceFloor = %v, want 2.0", edgeConfidenceFloor)
	}
}
