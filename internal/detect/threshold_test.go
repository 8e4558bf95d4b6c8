package detect

import "testing"

func TestTriangleThresholdBimodal(t *testing.T) {
	var hist [256]int
	// A flat dark background mode over 0-60 and a smaller bright-foreground
	// mode over 180-220; the triangle method should land somewhere between
	// the two (here at 61, the first empty bin above the dark mode).
	for v := 0; v <= 60; v++ {
		hist[v] = 1000
	}
	for v := 180; v <= 220; v++ {
		hist[v] = 150
	}

	got := triangleThreshold(hist)
	if got <= 60 || got >= 180 {
		t.Errorf("triangleThreshold = %d, want a value between the two histogram modes (60, 180)", got)
	}
}

func TestTriangleThresholdSingleSpike(t *testing.T) {
	var hist [256]int
	hist[128] = 500
	got := triangleThreshold(hist)
	if got != 128 {
		t.Errorf("triangleThreshold = %d, want 128 for a single-valued histogram", got)
	}
}

func TestDeriveThresholds(t *testing.T) {
	tests := []struct {
		base   int
		wantHi float32
		wantLo float32
	}{
		{base: 100, wantHi: 125, wantLo: 65},
		{base: 10, wantHi: 35, wantLo: 10}, // lo clamped to the 10 floor
		{base: 0, wantHi: 25, wantLo: 10},
	}
	for _, tt := range tests {
		got := deriveThresholds(tt.base)
		if got.hi != tt.wantHi {
			t.Errorf("deriveThresholds(%d).hi = %v, want %v", tt.base, got.hi, tt.wantHi)
		}
		if got.lo != tt.wantLo {
			t.Errorf("deriveThresholds(%d).lo = %v, want %v", tt.base, got.lo, tt.wantLo)
		}
	}
}
