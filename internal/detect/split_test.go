package detect

import (
	"math"
	"testing"
)

func TestEstimateMultiplicityClampsLow(t *testing.T) {
	cfg := DefaultConfig()
	got := estimateMultiplicity(1, cfg)
	if got != 2 {
		t.Errorf("estimateMultiplicity(1) = %d, want the 2 floor", got)
	}
}

func TestEstimateMultiplicityClampsHigh(t *testing.T) {
	cfg := DefaultConfig()
	nominalArea := math.Pi * cfg.NominalRadius() * cfg.NominalRadius()
	got := estimateMultiplicity(int(100*nominalArea), cfg)
	if got != 25 {
		t.Errorf("estimateMultiplicity(100x nominal area) = %d, want the 25 ceiling", got)
	}
}

func TestEstimateMultiplicityRoundsToNearest(t *testing.T) {
	cfg := DefaultConfig()
	nominalArea := math.Pi * cfg.NominalRadius() * cfg.NominalRadius()

	// 2.4x nominal area should round to 2, and 2.6x should round to 3.
	if got := estimateMultiplicity(int(2.4*nominalArea), cfg); got != 2 {
		t.Errorf("estimateMultiplicity(2.4x) = %d, want 2", got)
	}
	if got := estimateMultiplicity(int(2.6*nominalArea), cfg); got != 3 {
		t.Errorf("estimateMultiplicity(2.6x) = %d, want 3", got)
	}
}
