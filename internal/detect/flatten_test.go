package detect

import "testing"

func TestNewFlattenParamsKernelIsOddAndWide(t *testing.T) {
	cfg := DefaultConfig()
	p := newFlattenParams(cfg)

	if p.kernel%2 == 0 {
		t.Errorf("kernel = %d, want an odd size", p.kernel)
	}
	// The kernel must be wide relative to a circle so it estimates
	// background rather than foreground.
	if float64(p.kernel) < 3*cfg.NominalDiameter() {
		t.Errorf("kernel = %d, want at least 3x the nominal diameter (%v)", p.kernel, cfg.NominalDiameter())
	}
}

func TestNewFlattenParamsHasAMinimumFloor(t *testing.T) {
	cfg := Config{DiameterMinPx: 1, DiameterMaxPx: 1, GridRows: 4, GridCols: 10}
	p := newFlattenParams(cfg)
	if p.kernel < 15 {
		t.Errorf("kernel = %d, want at least the 15px floor for degenerate tiny diameters", p.kernel)
	}
}
