package detect

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Precomputed holds per-Config resources shared across every seed in a
// frame: kernels, the polar sampling grid, and the edge-band/outer-ring
// masks used by refinement. It is rebuilt only when Config (and
// therefore d_nom) changes, not per frame.
type Precomputed struct {
	cfg Config

	dtSmoothKernel gocv.Mat

	roiSide  int
	polarDX  [][]float64 // [angle] -> per-radius-step dx offsets from center
	polarDY  [][]float64
	nAngles  int
	nRadii   int

	edgeBandMask  gocv.Mat // annulus around r0, sized to ROI
	outerRingMask gocv.Mat // beyond 1.15*r0, sized to ROI
}

// newPrecomputed builds the shared resources for a Config once, so the
// structuring element, polar grid, and ring masks are reused across every
// seed in a frame rather than rebuilt per seed.
func newPrecomputed(cfg Config) *Precomputed {
	p := &Precomputed{cfg: cfg}

	p.dtSmoothKernel = gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})

	r0 := cfg.NominalRadius()
	p.roiSide = int(2.4 * cfg.NominalDiameter())

	const nAngles = 32
	const nRadii = 24
	p.nAngles = nAngles
	p.nRadii = nRadii
	p.polarDX = make([][]float64, nAngles)
	p.polarDY = make([][]float64, nAngles)
	rMin := 0.85 * r0
	rMax := 1.15 * r0
	for a := 0; a < nAngles; a++ {
		theta := 2 * math.Pi * float64(a) / float64(nAngles)
		cos, sin := math.Cos(theta), math.Sin(theta)
		p.polarDX[a] = make([]float64, nRadii)
		p.polarDY[a] = make([]float64, nRadii)
		for ri := 0; ri < nRadii; ri++ {
			r := rMin + (rMax-rMin)*float64(ri)/float64(nRadii-1)
			p.polarDX[a][ri] = r * cos
			p.polarDY[a][ri] = r * sin
		}
	}

	half := p.roiSide / 2
	p.edgeBandMask = gocv.NewMatWithSize(p.roiSide, p.roiSide, gocv.MatTypeCV8UC1)
	p.outerRingMask = gocv.NewMatWithSize(p.roiSide, p.roiSide, gocv.MatTypeCV8UC1)
	bandInner := 0.85 * r0
	bandOuter := 1.15 * r0
	for y := 0; y < p.roiSide; y++ {
		for x := 0; x < p.roiSide; x++ {
			dx := float64(x - half)
			dy := float64(y - half)
			d := math.Sqrt(dx*dx + dy*dy)
			if d >= bandInner && d <= bandOuter {
				p.edgeBandMask.SetUCharAt(y, x, 255)
			}
			if d > bandOuter {
				p.outerRingMask.SetUCharAt(y, x, 255)
			}
		}
	}

	return p
}

// Close releases the gocv resources held by Precomputed.
func (p *Precomputed) Close() {
	p.dtSmoothKernel.Close()
	p.edgeBandMask.Close()
	p.outerRingMask.Close()
}
