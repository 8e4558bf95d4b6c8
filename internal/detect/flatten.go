package detect

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// flattenParams holds the precomputed kernel size for background
// flattening, derived once per Config from the nominal circle diameter.
// The kernel must be large relative to a circle so the box blur estimates
// background illumination rather than the circle itself.
type flattenParams struct {
	kernel int
}

func newFlattenParams(cfg Config) flattenParams {
	k := int(math.Ceil(cfg.NominalDiameter() * 3))
	if k%2 == 0 {
		k++
	}
	if k < 15 {
		k = 15
	}
	return flattenParams{kernel: k}
}

// flatten removes slow-varying illumination gradients by estimating the
// local background with a wide box blur and subtracting it back out,
// re-biasing around mid-gray so the result stays in the 8-bit range.
func flatten(src gocv.Mat, p flattenParams) gocv.Mat {
	background := gocv.NewMat()
	defer background.Close()
	gocv.BoxFilter(src, &background, -1, image.Point{X: p.kernel, Y: p.kernel})

	// flattened = src - background + 128, re-biased around mid-gray so
	// the subtraction doesn't clip at zero for darker-than-background
	// pixels.
	flattened := gocv.NewMatWithSize(src.Rows(), src.Cols(), src.Type())
	gocv.AddWeighted(src, 1.0, background, -1.0, 128, &flattened)

	return flattened
}
