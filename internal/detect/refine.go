package detect

import (
	"image"
	"math"
	"sort"

	"boresight/pkg/geometry"

	"gocv.io/x/gocv"
)

// brightCoreThreshold is the fixed brightness-gate cutoff, in 8-bit
// flattened-image units (flattened frames are re-biased around 128, so a
// nominal bright circle core sits comfortably above it).
const brightCoreThreshold = 150.0

// edgeConfidenceFloor is the ec cutoff separating high from low confidence
// in the edge-confidence gate.
const edgeConfidenceFloor = 2.0

// refineSeed runs the adaptive sub-pixel refinement procedure on a single
// seed. flattened is used only for the brightness gate; original
// supplies every other measurement (edge-band gradients, DT-fast
// thresholding, radial sampling), since the brightness gate needs the
// illumination-corrected signal while edge and radial measurements need
// the frame's true contrast.
func refineSeed(original, flattened gocv.Mat, seed Seed, cfg Config, pre *Precomputed) RefinedCenter {
	roi, originX, originY, ok := extractROI(original, seed.Center, pre.roiSide)
	if !ok {
		return RefinedCenter{Center: seed.Center, Tag: TagFailed}
	}
	defer roi.Close()

	flatROI, _, _, flatOK := extractROI(flattened, seed.Center, pre.roiSide)
	if !flatOK {
		return RefinedCenter{Center: seed.Center, Tag: TagFailed}
	}
	defer flatROI.Close()

	r0 := cfg.NominalRadius()
	bright, _ := brightnessGate(flatROI, r0)
	highConfidence := bright
	gateTag := TagDtFast
	if !bright {
		ec := edgeConfidence(roi, pre)
		highConfidence = ec >= edgeConfidenceFloor
		gateTag = TagDtEdge
	}

	if highConfidence {
		c, ok := dtFastRefine(roi, pre)
		if !ok {
			return RefinedCenter{Center: seed.Center, Tag: TagFailed}
		}
		return RefinedCenter{
			Center: geometry.Point2D{X: originX + c.X, Y: originY + c.Y},
			Tag:    gateTag,
		}
	}

	fit, ok := radialFitRefine(roi, r0, pre)
	if !ok {
		c, dtOK := dtFastRefine(roi, pre)
		if !dtOK {
			return RefinedCenter{Center: seed.Center, Tag: TagFailed}
		}
		return RefinedCenter{
			Center: geometry.Point2D{X: originX + c.X, Y: originY + c.Y},
			Tag:    TagDtEdge,
		}
	}
	return RefinedCenter{
		Center: geometry.Point2D{X: originX + fit.X, Y: originY + fit.Y},
		Tag:    TagRadialFit,
	}
}

// extractROI crops a square region of the given side centered on center,
// clamped to the frame bounds. Returns the crop's top-left origin in
// source coordinates, and false if the ROI would be degenerate.
func extractROI(src gocv.Mat, center geometry.Point2D, side int) (gocv.Mat, float64, float64, bool) {
	half := side / 2
	x0 := int(center.X) - half
	y0 := int(center.Y) - half
	x1 := x0 + side
	y1 := y0 + side
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > src.Cols() {
		x1 = src.Cols()
	}
	if y1 > src.Rows() {
		y1 = src.Rows()
	}
	if x1-x0 < 5 || y1-y0 < 5 {
		return gocv.Mat{}, 0, 0, false
	}
	region := src.Region(image.Rect(x0, y0, x1, y1))
	defer region.Close()
	return region.Clone(), float64(x0), float64(y0), true
}

// brightnessGate reports whether the mean intensity within radius r0 of
// the ROI center exceeds the bright-core threshold.
func brightnessGate(flatROI gocv.Mat, r0 float64) (bool, bool) {
	cx, cy := flatROI.Cols()/2, flatROI.Rows()/2
	var sum, count float64
	for y := 0; y < flatROI.Rows(); y++ {
		for x := 0; x < flatROI.Cols(); x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			if dx*dx+dy*dy <= r0*r0 {
				sum += float64(flatROI.GetUCharAt(y, x))
				count++
			}
		}
	}
	if count == 0 {
		return false, false
	}
	return sum/count > brightCoreThreshold, true
}

// edgeConfidence computes ec = p90(gradient in edge band) - p90(gradient
// in outer ring). The gradient is resampled to the precomputed masks'
// size, which is the full ROI side; it is not computed at half resolution.
func edgeConfidence(roi gocv.Mat, pre *Precomputed) float64 {
	grad := scharrMagnitude(roi)
	defer grad.Close()

	half := gocv.NewMat()
	defer half.Close()
	gocv.Resize(grad, &half, image.Point{X: pre.edgeBandMask.Cols(), Y: pre.edgeBandMask.Rows()}, 0, 0, gocv.InterpolationLinear)

	bandVals := maskedValues(half, pre.edgeBandMask)
	ringVals := maskedValues(half, pre.outerRingMask)
	return percentile(bandVals, 0.9) - percentile(ringVals, 0.9)
}

// scharrMagnitude computes gradient magnitude via Filter2D with the
// classic 3x3 Scharr kernels (better rotational symmetry than Sobel).
// gocv has no dedicated Scharr entry point, so the operator is built
// directly from its defining kernel.
func scharrMagnitude(src gocv.Mat) gocv.Mat {
	kx := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kx.Close()
	ky := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer ky.Close()
	scharrX := [3][3]float32{{3, 0, -3}, {10, 0, -10}, {3, 0, -3}}
	scharrY := [3][3]float32{{3, 10, 3}, {0, 0, 0}, {-3, -10, -3}}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			kx.SetFloatAt(y, x, scharrX[y][x])
			ky.SetFloatAt(y, x, scharrY[y][x])
		}
	}

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Filter2D(src, &gx, gocv.MatTypeCV32F, kx, image.Point{X: -1, Y: -1}, 0, gocv.BorderDefault)
	gocv.Filter2D(src, &gy, gocv.MatTypeCV32F, ky, image.Point{X: -1, Y: -1}, 0, gocv.BorderDefault)

	mag := gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV32F)
	for y := 0; y < src.Rows(); y++ {
		for x := 0; x < src.Cols(); x++ {
			vx := gx.GetFloatAt(y, x)
			vy := gy.GetFloatAt(y, x)
			mag.SetFloatAt(y, x, float32(math.Sqrt(float64(vx*vx+vy*vy))))
		}
	}
	return mag
}

// maskedValues collects the float32 values of m wherever mask is nonzero.
func maskedValues(m, mask gocv.Mat) []float64 {
	rows, cols := m.Rows(), m.Cols()
	if mask.Rows() != rows || mask.Cols() != cols {
		return nil
	}
	var vals []float64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if mask.GetUCharAt(y, x) != 0 {
				vals = append(vals, float64(m.GetFloatAt(y, x)))
			}
		}
	}
	return vals
}

// percentile returns the p-th percentile (0..1) of vals: the element at
// index floor(p*(n-1)) of the sorted values.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// dtFastRefine is the high-confidence refinement branch: Otsu threshold,
// distance transform, 3x3 smoothing, argmax, parabolic sub-pixel fit.
func dtFastRefine(roi gocv.Mat, pre *Precomputed) (geometry.Point2D, bool) {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(roi, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)

	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(binary, &dist, &labels, gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	smoothed := gocv.NewMat()
	defer smoothed.Close()
	gocv.Filter2D(dist, &smoothed, -1, pre.dtSmoothKernel, image.Point{X: -1, Y: -1}, 0, gocv.BorderDefault)

	_, _, _, maxLoc := gocv.MinMaxLoc(smoothed)
	mx, my := maxLoc.X, maxLoc.Y

	cx := parabolicFit1D(
		getAt(smoothed, my, mx-1), getAt(smoothed, my, mx), getAt(smoothed, my, mx+1), float64(mx))
	cy := parabolicFit1D(
		getAt(smoothed, my-1, mx), getAt(smoothed, my, mx), getAt(smoothed, my+1, mx), float64(my))

	return geometry.Point2D{X: cx, Y: cy}, true
}

// getAt safely reads a float32 Mat value, returning 0 outside bounds (the
// parabolic fit then degenerates to integer argmax via the 1e-6 guard).
func getAt(m gocv.Mat, y, x int) float64 {
	if y < 0 || y >= m.Rows() || x < 0 || x >= m.Cols() {
		return 0
	}
	return float64(m.GetFloatAt(y, x))
}

// parabolicFit1D refines an integer argmax to sub-pixel precision given
// the center value and its two neighbors along one axis.
func parabolicFit1D(left, center, right, argmax float64) float64 {
	denom := left - 2*center + right
	if math.Abs(denom) < 1e-6 {
		return argmax
	}
	offset := 0.5 * (left - right) / denom
	return argmax + offset
}

// radialFitRefine is the low-confidence refinement branch: walk outward
// along each ray in the precomputed polar grid, find the half-maximum
// crossing, and fit a circle to the collected edge points.
func radialFitRefine(roi gocv.Mat, r0 float64, pre *Precomputed) (geometry.Point2D, bool) {
	cx, cy := float64(roi.Cols())/2, float64(roi.Rows())/2
	seedVal := float64(getUChar(roi, int(cy), int(cx)))
	halfMax := seedVal / 2

	var edgePoints []geometry.Point2D
	for a := 0; a < pre.nAngles; a++ {
		ray := make([]float64, pre.nRadii)
		for ri := 0; ri < pre.nRadii; ri++ {
			x := cx + pre.polarDX[a][ri]
			y := cy + pre.polarDY[a][ri]
			ray[ri] = bilinearSample(roi, x, y)
		}
		grad := medianAbsDiff(ray)
		gradFloor := 0.8 * grad

		for ri := 1; ri < pre.nRadii; ri++ {
			if ray[ri-1] >= halfMax && ray[ri] < halfMax {
				localGrad := math.Abs(ray[ri-1] - ray[ri])
				if localGrad < gradFloor {
					continue
				}
				t := (halfMax - ray[ri-1]) / (ray[ri] - ray[ri-1])
				x := cx + pre.polarDX[a][ri-1] + t*(pre.polarDX[a][ri]-pre.polarDX[a][ri-1])
				y := cy + pre.polarDY[a][ri-1] + t*(pre.polarDY[a][ri]-pre.polarDY[a][ri-1])
				edgePoints = append(edgePoints, geometry.Point2D{X: x, Y: y})
				break
			}
		}
	}

	coverage := float64(len(edgePoints)) / float64(pre.nAngles)
	if coverage < 0.6 {
		return geometry.Point2D{}, false
	}

	fit, err := fitCircleTaubin(edgePoints)
	if err != nil || fit.RMS > 0.15*r0 {
		return geometry.Point2D{}, false
	}
	return fit.Center, true
}

// medianAbsDiff returns the median absolute step-to-step difference along
// a ray, used as the local gradient floor in the radial walk.
func medianAbsDiff(ray []float64) float64 {
	if len(ray) < 2 {
		return 0
	}
	diffs := make([]float64, len(ray)-1)
	for i := 1; i < len(ray); i++ {
		diffs[i-1] = math.Abs(ray[i] - ray[i-1])
	}
	sort.Float64s(diffs)
	return diffs[len(diffs)/2]
}

// bilinearSample samples a single-channel 8-bit Mat at fractional
// coordinates via bilinear interpolation, returning 0 outside bounds.
func bilinearSample(m gocv.Mat, x, y float64) float64 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x0 < 0 || y0 < 0 || x1 >= m.Cols() || y1 >= m.Rows() {
		return 0
	}
	fx, fy := x-float64(x0), y-float64(y0)
	v00 := float64(m.GetUCharAt(y0, x0))
	v10 := float64(m.GetUCharAt(y0, x1))
	v01 := float64(m.GetUCharAt(y1, x0))
	v11 := float64(m.GetUCharAt(y1, x1))
	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy
}

func getUChar(m gocv.Mat, y, x int) uint8 {
	if y < 0 || y >= m.Rows() || x < 0 || x >= m.Cols() {
		return 0
	}
	return m.GetUCharAt(y, x)
}
