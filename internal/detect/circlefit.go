package detect

import (
	"fmt"
	"math"

	"boresight/pkg/geometry"
)

// circleFit is the result of an algebraic circle fit: center and radius,
// plus the RMS residual used by the radial-fit rejection rule.
type circleFit struct {
	Center geometry.Point2D
	Radius float64
	RMS    float64
}

// fitCircleTaubin fits a circle to a set of edge points using Taubin's
// algebraic method: minimize the algebraic distance to
// x^2 + y^2 + D*x + E*y + F = 0 under a gradient-weighted normalization
// constraint, rather than Kasa's unweighted least squares, which biases
// the fitted radius toward small values on noisy or partial-arc data.
// The constraint reduces to a single scalar cubic in the Lagrange
// multiplier, solved below by a short Newton iteration.
func fitCircleTaubin(points []geometry.Point2D) (circleFit, error) {
	n := len(points)
	if n < 3 {
		return circleFit{}, fmt.Errorf("circle fit: need at least 3 points, got %d", n)
	}
	nf := float64(n)

	var xBar, yBar float64
	for _, p := range points {
		xBar += p.X
		yBar += p.Y
	}
	xBar /= nf
	yBar /= nf

	var mxx, myy, mxy, mxz, myz, mzz float64
	for _, p := range points {
		x, y := p.X-xBar, p.Y-yBar
		z := x*x + y*y
		mxx += x * x
		myy += y * y
		mxy += x * y
		mxz += x * z
		myz += y * z
		mzz += z * z
	}
	mxx /= nf
	myy /= nf
	mxy /= nf
	mxz /= nf
	myz /= nf
	mzz /= nf

	mz := mxx + myy
	covXY := mxx*myy - mxy*mxy
	varZ := mzz - mz*mz

	a3 := 4 * mz
	a2 := -3*mz*mz - mzz
	a1 := varZ*mz + 4*covXY*mz - mxz*mxz - myz*myz
	a0 := mxz*(mxz*myy-myz*mxy) + myz*(myz*mxx-mxz*mxy) - varZ*covXY
	a22 := a2 + a2
	a33 := a3 + a3 + a3

	// Newton's method on f(x) = a0 + a1*x + a2*x^2 + a3*x^3, starting at
	// x=0, following the standard Taubin-fit reduction: the root is the
	// Lagrange multiplier of the normalization constraint.
	const maxIter = 20
	const epsilon = 1e-12
	x := 0.0
	fVal := 1e20
	for iter := 0; iter < maxIter; iter++ {
		fOld := fVal
		fVal = a0 + x*(a1+x*(a2+x*a3))
		if math.Abs(fVal) > math.Abs(fOld) {
			x = 0
			break
		}
		derivative := a1 + x*(a22+x*a33)
		if derivative == 0 {
			break
		}
		xOld := x
		x = xOld - fVal/derivative
		if x != 0 && math.Abs((x-xOld)/x) < epsilon {
			break
		}
	}

	det := x*x - x*mz + covXY
	if det == 0 || math.IsNaN(det) {
		return circleFit{}, fmt.Errorf("circle fit: degenerate constraint determinant")
	}

	centerX := (mxz*(myy-x) - myz*mxy) / det / 2
	centerY := (myz*(mxx-x) - mxz*mxy) / det / 2

	radiusSq := centerX*centerX + centerY*centerY + mz
	if radiusSq <= 0 || math.IsNaN(radiusSq) {
		return circleFit{}, fmt.Errorf("circle fit: degenerate radius")
	}
	radius := math.Sqrt(radiusSq)

	var ss float64
	for _, p := range points {
		dx := (p.X - xBar) - centerX
		dy := (p.Y - yBar) - centerY
		r := math.Sqrt(dx*dx + dy*dy)
		res := r - radius
		ss += res * res
	}
	rms := math.Sqrt(ss / nf)

	return circleFit{
		Center: geometry.Point2D{X: centerX + xBar, Y: centerY + yBar},
		Radius: radius,
		RMS:    rms,
	}, nil
}
