package detect

import (
	"sort"

	"boresight/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// orderCenters assigns canonical grid order to an unordered set of
// refined centers: PCA axis estimation, orientation disambiguation,
// projection, column/row partition, and a column-leak check. centers
// must contain exactly cfg.PointCount() entries. The returned tags are
// each input center's RefineTag carried into the same canonical slot as
// its point, so callers can report per-slot provenance in output order.
func orderCenters(centers []RefinedCenter, cfg Config) (OrderedCenters, []RefineTag, error) {
	n := cfg.PointCount()
	if len(centers) != n {
		return nil, nil, wrapErr("ordering", ErrTooFewCandidates, nil)
	}

	pts := make([]geometry.Point2D, n)
	for i, c := range centers {
		pts[i] = c.Center
	}

	major, minor, ratio, err := principalAxes(pts)
	if err != nil {
		return nil, nil, wrapErr("ordering", ErrInternalNumeric, err)
	}
	if ratio > 0.5 {
		return nil, nil, wrapErr("ordering", ErrOrderingAmbiguous, nil)
	}

	type projected struct {
		p    geometry.Point2D
		tag  RefineTag
		xPrj float64
		yPrj float64
	}
	proj := make([]projected, n)
	for i, c := range centers {
		proj[i] = projected{
			p:    c.Center,
			tag:  c.Tag,
			xPrj: c.Center.X*major.X + c.Center.Y*major.Y,
			yPrj: c.Center.X*minor.X + c.Center.Y*minor.Y,
		}
	}

	sort.Slice(proj, func(i, j int) bool { return proj[i].xPrj > proj[j].xPrj })

	cols := cfg.GridCols
	rows := cfg.GridRows
	if cols == 0 || rows == 0 {
		return nil, nil, wrapErr("ordering", ErrInputShape, nil)
	}

	colMeans := make([]float64, cols)
	out := make(OrderedCenters, n)
	tags := make([]RefineTag, n)
	for col := 0; col < cols; col++ {
		group := proj[col*rows : (col+1)*rows]
		sort.Slice(group, func(i, j int) bool { return group[i].yPrj < group[j].yPrj })

		var sumX float64
		minX, maxX := group[0].xPrj, group[0].xPrj
		for _, g := range group {
			sumX += g.xPrj
			if g.xPrj < minX {
				minX = g.xPrj
			}
			if g.xPrj > maxX {
				maxX = g.xPrj
			}
		}
		colMeans[col] = sumX / float64(len(group))
		spread := maxX - minX

		for row, g := range group {
			out[rows*col+row] = g.p
			tags[rows*col+row] = g.tag
		}

		if col > 0 {
			spacing := colMeans[col-1] - colMeans[col]
			if spacing > 0 && spread > 0.4*spacing {
				return nil, nil, wrapErr("ordering", ErrColumnLeak, nil)
			}
		}
	}

	return out, tags, nil
}

// principalAxes computes the PCA major/minor unit axes of a point cloud
// and the minor/major eigenvalue ratio, via gonum's symmetric
// eigendecomposition of the 2x2 covariance matrix.
func principalAxes(pts []geometry.Point2D) (major, minor geometry.Point2D, ratio float64, err error) {
	n := float64(len(pts))
	var mx, my float64
	for _, p := range pts {
		mx += p.X
		my += p.Y
	}
	mx /= n
	my /= n

	var cxx, cxy, cyy float64
	for _, p := range pts {
		dx, dy := p.X-mx, p.Y-my
		cxx += dx * dx
		cxy += dx * dy
		cyy += dy * dy
	}
	cxx /= n
	cxy /= n
	cyy /= n

	cov := mat.NewSymDense(2, []float64{cxx, cxy, cxy, cyy})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return geometry.Point2D{}, geometry.Point2D{}, 0, errEigenFailed
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// gonum returns eigenvalues in ascending order: index 1 is major,
	// index 0 is minor.
	majorVal, minorVal := values[1], values[0]
	majorVec := geometry.Point2D{X: vectors.At(0, 1), Y: vectors.At(1, 1)}
	minorVec := geometry.Point2D{X: vectors.At(0, 0), Y: vectors.At(1, 0)}

	if majorVec.X < 0 {
		majorVec = geometry.Point2D{X: -majorVec.X, Y: -majorVec.Y}
	}
	if minorVec.Y < 0 {
		minorVec = geometry.Point2D{X: -minorVec.X, Y: -minorVec.Y}
	}

	if majorVal <= 0 {
		return geometry.Point2D{}, geometry.Point2D{}, 0, errEigenFailed
	}

	return majorVec, minorVec, minorVal / majorVal, nil
}

var errEigenFailed = sentinelErr("ordering: eigendecomposition failed")

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }
