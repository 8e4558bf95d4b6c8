package detect

import (
	"math"
	"sort"

	"boresight/pkg/geometry"

	"gocv.io/x/gocv"
)

// dtPeak is a candidate distance-transform peak prior to NMS.
type dtPeak struct {
	x, y int
	val  float32
}

// estimateMultiplicity computes k_est, the expected number of circles
// merged into a split-candidate component, clamped to [2, 25].
func estimateMultiplicity(area int, cfg Config) int {
	nominalArea := math.Pi * cfg.NominalRadius() * cfg.NominalRadius()
	kEst := int(float64(area)/nominalArea + 0.5)
	if kEst < 2 {
		kEst = 2
	}
	if kEst > 25 {
		kEst = 25
	}
	return kEst
}

// splitComponent runs a distance-transform peak-picking procedure on a
// single split-candidate component, returning one Seed per surviving
// peak: DistanceTransform followed by a non-maximum-suppression pass
// over a cropped component mask.
func splitComponent(mask gocv.Mat, comp Component, cfg Config) []Seed {
	kEst := estimateMultiplicity(comp.Area, cfg)

	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(mask, &dist, &labels, gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	rows, cols := dist.Rows(), dist.Cols()

	// Zero a 1px border to suppress boundary artifacts.
	for x := 0; x < cols; x++ {
		dist.SetFloatAt(0, x, 0)
		dist.SetFloatAt(rows-1, x, 0)
	}
	for y := 0; y < rows; y++ {
		dist.SetFloatAt(y, 0, 0)
		dist.SetFloatAt(y, cols-1, 0)
	}

	nmsRadius := int(0.4 * cfg.NominalDiameter())
	if nmsRadius < 1 {
		nmsRadius = 1
	}

	var candidates []dtPeak
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := dist.GetFloatAt(y, x)
			if v <= 0 {
				continue
			}
			if isLocalMax(dist, x, y, nmsRadius, v) {
				candidates = append(candidates, dtPeak{x: x, y: y, val: v})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].val != candidates[j].val {
			return candidates[i].val > candidates[j].val
		}
		if candidates[i].y != candidates[j].y {
			return candidates[i].y < candidates[j].y
		}
		return candidates[i].x < candidates[j].x
	})

	minSep := 0.6 * cfg.NominalDiameter()
	var accepted []dtPeak
	for _, c := range candidates {
		if len(accepted) >= kEst {
			break
		}
		tooClose := false
		for _, a := range accepted {
			dx := float64(c.x - a.x)
			dy := float64(c.y - a.y)
			if dx*dx+dy*dy < minSep*minSep {
				tooClose = true
				break
			}
		}
		if !tooClose {
			accepted = append(accepted, c)
		}
	}

	seeds := make([]Seed, 0, len(accepted))
	for _, a := range accepted {
		seeds = append(seeds, Seed{
			Center: geometry.Point2D{
				X: float64(comp.BBoxX + a.x),
				Y: float64(comp.BBoxY + a.y),
			},
			Radius: cfg.NominalRadius(),
		})
	}
	return seeds
}

// isLocalMax reports whether the distance value at (x, y) is the strict
// maximum within a (2*radius+1) square neighborhood.
func isLocalMax(dist gocv.Mat, x, y, radius int, v float32) bool {
	rows, cols := dist.Rows(), dist.Cols()
	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= rows {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := x + dx
			if nx < 0 || nx >= cols {
				continue
			}
			if dist.GetFloatAt(ny, nx) >= v {
				return false
			}
		}
	}
	return true
}
