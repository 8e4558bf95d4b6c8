package detect

import (
	"image"
	"math"

	"boresight/pkg/geometry"

	"gocv.io/x/gocv"
)

// componentGate bounds the area/aspect/fill-ratio acceptance gate used to
// separate plausible circle blobs from noise and merged clusters.
type componentGate struct {
	areaMin, areaMax     int
	aspectMin, aspectMax float64
	fillMin, fillMax     float64
	splitAreaThreshold   float64
}

func newComponentGate(cfg Config) componentGate {
	nominalArea := math.Pi * cfg.NominalRadius() * cfg.NominalRadius()
	return componentGate{
		areaMin:            1600,
		areaMax:             14000,
		aspectMin:           0.6,
		aspectMax:           1.7,
		fillMin:             0.45,
		fillMax:             0.95,
		splitAreaThreshold:  1.4 * nominalArea,
	}
}

// labelComponents performs 4-connected labeling directly over the binary
// mask's pixel buffer via a two-pass union-find scan. gocv's
// ConnectedComponentsWithStats exposes no connectivity parameter and
// defaults to 8-connectivity, which would let diagonally-touching
// circles merge into one blob; a manual 4-connected scan is used
// instead, walking the pixel buffer directly.
func labelComponents(mask gocv.Mat, gate componentGate) []Component {
	rows, cols := mask.Rows(), mask.Cols()
	labels := make([]int, rows*cols)
	parent := []int{0} // union-find; label 0 means "background/unassigned"

	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	at := func(y, x int) bool { return mask.GetUCharAt(y, x) != 0 }
	idx := func(y, x int) int { return y*cols + x }

	// First pass: assign provisional labels, union with left/up
	// neighbors (4-connectivity).
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if !at(y, x) {
				continue
			}
			var neighbors []int
			if x > 0 && labels[idx(y, x-1)] != 0 {
				neighbors = append(neighbors, labels[idx(y, x-1)])
			}
			if y > 0 && labels[idx(y-1, x)] != 0 {
				neighbors = append(neighbors, labels[idx(y-1, x)])
			}
			if len(neighbors) == 0 {
				parent = append(parent, len(parent))
				labels[idx(y, x)] = len(parent) - 1
			} else {
				first := neighbors[0]
				labels[idx(y, x)] = first
				for _, n := range neighbors[1:] {
					union(first, n)
				}
			}
		}
	}

	// Second pass: resolve to root labels and accumulate per-component
	// stats.
	type accum struct {
		area                   int
		minX, minY, maxX, maxY int
		sumX, sumY             int
	}
	stats := make(map[int]*accum)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			l := labels[idx(y, x)]
			if l == 0 {
				continue
			}
			root := find(l)
			a, ok := stats[root]
			if !ok {
				a = &accum{minX: x, minY: y, maxX: x, maxY: y}
				stats[root] = a
			}
			a.area++
			a.sumX += x
			a.sumY += y
			if x < a.minX {
				a.minX = x
			}
			if x > a.maxX {
				a.maxX = x
			}
			if y < a.minY {
				a.minY = y
			}
			if y > a.maxY {
				a.maxY = y
			}
		}
	}

	var out []Component
	label := 0
	for _, a := range stats {
		bbw := a.maxX - a.minX + 1
		bbh := a.maxY - a.minY + 1
		if !gate.accept(a.area, bbw, bbh) {
			continue
		}
		label++
		out = append(out, Component{
			Label: label,
			BBoxX: a.minX, BBoxY: a.minY,
			BBoxW: bbw, BBoxH: bbh,
			Area: a.area,
			Centroid: geometry.Point2D{
				X: float64(a.sumX) / float64(a.area),
				Y: float64(a.sumY) / float64(a.area),
			},
			SplitCandidate: float64(a.area) > gate.splitAreaThreshold,
		})
	}
	return out
}

// accept applies the area/aspect/fill-ratio gate.
func (g componentGate) accept(area, bbw, bbh int) bool {
	if area < g.areaMin || area > g.areaMax {
		return false
	}
	aspect := float64(bbw) / float64(bbh)
	if aspect < g.aspectMin || aspect > g.aspectMax {
		return false
	}
	fill := float64(area) / float64(bbw*bbh)
	if fill < g.fillMin || fill > g.fillMax {
		return false
	}
	return true
}

// componentMask extracts a tight binary mask for a single component's
// bounding box, used as input to ROI splitting.
func componentMask(full gocv.Mat, c Component) gocv.Mat {
	rect := image.Rect(c.BBoxX, c.BBoxY, c.BBoxX+c.BBoxW, c.BBoxY+c.BBoxH)
	region := full.Region(rect)
	defer region.Close()
	return region.Clone()
}
