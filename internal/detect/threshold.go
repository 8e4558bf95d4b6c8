package detect

import (
	"gocv.io/x/gocv"
)

// histogram256 computes a 256-bin grayscale histogram by direct pixel
// iteration over a Mat's backing bytes, rather than a CalcHist call.
func histogram256(m gocv.Mat) [256]int {
	var hist [256]int
	rows, cols := m.Rows(), m.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			hist[m.GetUCharAt(y, x)]++
		}
	}
	return hist
}

// triangleThreshold implements the triangle-method histogram split: the
// threshold maximizing perpendicular distance from the histogram curve to
// the line joining its peak and its bright tail (the highest non-empty bin).
func triangleThreshold(hist [256]int) int {
	peak := 0
	peakCount := hist[0]
	for i, c := range hist {
		if c > peakCount {
			peak = i
			peakCount = c
		}
	}

	// Take the highest non-empty bin as the tail; the triangle is drawn
	// between the peak and that tail.
	tail := peak
	for i := 255; i >= 0; i-- {
		if hist[i] > 0 {
			tail = i
			break
		}
	}
	if tail == peak {
		return peak
	}

	lo, hi := peak, tail
	sign := 1.0
	if lo > hi {
		lo, hi = hi, lo
		sign = -1.0
	}

	// Line from (lo, hist[lo]) to (hi, hist[hi]); distance of each
	// intermediate bin to that line, maximized.
	x1, y1 := float64(lo), float64(hist[lo])
	x2, y2 := float64(hi), float64(hist[hi])
	dx, dy := x2-x1, y2-y1
	norm := dx*dx + dy*dy
	if norm == 0 {
		return peak
	}

	best := lo
	bestDist := -1.0
	for i := lo; i <= hi; i++ {
		x0, y0 := float64(i), float64(hist[i])
		dist := sign * (dx*(y1-y0) - (x1-x0)*dy)
		if dist < 0 {
			dist = -dist
		}
		if dist > bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}

// thresholdPair holds the retry thresholds derived from the cached
// triangle base: t_hi is a tight bright core, t_lo a looser fallback
// used only when t_hi starves the candidate count.
type thresholdPair struct {
	hi, lo float32
}

func deriveThresholds(base int) thresholdPair {
	hi := float64(base) + 25
	lo := hi - 60
	if lo < 10 {
		lo = 10
	}
	return thresholdPair{hi: float32(hi), lo: float32(lo)}
}

// binarize thresholds the flattened frame at t, producing a mask where
// foreground (candidate circle interiors) is 255.
func binarize(flattened gocv.Mat, t float32) gocv.Mat {
	mask := gocv.NewMatWithSize(flattened.Rows(), flattened.Cols(), gocv.MatTypeCV8UC1)
	gocv.Threshold(flattened, &mask, t, 255, gocv.ThresholdBinary)
	return mask
}
