package detect

import (
	"errors"
	"math"
	"testing"

	"boresight/pkg/geometry"
)

// syntheticGrid builds a perfectly regular, axis-aligned 4x10 grid of
// RefinedCenters with the given column/row pitch, used across the
// ordering property tests.
func syntheticGrid(originX, originY, colPitch, rowPitch float64) []RefinedCenter {
	var out []RefinedCenter
	for col := 0; col < 10; col++ {
		for row := 0; row < 4; row++ {
			out = append(out, RefinedCenter{
				Center: geometry.Point2D{
					X: originX + float64(col)*colPitch,
					Y: originY + float64(row)*rowPitch,
				},
				Tag: TagDtFast,
			})
		}
	}
	return out
}

func shuffledCopy(in []RefinedCenter) []RefinedCenter {
	out := make([]RefinedCenter, len(in))
	copy(out, in)
	// Deterministic permutation: a plain reversal, avoiding any
	// dependency on math/rand so the test stays reproducible without a
	// seed.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestOrderCentersCanonicalOrder(t *testing.T) {
	cfg := DefaultConfig()
	grid := syntheticGrid(1000, 500, 90, 90)
	shuffled := shuffledCopy(grid)

	ordered, tags, err := orderCenters(shuffled, cfg)
	if err != nil {
		t.Fatalf("orderCenters returned error: %v", err)
	}
	if len(ordered) != 40 {
		t.Fatalf("got %d centers, want 40", len(ordered))
	}
	if len(tags) != 40 {
		t.Fatalf("got %d tags, want 40", len(tags))
	}

	// Column 0 should be the rightmost (largest X) column, since
	// e_major's positive-x convention sorts by decreasing projection.
	col0X := ordered[0].X
	col9X := ordered[36].X
	if col0X < col9X {
		t.Errorf("column 0 X (%v) should be >= column 9 X (%v)", col0X, col9X)
	}

	// Within column 0, rows should be sorted by increasing Y.
	for row := 0; row < 3; row++ {
		if ordered[row].Y > ordered[row+1].Y {
			t.Errorf("row %d Y (%v) should be <= row %d Y (%v)", row, ordered[row].Y, row+1, ordered[row+1].Y)
		}
	}
}

func TestOrderCentersDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	grid := syntheticGrid(1000, 500, 90, 90)

	first, _, err := orderCenters(shuffledCopy(grid), cfg)
	if err != nil {
		t.Fatalf("orderCenters returned error: %v", err)
	}
	second, _, err := orderCenters(shuffledCopy(grid), cfg)
	if err != nil {
		t.Fatalf("orderCenters returned error: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("index %d: %v != %v, ordering should be deterministic given the same point set", i, first[i], second[i])
		}
	}
}

func TestOrderCentersWrongCount(t *testing.T) {
	cfg := DefaultConfig()
	grid := syntheticGrid(1000, 500, 90, 90)[:39]

	_, _, err := orderCenters(grid, cfg)
	if err == nil {
		t.Fatal("expected an error for a 39-center input")
	}
}

func TestOrderCentersAmbiguousSquareGrid(t *testing.T) {
	cfg := DefaultConfig()
	// An 8x5 grid of 40 points at a 90px column pitch and a 120px row
	// pitch has comparable extents along both axes (unlike the real 10x4
	// target grid): the minor/major eigenvalue ratio is
	// (120^2*24/12)/(90^2*63/12) ~= 0.68, past the 0.5 ambiguity threshold.
	var square []RefinedCenter
	for col := 0; col < 8; col++ {
		for row := 0; row < 5; row++ {
			square = append(square, RefinedCenter{
				Center: geometry.Point2D{X: float64(col) * 90, Y: float64(row) * 120},
				Tag:    TagDtFast,
			})
		}
	}

	_, _, err := orderCenters(square, cfg)
	if !errors.Is(err, ErrOrderingAmbiguous) {
		t.Fatal("expected an ordering-ambiguous error for a near-square point cloud")
	}
}

func TestOrderCentersColumnLeak(t *testing.T) {
	cfg := DefaultConfig()
	grid := syntheticGrid(1000, 500, 90, 90)
	// Drag one point far sideways into the neighboring column's band.
	grid[0].Center.X += 50

	_, _, err := orderCenters(grid, cfg)
	if err == nil {
		t.Fatal("expected a column-leak error when a point's X spread invades the next column's spacing")
	}
}

func TestOrderCentersTagsFollowTheirPoint(t *testing.T) {
	cfg := DefaultConfig()
	grid := syntheticGrid(1000, 500, 90, 90)
	// Give each point a distinguishing tag so a mis-tracked permutation
	// would surface as a tag landing next to the wrong point.
	for i := range grid {
		if i%2 == 0 {
			grid[i].Tag = TagDtFast
		} else {
			grid[i].Tag = TagRadialFit
		}
	}
	shuffled := shuffledCopy(grid)

	ordered, tags, err := orderCenters(shuffled, cfg)
	if err != nil {
		t.Fatalf("orderCenters returned error: %v", err)
	}

	want := make(map[geometry.Point2D]RefineTag, len(grid))
	for _, rc := range grid {
		want[rc.Center] = rc.Tag
	}

	for i, p := range ordered {
		if tags[i] != want[p] {
			t.Errorf("index %d: point %v carries tag %v, want %v", i, p, tags[i], want[p])
		}
	}
}

func TestPrincipalAxesOrientation(t *testing.T) {
	pts := make([]geometry.Point2D, 0, 40)
	for _, rc := range syntheticGrid(0, 0, 90, 90) {
		pts = append(pts, rc.Center)
	}
	major, minor, ratio, err := principalAxes(pts)
	if err != nil {
		t.Fatalf("principalAxes returned error: %v", err)
	}
	if major.X <= 0 {
		t.Errorf("major axis X-component should be positive, got %v", major.X)
	}
	if minor.Y <= 0 {
		t.Errorf("minor axis Y-component should be positive, got %v", minor.Y)
	}
	if math.Abs(major.X*major.X+major.Y*major.Y-1) > 1e-9 {
		t.Errorf("major axis should be a unit vector, got length^2 = %v", major.X*major.X+major.Y*major.Y)
	}
	if ratio >= 1 {
		t.Errorf("minor/major eigenvalue ratio should be < 1 for a non-circular cloud, got %v", ratio)
	}
}
