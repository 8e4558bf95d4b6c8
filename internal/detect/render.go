package detect

import (
	"fmt"
	"image"

	"boresight/pkg/colorutil"

	"gocv.io/x/gocv"
)

// DebugRender draws a diagnostic overlay over the original frame: raw
// seeds in orange, ordered centers in green, grid index labels in blue.
// It returns the rendered image as a gocv.Mat; callers write it out via
// gocv.IMWrite.
func DebugRender(frame Frame, seeds []Seed, ordered OrderedCenters) gocv.Mat {
	base := frameToMat(frame)
	defer base.Close()

	overlay := gocv.NewMat()
	gocv.CvtColor(base, &overlay, gocv.ColorGrayToBGR)

	for _, s := range seeds {
		center := image.Point{X: int(s.Center.X), Y: int(s.Center.Y)}
		gocv.Circle(&overlay, center, int(s.Radius), colorutil.Orange, 2)
	}

	for i, c := range ordered {
		center := image.Point{X: int(c.X), Y: int(c.Y)}
		gocv.Circle(&overlay, center, 4, colorutil.Green, -1)
		gocv.PutText(&overlay, fmt.Sprintf("%d", i), image.Point{X: center.X + 6, Y: center.Y - 6},
			gocv.FontHersheyPlain, 1.2, colorutil.Blue, 1)
	}

	return overlay
}
