// Package colorutil provides shared overlay colors for debug rendering.
package colorutil

import "image/color"

// Overlay colors used by internal/detect's debug renderer: raw seeds in
// orange, ordered centers in green, index labels in blue.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Orange = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 40, G: 90, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)
