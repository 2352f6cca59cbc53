package visualize

import (
	"image/color"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	backgroundColor = color.RGBA{R: 24, G: 26, B: 31, A: 255}
	arenaColor      = color.RGBA{R: 90, G: 94, B: 104, A: 255}
	objectColor     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	contactColor    = color.RGBA{R: 235, G: 64, B: 52, A: 255}
	textColor       = color.RGBA{R: 240, G: 240, B: 240, A: 255}
)

// LayerColor returns the color of tree depth out of height levels. Hues run from red at the root
// to violet at the deepest leaves.
func LayerColor(depth, height int) colorful.Color {
	if height < 2 {
		return colorful.Hsv(0, 0.75, 0.95)
	}
	hue := 280 * float64(depth) / float64(height-1)
	return colorful.Hsv(hue, 0.75, 0.95)
}

func tcellColor(c color.Color) tcell.Color {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return tcell.ColorDefault
	}
	r, g, b := cc.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
