package visualize

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/image/font/gofont/goregular"

	"go.viam.com/crowdsim/simulation"
)

// AllLayers draws every layer of the tree.
const AllLayers = -1

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// RenderOptions controls Render.
type RenderOptions struct {
	Width  int
	Height int
	// Layer is the tree depth to draw, AllLayers for every depth. Layers past the height of the
	// tree draw nothing.
	Layer int
	// Tree and Boxes toggle the node outlines and the object boxes.
	Tree  bool
	Boxes bool
	// Labels writes each object's index next to it.
	Labels bool
	// Contacts are object indices drawn in the contact color.
	Contacts []int
}

// DefaultRenderOptions draws every layer and every box on an 800 pixel square.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:  800,
		Height: 800,
		Layer:  AllLayers,
		Tree:   true,
		Boxes:  true,
	}
}

// Render draws a top-down view of frame: the arena walls, each object's box footprint, and the
// tree nodes colored by depth.
func Render(frame simulation.Frame, opts RenderOptions) (image.Image, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("image size must be positive, got %dx%d", opts.Width, opts.Height)
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	proj := newProjection(bounds(frame), opts.Width, opts.Height, 1)
	if frame.Arena.Half.X > 0 && frame.Arena.Half.Y > 0 {
		x0, y0 := proj.point(frame.Arena.Half.Mul(-1), 1)
		x1, y1 := proj.point(frame.Arena.Half, 1)
		drawRectangleEmpty(dc, x0, y1, x1, y0, arenaColor, 2)
	}

	if opts.Tree {
		for i, n := range frame.Nodes {
			depth := frame.Depth[i]
			if opts.Layer != AllLayers && depth != opts.Layer {
				continue
			}
			x0, y0, x1, y1 := proj.rect(n.Box, 1)
			drawRectangleEmpty(dc, x0, y0, x1, y1, LayerColor(depth, frame.Height), 1)
		}
	}

	contacts := make(map[int]bool, len(opts.Contacts))
	for _, id := range opts.Contacts {
		contacts[id] = true
	}
	for _, o := range frame.Objects {
		c := color.Color(objectColor)
		if contacts[o.ID] {
			c = contactColor
		}
		if opts.Boxes {
			x0, y0, x1, y1 := proj.rect(o.Box, 1)
			dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
			dc.SetColor(withAlpha(c, 64))
			dc.FillPreserve()
			dc.SetColor(c)
			dc.SetLineWidth(1)
			dc.Stroke()
		}
		x, y := proj.point(o.Position, 1)
		dc.DrawCircle(x, y, 2)
		dc.SetColor(c)
		dc.Fill()
		if opts.Labels {
			drawString(dc, fmt.Sprint(o.ID), x+3, y-3, textColor, 10)
		}
	}

	drawString(dc, fmt.Sprintf("tick %d  objects %d  nodes %d  height %d",
		frame.Tick, len(frame.Objects), len(frame.Nodes), frame.Height), 8, 8, textColor, 14)
	return dc.Image(), nil
}

// Save writes img to path in the format named by its extension. PNG, JPEG, GIF, TIFF and BMP go
// through imaging; .ppm writes a binary portable pixmap.
func Save(img image.Image, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".ppm") {
		//nolint:gosec
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := ppm.Encode(f, img); err != nil {
			return multierr.Combine(errors.Wrapf(err, "cannot encode %q", path), f.Close())
		}
		return f.Close()
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot save %q", path)
	}
	return nil
}

// Thumbnail scales img down to width pixels, keeping its aspect ratio.
func Thumbnail(img image.Image, width int) image.Image {
	if width <= 0 || width >= img.Bounds().Dx() {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

func drawString(dc *gg.Context, text string, x, y float64, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringAnchored(text, x, y, 0, 1)
}

func drawRectangleEmpty(dc *gg.Context, x0, y0, x1, y1 float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
	dc.Stroke()
}

func withAlpha(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
