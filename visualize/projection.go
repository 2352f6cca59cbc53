// Package visualize draws simulation frames as images, terminal views, plots and sounds. Nothing
// here touches a live simulation; everything works on frames and durations handed over by the
// caller.
package visualize

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/crowdsim/simulation"
	"go.viam.com/crowdsim/spatialmath"
)

// viewMargin is the fraction of the view added around the content on every side.
const viewMargin = 0.05

// projection maps the XY plane of the world onto a width by height grid with y pointing up.
type projection struct {
	min    r3.Vector
	scale  float64
	offX   float64
	offY   float64
	height float64
}

// bounds returns the region of the world worth showing for a frame: the arena when it is bounded
// on x and y, otherwise everything in the frame.
func bounds(frame simulation.Frame) spatialmath.AABB {
	if frame.Arena.Half.X > 0 && frame.Arena.Half.Y > 0 {
		view := spatialmath.AABB{
			Min: r3.Vector{X: -frame.Arena.Half.X, Y: -frame.Arena.Half.Y},
			Max: r3.Vector{X: frame.Arena.Half.X, Y: frame.Arena.Half.Y},
		}
		for _, o := range frame.Objects {
			view = view.Union(o.Box)
		}
		return view
	}
	if len(frame.Objects) == 0 {
		return spatialmath.AABB{Min: r3.Vector{X: -1, Y: -1}, Max: r3.Vector{X: 1, Y: 1}}
	}
	view := frame.Objects[0].Box
	for _, o := range frame.Objects[1:] {
		view = view.Union(o.Box)
	}
	return view
}

// newProjection fits view into width by height cells. aspect is the height of a cell divided by
// its width, 1 for pixels and about 2 for terminal cells.
func newProjection(view spatialmath.AABB, width, height int, aspect float64) projection {
	size := view.Size()
	pad := math.Max(size.X, size.Y) * viewMargin
	view = view.Expand(pad)
	size = view.Size()
	if size.X <= 0 {
		size.X = 1
	}
	if size.Y <= 0 {
		size.Y = 1
	}
	scale := math.Min(float64(width)/size.X, float64(height)*aspect/size.Y)
	return projection{
		min:    view.Min,
		scale:  scale,
		offX:   (float64(width) - size.X*scale) / 2,
		offY:   (float64(height) - size.Y*scale/aspect) / 2,
		height: float64(height),
	}
}

// point maps a world position to grid coordinates. aspect must match newProjection.
func (p projection) point(v r3.Vector, aspect float64) (float64, float64) {
	x := p.offX + (v.X-p.min.X)*p.scale
	y := p.height - p.offY - (v.Y-p.min.Y)*p.scale/aspect
	return x, y
}

// rect maps the XY footprint of a box to grid coordinates, top left first.
func (p projection) rect(box spatialmath.AABB, aspect float64) (x0, y0, x1, y1 float64) {
	x0, y1 = p.point(box.Min, aspect)
	x1, y0 = p.point(box.Max, aspect)
	return x0, y0, x1, y1
}
