package scene

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/utils"
)

// GridLayout places objects row by row on a square-ish grid in the z=0 plane and gives each one a
// random velocity drawn per axis from [VelocityMin, VelocityMax).
type GridLayout struct {
	Count       int
	Spacing     float64
	Shape       string
	VelocityMin r3.Vector
	VelocityMax r3.Vector
	Seed        int64
}

// DefaultGridLayout returns a layout of count objects ten units apart, moving mostly along +x.
func DefaultGridLayout(count int) GridLayout {
	return GridLayout{
		Count:       count,
		Spacing:     10,
		Shape:       DefaultShape,
		VelocityMin: r3.Vector{X: 5.5, Y: -5.5},
		VelocityMax: r3.Vector{X: 10, Y: 5.5},
		Seed:        1,
	}
}

// Position returns the grid position of object i. The grid has floor(sqrt(Count)) columns and its
// first cell sits one spacing below the origin on x and y.
func (g GridLayout) Position(i int) r3.Vector {
	cols := int(math.Sqrt(float64(g.Count)))
	if cols < 1 {
		cols = 1
	}
	return r3.Vector{
		X: float64(i%cols-1) * g.Spacing,
		Y: float64(i/cols-1) * g.Spacing,
	}
}

// Place builds the objects of the layout with their boxes resolved through cache.
func (g GridLayout) Place(cache *ExtentCache) (*Set, error) {
	if g.Count < 0 {
		return nil, errors.Errorf("object count must be non-negative, got %d", g.Count)
	}
	ext, err := cache.Get(g.Shape)
	if err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(g.Seed)) //nolint:gosec
	objects := make([]Object, g.Count)
	for i := range objects {
		pos := g.Position(i)
		objects[i] = Object{
			Shape:            g.Shape,
			Position:         pos,
			PreviousPosition: pos,
			Velocity: r3.Vector{
				X: utils.SampleRandomFloatRange(g.VelocityMin.X, g.VelocityMax.X, rnd),
				Y: utils.SampleRandomFloatRange(g.VelocityMin.Y, g.VelocityMax.Y, rnd),
				Z: utils.SampleRandomFloatRange(g.VelocityMin.Z, g.VelocityMax.Z, rnd),
			},
			Extent: ext,
		}
		objects[i].RefreshBox()
	}
	return NewSet(objects), nil
}
