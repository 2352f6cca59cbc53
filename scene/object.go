// Package scene holds the moving objects a tree is built over: their motion state, their boxes,
// the arena that bounds them, and the layout that places them.
package scene

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/crowdsim/spatialmath"
)

// Object is one simulated body.
type Object struct {
	ID               int
	Shape            string
	Position         r3.Vector
	PreviousPosition r3.Vector
	Velocity         r3.Vector
	Extent           Extent
	Box              spatialmath.AABB
}

// RefreshBox recomputes Box from Position and Extent.
func (o *Object) RefreshBox() {
	o.Box.Update(o.Position.Add(o.Extent.Offset), o.Extent.Half)
}

// SweptBox returns the union of the box at the previous position and the box at the current one.
func (o *Object) SweptBox() spatialmath.AABB {
	return o.Extent.Box(o.PreviousPosition).Union(o.Extent.Box(o.Position))
}

// Step reverts one tick of motion along axis and reflects the velocity on it.
func (o *Object) Step(axis int, dt float64) {
	switch axis {
	case 0:
		o.Position.X -= o.Velocity.X * dt
		o.Velocity.X = -o.Velocity.X
	case 1:
		o.Position.Y -= o.Velocity.Y * dt
		o.Velocity.Y = -o.Velocity.Y
	default:
		o.Position.Z -= o.Velocity.Z * dt
		o.Velocity.Z = -o.Velocity.Z
	}
}

func (o Object) String() string {
	return fmt.Sprintf("object %d (%s) at (%.2f, %.2f, %.2f) moving (%.2f, %.2f, %.2f)",
		o.ID, o.Shape, o.Position.X, o.Position.Y, o.Position.Z, o.Velocity.X, o.Velocity.Y, o.Velocity.Z)
}
