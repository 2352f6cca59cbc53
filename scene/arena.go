package scene

import (
	"github.com/golang/geo/r3"

	"go.viam.com/crowdsim/utils"
)

// Arena is an axis-aligned set of walls centered on the origin. Half is the distance from the
// origin to the walls on each axis; an axis with Half 0 has no walls.
type Arena struct {
	Half r3.Vector
}

// DefaultArena returns walls at +-100 on x and y with z unbounded.
func DefaultArena() Arena {
	return Arena{Half: r3.Vector{X: 100, Y: 100}}
}

// Clamp moves pos back onto any wall it has crossed and reflects the matching velocity component.
func (a Arena) Clamp(pos, vel r3.Vector) (r3.Vector, r3.Vector) {
	for axis := 0; axis < 3; axis++ {
		half := utils.Axis(a.Half, axis)
		if half <= 0 {
			continue
		}
		p := utils.Axis(pos, axis)
		if p >= -half && p <= half {
			continue
		}
		if p < -half {
			pos = utils.SetAxis(pos, axis, -half)
		} else {
			pos = utils.SetAxis(pos, axis, half)
		}
		vel = utils.SetAxis(vel, axis, -utils.Axis(vel, axis))
	}
	return pos, vel
}

// Contains reports whether pos is within the walls.
func (a Arena) Contains(pos r3.Vector) bool {
	for axis := 0; axis < 3; axis++ {
		half := utils.Axis(a.Half, axis)
		if half > 0 && (utils.Axis(pos, axis) < -half || utils.Axis(pos, axis) > half) {
			return false
		}
	}
	return true
}
