package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/crowdsim/scene"
	"go.viam.com/crowdsim/utils"
)

// SeparatingAxis picks the axis a and b are pushed apart on, among axes, under policy. The
// boolean is false when no axis qualifies, which under AxisPolicyImpact happens when the pair has
// no relative motion on any of the axes.
func SeparatingAxis(a, b *scene.Object, policy AxisPolicy, axes []int) (int, bool) {
	depth := a.Box.Intersection(b.Box)
	switch policy {
	case AxisPolicyImpact:
		return impactAxis(depth, a.Velocity.Sub(b.Velocity), axes)
	default:
		return depthAxis(depth, axes)
	}
}

// depthAxis returns the axis with the smallest non-negative penetration. Earlier axes win ties.
func depthAxis(depth r3.Vector, axes []int) (int, bool) {
	best, bestDepth := -1, math.Inf(1)
	for _, axis := range axes {
		d := utils.Axis(depth, axis)
		if d >= 0 && d < bestDepth {
			best, bestDepth = axis, d
		}
	}
	return best, best >= 0
}

// impactAxis returns the axis with the smallest time to clear the penetration at the current
// relative speed. Axes without relative motion are never picked.
func impactAxis(depth, relative r3.Vector, axes []int) (int, bool) {
	best, bestTime := -1, math.Inf(1)
	for _, axis := range axes {
		speed := math.Abs(utils.Axis(relative, axis))
		d := utils.Axis(depth, axis)
		if speed == 0 || d < 0 {
			continue
		}
		if t := d / speed; t < bestTime {
			best, bestTime = axis, t
		}
	}
	return best, best >= 0
}
