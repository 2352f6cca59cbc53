package utils

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
)

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return Float64AlmostEqual(a.X, b.X, epsilon) &&
		Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		Float64AlmostEqual(a.Z, b.Z, epsilon)
}

// Axis returns the component of v along axis 0 (X), 1 (Y) or 2 (Z).
func Axis(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetAxis returns v with the component along axis replaced by value.
func SetAxis(v r3.Vector, axis int, value float64) r3.Vector {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// AxisName returns "x", "y" or "z", or the number itself for an axis outside 0..2.
func AxisName(axis int) string {
	if axis < 0 || axis > 2 {
		return fmt.Sprint(axis)
	}
	return [3]string{"x", "y", "z"}[axis]
}

// VectorIsFinite reports whether no component of v is NaN or infinite.
func VectorIsFinite(v r3.Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// SampleRandomFloatRange samples a random float within [low, high) using the given rand.Rand.
// An empty or inverted range returns low.
func SampleRandomFloatRange(low, high float64, r *rand.Rand) float64 {
	if high <= low {
		return low
	}
	return low + r.Float64()*(high-low)
}
