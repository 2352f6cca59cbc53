// Package spatialmath defines the axis-aligned bounding box used by the tree and the scene.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/crowdsim/utils"
)

// Ordered list of box corner signs, matching the vertex order used for drawing.
var boxVertices = [8]r3.Vector{
	{1, 1, 1},
	{1, 1, -1},
	{1, -1, 1},
	{1, -1, -1},
	{-1, 1, 1},
	{-1, 1, -1},
	{-1, -1, 1},
	{-1, -1, -1},
}

// The six faces of a box as quads of indices into boxVertices, each wound counter-clockwise when
// seen from outside.
var boxFaces = [6][4]int{
	{0, 2, 3, 1}, // +x
	{4, 5, 7, 6}, // -x
	{0, 1, 5, 4}, // +y
	{2, 6, 7, 3}, // -y
	{0, 4, 6, 2}, // +z
	{1, 3, 7, 5}, // -z
}

// AABB is an axis-aligned bounding box. A valid box has Min <= Max on every axis; zero extent on
// any axis is allowed.
type AABB struct {
	Min r3.Vector
	Max r3.Vector
}

// NewAABB returns the box spanning min and max, or a DegenerateGeometry error when any bound is
// NaN or infinite or min exceeds max on some axis.
func NewAABB(minPt, maxPt r3.Vector) (AABB, error) {
	box := AABB{Min: minPt, Max: maxPt}
	if err := box.Validate(); err != nil {
		return AABB{}, err
	}
	return box, nil
}

// NewAABBFromCenter returns the box centered on center with the given half extent per axis.
// Negative half extents are rejected as DegenerateGeometry.
func NewAABBFromCenter(center, halfExtent r3.Vector) (AABB, error) {
	if halfExtent.X < 0 || halfExtent.Y < 0 || halfExtent.Z < 0 {
		return AABB{}, utils.NewDegenerateGeometryError("negative half extent %v", halfExtent)
	}
	return NewAABB(center.Sub(halfExtent), center.Add(halfExtent))
}

// Validate reports whether the box can be used in the tree.
func (b AABB) Validate() error {
	if !utils.VectorIsFinite(b.Min) || !utils.VectorIsFinite(b.Max) {
		return utils.NewDegenerateGeometryError("non-finite bounds %v", b)
	}
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return utils.NewDegenerateGeometryError("inverted bounds %v", b)
	}
	return nil
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: r3.Vector{X: math.Min(b.Min.X, other.Min.X), Y: math.Min(b.Min.Y, other.Min.Y), Z: math.Min(b.Min.Z, other.Min.Z)},
		Max: r3.Vector{X: math.Max(b.Max.X, other.Max.X), Y: math.Max(b.Max.Y, other.Max.Y), Z: math.Max(b.Max.Z, other.Max.Z)},
	}
}

// Overlaps reports whether the closed intervals of the two boxes intersect on all three axes.
// Boxes that only touch overlap.
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Intersection returns the per-axis penetration depth min(maxA, maxB) - max(minA, minB). A
// negative component is the gap between separated boxes on that axis.
func (b AABB) Intersection(other AABB) r3.Vector {
	return r3.Vector{
		X: math.Min(b.Max.X, other.Max.X) - math.Max(b.Min.X, other.Min.X),
		Y: math.Min(b.Max.Y, other.Max.Y) - math.Max(b.Min.Y, other.Min.Y),
		Z: math.Min(b.Max.Z, other.Max.Z) - math.Max(b.Min.Z, other.Min.Z),
	}
}

// Update recenters the box in place on center with the given half extent.
func (b *AABB) Update(center, halfExtent r3.Vector) {
	b.Min = center.Sub(halfExtent)
	b.Max = center.Add(halfExtent)
}

// Size returns the edge lengths of the box.
func (b AABB) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Volume returns the box volume; zero for flat boxes.
func (b AABB) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// HalfPerimeter returns the sum of the edge lengths, which stays informative for flat boxes.
func (b AABB) HalfPerimeter() float64 {
	s := b.Size()
	return s.X + s.Y + s.Z
}

// Center returns the center point of the box.
func (b AABB) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtent returns half the edge lengths of the box.
func (b AABB) HalfExtent() r3.Vector {
	return b.Size().Mul(0.5)
}

// Contains reports whether other lies entirely within b.
func (b AABB) Contains(other AABB) bool {
	return b.Min.X <= other.Min.X && b.Min.Y <= other.Min.Y && b.Min.Z <= other.Min.Z &&
		b.Max.X >= other.Max.X && b.Max.Y >= other.Max.Y && b.Max.Z >= other.Max.Z
}

// Expand returns the box grown by margin on every side.
func (b AABB) Expand(margin float64) AABB {
	m := r3.Vector{X: margin, Y: margin, Z: margin}
	return AABB{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// AlmostEqual compares two boxes bound by bound within epsilon.
func (b AABB) AlmostEqual(other AABB, epsilon float64) bool {
	return utils.R3VectorAlmostEqual(b.Min, other.Min, epsilon) && utils.R3VectorAlmostEqual(b.Max, other.Max, epsilon)
}

// Vertices returns the eight corners of the box.
func (b AABB) Vertices() [8]r3.Vector {
	center := b.Center()
	half := b.HalfExtent()
	var verts [8]r3.Vector
	for i, sign := range boxVertices {
		verts[i] = center.Add(r3.Vector{X: sign.X * half.X, Y: sign.Y * half.Y, Z: sign.Z * half.Z})
	}
	return verts
}

// Wireframe returns 24 vertices, four per face, for drawing the box as six quads.
func (b AABB) Wireframe() []r3.Vector {
	verts := b.Vertices()
	out := make([]r3.Vector, 0, 24)
	for _, face := range boxFaces {
		for _, idx := range face {
			out = append(out, verts[idx])
		}
	}
	return out
}

// String returns a human readable string that represents the box.
func (b AABB) String() string {
	return fmt.Sprintf("AABB | Min: X:%.2f, Y:%.2f, Z:%.2f | Max: X:%.2f, Y:%.2f, Z:%.2f",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
