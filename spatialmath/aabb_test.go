package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/crowdsim/utils"
)

func randomBox(rnd *rand.Rand) AABB {
	center := r3.Vector{X: rnd.Float64()*20 - 10, Y: rnd.Float64()*20 - 10, Z: rnd.Float64()*20 - 10}
	half := r3.Vector{X: rnd.Float64() * 3, Y: rnd.Float64() * 3, Z: rnd.Float64() * 3}
	box, err := NewAABBFromCenter(center, half)
	if err != nil {
		panic(err)
	}
	return box
}

func TestNewAABB(t *testing.T) {
	t.Run("valid bounds", func(t *testing.T) {
		box, err := NewAABB(r3.Vector{X: -1, Y: -2, Z: -3}, r3.Vector{X: 1, Y: 2, Z: 3})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, box.Center(), test.ShouldResemble, r3.Vector{})
		test.That(t, box.HalfExtent(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
		test.That(t, box.Volume(), test.ShouldAlmostEqual, 48.)
		test.That(t, box.HalfPerimeter(), test.ShouldAlmostEqual, 12.)
	})

	t.Run("zero extent is legal", func(t *testing.T) {
		box, err := NewAABB(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, box.Volume(), test.ShouldEqual, 0.)
		test.That(t, box.Overlaps(box), test.ShouldBeTrue)
	})

	t.Run("inverted bounds", func(t *testing.T) {
		_, err := NewAABB(r3.Vector{X: 1}, r3.Vector{X: -1})
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})

	t.Run("NaN bounds", func(t *testing.T) {
		_, err := NewAABB(r3.Vector{X: math.NaN()}, r3.Vector{X: 1})
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
		_, err = NewAABB(r3.Vector{}, r3.Vector{Y: math.Inf(1)})
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})

	t.Run("negative half extent", func(t *testing.T) {
		_, err := NewAABBFromCenter(r3.Vector{}, r3.Vector{X: 1, Y: -1, Z: 1})
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})
}

func TestOverlaps(t *testing.T) {
	unit := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}

	cases := []struct {
		name     string
		other    AABB
		expected bool
	}{
		{"same", unit, true},
		{"contained", AABB{Min: r3.Vector{X: 0.25, Y: 0.25, Z: 0.25}, Max: r3.Vector{X: 0.75, Y: 0.75, Z: 0.75}}, true},
		{"touching face", AABB{Min: r3.Vector{X: 1}, Max: r3.Vector{X: 2, Y: 1, Z: 1}}, true},
		{"touching corner", AABB{Min: r3.Vector{X: 1, Y: 1, Z: 1}, Max: r3.Vector{X: 2, Y: 2, Z: 2}}, true},
		{"separated on x", AABB{Min: r3.Vector{X: 1.01}, Max: r3.Vector{X: 2, Y: 1, Z: 1}}, false},
		{"separated on z only", AABB{Min: r3.Vector{Z: -2}, Max: r3.Vector{X: 1, Y: 1, Z: -0.5}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, unit.Overlaps(tc.other), test.ShouldEqual, tc.expected)
			test.That(t, tc.other.Overlaps(unit), test.ShouldEqual, tc.expected)
		})
	}

	t.Run("symmetric on random boxes", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(1))
		for i := 0; i < 500; i++ {
			a, b := randomBox(rnd), randomBox(rnd)
			test.That(t, a.Overlaps(b), test.ShouldEqual, b.Overlaps(a))
		}
	})
}

func TestIntersection(t *testing.T) {
	t.Run("two unit cubes offset on x", func(t *testing.T) {
		a := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
		b := AABB{Min: r3.Vector{X: 0.5}, Max: r3.Vector{X: 1.5, Y: 1, Z: 1}}
		test.That(t, a.Overlaps(b), test.ShouldBeTrue)
		depth := a.Intersection(b)
		test.That(t, depth.X, test.ShouldAlmostEqual, 0.5)
		test.That(t, depth.Y, test.ShouldAlmostEqual, 1.)
		test.That(t, depth.Z, test.ShouldAlmostEqual, 1.)
	})

	t.Run("separated boxes report the gap as negative", func(t *testing.T) {
		a := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
		b := AABB{Min: r3.Vector{X: 3}, Max: r3.Vector{X: 4, Y: 1, Z: 1}}
		test.That(t, a.Intersection(b).X, test.ShouldAlmostEqual, -2.)
	})
}

func TestUnion(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a, b := randomBox(rnd), randomBox(rnd)
		u := a.Union(b)
		test.That(t, u.Validate(), test.ShouldBeNil)
		test.That(t, u.Contains(a), test.ShouldBeTrue)
		test.That(t, u.Contains(b), test.ShouldBeTrue)
		test.That(t, u.Volume(), test.ShouldBeGreaterThanOrEqualTo, a.Volume())
		test.That(t, u.Volume(), test.ShouldBeGreaterThanOrEqualTo, b.Volume())
		test.That(t, u, test.ShouldResemble, b.Union(a))
	}
}

func TestUpdate(t *testing.T) {
	box := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	box.Update(r3.Vector{X: 10, Y: -5}, r3.Vector{X: 0.5, Y: 1, Z: 2})
	test.That(t, box.Min, test.ShouldResemble, r3.Vector{X: 9.5, Y: -6, Z: -2})
	test.That(t, box.Max, test.ShouldResemble, r3.Vector{X: 10.5, Y: -4, Z: 2})
}

func TestExpandAndAlmostEqual(t *testing.T) {
	box := AABB{Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	grown := box.Expand(0.5)
	test.That(t, grown.Contains(box), test.ShouldBeTrue)
	test.That(t, box.Contains(grown), test.ShouldBeFalse)
	test.That(t, grown.AlmostEqual(AABB{Min: r3.Vector{X: -0.5, Y: -0.5, Z: -0.5}, Max: r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}}, 1e-9),
		test.ShouldBeTrue)
	test.That(t, grown.AlmostEqual(box, 1e-9), test.ShouldBeFalse)
}

func TestVerticesAndWireframe(t *testing.T) {
	box := AABB{Min: r3.Vector{X: -1, Y: -2, Z: -3}, Max: r3.Vector{X: 1, Y: 2, Z: 3}}
	verts := box.Vertices()
	for _, v := range verts {
		test.That(t, math.Abs(v.X), test.ShouldAlmostEqual, 1.)
		test.That(t, math.Abs(v.Y), test.ShouldAlmostEqual, 2.)
		test.That(t, math.Abs(v.Z), test.ShouldAlmostEqual, 3.)
	}

	wire := box.Wireframe()
	test.That(t, len(wire), test.ShouldEqual, 24)
	// every corner is shared by exactly three faces
	counts := map[r3.Vector]int{}
	for _, v := range wire {
		counts[v]++
	}
	test.That(t, len(counts), test.ShouldEqual, 8)
	for _, c := range counts {
		test.That(t, c, test.ShouldEqual, 3)
	}
	test.That(t, box.String(), test.ShouldContainSubstring, "Min: X:-1.00")
}
