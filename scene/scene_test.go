package scene

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

func unitCache(t *testing.T) *ExtentCache {
	t.Helper()
	cache, err := NewExtentCache(map[string]Profile{
		"unit":  {Min: r3.Vector{X: -0.5, Y: -0.5, Z: -0.5}, Max: r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}},
		"tall":  {Min: r3.Vector{X: -1, Y: -1, Z: 0}, Max: r3.Vector{X: 1, Y: 1, Z: 4}},
		"wide":  {Min: r3.Vector{X: -3, Y: -1, Z: -1}, Max: r3.Vector{X: 3, Y: 1, Z: 1}},
		"plain": {Min: r3.Vector{}, Max: r3.Vector{X: 1, Y: 1, Z: 1}},
	}, 1)
	test.That(t, err, test.ShouldBeNil)
	return cache
}

func TestExtentCache(t *testing.T) {
	cache := unitCache(t)
	test.That(t, cache.Cached(), test.ShouldEqual, 0)

	ext, err := cache.Get("tall")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ext.Offset, test.ShouldResemble, r3.Vector{Z: 2})
	test.That(t, ext.Half, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 2})
	test.That(t, cache.Cached(), test.ShouldEqual, 1)

	_, err = cache.Get("tall")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cache.Cached(), test.ShouldEqual, 1)

	_, err = cache.Get("missing")
	test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)

	t.Run("reload rescales and clears", func(t *testing.T) {
		test.That(t, cache.Reload(map[string]Profile{
			"tall": {Min: r3.Vector{X: -1, Y: -1, Z: 0}, Max: r3.Vector{X: 1, Y: 1, Z: 4}},
		}, 2), test.ShouldBeNil)
		test.That(t, cache.Cached(), test.ShouldEqual, 0)
		test.That(t, cache.Scale(), test.ShouldEqual, 2.)
		ext, err := cache.Get("tall")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ext.Offset, test.ShouldResemble, r3.Vector{Z: 4})
		test.That(t, ext.Half, test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 4})
		_, err = cache.Get("unit")
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("bad reload keeps the old state", func(t *testing.T) {
		err := cache.Reload(map[string]Profile{"bad": {Min: r3.Vector{X: 1}, Max: r3.Vector{}}}, 1)
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
		err = cache.Reload(DefaultProfiles(), 0)
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
		err = cache.Reload(DefaultProfiles(), 1e308)
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "at scale")
		test.That(t, cache.Scale(), test.ShouldEqual, 2.)
		_, err = cache.Get("tall")
		test.That(t, err, test.ShouldBeNil)
	})

	t.Run("empty name is the default shape", func(t *testing.T) {
		defaults, err := NewExtentCache(DefaultProfiles(), 1)
		test.That(t, err, test.ShouldBeNil)
		byName, err := defaults.Get(DefaultShape)
		test.That(t, err, test.ShouldBeNil)
		unnamed, err := defaults.Get("")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, unnamed, test.ShouldResemble, byName)
	})
}

func TestArenaClamp(t *testing.T) {
	arena := DefaultArena()

	pos, vel := arena.Clamp(r3.Vector{X: 101, Y: -150, Z: 500}, r3.Vector{X: 3, Y: -2, Z: 1})
	test.That(t, pos, test.ShouldResemble, r3.Vector{X: 100, Y: -100, Z: 500})
	test.That(t, vel, test.ShouldResemble, r3.Vector{X: -3, Y: 2, Z: 1})

	pos, vel = arena.Clamp(r3.Vector{X: 100, Y: 0}, r3.Vector{X: 3})
	test.That(t, pos, test.ShouldResemble, r3.Vector{X: 100})
	test.That(t, vel, test.ShouldResemble, r3.Vector{X: 3})

	test.That(t, arena.Contains(r3.Vector{X: 99, Y: -100, Z: 1e6}), test.ShouldBeTrue)
	test.That(t, arena.Contains(r3.Vector{X: 100.5}), test.ShouldBeFalse)
	test.That(t, Arena{}.Contains(r3.Vector{X: 1e9}), test.ShouldBeTrue)
}

func TestGridLayout(t *testing.T) {
	cache := unitCache(t)
	layout := DefaultGridLayout(9)
	layout.Shape = "unit"

	set, err := layout.Place(cache)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, set.Len(), test.ShouldEqual, 9)

	expected := []r3.Vector{
		{X: -10, Y: -10}, {X: 0, Y: -10}, {X: 10, Y: -10},
		{X: -10, Y: 0}, {X: 0, Y: 0}, {X: 10, Y: 0},
		{X: -10, Y: 10}, {X: 0, Y: 10}, {X: 10, Y: 10},
	}
	for i, want := range expected {
		o, err := set.At(i)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o.ID, test.ShouldEqual, i)
		test.That(t, o.Position, test.ShouldResemble, want)
		test.That(t, o.PreviousPosition, test.ShouldResemble, want)
		test.That(t, o.Velocity.X, test.ShouldBeBetweenOrEqual, 5.5, 10)
		test.That(t, o.Velocity.Y, test.ShouldBeBetweenOrEqual, -5.5, 5.5)
		test.That(t, o.Velocity.Z, test.ShouldEqual, 0.)
		test.That(t, o.Box.Center(), test.ShouldResemble, want)
	}

	t.Run("seeded", func(t *testing.T) {
		again, err := layout.Place(cache)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again.Snapshot(), test.ShouldResemble, set.Snapshot())
	})

	t.Run("non-square count", func(t *testing.T) {
		layout := DefaultGridLayout(5)
		test.That(t, layout.Position(4), test.ShouldResemble, r3.Vector{X: -10, Y: 10})
		test.That(t, DefaultGridLayout(0).Position(0), test.ShouldResemble, r3.Vector{X: -10, Y: -10})
	})

	t.Run("errors", func(t *testing.T) {
		bad := layout
		bad.Count = -1
		_, err := bad.Place(cache)
		test.That(t, err, test.ShouldNotBeNil)
		bad = layout
		bad.Shape = "missing"
		_, err = bad.Place(cache)
		test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)
	})
}

func TestSet(t *testing.T) {
	cache := unitCache(t)
	ext, err := cache.Get("plain")
	test.That(t, err, test.ShouldBeNil)

	set := NewSet([]Object{
		{ID: 7, Shape: "plain", Position: r3.Vector{X: 99}, Velocity: r3.Vector{X: 10, Y: 1}, Extent: ext},
		{ID: 3, Shape: "plain", Position: r3.Vector{X: -5}, Velocity: r3.Vector{X: -1}, Extent: ext},
	})
	for i := range set.Objects() {
		o, err := set.At(i)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o.ID, test.ShouldEqual, i)
		o.RefreshBox()
	}

	_, err = set.At(2)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	_, err = set.At(-1)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)

	t.Run("integrate", func(t *testing.T) {
		set.Integrate(1, DefaultArena())
		o, err := set.At(0)
		test.That(t, err, test.ShouldBeNil)
		// inside the arena at integration time, so it moves past the wall
		test.That(t, o.PreviousPosition, test.ShouldResemble, r3.Vector{X: 99})
		test.That(t, o.Position, test.ShouldResemble, r3.Vector{X: 109, Y: 1})
		test.That(t, o.Box, test.ShouldResemble, spatialmath.AABB{Min: r3.Vector{X: 109, Y: 1}, Max: r3.Vector{X: 110, Y: 2, Z: 1}})

		set.Integrate(1, DefaultArena())
		test.That(t, o.PreviousPosition, test.ShouldResemble, r3.Vector{X: 100, Y: 1})
		test.That(t, o.Velocity, test.ShouldResemble, r3.Vector{X: -10, Y: 1})
		test.That(t, o.Position, test.ShouldResemble, r3.Vector{X: 90, Y: 2})
		test.That(t, set.BoundsOf(0), test.ShouldResemble, o.Box)

		swept := set.SweptBoundsOf(0)
		test.That(t, swept, test.ShouldResemble, spatialmath.AABB{Min: r3.Vector{X: 90, Y: 1}, Max: r3.Vector{X: 101, Y: 3, Z: 1}})
		test.That(t, swept.Contains(o.Box), test.ShouldBeTrue)
	})

	t.Run("step reverts one axis", func(t *testing.T) {
		o, err := set.At(1)
		test.That(t, err, test.ShouldBeNil)
		before := o.PreviousPosition
		o.Step(0, 1)
		test.That(t, o.Position.X, test.ShouldAlmostEqual, before.X)
		test.That(t, o.Velocity.X, test.ShouldEqual, 1.)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		snap := set.Snapshot()
		snap[0].Position = r3.Vector{X: math.Pi}
		o, err := set.At(0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o.Position, test.ShouldNotResemble, snap[0].Position)
	})

	t.Run("refresh extents", func(t *testing.T) {
		test.That(t, cache.Reload(map[string]Profile{
			"plain": {Min: r3.Vector{}, Max: r3.Vector{X: 2, Y: 2, Z: 2}},
		}, 1), test.ShouldBeNil)
		test.That(t, set.RefreshExtents(cache), test.ShouldBeNil)
		o, err := set.At(0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o.Box.Size(), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 2})
		test.That(t, set.Validate(), test.ShouldBeNil)

		o.Shape = "gone"
		test.That(t, set.RefreshExtents(cache), test.ShouldNotBeNil)
	})

	t.Run("validate", func(t *testing.T) {
		o, err := set.At(1)
		test.That(t, err, test.ShouldBeNil)
		o.Velocity.Y = math.NaN()
		test.That(t, errors.Is(set.Validate(), utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})
}
