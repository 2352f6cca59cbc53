package scene

import (
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// Set is a fixed-size collection of objects addressed by index. It satisfies bvh.Source.
type Set struct {
	objects []Object
}

// NewSet takes ownership of objects. Object IDs are reassigned to match their index.
func NewSet(objects []Object) *Set {
	for i := range objects {
		objects[i].ID = i
	}
	return &Set{objects: objects}
}

// Len returns the number of objects.
func (s *Set) Len() int {
	return len(s.objects)
}

// At returns the object at index i for modification.
func (s *Set) At(i int) (*Object, error) {
	if i < 0 || i >= len(s.objects) {
		return nil, utils.NewIndexOutOfRangeError("object", i, len(s.objects))
	}
	return &s.objects[i], nil
}

// BoundsOf returns the current box of object i. It panics if i is out of range.
func (s *Set) BoundsOf(i int) spatialmath.AABB {
	return s.objects[i].Box
}

// SweptBoundsOf returns the box covering object i at both its previous and current position.
// It panics if i is out of range.
func (s *Set) SweptBoundsOf(i int) spatialmath.AABB {
	return s.objects[i].SweptBox()
}

// Objects returns the backing slice. Callers must not retain it across ticks.
func (s *Set) Objects() []Object {
	return s.objects
}

// Snapshot returns a copy of every object.
func (s *Set) Snapshot() []Object {
	out := make([]Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Integrate advances every object by one tick: it is first pushed back inside the arena, then its
// current position is recorded as the previous one and it moves by velocity*dt.
func (s *Set) Integrate(dt float64, arena Arena) {
	for i := range s.objects {
		o := &s.objects[i]
		o.Position, o.Velocity = arena.Clamp(o.Position, o.Velocity)
		o.PreviousPosition = o.Position
		o.Position = o.Position.Add(o.Velocity.Mul(dt))
		o.RefreshBox()
	}
}

// RefreshExtents looks up every object's shape in cache and recomputes its box.
func (s *Set) RefreshExtents(cache *ExtentCache) error {
	for i := range s.objects {
		o := &s.objects[i]
		ext, err := cache.Get(o.Shape)
		if err != nil {
			return errors.Wrapf(err, "object %d", i)
		}
		o.Extent = ext
		o.RefreshBox()
	}
	return nil
}

// Validate checks that every object has finite motion state and a usable box.
func (s *Set) Validate() error {
	for i := range s.objects {
		o := &s.objects[i]
		if !utils.VectorIsFinite(o.Position) || !utils.VectorIsFinite(o.Velocity) {
			return utils.NewDegenerateGeometryError("object %d has non-finite motion state", i)
		}
		if err := o.Box.Validate(); err != nil {
			return errors.Wrapf(err, "object %d", i)
		}
	}
	return nil
}
