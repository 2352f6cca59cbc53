package scene

import (
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// DefaultShape is the profile used by objects that do not name one.
const DefaultShape = "walker"

// Profile is the rest-pose bounding box of a shape, relative to the object position.
type Profile struct {
	Min r3.Vector
	Max r3.Vector
}

// DefaultProfiles returns the built-in shape profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		DefaultShape: {Min: r3.Vector{X: -2, Y: -1.5, Z: 0}, Max: r3.Vector{X: 2, Y: 1.5, Z: 7}},
		"crate":      {Min: r3.Vector{X: -1.5, Y: -1.5, Z: 0}, Max: r3.Vector{X: 1.5, Y: 1.5, Z: 3}},
	}
}

// Extent places an object's box around its position: the box center is Position+Offset and its
// half size is Half.
type Extent struct {
	Offset r3.Vector
	Half   r3.Vector
}

// Box returns the box of an object at pos.
func (e Extent) Box(pos r3.Vector) spatialmath.AABB {
	var box spatialmath.AABB
	box.Update(pos.Add(e.Offset), e.Half)
	return box
}

// ExtentCache turns shape profiles into extents at the current scale. Extents are computed the
// first time a shape is asked for and kept until Reload.
type ExtentCache struct {
	mu       sync.Mutex
	profiles map[string]Profile
	scale    float64
	extents  map[string]Extent
}

// NewExtentCache returns a cache over profiles scaled by scale.
func NewExtentCache(profiles map[string]Profile, scale float64) (*ExtentCache, error) {
	cache := &ExtentCache{}
	if err := cache.Reload(profiles, scale); err != nil {
		return nil, err
	}
	return cache, nil
}

// Reload replaces the profiles and scale and drops every cached extent. On error the cache is
// left unchanged.
func (c *ExtentCache) Reload(profiles map[string]Profile, scale float64) error {
	if scale <= 0 || !utils.VectorIsFinite(r3.Vector{X: scale}) {
		return utils.NewDegenerateGeometryError("invalid shape scale %v", scale)
	}
	copied := make(map[string]Profile, len(profiles))
	for name, p := range profiles {
		if _, err := spatialmath.NewAABB(p.Min, p.Max); err != nil {
			return errors.Wrapf(err, "shape %q", name)
		}
		ext := scaleProfile(p, scale)
		if _, err := spatialmath.NewAABB(ext.Offset.Sub(ext.Half), ext.Offset.Add(ext.Half)); err != nil {
			return errors.Wrapf(err, "shape %q at scale %v", name, scale)
		}
		copied[name] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = copied
	c.scale = scale
	c.extents = map[string]Extent{}
	return nil
}

// Get returns the extent of the named shape. An empty name means DefaultShape.
func (c *ExtentCache) Get(name string) (Extent, error) {
	if name == "" {
		name = DefaultShape
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ext, ok := c.extents[name]; ok {
		return ext, nil
	}
	p, ok := c.profiles[name]
	if !ok {
		return Extent{}, utils.NewInvalidStateError("unknown shape %q", name)
	}
	ext := scaleProfile(p, c.scale)
	c.extents[name] = ext
	return ext, nil
}

func scaleProfile(p Profile, scale float64) Extent {
	rest := spatialmath.AABB{Min: p.Min, Max: p.Max}
	return Extent{Offset: rest.Center().Mul(scale), Half: rest.HalfExtent().Mul(scale)}
}

// Cached returns how many extents have been computed since the last reload.
func (c *ExtentCache) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.extents)
}

// Scale returns the current scale.
func (c *ExtentCache) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}
