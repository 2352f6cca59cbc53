// Package config defines the JSON configuration of a crowd simulation and how it is read,
// validated, described and watched.
package config

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/crowdsim/collision"
	"go.viam.com/crowdsim/scene"
	"go.viam.com/crowdsim/spatialmath"
)

// TreePolicy selects how the tree follows the objects between ticks.
type TreePolicy string

const (
	// TreePolicyRebuild rebuilds the tree from scratch after every tick.
	TreePolicyRebuild TreePolicy = "rebuild"
	// TreePolicyRefit keeps the tree shape and refits each leaf to its object's new box.
	TreePolicyRefit TreePolicy = "refit"
)

// Vector is a 3-vector as it appears in the config file.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts v.
func (v Vector) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// ShapeConfig is the rest-pose box of a shape relative to the object position.
type ShapeConfig struct {
	Min Vector `json:"min"`
	Max Vector `json:"max"`
}

// Validate ensures the box is usable.
func (sc *ShapeConfig) Validate(path string) error {
	if _, err := spatialmath.NewAABB(sc.Min.R3(), sc.Max.R3()); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// CollisionConfig configures the broad phase and the response.
type CollisionConfig struct {
	BroadPhase          string   `json:"broad_phase" jsonschema:"enum=tree,enum=brute"`
	BroadPhaseThreshold int      `json:"broad_phase_threshold"`
	AxisPolicy          string   `json:"axis_policy" jsonschema:"enum=depth,enum=impact"`
	Axes                []string `json:"axes"`
}

var axisNames = map[string]int{"x": 0, "y": 1, "z": 2}

// Options converts the config into resolver options.
func (cc *CollisionConfig) Options() (collision.Options, error) {
	opts := collision.Options{
		BroadPhase: collision.BroadPhase(cc.BroadPhase),
		Threshold:  cc.BroadPhaseThreshold,
		AxisPolicy: collision.AxisPolicy(cc.AxisPolicy),
	}
	for _, name := range cc.Axes {
		axis, ok := axisNames[name]
		if !ok {
			return collision.Options{}, errors.Errorf("unknown axis %q", name)
		}
		opts.Axes = append(opts.Axes, axis)
	}
	return opts, nil
}

// Validate ensures all parts of the collision config are valid.
func (cc *CollisionConfig) Validate(path string) error {
	opts, err := cc.Options()
	if err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if err := opts.Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// Config describes a crowd simulation.
type Config struct {
	Objects      int                    `json:"objects"`
	Spacing      float64                `json:"spacing"`
	Seed         int64                  `json:"seed"`
	Shape        string                 `json:"shape"`
	Scale        float64                `json:"scale"`
	Shapes       map[string]ShapeConfig `json:"shapes,omitempty"`
	VelocityMin  Vector                 `json:"velocity_min"`
	VelocityMax  Vector                 `json:"velocity_max"`
	Arena        Vector                 `json:"arena"`
	TreePolicy   TreePolicy             `json:"tree_policy" jsonschema:"enum=rebuild,enum=refit"`
	ValidateTree bool                   `json:"validate_tree,omitempty"`
	Collision    CollisionConfig        `json:"collision"`
	Debug        bool                   `json:"debug,omitempty"`

	// ConfigFilePath is the path the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Default returns the configuration used when no file is given: 300 walkers on a ten unit grid in
// a 200 by 200 arena.
func Default() Config {
	layout := scene.DefaultGridLayout(300)
	arena := scene.DefaultArena()
	opts := collision.DefaultOptions()
	axes := make([]string, 0, len(opts.Axes))
	for _, axis := range opts.Axes {
		axes = append(axes, [3]string{"x", "y", "z"}[axis])
	}
	return Config{
		Objects:     layout.Count,
		Spacing:     layout.Spacing,
		Seed:        layout.Seed,
		Shape:       layout.Shape,
		Scale:       1,
		VelocityMin: Vector{X: layout.VelocityMin.X, Y: layout.VelocityMin.Y, Z: layout.VelocityMin.Z},
		VelocityMax: Vector{X: layout.VelocityMax.X, Y: layout.VelocityMax.Y, Z: layout.VelocityMax.Z},
		Arena:       Vector{X: arena.Half.X, Y: arena.Half.Y, Z: arena.Half.Z},
		TreePolicy:  TreePolicyRebuild,
		Collision: CollisionConfig{
			BroadPhase:          string(opts.BroadPhase),
			BroadPhaseThreshold: opts.Threshold,
			AxisPolicy:          string(opts.AxisPolicy),
			Axes:                axes,
		},
	}
}

// Ensure fills unset fields with their defaults and then validates the whole config.
func (c *Config) Ensure() error {
	def := Default()
	if c.Spacing == 0 {
		c.Spacing = def.Spacing
	}
	if c.Shape == "" {
		c.Shape = def.Shape
	}
	if c.Scale == 0 {
		c.Scale = def.Scale
	}
	if c.TreePolicy == "" {
		c.TreePolicy = def.TreePolicy
	}
	if c.Collision.BroadPhase == "" {
		c.Collision.BroadPhase = def.Collision.BroadPhase
	}
	if c.Collision.AxisPolicy == "" {
		c.Collision.AxisPolicy = def.Collision.AxisPolicy
	}
	if len(c.Collision.Axes) == 0 {
		c.Collision.Axes = def.Collision.Axes
	}
	return c.Validate("")
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", path, field)
}

// Validate returns every problem with the config, each prefixed by the path of the field.
func (c *Config) Validate(path string) error {
	var err error
	if c.Objects < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "objects"),
			errors.Errorf("must be non-negative, got %d", c.Objects)))
	}
	if c.Spacing <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "spacing"),
			errors.Errorf("must be positive, got %v", c.Spacing)))
	}
	if c.Scale <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "scale"),
			errors.Errorf("must be positive, got %v", c.Scale)))
	}
	if _, ok := c.Profiles()[c.Shape]; !ok {
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "shape"),
			errors.Errorf("unknown shape %q", c.Shape)))
	}
	for name, shape := range c.Shapes {
		err = multierr.Append(err, shape.Validate(joinPath(path, fmt.Sprintf("shapes.%s", name))))
	}
	if c.Arena.X < 0 || c.Arena.Y < 0 || c.Arena.Z < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "arena"),
			errors.New("half sizes must be non-negative")))
	}
	switch c.TreePolicy {
	case TreePolicyRebuild, TreePolicyRefit:
	default:
		err = multierr.Append(err, goutils.NewConfigValidationError(joinPath(path, "tree_policy"),
			errors.Errorf("unknown tree policy %q", c.TreePolicy)))
	}
	err = multierr.Append(err, c.Collision.Validate(joinPath(path, "collision")))
	return err
}

// Profiles returns the built-in shapes overlaid with the configured ones.
func (c *Config) Profiles() map[string]scene.Profile {
	profiles := scene.DefaultProfiles()
	for name, shape := range c.Shapes {
		profiles[name] = scene.Profile{Min: shape.Min.R3(), Max: shape.Max.R3()}
	}
	return profiles
}

// Layout returns the grid layout described by the config.
func (c *Config) Layout() scene.GridLayout {
	return scene.GridLayout{
		Count:       c.Objects,
		Spacing:     c.Spacing,
		Shape:       c.Shape,
		VelocityMin: c.VelocityMin.R3(),
		VelocityMax: c.VelocityMax.R3(),
		Seed:        c.Seed,
	}
}

// ArenaBounds returns the arena described by the config.
func (c *Config) ArenaBounds() scene.Arena {
	return scene.Arena{Half: c.Arena.R3()}
}
