// Package simulation advances a crowd one fixed tick at a time and keeps its bounding volume
// hierarchy in step with it.
//
// Each tick integrates every object, resolves collisions through the tree, and then either
// rebuilds the tree from scratch or refits its leaves, depending on the configured tree policy.
// All tree mutation happens on the goroutine calling Step. Other goroutines read Frames.
package simulation

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/crowdsim/bvh"
	"go.viam.com/crowdsim/collision"
	"go.viam.com/crowdsim/config"
	"go.viam.com/crowdsim/logging"
	"go.viam.com/crowdsim/scene"
	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// TickReport describes one completed tick.
type TickReport struct {
	Tick       int64
	Duration   time.Duration
	Collision  collision.Report
	TreeNodes  int
	TreeHeight int
	Generation uint32
}

// A Simulation owns a crowd, its extent cache and its tree.
type Simulation struct {
	logger logging.Logger
	clock  clock.Clock
	runID  string

	mu       sync.Mutex
	cfg      config.Config
	cache    *scene.ExtentCache
	set      *scene.Set
	arena    scene.Arena
	resolver *collision.Resolver
	tree     *bvh.Tree
	stats    *stepStats

	ticks atomic.Int64
}

// New lays out the crowd described by cfg and builds the first tree over it.
func New(cfg config.Config, logger logging.Logger, opts ...Option) (*Simulation, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}

	cache, err := scene.NewExtentCache(cfg.Profiles(), cfg.Scale)
	if err != nil {
		return nil, err
	}
	set, err := cfg.Layout().Place(cache)
	if err != nil {
		return nil, errors.Wrap(err, "cannot place crowd")
	}
	collisionOpts, err := cfg.Collision.Options()
	if err != nil {
		return nil, err
	}
	resolver, err := collision.NewResolver(collisionOpts, logger.Sublogger("collision"))
	if err != nil {
		return nil, err
	}
	tree, err := bvh.Build(set, logger.Sublogger("bvh"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot build initial tree")
	}

	s := &Simulation{
		logger:   logger,
		clock:    o.clock,
		runID:    uuid.NewString(),
		cfg:      cfg,
		cache:    cache,
		set:      set,
		arena:    cfg.ArenaBounds(),
		resolver: resolver,
		tree:     tree,
		stats:    newStepStats(o.sampleLimit),
	}
	logger.Infow("simulation ready",
		"run", s.runID,
		"objects", set.Len(),
		"tree_policy", cfg.TreePolicy,
		"broad_phase", collisionOpts.BroadPhase,
		"axis_policy", collisionOpts.AxisPolicy)
	return s, nil
}

// RunID identifies this simulation in logs and summaries.
func (s *Simulation) RunID() string {
	return s.runID
}

// Ticks returns the number of completed ticks. It is safe to call from any goroutine.
func (s *Simulation) Ticks() int64 {
	return s.ticks.Load()
}

// Config returns the config currently in effect.
func (s *Simulation) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Step advances the crowd by dt seconds. Objects move, overlapping pairs found through the tree
// are pushed apart, and the tree is rebuilt or refit to the resolved boxes.
func (s *Simulation) Step(dt float64) (TickReport, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return TickReport{}, utils.NewInvalidStateError("tick length must be finite and non-negative, got %v", dt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	s.set.Integrate(dt, s.arena)
	report, err := s.resolver.Step(s.set, s.tree, dt)
	if err != nil {
		return TickReport{}, errors.Wrap(err, "cannot resolve collisions")
	}
	if err := s.syncTreeLocked(); err != nil {
		return TickReport{}, err
	}
	tick := s.ticks.Inc()
	if s.cfg.ValidateTree {
		if err := s.tree.Validate(); err != nil {
			return TickReport{}, errors.Wrapf(err, "tree invalid after tick %d", tick)
		}
	}
	elapsed := s.clock.Since(start)
	s.stats.add(elapsed, report)

	tr := TickReport{
		Tick:       tick,
		Duration:   elapsed,
		Collision:  report,
		TreeNodes:  s.tree.Len(),
		TreeHeight: s.tree.Height(),
		Generation: s.tree.Generation(),
	}
	s.logger.Debugw("tick done",
		"tick", tick,
		"resolved", report.Resolved,
		"skipped", report.Skipped,
		"height", tr.TreeHeight,
		"duration", elapsed)
	return tr, nil
}

// syncTreeLocked brings the tree in line with the current boxes after resolution.
func (s *Simulation) syncTreeLocked() error {
	switch s.cfg.TreePolicy {
	case config.TreePolicyRefit:
		for i := 0; i < s.set.Len(); i++ {
			if err := s.tree.UpdateLeaf(bvh.ObjectIndex(i), s.set.BoundsOf(i)); err != nil {
				return errors.Wrapf(err, "cannot refit leaf of object %d", i)
			}
		}
	case config.TreePolicyRebuild:
		if err := s.tree.Rebuild(s.set); err != nil {
			return errors.Wrap(err, "cannot rebuild tree")
		}
	default:
		return utils.NewInvalidStateError("unknown tree policy %q", s.cfg.TreePolicy)
	}
	return nil
}

// ApplyConfig swaps in the shape profiles, scale, arena, tree policy and tree validation of cfg.
// Every object's extent is refreshed and the tree is rebuilt. The object count, layout and
// collision options cannot change on a live simulation and are left as they are. On error the
// simulation is unchanged.
func (s *Simulation) ApplyConfig(cfg config.Config) error {
	if err := cfg.Ensure(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := scene.NewExtentCache(cfg.Profiles(), cfg.Scale)
	if err != nil {
		return err
	}
	objects := s.set.Objects()
	next := make(refreshedBoxes, len(objects))
	for i, o := range objects {
		ext, err := cache.Get(o.Shape)
		if err != nil {
			return errors.Wrapf(err, "object %d", o.ID)
		}
		next[i] = ext.Box(o.Position)
		if err := next[i].Validate(); err != nil {
			return errors.Wrapf(err, "object %d", o.ID)
		}
	}
	if err := s.tree.Rebuild(next); err != nil {
		return errors.Wrap(err, "cannot rebuild tree")
	}

	// nothing below can fail: every shape resolved and every box is valid
	if err := s.set.RefreshExtents(cache); err != nil {
		return err
	}
	s.cache = cache

	updated := s.cfg
	updated.Shapes = cfg.Shapes
	updated.Scale = cfg.Scale
	updated.Arena = cfg.Arena
	updated.TreePolicy = cfg.TreePolicy
	updated.ValidateTree = cfg.ValidateTree
	updated.Debug = cfg.Debug
	updated.ConfigFilePath = cfg.ConfigFilePath
	if updated.Objects != cfg.Objects || updated.Shape != cfg.Shape {
		s.logger.Warnw("ignoring crowd layout changes on a running simulation",
			"objects", cfg.Objects, "shape", cfg.Shape)
	}
	s.cfg = updated
	s.arena = updated.ArenaBounds()
	s.logger.Infow("applied config", "scale", updated.Scale, "shapes", len(updated.Profiles()), "tree_policy", updated.TreePolicy)
	return nil
}

// refreshedBoxes is the crowd's boxes under a config that has not been applied yet.
type refreshedBoxes []spatialmath.AABB

func (b refreshedBoxes) Len() int                        { return len(b) }
func (b refreshedBoxes) BoundsOf(i int) spatialmath.AABB { return b[i] }

// Tree returns the live tree. It must only be used on the goroutine calling Step.
func (s *Simulation) Tree() *bvh.Tree {
	return s.tree
}

// Set returns the live object set. It must only be used on the goroutine calling Step.
func (s *Simulation) Set() *scene.Set {
	return s.set
}
