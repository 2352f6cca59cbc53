// Package collision finds and resolves overlapping pairs of scene objects. The broad phase
// collects candidate pairs either from a bvh.Tree or by scanning every pair; the response then
// walks the candidates in order, rechecks each one against the live boxes, and pushes overlapping
// objects apart along one axis.
package collision

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/crowdsim/logging"
	"go.viam.com/crowdsim/utils"
)

// BroadPhase selects how candidate pairs are found.
type BroadPhase string

// The available broad phases.
const (
	BroadPhaseTree  BroadPhase = "tree"
	BroadPhaseBrute BroadPhase = "brute"
)

// AxisPolicy selects the axis a colliding pair is separated on.
type AxisPolicy string

// The available axis policies.
const (
	// AxisPolicyDepth picks the response axis with the smallest penetration depth.
	AxisPolicyDepth AxisPolicy = "depth"
	// AxisPolicyImpact picks the response axis the pair would have crossed first, the smallest
	// penetration depth divided by the relative speed on that axis.
	AxisPolicyImpact AxisPolicy = "impact"
)

// DefaultBroadPhaseThreshold is the object count below which the tree broad phase scans every
// pair instead.
const DefaultBroadPhaseThreshold = 64

// Options configures a Resolver.
type Options struct {
	BroadPhase BroadPhase
	// Threshold is the smallest object count for which the tree is queried.
	Threshold  int
	AxisPolicy AxisPolicy
	// Axes are the axes, 0 for x to 2 for z, a pair may be separated on. Earlier axes win ties.
	Axes []int
}

// DefaultOptions returns the tree broad phase with depth-based separation on x and y.
func DefaultOptions() Options {
	return Options{
		BroadPhase: BroadPhaseTree,
		Threshold:  DefaultBroadPhaseThreshold,
		AxisPolicy: AxisPolicyDepth,
		Axes:       []int{0, 1},
	}
}

// Validate returns every problem with the options.
func (o Options) Validate() error {
	var err error
	switch o.BroadPhase {
	case BroadPhaseTree, BroadPhaseBrute:
	default:
		err = multierr.Append(err, errors.Errorf("unknown broad phase %q", o.BroadPhase))
	}
	switch o.AxisPolicy {
	case AxisPolicyDepth, AxisPolicyImpact:
	default:
		err = multierr.Append(err, errors.Errorf("unknown axis policy %q", o.AxisPolicy))
	}
	if o.Threshold < 0 {
		err = multierr.Append(err, errors.Errorf("broad phase threshold must be non-negative, got %d", o.Threshold))
	}
	if len(o.Axes) == 0 {
		err = multierr.Append(err, errors.New("at least one response axis is required"))
	}
	for _, axis := range o.Axes {
		if axis < 0 || axis > 2 {
			err = multierr.Append(err, utils.NewIndexOutOfRangeError("axis", axis, 3))
		}
	}
	if dupes := lo.FindDuplicates(o.Axes); len(dupes) > 0 {
		err = multierr.Append(err, errors.Errorf("duplicate response axes %v", lo.Map(dupes, func(a, _ int) string {
			return utils.AxisName(a)
		})))
	}
	return err
}

// Pair is an unordered pair of object indices stored with A < B.
type Pair struct {
	A, B int
}

// MakePair orders a and b.
func MakePair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.A, p.B)
}

// Resolver runs the broad phase and the response for one scene.
type Resolver struct {
	opts   Options
	logger logging.Logger
}

// NewResolver validates opts and returns a resolver using them.
func NewResolver(opts Options, logger logging.Logger) (*Resolver, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid collision options")
	}
	opts.Axes = append([]int(nil), opts.Axes...)
	return &Resolver{opts: opts, logger: logger}, nil
}

// Options returns a copy of the resolver's options.
func (r *Resolver) Options() Options {
	opts := r.opts
	opts.Axes = append([]int(nil), r.opts.Axes...)
	return opts
}

// UsesTree reports whether a set of n objects is routed through the tree.
func (r *Resolver) UsesTree(n int) bool {
	return r.opts.BroadPhase == BroadPhaseTree && n >= r.opts.Threshold
}
