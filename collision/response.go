package collision

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/crowdsim/bvh"
	"go.viam.com/crowdsim/scene"
	"go.viam.com/crowdsim/utils"
)

// Contact records one resolved pair.
type Contact struct {
	Pair  Pair
	Axis  int
	Depth float64
}

// Report summarizes one pass of the response.
type Report struct {
	Candidates int
	// Resolved counts pairs that overlapped and were pushed apart.
	Resolved int
	// Separated counts candidates that no longer overlapped when their turn came.
	Separated int
	// Skipped counts overlapping pairs with no usable separating axis.
	Skipped  int
	PerAxis  [3]int
	Contacts []Contact
}

// Objects returns the indices of every object involved in a resolved pair, ascending.
func (r Report) Objects() []int {
	ids := lo.Uniq(lo.FlatMap(r.Contacts, func(c Contact, _ int) []int {
		return []int{c.Pair.A, c.Pair.B}
	}))
	slices.Sort(ids)
	return ids
}

// MaxDepth returns the deepest penetration among the resolved pairs, 0 if there were none.
func (r Report) MaxDepth() float64 {
	return lo.MaxBy(r.Contacts, func(a, b Contact) bool { return a.Depth > b.Depth }).Depth
}

// Add accumulates other into r, keeping r's contacts.
func (r *Report) Add(other Report) {
	r.Candidates += other.Candidates
	r.Resolved += other.Resolved
	r.Separated += other.Separated
	r.Skipped += other.Skipped
	for i := range r.PerAxis {
		r.PerAxis[i] += other.PerAxis[i]
	}
}

func (r Report) String() string {
	return fmt.Sprintf("%d candidates, %d resolved (x:%d y:%d z:%d), %d separated, %d skipped",
		r.Candidates, r.Resolved, r.PerAxis[0], r.PerAxis[1], r.PerAxis[2], r.Separated, r.Skipped)
}

// Resolve walks pairs in order. Each pair whose live boxes overlap is separated on the axis chosen
// by the resolver's policy: both objects step back one tick of motion on that axis, their velocity
// on it is reflected, and their boxes are recomputed. Later pairs see the effect of earlier ones.
func (r *Resolver) Resolve(set *scene.Set, pairs []Pair, dt float64) (Report, error) {
	report := Report{Candidates: len(pairs)}
	for _, p := range pairs {
		a, err := set.At(p.A)
		if err != nil {
			return report, errors.Wrapf(err, "pair %v", p)
		}
		b, err := set.At(p.B)
		if err != nil {
			return report, errors.Wrapf(err, "pair %v", p)
		}
		if !a.Box.Overlaps(b.Box) {
			report.Separated++
			continue
		}
		axis, ok := SeparatingAxis(a, b, r.opts.AxisPolicy, r.opts.Axes)
		if !ok {
			report.Skipped++
			r.logger.Debugw("skipping pair without a separating axis", "pair", p.String(), "policy", r.opts.AxisPolicy)
			continue
		}
		depth := utils.Axis(a.Box.Intersection(b.Box), axis)

		a.Step(axis, dt)
		b.Step(axis, dt)
		a.RefreshBox()
		b.RefreshBox()

		report.Resolved++
		report.PerAxis[axis]++
		report.Contacts = append(report.Contacts, Contact{Pair: p, Axis: axis, Depth: depth})
	}
	return report, nil
}

// Step runs the broad phase and then the response over set.
func (r *Resolver) Step(set *scene.Set, tree *bvh.Tree, dt float64) (Report, error) {
	pairs, err := r.Candidates(set, tree)
	if err != nil {
		return Report{}, err
	}
	report, err := r.Resolve(set, pairs, dt)
	if err != nil {
		return report, err
	}
	r.logger.Debugw("resolved collisions",
		"candidates", report.Candidates,
		"resolved", report.Resolved,
		"separated", report.Separated,
		"skipped", report.Skipped,
		"tree", r.UsesTree(set.Len()))
	return report, nil
}
