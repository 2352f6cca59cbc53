package collision

import (
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/bvh"
	"go.viam.com/crowdsim/scene"
	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// sweepMargin pads swept boxes so that stepping a position back by velocity*dt, which may land a
// rounding error away from the previous position, stays inside the box.
const sweepMargin = 1e-6

// sweptSource presents the swept boxes of a set as a bvh.Source.
type sweptSource struct {
	set *scene.Set
}

func (s sweptSource) Len() int {
	return s.set.Len()
}

func (s sweptSource) BoundsOf(i int) spatialmath.AABB {
	return s.set.SweptBoundsOf(i).Expand(sweepMargin)
}

// Swept returns the swept boxes of set, padded by a small margin, as a bvh.Source.
func Swept(set *scene.Set) bvh.Source {
	return sweptSource{set: set}
}

// BruteForcePairs returns every pair of objects in src whose boxes overlap, in lexicographic order.
func BruteForcePairs(src bvh.Source) []Pair {
	n := src.Len()
	var pairs []Pair
	for i := 0; i < n; i++ {
		a := src.BoundsOf(i)
		for j := i + 1; j < n; j++ {
			if a.Overlaps(src.BoundsOf(j)) {
				pairs = append(pairs, Pair{A: i, B: j})
			}
		}
	}
	return pairs
}

// TreePairs returns every pair of objects in src whose boxes overlap, in lexicographic order,
// using tree to prune. The leaves of tree must bound the boxes of src.
func TreePairs(src bvh.Source, tree *bvh.Tree) ([]Pair, error) {
	var pairs []Pair
	for i := 0; i < src.Len(); i++ {
		hits, err := tree.QueryOverlaps(src.BoundsOf(i), bvh.ObjectIndex(i))
		if err != nil {
			return nil, errors.Wrapf(err, "overlap query for object %d", i)
		}
		for _, j := range hits {
			if int(j) > i {
				pairs = append(pairs, Pair{A: i, B: int(j)})
			}
		}
	}
	return pairs, nil
}

// Candidates returns every pair whose swept boxes overlap. Any pair that overlaps while the
// response moves objects between their previous and current positions is included. The pairs are
// in lexicographic order.
//
// When the tree broad phase applies, the leaves of tree are first refit to the swept boxes; the
// caller must rebuild or refit the tree again before using it for anything else.
func (r *Resolver) Candidates(set *scene.Set, tree *bvh.Tree) ([]Pair, error) {
	swept := Swept(set)
	if !r.UsesTree(set.Len()) || set.Len() == 0 {
		return BruteForcePairs(swept), nil
	}
	if tree == nil || tree.LeafCount() != set.Len() {
		count := 0
		if tree != nil {
			count = tree.LeafCount()
		}
		return nil, utils.NewInvalidStateError("tree holds %d objects, set holds %d", count, set.Len())
	}
	for i := 0; i < set.Len(); i++ {
		if err := tree.UpdateLeaf(bvh.ObjectIndex(i), swept.BoundsOf(i)); err != nil {
			return nil, err
		}
	}
	return TreePairs(swept, tree)
}
