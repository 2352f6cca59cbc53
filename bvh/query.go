package bvh

import (
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// QueryOverlaps returns, in ascending order, every object whose leaf box overlaps target, except
// exclude. Pass NoObject to exclude nothing.
func (t *Tree) QueryOverlaps(target spatialmath.AABB, exclude ObjectIndex) ([]ObjectIndex, error) {
	if t.root < 0 {
		return nil, utils.NewInvalidStateError("overlap query on an empty tree")
	}
	return t.queryFrom(t.root, target, exclude), nil
}

// QueryOverlapsFrom is QueryOverlaps restricted to the subtree under start.
func (t *Tree) QueryOverlapsFrom(start NodeID, target spatialmath.AABB, exclude ObjectIndex) ([]ObjectIndex, error) {
	if t.root < 0 {
		return nil, utils.NewInvalidStateError("overlap query on an empty tree")
	}
	idx, err := t.resolve(start)
	if err != nil {
		return nil, err
	}
	return t.queryFrom(idx, target, exclude), nil
}

func (t *Tree) queryFrom(idx int32, target spatialmath.AABB, exclude ObjectIndex) []ObjectIndex {
	var hits []ObjectIndex
	t.collect(idx, target, exclude, &hits)
	slices.Sort(hits)
	return hits
}

func (t *Tree) collect(idx int32, target spatialmath.AABB, exclude ObjectIndex, hits *[]ObjectIndex) {
	n := &t.nodes[idx]
	if !n.box.Overlaps(target) {
		return
	}
	if n.isLeaf() {
		if n.object != exclude {
			*hits = append(*hits, n.object)
		}
		return
	}
	t.collect(n.left, target, exclude, hits)
	t.collect(n.right, target, exclude, hits)
}

// Traverse walks the tree depth first, visiting a node before its left then right subtree. The
// root has depth 0. Returning false from fn skips the children of the visited node.
func (t *Tree) Traverse(fn func(n Node, depth int) bool) {
	if t.root < 0 {
		return
	}
	t.traverse(t.root, 0, fn)
}

func (t *Tree) traverse(idx int32, depth int, fn func(n Node, depth int) bool) {
	if !fn(t.view(idx), depth) {
		return
	}
	n := &t.nodes[idx]
	if n.isLeaf() {
		return
	}
	t.traverse(n.left, depth+1, fn)
	t.traverse(n.right, depth+1, fn)
}

// Layer returns the nodes exactly depth levels below the root, left to right.
func (t *Tree) Layer(depth int) []Node {
	var layer []Node
	if depth < 0 {
		return layer
	}
	t.Traverse(func(n Node, d int) bool {
		if d == depth {
			layer = append(layer, n)
			return false
		}
		return true
	})
	return layer
}

// Validate checks the structural invariants of the tree and returns every violation found.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		if t.root >= 0 || len(t.leaves) != 0 {
			return utils.NewInvalidStateError("empty tree has root %d and %d leaves", t.root, len(t.leaves))
		}
		return nil
	}
	if t.root < 0 || int(t.root) >= len(t.nodes) {
		return utils.NewInvalidStateError("root %d not in node array of %d", t.root, len(t.nodes))
	}

	var err error
	if t.nodes[t.root].parent >= 0 {
		err = multierr.Append(err, errors.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent))
	}
	if want := 2*len(t.leaves) - 1; len(t.nodes) != want {
		err = multierr.Append(err, errors.Errorf("%d nodes for %d leaves, want %d", len(t.nodes), len(t.leaves), want))
	}

	reached := 0
	t.Traverse(func(n Node, _ int) bool {
		reached++
		idx := int32(n.ID.Index())
		stored := &t.nodes[idx]
		hasLeft, hasRight := stored.left >= 0, stored.right >= 0
		if hasLeft != hasRight {
			err = multierr.Append(err, errors.Errorf("node %d has exactly one child", idx))
			return false
		}
		if stored.isLeaf() != (stored.object != NoObject) {
			err = multierr.Append(err, errors.Errorf("node %d leaf status disagrees with object %d", idx, stored.object))
		}
		if stored.isLeaf() {
			if leaf, ok := t.leaves[stored.object]; !ok || leaf != idx {
				err = multierr.Append(err, errors.Errorf("leaf %d for object %d is not registered", idx, stored.object))
			}
			return true
		}
		for _, child := range [2]int32{stored.left, stored.right} {
			if t.nodes[child].parent != idx {
				err = multierr.Append(err, errors.Errorf("node %d has child %d whose parent is %d", idx, child, t.nodes[child].parent))
			}
		}
		if union := t.nodes[stored.left].box.Union(t.nodes[stored.right].box); union != stored.box {
			err = multierr.Append(err, errors.Errorf("node %d box %v is not the union of its children %v", idx, stored.box, union))
		}
		return true
	})
	if reached != len(t.nodes) {
		err = multierr.Append(err, errors.Errorf("%d of %d nodes reachable from the root", reached, len(t.nodes)))
	}
	return err
}
