package bvh

import (
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/logging"
	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

// Tree is a bounding volume hierarchy stored in a flat node array.
type Tree struct {
	logger logging.Logger
	nodes  []node
	root   int32
	gen    uint32
	leaves map[ObjectIndex]int32
}

// New returns an empty tree. Objects are added with Insert.
func New(logger logging.Logger) *Tree {
	return &Tree{
		logger: logger,
		root:   -1,
		gen:    nextGeneration(),
		leaves: map[ObjectIndex]int32{},
	}
}

// Build creates a tree over every object in src, inserting them in index order. The first object
// becomes the root leaf. An empty source yields an empty tree.
func Build(src Source, logger logging.Logger) (*Tree, error) {
	tree := New(logger)
	if err := tree.Rebuild(src); err != nil {
		return nil, err
	}
	return tree, nil
}

// Rebuild discards every node and inserts the objects of src again. All previously issued
// NodeIDs become stale. If any box of src is degenerate the tree is left as it was.
func (t *Tree) Rebuild(src Source) error {
	n := src.Len()
	for i := 0; i < n; i++ {
		if err := src.BoundsOf(i).Validate(); err != nil {
			return errors.Wrapf(err, "error building tree at object %d", i)
		}
	}
	t.gen = nextGeneration()
	t.root = -1
	if cap(t.nodes) < 2*n-1 {
		t.nodes = make([]node, 0, 2*n-1)
	} else {
		t.nodes = t.nodes[:0]
	}
	t.leaves = make(map[ObjectIndex]int32, n)

	for i := 0; i < n; i++ {
		if _, err := t.Insert(ObjectIndex(i), src.BoundsOf(i)); err != nil {
			return errors.Wrapf(err, "error building tree at object %d", i)
		}
	}
	t.logger.Debugw("rebuilt tree", "objects", n, "nodes", len(t.nodes), "generation", t.gen)
	return nil
}

// Insert adds a leaf for obj. The leaf is paired with the node found by FindClosestNode from the
// root under a new internal node bounding both, and every ancestor is refit.
func (t *Tree) Insert(obj ObjectIndex, box spatialmath.AABB) (NodeID, error) {
	if obj < 0 {
		return NoNode, errors.Wrapf(utils.ErrIndexOutOfRange, "object index %d is negative", obj)
	}
	if _, exists := t.leaves[obj]; exists {
		return NoNode, utils.NewInvalidStateError("object %d is already in the tree", obj)
	}
	if err := box.Validate(); err != nil {
		return NoNode, errors.Wrapf(err, "cannot insert object %d", obj)
	}

	leaf := t.push(node{box: box, parent: -1, left: -1, right: -1, object: obj})
	t.leaves[obj] = leaf
	if t.root < 0 {
		t.root = leaf
		return t.id(leaf), nil
	}

	sibling := t.findClosest(box, t.root)
	oldParent := t.nodes[sibling].parent
	branch := t.push(node{
		box:    t.nodes[sibling].box.Union(box),
		parent: oldParent,
		left:   sibling,
		right:  leaf,
		object: NoObject,
	})
	t.nodes[sibling].parent = branch
	t.nodes[leaf].parent = branch

	if oldParent < 0 {
		t.root = branch
	} else {
		if t.nodes[oldParent].left == sibling {
			t.nodes[oldParent].left = branch
		} else {
			t.nodes[oldParent].right = branch
		}
		t.refit(oldParent)
	}
	return t.id(leaf), nil
}

// FindClosestNode descends from start and returns the leaf where target should attach. At each
// internal node it follows the child whose union with target grows its volume the least; ties
// go to the smaller growth in half perimeter, then to the left child.
func (t *Tree) FindClosestNode(target spatialmath.AABB, start NodeID) (NodeID, error) {
	if len(t.nodes) == 0 {
		return NoNode, utils.NewInvalidStateError("closest node search on an empty tree")
	}
	idx, err := t.resolve(start)
	if err != nil {
		return NoNode, err
	}
	return t.id(t.findClosest(target, idx)), nil
}

func (t *Tree) findClosest(target spatialmath.AABB, idx int32) int32 {
	for {
		n := &t.nodes[idx]
		if n.isLeaf() {
			return idx
		}
		left, right := &t.nodes[n.left], &t.nodes[n.right]
		lVol, lPer := growth(left.box, target)
		rVol, rPer := growth(right.box, target)
		switch {
		case lVol < rVol:
			idx = n.left
		case rVol < lVol:
			idx = n.right
		case rPer < lPer:
			idx = n.right
		default:
			idx = n.left
		}
	}
}

// growth returns how much the volume and half perimeter of box increase when merged with target.
func growth(box, target spatialmath.AABB) (float64, float64) {
	merged := box.Union(target)
	return merged.Volume() - box.Volume(), merged.HalfPerimeter() - box.HalfPerimeter()
}

// RefitAncestors recomputes the box of id, if it is internal, and of each ancestor as the union
// of its children. The walk stops at the first node whose box does not change.
func (t *Tree) RefitAncestors(id NodeID) error {
	idx, err := t.resolve(id)
	if err != nil {
		return err
	}
	if t.nodes[idx].isLeaf() {
		idx = t.nodes[idx].parent
	}
	t.refit(idx)
	return nil
}

func (t *Tree) refit(idx int32) {
	for idx >= 0 {
		n := &t.nodes[idx]
		box := t.nodes[n.left].box.Union(t.nodes[n.right].box)
		if box == n.box {
			return
		}
		n.box = box
		idx = n.parent
	}
}

// UpdateLeaf replaces the box of the leaf bounding obj and refits its ancestors. The tree shape
// is kept, so handles stay valid.
func (t *Tree) UpdateLeaf(obj ObjectIndex, box spatialmath.AABB) error {
	idx, ok := t.leaves[obj]
	if !ok {
		return utils.NewIndexOutOfRangeError("object", int(obj), len(t.leaves))
	}
	if err := box.Validate(); err != nil {
		return errors.Wrapf(err, "cannot update object %d", obj)
	}
	if t.nodes[idx].box == box {
		return nil
	}
	t.nodes[idx].box = box
	t.refit(t.nodes[idx].parent)
	return nil
}

// Root returns the root node handle.
func (t *Tree) Root() (NodeID, error) {
	if t.root < 0 {
		return NoNode, utils.NewInvalidStateError("tree is empty")
	}
	return t.id(t.root), nil
}

// Node returns a view of the node behind id.
func (t *Tree) Node(id NodeID) (Node, error) {
	idx, err := t.resolve(id)
	if err != nil {
		return Node{}, err
	}
	return t.view(idx), nil
}

// Leaf returns the handle of the leaf bounding obj.
func (t *Tree) Leaf(obj ObjectIndex) (NodeID, error) {
	idx, ok := t.leaves[obj]
	if !ok {
		return NoNode, utils.NewIndexOutOfRangeError("object", int(obj), len(t.leaves))
	}
	return t.id(idx), nil
}

// Nodes returns a copy of the node array in storage order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	for i := range t.nodes {
		out[i] = t.view(int32(i))
	}
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// LeafCount returns the number of objects in the tree.
func (t *Tree) LeafCount() int {
	return len(t.leaves)
}

// Generation returns the generation that handles must carry to resolve.
func (t *Tree) Generation() uint32 {
	return t.gen
}

// Height returns the number of nodes on the longest root to leaf path, 0 for an empty tree.
func (t *Tree) Height() int {
	height := 0
	t.Traverse(func(_ Node, depth int) bool {
		if depth+1 > height {
			height = depth + 1
		}
		return true
	})
	return height
}

func (t *Tree) push(n node) int32 {
	t.nodes = append(t.nodes, n)
	return int32(len(t.nodes) - 1)
}

func (t *Tree) id(idx int32) NodeID {
	if idx < 0 {
		return NoNode
	}
	return NodeID{index: idx, gen: t.gen}
}

func (t *Tree) view(idx int32) Node {
	n := &t.nodes[idx]
	return Node{
		ID:     t.id(idx),
		Box:    n.box,
		Parent: t.id(n.parent),
		Left:   t.id(n.left),
		Right:  t.id(n.right),
		Object: n.object,
	}
}

func (t *Tree) resolve(id NodeID) (int32, error) {
	if id.IsNone() {
		return -1, errors.Wrap(utils.ErrIndexOutOfRange, "no node")
	}
	if id.gen != t.gen {
		return -1, utils.NewStaleIndexError("node", int(id.index), id.gen, t.gen)
	}
	if int(id.index) >= len(t.nodes) {
		return -1, utils.NewIndexOutOfRangeError("node", int(id.index), len(t.nodes))
	}
	return id.index, nil
}
