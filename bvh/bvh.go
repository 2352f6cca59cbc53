// Package bvh implements a dynamic bounding volume hierarchy over a fixed set of moving objects.
// The tree is a binary tree of axis-aligned boxes stored in a flat node array. Leaves carry the
// index of the object they bound; every internal node bounds the union of its two children.
//
// Trees are built by inserting objects one at a time in index order, attaching each new leaf to
// the node that grows the least when merged with it. A tree can be rebuilt wholesale from a new
// object state, or kept and refit leaf by leaf as objects move.
//
// A Tree is not safe for concurrent use. Readers on other goroutines should work from the copy
// returned by Nodes.
package bvh

import (
	"fmt"

	"go.uber.org/atomic"

	"go.viam.com/crowdsim/spatialmath"
)

// ObjectIndex is the position of an object in the set a tree was built from.
type ObjectIndex int

// NoObject marks a node that does not bound an object, i.e. an internal node.
const NoObject ObjectIndex = -1

// NodeID is a handle to a node of one generation of one tree. Every build or rebuild starts a new
// generation, and handles from any other generation are rejected.
type NodeID struct {
	index int32
	gen   uint32
}

// NoNode marks a missing parent or child.
var NoNode = NodeID{index: -1}

// generations is shared by all trees so a handle from one tree never resolves in another.
var generations = atomic.NewUint32(0)

func nextGeneration() uint32 {
	return generations.Inc()
}

// Index returns the position of the node in the node array, or -1 for NoNode.
func (id NodeID) Index() int {
	return int(id.index)
}

// Generation returns the tree generation that issued the handle.
func (id NodeID) Generation() uint32 {
	return id.gen
}

// IsNone reports whether the handle is NoNode.
func (id NodeID) IsNone() bool {
	return id.index < 0
}

func (id NodeID) String() string {
	if id.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%d@%d", id.index, id.gen)
}

// Node is a read-only view of one tree node.
type Node struct {
	ID     NodeID
	Box    spatialmath.AABB
	Parent NodeID
	Left   NodeID
	Right  NodeID
	Object ObjectIndex
}

// IsLeaf reports whether the node bounds an object.
func (n Node) IsLeaf() bool {
	return n.Object != NoObject
}

// Source is the object set a tree indexes. Objects are addressed by index in [0, Len()).
type Source interface {
	Len() int
	BoundsOf(i int) spatialmath.AABB
}

// node is the stored form of a Node; links are plain indices valid for the current generation.
type node struct {
	box    spatialmath.AABB
	parent int32
	left   int32
	right  int32
	object ObjectIndex
}

func (n *node) isLeaf() bool {
	return n.left < 0 && n.right < 0
}
