package simulation

import (
	"go.viam.com/crowdsim/bvh"
	"go.viam.com/crowdsim/scene"
)

// A Frame is a copy of the crowd and its tree taken between ticks. It shares nothing with the
// simulation and may be handed to other goroutines.
type Frame struct {
	Tick    int64
	Objects []scene.Object
	// Nodes is the node array in storage order.
	Nodes []bvh.Node
	// Depth holds the depth below the root of each entry in Nodes.
	Depth  []int
	Root   bvh.NodeID
	Height int
	Arena  scene.Arena
}

// Snapshot copies the current state into a Frame.
func (s *Simulation) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Frame{
		Tick:    s.ticks.Load(),
		Objects: s.set.Snapshot(),
		Nodes:   s.tree.Nodes(),
		Root:    bvh.NoNode,
		Arena:   s.arena,
	}
	f.Depth = make([]int, len(f.Nodes))
	s.tree.Traverse(func(n bvh.Node, depth int) bool {
		f.Depth[n.ID.Index()] = depth
		if depth+1 > f.Height {
			f.Height = depth + 1
		}
		return true
	})
	if root, err := s.tree.Root(); err == nil {
		f.Root = root
	}
	return f
}

// Layer returns the nodes exactly depth levels below the root, in storage order.
func (f Frame) Layer(depth int) []bvh.Node {
	var layer []bvh.Node
	for i, n := range f.Nodes {
		if f.Depth[i] == depth {
			layer = append(layer, n)
		}
	}
	return layer
}

// Leaves returns the leaf nodes in storage order.
func (f Frame) Leaves() []bvh.Node {
	var leaves []bvh.Node
	for _, n := range f.Nodes {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}
