package bvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/crowdsim/logging"
	"go.viam.com/crowdsim/spatialmath"
	"go.viam.com/crowdsim/utils"
)

type boxSource []spatialmath.AABB

func (s boxSource) Len() int                        { return len(s) }
func (s boxSource) BoundsOf(i int) spatialmath.AABB { return s[i] }

func cube(x, y, z, half float64) spatialmath.AABB {
	box, err := spatialmath.NewAABBFromCenter(r3.Vector{X: x, Y: y, Z: z}, r3.Vector{X: half, Y: half, Z: half})
	if err != nil {
		panic(err)
	}
	return box
}

func randomSource(rnd *rand.Rand, n int) boxSource {
	src := make(boxSource, n)
	for i := range src {
		center := r3.Vector{X: rnd.Float64()*100 - 50, Y: rnd.Float64()*100 - 50, Z: rnd.Float64()*10 - 5}
		half := r3.Vector{X: 0.5 + rnd.Float64()*4, Y: 0.5 + rnd.Float64()*4, Z: 0.5 + rnd.Float64()}
		box, err := spatialmath.NewAABBFromCenter(center, half)
		if err != nil {
			panic(err)
		}
		src[i] = box
	}
	return src
}

func bruteOverlaps(src boxSource, target spatialmath.AABB, exclude ObjectIndex) []ObjectIndex {
	var hits []ObjectIndex
	for i, box := range src {
		if ObjectIndex(i) != exclude && box.Overlaps(target) {
			hits = append(hits, ObjectIndex(i))
		}
	}
	return hits
}

func checkStructure(t *testing.T, tree *Tree) {
	t.Helper()
	test.That(t, tree.Validate(), test.ShouldBeNil)
	nodes := tree.Nodes()
	for _, n := range nodes {
		leafByChildren := n.Left.IsNone() && n.Right.IsNone()
		test.That(t, leafByChildren, test.ShouldEqual, n.IsLeaf())
		test.That(t, n.Object != NoObject, test.ShouldEqual, n.IsLeaf())
		if n.IsLeaf() {
			continue
		}
		left, right := nodes[n.Left.Index()], nodes[n.Right.Index()]
		test.That(t, n.Box, test.ShouldResemble, left.Box.Union(right.Box))
		test.That(t, left.Parent, test.ShouldResemble, n.ID)
		test.That(t, right.Parent, test.ShouldResemble, n.ID)
	}
}

func TestBuild(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("empty source", func(t *testing.T) {
		tree, err := Build(boxSource{}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tree.Len(), test.ShouldEqual, 0)
		test.That(t, tree.Height(), test.ShouldEqual, 0)
		test.That(t, tree.Validate(), test.ShouldBeNil)

		_, err = tree.Root()
		test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)
		_, err = tree.FindClosestNode(cube(0, 0, 0, 1), NoNode)
		test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)
		_, err = tree.QueryOverlaps(cube(0, 0, 0, 1), NoObject)
		test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)
		test.That(t, tree.Layer(0), test.ShouldBeEmpty)
	})

	t.Run("single object", func(t *testing.T) {
		tree, err := Build(boxSource{cube(1, 2, 3, 1)}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tree.Len(), test.ShouldEqual, 1)
		test.That(t, tree.Height(), test.ShouldEqual, 1)

		root, err := tree.Root()
		test.That(t, err, test.ShouldBeNil)
		n, err := tree.Node(root)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, n.IsLeaf(), test.ShouldBeTrue)
		test.That(t, n.Object, test.ShouldEqual, ObjectIndex(0))
		test.That(t, n.Parent.IsNone(), test.ShouldBeTrue)
		test.That(t, n.Box, test.ShouldResemble, cube(1, 2, 3, 1))

		closest, err := tree.FindClosestNode(cube(50, 50, 50, 1), root)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, closest, test.ShouldResemble, root)
		checkStructure(t, tree)
	})

	t.Run("random sets", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(3))
		for _, n := range []int{2, 3, 10, 64, 257} {
			src := randomSource(rnd, n)
			tree, err := Build(src, logger)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, tree.Len(), test.ShouldEqual, 2*n-1)
			test.That(t, tree.LeafCount(), test.ShouldEqual, n)
			checkStructure(t, tree)

			for i := range src {
				leaf, err := tree.Leaf(ObjectIndex(i))
				test.That(t, err, test.ShouldBeNil)
				node, err := tree.Node(leaf)
				test.That(t, err, test.ShouldBeNil)
				test.That(t, node.Object, test.ShouldEqual, ObjectIndex(i))
				test.That(t, node.Box, test.ShouldResemble, src[i])
			}
		}
	})

	t.Run("degenerate box", func(t *testing.T) {
		bad := spatialmath.AABB{Min: r3.Vector{X: 1}, Max: r3.Vector{X: -1}}
		_, err := Build(boxSource{cube(0, 0, 0, 1), bad}, logger)
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})
}

func TestInsert(t *testing.T) {
	logger := logging.NewTestLogger(t)
	tree := New(logger)

	first, err := tree.Insert(0, cube(0, 0, 0, 1))
	test.That(t, err, test.ShouldBeNil)
	root, err := tree.Root()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root, test.ShouldResemble, first)

	second, err := tree.Insert(1, cube(10, 0, 0, 1))
	test.That(t, err, test.ShouldBeNil)
	root, err = tree.Root()
	test.That(t, err, test.ShouldBeNil)
	rootNode, err := tree.Node(root)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rootNode.IsLeaf(), test.ShouldBeFalse)
	test.That(t, rootNode.Left, test.ShouldResemble, first)
	test.That(t, rootNode.Right, test.ShouldResemble, second)
	test.That(t, rootNode.Box, test.ShouldResemble, cube(0, 0, 0, 1).Union(cube(10, 0, 0, 1)))
	checkStructure(t, tree)

	t.Run("duplicate object", func(t *testing.T) {
		_, err := tree.Insert(1, cube(3, 3, 3, 1))
		test.That(t, errors.Is(err, utils.ErrInvalidState), test.ShouldBeTrue)
	})

	t.Run("negative object", func(t *testing.T) {
		_, err := tree.Insert(NoObject, cube(3, 3, 3, 1))
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	})

	t.Run("refits every ancestor", func(t *testing.T) {
		_, err := tree.Insert(2, cube(-40, 30, 5, 2))
		test.That(t, err, test.ShouldBeNil)
		_, err = tree.Insert(3, cube(11, 1, 0, 1))
		test.That(t, err, test.ShouldBeNil)
		checkStructure(t, tree)
		root, err := tree.Root()
		test.That(t, err, test.ShouldBeNil)
		rootNode, err := tree.Node(root)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rootNode.Box.Contains(cube(-40, 30, 5, 2)), test.ShouldBeTrue)
		test.That(t, rootNode.Box.Contains(cube(11, 1, 0, 1)), test.ShouldBeTrue)
	})
}

func TestFindClosestNode(t *testing.T) {
	logger := logging.NewTestLogger(t)
	tree, err := Build(boxSource{cube(0, 0, 0, 0.5), cube(4, 0, 0, 0.5)}, logger)
	test.That(t, err, test.ShouldBeNil)
	root, err := tree.Root()
	test.That(t, err, test.ShouldBeNil)
	left, err := tree.Leaf(0)
	test.That(t, err, test.ShouldBeNil)
	right, err := tree.Leaf(1)
	test.That(t, err, test.ShouldBeNil)

	t.Run("smaller volume growth", func(t *testing.T) {
		closest, err := tree.FindClosestNode(cube(3.5, 0, 0, 0.5), root)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, closest, test.ShouldResemble, right)
	})

	t.Run("ties go left", func(t *testing.T) {
		closest, err := tree.FindClosestNode(cube(2, 0, 0, 0.5), root)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, closest, test.ShouldResemble, left)
	})

	t.Run("start at a leaf", func(t *testing.T) {
		closest, err := tree.FindClosestNode(cube(100, 0, 0, 0.5), left)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, closest, test.ShouldResemble, left)
	})

	t.Run("bad start", func(t *testing.T) {
		_, err := tree.FindClosestNode(cube(0, 0, 0, 1), NoNode)
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
		_, err = tree.FindClosestNode(cube(0, 0, 0, 1), NodeID{index: 99, gen: tree.Generation()})
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	})
}

func TestRebuildInvalidatesHandles(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rnd := rand.New(rand.NewSource(11))
	src := randomSource(rnd, 20)
	tree, err := Build(src, logger)
	test.That(t, err, test.ShouldBeNil)

	oldRoot, err := tree.Root()
	test.That(t, err, test.ShouldBeNil)
	oldLeaf, err := tree.Leaf(5)
	test.That(t, err, test.ShouldBeNil)
	oldGen := tree.Generation()

	test.That(t, tree.Rebuild(src), test.ShouldBeNil)
	test.That(t, tree.Generation(), test.ShouldNotEqual, oldGen)

	_, err = tree.Node(oldRoot)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	_, err = tree.FindClosestNode(src[0], oldLeaf)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	test.That(t, tree.RefitAncestors(oldLeaf), test.ShouldNotBeNil)
	_, err = tree.QueryOverlapsFrom(oldRoot, src[0], NoObject)
	test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)

	newRoot, err := tree.Root()
	test.That(t, err, test.ShouldBeNil)
	_, err = tree.Node(newRoot)
	test.That(t, err, test.ShouldBeNil)

	t.Run("degenerate source keeps the tree", func(t *testing.T) {
		bad := append(boxSource{}, src...)
		bad[7] = spatialmath.AABB{Min: r3.Vector{X: math.Inf(-1)}, Max: r3.Vector{X: math.NaN()}}
		gen := tree.Generation()
		err := tree.Rebuild(bad)
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
		test.That(t, tree.Generation(), test.ShouldEqual, gen)
		test.That(t, tree.LeafCount(), test.ShouldEqual, 20)
		_, err = tree.Node(newRoot)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tree.Validate(), test.ShouldBeNil)
	})

	t.Run("handles from another tree", func(t *testing.T) {
		other, err := Build(src, logger)
		test.That(t, err, test.ShouldBeNil)
		otherRoot, err := other.Root()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, otherRoot.Index(), test.ShouldEqual, newRoot.Index())
		_, err = tree.Node(otherRoot)
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	})
}

func TestUpdateLeaf(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rnd := rand.New(rand.NewSource(5))
	src := randomSource(rnd, 40)
	tree, err := Build(src, logger)
	test.That(t, err, test.ShouldBeNil)
	gen := tree.Generation()

	moved := randomSource(rnd, len(src))
	for i, box := range moved {
		test.That(t, tree.UpdateLeaf(ObjectIndex(i), box), test.ShouldBeNil)
	}
	test.That(t, tree.Generation(), test.ShouldEqual, gen)
	checkStructure(t, tree)

	for i, box := range moved {
		got, err := tree.QueryOverlaps(box, ObjectIndex(i))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldResemble, bruteOverlaps(moved, box, ObjectIndex(i)))
	}

	t.Run("unknown object", func(t *testing.T) {
		err := tree.UpdateLeaf(ObjectIndex(len(src)), cube(0, 0, 0, 1))
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
		_, err = tree.Leaf(ObjectIndex(len(src)))
		test.That(t, errors.Is(err, utils.ErrIndexOutOfRange), test.ShouldBeTrue)
	})

	t.Run("degenerate box", func(t *testing.T) {
		err := tree.UpdateLeaf(0, spatialmath.AABB{Min: r3.Vector{Y: 2}, Max: r3.Vector{Y: 1}})
		test.That(t, errors.Is(err, utils.ErrDegenerateGeometry), test.ShouldBeTrue)
	})

	t.Run("refit from any node is a no-op on a consistent tree", func(t *testing.T) {
		before := tree.Nodes()
		for _, n := range before {
			test.That(t, tree.RefitAncestors(n.ID), test.ShouldBeNil)
		}
		test.That(t, tree.Nodes(), test.ShouldResemble, before)
	})
}
