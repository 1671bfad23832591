package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgof/internal/errors"
)

// reticulate builds root->(x,y), x->(a,h), y->(h,d), h->w, w->(b,c).
func reticulate() (*Network, map[string]int) {
	n := New()
	ids := map[string]int{}
	add := func(key string, leaf bool) int {
		name := ""
		if leaf {
			name = key
		}
		id := n.AddNode(name, leaf)
		ids[key] = id
		return id
	}
	root := add("root", false)
	n.Root = root
	x := add("x", false)
	y := add("y", false)
	h := add("h", false)
	w := add("w", false)
	n.AddEdge(root, x, 1, 1)
	n.AddEdge(root, y, 1, 1)
	n.AddEdge(x, add("a", true), 1, 1)
	n.AddEdge(x, h, 0.5, 0.6)
	n.AddEdge(y, h, 0.5, 0.4)
	n.AddEdge(y, add("d", true), 1, 1)
	n.AddEdge(h, w, 0.3, 1)
	n.AddEdge(w, add("b", true), 1, 1)
	n.AddEdge(w, add("c", true), 1, 1)
	return n, ids
}

func TestAddEdgeFlagsHybrids(t *testing.T) {
	n, ids := reticulate()
	assert.True(t, n.Node(ids["h"]).Hybrid)
	assert.False(t, n.Node(ids["w"]).Hybrid)
	for _, id := range n.ParentEdges(ids["h"]) {
		assert.True(t, n.Edge(id).Hybrid)
	}
	assert.Equal(t, 1, n.NumHybrids())
	assert.Equal(t, []int{ids["h"]}, n.Hybrids())
	assert.Equal(t, []string{"a", "b", "c", "d"}, n.Taxa())
}

func TestPreorderPutsParentsFirst(t *testing.T) {
	n, _ := reticulate()
	order := n.Preorder()
	require.Len(t, order, len(n.Nodes()))
	pos := make(map[int]int)
	for i, v := range order {
		pos[v] = i
	}
	for _, e := range n.Edges() {
		assert.Less(t, pos[e.Parent], pos[e.Child])
	}
}

func TestDescendantMasksAndClusters(t *testing.T) {
	n, ids := reticulate()
	taxa := []string{"a", "b", "c", "d"}
	masks := n.DescendantMasks(taxa)
	assert.Equal(t, uint64(0b0110), masks[ids["h"]])
	assert.Equal(t, uint64(0b0111), masks[ids["x"]])
	assert.Equal(t, uint64(0b1111), masks[ids["root"]])
	funnel := n.ChildEdges(ids["h"])[0]
	assert.Equal(t, []string{"b", "c"}, n.HardwiredCluster(funnel, taxa))
}

func TestCloneIsIndependent(t *testing.T) {
	n, ids := reticulate()
	c := n.Clone()
	require.NoError(t, c.DeleteLeaf("a"))
	require.NoError(t, c.Simplify())
	c.Edge(n.ChildEdges(ids["h"])[0]).Length = 9
	_, ok := n.LeafByName("a")
	assert.True(t, ok)
	assert.Equal(t, 0.3, n.Edge(n.ChildEdges(ids["h"])[0]).Length)
}

func TestSimplifyFusesAndDemotes(t *testing.T) {
	n, ids := reticulate()
	require.NoError(t, n.DeleteLeaf("d"))
	require.NoError(t, n.Simplify())
	// y is left with a single child h and is fused into the root edge
	assert.Nil(t, n.Node(ids["y"]))
	assert.True(t, n.Node(ids["h"]).Hybrid)

	require.NoError(t, n.DeleteHybridEdge(n.ParentEdges(ids["h"])[1]))
	require.NoError(t, n.Simplify())
	// h now has one parent and one child: demoted, then fused
	assert.Nil(t, n.Node(ids["h"]))
	assert.Equal(t, 0, n.NumHybrids())
	pe := n.ParentEdges(ids["w"])
	require.Len(t, pe, 1)
	e := n.Edge(pe[0])
	assert.Equal(t, ids["x"], e.Parent)
	assert.InDelta(t, 0.8, e.Length, 1e-12)
	assert.False(t, e.Hybrid)
}

func TestDeleteAboveLSA(t *testing.T) {
	n, ids := reticulate()
	require.NoError(t, n.DeleteLeaf("a"))
	require.NoError(t, n.DeleteLeaf("d"))
	require.NoError(t, n.Simplify())
	// x and y fuse away, leaving two parallel root edges into h
	assert.True(t, n.Node(ids["h"]).Hybrid)
	n.DeleteAboveLSA()
	assert.Equal(t, ids["w"], n.Root)
	assert.Equal(t, []string{"b", "c"}, n.Taxa())
	assert.Equal(t, 0, n.NumHybrids())
}

func TestLeastStableAncestor(t *testing.T) {
	n, ids := reticulate()
	assert.Equal(t, ids["root"], n.LeastStableAncestor())

	c := n.Clone()
	require.NoError(t, c.DeleteLeaf("a"))
	require.NoError(t, c.DeleteLeaf("d"))
	assert.Equal(t, ids["w"], c.LeastStableAncestor())
}

func TestFuseRoot(t *testing.T) {
	n, ids := reticulate()
	require.NoError(t, n.FuseRoot())
	assert.Equal(t, ids["x"], n.Root)
	assert.Nil(t, n.Node(ids["root"]))
	pe := n.ParentEdges(ids["y"])
	require.Len(t, pe, 1)
	assert.Equal(t, ids["x"], n.Edge(pe[0]).Parent)
	assert.Equal(t, 2.0, n.Edge(pe[0]).Length)
	assert.NoError(t, n.Validate())
}

func TestStripExternalBlobs(t *testing.T) {
	// d sits below a hybrid whose two parents both descend from y: the
	// reticulation cannot change any quartet
	n := New()
	root := n.AddNode("", false)
	n.Root = root
	x := n.AddNode("", false)
	y := n.AddNode("", false)
	p := n.AddNode("", false)
	q := n.AddNode("", false)
	h := n.AddNode("", false)
	n.AddEdge(root, x, 1, 1)
	n.AddEdge(root, y, 1, 1)
	n.AddEdge(x, n.AddNode("a", true), 1, 1)
	n.AddEdge(x, n.AddNode("b", true), 1, 1)
	n.AddEdge(y, n.AddNode("c", true), 1, 1)
	n.AddEdge(y, p, 0.2, 1)
	n.AddEdge(y, q, 0.3, 1)
	n.AddEdge(p, h, 0.1, 0.3)
	n.AddEdge(q, h, 0.1, 0.7)
	n.AddEdge(h, n.AddNode("d", true), 1, 1)

	stripped, err := n.StripExternalBlobs([]string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.True(t, stripped)
	assert.Equal(t, 0, n.NumHybrids())
	assert.NoError(t, n.Validate())
}

func TestShrinkEdge(t *testing.T) {
	n, ids := reticulate()
	funnel := n.ChildEdges(ids["h"])[0]
	require.NoError(t, n.ShrinkEdge(funnel))
	assert.Nil(t, n.Node(ids["w"]))
	assert.Len(t, n.ChildEdges(ids["h"]), 2)

	err := n.ShrinkEdge(n.ParentEdges(ids["h"])[0])
	assert.Equal(t, errors.CodeInvariantViolation, errors.GetCode(err))
}

func TestValidate(t *testing.T) {
	n, _ := reticulate()
	assert.NoError(t, n.Validate())
	assert.NoError(t, n.CheckForExpectedCF())

	badGamma, ids := reticulate()
	badGamma.Edge(badGamma.ParentEdges(ids["h"])[0]).Gamma = 0.9
	assert.Error(t, badGamma.Validate())

	noLength, _ := reticulate()
	noLength.Edge(0).Length = math.NaN()
	assert.NoError(t, noLength.Validate())
	assert.Error(t, noLength.CheckForExpectedCF())

	cycle, ids := reticulate()
	cycle.AddEdge(ids["w"], ids["x"], 1, 0.5)
	assert.Error(t, cycle.Validate())

	dupName, _ := reticulate()
	dupName.AddEdge(dupName.Root, dupName.AddNode("a", true), 1, 1)
	assert.Error(t, dupName.Validate())
}
