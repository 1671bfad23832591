package network

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"

	"netgof/internal/errors"
)

// DeleteLeaf removes a leaf and its parent edge. The parent node is left as
// is; call Simplify to prune and fuse what the deletion exposed.
func (n *Network) DeleteLeaf(name string) error {
	v, ok := n.LeafByName(name)
	if !ok {
		return errors.InvalidInputf("taxon %q not found in network", name)
	}
	if v == n.Root {
		return errors.InvalidInputf("cannot delete leaf %q: it is the root", name)
	}
	n.removeNode(v)
	return nil
}

// Simplify repeats until nothing changes:
//   - non-leaf nodes without children are deleted with their parent edges,
//   - a hybrid node left with one parent becomes a tree node (γ=1),
//   - a non-root tree node with one parent and one child is fused away,
//     the two lengths adding up,
//   - a root with a single child edge hands the root to that child.
func (n *Network) Simplify() error {
	for changed := true; changed; {
		changed = false
		for _, v := range n.nodes {
			if v == nil {
				continue
			}
			done, err := n.simplifyNode(v.ID)
			if err != nil {
				return err
			}
			changed = changed || done
		}
	}
	return nil
}

func (n *Network) simplifyNode(v int) (bool, error) {
	node := n.nodes[v]
	pe := n.ParentEdges(v)
	ce := n.ChildEdges(v)

	if !node.Leaf && len(ce) == 0 {
		if v == n.Root {
			return false, errors.Invariantf("root node %d has no descendants", v)
		}
		n.removeNode(v)
		return true, nil
	}
	if node.Hybrid && len(pe) < 2 {
		node.Hybrid = false
		for _, id := range pe {
			n.edges[id].Hybrid = false
			n.edges[id].Gamma = 1
		}
		return true, nil
	}
	if v == n.Root {
		if len(ce) == 1 && len(pe) == 0 {
			n.Root = n.edges[ce[0]].Child
			n.removeNode(v)
			n.refreshNode(n.Root)
			return true, nil
		}
		return false, nil
	}
	if !node.Leaf && !node.Hybrid && len(pe) == 1 && len(ce) == 1 {
		n.fuse(v, pe[0], ce[0])
		return true, nil
	}
	return false, nil
}

// fuse removes the degree-2 node v. The child edge takes over the position
// of the parent edge at the grandparent and keeps its hybrid status.
func (n *Network) fuse(v, parentEdge, childEdge int) {
	ep := n.edges[parentEdge]
	ec := n.edges[childEdge]
	u := ep.Parent
	ec.Length = addLengths(ep.Length, ec.Length)
	for i, id := range n.nodes[u].edges {
		if id == parentEdge {
			n.nodes[u].edges[i] = childEdge
			break
		}
	}
	n.detach(v, childEdge)
	ec.Parent = u
	n.edges[parentEdge] = nil
	n.nodes[v] = nil
}

// LeastStableAncestor returns the lowest node lying on every path from the
// root to a leaf.
func (n *Network) LeastStableAncestor() int {
	order := n.Preorder()
	size := uint(len(n.nodes))
	dom := make([]*bitset.BitSet, len(n.nodes))
	for _, v := range order {
		parents := n.Parents(v)
		var d *bitset.BitSet
		if len(parents) == 0 {
			d = bitset.New(size)
		} else {
			d = dom[parents[0]].Clone()
			for _, p := range parents[1:] {
				d.InPlaceIntersection(dom[p])
			}
		}
		d.Set(uint(v))
		dom[v] = d
	}
	var common *bitset.BitSet
	for _, leaf := range n.Leaves() {
		if dom[leaf.ID] == nil {
			continue
		}
		if common == nil {
			common = dom[leaf.ID].Clone()
		} else {
			common.InPlaceIntersection(dom[leaf.ID])
		}
	}
	lsa := n.Root
	if common == nil {
		return lsa
	}
	for _, v := range order {
		if common.Test(uint(v)) {
			lsa = v
		}
	}
	return lsa
}

// DeleteAboveLSA makes the least stable ancestor the root and deletes
// everything that is not below it.
func (n *Network) DeleteAboveLSA() {
	lsa := n.LeastStableAncestor()
	if lsa == n.Root {
		return
	}
	below := make([]bool, len(n.nodes))
	stack := []int{lsa}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if below[v] {
			continue
		}
		below[v] = true
		stack = append(stack, n.Children(v)...)
	}
	for _, v := range n.nodes {
		if v != nil && !below[v.ID] {
			n.removeNode(v.ID)
		}
	}
	n.Root = lsa
	n.refreshNode(lsa)
}

// FuseRoot removes a root of degree 2: the root moves to a child tree node
// and the two root edges become one edge with the summed length. Quartet
// concordance factors only depend on the semidirected network, so this
// does not change them.
func (n *Network) FuseRoot() error {
	ce := n.ChildEdges(n.Root)
	if len(ce) != 2 || len(n.ParentEdges(n.Root)) != 0 {
		return nil
	}
	keep, drop := -1, -1
	for i, id := range ce {
		w := n.nodes[n.edges[id].Child]
		if !w.Leaf && !w.Hybrid {
			drop, keep = id, ce[1-i]
			break
		}
	}
	if drop < 0 {
		return errors.Invariantf("degree-2 root %d has no tree-node child to carry the root", n.Root)
	}
	old := n.Root
	w := n.edges[drop].Child
	ek := n.edges[keep]
	ek.Length = addLengths(ek.Length, n.edges[drop].Length)
	n.removeEdge(drop)
	n.detach(old, keep)
	ek.Parent = w
	n.nodes[w].edges = append(n.nodes[w].edges, keep)
	n.nodes[old] = nil
	n.Root = w
	return nil
}

// StripExternalBlobs deletes reticulations that cannot change a quartet:
// a hybrid node whose only descendant taxon is a single leaf, and whose
// ancestors carrying that same single taxon all exit into one node, keeps
// its major parent edge only. Whichever parent the lone lineage takes, it
// reaches that exit node without meeting another lineage.
func (n *Network) StripExternalBlobs(taxa []string) (bool, error) {
	stripped := false
	for again := true; again; {
		again = false
		masks := n.DescendantMasks(taxa)
		for _, h := range n.Hybrids() {
			if bits.OnesCount64(masks[h]) != 1 {
				continue
			}
			if len(n.blobExits(h, masks)) != 1 {
				continue
			}
			major := n.MajorParentEdge(h)
			for _, id := range n.ParentEdges(h) {
				if id != major {
					n.removeEdge(id)
				}
			}
			if err := n.Simplify(); err != nil {
				return stripped, err
			}
			stripped, again = true, true
			break
		}
	}
	return stripped, nil
}

// blobExits walks up from h through nodes with the same descendant mask
// and collects the first ancestors with a larger one.
func (n *Network) blobExits(h int, masks []uint64) map[int]bool {
	exits := map[int]bool{}
	seen := map[int]bool{h: true}
	stack := n.Parents(h)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v] {
			continue
		}
		seen[v] = true
		if masks[v] != masks[h] {
			exits[v] = true
			continue
		}
		stack = append(stack, n.Parents(v)...)
	}
	return exits
}

// MajorParentEdge returns the parent edge of v with the largest γ, the
// first one in incidence order on ties.
func (n *Network) MajorParentEdge(v int) int {
	best := -1
	for _, id := range n.ParentEdges(v) {
		if best < 0 || n.edges[id].Gamma > n.edges[best].Gamma {
			best = id
		}
	}
	return best
}

// DeleteHybridEdge removes a hybrid edge. Call Simplify afterwards.
func (n *Network) DeleteHybridEdge(id int) error {
	e := n.Edge(id)
	if e == nil {
		return errors.Invariantf("edge %d does not exist", id)
	}
	if !e.Hybrid {
		return errors.Invariantf("edge %d is not a hybrid edge", id)
	}
	n.removeEdge(id)
	return nil
}

// MoveChildEdge re-attaches the parent end of an edge to another node.
func (n *Network) MoveChildEdge(id, newParent int) {
	e := n.edges[id]
	n.detach(e.Parent, id)
	e.Parent = newParent
	n.nodes[newParent].edges = append(n.nodes[newParent].edges, id)
}

// ShrinkEdge contracts a tree edge: the child's children move up to the
// parent and the child node disappears.
func (n *Network) ShrinkEdge(id int) error {
	e := n.Edge(id)
	if e == nil {
		return errors.Invariantf("edge %d does not exist", id)
	}
	w := n.nodes[e.Child]
	if w.Leaf || w.Hybrid {
		return errors.Invariantf("cannot shrink edge %d: child %d is not an internal tree node", id, w.ID)
	}
	u := e.Parent
	for _, c := range n.ChildEdges(w.ID) {
		n.MoveChildEdge(c, u)
	}
	n.removeEdge(id)
	n.nodes[w.ID] = nil
	return nil
}
