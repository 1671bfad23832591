// Package network holds the arena representation of a rooted phylogenetic
// network: nodes and edges addressed by stable integer IDs.
//
// Deleted nodes and edges leave a nil slot behind so that IDs held by a
// caller stay valid across simplification steps. Edge lengths are in
// coalescent units; a missing length or inheritance probability is NaN.
package network

import (
	"math"
	"sort"
)

// Node is a leaf, tree node or hybrid (reticulation) node.
type Node struct {
	ID     int
	Name   string
	Leaf   bool
	Hybrid bool
	edges  []int
}

// Edge is directed from Parent to Child. Gamma is the inheritance
// probability, meaningful for hybrid edges only.
type Edge struct {
	ID     int
	Parent int
	Child  int
	Length float64
	Gamma  float64
	Hybrid bool
}

// Network is a rooted directed acyclic graph.
type Network struct {
	nodes []*Node
	edges []*Edge
	Root  int
}

// New returns an empty network without a root.
func New() *Network {
	return &Network{Root: -1}
}

// AddNode appends a node and returns its ID.
func (n *Network) AddNode(name string, leaf bool) int {
	id := len(n.nodes)
	n.nodes = append(n.nodes, &Node{ID: id, Name: name, Leaf: leaf})
	return id
}

// AddEdge connects parent to child. Hybrid flags are refreshed on the child
// so that a node with two or more parent edges is a hybrid node.
func (n *Network) AddEdge(parent, child int, length, gamma float64) int {
	id := len(n.edges)
	n.edges = append(n.edges, &Edge{ID: id, Parent: parent, Child: child, Length: length, Gamma: gamma})
	n.nodes[parent].edges = append(n.nodes[parent].edges, id)
	n.nodes[child].edges = append(n.nodes[child].edges, id)
	n.refreshNode(child)
	return id
}

// Node returns the node with the given ID, or nil if it was deleted.
func (n *Network) Node(id int) *Node {
	if id < 0 || id >= len(n.nodes) {
		return nil
	}
	return n.nodes[id]
}

// Edge returns the edge with the given ID, or nil if it was deleted.
func (n *Network) Edge(id int) *Edge {
	if id < 0 || id >= len(n.edges) {
		return nil
	}
	return n.edges[id]
}

// Nodes returns the live nodes in ID order.
func (n *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(n.nodes))
	for _, v := range n.nodes {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Edges returns the live edges in ID order.
func (n *Network) Edges() []*Edge {
	out := make([]*Edge, 0, len(n.edges))
	for _, e := range n.edges {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// NodeCap is one more than the largest node ID ever allocated.
func (n *Network) NodeCap() int { return len(n.nodes) }

// Clone copies the live part of the network. IDs are preserved.
func (n *Network) Clone() *Network {
	c := &Network{
		nodes: make([]*Node, len(n.nodes)),
		edges: make([]*Edge, len(n.edges)),
		Root:  n.Root,
	}
	for i, v := range n.nodes {
		if v == nil {
			continue
		}
		cp := *v
		cp.edges = append([]int(nil), v.edges...)
		c.nodes[i] = &cp
	}
	for i, e := range n.edges {
		if e == nil {
			continue
		}
		cp := *e
		c.edges[i] = &cp
	}
	return c
}

// ParentEdges returns the IDs of edges entering v, in incidence order.
func (n *Network) ParentEdges(v int) []int {
	var out []int
	for _, id := range n.nodes[v].edges {
		if n.edges[id].Child == v {
			out = append(out, id)
		}
	}
	return out
}

// ChildEdges returns the IDs of edges leaving v, in incidence order.
func (n *Network) ChildEdges(v int) []int {
	var out []int
	for _, id := range n.nodes[v].edges {
		if n.edges[id].Parent == v {
			out = append(out, id)
		}
	}
	return out
}

// Children returns the child node IDs of v (repeated for parallel edges).
func (n *Network) Children(v int) []int {
	ce := n.ChildEdges(v)
	out := make([]int, len(ce))
	for i, id := range ce {
		out[i] = n.edges[id].Child
	}
	return out
}

// Parents returns the parent node IDs of v (repeated for parallel edges).
func (n *Network) Parents(v int) []int {
	pe := n.ParentEdges(v)
	out := make([]int, len(pe))
	for i, id := range pe {
		out[i] = n.edges[id].Parent
	}
	return out
}

// Degree is the number of edges incident to v.
func (n *Network) Degree(v int) int { return len(n.nodes[v].edges) }

// Leaves returns the live leaf nodes in ID order.
func (n *Network) Leaves() []*Node {
	var out []*Node
	for _, v := range n.nodes {
		if v != nil && v.Leaf {
			out = append(out, v)
		}
	}
	return out
}

// Taxa returns the sorted leaf names.
func (n *Network) Taxa() []string {
	leaves := n.Leaves()
	out := make([]string, len(leaves))
	for i, v := range leaves {
		out[i] = v.Name
	}
	sort.Strings(out)
	return out
}

// LeafByName finds the leaf carrying a taxon label.
func (n *Network) LeafByName(name string) (int, bool) {
	for _, v := range n.nodes {
		if v != nil && v.Leaf && v.Name == name {
			return v.ID, true
		}
	}
	return -1, false
}

// Hybrids returns the hybrid node IDs in preorder.
func (n *Network) Hybrids() []int {
	var out []int
	for _, v := range n.Preorder() {
		if n.nodes[v].Hybrid {
			out = append(out, v)
		}
	}
	return out
}

// NumHybrids counts live hybrid nodes.
func (n *Network) NumHybrids() int {
	count := 0
	for _, v := range n.nodes {
		if v != nil && v.Hybrid {
			count++
		}
	}
	return count
}

// Preorder returns node IDs such that every node comes after all of its
// parents. Ties are broken by edge incidence order, so the order only
// depends on the network itself.
func (n *Network) Preorder() []int {
	if n.Root < 0 || n.nodes[n.Root] == nil {
		return nil
	}
	indegree := make([]int, len(n.nodes))
	for _, e := range n.edges {
		if e != nil {
			indegree[e.Child]++
		}
	}
	order := make([]int, 0, len(n.nodes))
	queue := []int{n.Root}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, id := range n.ChildEdges(v) {
			w := n.edges[id].Child
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}
	return order
}

// DescendantMasks maps every node ID to a bit mask of the taxa below it:
// bit i is set when taxa[i] is a descendant. Only the first 64 taxa count.
func (n *Network) DescendantMasks(taxa []string) []uint64 {
	bit := make(map[string]uint64, len(taxa))
	for i, t := range taxa {
		if i < 64 {
			bit[t] = 1 << uint(i)
		}
	}
	masks := make([]uint64, len(n.nodes))
	order := n.Preorder()
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		node := n.nodes[v]
		if node.Leaf {
			masks[v] = bit[node.Name]
			continue
		}
		for _, w := range n.Children(v) {
			masks[v] |= masks[w]
		}
	}
	return masks
}

// HardwiredCluster returns the taxa of the given subset that lie below an
// edge, in subset order.
func (n *Network) HardwiredCluster(edge int, taxa []string) []string {
	masks := n.DescendantMasks(taxa)
	m := masks[n.edges[edge].Child]
	var out []string
	for i, t := range taxa {
		if m&(1<<uint(i)) != 0 {
			out = append(out, t)
		}
	}
	return out
}

// refreshNode keeps the hybrid flags of a node and its parent edges in
// sync with its in-degree.
func (n *Network) refreshNode(v int) {
	pe := n.ParentEdges(v)
	hybrid := len(pe) > 1
	n.nodes[v].Hybrid = hybrid
	for _, id := range pe {
		n.edges[id].Hybrid = hybrid
	}
}

// removeEdge detaches an edge from both endpoints and frees its slot.
func (n *Network) removeEdge(id int) {
	e := n.edges[id]
	n.detach(e.Parent, id)
	n.detach(e.Child, id)
	n.edges[id] = nil
}

func (n *Network) detach(v, edge int) {
	node := n.nodes[v]
	if node == nil {
		return
	}
	for i, id := range node.edges {
		if id == edge {
			node.edges = append(node.edges[:i:i], node.edges[i+1:]...)
			return
		}
	}
}

// removeNode deletes a node together with every incident edge.
func (n *Network) removeNode(v int) {
	for _, id := range append([]int(nil), n.nodes[v].edges...) {
		n.removeEdge(id)
	}
	n.nodes[v] = nil
}

func addLengths(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a + b
}
