package network

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"netgof/internal/errors"
)

const gammaSumTolerance = 1e-8

// Validate checks the structural invariants of a rooted network: a single
// root without parents, no cycles, unique non-empty leaf labels, leaves
// without children and with one parent, and hybrid γ's summing to 1.
func (n *Network) Validate() error {
	if n.Node(n.Root) == nil {
		return errors.InvalidInput("network has no root")
	}
	g := simple.NewDirectedGraph()
	for _, v := range n.Nodes() {
		g.AddNode(simple.Node(int64(v.ID)))
	}
	for _, e := range n.Edges() {
		if e.Parent == e.Child {
			return errors.InvalidInputf("edge %d is a self loop on node %d", e.ID, e.Parent)
		}
		if g.HasEdgeFromTo(int64(e.Parent), int64(e.Child)) {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(e.Parent)), simple.Node(int64(e.Child))))
	}
	if _, err := topo.Sort(g); err != nil {
		return errors.InvalidInputf("network is not acyclic: %v", err)
	}

	names := make(map[string]bool)
	for _, v := range n.Nodes() {
		pe := n.ParentEdges(v.ID)
		if v.ID != n.Root && len(pe) == 0 {
			return errors.InvalidInputf("node %d has no parent but is not the root", v.ID)
		}
		if v.ID == n.Root && len(pe) > 0 {
			return errors.InvalidInputf("root node %d has a parent edge", v.ID)
		}
		if !v.Leaf {
			continue
		}
		if v.Name == "" {
			return errors.InvalidInputf("leaf node %d has no taxon label", v.ID)
		}
		if names[v.Name] {
			return errors.InvalidInputf("taxon %q labels more than one leaf", v.Name)
		}
		names[v.Name] = true
		if len(n.ChildEdges(v.ID)) > 0 {
			return errors.InvalidInputf("leaf %q has child edges", v.Name)
		}
		if v.ID != n.Root && len(pe) != 1 {
			return errors.InvalidInputf("leaf %q must have exactly one parent edge, found %d", v.Name, len(pe))
		}
	}

	for _, h := range n.Nodes() {
		if !h.Hybrid {
			continue
		}
		sum := 0.0
		missing := false
		for _, id := range n.ParentEdges(h.ID) {
			g := n.edges[id].Gamma
			if math.IsNaN(g) {
				missing = true
				break
			}
			sum += g
		}
		if !missing && math.Abs(sum-1) > gammaSumTolerance {
			return errors.InvalidInputf("inheritance probabilities into hybrid node %d sum to %g, not 1", h.ID, sum)
		}
	}
	return nil
}

// CheckForExpectedCF validates the network and requires everything the
// concordance-factor computation reads: the root is not a leaf, every edge
// length is present and non-negative, and every hybrid γ is present and in
// [0,1].
func (n *Network) CheckForExpectedCF() error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.nodes[n.Root].Leaf {
		return errors.InvalidInput("the root of the network is a leaf")
	}
	for _, e := range n.Edges() {
		if math.IsNaN(e.Length) {
			return errors.InvalidInputf("edge %d (%d->%d) has a missing length", e.ID, e.Parent, e.Child)
		}
		if e.Length < 0 {
			return errors.InvalidInputf("edge %d (%d->%d) has negative length %g", e.ID, e.Parent, e.Child, e.Length)
		}
		if e.Hybrid {
			if math.IsNaN(e.Gamma) {
				return errors.InvalidInputf("hybrid edge %d (%d->%d) has a missing inheritance probability", e.ID, e.Parent, e.Child)
			}
			if e.Gamma < 0 || e.Gamma > 1 {
				return errors.InvalidInputf("hybrid edge %d has inheritance probability %g outside [0,1]", e.ID, e.Gamma)
			}
		}
	}
	return nil
}
