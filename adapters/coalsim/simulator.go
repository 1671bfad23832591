// Package coalsim simulates gene trees along a phylogenetic network under
// the multispecies network coalescent.
//
// Lineages move up the network from the leaves. Along every edge they
// coalesce as in Kingman's coalescent, with rate k(k-1)/2 for k lineages
// and time in coalescent units; above the root they coalesce until one is
// left. At a hybrid node each lineage picks a parent edge. The choices follow
// a Pólya urn: lineage m reuses the parent of an earlier lineage with
// probability mρ/((1-ρ)+mρ), otherwise it draws a parent edge from the γ's.
// Two lineages thus share their parent with probability γ_i(1-ρ)+ρ given the
// first one took edge i.
package coalsim

import (
	"context"
	"math"
	"math/rand"

	"github.com/evolbioinfo/gotree/tree"

	"netgof/domain/network"
	"netgof/internal/errors"
)

// Simulator implements ports.GeneTreeSimulator.
type Simulator struct{}

// NewSimulator creates a simulator
func NewSimulator() *Simulator {
	return &Simulator{}
}

type lineage struct {
	node *tree.Node
	// branch length accumulated since node was created
	pending float64
}

// Simulate draws ngenes independent gene trees. Gene-tree branch lengths
// are in coalescent units.
func (s *Simulator) Simulate(ctx context.Context, net *network.Network, ngenes int, rho float64, rng *rand.Rand) ([]*tree.Tree, error) {
	if ngenes < 1 {
		return nil, errors.InvalidInputf("number of genes must be positive, got %d", ngenes)
	}
	if math.IsNaN(rho) || rho < 0 || rho > 1 {
		return nil, errors.InvalidInputf("inheritance correlation must be in [0,1], got %g", rho)
	}
	if err := net.CheckForExpectedCF(); err != nil {
		return nil, err
	}
	order := net.Preorder()
	trees := make([]*tree.Tree, ngenes)
	for g := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.gene(net, order, rho, rng)
		if err != nil {
			return nil, err
		}
		trees[g] = t
	}
	return trees, nil
}

func (s *Simulator) gene(net *network.Network, order []int, rho float64, rng *rand.Rand) (*tree.Tree, error) {
	t := tree.NewTree()
	arriving := make([][]*lineage, net.NodeCap())
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		node := net.Node(v)
		lineages := arriving[v]
		arriving[v] = nil
		if node.Leaf {
			tip := t.NewNode()
			tip.SetName(node.Name)
			lineages = append(lineages, &lineage{node: tip})
		}
		if len(lineages) == 0 {
			continue
		}
		if v == net.Root {
			lineages = coalesce(t, lineages, math.Inf(1), rng)
			t.SetRoot(lineages[0].node)
			return t, nil
		}
		parents := net.ParentEdges(v)
		for k, group := range splitAtHybrid(net, parents, lineages, rho, rng) {
			if len(group) == 0 {
				continue
			}
			e := net.Edge(parents[k])
			arriving[e.Parent] = append(arriving[e.Parent], coalesce(t, group, e.Length, rng)...)
		}
	}
	return nil, errors.Invariantf("no lineage reached the root")
}

// splitAtHybrid assigns each lineage to one parent edge. At a tree node all
// go to the single parent edge.
func splitAtHybrid(net *network.Network, parents []int, lineages []*lineage, rho float64, rng *rand.Rand) [][]*lineage {
	groups := make([][]*lineage, len(parents))
	if len(parents) == 1 {
		groups[0] = lineages
		return groups
	}
	chosen := make([]int, len(lineages))
	for m, l := range lineages {
		fm := float64(m)
		if m > 0 && rng.Float64() < fm*rho/((1-rho)+fm*rho) {
			chosen[m] = chosen[rng.Intn(m)]
		} else {
			chosen[m] = drawParent(net, parents, rng)
		}
		groups[chosen[m]] = append(groups[chosen[m]], l)
	}
	return groups
}

// drawParent picks a parent edge index with probability γ.
func drawParent(net *network.Network, parents []int, rng *rand.Rand) int {
	u := rng.Float64()
	acc := 0.0
	for k, id := range parents {
		acc += net.Edge(id).Gamma
		if u < acc {
			return k
		}
	}
	return len(parents) - 1
}

// coalesce runs the coalescent for a duration and returns the lineages
// left at the end of it.
func coalesce(t *tree.Tree, lineages []*lineage, duration float64, rng *rand.Rand) []*lineage {
	remaining := duration
	for len(lineages) > 1 {
		k := float64(len(lineages))
		wait := rng.ExpFloat64() / (k * (k - 1) / 2)
		if wait >= remaining {
			break
		}
		remaining -= wait
		for _, l := range lineages {
			l.pending += wait
		}
		i := rng.Intn(len(lineages))
		j := rng.Intn(len(lineages) - 1)
		if j >= i {
			j++
		}
		parent := t.NewNode()
		for _, child := range []*lineage{lineages[i], lineages[j]} {
			e := t.ConnectNodes(parent, child.node)
			e.SetLength(child.pending)
		}
		if i > j {
			i, j = j, i
		}
		lineages[i] = &lineage{node: parent}
		lineages = append(lineages[:j], lineages[j+1:]...)
	}
	if !math.IsInf(remaining, 1) {
		for _, l := range lineages {
			l.pending += remaining
		}
	}
	return lineages
}
