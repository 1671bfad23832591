// Package expectedcf computes expected quartet concordance factors of a
// phylogenetic network under the multispecies network coalescent.
//
// The network is restricted to the four taxa of interest and simplified.
// The lowest hybrid node is then resolved by conditioning on the parent
// edges taken by the lineages below it, which yields simpler networks with
// one reticulation less. Once no reticulation separates the four taxa the
// concordance factors follow from the length of the internal path.
package expectedcf

import (
	"math"
	"math/bits"

	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/errors"
)

// CheckCorrelation validates an inheritance correlation.
func CheckCorrelation(rho float64) error {
	if math.IsNaN(rho) || rho < 0 || rho > 1 {
		return errors.InvalidInputf("inheritance correlation must be in [0,1], got %g", rho)
	}
	return nil
}

// ExpectedCF returns the three concordance factors of fourTaxa on net, in
// the slot order of fourTaxa. rho is the correlation of the parent choices
// made by two lineages at the same hybrid node: 0 for independent draws, 1
// for lineages that always share a parent. net is not modified.
func ExpectedCF(net *network.Network, fourTaxa [4]string, rho float64) (quartet.CF, error) {
	if err := CheckCorrelation(rho); err != nil {
		return quartet.CF{}, err
	}
	if err := net.CheckForExpectedCF(); err != nil {
		return quartet.CF{}, err
	}
	return expectedCF(net, fourTaxa, rho)
}

// expectedCF skips the network checks, which AllQuartets runs once.
func expectedCF(net *network.Network, fourTaxa [4]string, rho float64) (quartet.CF, error) {
	keep := make(map[string]bool, 4)
	for _, t := range fourTaxa {
		if keep[t] {
			return quartet.CF{}, errors.InvalidInputf("four-taxon set %v repeats a taxon", fourTaxa)
		}
		if _, ok := net.LeafByName(t); !ok {
			return quartet.CF{}, errors.InvalidInputf("taxon %q is not in the network", t)
		}
		keep[t] = true
	}
	work := net.Clone()
	for _, leaf := range work.Leaves() {
		if keep[leaf.Name] {
			continue
		}
		if err := work.DeleteLeaf(leaf.Name); err != nil {
			return quartet.CF{}, err
		}
	}
	cf, err := fourTaxonCF(work, fourTaxa, rho)
	if err != nil {
		return quartet.CF{}, errors.Wrapf(err, "expected CF of %v", fourTaxa)
	}
	return cf, nil
}

// fourTaxonCF owns net and may modify it.
func fourTaxonCF(net *network.Network, taxa [4]string, rho float64) (quartet.CF, error) {
	if err := net.Simplify(); err != nil {
		return quartet.CF{}, err
	}
	net.DeleteAboveLSA()
	if err := net.FuseRoot(); err != nil {
		return quartet.CF{}, err
	}
	if _, err := net.StripExternalBlobs(taxa[:]); err != nil {
		return quartet.CF{}, err
	}

	masks := net.DescendantMasks(taxa[:])
	hybrids := net.Hybrids()
	if len(hybrids) == 0 {
		return treeCF(net, taxa, masks)
	}
	h := hybrids[len(hybrids)-1]
	switch d := bits.OnesCount64(masks[h]); {
	case d > 2:
		return treeCF(net, taxa, masks)
	case d == 2:
		return twoLineagesCF(net, h, taxa, masks, rho)
	case d == 1:
		return oneLineageCF(net, h, taxa, rho)
	default:
		return quartet.CF{}, errors.Invariantf("hybrid node %d has no descendant among %v", h, taxa)
	}
}

// treeCF applies the no-reticulation formula. The cut edges are those
// whose cluster holds exactly two of the four taxa; they must all define
// the same split. Without a cut edge the internal length is 0, which is
// exact for a 3-way polytomy.
func treeCF(net *network.Network, taxa [4]string, masks []uint64) (quartet.CF, error) {
	const all = uint64(0xF)
	split := uint64(0)
	internal := 0.0
	for _, e := range net.Edges() {
		m := masks[e.Child]
		if bits.OnesCount64(m) != 2 {
			continue
		}
		if m&1 == 0 {
			m = all ^ m
		}
		if split != 0 && split != m {
			return quartet.CF{}, errors.Invariantf("cut edges define two different splits of %v", taxa)
		}
		split = m
		internal += e.Length
	}
	slot := 0
	if split != 0 {
		slot = bits.TrailingZeros64(split&^1) - 1
	}
	return treeResolution(slot, internal), nil
}

// treeResolution puts 1 - 2exp(-L)/3 on the major slot and exp(-L)/3 on
// the two others.
func treeResolution(major int, internal float64) quartet.CF {
	minor := math.Exp(-internal) / 3
	cf := quartet.CF{minor, minor, minor}
	cf[major] = 1 - 2*minor
	return cf
}

// oneLineageCF averages the networks displayed by each parent edge of h,
// weighted by γ: a single lineage below h takes parent i with probability
// γ_i and the correlation plays no role.
func oneLineageCF(net *network.Network, h int, taxa [4]string, rho float64) (quartet.CF, error) {
	parents := net.ParentEdges(h)
	var cf quartet.CF
	for _, keep := range parents {
		gamma := net.Edge(keep).Gamma
		sub := net.Clone()
		for _, drop := range parents {
			if drop == keep {
				continue
			}
			if err := sub.DeleteHybridEdge(drop); err != nil {
				return quartet.CF{}, err
			}
		}
		part, err := fourTaxonCF(sub, taxa, rho)
		if err != nil {
			return quartet.CF{}, err
		}
		cf = cf.Add(part, gamma)
	}
	return cf, nil
}

// PairWeight is the probability that lineage 1 takes parent i (γ_i) and
// lineage 2 parent j (γ_j), under a Dirichlet-process correlation rho.
func PairWeight(gammaI, gammaJ, rho float64, same bool) float64 {
	if same {
		return gammaI * (gammaJ*(1-rho) + rho)
	}
	return gammaI * gammaJ * (1 - rho)
}

// twoLineagesCF handles two taxa below the lowest hybrid h. They coalesce
// on the funnel edge below h with probability 1-exp(-L), which resolves
// the quartet with them as sisters. Otherwise both lineages reach h and
// each ordered pair of parent edges (i,j) gives a simpler network: the
// first lineage continues on edge i, the second is moved to the parent of
// edge j.
func twoLineagesCF(net *network.Network, h int, taxa [4]string, masks []uint64, rho float64) (quartet.CF, error) {
	parents := net.ParentEdges(h)
	for _, id := range parents {
		if !net.Edge(id).Hybrid {
			return quartet.CF{}, errors.Invariantf("hybrid node %d has a tree parent edge %d", h, id)
		}
	}
	funnel := net.ChildEdges(h)
	polytomy := len(funnel) > 1
	internal := 0.0
	if !polytomy {
		internal = net.Edge(funnel[0]).Length
	}
	noCoalescence := math.Exp(-internal)

	var pair []string
	for i, t := range taxa {
		if masks[h]&(1<<uint(i)) != 0 {
			pair = append(pair, t)
		}
	}
	sister, err := quartet.PairSlot(taxa, pair[0], pair[1])
	if err != nil {
		return quartet.CF{}, err
	}
	var cf quartet.CF
	cf[sister] = 1 - noCoalescence

	base := net.Clone()
	if !polytomy {
		if err := base.ShrinkEdge(funnel[0]); err != nil {
			return quartet.CF{}, err
		}
	}
	children := base.ChildEdges(h)
	if len(children) != 2 {
		return quartet.CF{}, errors.Invariantf("hybrid node %d above 2 taxa has %d child edges after shrinking its funnel edge", h, len(children))
	}
	for _, id := range children {
		if !base.Node(base.Edge(id).Child).Leaf {
			return quartet.CF{}, errors.Invariantf("hybrid node %d above 2 taxa has a non-external child edge %d", h, id)
		}
	}

	for i, pi := range parents {
		gammaI := base.Edge(pi).Gamma
		for j, pj := range parents {
			if i != j && rho == 1 {
				continue
			}
			w := noCoalescence * PairWeight(gammaI, base.Edge(pj).Gamma, rho, i == j)
			if w == 0 {
				continue
			}
			sub := base.Clone()
			for k, pk := range parents {
				if k == i || k == j {
					continue
				}
				if err := sub.DeleteHybridEdge(pk); err != nil {
					return quartet.CF{}, err
				}
			}
			if i != j {
				sub.MoveChildEdge(children[1], sub.Edge(pj).Parent)
				if err := sub.DeleteHybridEdge(pj); err != nil {
					return quartet.CF{}, err
				}
			}
			part, err := fourTaxonCF(sub, taxa, rho)
			if err != nil {
				return quartet.CF{}, err
			}
			cf = cf.Add(part, w)
		}
	}
	return cf, nil
}
