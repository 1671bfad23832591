package genetrees

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/evolbioinfo/gotree/tree"

	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/ports"
)

// Counter implements ports.QuartetCounter.
//
// A gene tree resolves a four-taxon set by the pair whose most recent
// common ancestor lies deepest: that pair and its complement form the
// displayed split. When the deepest ancestor is shared by pairs of
// different splits the gene tree is unresolved on that set and is not
// counted. Gene trees missing one of the four taxa are not counted either.
type Counter struct{}

// NewCounter creates a quartet counter
func NewCounter() *Counter {
	return &Counter{}
}

// Count summarizes trees over the sorted taxon list taxa. Tips whose names
// are not in taxa are ignored.
func (c *Counter) Count(ctx context.Context, trees []*tree.Tree, taxa []string) (*ports.QuartetCounts, error) {
	n := len(taxa)
	if n < 4 {
		return nil, errors.InvalidInputf("%d taxa; at least 4 are needed", n)
	}
	index := quartet.Index(taxa)
	size := quartet.Count(n)
	counts := make([]quartet.CF, size)
	ngenes := make([]float64, size)
	depth := newLCADepths(n)

	for g, t := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		present, err := depth.fill(t, index)
		if err != nil {
			return nil, errors.Wrapf(err, "gene tree %d", g+1)
		}
		quartet.Combinations(n, func(rank int, q [4]int) {
			for _, i := range q {
				if !present.Test(uint(i)) {
					return
				}
			}
			if slot, ok := depth.resolve(q); ok {
				counts[rank][slot]++
				ngenes[rank]++
			}
		})
	}
	for rank := range counts {
		if ngenes[rank] > 0 {
			counts[rank] = counts[rank].Scale(1 / ngenes[rank])
		}
	}
	return &ports.QuartetCounts{Taxa: taxa, CF: counts, NGenes: ngenes}, nil
}

// lcaDepths holds, for one gene tree, the depth in edges from the root of
// the most recent common ancestor of every pair of taxa.
type lcaDepths struct {
	n int
	d []int
}

func newLCADepths(n int) *lcaDepths {
	return &lcaDepths{n: n, d: make([]int, n*n)}
}

func (l *lcaDepths) at(i, j int) int { return l.d[i*l.n+j] }

func (l *lcaDepths) set(i, j, depth int) {
	l.d[i*l.n+j] = depth
	l.d[j*l.n+i] = depth
}

// fill walks t from its root and returns the set of taxa it carries.
func (l *lcaDepths) fill(t *tree.Tree, index map[string]int) (*bitset.BitSet, error) {
	root := t.Root()
	if root == nil {
		return nil, errors.InvalidInput("gene tree has no root")
	}
	return l.walk(root, nil, 0, index)
}

func (l *lcaDepths) walk(v, from *tree.Node, depth int, index map[string]int) (*bitset.BitSet, error) {
	cluster := bitset.New(uint(l.n))
	var children []*bitset.BitSet
	for _, w := range v.Neigh() {
		if w == from {
			continue
		}
		sub, err := l.walk(w, v, depth+1, index)
		if err != nil {
			return nil, err
		}
		children = append(children, sub)
	}
	if len(children) == 0 {
		if i, ok := index[v.Name()]; ok {
			cluster.Set(uint(i))
		}
		return cluster, nil
	}
	for a, ca := range children {
		if cluster.IntersectionCardinality(ca) > 0 {
			return nil, errors.InvalidInputf("a taxon appears more than once below node %q", v.Name())
		}
		for _, cb := range children[a+1:] {
			for i, ok := ca.NextSet(0); ok; i, ok = ca.NextSet(i + 1) {
				for j, ok := cb.NextSet(0); ok; j, ok = cb.NextSet(j + 1) {
					l.set(int(i), int(j), depth)
				}
			}
		}
		cluster.InPlaceUnion(ca)
	}
	return cluster, nil
}

// resolve returns the slot displayed on the sorted four-taxon set q.
func (l *lcaDepths) resolve(q [4]int) (int, bool) {
	pairs := [3][2][2]int{
		{{q[0], q[1]}, {q[2], q[3]}},
		{{q[0], q[2]}, {q[1], q[3]}},
		{{q[0], q[3]}, {q[1], q[2]}},
	}
	best, slot, tied := -1, -1, false
	for s, split := range pairs {
		d := max(l.at(split[0][0], split[0][1]), l.at(split[1][0], split[1][1]))
		switch {
		case d > best:
			best, slot, tied = d, s, false
		case d == best:
			tied = true
		}
	}
	return slot, !tied
}
