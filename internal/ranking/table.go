// Package ranking lays out per-quartet values in the canonical order: one
// row per four-taxon set of a sorted taxon list, at the row given by the
// set's lexicographic rank, with CFs in the sorted taxa's slot order.
package ranking

import (
	"context"

	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/expectedcf"
)

// Table holds one row per four-taxon set.
type Table struct {
	Taxa   []string
	CF     []quartet.CF
	NGenes []float64
	Index  map[string]int
}

// NewTable allocates an empty table over taxa, which must be sorted and
// hold at least four names.
func NewTable(taxa []string) (*Table, error) {
	if len(taxa) < 4 {
		return nil, errors.InvalidInputf("%d taxa; at least 4 are needed", len(taxa))
	}
	for i := 1; i < len(taxa); i++ {
		if taxa[i-1] >= taxa[i] {
			return nil, errors.InvalidInputf("taxon list is not sorted and unique at %q", taxa[i])
		}
	}
	size := quartet.Count(len(taxa))
	return &Table{
		Taxa:   taxa,
		CF:     make([]quartet.CF, size),
		NGenes: make([]float64, size),
		Index:  quartet.Index(taxa),
	}, nil
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.CF) }

// Rank returns the row of a four-taxon set given in any order.
func (t *Table) Rank(taxa [4]string) (int, error) {
	_, rank, _, err := quartet.Canonical(taxa, quartet.CF{}, t.Index)
	return rank, err
}

// Lookup returns the CFs of a four-taxon set in the slot order of taxa.
func (t *Table) Lookup(taxa [4]string) (quartet.CF, error) {
	idx, rank, _, err := quartet.Canonical(taxa, quartet.CF{}, t.Index)
	if err != nil {
		return quartet.CF{}, err
	}
	sorted := [4]string{t.Taxa[idx[0]], t.Taxa[idx[1]], t.Taxa[idx[2]], t.Taxa[idx[3]]}
	return quartet.Permute(t.CF[rank], sorted, taxa)
}

// ExpectedTable places the expected CFs of records by rank. The records
// must cover every four-taxon set of taxa exactly once.
func ExpectedTable(records []quartet.Record, taxa []string) (*Table, error) {
	t, err := NewTable(taxa)
	if err != nil {
		return nil, err
	}
	if len(records) != t.Len() {
		return nil, errors.InvalidInputf("%d four-taxon sets given, %d taxa need all %d of them",
			len(records), len(taxa), t.Len())
	}
	filled := make([]bool, t.Len())
	for i := range records {
		r := &records[i]
		_, rank, cf, err := quartet.Canonical(r.Taxa, r.Expected, t.Index)
		if err != nil {
			return nil, err
		}
		if filled[rank] {
			return nil, errors.InvalidInputf("four-taxon set %v appears more than once", r.Taxa)
		}
		filled[rank] = true
		t.CF[rank] = cf
		t.NGenes[rank] = r.NGenes
	}
	return t, nil
}

// FromNetwork computes the expected CFs of records on net, storing them on
// the records, and returns them as a table over the network's taxa.
func FromNetwork(ctx context.Context, records []quartet.Record, net *network.Network, rho float64, nprocs int) (*Table, error) {
	if err := expectedcf.Fill(ctx, net, records, rho, nprocs); err != nil {
		return nil, err
	}
	return ExpectedTable(records, net.Taxa())
}
