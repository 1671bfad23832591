package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/expectedcf"
)

// fiveTaxa is (((a,b):1,c):0.5,(d,e):2).
func fiveTaxa() *network.Network {
	n := network.New()
	root := n.AddNode("", false)
	n.Root = root
	p := n.AddNode("", false)
	q := n.AddNode("", false)
	r := n.AddNode("", false)
	n.AddEdge(root, p, 0.5, 1)
	n.AddEdge(root, r, 2, 1)
	n.AddEdge(p, q, 1, 1)
	n.AddEdge(p, n.AddNode("c", true), 1, 1)
	n.AddEdge(q, n.AddNode("a", true), 1, 1)
	n.AddEdge(q, n.AddNode("b", true), 1, 1)
	n.AddEdge(r, n.AddNode("d", true), 1, 1)
	n.AddEdge(r, n.AddNode("e", true), 1, 1)
	return n
}

func shuffledRecords() []quartet.Record {
	// every four-taxon set of a..e, neither in rank nor in sorted order
	sets := [][4]string{
		{"e", "d", "c", "b"},
		{"b", "a", "e", "c"},
		{"d", "a", "c", "b"},
		{"a", "e", "d", "b"},
		{"c", "e", "a", "d"},
	}
	records := make([]quartet.Record, len(sets))
	for i, s := range sets {
		records[i] = quartet.Record{Taxa: s, NGenes: float64(10 + i)}
	}
	return records
}

func TestFromNetwork(t *testing.T) {
	net := fiveTaxa()
	records := shuffledRecords()
	table, err := FromNetwork(context.Background(), records, net, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, table.Taxa)
	require.Equal(t, 5, table.Len())

	all, _, err := expectedcf.AllQuartets(context.Background(), net, 0, 1)
	require.NoError(t, err)
	for rank, r := range all {
		assert.InDeltaSlice(t, r.Expected[:], table.CF[rank][:], 1e-12, "rank %d", rank)
	}

	for _, r := range records {
		want, err := expectedcf.ExpectedCF(net, r.Taxa, 0)
		require.NoError(t, err)
		assert.Equal(t, want, r.Expected)

		got, err := table.Lookup(r.Taxa)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want[:], got[:], 1e-12)

		rank, err := table.Rank(r.Taxa)
		require.NoError(t, err)
		assert.Equal(t, r.NGenes, table.NGenes[rank])
	}
}

func TestExpectedTableErrors(t *testing.T) {
	taxa := []string{"a", "b", "c", "d", "e"}
	records := shuffledRecords()

	_, err := ExpectedTable(records[:4], taxa)
	assert.Error(t, err, "missing four-taxon set")

	dup := append([]quartet.Record(nil), records...)
	dup[4].Taxa = [4]string{"b", "c", "d", "e"}
	_, err = ExpectedTable(dup, taxa)
	assert.Error(t, err, "duplicate four-taxon set")

	unknown := append([]quartet.Record(nil), records...)
	unknown[0].Taxa[0] = "z"
	_, err = ExpectedTable(unknown, taxa)
	assert.Error(t, err, "unknown taxon")

	_, err = NewTable([]string{"b", "a", "c", "d"})
	assert.Error(t, err, "unsorted taxa")
}
