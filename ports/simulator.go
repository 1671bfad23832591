package ports

import (
	"context"
	"math/rand"

	"github.com/evolbioinfo/gotree/tree"

	"netgof/domain/network"
	"netgof/domain/quartet"
)

// GeneTreeSimulator draws gene trees along a network under the multispecies
// network coalescent. rho is the inheritance correlation at hybrid nodes.
type GeneTreeSimulator interface {
	Simulate(ctx context.Context, net *network.Network, ngenes int, rho float64, rng *rand.Rand) ([]*tree.Tree, error)
}

// QuartetCounts holds observed CFs by quartet rank over a sorted taxon list,
// in the sorted taxa's slot order. NGenes counts the gene trees that
// resolve each four-taxon set.
type QuartetCounts struct {
	Taxa   []string
	CF     []quartet.CF
	NGenes []float64
}

// QuartetCounter summarizes gene trees into observed quartet CFs.
type QuartetCounter interface {
	Count(ctx context.Context, trees []*tree.Tree, taxa []string) (*QuartetCounts, error)
}

// BranchLengthOptimizer fits the edge lengths (and γ's) of a network to
// observed CFs under inheritance correlation rho. It returns a new network
// and leaves net untouched.
type BranchLengthOptimizer interface {
	Optimize(ctx context.Context, net *network.Network, records []quartet.Record, rho float64) (*network.Network, error)
}
