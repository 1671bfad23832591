package expectedcf

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/logging"
)

var log = logging.Get("expectedcf")

// Workers clamps a requested worker count: 0 or less means GOMAXPROCS.
func Workers(nprocs int) int {
	if nprocs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return nprocs
}

// AllQuartets computes the expected CFs of every four-taxon set of net.
// Records come in rank order over the sorted taxon list, which is also
// returned; each record's taxa are in sorted order.
func AllQuartets(ctx context.Context, net *network.Network, rho float64, nprocs int) ([]quartet.Record, []string, error) {
	if err := CheckCorrelation(rho); err != nil {
		return nil, nil, err
	}
	if err := net.CheckForExpectedCF(); err != nil {
		return nil, nil, err
	}
	taxa := net.Taxa()
	if len(taxa) < 4 {
		return nil, nil, errors.InvalidInputf("network has %d taxa, at least 4 are needed", len(taxa))
	}
	records := make([]quartet.Record, quartet.Count(len(taxa)))
	quartet.Combinations(len(taxa), func(rank int, c [4]int) {
		records[rank].Taxa = [4]string{taxa[c[0]], taxa[c[1]], taxa[c[2]], taxa[c[3]]}
	})
	if err := fill(ctx, net, records, rho, nprocs); err != nil {
		return nil, nil, err
	}
	return records, taxa, nil
}

// Fill sets the Expected CFs of records, each in the slot order of its own
// taxa.
func Fill(ctx context.Context, net *network.Network, records []quartet.Record, rho float64, nprocs int) error {
	if err := CheckCorrelation(rho); err != nil {
		return err
	}
	if err := net.CheckForExpectedCF(); err != nil {
		return err
	}
	return fill(ctx, net, records, rho, nprocs)
}

func fill(ctx context.Context, net *network.Network, records []quartet.Record, rho float64, nprocs int) error {
	workers := Workers(nprocs)
	log.Debugf("expected CFs of %d four-taxon sets on %d workers", len(records), workers)
	if workers == 1 {
		for i := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			cf, err := expectedCF(net, records[i].Taxa, rho)
			if err != nil {
				return err
			}
			records[i].Expected = cf
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cf, err := expectedCF(net, records[i].Taxa, rho)
			if err != nil {
				return err
			}
			records[i].Expected = cf
			return nil
		})
	}
	return g.Wait()
}
