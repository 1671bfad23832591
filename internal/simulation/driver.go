// Package simulation estimates how much the dependence between four-taxon
// sets inflates the spread of the outlier z-value.
//
// Under the null, gene trees are simulated along the network, summarized
// into observed CFs and scored against the expected CFs exactly as the
// real data were. The standard deviation of the replicate z-values,
// taken around 0, rescales the observed z.
package simulation

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"netgof/adapters/genetrees"
	"netgof/adapters/rng"
	"netgof/adapters/stats/outlier"
	"netgof/domain/network"
	"netgof/internal/errors"
	"netgof/internal/expectedcf"
	"netgof/internal/logging"
	"netgof/internal/ranking"
	"netgof/ports"
)

var log = logging.Get("simulation")

// driftThreshold is the |mean z| in standard errors above which the
// replicates are reported as suspicious.
const driftThreshold = 4.0

// Options configures a correction run.
type Options struct {
	Seed        int64
	NReplicates int
	Rho         float64
	NProcs      int
	Verbose     bool
	// KeepFiles writes the gene trees of replicate i to
	// Dir/genetrees_rep<i>.tre. An empty Dir gets a fresh temporary one.
	KeepFiles bool
	Dir       string
}

// Result of a correction run. Z and Seeds are indexed by replicate.
type Result struct {
	Sigma  float64
	Z      []float64
	Seeds  []int64
	NGenes int
	MeanZ  float64
	Drift  bool
	// Summary is nil for a single replicate.
	Summary *ZSummary
	Dir     string
	Files   []string
}

// Driver runs simulation replicates.
type Driver struct {
	simulator ports.GeneTreeSimulator
	counter   ports.QuartetCounter
	rngPort   ports.RNGPort
}

// NewDriver creates a driver
func NewDriver(simulator ports.GeneTreeSimulator, counter ports.QuartetCounter, rngPort ports.RNGPort) *Driver {
	return &Driver{
		simulator: simulator,
		counter:   counter,
		rngPort:   rngPort,
	}
}

// Correct simulates opts.NReplicates data sets of the table's median gene
// count along net, and returns the replicate z-values with their root mean
// square sigma. table holds the expected CFs the observed data were scored
// against.
func (d *Driver) Correct(ctx context.Context, net *network.Network, table *ranking.Table, kind outlier.Kind, opts Options) (*Result, error) {
	if opts.NReplicates < 1 {
		return nil, errors.InvalidInputf("number of simulations must be positive, got %d", opts.NReplicates)
	}
	if err := expectedcf.CheckCorrelation(opts.Rho); err != nil {
		return nil, err
	}
	if table == nil || table.Len() == 0 {
		return nil, errors.InvalidInput("no expected CF to simulate against")
	}
	ngenes, err := MedianGenes(table.NGenes)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Z:      make([]float64, opts.NReplicates),
		Seeds:  rng.DeriveSeeds(opts.Seed, opts.NReplicates),
		NGenes: ngenes,
	}
	if opts.KeepFiles {
		if res.Dir, err = replicateDir(opts.Dir); err != nil {
			return nil, err
		}
		res.Files = make([]string, opts.NReplicates)
	}

	workers := expectedcf.Workers(opts.NProcs)
	log.Infof("simulating %d replicates of %d gene trees on %d workers", opts.NReplicates, ngenes, workers)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range res.Z {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.replicate(gctx, i, net, table, kind, opts, res); err != nil {
				return errors.Wrapf(err, "replicate %d", i+1)
			}
			if opts.Verbose {
				logEveryNPercent(int(done.Add(1)), 10, opts.NReplicates)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := res.summarize(); err != nil {
		return nil, err
	}
	return res, nil
}

// replicate writes slot i of res and nothing else.
func (d *Driver) replicate(ctx context.Context, i int, net *network.Network, table *ranking.Table, kind outlier.Kind, opts Options, res *Result) error {
	r, err := d.rngPort.SeededStream(ctx, fmt.Sprintf("replicate-%d", i+1), res.Seeds[i])
	if err != nil {
		return err
	}
	trees, err := d.simulator.Simulate(ctx, net, res.NGenes, opts.Rho, r)
	if err != nil {
		return err
	}
	if opts.KeepFiles {
		path := filepath.Join(res.Dir, fmt.Sprintf("genetrees_rep%d.tre", i+1))
		if err := genetrees.WriteFile(path, trees); err != nil {
			return err
		}
		res.Files[i] = path
	}
	counts, err := d.counter.Count(ctx, trees, table.Taxa)
	if err != nil {
		return err
	}
	pvals, err := outlier.PValues(kind, counts.CF, table.CF, counts.NGenes, nil)
	if err != nil {
		return err
	}
	z, _, err := outlier.AggregateZ(pvals)
	if err != nil {
		return err
	}
	res.Z[i] = z
	return nil
}

// summarize sets Sigma = sqrt(mean(z²)), taking the null mean of z as 0,
// and flags replicates whose mean is far from 0.
func (res *Result) summarize() error {
	squares := make([]float64, len(res.Z))
	for i, z := range res.Z {
		squares[i] = z * z
	}
	meanSq, err := stats.Mean(squares)
	if err != nil {
		return errors.Wrap(err, "failed to summarize replicate z-values")
	}
	res.Sigma = math.Sqrt(meanSq)
	if res.MeanZ, err = stats.Mean(res.Z); err != nil {
		return errors.Wrap(err, "failed to summarize replicate z-values")
	}

	n := len(res.Z)
	if n > 1 {
		variance, err := stats.SampleVariance(res.Z)
		if err != nil {
			return errors.Wrap(err, "failed to summarize replicate z-values")
		}
		if variance > 0 && math.Abs(res.MeanZ)/math.Sqrt(variance/float64(n)) >= driftThreshold {
			res.Drift = true
			log.Warningf("mean of %d simulated z-values is %.3f, far from 0: simulated data may not match the expected CFs", n, res.MeanZ)
		}
		summary, err := SummarizeZ(res.Z)
		if err != nil {
			return errors.Wrap(err, "failed to summarize replicate z-values")
		}
		res.Summary = &summary
	}
	if res.Sigma == 0 {
		log.Warningf("all %d simulated z-values are 0: the corrected p-value degenerates to 0 or 1", n)
	}
	log.Infof("sigma = %.4f from %d replicates (mean z %.4f)", res.Sigma, n, res.MeanZ)
	return nil
}

// MedianGenes is the rounded median gene count, at least 1.
func MedianGenes(ngenes []float64) (int, error) {
	m, err := stats.Median(ngenes)
	if err != nil {
		return 0, errors.InvalidInputf("no gene count to take a median of: %v", err)
	}
	n := int(math.Round(m))
	if n < 1 {
		n = 1
	}
	return n, nil
}

func replicateDir(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "netgof-"+uuid.NewString())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.IOError("failed to create replicate directory", err)
	}
	return dir, nil
}

// logEveryNPercent logs progress each time another n percent of the total
// is done.
func logEveryNPercent(done, n, total int) {
	step := max(total*n/100, 1)
	if done%step == 0 || done == total {
		log.Infof("completed %d of %d replicates", done, total)
	}
}
