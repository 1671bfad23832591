package app

import (
	"context"
	"strings"
	"time"

	"github.com/evolbioinfo/gotree/tree"
	"github.com/google/uuid"

	"netgof/adapters/stats/outlier"
	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/expectedcf"
	"netgof/internal/logging"
	"netgof/internal/ranking"
	"netgof/internal/simulation"
	"netgof/ports"
)

var log = logging.Get("app")

// Correction selects how the z-value is turned into a p-value.
type Correction string

const (
	// CorrectionSimulation rescales z by the spread of simulated z-values.
	CorrectionSimulation Correction = "simulation"
	// CorrectionNone treats the quartet p-values as independent.
	CorrectionNone Correction = "none"
)

// ParseCorrection accepts simulation and none in any case.
func ParseCorrection(s string) (Correction, error) {
	switch c := Correction(strings.ToLower(strings.TrimSpace(s))); c {
	case CorrectionSimulation, CorrectionNone:
		return c, nil
	}
	return "", errors.InvalidInputf("unknown correction %q (want simulation or none)", s)
}

// TestRequest defines the inputs of a goodness-of-fit test
type TestRequest struct {
	RunID      string // optional, generated if empty
	Network    *network.Network
	Records    []quartet.Record
	Statistic  outlier.Kind
	Correction Correction
	Seed       int64
	NSim       int
	Rho        float64
	NProcs     int
	// OptimizeBranchLengths refits the network to the observed CFs before
	// testing; the service needs a BranchLengthOptimizer for it.
	OptimizeBranchLengths bool
	Verbose               bool
	KeepFiles             bool
	Dir                   string
}

// TestResult contains the complete output of a test
type TestResult struct {
	RunID             string               `json:"run_id" yaml:"run_id"`
	PValue            float64              `json:"pvalue" yaml:"pvalue"`
	UncorrectedPValue float64              `json:"uncorrected_pvalue" yaml:"uncorrected_pvalue"`
	Z                 float64              `json:"z" yaml:"z"`
	Sigma             float64              `json:"sigma" yaml:"sigma"`
	SimulatedZ        []float64            `json:"simulated_z,omitempty" yaml:"simulated_z,omitempty"`
	SimulatedSummary  *simulation.ZSummary `json:"simulated_z_summary,omitempty" yaml:"simulated_z_summary,omitempty"`
	NGenesSimulated   int                  `json:"ngenes_simulated,omitempty" yaml:"ngenes_simulated,omitempty"`
	Drift             bool                 `json:"simulation_drift,omitempty" yaml:"simulation_drift,omitempty"`
	ReplicateDir      string               `json:"replicate_dir,omitempty" yaml:"replicate_dir,omitempty"`
	NQuartets         int                  `json:"nquartets" yaml:"nquartets"`
	NOutliers         int                  `json:"noutliers" yaml:"noutliers"`
	NonFinite         int                  `json:"nonfinite_pvalues" yaml:"nonfinite_pvalues"`
	Statistic         outlier.Kind         `json:"statistic" yaml:"statistic"`
	Correction        Correction           `json:"correction" yaml:"correction"`
	RuntimeMs         int64                `json:"runtime_ms" yaml:"runtime_ms"`
	Records           []quartet.Record     `json:"quartets,omitempty" yaml:"quartets,omitempty"`
	Network           *network.Network     `json:"-" yaml:"-"`
}

// GoodnessOfFitService runs the quartet goodness-of-fit test of a network
type GoodnessOfFitService struct {
	driver    *simulation.Driver
	counter   ports.QuartetCounter
	optimizer ports.BranchLengthOptimizer
}

// NewGoodnessOfFitService creates the service. optimizer may be nil.
func NewGoodnessOfFitService(simulator ports.GeneTreeSimulator, counter ports.QuartetCounter, rngPort ports.RNGPort, optimizer ports.BranchLengthOptimizer) *GoodnessOfFitService {
	return &GoodnessOfFitService{
		driver:    simulation.NewDriver(simulator, counter, rngPort),
		counter:   counter,
		optimizer: optimizer,
	}
}

func (r *TestRequest) validate() error {
	if r.Network == nil {
		return errors.InvalidInput("no network given")
	}
	if _, err := r.Statistic.PValueFunc(); err != nil {
		return err
	}
	switch r.Correction {
	case CorrectionSimulation:
		if r.NSim < 1 {
			return errors.InvalidInputf("number of simulations must be positive, got %d", r.NSim)
		}
	case CorrectionNone:
	default:
		return errors.InvalidInputf("unknown correction %q", r.Correction)
	}
	if err := expectedcf.CheckCorrelation(r.Rho); err != nil {
		return err
	}
	if len(r.Records) == 0 {
		return errors.InvalidInput("no observed four-taxon set given")
	}
	for i := range r.Records {
		if err := r.Records[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Run tests the fit of the network to the observed CFs
func (s *GoodnessOfFitService) Run(ctx context.Context, req TestRequest) (*TestResult, error) {
	startTime := time.Now()
	if err := req.validate(); err != nil {
		return nil, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	net := req.Network.Clone()
	records := append([]quartet.Record(nil), req.Records...)
	if req.OptimizeBranchLengths {
		if s.optimizer == nil {
			return nil, errors.InvalidInput("branch length optimization requested but no optimizer is configured")
		}
		fitted, err := s.optimizer.Optimize(ctx, net, records, req.Rho)
		if err != nil {
			return nil, errors.Wrap(err, "branch length optimization failed")
		}
		net = fitted
	}
	if err := net.CheckForExpectedCF(); err != nil {
		return nil, err
	}

	table, err := ranking.FromNetwork(ctx, records, net, req.Rho, req.NProcs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute expected CFs")
	}

	pvalue, err := req.Statistic.PValueFunc()
	if err != nil {
		return nil, err
	}
	pvals := make([]float64, len(records))
	for i := range records {
		r := &records[i]
		r.PValue = pvalue(r.Observed, r.Expected, r.NGenes)
		pvals[i] = r.PValue
	}
	z, nonFinite, err := outlier.AggregateZ(pvals)
	if err != nil {
		return nil, err
	}

	result := &TestResult{
		RunID:             runID,
		Z:                 z,
		Sigma:             1,
		UncorrectedPValue: outlier.UncorrectedPValue(z),
		NQuartets:         len(records),
		NOutliers:         outlier.CountOutliers(pvals),
		NonFinite:         nonFinite,
		Statistic:         req.Statistic,
		Correction:        req.Correction,
		Records:           records,
		Network:           net,
	}
	log.Infof("[%s] z = %.4f with %d of %d outlier four-taxon sets", runID, z, result.NOutliers, result.NQuartets)

	if req.Correction == CorrectionSimulation {
		sim, err := s.driver.Correct(ctx, net, table, req.Statistic, simulation.Options{
			Seed:        req.Seed,
			NReplicates: req.NSim,
			Rho:         req.Rho,
			NProcs:      req.NProcs,
			Verbose:     req.Verbose,
			KeepFiles:   req.KeepFiles,
			Dir:         req.Dir,
		})
		if err != nil {
			return nil, errors.Wrap(err, "simulation correction failed")
		}
		result.Sigma = sim.Sigma
		result.SimulatedZ = sim.Z
		result.SimulatedSummary = sim.Summary
		result.NGenesSimulated = sim.NGenes
		result.Drift = sim.Drift
		result.ReplicateDir = sim.Dir
	}
	result.PValue = outlier.CorrectedPValue(z, result.Sigma)
	result.RuntimeMs = time.Since(startTime).Milliseconds()
	log.Infof("[%s] p-value %.4g (uncorrected %.4g, sigma %.4f)", runID, result.PValue, result.UncorrectedPValue, result.Sigma)
	return result, nil
}

// ExpectedCFs returns the expected CFs of every four-taxon set of net, in
// rank order over the sorted taxa.
func (s *GoodnessOfFitService) ExpectedCFs(ctx context.Context, net *network.Network, rho float64, nprocs int) ([]quartet.Record, error) {
	records, _, err := expectedcf.AllQuartets(ctx, net, rho, nprocs)
	return records, err
}

// RecordsFromGeneTrees summarizes gene trees into one observed record per
// four-taxon set of taxa. Every set must be resolved by at least one gene
// tree.
func (s *GoodnessOfFitService) RecordsFromGeneTrees(ctx context.Context, trees []*tree.Tree, taxa []string) ([]quartet.Record, error) {
	counts, err := s.counter.Count(ctx, trees, taxa)
	if err != nil {
		return nil, err
	}
	records := make([]quartet.Record, len(counts.CF))
	var missing int
	quartet.Combinations(len(taxa), func(rank int, q [4]int) {
		records[rank] = quartet.Record{
			Taxa:     [4]string{taxa[q[0]], taxa[q[1]], taxa[q[2]], taxa[q[3]]},
			Observed: counts.CF[rank],
			NGenes:   counts.NGenes[rank],
		}
		if counts.NGenes[rank] == 0 {
			missing++
		}
	})
	if missing > 0 {
		return nil, errors.InvalidInputf("%d four-taxon sets are not resolved by any gene tree", missing)
	}
	return records, nil
}
