package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"netgof/adapters/cftable"
	"netgof/adapters/genetrees"
	"netgof/adapters/netfile"
	"netgof/adapters/stats/outlier"
	"netgof/app"
	"netgof/domain/quartet"
	"netgof/internal/config"
	"netgof/internal/errors"
)

type testFlags struct {
	cf          string
	geneTrees   string
	statistic   string
	correction  string
	seed        int64
	nsim        int
	rho         float64
	nprocs      int
	keepFiles   bool
	dir         string
	format      string
	quartetsOut string
	optimizeBL  bool
}

func newTestCmd(cfg *config.Config, verbose *bool) *cobra.Command {
	var f testFlags
	cmd := &cobra.Command{
		Use:   "test <network.yaml>",
		Short: "Test the fit of a network to observed CFs",
		Long: `Test the fit of a network to observed CFs, given either as a table
(--cf, columns t1,t2,t3,t4,CF12_34,CF13_24,CF14_23,ngenes) or as gene
trees (--genetrees, one Newick tree per line).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args[0], f, *verbose)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.cf, "cf", "", "observed CF table (.csv or .xlsx)")
	flags.StringVar(&f.geneTrees, "genetrees", "", "gene trees in Newick format")
	flags.StringVar(&f.statistic, "statistic", cfg.Test.Statistic, "outlier statistic: lrt, qlog or pearson")
	flags.StringVar(&f.correction, "correction", cfg.Test.Correction, "p-value correction: simulation or none")
	flags.Int64Var(&f.seed, "seed", cfg.Test.Seed, "master seed of the simulations")
	flags.IntVar(&f.nsim, "nsim", cfg.Test.NSim, "number of simulated data sets")
	flags.Float64Var(&f.rho, "correlation", cfg.Test.Rho, "inheritance correlation in [0,1]")
	flags.IntVar(&f.nprocs, "nprocs", cfg.Test.NProcs, "workers (0 = all CPUs)")
	flags.BoolVar(&f.keepFiles, "keep-files", cfg.Test.KeepFiles, "keep the simulated gene trees")
	flags.StringVar(&f.dir, "dir", cfg.Test.TmpDir, "directory for kept gene trees (default: a new temporary directory)")
	flags.StringVar(&f.format, "format", "json", "summary format: json or yaml")
	flags.StringVar(&f.quartetsOut, "quartets-out", "", "write per-set results to a .csv or .xlsx file")
	flags.BoolVar(&f.optimizeBL, "optimize-bl", false, "refit edge lengths and inheritance probabilities to the observed CFs first")
	cmd.MarkFlagsMutuallyExclusive("cf", "genetrees")
	cmd.MarkFlagsOneRequired("cf", "genetrees")
	return cmd
}

func runTest(cmd *cobra.Command, networkPath string, f testFlags, verbose bool) error {
	if f.format != "json" && f.format != "yaml" {
		return errors.InvalidInputf("unknown format %q (want json or yaml)", f.format)
	}
	kind, err := outlier.ParseKind(f.statistic)
	if err != nil {
		return err
	}
	correction, err := app.ParseCorrection(f.correction)
	if err != nil {
		return err
	}
	net, err := netfile.ReadFile(networkPath)
	if err != nil {
		return err
	}

	svc := newService()
	var records []quartet.Record
	if f.cf != "" {
		records, err = cftable.NewReader(f.cf).ReadRecords()
	} else {
		records, err = recordsFromGeneTrees(cmd, svc, f.geneTrees, net.Taxa())
	}
	if err != nil {
		return err
	}

	res, err := svc.Run(cmd.Context(), app.TestRequest{
		Network:    net,
		Records:    records,
		Statistic:  kind,
		Correction: correction,
		Seed:       f.seed,
		NSim:       f.nsim,
		Rho:        f.rho,
		NProcs:     f.nprocs,
		Verbose:    verbose,
		KeepFiles:  f.keepFiles,
		Dir:        f.dir,

		OptimizeBranchLengths: f.optimizeBL,
	})
	if err != nil {
		return err
	}
	if f.quartetsOut != "" {
		if err := cftable.WriteFile(f.quartetsOut, res.Records); err != nil {
			return err
		}
	}
	return writeSummary(cmd.OutOrStdout(), f.format, res, f.quartetsOut == "")
}

func recordsFromGeneTrees(cmd *cobra.Command, svc *app.GoodnessOfFitService, path string, taxa []string) ([]quartet.Record, error) {
	trees, err := genetrees.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return svc.RecordsFromGeneTrees(cmd.Context(), trees, taxa)
}

// writeSummary prints the result; the per-set rows are left out when
// they were written to a file.
func writeSummary(w io.Writer, format string, res *app.TestResult, withRecords bool) error {
	s := *res
	if !withRecords {
		s.Records = nil
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&s); err != nil {
			return errors.IOError("failed to write summary", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&s); err != nil {
			return errors.IOError("failed to write summary", err)
		}
		return nil
	}
}
