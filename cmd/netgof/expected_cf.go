package main

import (
	"github.com/spf13/cobra"

	"netgof/adapters/cftable"
	"netgof/adapters/netfile"
	"netgof/internal/config"
)

func newExpectedCFCmd(cfg *config.Config) *cobra.Command {
	var (
		rho    float64
		nprocs int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "expected-cf <network.yaml>",
		Short: "Compute the expected CFs of every four-taxon set of a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := netfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := net.CheckForExpectedCF(); err != nil {
				return err
			}
			records, err := newService().ExpectedCFs(cmd.Context(), net, rho, nprocs)
			if err != nil {
				return err
			}
			if out != "" {
				return cftable.WriteFile(out, records)
			}
			return cftable.WriteCSV(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().Float64Var(&rho, "correlation", cfg.Test.Rho, "inheritance correlation in [0,1]")
	cmd.Flags().IntVar(&nprocs, "nprocs", cfg.Test.NProcs, "workers (0 = all CPUs)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the table to a .csv or .xlsx file instead of stdout")
	return cmd
}
