// Command netgof tests the goodness of fit of a phylogenetic network to
// quartet concordance factors.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"netgof/adapters/branchlengths"
	"netgof/adapters/coalsim"
	"netgof/adapters/genetrees"
	"netgof/adapters/rng"
	"netgof/app"
	"netgof/internal/config"
	"netgof/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "netgof",
		Short:         "Goodness of fit of a phylogenetic network to quartet concordance factors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbose)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output and simulation progress")

	rootCmd.AddCommand(
		newExpectedCFCmd(cfg),
		newTestCmd(cfg, &verbose),
		newServeCmd(cfg),
	)
	return rootCmd
}

// newService wires the coalescent simulator, the gene-tree counter and the
// branch-length optimizer.
func newService() *app.GoodnessOfFitService {
	return app.NewGoodnessOfFitService(coalsim.NewSimulator(), genetrees.NewCounter(), rng.NewSeededAdapter(),
		branchlengths.NewOptimizer(0))
}
