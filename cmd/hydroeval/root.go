package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hydroeval",
		Short: "Evaluate hydrological simulations against observations",
		Long: "hydroeval aligns observed and simulated discharge per catchment,\n" +
			"computes NSE, KGE, R², MSE and RMSE, and writes the metric summary\n" +
			"and the data modules of the static report.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newPresetsCmd())
	return root
}
