package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hydroeval/internal/config"
	"hydroeval/internal/format"
)

func newPresetsCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the embedded glob and column presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tb := format.NewTable(format.ParseMode(table))
			tb.Title("Presets")
			tb.Header("Name", "Simulation glob", "Observation glob", "Index", "Observation", "Simulation")
			for _, name := range config.ListPresets() {
				p, err := config.Preset(name, config.RunConfig{})
				if err != nil {
					return err
				}
				obs := p.ObservationGlob
				if obs == "" {
					obs = "(combined)"
				}
				tb.Row(name, p.SimulationGlob, obs, p.IndexColumn, p.ObservationColumn, p.SimulationColumn)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), tb.String())
			return err
		},
	}
	cmd.Flags().StringVar(&table, "table", "ascii", "Table format (ascii, markdown)")
	return cmd
}
