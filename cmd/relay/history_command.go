package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	var showStats bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent delivery outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			outcomes, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if outcomes == nil {
					outcomes = []history.Outcome{}
				}
				return writeJSON(cmd, outcomes)
			}
			out := cmd.OutOrStdout()
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No deliveries recorded")
			} else {
				fmt.Fprint(out, renderTable(
					[]string{"Finished", "Status", "Title", "Sink", "Size", "Detail"},
					buildHistoryRows(outcomes),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
			}
			if showStats {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Totals: %d delivered, %d failed, %d reconciled, %s sent\n",
					stats.Delivered, stats.Failed, stats.Reconciled, formatBytes(stats.Bytes))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum outcomes to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print totals across all recorded outcomes")
	return cmd
}
