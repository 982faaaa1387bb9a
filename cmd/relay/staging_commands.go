package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"relay/internal/logging"
	"relay/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean per-job work directories",
	}
	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))
	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job directories left in the work directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return fmt.Errorf("list job directories: %w", err)
			}
			var total int64
			for _, dir := range dirs {
				total += dir.Size
			}
			if asJSON {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"work_dir":         cfg.Paths.WorkDir,
					"directories":      dirs,
					"total_size_bytes": total,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No job directories found")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{dir.Name, formatAge(time.Since(dir.ModTime)), formatBytes(dir.Size)})
			}
			fmt.Fprintf(out, "Work directory: %s\n\n", cfg.Paths.WorkDir)
			fmt.Fprint(out, renderTable([]string{"Job", "Age", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			fmt.Fprintf(out, "\nTotal: %s, %s\n", pluralize(len(dirs), "directory", "directories"), formatBytes(total))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove job directories older than the stale threshold",
		Long: `Remove job directories left behind by crashed runs.

By default the threshold is cleanup.stale_after_hours. Live jobs are always
younger than any sensible threshold, so this is safe while a batch runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := cfg.StaleAfter()
			if olderThan > 0 {
				maxAge = olderThan
			}
			if maxAge <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Stale sweep disabled (cleanup.stale_after_hours = 0)")
				return nil
			}
			logger, err := logging.NewFromConfig(cfg, "")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)
			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No stale job directories to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %s\n", pluralize(len(result.Removed), "directory", "directories"))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%s could not be removed", pluralize(len(result.Errors), "directory", "directories"))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Override the stale threshold (e.g. 30m, 6h)")
	return cmd
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
