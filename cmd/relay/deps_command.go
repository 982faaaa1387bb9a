package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"relay/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			space := deps.CheckFreeSpace("Free space", cfg.Paths.WorkDir, deps.MinFreeBytes)
			space.Optional = true
			statuses := deps.CheckSystemDeps(cfg)
			statuses = append(statuses,
				deps.CheckDirectory("Work directory", cfg.Paths.WorkDir),
				deps.CheckDirectory("State directory", cfg.Paths.StateDir),
				space,
			)
			if asJSON {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, line := range dependencyLines(statuses, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
			}
			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%s missing", pluralize(len(missing), "required dependency", "required dependencies"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
