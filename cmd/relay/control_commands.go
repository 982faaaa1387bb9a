package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"relay/internal/ipc"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a batch over the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Batch started")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running batch (the daemon keeps running)",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Batch stopped")
				return nil
			})
			if errors.Is(err, errDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			return err
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the batch at the next stage boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause()
				if err != nil {
					return err
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Paused")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Already paused")
				}
				return nil
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume()
				if err != nil {
					return err
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Resumed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Not paused")
				}
				return nil
			})
		},
	}

	skipCmd := &cobra.Command{
		Use:   "skip",
		Short: "End the current cooldown (or the next one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Skip()
				if err != nil {
					return err
				}
				if resp.InCooldown {
					fmt.Fprintln(cmd.OutOrStdout(), "Cooldown skipped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Skip armed for the next cooldown")
				}
				return nil
			})
		},
	}

	cooldownCmd := &cobra.Command{
		Use:   "cooldown <seconds>",
		Short: "Set the wait between items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parseCooldownArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetCooldown(seconds)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cooldown set to %s\n", formatSeconds(resp.Seconds))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, pauseCmd, resumeCmd, skipCmd, cooldownCmd}
}

func parseCooldownArg(raw string) (int, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cooldown %q: expected whole seconds", raw)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("cooldown must be zero or positive, got %d", seconds)
	}
	return seconds, nil
}
