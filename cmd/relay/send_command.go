package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relay/internal/config"
	"relay/internal/daemon"
	"relay/internal/daemonrun"
	"relay/internal/ipc"
	"relay/internal/logging"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var title string
	var local bool
	cmd := &cobra.Command{
		Use:   "send <url>",
		Short: "Fetch and deliver one video now, outside the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !local {
				client, err := ctx.dialClient()
				if err == nil {
					defer client.Close()
					resp, err := client.Send(args[0], title)
					if err != nil {
						return err
					}
					return reportSend(cmd.OutOrStdout(), resp)
				}
				if !errors.Is(err, errDaemonNotRunning) {
					return err
				}
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			resp, err := sendInProcess(cmd.Context(), cfg, args[0], title)
			if err != nil {
				return err
			}
			return reportSend(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Caption title override")
	cmd.Flags().BoolVar(&local, "local", false, "Run the pipeline in this process even if a daemon is running")
	return cmd
}

// sendInProcess wires a throwaway runtime and runs one job through it.
func sendInProcess(ctx context.Context, cfg *config.Config, locator, title string) (*ipc.SendResponse, error) {
	desc, err := daemon.Descriptor(locator, title)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, "")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	rt, err := daemonrun.Build(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	return ipc.NewSendResponse(rt.Manager.Send(ctx, desc)), nil
}

func reportSend(out io.Writer, resp *ipc.SendResponse) error {
	if resp == nil {
		return errors.New("missing send response")
	}
	if !resp.Delivered {
		if resp.ErrorKind != "" {
			return fmt.Errorf("send failed (%s): %s", resp.ErrorKind, resp.Error)
		}
		return fmt.Errorf("send failed: %s", resp.Error)
	}
	fmt.Fprintf(out, "Delivered %q (%s)\n", resp.Title, formatBytes(resp.SizeBytes))
	if resp.ReceiptURL != "" {
		fmt.Fprintln(out, resp.ReceiptURL)
	}
	return nil
}
