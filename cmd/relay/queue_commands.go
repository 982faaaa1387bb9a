package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"relay/internal/ipc"
	"relay/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit the work queue file",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	return queueCmd
}

// withQueue runs fn against the daemon when one is listening, otherwise
// against the queue file directly. Exactly one of client and q is non-nil.
func (c *commandContext) withQueue(fn func(client *ipc.Client, q *queue.WorkQueue) error) error {
	client, err := c.dialClient()
	if err == nil {
		defer client.Close()
		return fn(client, nil)
	}
	if !errors.Is(err, errDaemonNotRunning) {
		return err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return fn(nil, queue.New(cfg.Queue.File, cfg.Queue.Backup, cfg.QueueLockPath(), nil))
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued videos in processing order (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, q *queue.WorkQueue) error {
				var items []queue.Descriptor
				if client != nil {
					resp, err := client.QueueList()
					if err != nil {
						return err
					}
					items = resp.Items
				} else {
					loaded, err := q.Load(cmd.Context())
					if err != nil {
						return err
					}
					items = loaded
				}
				if asJSON {
					if items == nil {
						items = []queue.Descriptor{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Title", "Locator"},
					buildQueueRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <line>...",
		Short: "Append one or more \"[title ]url\" lines to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, q *queue.WorkQueue) error {
				var added []queue.Descriptor
				if client != nil {
					resp, err := client.QueueAdd(args...)
					if err != nil {
						return err
					}
					added = resp.Added
				} else {
					appended, err := q.Append(cmd.Context(), args...)
					if err != nil {
						return err
					}
					added = appended
				}
				for _, d := range added {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", d.Locator)
				}
				return nil
			})
		},
	}
}
