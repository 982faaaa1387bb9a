package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"relay/internal/config"
	"relay/internal/remote"
)

func newRemoteCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "remote <pause|resume|skip|cooldown|start|stop|enqueue> [arg]",
		Short: "Publish a control command to the redis stream a remote daemon listens on",
		Long: "Publish a control command to the redis stream configured under [remote].\n" +
			"cooldown takes whole seconds; enqueue takes a queue line.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			command, err := buildRemoteCommand(args)
			if err != nil {
				return err
			}
			remoteCfg := cfg.Remote
			if strings.TrimSpace(addr) != "" {
				remoteCfg.Addr = strings.TrimSpace(addr)
			}
			if remoteCfg.Addr == "" {
				return errors.New("remote.addr is not configured (set it in the config or pass --addr)")
			}
			id, err := publishRemote(cmd, remoteCfg, command)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s as %s on %s\n", command.Op, id, remoteCfg.Stream)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Override remote.addr (host:port)")
	return cmd
}

func buildRemoteCommand(args []string) (remote.Command, error) {
	op, err := remote.ParseOp(args[0])
	if err != nil {
		return remote.Command{}, err
	}
	command := remote.Command{Op: op}
	var arg string
	if len(args) > 1 {
		arg = strings.TrimSpace(args[1])
	}
	switch op {
	case remote.OpCooldown:
		if arg == "" {
			return remote.Command{}, errors.New("cooldown requires a number of seconds")
		}
		seconds, err := parseCooldownArg(arg)
		if err != nil {
			return remote.Command{}, err
		}
		command.Seconds = seconds
	case remote.OpEnqueue:
		command.Line = arg
	default:
		if arg != "" {
			return remote.Command{}, fmt.Errorf("%s takes no argument", op)
		}
	}
	return command, command.Validate()
}

func publishRemote(cmd *cobra.Command, cfg config.Remote, command remote.Command) (string, error) {
	client := remote.NewClient(cfg)
	defer client.Close()
	return remote.NewPublisher(client, cfg.Stream).Publish(cmd.Context(), command)
}

