package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"relay/internal/config"
	"relay/internal/daemon"
	"relay/internal/deps"
	"relay/internal/ipc"
	"relay/internal/logging"
	"relay/internal/remote"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the relay daemon and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("relay-%s.log", runID))
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		FileFormat:       cfg.Logging.FileFormat,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update relay.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "relay-*.log", Exclude: []string{logPath}},
	)
	logDependencySnapshot(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Build(cfg, logger)
	if err != nil {
		logger.Error("wire runtime", logging.Error(err))
		return err
	}
	defer rt.Close()

	d, err := daemon.New(cfg, rt.Queue, rt.Manager, logger,
		daemon.WithHistory(rt.History),
		daemon.WithNotifier(rt.Notifier),
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if cfg.Remote.Enabled {
		client := remote.NewClient(cfg.Remote)
		defer client.Close()
		listener := remote.NewListener(client, cfg.Remote.Stream, d, logger)
		go func() {
			if err := listener.Run(signalCtx); err != nil {
				logging.WarnWithContext(logger, "remote listener stopped", "remote_listener_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check remote.addr and credentials"),
					logging.String(logging.FieldImpact, "remote commands are ignored until restart"),
				)
			}
		}()
	}

	<-signalCtx.Done()
	logger.Info("relay daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "relay.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("primary_sink", cfg.Deliver.Primary),
		logging.String("secondary_sink", cfg.Deliver.Secondary),
		logging.Bool("brand_enabled", cfg.Brand.Enabled),
		logging.Bool("remote_enabled", cfg.Remote.Enabled),
	}
	for _, status := range deps.CheckSystemDeps(cfg) {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, missing := range deps.Missing(deps.CheckSystemDeps(cfg)) {
		logging.WarnWithContext(logger, "required tool missing", "dependency_missing",
			logging.String("tool", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldErrorHint, "install it or set its path in the config"),
			logging.String(logging.FieldImpact, "items fail at the stage that needs it"),
		)
	}
}
