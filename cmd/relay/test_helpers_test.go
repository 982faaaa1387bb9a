package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/internal/config"
	"relay/internal/control"
	"relay/internal/daemon"
	"relay/internal/deliver"
	"relay/internal/history"
	"relay/internal/ipc"
	"relay/internal/logging"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/testsupport"
	"relay/internal/workflow"
)

type okRunner struct{}

func (okRunner) Run(_ context.Context, job pipeline.Job) pipeline.Result {
	return pipeline.Result{
		JobID:      "job-cli",
		Descriptor: job.Descriptor,
		Title:      job.Descriptor.Title("Fetched title"),
		SizeBytes:  4096,
		Receipt:    deliver.Receipt{Sink: config.SinkTelegram, ID: "9", URL: "https://t.me/c/9"},
	}
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

// newCLIConfig writes a config file that Load accepts and returns both.
func newCLIConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Batch.AutoStart = false
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg, configPath := newCLIConfig(t)

	logger := logging.NewNop()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	q := queue.New(cfg.Queue.File, cfg.Queue.Backup, cfg.QueueLockPath(), logger)
	mgr := workflow.NewManager(cfg, q, okRunner{}, control.New(0), logger, workflow.WithHistory(store))
	d, err := daemon.New(cfg, q, mgr, logger, daemon.WithHistory(store))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	socketPath := cfg.Paths.SocketPath
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	return &cliTestEnv{cfg: cfg, daemon: d, socketPath: socketPath, configPath: configPath}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
state_dir = %q
log_dir = %q
socket_path = %q

[queue]
file = %q
backup = %q

[telegram]
token = %q
chat_id = %q

[batch]
cooldown_seconds = 0
skip_ack_seconds = 0
auto_start = false

[cleanup]
retry_delay_ms = 0

[history]
path = %q
receipts_path = %q
`,
		cfg.Paths.WorkDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.SocketPath,
		cfg.Queue.File, cfg.Queue.Backup,
		cfg.Telegram.Token, cfg.Telegram.ChatID,
		cfg.History.Path, cfg.History.ReceiptsPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeQueueFile(t *testing.T, cfg *config.Config, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(cfg.Queue.File, []byte(content), 0o644); err != nil {
		t.Fatalf("write queue: %v", err)
	}
}

func missingSocket(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.sock")
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
