package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"relay/internal/config"
	"relay/internal/control"
	"relay/internal/daemon"
	"relay/internal/deliver"
	"relay/internal/logging"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/remote"
	"relay/internal/services"
	"relay/internal/testsupport"
	"relay/internal/workflow"
)

type stubRunner struct {
	mu    sync.Mutex
	lines []string
}

func (r *stubRunner) Run(_ context.Context, job pipeline.Job) pipeline.Result {
	r.mu.Lock()
	r.lines = append(r.lines, job.Descriptor.Line)
	r.mu.Unlock()
	return pipeline.Result{
		JobID:      "abc123",
		Descriptor: job.Descriptor,
		Title:      job.Descriptor.Title("Fetched"),
		Receipt:    deliver.Receipt{Sink: config.SinkTelegram, ID: "1"},
	}
}

func (r *stubRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newDaemon(t *testing.T, lines ...string) (*daemon.Daemon, *config.Config, *stubRunner) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Batch.AutoStart = false
	if len(lines) > 0 {
		if err := os.MkdirAll(filepath.Dir(cfg.Queue.File), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(cfg.Queue.File, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	logger := logging.NewNop()
	q := queue.New(cfg.Queue.File, cfg.Queue.Backup, cfg.QueueLockPath(), logger)
	runner := &stubRunner{}
	mgr := workflow.NewManager(cfg, q, runner, control.New(0), logger)
	d, err := daemon.New(cfg, q, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, cfg, runner
}

func TestDaemonStartStop(t *testing.T) {
	d, cfg, _ := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status(ctx, 0).Running {
		t.Fatal("expected daemon to report running")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other := flock.New(cfg.LockPath())
	if ok, _ := other.TryLock(); ok {
		t.Fatal("lock should be held while running")
	}

	d.Stop()
	if d.Status(ctx, 0).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if ok, err := other.TryLock(); !ok || err != nil {
		t.Fatalf("lock should be free after stop: %v", err)
	}
	_ = other.Unlock()
}

func TestDaemonRefusesWhenLockHeld(t *testing.T) {
	d, cfg, _ := newDaemon(t)
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	other := flock.New(cfg.LockPath())
	if ok, err := other.TryLock(); !ok || err != nil {
		t.Fatalf("pre-lock: %v", err)
	}
	defer other.Unlock()

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected single-instance error, got %v", err)
	}
}

func TestDaemonStartSweepsStaleJobDirs(t *testing.T) {
	d, cfg, _ := newDaemon(t)
	stale := filepath.Join(cfg.Paths.WorkDir, "job-old")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-cfg.StaleAfter() - time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale job dir should be removed, stat err %v", err)
	}
}

func TestDaemonBatchAndQueueOperations(t *testing.T) {
	d, cfg, runner := newDaemon(t, "First https://example.com/1")
	ctx := context.Background()

	if err := d.StartBatch(); err == nil {
		t.Fatal("batch start should require a running daemon")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	added, err := d.QueueAdd(ctx, "Second https://example.com/2")
	if err != nil || len(added) != 1 || added[0].TitleOverride != "Second" {
		t.Fatalf("QueueAdd = %+v, %v", added, err)
	}
	items, err := d.QueueList(ctx)
	if err != nil || len(items) != 2 || items[0].Locator != "https://example.com/2" {
		t.Fatalf("QueueList = %+v, %v", items, err)
	}

	if err := d.StartBatch(); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for d.Status(ctx, 0).Workflow.Running || d.Status(ctx, 0).QueueLength > 0 {
		if time.Now().After(deadline) {
			t.Fatal("batch did not drain the queue")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := runner.seen(); len(got) != 2 {
		t.Fatalf("runner saw %v", got)
	}
	data, _ := os.ReadFile(cfg.Queue.File)
	if strings.TrimSpace(string(data)) != "" {
		t.Fatalf("queue should be empty, got %q", data)
	}
}

func TestDaemonAutoStartsBatch(t *testing.T) {
	d, cfg, runner := newDaemon(t, "https://example.com/auto")
	cfg.Batch.AutoStart = true
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(runner.seen()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("auto-start did not run the queue")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonApplyRemoteCommands(t *testing.T) {
	d, _, _ := newDaemon(t)
	ctx := context.Background()

	if err := d.Apply(ctx, remote.Command{Op: remote.OpPause}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !d.Status(ctx, 0).Workflow.Control.Paused {
		t.Fatal("expected paused")
	}
	if err := d.Apply(ctx, remote.Command{Op: remote.OpResume}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := d.Apply(ctx, remote.Command{Op: remote.OpCooldown, Seconds: 120}); err != nil {
		t.Fatalf("cooldown: %v", err)
	}
	if err := d.Apply(ctx, remote.Command{Op: remote.OpSkip}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	snap := d.Status(ctx, 0).Workflow.Control
	if snap.Paused || snap.Cooldown != 2*time.Minute || !snap.SkipPending {
		t.Fatalf("unexpected control snapshot %+v", snap)
	}
	if err := d.Apply(ctx, remote.Command{Op: remote.OpCooldown, Seconds: -5}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := d.Apply(ctx, remote.Command{Op: remote.OpEnqueue, Line: "Remote https://example.com/r"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	items, _ := d.QueueList(ctx)
	if len(items) != 1 || items[0].TitleOverride != "Remote" {
		t.Fatalf("unexpected queue %+v", items)
	}
}

func TestDaemonSend(t *testing.T) {
	d, _, runner := newDaemon(t, "Queued https://example.com/q")
	ctx := context.Background()

	if _, err := d.Send(ctx, "  ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	res, err := d.Send(ctx, "https://example.com/direct", "My Title")
	if err != nil || !res.Succeeded() {
		t.Fatalf("Send = %+v, %v", res, err)
	}
	if res.Title != "My Title" {
		t.Fatalf("title = %q", res.Title)
	}
	if got := runner.seen(); len(got) != 1 || got[0] != "My Title https://example.com/direct" {
		t.Fatalf("runner saw %v", got)
	}
	items, _ := d.QueueList(ctx)
	if len(items) != 1 {
		t.Fatal("send must not modify the queue")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _, _ := newDaemon(t)
	sent, msg, err := d.TestNotification(context.Background())
	if sent || err != nil || msg != "ntfy topic not configured" {
		t.Fatalf("TestNotification = %v %q %v", sent, msg, err)
	}
}
