package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"relay/internal/config"
	"relay/internal/control"
	"relay/internal/deps"
	"relay/internal/history"
	"relay/internal/logging"
	"relay/internal/notifications"
	"relay/internal/queue"
	"relay/internal/staging"
	"relay/internal/workflow"
)

// Daemon owns the single-instance lock and fronts the orchestrator.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    *queue.WorkQueue
	workflow *workflow.Manager
	control  *control.State
	history  *history.Store
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures optional collaborators.
type Option func(*Daemon)

// WithHistory exposes the outcome log through History.
func WithHistory(store *history.Store) Option {
	return func(d *Daemon) { d.history = store }
}

// WithNotifier sets the service used by TestNotification.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) { d.notifier = n }
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	PID          int                    `json:"pid"`
	LockPath     string                 `json:"lock_path"`
	QueuePath    string                 `json:"queue_path"`
	QueueLength  int                    `json:"queue_length"`
	QueueError   string                 `json:"queue_error,omitempty"`
	FreeBytes    uint64                 `json:"free_bytes"`
	Workflow     workflow.StatusSummary `json:"workflow"`
	Dependencies []deps.Status          `json:"dependencies"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, q *queue.WorkQueue, wf *workflow.Manager, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || q == nil || wf == nil {
		return nil, errors.New("daemon requires config, queue, and workflow manager")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		queue:    q,
		workflow: wf,
		control:  wf.Control(),
		notifier: notifications.NewService(nil),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, sweeps stale work directories and, when
// batch.auto_start is set, begins a batch.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(d.cfg.Paths.StateDir, 0o755); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("create state dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		d.mu.Unlock()
		return errors.New("another relay daemon instance is already running")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true
	d.mu.Unlock()

	swept := staging.CleanStale(ctx, d.cfg.Paths.WorkDir, d.cfg.StaleAfter(), d.logger)
	if len(swept.Removed) > 0 {
		d.logger.Info("stale work directories removed", logging.Int("count", len(swept.Removed)))
	}
	d.logger.Info("relay daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)

	if d.cfg.Batch.AutoStart {
		if err := d.StartBatch(); err != nil {
			logging.WarnWithContext(d.logger, "auto-start batch failed", "batch_autostart_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "queue is not processed until `relay start`"),
			)
		}
	}
	return nil
}

// Stop cancels any batch and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.ctx, d.cancel = nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("relay daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

func (d *Daemon) runContext() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running || d.ctx == nil {
		return nil, errors.New("daemon not running")
	}
	return d.ctx, nil
}

// StartBatch begins processing the queue in the background. The batch is
// bound to the daemon lifetime, not the caller's request.
func (d *Daemon) StartBatch() error {
	ctx, err := d.runContext()
	if err != nil {
		return err
	}
	d.checkFreeSpace()
	if err := d.workflow.Start(ctx); err != nil {
		return err
	}
	d.logger.Info("batch start requested", logging.String(logging.FieldEventType, "batch_start_requested"))
	return nil
}

// StopBatch cancels the active batch. The current item stays queued.
func (d *Daemon) StopBatch() {
	d.workflow.Stop()
	d.logger.Info("batch stop requested", logging.String(logging.FieldEventType, "batch_stop_requested"))
}

func (d *Daemon) checkFreeSpace() {
	status := deps.CheckFreeSpace("work_dir", d.cfg.Paths.WorkDir, deps.MinFreeBytes)
	if !status.Available {
		logging.WarnWithContext(d.logger, "work directory low on space", "low_disk_space",
			logging.String("path", d.cfg.Paths.WorkDir),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "free space under paths.work_dir"),
			logging.String(logging.FieldImpact, "downloads or encodes may fail mid-item"),
		)
	}
}

// Pause suspends processing at the next stage boundary. It reports whether
// the state changed.
func (d *Daemon) Pause() bool {
	changed := d.control.Pause()
	if changed {
		d.logger.Info("batch paused", logging.String(logging.FieldEventType, "batch_paused"))
	}
	return changed
}

// Resume releases a pause. It reports whether the state changed.
func (d *Daemon) Resume() bool {
	changed := d.control.Resume()
	if changed {
		d.logger.Info("batch resumed", logging.String(logging.FieldEventType, "batch_resumed"))
	}
	return changed
}

// Skip ends the current cooldown, or the next one if none is active.
func (d *Daemon) Skip() {
	d.control.Skip()
	d.logger.Info("cooldown skip requested", logging.String(logging.FieldEventType, "cooldown_skip_requested"))
}

// SetCooldown changes the inter-item wait for subsequent cooldowns.
func (d *Daemon) SetCooldown(seconds int) error {
	if err := d.control.SetCooldown(time.Duration(seconds) * time.Second); err != nil {
		return err
	}
	d.logger.Info("cooldown updated",
		logging.Int("seconds", seconds),
		logging.String(logging.FieldEventType, "cooldown_set"),
	)
	return nil
}

// Status returns the current daemon status. reports bounds the recent
// report history included.
func (d *Daemon) Status(ctx context.Context, reports int) Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	st := Status{
		Running:      running,
		PID:          os.Getpid(),
		LockPath:     d.lockPath,
		QueuePath:    d.queue.Path(),
		Workflow:     d.workflow.Status(reports),
		Dependencies: deps.CheckSystemDeps(d.cfg),
	}
	if items, err := d.queue.Load(ctx); err != nil {
		st.QueueError = err.Error()
	} else {
		st.QueueLength = len(items)
	}
	if free, err := deps.FreeSpace(d.cfg.Paths.WorkDir); err == nil {
		st.FreeBytes = free
	}
	return st
}

// QueueList returns queued descriptors in processing order.
func (d *Daemon) QueueList(ctx context.Context) ([]queue.Descriptor, error) {
	return d.queue.Load(ctx)
}

// QueueAdd appends lines to the queue file.
func (d *Daemon) QueueAdd(ctx context.Context, lines ...string) ([]queue.Descriptor, error) {
	return d.queue.Append(ctx, lines...)
}

// History returns the most recent outcomes.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Outcome, error) {
	if d.history == nil {
		return nil, errors.New("history is disabled")
	}
	return d.history.Recent(ctx, limit)
}

// TestNotification publishes a test event using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
