package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"relay/internal/config"
	"relay/internal/control"
	"relay/internal/fetch"
	"relay/internal/logging"
	"relay/internal/notifications"
	"relay/internal/queue"
)

// Manager is the batch orchestrator. One batch runs at a time.
type Manager struct {
	queue    Queue
	runner   Runner
	control  *control.State
	history  HistoryRecorder
	ledger   ReceiptLedger
	notifier notifications.Service
	logger   *slog.Logger

	countdownInterval time.Duration
	countdownBurst    time.Duration
	skipAck           time.Duration
	tick              time.Duration
	reportLimit       int

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
	current   *queue.Descriptor
	stage     string
	progress  *fetch.Progress
	index     int
	total     int
	summary   BatchSummary
	reports   []Report
	listeners []func(Report)
}

// Option configures optional collaborators.
type Option func(*Manager)

// WithHistory records every terminal outcome.
func WithHistory(h HistoryRecorder) Option {
	return func(m *Manager) { m.history = h }
}

// WithReceipts enables delivery receipts and reconciliation.
func WithReceipts(l ReceiptLedger) Option {
	return func(m *Manager) { m.ledger = l }
}

// WithNotifier overrides the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithTick sets the cooldown tick; tests use a short one.
func WithTick(d time.Duration) Option {
	return func(m *Manager) { m.tick = d }
}

// NewManager wires a manager from cfg.
func NewManager(cfg *config.Config, q Queue, runner Runner, state *control.State, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		queue:             q,
		runner:            runner,
		control:           state,
		notifier:          notifications.NewService(cfg),
		logger:            logging.NewComponentLogger(logger, "workflow"),
		countdownInterval: cfg.CountdownInterval(),
		countdownBurst:    cfg.CountdownBurst(),
		skipAck:           cfg.SkipAck(),
		tick:              time.Second,
		reportLimit:       50,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for every report. fn runs on the batch goroutine
// and must not block.
func (m *Manager) Subscribe(fn func(Report)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Control exposes the shared control state.
func (m *Manager) Control() *control.State { return m.control }
