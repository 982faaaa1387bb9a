package daemonrun

import (
	"errors"
	"log/slog"

	"relay/internal/config"
	"relay/internal/control"
	"relay/internal/deliver"
	"relay/internal/history"
	"relay/internal/notifications"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/receipts"
	"relay/internal/workflow"
)

// Runtime is the wired set of collaborators behind one relay process.
type Runtime struct {
	Queue     *queue.WorkQueue
	Control   *control.State
	Deliverer *deliver.Deliverer
	Pipeline  *pipeline.Pipeline
	Notifier  notifications.Service
	History   *history.Store
	Receipts  *receipts.Ledger
	Manager   *workflow.Manager
}

// Build opens the stores and wires the pipeline and orchestrator for cfg.
// Callers must Close the runtime.
func Build(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	rt := &Runtime{
		Queue:    queue.New(cfg.Queue.File, cfg.Queue.Backup, cfg.QueueLockPath(), logger),
		Control:  control.New(cfg.CooldownDuration()),
		Notifier: notifications.NewService(cfg),
	}

	var err error
	if rt.Deliverer, err = deliver.NewFromConfig(cfg, logger); err != nil {
		return nil, err
	}
	opts := []workflow.Option{workflow.WithNotifier(rt.Notifier)}
	if cfg.History.Enabled {
		if rt.History, err = history.Open(cfg.History.Path); err != nil {
			rt.Close()
			return nil, err
		}
		opts = append(opts, workflow.WithHistory(rt.History))
	}
	if rt.Receipts, err = receipts.Open(cfg.History.ReceiptsPath); err != nil {
		rt.Close()
		return nil, err
	}
	opts = append(opts, workflow.WithReceipts(rt.Receipts))

	rt.Pipeline = pipeline.NewFromConfig(cfg, rt.Deliverer, rt.Control, logger)
	rt.Manager = workflow.NewManager(cfg, rt.Queue, rt.Pipeline, rt.Control, logger, opts...)
	return rt, nil
}

// Close releases sinks and stores.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Deliverer != nil {
		errs = append(errs, rt.Deliverer.Close())
	}
	if rt.History != nil {
		errs = append(errs, rt.History.Close())
	}
	if rt.Receipts != nil {
		errs = append(errs, rt.Receipts.Close())
	}
	return errors.Join(errs...)
}
