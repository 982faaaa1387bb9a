package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay/internal/control"
	"relay/internal/fetch"
	"relay/internal/logging"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/services"
)

// ErrBatchRunning is returned by Start while a batch is active.
var ErrBatchRunning = errors.New("batch already running")

// Start runs a batch in the background. It returns ErrBatchRunning when one
// is already active.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrBatchRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		_, _ = m.runBatch(runCtx)
	}()
	return nil
}

// Stop cancels the active batch and waits for it to return. Cancellation
// is a shutdown path: the current stage is aborted and its item stays queued.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the active batch, if any, finishes.
func (m *Manager) Wait() {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// RunBatch runs one batch synchronously.
func (m *Manager) RunBatch(ctx context.Context) (BatchSummary, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return BatchSummary{}, ErrBatchRunning
	}
	m.running = true
	m.mu.Unlock()
	return m.runBatch(ctx)
}

func (m *Manager) runBatch(ctx context.Context) (summary BatchSummary, err error) {
	summary.StartedAt = time.Now().UTC()
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.current = nil
		m.stage = ""
		m.progress = nil
		m.summary = summary
		if err != nil && !errors.Is(err, context.Canceled) {
			m.lastErr = err
		}
		m.mu.Unlock()
	}()

	items, err := m.queue.Load(ctx)
	if err != nil {
		summary.Aborted = err.Error()
		m.emit(ctx, Report{Kind: ReportBatchAborted, Message: "Batch aborted: " + err.Error(), Error: err.Error(), ErrorKind: services.Classify(err)})
		return summary, err
	}
	summary.Total = len(items)
	m.setTotals(0, len(items))
	m.emit(ctx, Report{Kind: ReportBatchStarted, Total: len(items), Message: fmt.Sprintf("Batch started with %d items", len(items))})

	for i, d := range items {
		if err := m.control.WaitIfPaused(ctx); err != nil {
			return summary, err
		}
		m.setCurrent(i+1, &d)

		outcome, err := m.processItem(ctx, d, i+1, len(items))
		switch outcome {
		case outcomeDelivered:
			summary.Delivered++
		case outcomeFailed:
			summary.Failed++
		case outcomeReconciled:
			summary.Reconciled++
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				summary.Aborted = err.Error()
				m.emit(ctx, Report{Kind: ReportBatchAborted, Message: "Batch aborted: " + err.Error(), Error: err.Error(), ErrorKind: services.Classify(err)})
			}
			return summary, err
		}

		if outcome != outcomeReconciled && i < len(items)-1 {
			if err := m.cooldown(ctx); err != nil {
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	m.emit(ctx, Report{
		Kind:    ReportBatchCompleted,
		Total:   summary.Total,
		Message: fmt.Sprintf("Batch complete: %d delivered, %d failed, %d reconciled", summary.Delivered, summary.Failed, summary.Reconciled),
	})
	m.publishBatchCompleted(ctx, summary)
	return summary, nil
}

// Send runs the pipeline for a single descriptor without touching the queue
// or the cooldown. The result is reported and recorded like a batch item. It
// fails with ErrBatchRunning while a batch or another send is active.
func (m *Manager) Send(ctx context.Context, d queue.Descriptor) pipeline.Result {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return pipeline.Result{Descriptor: d, Err: ErrBatchRunning}
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.stage = ""
		m.progress = nil
		m.mu.Unlock()
	}()

	m.setCurrent(1, &d)
	defer m.setCurrent(0, nil)
	res := m.runner.Run(ctx, m.job(d))
	if res.Succeeded() {
		m.reportDelivered(ctx, res, 1, 1)
	} else {
		m.reportFailed(ctx, res, 1, 1)
	}
	return res
}

func (m *Manager) job(d queue.Descriptor) pipeline.Job {
	return pipeline.Job{
		Descriptor: d,
		OnStage:    m.setStage,
		OnProgress: m.onProgress(d),
	}
}

func (m *Manager) onProgress(d queue.Descriptor) func(fetch.Progress) {
	return func(p fetch.Progress) {
		m.mu.Lock()
		cp := p
		m.progress = &cp
		m.mu.Unlock()
		m.notifyListeners(Report{
			Kind:       ReportProgress,
			Time:       time.Now().UTC(),
			Descriptor: &d,
			Message:    formatProgress(p),
		})
	}
}

func (m *Manager) cooldown(ctx context.Context) error {
	d := m.control.CooldownDuration()
	if d <= 0 {
		if m.control.ConsumeSkip() {
			m.logger.Debug("skip consumed; cooldown disabled")
		}
		return nil
	}
	throttle := logging.NewThrottle(m.countdownInterval, m.countdownBurst)
	throttle.Reset(time.Now())
	m.setStage("cooldown")
	defer m.setStage("")

	m.emit(ctx, Report{Kind: ReportCountdown, Remaining: d, Message: "Waiting before next video: " + formatRemaining(d) + " remaining"})
	outcome, err := m.control.Cooldown(ctx, d, control.CooldownOptions{
		SkipAck: m.skipAck,
		Tick:    m.tick,
		OnTick: func(remaining time.Duration) {
			if remaining <= 0 || !throttle.Allow(time.Now()) {
				return
			}
			m.emit(ctx, Report{Kind: ReportCountdown, Remaining: remaining, Message: "Countdown: " + formatRemaining(remaining) + " remaining"})
		},
		OnSkip: func(remaining time.Duration) {
			m.emit(ctx, Report{Kind: ReportCooldownSkipped, Remaining: remaining, Message: "Skipping wait time; moving to next video"})
		},
	})
	if err != nil {
		return err
	}
	m.logger.Debug("cooldown finished", logging.String("outcome", outcome.String()))
	return nil
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mnt := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%dh %dm %ds", h, mnt, s)
}

func formatProgress(p fetch.Progress) string {
	msg := fmt.Sprintf("Downloading: %.1f%%", p.Percent)
	if p.Speed != "" {
		msg += " at " + p.Speed
	}
	if p.ETA != "" {
		msg += ", ETA " + p.ETA
	}
	if p.Elapsed > 0 {
		msg += fmt.Sprintf(", elapsed %s", p.Elapsed.Round(time.Second))
	}
	return msg
}
