package workflow

import (
	"context"
	"errors"
	"time"

	"relay/internal/history"
	"relay/internal/logging"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/receipts"
	"relay/internal/services"
)

type itemOutcome int

const (
	outcomeNone itemOutcome = iota
	outcomeDelivered
	outcomeFailed
	outcomeReconciled
)

// processItem runs one descriptor. A non-nil error ends the batch.
func (m *Manager) processItem(ctx context.Context, d queue.Descriptor, index, total int) (itemOutcome, error) {
	reconciled, err := m.reconcile(ctx, d, index, total)
	if err != nil {
		return outcomeNone, err
	}
	if reconciled {
		return outcomeReconciled, nil
	}

	res := m.runner.Run(ctx, m.job(d))
	if !res.Succeeded() {
		if ctx.Err() != nil {
			// Shutdown mid-item: the line stays queued and is not reported.
			m.logger.Info("item interrupted by shutdown", logging.String("descriptor", d.Line))
			return outcomeNone, ctx.Err()
		}
		m.reportFailed(ctx, res, index, total)
		return outcomeFailed, nil
	}

	m.putReceipt(d, res)
	if err := m.dequeue(ctx, d); err != nil {
		// Delivery happened; the receipt keeps the next run from reposting.
		m.reportDelivered(ctx, res, index, total)
		return outcomeDelivered, err
	}
	m.reportDelivered(ctx, res, index, total)
	return outcomeDelivered, nil
}

// reconcile dequeues an item that a previous run delivered but could not
// remove from the queue.
func (m *Manager) reconcile(ctx context.Context, d queue.Descriptor, index, total int) (bool, error) {
	if m.ledger == nil {
		return false, nil
	}
	receipt, ok, err := m.ledger.Get(d.Line)
	if err != nil {
		logging.WarnWithContext(m.logger, "receipt lookup failed", "receipt_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the receipts directory"),
			logging.String(logging.FieldImpact, "item is processed normally"),
		)
		return false, nil
	}
	if !ok {
		return false, nil
	}
	if err := m.dequeue(ctx, d); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	m.record(ctx, history.Outcome{
		JobID:      receipt.JobID,
		Descriptor: d.Line,
		Locator:    d.Locator,
		Title:      receipt.Title,
		Status:     history.StatusReconciled,
		Sink:       receipt.Sink,
		ReceiptID:  receipt.ID,
		ReceiptURL: receipt.URL,
		SizeBytes:  receipt.SizeBytes,
		StartedAt:  now,
		FinishedAt: now,
	})
	m.emit(ctx, Report{
		Kind:       ReportItemReconciled,
		Descriptor: &d,
		Title:      receipt.Title,
		ReceiptURL: receipt.URL,
		Index:      index,
		Total:      total,
		Message:    "Already delivered earlier; removed from queue: " + displayTitle(receipt.Title, d),
	})
	return true, nil
}

func (m *Manager) putReceipt(d queue.Descriptor, res pipeline.Result) {
	if m.ledger == nil {
		return
	}
	err := m.ledger.Put(receipts.Receipt{
		Descriptor: d.Line,
		JobID:      res.JobID,
		Sink:       res.Receipt.Sink,
		ID:         res.Receipt.ID,
		URL:        res.Receipt.URL,
		Title:      res.Title,
		SizeBytes:  res.SizeBytes,
	})
	if err != nil {
		logging.WarnWithContext(m.logger, "receipt write failed", "receipt_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a crash before dequeue could repost this item"),
		)
	}
}

func (m *Manager) dequeue(ctx context.Context, d queue.Descriptor) error {
	removed, err := m.queue.Remove(ctx, d)
	if err != nil {
		if !errors.Is(err, services.ErrQueue) {
			err = services.Wrap(services.ErrQueue, "workflow", "dequeue", d.Line, err)
		}
		return err
	}
	if removed == 0 {
		m.logger.Info("queue line already gone", logging.String("descriptor", d.Line))
	}
	if m.ledger != nil {
		if err := m.ledger.Delete(d.Line); err != nil {
			m.logger.Debug("receipt delete failed", logging.Error(err))
		}
	}
	return nil
}

func displayTitle(title string, d queue.Descriptor) string {
	if title != "" {
		return title
	}
	return d.Title(d.Locator)
}
