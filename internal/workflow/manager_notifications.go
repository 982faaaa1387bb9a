package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay/internal/history"
	"relay/internal/logging"
	"relay/internal/notifications"
	"relay/internal/pipeline"
)

func (m *Manager) reportDelivered(ctx context.Context, res pipeline.Result, index, total int) {
	m.record(ctx, outcomeFromResult(res, history.StatusDelivered))
	msg := fmt.Sprintf("Delivered %s", displayTitle(res.Title, res.Descriptor))
	if res.Receipt.URL != "" {
		msg += ": " + res.Receipt.URL
	} else if res.Receipt.ID != "" {
		msg += fmt.Sprintf(" (%s %s)", res.Receipt.Sink, res.Receipt.ID)
	}
	if res.BrandFallback {
		msg += " [unbranded]"
	}
	d := res.Descriptor
	m.emit(ctx, Report{
		Kind:       ReportItemDelivered,
		Descriptor: &d,
		Title:      res.Title,
		ReceiptURL: res.Receipt.URL,
		Index:      index,
		Total:      total,
		Message:    msg,
	})
	note := ""
	if res.BrandFallback {
		note = "delivered without watermark"
	}
	m.publish(ctx, notifications.EventItemDelivered, notifications.Payload{
		"title":     res.Title,
		"url":       res.Receipt.URL,
		"sizeBytes": res.SizeBytes,
		"note":      note,
	})
}

func (m *Manager) reportFailed(ctx context.Context, res pipeline.Result, index, total int) {
	m.record(ctx, outcomeFromResult(res, history.StatusFailed))
	kind := res.Kind()
	d := res.Descriptor
	m.emit(ctx, Report{
		Kind:       ReportItemFailed,
		Descriptor: &d,
		Title:      res.Title,
		ErrorKind:  kind,
		Error:      res.Err.Error(),
		Index:      index,
		Total:      total,
		Message:    fmt.Sprintf("Failed %s (%s): %v", displayTitle(res.Title, d), kind, res.Err),
	})
	m.publish(ctx, notifications.EventItemFailed, notifications.Payload{
		"title": displayTitle(res.Title, d),
		"kind":  kind,
		"error": res.Err.Error(),
	})
}

func (m *Manager) publishBatchCompleted(ctx context.Context, s BatchSummary) {
	m.publish(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"delivered": s.Delivered + s.Reconciled,
		"failed":    s.Failed,
		"duration":  s.Duration,
	})
}

func outcomeFromResult(res pipeline.Result, status history.Status) history.Outcome {
	o := history.Outcome{
		JobID:         res.JobID,
		Descriptor:    res.Descriptor.Line,
		Locator:       res.Descriptor.Locator,
		Title:         res.Title,
		Status:        status,
		Sink:          res.Receipt.Sink,
		ReceiptID:     res.Receipt.ID,
		ReceiptURL:    res.Receipt.URL,
		SizeBytes:     res.SizeBytes,
		Duration:      res.Duration,
		Branded:       res.Branded,
		BrandFallback: res.BrandFallback,
		Refetched:     res.Refetched,
		Fitted:        res.Fitted,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}
	if res.Err != nil {
		o.ErrorKind = res.Kind()
		o.ErrorMessage = res.Err.Error()
	}
	return o
}

func (m *Manager) record(ctx context.Context, o history.Outcome) {
	if m.history == nil {
		return
	}
	if _, err := m.history.Record(context.WithoutCancel(ctx), o); err != nil {
		logging.WarnWithContext(m.logger, "history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path"),
			logging.String(logging.FieldImpact, "outcome missing from relay history"),
		)
	}
}

// emit logs a report, keeps it for status queries, publishes batch events
// to ntfy, and fans it out to listeners.
func (m *Manager) emit(ctx context.Context, r Report) {
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, string(r.Kind)),
	}
	if r.Descriptor != nil {
		attrs = append(attrs, logging.String("descriptor", r.Descriptor.Line))
	}
	if r.Remaining > 0 {
		attrs = append(attrs, logging.Duration("remaining", r.Remaining))
	}
	switch r.Kind {
	case ReportItemFailed:
		logging.WarnWithContext(m.logger, r.Message, string(r.Kind), append(attrs,
			logging.String("error_kind", r.ErrorKind),
			logging.String(logging.FieldErrorHint, "the line stays queued for the next run"),
			logging.String(logging.FieldImpact, "item not delivered"),
		)...)
	case ReportBatchAborted:
		logging.ErrorWithContext(m.logger, r.Message, string(r.Kind), append(attrs,
			logging.String(logging.FieldErrorHint, "check the queue file and its permissions"),
			logging.String(logging.FieldImpact, "remaining items were not processed"),
		)...)
	default:
		m.logger.Info(r.Message, logging.Args(attrs...)...)
	}

	m.mu.Lock()
	m.reports = append(m.reports, r)
	if over := len(m.reports) - m.reportLimit; over > 0 {
		m.reports = append([]Report(nil), m.reports[over:]...)
	}
	m.mu.Unlock()

	switch r.Kind {
	case ReportBatchStarted:
		m.publish(ctx, notifications.EventBatchStarted, notifications.Payload{"count": r.Total})
	case ReportBatchAborted:
		m.publish(ctx, notifications.EventBatchAborted, notifications.Payload{"error": r.Error})
	case ReportCooldownSkipped:
		m.publish(ctx, notifications.EventCooldownSkipped, notifications.Payload{"remaining": r.Remaining})
	}
	m.notifyListeners(r)
}

func (m *Manager) notifyListeners(r Report) {
	m.mu.RLock()
	listeners := append([]func(Report)(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(r)
	}
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, notification dropped", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
