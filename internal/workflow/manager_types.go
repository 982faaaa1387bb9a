package workflow

import (
	"context"
	"time"

	"relay/internal/history"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/receipts"
)

// Queue is the subset of the work queue the manager uses.
type Queue interface {
	Load(ctx context.Context) ([]queue.Descriptor, error)
	Remove(ctx context.Context, d queue.Descriptor) (int, error)
}

// Runner executes one pipeline job.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) pipeline.Result
}

// HistoryRecorder persists terminal outcomes.
type HistoryRecorder interface {
	Record(ctx context.Context, o history.Outcome) (int64, error)
}

// ReceiptLedger bridges the window between delivery and dequeue.
type ReceiptLedger interface {
	Get(descriptor string) (receipts.Receipt, bool, error)
	Put(r receipts.Receipt) error
	Delete(descriptor string) error
}

// ReportKind names a report.
type ReportKind string

const (
	ReportBatchStarted    ReportKind = "batch_started"
	ReportBatchCompleted  ReportKind = "batch_completed"
	ReportBatchAborted    ReportKind = "batch_aborted"
	ReportItemDelivered   ReportKind = "item_delivered"
	ReportItemFailed      ReportKind = "item_failed"
	ReportItemReconciled  ReportKind = "item_reconciled"
	ReportCountdown       ReportKind = "countdown"
	ReportCooldownSkipped ReportKind = "cooldown_skipped"
	ReportProgress        ReportKind = "progress"
)

// Report is one human-readable event.
type Report struct {
	Kind       ReportKind        `json:"kind"`
	Time       time.Time         `json:"time"`
	Message    string            `json:"message"`
	Descriptor *queue.Descriptor `json:"descriptor,omitempty"`
	Title      string            `json:"title,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Error      string            `json:"error,omitempty"`
	ReceiptURL string            `json:"receipt_url,omitempty"`
	Remaining  time.Duration     `json:"remaining,omitempty"`
	Index      int               `json:"index,omitempty"`
	Total      int               `json:"total,omitempty"`
}

// Terminal reports whether the report closes out an item.
func (r Report) Terminal() bool {
	switch r.Kind {
	case ReportItemDelivered, ReportItemFailed, ReportItemReconciled:
		return true
	}
	return false
}

// BatchSummary counts one batch run.
type BatchSummary struct {
	Total      int           `json:"total"`
	Delivered  int           `json:"delivered"`
	Failed     int           `json:"failed"`
	Reconciled int           `json:"reconciled"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Aborted    string        `json:"aborted,omitempty"`
}
