package history

import "time"

// Status is the terminal state recorded for an item.
type Status string

const (
	// StatusDelivered means the primary sink accepted the artifact.
	StatusDelivered Status = "delivered"
	// StatusFailed means the item terminated with an error and stays queued.
	StatusFailed Status = "failed"
	// StatusReconciled means a stored receipt proved an earlier delivery and
	// the descriptor was dequeued without sending again.
	StatusReconciled Status = "reconciled"
)

// Outcome is one history row.
type Outcome struct {
	ID            int64
	JobID         string
	Descriptor    string
	Locator       string
	Title         string
	Status        Status
	ErrorKind     string
	ErrorMessage  string
	Sink          string
	ReceiptID     string
	ReceiptURL    string
	SizeBytes     int64
	Duration      time.Duration
	Branded       bool
	BrandFallback bool
	Refetched     bool
	Fitted        bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Stats aggregates outcome counts.
type Stats struct {
	Delivered  int
	Failed     int
	Reconciled int
	Bytes      int64
}
