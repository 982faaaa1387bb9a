package ipc

import (
	"relay/internal/daemon"
	"relay/internal/history"
	"relay/internal/pipeline"
	"relay/internal/queue"
)

// StartRequest starts a batch.
type StartRequest struct{}

// StartResponse indicates whether the batch was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the active batch.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status with up to Reports recent reports.
type StatusRequest struct {
	Reports int `json:"reports"`
}

// StatusResponse is the daemon status.
type StatusResponse struct {
	daemon.Status
}

// PauseRequest pauses at the next stage boundary.
type PauseRequest struct{}

// PauseResponse reports whether the state changed.
type PauseResponse struct {
	Changed bool `json:"changed"`
}

// ResumeRequest releases a pause.
type ResumeRequest struct{}

// ResumeResponse reports whether the state changed.
type ResumeResponse struct {
	Changed bool `json:"changed"`
}

// SkipRequest ends the current or next cooldown.
type SkipRequest struct{}

// SkipResponse reports whether a cooldown was active when the skip landed.
type SkipResponse struct {
	InCooldown bool `json:"in_cooldown"`
}

// SetCooldownRequest changes the inter-item wait.
type SetCooldownRequest struct {
	Seconds int `json:"seconds"`
}

// SetCooldownResponse echoes the applied value.
type SetCooldownResponse struct {
	Seconds int `json:"seconds"`
}

// QueueListRequest lists the queue.
type QueueListRequest struct{}

// QueueListResponse contains queued descriptors in processing order.
type QueueListResponse struct {
	Items []queue.Descriptor `json:"items"`
}

// QueueAddRequest appends lines to the queue.
type QueueAddRequest struct {
	Lines []string `json:"lines"`
}

// QueueAddResponse contains the parsed additions.
type QueueAddResponse struct {
	Added []queue.Descriptor `json:"added"`
}

// HistoryRequest fetches recent outcomes.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains outcomes, newest first.
type HistoryResponse struct {
	Outcomes []history.Outcome `json:"outcomes"`
}

// SendRequest delivers one video outside the queue.
type SendRequest struct {
	Locator string `json:"locator"`
	Title   string `json:"title"`
}

// SendResponse reports the single-send outcome.
type SendResponse struct {
	JobID      string `json:"job_id"`
	Title      string `json:"title"`
	Delivered  bool   `json:"delivered"`
	ReceiptURL string `json:"receipt_url,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewSendResponse maps a pipeline result onto the wire shape.
func NewSendResponse(res pipeline.Result) *SendResponse {
	resp := &SendResponse{
		JobID:     res.JobID,
		Title:     res.Title,
		SizeBytes: res.SizeBytes,
	}
	if res.Succeeded() {
		resp.Delivered = true
		resp.ReceiptURL = res.Receipt.URL
		return resp
	}
	resp.ErrorKind = res.Kind()
	resp.Error = res.Err.Error()
	return resp
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
