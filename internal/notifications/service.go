package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"relay/internal/config"
)

const userAgent = "relay/0.1"

// Event enumerates notification types.
type Event string

const (
	EventItemDelivered   Event = "item_delivered"
	EventItemFailed      Event = "item_failed"
	EventBatchStarted    Event = "batch_started"
	EventBatchCompleted  Event = "batch_completed"
	EventBatchAborted    Event = "batch_aborted"
	EventCooldownSkipped Event = "cooldown_skipped"
	EventTest            Event = "test"
)

// Payload carries event fields.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one without a topic.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventItemDelivered:
		return n.cfg.ItemSuccess
	case EventItemFailed:
		return n.cfg.ItemFailure
	case EventBatchStarted, EventBatchCompleted, EventBatchAborted:
		return n.cfg.Batch
	case EventCooldownSkipped:
		return n.cfg.Cooldown
	}
	return true
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventItemDelivered:
		body := fmt.Sprintf("✅ Delivered: %s", payload.str("title"))
		if url := payload.str("url"); url != "" {
			body += "\n" + url
		}
		if size := payload.int64("sizeBytes"); size > 0 {
			body += fmt.Sprintf("\nSize: %s", humanize.IBytes(uint64(size)))
		}
		if note := payload.str("note"); note != "" {
			body += "\nNote: " + note
		}
		return message{title: "Relay - Delivered", body: body, tags: []string{"relay", "delivered"}}, true
	case EventItemFailed:
		body := fmt.Sprintf("❌ %s failed (%s): %s", payload.str("title"), orDefault(payload.str("kind"), "error"), payload.str("error"))
		return message{title: "Relay - Item Failed", body: body, tags: []string{"relay", "error", "alert"}, priority: "high"}, true
	case EventBatchStarted:
		return message{
			title: "Relay - Batch Started",
			body:  fmt.Sprintf("Started batch with %d items", payload.int64("count")),
			tags:  []string{"relay", "batch", "started"},
		}, true
	case EventBatchCompleted:
		delivered, failed := payload.int64("delivered"), payload.int64("failed")
		duration := payload.duration("duration").Round(time.Second)
		if failed == 0 {
			return message{
				title: "Relay - Batch Complete",
				body:  fmt.Sprintf("Batch complete: %d delivered in %s", delivered, duration),
				tags:  []string{"relay", "batch", "completed"},
			}, true
		}
		return message{
			title: "Relay - Batch Complete (with errors)",
			body:  fmt.Sprintf("Batch complete: %d delivered, %d failed in %s", delivered, failed, duration),
			tags:  []string{"relay", "batch", "completed"},
		}, true
	case EventBatchAborted:
		return message{
			title:    "Relay - Batch Aborted",
			body:     fmt.Sprintf("⛔ Batch aborted: %s", payload.str("error")),
			tags:     []string{"relay", "batch", "alert"},
			priority: "high",
		}, true
	case EventCooldownSkipped:
		return message{
			title: "Relay - Cooldown Skipped",
			body:  fmt.Sprintf("⏭️ Skipping cooldown with %s remaining", payload.duration("remaining").Round(time.Second)),
			tags:  []string{"relay", "cooldown"},
		}, true
	case EventTest:
		return message{title: "Relay - Test", body: "🧪 Notification system test", tags: []string{"relay", "test"}, priority: "low"}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) int64(key string) int64 {
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func (p Payload) duration(key string) time.Duration {
	if d, ok := p[key].(time.Duration); ok && d > 0 {
		return d
	}
	return 0
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
