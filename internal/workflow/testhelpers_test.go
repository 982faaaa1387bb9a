package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"relay/internal/config"
	"relay/internal/deliver"
	"relay/internal/notifications"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/services"
	"relay/internal/testsupport"
)

type stubRunner struct {
	mu    sync.Mutex
	fail  map[string]error
	seen  []string
	hook  func(d queue.Descriptor)
	jobID int
}

func (r *stubRunner) Run(_ context.Context, job pipeline.Job) pipeline.Result {
	r.mu.Lock()
	r.seen = append(r.seen, job.Descriptor.Line)
	r.jobID++
	id := r.jobID
	hook := r.hook
	err := r.fail[job.Descriptor.Locator]
	r.mu.Unlock()
	if hook != nil {
		hook(job.Descriptor)
	}
	if job.OnStage != nil {
		job.OnStage(pipeline.StageFetch)
	}
	res := pipeline.Result{
		JobID:      "job" + strings.Repeat("x", id),
		Descriptor: job.Descriptor,
		Title:      job.Descriptor.Title("Fetched title"),
		Err:        err,
	}
	if err == nil {
		res.Receipt = deliver.Receipt{Sink: config.SinkTelegram, ID: "42", URL: "https://t.me/c/42"}
		res.SizeBytes = 1024
	}
	return res
}

func (r *stubRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) count(event notifications.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == event {
			n++
		}
	}
	return n
}

func writeQueue(t *testing.T, cfg *config.Config, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cfg.Queue.File), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Queue.File, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readQueue(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	data, err := os.ReadFile(cfg.Queue.File)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func fetchErr(msg string) error {
	return services.Wrap(services.ErrFetch, "fetch", "download", msg, nil)
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}
