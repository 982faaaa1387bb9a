package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"relay/internal/control"
	"relay/internal/daemon"
	"relay/internal/deps"
	"relay/internal/queue"
	"relay/internal/workflow"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "yt-dlp", Available: false, Detail: `binary "yt-dlp" not found`},
		{Name: "FFmpeg", Available: true, Command: "/usr/bin/ffmpeg"},
		{Name: "FFprobe", Available: false, Optional: true, Detail: "binary \"ffprobe\" not found"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `[ERROR] binary "yt-dlp" not found`) {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] /usr/bin/ffmpeg") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN]") || !strings.Contains(lines[2], "(optional)") {
		t.Fatalf("unexpected third line %q", lines[2])
	}
}

func TestBatchLines(t *testing.T) {
	current := queue.Descriptor{Line: "Clip https://example.com/v", Locator: "https://example.com/v", TitleOverride: "Clip"}
	tests := []struct {
		name  string
		wf    workflow.StatusSummary
		wants []string
	}{
		{
			name:  "idle",
			wf:    workflow.StatusSummary{Control: control.Snapshot{Cooldown: time.Hour}},
			wants: []string{"idle", "1h0m0s"},
		},
		{
			name: "cooling down",
			wf: workflow.StatusSummary{
				Running: true,
				Control: control.Snapshot{InCooldown: true, Remaining: 90 * time.Second, SkipPending: true},
			},
			wants: []string{"cooling down, 1m30s left", "armed", "0s (disabled)"},
		},
		{
			name: "paused mid item",
			wf: workflow.StatusSummary{
				Running: true,
				Stage:   "fetch",
				Current: &current,
				Index:   2,
				Total:   5,
				Control: control.Snapshot{Paused: true},
			},
			wants: []string{"paused", "2/5 Clip [fetch]"},
		},
		{
			name: "aborted batch",
			wf: workflow.StatusSummary{
				LastBatch: workflow.BatchSummary{Total: 3, Failed: 1, StartedAt: time.Now(), Aborted: "queue file missing"},
				LastError: "queue file missing",
			},
			wants: []string{"[ERROR] 0 delivered, 1 failed, 0 reconciled of 3 (aborted: queue file missing)", "Last error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(batchLines(tt.wf, false), "\n")
			for _, want := range tt.wants {
				if !strings.Contains(joined, want) {
					t.Fatalf("expected %q in:\n%s", want, joined)
				}
			}
		})
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestStatusWithoutDaemonFallsBackToLocal(t *testing.T) {
	cfg, configPath := newCLIConfig(t)
	writeQueueFile(t, cfg, "https://example.com/a", "https://example.com/b")

	out, _, err := runCLI(t, []string{"status"}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "2 items")
	requireContains(t, out, "yt-dlp")
}

func TestStatusOverIPCAsJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	writeQueueFile(t, env.cfg, "https://example.com/a")
	env.daemon.Pause()

	out, _, err := runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status daemon.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !status.Running || status.QueueLength != 1 || !status.Workflow.Control.Paused {
		t.Fatalf("unexpected status: %+v", status)
	}
}
