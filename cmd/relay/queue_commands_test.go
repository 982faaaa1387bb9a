package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"relay/internal/queue"
)

func TestQueueListWithoutDaemonReadsFile(t *testing.T) {
	cfg, configPath := newCLIConfig(t)
	writeQueueFile(t, cfg,
		"# backlog",
		"First https://example.com/one",
		"https://example.com/two",
	)

	out, _, err := runCLI(t, []string{"queue", "list"}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "example.com/two")
	requireContains(t, out, "First")
	if strings.Index(out, "example.com/two") > strings.Index(out, "example.com/one") {
		t.Fatalf("expected newest line first, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"queue", "list", "--json"}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var items []queue.Descriptor
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(items) != 2 || items[0].Locator != "https://example.com/two" || items[1].TitleOverride != "First" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestQueueListTruncatesLongLocators(t *testing.T) {
	cfg, configPath := newCLIConfig(t)
	long := "https://example.com/" + strings.Repeat("a", 80)
	writeQueueFile(t, cfg, long)

	out, _, err := runCLI(t, []string{"queue", "list"}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if strings.Contains(out, long) {
		t.Fatalf("expected locator to be truncated, got:\n%s", out)
	}
	requireContains(t, out, "...")
}

func TestQueueListMissingFileFails(t *testing.T) {
	_, configPath := newCLIConfig(t)
	if _, _, err := runCLI(t, []string{"queue", "list"}, missingSocket(t), configPath); err == nil {
		t.Fatal("expected an error for a missing queue file")
	}
}

func TestQueueAddWithoutDaemonAppends(t *testing.T) {
	cfg, configPath := newCLIConfig(t)
	writeQueueFile(t, cfg, "https://example.com/one")

	out, _, err := runCLI(t, []string{"queue", "add", "Named https://example.com/two"}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued https://example.com/two")

	data, err := os.ReadFile(cfg.Queue.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(string(data)), "Named https://example.com/two") {
		t.Fatalf("expected appended line, got:\n%s", data)
	}

	if _, _, err := runCLI(t, []string{"queue", "add", "# comment"}, missingSocket(t), configPath); err == nil {
		t.Fatal("expected comment lines to be rejected")
	}
}

func TestQueueCommandsOverIPC(t *testing.T) {
	env := setupCLITestEnv(t)
	writeQueueFile(t, env.cfg, "https://example.com/one")

	if _, _, err := runCLI(t, []string{"queue", "add", "https://example.com/two"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}
	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "example.com/one")
	requireContains(t, out, "example.com/two")
}
