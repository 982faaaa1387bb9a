package main

import (
	"errors"
	"testing"
	"time"
)

func TestParseCooldownArg(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "0", want: 0},
		{raw: "90", want: 90},
		{raw: "-5", wantErr: true},
		{raw: "soon", wantErr: true},
		{raw: "1.5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCooldownArg(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseCooldownArg(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseCooldownArg(%q) = %d, %v; want %d", tt.raw, got, err, tt.want)
		}
	}
}

func TestControlCommandsOverIPC(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"pause"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	requireContains(t, out, "Paused")

	out, _, err = runCLI(t, []string{"pause"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("pause again: %v", err)
	}
	requireContains(t, out, "Already paused")

	out, _, err = runCLI(t, []string{"resume"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	requireContains(t, out, "Resumed")

	out, _, err = runCLI(t, []string{"skip"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	requireContains(t, out, "Skip armed")

	out, _, err = runCLI(t, []string{"cooldown", "120"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("cooldown: %v", err)
	}
	requireContains(t, out, "Cooldown set to 2m0s")
	if got := env.daemon.Status(t.Context(), 0).Workflow.Control.Cooldown; got != 2*time.Minute {
		t.Fatalf("expected daemon cooldown 2m, got %s", got)
	}

	if _, _, err := runCLI(t, []string{"cooldown", "-1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected negative cooldown to be rejected")
	}
}

func TestStartDrainsQueueOverIPC(t *testing.T) {
	env := setupCLITestEnv(t)
	writeQueueFile(t, env.cfg, "https://example.com/one", "https://example.com/two")

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "batch started")

	deadline := time.Now().Add(5 * time.Second)
	for {
		status := env.daemon.Status(t.Context(), 0)
		if !status.Workflow.Running && status.QueueLength == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue not drained: %+v", status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Batch stopped")
}

func TestControlWithoutDaemon(t *testing.T) {
	_, configPath := newCLIConfig(t)
	socket := missingSocket(t)

	_, _, err := runCLI(t, []string{"pause"}, socket, configPath)
	if !errors.Is(err, errDaemonNotRunning) {
		t.Fatalf("expected errDaemonNotRunning, got %v", err)
	}

	out, _, err := runCLI(t, []string{"stop"}, socket, configPath)
	if err != nil {
		t.Fatalf("stop without daemon: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
