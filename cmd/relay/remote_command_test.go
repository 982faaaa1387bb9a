package main

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"relay/internal/remote"
)

func TestBuildRemoteCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    remote.Command
		wantErr bool
	}{
		{name: "pause", args: []string{"pause"}, want: remote.Command{Op: remote.OpPause}},
		{name: "cooldown", args: []string{"cooldown", "45"}, want: remote.Command{Op: remote.OpCooldown, Seconds: 45}},
		{name: "enqueue", args: []string{"enqueue", "Clip https://example.com/v"}, want: remote.Command{Op: remote.OpEnqueue, Line: "Clip https://example.com/v"}},
		{name: "unknown op", args: []string{"reboot"}, wantErr: true},
		{name: "cooldown without seconds", args: []string{"cooldown"}, wantErr: true},
		{name: "negative cooldown", args: []string{"cooldown", "-3"}, wantErr: true},
		{name: "enqueue without line", args: []string{"enqueue"}, wantErr: true},
		{name: "stray argument", args: []string{"skip", "now"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildRemoteCommand(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildRemoteCommand: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRemotePublishesToStream(t *testing.T) {
	_, configPath := newCLIConfig(t)
	srv := miniredis.RunT(t)

	out, _, err := runCLI(t, []string{"remote", "cooldown", "30", "--addr", srv.Addr()}, missingSocket(t), configPath)
	if err != nil {
		t.Fatalf("remote: %v", err)
	}
	requireContains(t, out, "Published cooldown")

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	entries, err := client.XRange(context.Background(), "relay:control", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	data, _ := entries[0].Values["data"].(string)
	if !strings.Contains(data, `"op":"cooldown"`) || !strings.Contains(data, `"seconds":30`) {
		t.Fatalf("unexpected entry payload %q", data)
	}
}

func TestRemoteRequiresAddr(t *testing.T) {
	_, configPath := newCLIConfig(t)
	_, _, err := runCLI(t, []string{"remote", "pause"}, missingSocket(t), configPath)
	if err == nil || !strings.Contains(err.Error(), "remote.addr") {
		t.Fatalf("expected missing addr error, got %v", err)
	}
}
