package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"relay/internal/config"
	"relay/internal/logging"
	"relay/internal/services"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := NewClient(config.Remote{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishValidates(t *testing.T) {
	client := newRedis(t)
	pub := NewPublisher(client, "")

	tests := []struct {
		name string
		cmd  Command
	}{
		{"unknown op", Command{Op: "reboot"}},
		{"negative cooldown", Command{Op: OpCooldown, Seconds: -1}},
		{"empty enqueue", Command{Op: OpEnqueue, Line: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pub.Publish(context.Background(), tt.cmd); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	id, err := pub.Publish(context.Background(), Command{Op: OpCooldown, Seconds: 90})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	entries, err := client.XRange(context.Background(), defaultStream, "-", "+").Result()
	if err != nil || len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("unexpected stream contents %v err %v", entries, err)
	}
	cmd, err := decode(entries[0].Values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.Op != OpCooldown || cmd.Seconds != 90 || cmd.IssuedAt.IsZero() {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestListenerAppliesOnlyNewCommands(t *testing.T) {
	client := newRedis(t)
	pub := NewPublisher(client, "ops")
	ctx := context.Background()

	if _, err := pub.Publish(ctx, Command{Op: OpStop}); err != nil {
		t.Fatalf("Publish old: %v", err)
	}

	var mu sync.Mutex
	var got []Command
	applied := make(chan struct{}, 4)
	l := NewListener(client, "ops", HandlerFunc(func(_ context.Context, c Command) error {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
		applied <- struct{}{}
		return nil
	}), logging.NewNop())
	l.block = 50 * time.Millisecond

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Run(runCtx) }()

	// Let Run capture the tail before publishing.
	time.Sleep(100 * time.Millisecond)
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "ops", Values: map[string]any{fieldData: "not json"}}).Err(); err != nil {
		t.Fatalf("xadd garbage: %v", err)
	}
	if _, err := pub.Publish(ctx, Command{Op: OpPause}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := pub.Publish(ctx, Command{Op: OpEnqueue, Line: "Clip https://example.com/v"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-applied:
		case <-time.After(5 * time.Second):
			t.Fatal("listener did not apply commands")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0].Op != OpPause || got[1].Op != OpEnqueue || got[1].Line != "Clip https://example.com/v" {
		t.Fatalf("unexpected applied commands %+v", got)
	}
}

func TestParseOp(t *testing.T) {
	if op, err := ParseOp(" Skip "); err != nil || op != OpSkip {
		t.Fatalf("ParseOp = %q, %v", op, err)
	}
	if _, err := ParseOp("nope"); err == nil {
		t.Fatal("expected error")
	}
}
