package remote

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"relay/internal/config"
	"relay/internal/logging"
	"relay/internal/services"
)

const (
	fieldData     = "data"
	defaultStream = "relay:control"
	streamMaxLen  = 1000
	defaultBlock  = 5 * time.Second
)

// NewClient constructs a go-redis client from the remote config section.
func NewClient(cfg config.Remote) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func streamName(name string) string {
	if strings.TrimSpace(name) == "" {
		return defaultStream
	}
	return name
}

// Publisher appends commands to the control stream.
type Publisher struct {
	client *redis.Client
	stream string
}

// NewPublisher returns a publisher for stream (empty means the default).
func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: streamName(stream)}
}

// Publish validates and appends c, returning the entry ID.
func (p *Publisher) Publish(ctx context.Context, c Command) (string, error) {
	if c.IssuedAt.IsZero() {
		c.IssuedAt = time.Now().UTC()
	}
	if c.Origin == "" {
		c.Origin, _ = os.Hostname()
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	data, err := encode(c)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "remote", "publish", "encode command", err)
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{fieldData: data},
	}).Result()
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "remote", "publish", "xadd "+p.stream, err)
	}
	return id, nil
}

// Handler applies a decoded command.
type Handler interface {
	Apply(ctx context.Context, c Command) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, c Command) error

// Apply calls f.
func (f HandlerFunc) Apply(ctx context.Context, c Command) error { return f(ctx, c) }

// Listener consumes the control stream.
type Listener struct {
	client  *redis.Client
	stream  string
	handler Handler
	logger  *slog.Logger
	block   time.Duration
	retry   time.Duration
}

// NewListener returns a listener that starts from entries added after Run.
func NewListener(client *redis.Client, stream string, handler Handler, logger *slog.Logger) *Listener {
	return &Listener{
		client:  client,
		stream:  streamName(stream),
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "remote"),
		block:   defaultBlock,
		retry:   2 * time.Second,
	}
}

// Run reads until ctx is cancelled. Read errors are logged and retried;
// malformed entries are skipped.
func (l *Listener) Run(ctx context.Context) error {
	lastID, err := l.tailID(ctx)
	if err != nil {
		return err
	}
	l.logger.Info("remote control listening",
		logging.String("stream", l.stream),
		logging.String(logging.FieldEventType, "remote_listen"),
	)
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := l.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{l.stream, lastID},
			Block:   l.block,
			Count:   10,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			failures = 0
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if failures == 1 {
				logging.WarnWithContext(l.logger, "remote stream read failed", "remote_read_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check remote.addr and redis availability"),
					logging.String(logging.FieldImpact, "remote commands are delayed until redis is reachable"),
				)
			}
			if !sleep(ctx, l.retry) {
				return nil
			}
			continue
		}
		if failures > 0 {
			l.logger.Info("remote stream reconnected", logging.Int("failed_reads", failures))
			failures = 0
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				l.dispatch(ctx, msg)
			}
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, msg redis.XMessage) {
	cmd, err := decode(msg.Values)
	if err != nil {
		logging.WarnWithContext(l.logger, "remote command rejected", "remote_command_rejected",
			logging.String("entry_id", msg.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "command ignored"),
		)
		return
	}
	ctx = services.WithRequestID(ctx, msg.ID)
	l.logger.Info("remote command received",
		logging.String("entry_id", msg.ID),
		logging.String("op", string(cmd.Op)),
		logging.String("origin", cmd.Origin),
		logging.String(logging.FieldEventType, "remote_command"),
	)
	if err := l.handler.Apply(ctx, cmd); err != nil {
		logging.WarnWithContext(l.logger, "remote command failed", "remote_command_failed",
			logging.String("op", string(cmd.Op)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "command had no effect"),
		)
	}
}

// tailID returns the ID of the newest entry so Run ignores history. "$"
// cannot be reused across XREAD calls without losing entries added between
// them.
func (l *Listener) tailID(ctx context.Context) (string, error) {
	entries, err := l.client.XRevRangeN(ctx, l.stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", services.Wrap(services.ErrTransient, "remote", "listen", "read stream tail", err)
	}
	if len(entries) == 0 {
		return "0-0", nil
	}
	return entries[0].ID, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
