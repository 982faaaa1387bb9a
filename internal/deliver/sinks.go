package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"relay/internal/config"
	"relay/internal/fileutil"
	"relay/internal/services/facebook"
	"relay/internal/services/objectstore"
	"relay/internal/services/sftpsink"
	"relay/internal/services/telegram"
)

// BuildSink constructs the named sink from cfg. An empty name returns nil.
func BuildSink(cfg *config.Config, name string, logger *slog.Logger) (Sink, error) {
	ceiling := cfg.CeilingBytes(name)
	switch name {
	case "":
		return nil, nil
	case config.SinkTelegram:
		return &telegramSink{name: name, client: telegram.New(cfg.Telegram.APIBase, cfg.Telegram.Token), chatID: cfg.Telegram.ChatID, ceiling: ceiling}, nil
	case config.SinkTelegramLog:
		return &telegramSink{name: name, client: telegram.New(cfg.Telegram.APIBase, cfg.Telegram.Token), chatID: cfg.Telegram.LogChatID, ceiling: ceiling}, nil
	case config.SinkFacebook:
		return &facebookSink{client: facebook.New(cfg.Facebook.GraphBase, cfg.Facebook.PageID, cfg.Facebook.Token), ceiling: ceiling}, nil
	case config.SinkS3:
		store, err := objectstore.NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return &s3Sink{store: store, now: time.Now}, nil
	case config.SinkGCS:
		store, err := objectstore.NewGCS(cfg.GCS)
		if err != nil {
			return nil, err
		}
		return &gcsSink{store: store, now: time.Now}, nil
	case config.SinkSFTP:
		client, err := sftpsink.New(cfg.SFTP, logger)
		if err != nil {
			return nil, err
		}
		return &sftpSink{client: client, now: time.Now}, nil
	case config.SinkDirectory:
		return &directorySink{dir: cfg.Directory.Path, now: time.Now}, nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

type telegramSink struct {
	name    string
	client  *telegram.Client
	chatID  string
	ceiling int64
}

func (s *telegramSink) Name() string   { return s.name }
func (s *telegramSink) Ceiling() int64 { return s.ceiling }

func (s *telegramSink) Send(ctx context.Context, up Upload) (Receipt, error) {
	msg, err := s.client.SendVideo(ctx, up.Timeouts.HTTPClient(), telegram.Video{
		ChatID:            s.chatID,
		Caption:           up.Caption,
		Path:              up.Path,
		DurationSeconds:   int(up.Duration.Round(time.Second) / time.Second),
		Width:             up.Width,
		Height:            up.Height,
		SupportsStreaming: true,
	})
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Sink: s.name, ID: strconv.FormatInt(msg.MessageID, 10)}
	if msg.Chat.Username != "" {
		receipt.URL = fmt.Sprintf("https://t.me/%s/%d", msg.Chat.Username, msg.MessageID)
	}
	return receipt, nil
}

type facebookSink struct {
	client  *facebook.Client
	ceiling int64
}

func (s *facebookSink) Name() string   { return config.SinkFacebook }
func (s *facebookSink) Ceiling() int64 { return s.ceiling }

func (s *facebookSink) Send(ctx context.Context, up Upload) (Receipt, error) {
	post, err := s.client.UploadVideo(ctx, up.Timeouts.HTTPClient(), facebook.Video{
		Path:        up.Path,
		Title:       up.Title,
		Description: up.Caption,
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: config.SinkFacebook, ID: post.ID, URL: post.URL()}, nil
}

type s3Sink struct {
	store *objectstore.S3Store
	now   func() time.Time
}

func (s *s3Sink) Name() string   { return config.SinkS3 }
func (s *s3Sink) Ceiling() int64 { return 0 }

func (s *s3Sink) Send(ctx context.Context, up Upload) (Receipt, error) {
	key := objectstore.Key(s.store.Prefix(), up.Title, up.JobID, filepath.Ext(up.Path), s.now())
	obj, err := s.store.Put(ctx, up.Timeouts.HTTPClient(), key, up.Path)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: config.SinkS3, ID: obj.Key, URL: obj.URL}, nil
}

type gcsSink struct {
	store *objectstore.GCSStore
	now   func() time.Time
}

func (s *gcsSink) Name() string   { return config.SinkGCS }
func (s *gcsSink) Ceiling() int64 { return 0 }

func (s *gcsSink) Send(ctx context.Context, up Upload) (Receipt, error) {
	ctx, cancel := withBudget(ctx, up.Timeouts)
	defer cancel()
	name := objectstore.Key(s.store.Prefix(), up.Title, up.JobID, filepath.Ext(up.Path), s.now())
	obj, err := s.store.Put(ctx, name, up.Path)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: config.SinkGCS, ID: obj.Key, URL: obj.URL}, nil
}

func (s *gcsSink) Close() error { return s.store.Close() }

type sftpSink struct {
	client *sftpsink.Client
	now    func() time.Time
}

func (s *sftpSink) Name() string   { return config.SinkSFTP }
func (s *sftpSink) Ceiling() int64 { return 0 }

func (s *sftpSink) Send(ctx context.Context, up Upload) (Receipt, error) {
	ctx, cancel := withBudget(ctx, up.Timeouts)
	defer cancel()
	remote := path.Join(s.client.RemoteDir(), objectstore.Key("", up.Title, up.JobID, filepath.Ext(up.Path), s.now()))
	if _, err := s.client.Put(ctx, up.Timeouts.Connect, remote, up.Path); err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: config.SinkSFTP, ID: remote, URL: "sftp://" + s.client.Addr() + "/" + strings.TrimPrefix(remote, "/")}, nil
}

type directorySink struct {
	dir string
	now func() time.Time
}

func (s *directorySink) Name() string   { return config.SinkDirectory }
func (s *directorySink) Ceiling() int64 { return 0 }

func (s *directorySink) Send(ctx context.Context, up Upload) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	rel := objectstore.Key("", up.Title, up.JobID, filepath.Ext(up.Path), s.now())
	dst := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create archive dir: %w", err)
	}
	if err := fileutil.CopyFileVerified(up.Path, dst); err != nil {
		return Receipt{}, err
	}
	return Receipt{Sink: config.SinkDirectory, ID: rel, URL: "file://" + dst}, nil
}

func withBudget(ctx context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	if total := t.Total(); total > 0 {
		return context.WithTimeout(ctx, total)
	}
	return context.WithCancel(ctx)
}
