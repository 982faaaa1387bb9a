package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"relay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Telegram is the primary sink with placeholder credentials, cooldowns and
// retry delays are zero so batch tests run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "state", "relay.sock")
	cfgVal.Queue.File = filepath.Join(base, "queue", "videos.txt")
	cfgVal.Queue.Backup = filepath.Join(base, "queue", "videos_backup.txt")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.History.ReceiptsPath = filepath.Join(base, "state", "receipts")
	cfgVal.Telegram.Token = "test-token"
	cfgVal.Telegram.ChatID = "-1001"
	cfgVal.Batch.CooldownSeconds = 0
	cfgVal.Batch.SkipAckSeconds = 0
	cfgVal.Cleanup.RetryDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSinks overrides the primary and secondary sinks.
func WithSinks(primary, secondary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Deliver.Primary = primary
		b.cfg.Deliver.Secondary = secondary
		if primary == config.SinkDirectory || secondary == config.SinkDirectory {
			b.cfg.Directory.Path = filepath.Join(b.baseDir, "archive")
		}
	}
}

// WithBrand enables the watermark overlay with the given text.
func WithBrand(text string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Brand.Enabled = true
		b.cfg.Brand.Text = text
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default relay external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
