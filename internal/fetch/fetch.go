package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"relay/internal/artifact"
	"relay/internal/fileutil"
	"relay/internal/logging"
	"relay/internal/services"
)

// Result is a completed download.
type Result struct {
	Artifact  artifact.Artifact
	Meta      Metadata
	Refetched bool
}

// Fetcher downloads one locator per call.
type Fetcher struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Fetcher.
func New(opts Options, logger *slog.Logger) *Fetcher {
	return &Fetcher{opts: opts, logger: logging.NewComponentLogger(logger, "fetch")}
}

// Fetch downloads locator into the janitor's job directory. ceiling is the
// primary sink's size limit in bytes; zero disables the quality downgrade.
// onProgress, when set, receives throttled progress updates.
func (f *Fetcher) Fetch(ctx context.Context, janitor *artifact.Janitor, locator string, ceiling int64, onProgress func(Progress)) (Result, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Result{}, services.Wrap(services.ErrFetch, "fetch", "validate", "empty source locator", nil)
	}
	if janitor == nil {
		return Result{}, errors.New("fetch: janitor required")
	}
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	result, err := f.pass(ctx, janitor, locator, 1, false, onProgress)
	if err != nil {
		return Result{}, err
	}

	limit := int64(float64(ceiling) * f.opts.margin())
	if ceiling <= 0 || result.Artifact.Size <= limit {
		return result, nil
	}

	f.logger.InfoContext(ctx, "download far above ceiling; refetching at lowest quality",
		logging.Bytes("size", result.Artifact.Size),
		logging.Bytes("ceiling", ceiling),
		logging.Float64("margin", f.opts.margin()),
		logging.String(logging.FieldEventType, "fetch_refetch"),
	)
	meta := result.Meta
	_ = janitor.Discard(result.Artifact)

	retry, err := f.pass(ctx, janitor, locator, 2, true, onProgress)
	if err != nil {
		return Result{}, err
	}
	if retry.Meta.Title == "" {
		retry.Meta.Title = meta.Title
	}
	retry.Refetched = true
	return retry, nil
}

func (f *Fetcher) pass(ctx context.Context, janitor *artifact.Janitor, locator string, pass int, worst bool, onProgress func(Progress)) (Result, error) {
	base := janitor.Allocate(artifact.RoleRawDownload, "")
	template := base.Path + ".%(ext)s"

	args, err := buildArgs(f.opts, locator, template, worst)
	if err != nil {
		return Result{}, services.Wrap(services.ErrFetch, "fetch", "prepare", "invalid fetch options", err)
	}

	throttle := logging.NewThrottle(f.progressInterval(), 0)
	sampler := logging.NewProgressSampler(25)
	start := time.Now()
	throttle.Reset(start)
	var mu sync.Mutex
	report := func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		p.Elapsed = now.Sub(start)
		p.Pass = pass
		if sampler.ShouldLog(p.Percent, "download") {
			f.logger.DebugContext(ctx, "download progress",
				logging.Float64("percent", p.Percent),
				logging.String("speed", p.Speed),
				logging.String("eta", p.ETA),
				logging.Int("pass", pass),
			)
		}
		if onProgress != nil && (throttle.Allow(now) || p.Percent >= 100) {
			onProgress(p)
		}
	}

	f.logger.InfoContext(ctx, "download starting",
		logging.String("locator", locator),
		logging.String("format", formatSelector(f.opts.FormatCap, worst)),
		logging.Int("pass", pass),
	)
	out, runErr := run(ctx, f.opts.binary(), args, report)
	if runErr != nil {
		msg := lastErrorLine(out.stderr)
		if msg == "" {
			msg = "download failed"
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("download timed out after %s", f.opts.Timeout)
		}
		return Result{}, services.Wrap(services.ErrFetch, "fetch", "download", msg, runErr)
	}

	path := out.meta.Filepath
	if path == "" || !fileutil.NonEmpty(path) {
		path = findDownloaded(base.Path)
	}
	if path == "" {
		return Result{}, services.Wrap(services.ErrFetch, "fetch", "locate", "download produced no file", nil)
	}
	size, err := fileutil.Size(path)
	if err != nil || size == 0 {
		return Result{}, services.Wrap(services.ErrFetch, "fetch", "locate", "downloaded file is empty", err)
	}

	a := janitor.Track(artifact.Artifact{Path: path, Role: artifact.RoleRawDownload, Size: size})
	meta := out.meta
	meta.Filepath = path
	if meta.Ext == "" {
		meta.Ext = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	f.logger.InfoContext(ctx, "download complete",
		logging.String("title", meta.Title),
		logging.Bytes("size", size),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("pass", pass),
	)
	return Result{Artifact: a, Meta: meta}, nil
}

func (f *Fetcher) progressInterval() time.Duration {
	if f.opts.ProgressInterval > 0 {
		return f.opts.ProgressInterval
	}
	return 10 * time.Second
}

// findDownloaded returns the first finished file for an output base path,
// ignoring yt-dlp scratch files.
func findDownloaded(base string) string {
	matches, _ := filepath.Glob(base + ".*")
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".part", ".ytdl", ".temp", ".json":
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return m
		}
	}
	return ""
}
