package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"relay/internal/fileutil"
	"relay/internal/logging"
	"relay/internal/services"
	"relay/internal/textutil"
)

const lockRetryDelay = 100 * time.Millisecond

// WorkQueue is the text-file backed job list.
type WorkQueue struct {
	path   string
	backup string
	lock   *flock.Flock
	logger *slog.Logger
}

// New returns a queue over path. backup receives a full copy before every
// mutation; lockPath guards mutations between relay processes and may be
// empty to disable locking.
func New(path, backup, lockPath string, logger *slog.Logger) *WorkQueue {
	q := &WorkQueue{
		path:   path,
		backup: backup,
		logger: logging.NewComponentLogger(logger, "queue"),
	}
	if strings.TrimSpace(lockPath) != "" {
		q.lock = flock.New(lockPath)
	}
	return q
}

// Path returns the backing file path.
func (q *WorkQueue) Path() string { return q.path }

// Load reads the queue in processing order.
func (q *WorkQueue) Load(ctx context.Context) ([]Descriptor, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrQueue, "queue", "load",
				fmt.Sprintf("queue file %s not found", q.path), err)
		}
		return nil, services.Wrap(services.ErrQueue, "queue", "load", "read queue file", err)
	}
	descriptors := parse(data)
	for i, j := 0, len(descriptors)-1; i < j; i, j = i+1, j-1 {
		descriptors[i], descriptors[j] = descriptors[j], descriptors[i]
	}
	q.logger.DebugContext(ctx, "queue loaded",
		logging.Int("items", len(descriptors)),
		logging.String("path", q.path),
	)
	return descriptors, nil
}

// Remove deletes every line whose text equals d.Line. It reports how many
// lines were removed; zero is not an error. Surviving lines are written back
// byte for byte, terminators included.
func (q *WorkQueue) Remove(ctx context.Context, d Descriptor) (int, error) {
	if strings.TrimSpace(d.Line) == "" {
		return 0, services.Wrap(services.ErrValidation, "queue", "remove", "descriptor line is empty", nil)
	}
	removed := 0
	err := q.mutate(ctx, "remove", func(lines []string) []string {
		kept := lines[:0]
		for _, line := range lines {
			if strings.TrimSpace(line) == d.Line {
				removed++
				continue
			}
			kept = append(kept, line)
		}
		return kept
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		q.logger.InfoContext(ctx, "descriptor dequeued",
			logging.String("line", textutil.Truncate(d.Line, 40)),
			logging.Int("removed", removed),
			logging.String(logging.FieldEventType, "queue_remove"),
		)
	}
	return removed, nil
}

// Append adds lines to the end of the file, creating it when missing. Blank
// and comment lines are rejected.
func (q *WorkQueue) Append(ctx context.Context, lines ...string) ([]Descriptor, error) {
	var added []Descriptor
	var clean []string
	for _, raw := range lines {
		d, ok := ParseLine(raw)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "queue", "append",
				fmt.Sprintf("%q is blank or a comment", raw), nil)
		}
		added = append(added, d)
		clean = append(clean, d.Line)
	}
	if len(clean) == 0 {
		return nil, nil
	}
	err := q.mutate(ctx, "append", func(existing []string) []string {
		eol := lineEnding(existing)
		if n := len(existing); n > 0 && !strings.HasSuffix(existing[n-1], "\n") {
			existing[n-1] += eol
		}
		for _, line := range clean {
			existing = append(existing, line+eol)
		}
		return existing
	})
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "descriptors enqueued",
		logging.Int("added", len(added)),
		logging.String(logging.FieldEventType, "queue_append"),
	)
	return added, nil
}

func (q *WorkQueue) mutate(ctx context.Context, op string, edit func([]string) []string) error {
	unlock, err := q.acquire(ctx)
	if err != nil {
		return services.Wrap(services.ErrQueue, "queue", op, "acquire queue lock", err)
	}
	defer unlock()

	data, err := os.ReadFile(q.path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && op == "append":
		data = nil
	case err != nil:
		return services.Wrap(services.ErrQueue, "queue", op, "read queue file", err)
	}

	if len(data) > 0 && q.backup != "" {
		if err := fileutil.WriteFileAtomic(q.backup, data, 0o644); err != nil {
			return services.Wrap(services.ErrQueue, "queue", op, "write backup", err)
		}
	}

	lines := splitLines(data)
	lines = edit(lines)

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return services.Wrap(services.ErrQueue, "queue", op, "create queue dir", err)
	}
	if err := fileutil.WriteFileAtomic(q.path, buf.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrQueue, "queue", op, "rewrite queue file", err)
	}
	return nil
}

func (q *WorkQueue) acquire(ctx context.Context) (func(), error) {
	if q.lock == nil {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(q.lock.Path()), 0o755); err != nil {
		return nil, err
	}
	ok, err := q.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("queue lock not acquired")
	}
	return func() {
		if err := q.lock.Unlock(); err != nil {
			q.logger.Warn("queue unlock failed", logging.Error(err))
		}
	}, nil
}

func parse(data []byte) []Descriptor {
	var out []Descriptor
	for _, line := range splitLines(data) {
		if d, ok := ParseLine(line); ok {
			out = append(out, d)
		}
	}
	return out
}

// splitLines keeps every line verbatim, comments and terminators included.
// The last line has no terminator when the file does not end in one.
func splitLines(data []byte) []string {
	var lines []string
	for _, part := range bytes.SplitAfter(data, []byte("\n")) {
		if len(part) > 0 {
			lines = append(lines, string(part))
		}
	}
	return lines
}

// lineEnding returns the terminator of the first terminated line, so
// appended lines follow the file's existing convention.
func lineEnding(lines []string) string {
	for _, line := range lines {
		if strings.HasSuffix(line, "\r\n") {
			return "\r\n"
		}
		if strings.HasSuffix(line, "\n") {
			return "\n"
		}
	}
	return "\n"
}
