package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"relay/internal/logging"
)

// removeFile is swapped in tests to simulate stubborn files.
var removeFile = os.Remove

// Janitor owns the artifact list for one job.
type Janitor struct {
	mu         sync.Mutex
	jobID      string
	dir        string
	tracked    []Artifact
	seq        map[Role]int
	retryDelay time.Duration
	logger     *slog.Logger
	closed     bool
}

// CleanupResult summarizes one Cleanup call.
type CleanupResult struct {
	Removed int
	Failed  []string
}

// NewJanitor creates the job directory <workDir>/job-<jobID>.
func NewJanitor(workDir, jobID string, retryDelay time.Duration, logger *slog.Logger) (*Janitor, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("artifact: job id required")
	}
	dir := filepath.Join(workDir, "job-"+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create job dir: %w", err)
	}
	if retryDelay < 0 {
		retryDelay = 0
	}
	return &Janitor{
		jobID:      jobID,
		dir:        dir,
		seq:        make(map[Role]int),
		retryDelay: retryDelay,
		logger:     logging.NewComponentLogger(logger, "janitor").With(logging.String(logging.FieldJobID, jobID)),
	}, nil
}

// Dir returns the job-scoped directory.
func (j *Janitor) Dir() string { return j.dir }

// JobID returns the owning job identifier.
func (j *Janitor) JobID() string { return j.jobID }

// Allocate reserves a fresh path for role inside the job directory and
// tracks it. ext may be given with or without the leading dot; an empty ext
// yields a bare name, useful for output templates.
func (j *Janitor) Allocate(role Role, ext string) Artifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq[role]++
	name := rolePrefix(role)
	if n := j.seq[role]; n > 1 {
		name += "-" + strconv.Itoa(n)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	a := Artifact{Path: filepath.Join(j.dir, name+ext), Role: role}
	j.tracked = append(j.tracked, a)
	return a
}

// Track registers a file created outside Allocate. Tracking the same path
// twice replaces the earlier entry.
func (j *Janitor) Track(a Artifact) Artifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.tracked {
		if j.tracked[i].Path == a.Path {
			j.tracked[i] = a
			return a
		}
	}
	j.tracked = append(j.tracked, a)
	return a
}

// Tracked returns a snapshot of the tracked artifacts.
func (j *Janitor) Tracked() []Artifact {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Artifact(nil), j.tracked...)
}

// Discard removes one artifact immediately and stops tracking it. A failed
// removal keeps it tracked so Cleanup retries later.
func (j *Janitor) Discard(a Artifact) error {
	if err := removeFile(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(j.logger, "artifact discard failed; will retry at cleanup", "artifact_discard_failed",
			logging.String("path", a.Path),
			logging.String("role", string(a.Role)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "intermediate stays on disk until job cleanup"),
		)
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	kept := j.tracked[:0]
	for _, t := range j.tracked {
		if t.Path != a.Path {
			kept = append(kept, t)
		}
	}
	j.tracked = kept
	return nil
}

// Cleanup removes every tracked artifact and the job directory. Each failed
// removal is retried once after the retry delay; files that still resist are
// logged as warnings and reported in the result, never returned as an error.
// Cleanup is idempotent.
func (j *Janitor) Cleanup(ctx context.Context) CleanupResult {
	j.mu.Lock()
	tracked := append([]Artifact(nil), j.tracked...)
	j.tracked = nil
	j.closed = true
	j.mu.Unlock()

	var result CleanupResult
	var pending []Artifact
	for _, a := range tracked {
		if err := removeFile(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			pending = append(pending, a)
			continue
		}
		result.Removed++
	}

	if len(pending) > 0 {
		if !sleepCtx(ctx, j.retryDelay) {
			j.logger.Debug("cleanup retry delay cut short", logging.Int("pending", len(pending)))
		}
		for _, a := range pending {
			err := removeFile(a.Path)
			if err == nil || errors.Is(err, fs.ErrNotExist) {
				result.Removed++
				continue
			}
			result.Failed = append(result.Failed, a.Path)
			logging.WarnWithContext(j.logger, "artifact cleanup failed after retry", "artifact_cleanup_failed",
				logging.String("path", a.Path),
				logging.String("role", string(a.Role)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir; stale sweep removes it later"),
				logging.String(logging.FieldImpact, "transient file left on disk"),
			)
		}
	}

	// Partial downloads and tool scratch files live in the job dir too.
	if err := os.RemoveAll(j.dir); err != nil {
		if len(result.Failed) == 0 {
			logging.WarnWithContext(j.logger, "job directory cleanup failed", "artifact_cleanup_failed",
				logging.String("path", j.dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "job directory left on disk"),
			)
		}
		result.Failed = append(result.Failed, j.dir)
	}

	j.logger.Debug("artifacts cleaned",
		logging.Int("removed", result.Removed),
		logging.Int("failed", len(result.Failed)),
		logging.String(logging.FieldEventType, "artifact_cleanup"),
	)
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
