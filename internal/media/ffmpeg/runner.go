package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// maxStderr bounds the captured stderr; ffmpeg logs one line per progress
// update and long encodes would otherwise grow without limit.
const maxStderr = 64 * 1024

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Args    []string
	Stderr  string
	Err     error
	Elapsed time.Duration
}

// Run executes binary with args. Inputs are always overwritten (-y) and the
// banner is suppressed.
func Run(ctx context.Context, binary string, args ...string) ExecResult {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	full := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	cmd := commandContext(ctx, binary, full...)

	stderr := &tailBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	return ExecResult{
		Args:    full,
		Stderr:  stderr.String(),
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// Tail returns the last n non-empty stderr lines joined by "; ".
func (r ExecResult) Tail(n int) string {
	lines := strings.Split(strings.TrimSpace(r.Stderr), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "; ")
}

type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }
