package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"relay/internal/logging"
)

func TestCleanStaleInvalidInputs(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
	dir := t.TempDir()
	makeDir(t, dir, "job-old", 48*time.Hour)
	if result := CleanStale(context.Background(), dir, 0, nil); len(result.Removed) != 0 {
		t.Fatal("zero max age must disable the sweep")
	}
}

func TestCleanStaleRemovesOnlyOldJobDirectories(t *testing.T) {
	dir := t.TempDir()
	old := makeDir(t, dir, "job-aaaa", 2*time.Hour)
	recent := makeDir(t, dir, "job-bbbb", 0)
	foreign := makeDir(t, dir, "keep-me", 2*time.Hour)

	result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("removed = %v, want [%s]", result.Removed, old)
	}
	for _, path := range []string{recent, foreign} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s should survive: %v", path, err)
		}
	}
}

func TestListDirectoriesSortsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	newer := makeDir(t, dir, "job-new", time.Minute)
	older := makeDir(t, dir, "job-old", time.Hour)
	if err := os.WriteFile(filepath.Join(newer, "raw.mp4"), make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}
	// Writing the file bumps the directory mtime; restore it.
	stamp := time.Now().Add(-time.Minute)
	if err := os.Chtimes(newer, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(dir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 2 || dirs[0].Path != older || dirs[1].Path != newer {
		t.Fatalf("unexpected listing %+v", dirs)
	}
	if dirs[1].Size != 128 {
		t.Fatalf("size = %d, want 128", dirs[1].Size)
	}

	if dirs, err := ListDirectories(filepath.Join(dir, "missing")); err != nil || dirs != nil {
		t.Fatalf("missing dir should list nothing, got %v %v", dirs, err)
	}
}

func makeDir(t *testing.T, parent, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(parent, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return path
}
