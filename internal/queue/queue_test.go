package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"relay/internal/logging"
	"relay/internal/services"
)

func newQueue(t *testing.T, content string) (*WorkQueue, string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.txt")
	backup := filepath.Join(dir, "videos_backup.txt")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write queue: %v", err)
		}
	}
	return New(path, backup, path+".lock", logging.NewNop()), path, backup
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestLoadReversesAndSkipsComments(t *testing.T) {
	q, _, _ := newQueue(t, "Ep1 https://example/video?id=AAA\n# skipped\n\nEp2 https://example/video?id=BBB\n")
	items, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].TitleOverride != "Ep2" || items[1].TitleOverride != "Ep1" {
		t.Fatalf("unexpected order %+v", items)
	}
}

func TestLoadMissingFileIsQueueError(t *testing.T) {
	q, _, _ := newQueue(t, "")
	_, err := q.Load(context.Background())
	if !errors.Is(err, services.ErrQueue) {
		t.Fatalf("expected ErrQueue, got %v", err)
	}
}

func TestRemoveAfterSuccessKeepsOthersVerbatim(t *testing.T) {
	original := "Ep1 https://example/video?id=AAA\n# keep me\nEp2 https://example/video?id=BBB\n"
	q, path, backup := newQueue(t, original)
	items, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	removed, err := q.Remove(context.Background(), items[0])
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if got := readFile(t, path); got != "Ep1 https://example/video?id=AAA\n# keep me\n" {
		t.Fatalf("queue after remove = %q", got)
	}
	if got := readFile(t, backup); got != original {
		t.Fatalf("backup = %q", got)
	}
}

func TestRemoveMatchesExactLineNotLocator(t *testing.T) {
	content := "Part A https://example/v/1\nPart B https://example/v/1\n"
	q, path, _ := newQueue(t, content)
	d, _ := ParseLine("Part B https://example/v/1")

	if _, err := q.Remove(context.Background(), d); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := readFile(t, path); got != "Part A https://example/v/1\n" {
		t.Fatalf("queue after remove = %q", got)
	}
}

func TestRemoveToleratesTrailingWhitespace(t *testing.T) {
	q, path, _ := newQueue(t, "Ep1 https://example/v/1   \r\nEp2 https://example/v/2\n")
	d, _ := ParseLine("Ep1 https://example/v/1")
	removed, err := q.Remove(context.Background(), d)
	if err != nil || removed != 1 {
		t.Fatalf("Remove removed=%d err=%v", removed, err)
	}
	if got := readFile(t, path); got != "Ep2 https://example/v/2\n" {
		t.Fatalf("queue after remove = %q", got)
	}
}

func TestRemoveKeepsCRLFTerminators(t *testing.T) {
	q, path, _ := newQueue(t, "Ep1 https://example/video?id=AAA\r\nEp2 https://example/video?id=BBB\r\n")
	items, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if items[0].Line != "Ep2 https://example/video?id=BBB" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if _, err := q.Remove(context.Background(), items[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := readFile(t, path); got != "Ep1 https://example/video?id=AAA\r\n" {
		t.Fatalf("queue after remove = %q", got)
	}
}

func TestRemoveKeepsMissingFinalNewline(t *testing.T) {
	q, path, _ := newQueue(t, "Ep1 https://example/v/1\nEp2 https://example/v/2\nEp3 https://example/v/3")
	d, _ := ParseLine("Ep2 https://example/v/2")
	if _, err := q.Remove(context.Background(), d); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := readFile(t, path); got != "Ep1 https://example/v/1\nEp3 https://example/v/3" {
		t.Fatalf("queue after remove = %q", got)
	}
}

func TestAppendFollowsExistingLineEnding(t *testing.T) {
	q, path, _ := newQueue(t, "Ep1 https://example/v/1\r\nEp2 https://example/v/2")
	if _, err := q.Append(context.Background(), "Ep3 https://example/v/3"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := "Ep1 https://example/v/1\r\nEp2 https://example/v/2\r\nEp3 https://example/v/3\r\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("queue = %q, want %q", got, want)
	}
}

func TestRemoveMissingLineIsNoop(t *testing.T) {
	q, path, _ := newQueue(t, "Ep1 https://example/v/1\n")
	d, _ := ParseLine("Other https://example/v/9")
	removed, err := q.Remove(context.Background(), d)
	if err != nil || removed != 0 {
		t.Fatalf("Remove removed=%d err=%v", removed, err)
	}
	if got := readFile(t, path); got != "Ep1 https://example/v/1\n" {
		t.Fatalf("queue changed: %q", got)
	}
}

func TestRemoveMissingFile(t *testing.T) {
	q, _, _ := newQueue(t, "")
	d, _ := ParseLine("https://example/v/1")
	if _, err := q.Remove(context.Background(), d); !errors.Is(err, services.ErrQueue) {
		t.Fatalf("expected ErrQueue, got %v", err)
	}
}

func TestAppendCreatesFileAndProcessesFirst(t *testing.T) {
	q, path, _ := newQueue(t, "")
	if _, err := q.Append(context.Background(), "Old https://example/v/1"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	added, err := q.Append(context.Background(), "  New https://example/v/2  ")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(added) != 1 || added[0].Line != "New https://example/v/2" {
		t.Fatalf("unexpected added %+v", added)
	}
	if got := readFile(t, path); got != "Old https://example/v/1\nNew https://example/v/2\n" {
		t.Fatalf("queue = %q", got)
	}
	items, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if items[0].TitleOverride != "New" {
		t.Fatalf("expected newest first, got %+v", items[0])
	}
}

func TestAppendRejectsComment(t *testing.T) {
	q, _, _ := newQueue(t, "")
	if _, err := q.Append(context.Background(), "# nope"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
