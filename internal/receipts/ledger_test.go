package receipts

import (
	"path/filepath"
	"testing"
	"time"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "receipts"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestPutGetDelete(t *testing.T) {
	l := openLedger(t)
	line := "Ep1 https://example/video?id=AAA"

	if _, ok, err := l.Get(line); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := l.Put(Receipt{Descriptor: line, Sink: "telegram", ID: "77", JobID: "j1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r, ok, err := l.Get(line)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if r.ID != "77" || r.Sink != "telegram" || r.DeliveredAt.IsZero() {
		t.Fatalf("unexpected receipt %+v", r)
	}

	// A different line for the same locator is a different key.
	if _, ok, _ := l.Get("Ep1 again https://example/video?id=AAA"); ok {
		t.Fatal("receipt leaked across descriptor lines")
	}

	if err := l.Delete(line); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := l.Get(line); ok {
		t.Fatal("receipt still present after delete")
	}
}

func TestPutRequiresDescriptor(t *testing.T) {
	l := openLedger(t)
	if err := l.Put(Receipt{ID: "1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestListAndPrune(t *testing.T) {
	l := openLedger(t)
	now := time.Now().UTC()
	for _, r := range []Receipt{
		{Descriptor: "a https://x/1", ID: "1", DeliveredAt: now.Add(-72 * time.Hour)},
		{Descriptor: "b https://x/2", ID: "2", DeliveredAt: now},
	} {
		if err := l.Put(r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	all, err := l.List()
	if err != nil || len(all) != 2 {
		t.Fatalf("List = %d err=%v", len(all), err)
	}
	removed, err := l.Prune(now.Add(-24 * time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("Prune removed=%d err=%v", removed, err)
	}
	all, _ = l.List()
	if len(all) != 1 || all[0].ID != "2" {
		t.Fatalf("unexpected remaining %+v", all)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Put(Receipt{Descriptor: "x https://x/1", ID: "9"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	if _, ok, err := l.Get("x https://x/1"); err != nil || !ok {
		t.Fatalf("expected persisted receipt ok=%v err=%v", ok, err)
	}
}
