package deliver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"relay/internal/config"
	"relay/internal/logging"
	"relay/internal/services"
	"relay/internal/testsupport"
)

type fakeSink struct {
	name    string
	ceiling int64
	err     error
	calls   []Upload
}

func (f *fakeSink) Name() string   { return f.name }
func (f *fakeSink) Ceiling() int64 { return f.ceiling }
func (f *fakeSink) Send(_ context.Context, up Upload) (Receipt, error) {
	f.calls = append(f.calls, up)
	if f.err != nil {
		return Receipt{}, f.err
	}
	return Receipt{ID: f.name + "-1"}, nil
}

type sizeErr struct{}

func (sizeErr) Error() string  { return "too big" }
func (sizeErr) TooLarge() bool { return true }

func artifactFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	testsupport.WriteFile(t, path, int64(size))
	return path
}

func testBudget() Budget {
	return Budget{Base: Timeouts{Connect: time.Second, Read: time.Second, Write: time.Second}, StepMB: 50, MaxMultiplier: 10}
}

func TestDeliverPrimaryThenSecondary(t *testing.T) {
	primary := &fakeSink{name: "p"}
	secondary := &fakeSink{name: "s"}
	d := New(primary, secondary, testBudget(), logging.NewNop())

	res, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 64), Caption: "cap"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if res.Primary.Sink != "p" || res.Primary.ID != "p-1" {
		t.Fatalf("unexpected primary receipt %+v", res.Primary)
	}
	if res.Secondary == nil || res.Secondary.Sink != "s" {
		t.Fatalf("expected secondary receipt, got %+v", res.Secondary)
	}
	if len(primary.calls) != 1 || primary.calls[0].Size != 64 || primary.calls[0].Timeouts.Connect != time.Second {
		t.Fatalf("unexpected primary call %+v", primary.calls)
	}
}

func TestDeliverSecondaryFailureIgnored(t *testing.T) {
	secondary := &fakeSink{name: "s", err: errors.New("boom")}
	d := New(&fakeSink{name: "p"}, secondary, testBudget(), nil)

	res, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 8)})
	if err != nil {
		t.Fatalf("secondary failure must not fail delivery: %v", err)
	}
	if res.Secondary != nil {
		t.Fatal("expected no secondary receipt")
	}
	if len(secondary.calls) != 1 {
		t.Fatal("secondary should have been attempted")
	}
}

func TestDeliverSecondaryOverCeilingSkipped(t *testing.T) {
	secondary := &fakeSink{name: "s", ceiling: 4}
	d := New(&fakeSink{name: "p"}, secondary, testBudget(), nil)
	if _, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 8)}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(secondary.calls) != 0 {
		t.Fatal("secondary over its ceiling should be skipped")
	}
}

func TestDeliverPrimaryFailureSkipsSecondary(t *testing.T) {
	secondary := &fakeSink{name: "s"}
	d := New(&fakeSink{name: "p", err: errors.New("network down")}, secondary, testBudget(), nil)

	_, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 8)})
	if !errors.Is(err, services.ErrDelivery) || errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if len(secondary.calls) != 0 {
		t.Fatal("secondary must not run after primary failure")
	}
}

func TestDeliverTooLarge(t *testing.T) {
	t.Run("sink rejection", func(t *testing.T) {
		d := New(&fakeSink{name: "p", err: sizeErr{}}, nil, testBudget(), nil)
		_, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 8)})
		if !errors.Is(err, services.ErrTooLarge) {
			t.Fatalf("expected too large, got %v", err)
		}
	})
	t.Run("over ceiling", func(t *testing.T) {
		primary := &fakeSink{name: "p", ceiling: 4}
		d := New(primary, nil, testBudget(), nil)
		_, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 8)})
		if !errors.Is(err, services.ErrTooLarge) {
			t.Fatalf("expected too large, got %v", err)
		}
		if len(primary.calls) != 0 {
			t.Fatal("oversized payload must not be sent")
		}
	})
}

func TestDeliverMissingArtifact(t *testing.T) {
	d := New(&fakeSink{name: "p"}, nil, testBudget(), nil)
	_, err := d.Deliver(context.Background(), Upload{Path: filepath.Join(t.TempDir(), "missing.mp4")})
	if !errors.Is(err, services.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestNewFromConfigTelegramToDirectory(t *testing.T) {
	var gotCaption string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
		}
		gotCaption = r.FormValue("caption")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":77,"chat":{"id":-1001,"username":"relaychan"}}}`)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSinks(config.SinkTelegram, config.SinkDirectory))
	cfg.Telegram.APIBase = server.URL
	d, err := NewFromConfig(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer d.Close()
	if d.PrimaryName() != config.SinkTelegram || d.PrimaryCeiling() != cfg.CeilingBytes(config.SinkTelegram) {
		t.Fatalf("unexpected primary %s %d", d.PrimaryName(), d.PrimaryCeiling())
	}

	res, err := d.Deliver(context.Background(), Upload{Path: artifactFile(t, 32), Caption: "Ep 1", Title: "Ep 1", JobID: "job1"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotCaption != "Ep 1" {
		t.Fatalf("caption = %q", gotCaption)
	}
	if res.Primary.ID != "77" || res.Primary.URL != "https://t.me/relaychan/77" {
		t.Fatalf("unexpected primary receipt %+v", res.Primary)
	}
	if res.Secondary == nil || !strings.HasSuffix(res.Secondary.ID, "/ep-1-job1.mp4") {
		t.Fatalf("unexpected secondary receipt %+v", res.Secondary)
	}
	archived := filepath.Join(cfg.Directory.Path, filepath.FromSlash(res.Secondary.ID))
	if info, err := os.Stat(archived); err != nil || info.Size() != 32 {
		t.Fatalf("archived copy missing: %v", err)
	}
}

func TestNewFromConfigFacebookTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"file size too large","code":6000}}`)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSinks(config.SinkFacebook, ""))
	cfg.Facebook.PageID = "42"
	cfg.Facebook.Token = "tok"
	cfg.Facebook.GraphBase = server.URL
	d, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	_, err = d.Deliver(context.Background(), Upload{Path: artifactFile(t, 16)})
	if !errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestBuildSinkUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := BuildSink(cfg, "carrier-pigeon", nil); err == nil {
		t.Fatal("expected unknown sink error")
	}
	if s, err := BuildSink(cfg, "", nil); err != nil || s != nil {
		t.Fatalf("empty name should yield nil sink, got %v %v", s, err)
	}
}
