package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"relay/internal/config"
)

func TestKey(t *testing.T) {
	at := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)
	tests := []struct {
		prefix, title, job, ext string
		want                    string
	}{
		{"archive", "Über Größe!", "ab12", ".mp4", "archive/2026-03-04/uber-gro-e-ab12.mp4"},
		{"/nested/dir/", "Clip", "x", "webm", "nested/dir/2026-03-04/clip-x.webm"},
		{"", "", "", ".mp4", "2026-03-04/untitled.mp4"},
	}
	for _, tt := range tests {
		if got := Key(tt.prefix, tt.title, tt.job, tt.ext, at); got != tt.want {
			t.Errorf("Key(%q,%q,%q,%q) = %q, want %q", tt.prefix, tt.title, tt.job, tt.ext, got, tt.want)
		}
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(config.S3{}); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestS3PutAgainstCompatibleEndpoint(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		if r.Method == http.MethodPut {
			path = r.URL.Path
			body = string(data)
		}
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3(config.S3{
		Bucket: "videos", Region: "us-east-1", Endpoint: server.URL,
		AccessKey: "AKID", SecretKey: "SECRET",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	local := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(local, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	obj, err := store.Put(context.Background(), server.Client(), "archive/clip.mp4", local)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.URL != "s3://videos/archive/clip.mp4" || obj.Size != 7 {
		t.Fatalf("unexpected object %+v", obj)
	}
	mu.Lock()
	defer mu.Unlock()
	if path != "/videos/archive/clip.mp4" {
		t.Fatalf("unexpected request path %q", path)
	}
	if !strings.Contains(body, "payload") {
		t.Fatalf("payload not uploaded: %q", body)
	}
}

func TestNewGCSValidation(t *testing.T) {
	if _, err := NewGCS(config.GCS{}); err == nil {
		t.Fatal("expected bucket error")
	}
	if _, err := NewGCS(config.GCS{Bucket: "b", CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected credentials read error")
	}
	store, err := NewGCS(config.GCS{Bucket: "b", Prefix: "p"})
	if err != nil {
		t.Fatalf("NewGCS: %v", err)
	}
	if store.Prefix() != "p" {
		t.Fatalf("unexpected prefix %q", store.Prefix())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close without client: %v", err)
	}
}

func TestContentType(t *testing.T) {
	if contentType("/a/B.MP4") != "video/mp4" || contentType("x.bin") != "application/octet-stream" {
		t.Fatal("unexpected content types")
	}
}
