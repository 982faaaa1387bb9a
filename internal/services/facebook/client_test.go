package facebook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/123/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("access_token") != "tok" || r.FormValue("title") != "Ep1" || r.FormValue("description") != "Ep1 #relay" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		if _, _, err := r.FormFile("source"); err != nil {
			t.Errorf("source part: %v", err)
		}
		_, _ = io.WriteString(w, `{"id":"987"}`)
	}))
	defer server.Close()

	post, err := New(server.URL, "123", "tok").UploadVideo(context.Background(), server.Client(), Video{
		Path: writeVideo(t), Title: "Ep1", Description: "Ep1 #relay",
	})
	if err != nil {
		t.Fatalf("UploadVideo: %v", err)
	}
	if post.ID != "987" || post.URL() != "https://www.facebook.com/987" {
		t.Fatalf("unexpected post %+v", post)
	}
}

func TestUploadVideoErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		tooLarge bool
	}{
		{"413", http.StatusRequestEntityTooLarge, ``, true},
		{"code 6000", http.StatusBadRequest, `{"error":{"message":"There was a problem uploading your video file","code":6000}}`, true},
		{"file size message", http.StatusBadRequest, `{"error":{"message":"The video file size exceeds the limit","code":1}}`, true},
		{"auth", http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := New(server.URL, "123", "tok").UploadVideo(context.Background(), server.Client(), Video{Path: writeVideo(t)})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.TooLarge() != tt.tooLarge {
				t.Fatalf("TooLarge = %v, want %v (%v)", apiErr.TooLarge(), tt.tooLarge, err)
			}
		})
	}
}

func TestPostURLEmpty(t *testing.T) {
	if PostURL(" ") != "" {
		t.Fatal("expected empty url")
	}
}
