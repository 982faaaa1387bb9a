package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// HTTPDoer describes the HTTP client used by the sink clients.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FormField is one plain multipart field. Order is preserved.
type FormField struct {
	Name  string
	Value string
}

// MultipartFile streams fields followed by the file at path under fileField.
// The body is produced by a goroutine writing into a pipe, so large videos
// are never buffered in memory. The returned content type carries the
// boundary.
func MultipartFile(fields []FormField, fileField, path string) (io.ReadCloser, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		for _, f := range fields {
			if err := mw.WriteField(f.Name, f.Value); err != nil {
				_ = pw.CloseWithError(err)
				return
			}
		}
		part, err := mw.CreateFormFile(fileField, filepath.Base(path))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()
	return pr, mw.FormDataContentType(), nil
}
