// Package objectstore archives delivered videos to S3 or Google Cloud Storage.
package objectstore

import (
	"path"
	"strings"
	"time"

	"relay/internal/textutil"
)

const maxSlugLen = 80

// Object describes a stored upload.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Key builds `{prefix}/{date}/{slug}-{jobID}{ext}` using forward slashes.
func Key(prefix, title, jobID, ext string, at time.Time) string {
	name := textutil.Slug(title, maxSlugLen)
	if id := strings.TrimSpace(jobID); id != "" {
		name += "-" + id
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	return strings.TrimPrefix(path.Join(prefix, at.UTC().Format("2006-01-02"), name+ext), "/")
}
