// Package artifact tracks the transient files a single pipeline job creates
// and guarantees their removal.
//
// Every job gets its own directory under the work dir named after the job ID,
// so artifact paths are never reused across jobs. The Janitor is the only
// component that deletes artifacts: stages that need to drop an intermediate
// early call Discard instead of os.Remove.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Role describes what a stage produced.
type Role string

const (
	RoleRawDownload      Role = "raw_download"
	RoleBrandedOutput    Role = "branded_output"
	RoleWatermarkOverlay Role = "watermark_overlay"
	RoleFitOutput        Role = "fit_output"
)

// Artifact is a local file plus its declared role.
type Artifact struct {
	Path string
	Role Role
	Size int64
}

// Ext returns the file extension including the dot.
func (a Artifact) Ext() string {
	return filepath.Ext(a.Path)
}

func (a Artifact) String() string {
	return fmt.Sprintf("%s(%s)", a.Role, filepath.Base(a.Path))
}

func rolePrefix(role Role) string {
	switch role {
	case RoleRawDownload:
		return "raw"
	case RoleBrandedOutput:
		return "branded"
	case RoleWatermarkOverlay:
		return "watermark"
	case RoleFitOutput:
		return "fit"
	default:
		return strings.ReplaceAll(string(role), "_", "-")
	}
}
