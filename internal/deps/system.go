package deps

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"relay/internal/config"
)

// MinFreeBytes is the work-dir headroom below which a batch start is flagged.
const MinFreeBytes = 2 << 30

// CheckSystemDeps evaluates the external tools for the given config. The
// daemon logs the result at startup and `relay deps` prints it.
func CheckSystemDeps(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Fetch.Binary,
			Description: "Required for fetching videos",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for branding and size fitting",
			Optional:    !cfg.Brand.Enabled,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Reads duration and dimensions for upload metadata",
			Optional:    true,
		},
	}
	return CheckBinaries(requirements)
}

// CheckDirectory verifies that path exists and is writable by this process.
func CheckDirectory(name, path string) Status {
	status := Status{Name: name, Command: path, Description: "directory access"}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			status.Detail = "does not exist"
		} else {
			status.Detail = fmt.Sprintf("stat: %v", err)
		}
		return status
	}
	if !info.IsDir() {
		status.Detail = "not a directory"
		return status
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		status.Detail = fmt.Sprintf("insufficient permissions: %v", err)
		return status
	}
	status.Available = true
	return status
}

// FreeSpace reports the bytes available to unprivileged users on the
// filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// CheckFreeSpace reports whether the filesystem holding path has at least min
// bytes free.
func CheckFreeSpace(name, path string, min uint64) Status {
	status := Status{Name: name, Command: path, Description: "free space"}
	free, err := FreeSpace(path)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Detail = humanize.IBytes(free) + " free"
	if free < min {
		status.Detail += ", below " + humanize.IBytes(min)
		return status
	}
	status.Available = true
	return status
}
