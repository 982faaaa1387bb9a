package deliver

import (
	"context"
	"errors"
	"time"
)

// Upload is one transfer request.
type Upload struct {
	Path     string
	Caption  string
	Title    string
	JobID    string
	Size     int64
	Duration time.Duration
	Width    int
	Height   int
	Timeouts Timeouts
}

// Receipt identifies a delivered copy.
type Receipt struct {
	Sink string `json:"sink"`
	ID   string `json:"id"`
	URL  string `json:"url,omitempty"`
}

// Sink is one delivery destination.
type Sink interface {
	Name() string
	// Ceiling is the largest accepted payload in bytes; 0 means unlimited.
	Ceiling() int64
	Send(ctx context.Context, up Upload) (Receipt, error)
}

// tooLarge is implemented by sink client errors that can tell a size
// rejection apart from other failures.
type tooLarge interface {
	TooLarge() bool
}

// IsTooLarge reports whether err is a size rejection from a sink client.
func IsTooLarge(err error) bool {
	var tl tooLarge
	return errors.As(err, &tl) && tl.TooLarge()
}
