package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Pipeline error kinds. Every stage failure is wrapped with exactly one of
// these so the orchestrator can apply the propagation policy with errors.Is.
var (
	ErrFetch    = errors.New("fetch error")
	ErrBrand    = errors.New("brand error")
	ErrSize     = errors.New("size error")
	ErrTooLarge = errors.New("payload too large")
	ErrDelivery = errors.New("delivery error")
	ErrQueue    = errors.New("queue error")
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Kind names reported in history rows and notifications.
const (
	KindFetch    = "fetch"
	KindBrand    = "brand"
	KindSize     = "size"
	KindTooLarge = "too_large"
	KindDelivery = "delivery"
	KindQueue    = "queue"
	KindCanceled = "canceled"
	KindUnknown  = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its pipeline kind. TooLarge is checked before
// Delivery because a too-large failure may also carry the delivery marker.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQueue):
		return KindQueue
	case errors.Is(err, ErrSize):
		return KindSize
	case errors.Is(err, ErrTooLarge):
		return KindTooLarge
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	case errors.Is(err, ErrBrand):
		return KindBrand
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
