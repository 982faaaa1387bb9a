package daemon

import (
	"context"
	"strings"

	"relay/internal/logging"
	"relay/internal/pipeline"
	"relay/internal/queue"
	"relay/internal/services"
)

// Descriptor builds a descriptor from a locator and optional title, in the
// same shape as a queue line.
func Descriptor(locator, title string) (queue.Descriptor, error) {
	line := strings.TrimSpace(locator)
	if t := strings.TrimSpace(title); t != "" {
		line = t + " " + line
	}
	d, ok := queue.ParseLine(line)
	if !ok {
		return queue.Descriptor{}, services.Wrap(services.ErrValidation, "daemon", "send", "locator is empty", nil)
	}
	return d, nil
}

// Send delivers one video without touching the queue. It blocks until the
// pipeline finishes; cancellation of ctx aborts it.
func (d *Daemon) Send(ctx context.Context, locator, title string) (pipeline.Result, error) {
	desc, err := Descriptor(locator, title)
	if err != nil {
		return pipeline.Result{}, err
	}
	d.logger.Info("single send requested",
		logging.String("locator", desc.Locator),
		logging.String(logging.FieldEventType, "send_requested"),
	)
	return d.workflow.Send(ctx, desc), nil
}
