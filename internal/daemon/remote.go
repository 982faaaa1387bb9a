package daemon

import (
	"context"
	"fmt"

	"relay/internal/logging"
	"relay/internal/remote"
)

// Apply executes a command received from the redis control stream.
func (d *Daemon) Apply(ctx context.Context, c remote.Command) error {
	logging.WithContext(ctx, d.logger).Info("applying remote command",
		logging.String("op", string(c.Op)),
		logging.String(logging.FieldEventType, "remote_apply"),
	)
	switch c.Op {
	case remote.OpPause:
		d.Pause()
	case remote.OpResume:
		d.Resume()
	case remote.OpSkip:
		d.Skip()
	case remote.OpCooldown:
		return d.SetCooldown(c.Seconds)
	case remote.OpStart:
		return d.StartBatch()
	case remote.OpStop:
		d.StopBatch()
	case remote.OpEnqueue:
		_, err := d.QueueAdd(ctx, c.Line)
		return err
	default:
		return fmt.Errorf("unsupported remote op %q", c.Op)
	}
	return nil
}

var _ remote.Handler = (*Daemon)(nil)
