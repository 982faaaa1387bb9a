package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"relay/internal/config"
	"relay/internal/logging"
	"relay/internal/services"
)

// nearCeilingRatio triggers a warning for payloads this close to the limit.
const nearCeilingRatio = 0.95

// Result is the outcome of one delivery.
type Result struct {
	Primary   Receipt
	Secondary *Receipt
	Timeouts  Timeouts
	Elapsed   time.Duration
}

// Deliverer sends to a primary sink and mirrors to an optional secondary.
type Deliverer struct {
	primary   Sink
	secondary Sink
	budget    Budget
	logger    *slog.Logger
}

// New wires a Deliverer. secondary may be nil.
func New(primary, secondary Sink, budget Budget, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deliverer{
		primary:   primary,
		secondary: secondary,
		budget:    budget,
		logger:    logging.NewComponentLogger(logger, "deliver"),
	}
}

// NewFromConfig builds both sinks named in the deliver section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Deliverer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "deliver", "init", "config required", nil)
	}
	primary, err := BuildSink(cfg, cfg.Deliver.Primary, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "deliver", "init primary", cfg.Deliver.Primary, err)
	}
	if primary == nil {
		return nil, services.Wrap(services.ErrConfiguration, "deliver", "init primary", "deliver.primary must be set", nil)
	}
	secondary, err := BuildSink(cfg, cfg.Deliver.Secondary, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "deliver", "init secondary", cfg.Deliver.Secondary, err)
	}
	return New(primary, secondary, BudgetFromConfig(cfg), logger), nil
}

// PrimaryName returns the primary sink name.
func (d *Deliverer) PrimaryName() string { return d.primary.Name() }

// PrimaryCeiling returns the primary sink's size ceiling in bytes.
func (d *Deliverer) PrimaryCeiling() int64 { return d.primary.Ceiling() }

// Deliver sends up to the primary sink and, only when that succeeds, to the
// secondary sink. up.Timeouts is overwritten from the size budget.
func (d *Deliverer) Deliver(ctx context.Context, up Upload) (Result, error) {
	if up.Size <= 0 {
		info, err := os.Stat(up.Path)
		if err != nil {
			return Result{}, services.Wrap(services.ErrDelivery, "deliver", "stat artifact", up.Path, err)
		}
		up.Size = info.Size()
	}
	up.Timeouts = d.budget.For(up.Size)
	logger := logging.WithContext(ctx, d.logger)

	ceiling := d.primary.Ceiling()
	if ceiling > 0 && up.Size > ceiling {
		return Result{Timeouts: up.Timeouts}, services.Wrap(services.ErrTooLarge, "deliver", d.primary.Name(),
			fmt.Sprintf("%d bytes exceeds ceiling %d", up.Size, ceiling), nil)
	}
	if ceiling > 0 && float64(up.Size) >= nearCeilingRatio*float64(ceiling) {
		logging.WarnWithContext(logger, "payload near sink ceiling", "near_ceiling",
			logging.String("sink", d.primary.Name()),
			logging.Bytes("size", up.Size),
			logging.Bytes("ceiling", ceiling),
			logging.String(logging.FieldErrorHint, "the sink may still reject the upload; lower fetch.format_cap if this repeats"),
			logging.String(logging.FieldImpact, "a rejection triggers one fit pass"),
		)
	}

	logger.Info("delivery started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("sink", d.primary.Name()),
		logging.Bytes("size", up.Size),
		logging.Duration("connect_timeout", up.Timeouts.Connect),
		logging.Duration("read_timeout", up.Timeouts.Read),
		logging.Duration("write_timeout", up.Timeouts.Write),
	)
	started := time.Now()
	receipt, err := d.primary.Send(ctx, up)
	if err != nil {
		if IsTooLarge(err) {
			return Result{Timeouts: up.Timeouts}, services.Wrap(services.ErrTooLarge, "deliver", d.primary.Name(), "payload rejected", err)
		}
		return Result{Timeouts: up.Timeouts}, services.Wrap(services.ErrDelivery, "deliver", d.primary.Name(), "upload failed", err)
	}
	if receipt.Sink == "" {
		receipt.Sink = d.primary.Name()
	}
	result := Result{Primary: receipt, Timeouts: up.Timeouts, Elapsed: time.Since(started)}
	logger.Info("delivery complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("sink", receipt.Sink),
		logging.String("receipt_id", receipt.ID),
		logging.Duration("stage_duration", result.Elapsed),
	)

	if d.secondary != nil {
		result.Secondary = d.mirror(ctx, logger, up)
	}
	return result, nil
}

func (d *Deliverer) mirror(ctx context.Context, logger *slog.Logger, up Upload) *Receipt {
	name := d.secondary.Name()
	if ceiling := d.secondary.Ceiling(); ceiling > 0 && up.Size > ceiling {
		logging.WarnWithContext(logger, "secondary sink skipped", "secondary_skipped",
			logging.String("sink", name),
			logging.Bytes("size", up.Size),
			logging.Bytes("ceiling", ceiling),
			logging.String(logging.FieldImpact, "primary delivery unaffected"),
		)
		return nil
	}
	receipt, err := d.secondary.Send(ctx, up)
	if err != nil {
		logging.WarnWithContext(logger, "secondary delivery failed", "secondary_failed",
			logging.String("sink", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the "+name+" sink settings"),
			logging.String(logging.FieldImpact, "primary delivery unaffected"),
		)
		return nil
	}
	if receipt.Sink == "" {
		receipt.Sink = name
	}
	logger.Info("secondary delivery complete", logging.String("sink", name), logging.String("receipt_id", receipt.ID))
	return &receipt
}

// Close releases sinks holding long-lived clients.
func (d *Deliverer) Close() error {
	var errs []error
	for _, s := range []Sink{d.primary, d.secondary} {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
