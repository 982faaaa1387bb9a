package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"relay/internal/artifact"
	"relay/internal/brand"
	"relay/internal/config"
	"relay/internal/deliver"
	"relay/internal/fetch"
	"relay/internal/fit"
	"relay/internal/logging"
	"relay/internal/media/ffprobe"
	"relay/internal/queue"
	"relay/internal/services"
)

// Stage names reported through Job.OnStage.
const (
	StageFetch   = "fetch"
	StageBrand   = "brand"
	StageFit     = "fit"
	StageDeliver = "deliver"
)

// Fetcher downloads a locator.
type Fetcher interface {
	Fetch(ctx context.Context, janitor *artifact.Janitor, locator string, ceiling int64, onProgress func(fetch.Progress)) (fetch.Result, error)
}

// Brander composites the watermark.
type Brander interface {
	Brand(ctx context.Context, janitor *artifact.Janitor, raw artifact.Artifact) (artifact.Artifact, error)
}

// Fitter re-encodes under a ceiling.
type Fitter interface {
	Fit(ctx context.Context, janitor *artifact.Janitor, in artifact.Artifact, ceiling int64) (artifact.Artifact, error)
}

// Deliverer sends the final artifact.
type Deliverer interface {
	Deliver(ctx context.Context, up deliver.Upload) (deliver.Result, error)
	PrimaryCeiling() int64
}

// PauseGate blocks while the batch is paused.
type PauseGate interface {
	WaitIfPaused(ctx context.Context) error
}

// ProbeFunc reads media properties for captions and upload hints.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Info, error)

// Job is one pipeline invocation.
type Job struct {
	Descriptor queue.Descriptor
	OnProgress func(fetch.Progress)
	OnStage    func(stage string)
}

// Result is the terminal outcome of one job.
type Result struct {
	JobID         string
	Descriptor    queue.Descriptor
	Title         string
	Caption       string
	Receipt       deliver.Receipt
	Secondary     *deliver.Receipt
	SizeBytes     int64
	Duration      time.Duration
	Branded       bool
	BrandFallback bool
	Refetched     bool
	Fitted        bool
	StartedAt     time.Time
	FinishedAt    time.Time
	Cleanup       artifact.CleanupResult
	Err           error
}

// Succeeded reports whether the primary sink accepted the item.
func (r Result) Succeeded() bool { return r.Err == nil }

// Kind classifies the failure, or returns "" on success.
func (r Result) Kind() string {
	if r.Err == nil {
		return ""
	}
	return services.Classify(r.Err)
}

// Pipeline holds the stage implementations shared by every job.
type Pipeline struct {
	Fetcher       Fetcher
	Brander       Brander
	Fitter        Fitter
	Deliverer     Deliverer
	Probe         ProbeFunc
	Gate          PauseGate
	WorkDir       string
	RetryDelay    time.Duration
	CaptionSuffix string
	Logger        *slog.Logger

	newJobID func() string
}

// NewFromConfig wires the production stages. gate may be nil for one-off
// sends outside a batch.
func NewFromConfig(cfg *config.Config, deliverer Deliverer, gate PauseGate, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		Fetcher:       fetch.New(fetch.OptionsFromConfig(cfg), logger),
		Fitter:        fit.New(fit.ProfileFromConfig(cfg), logger),
		Deliverer:     deliverer,
		Gate:          gate,
		WorkDir:       cfg.Paths.WorkDir,
		RetryDelay:    cfg.CleanupRetryDelay(),
		CaptionSuffix: cfg.Deliver.CaptionSuffix,
		Logger:        logger,
	}
	if cfg.Brand.Enabled {
		p.Brander = brand.New(brand.OptionsFromConfig(cfg), logger)
	}
	probeBinary := cfg.FFprobeBinary()
	p.Probe = func(ctx context.Context, path string) (ffprobe.Info, error) {
		return ffprobe.Probe(ctx, probeBinary, path)
	}
	return p
}

func (p *Pipeline) logger() *slog.Logger {
	return logging.NewComponentLogger(p.Logger, "pipeline")
}

func (p *Pipeline) jobID() string {
	if p.newJobID != nil {
		return p.newJobID()
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Run executes job. It never panics on stage failure; the error is carried
// in Result.Err and the janitor has already cleaned up when Run returns.
func (p *Pipeline) Run(ctx context.Context, job Job) (res Result) {
	res = Result{
		JobID:      p.jobID(),
		Descriptor: job.Descriptor,
		StartedAt:  time.Now().UTC(),
	}
	ctx = services.WithJobID(ctx, res.JobID)
	logger := logging.WithContext(ctx, p.logger())
	defer func() { res.FinishedAt = time.Now().UTC() }()

	janitor, err := artifact.NewJanitor(p.WorkDir, res.JobID, p.RetryDelay, p.Logger)
	if err != nil {
		res.Err = services.Wrap(services.ErrFetch, "pipeline", "workspace", "create job directory", err)
		return res
	}
	defer func() {
		// Cleanup must run even when the batch is being cancelled.
		res.Cleanup = janitor.Cleanup(context.WithoutCancel(ctx))
	}()

	stage := func(name string) context.Context {
		if job.OnStage != nil {
			job.OnStage(name)
		}
		return services.WithStage(ctx, name)
	}

	ceiling := p.Deliverer.PrimaryCeiling()

	fetched, err := p.Fetcher.Fetch(stage(StageFetch), janitor, job.Descriptor.Locator, ceiling, job.OnProgress)
	if err != nil {
		res.Err = err
		return res
	}
	res.Refetched = fetched.Refetched
	res.Title = job.Descriptor.Title(fetched.Meta.Title)
	if res.Title == "" {
		res.Title = job.Descriptor.Locator
	}
	current := fetched.Artifact

	if p.Brander != nil {
		if err := p.wait(ctx); err != nil {
			res.Err = err
			return res
		}
		branded, err := p.Brander.Brand(stage(StageBrand), janitor, current)
		if err != nil {
			res.BrandFallback = true
			logging.WarnWithContext(logger, "branding failed; delivering unbranded download", "brand_fallback",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check brand settings and ffmpeg"),
				logging.String(logging.FieldImpact, "caption is annotated "+unbrandedNote),
			)
		} else {
			_ = janitor.Discard(current)
			current = branded
			res.Branded = true
		}
	}

	info := p.probe(ctx, logger, current.Path)
	res.Duration = info.Duration
	res.Caption = BuildCaption(res.Title, res.BrandFallback, p.CaptionSuffix)

	if ceiling > 0 && current.Size > ceiling {
		if err := p.wait(ctx); err != nil {
			res.Err = err
			return res
		}
		fitted, err := p.Fitter.Fit(stage(StageFit), janitor, current, ceiling)
		if err != nil {
			res.Err = err
			return res
		}
		_ = janitor.Discard(current)
		current = fitted
		res.Fitted = true
	}

	if err := p.wait(ctx); err != nil {
		res.Err = err
		return res
	}
	deliverCtx := stage(StageDeliver)
	upload := deliver.Upload{
		Path:     current.Path,
		Caption:  res.Caption,
		Title:    res.Title,
		JobID:    res.JobID,
		Size:     current.Size,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
	}
	delivered, err := p.Deliverer.Deliver(deliverCtx, upload)
	if err != nil && errors.Is(err, services.ErrTooLarge) && !res.Fitted {
		logger.Info("primary sink rejected payload size; fitting once and retrying",
			logging.String(logging.FieldEventType, "fit_retry"),
			logging.Bytes("size", current.Size),
		)
		target := ceiling
		if target <= 0 {
			target = current.Size - 1
		}
		fitted, fitErr := p.Fitter.Fit(stage(StageFit), janitor, current, target)
		if fitErr != nil {
			res.Err = fitErr
			return res
		}
		_ = janitor.Discard(current)
		current = fitted
		res.Fitted = true
		upload.Path = current.Path
		upload.Size = current.Size
		delivered, err = p.Deliverer.Deliver(stage(StageDeliver), upload)
	}
	if err != nil {
		res.Err = err
		return res
	}

	res.Receipt = delivered.Primary
	res.Secondary = delivered.Secondary
	res.SizeBytes = current.Size
	return res
}

func (p *Pipeline) wait(ctx context.Context) error {
	if p.Gate == nil {
		return nil
	}
	return p.Gate.WaitIfPaused(ctx)
}

func (p *Pipeline) probe(ctx context.Context, logger *slog.Logger, path string) ffprobe.Info {
	if p.Probe == nil {
		return ffprobe.Info{}
	}
	info, err := p.Probe(ctx, path)
	if err != nil {
		logger.Debug("probe failed; uploading without media hints", logging.Error(err))
		return ffprobe.Info{}
	}
	return info
}
