package brand

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"relay/internal/artifact"
	"relay/internal/config"
	"relay/internal/fileutil"
	"relay/internal/logging"
	"relay/internal/media/ffmpeg"
	"relay/internal/services"
)

const (
	// scrollFilter drifts the mark upwards 30px/s from the bottom-right
	// corner, wrapping once it leaves the frame.
	scrollFilter = `overlay=main_w-overlay_w-20:main_h-overlay_h-10-mod(t*30\,main_h+overlay_h+50)`
	staticFilter = `overlay=main_w-overlay_w-20:main_h-overlay_h-10`
)

var runFFmpeg = ffmpeg.Run

// Options configures the brander.
type Options struct {
	FFmpeg   string
	Text     string
	FontPath string
	FontSize float64
	Opacity  int
	Preset   string
	Scroll   bool
	Timeout  time.Duration
}

// OptionsFromConfig maps the brand section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FFmpeg:   cfg.FFmpegBinary(),
		Text:     cfg.Brand.Text,
		FontPath: cfg.Brand.FontPath,
		FontSize: cfg.Brand.FontSize,
		Opacity:  cfg.Brand.Opacity,
		Preset:   cfg.Brand.Preset,
		Scroll:   cfg.Brand.Scroll,
		Timeout:  time.Duration(cfg.Brand.Timeout) * time.Second,
	}
}

// Brander overlays the watermark.
type Brander struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Brander.
func New(opts Options, logger *slog.Logger) *Brander {
	return &Brander{opts: opts, logger: logging.NewComponentLogger(logger, "brand")}
}

// Brand composites the watermark onto raw and returns the branded artifact.
func (b *Brander) Brand(ctx context.Context, janitor *artifact.Janitor, raw artifact.Artifact) (artifact.Artifact, error) {
	if janitor == nil {
		return artifact.Artifact{}, errors.New("brand: janitor required")
	}
	if strings.TrimSpace(b.opts.Text) == "" {
		return artifact.Artifact{}, services.Wrap(services.ErrBrand, "brand", "render", "watermark text is empty", nil)
	}

	overlay := janitor.Allocate(artifact.RoleWatermarkOverlay, ".png")
	wm, err := WriteWatermark(overlay.Path, WatermarkSpec{
		Text:     b.opts.Text,
		FontPath: b.opts.FontPath,
		FontSize: b.opts.FontSize,
		Opacity:  b.opts.Opacity,
	})
	if wm.FontFallback != nil {
		logging.WarnWithContext(b.logger, "watermark font substituted", "brand_font_fallback",
			logging.Error(wm.FontFallback),
			logging.String(logging.FieldErrorHint, "check brand.font_path"),
			logging.String(logging.FieldImpact, "watermark uses the built-in font"),
		)
	}
	if err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrBrand, "brand", "render", "watermark raster failed", err)
	}

	ext := raw.Ext()
	if ext == "" {
		ext = ".mp4"
	}
	out := janitor.Allocate(artifact.RoleBrandedOutput, ext)

	filter := staticFilter
	if b.opts.Scroll {
		filter = scrollFilter
	}
	preset := b.opts.Preset
	if preset == "" {
		preset = "ultrafast"
	}

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}
	res := runFFmpeg(ctx, b.opts.FFmpeg,
		"-i", raw.Path,
		"-i", overlay.Path,
		"-filter_complex", filter,
		"-c:v", "libx264",
		"-preset", preset,
		"-c:a", "copy",
		out.Path,
	)

	size, _ := fileutil.Size(out.Path)
	if size <= 0 {
		msg := "compositing produced no output"
		if tail := res.Tail(2); tail != "" {
			msg += ": " + tail
		}
		cause := res.Err
		if cause == nil {
			cause = errors.New("empty output")
		}
		logging.WarnWithContext(b.logger, "branding failed", "brand_failed",
			logging.Error(cause),
			logging.String(logging.FieldErrorHint, orDefault(ffmpeg.Hint(res.Stderr), "inspect ffmpeg stderr in the debug log")),
			logging.String(logging.FieldImpact, "item is delivered without watermark"),
		)
		b.logger.Debug("ffmpeg stderr", logging.String("stderr", res.Stderr))
		return artifact.Artifact{}, services.Wrap(services.ErrBrand, "brand", "composite", msg, cause)
	}
	if res.Err != nil {
		b.logger.Warn("ffmpeg reported an error but produced output; accepting it",
			logging.Error(res.Err),
			logging.Bytes("size", size),
		)
	}

	out.Size = size
	janitor.Track(out)
	b.logger.Info("branding complete",
		logging.Bytes("size", size),
		logging.Duration("elapsed", res.Elapsed),
		logging.Bool("scroll", b.opts.Scroll),
	)
	return out, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
