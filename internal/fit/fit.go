// Package fit re-encodes an oversized artifact once at a reduced-quality
// profile so it fits a sink's size ceiling.
package fit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"relay/internal/artifact"
	"relay/internal/config"
	"relay/internal/fileutil"
	"relay/internal/logging"
	"relay/internal/media/ffmpeg"
	"relay/internal/services"
)

var runFFmpeg = ffmpeg.Run

// Profile is the fixed re-encode profile.
type Profile struct {
	FFmpeg       string
	CRF          int
	Preset       string
	AudioBitrate string
	Timeout      time.Duration
}

// ProfileFromConfig maps the fit section onto a Profile.
func ProfileFromConfig(cfg *config.Config) Profile {
	return Profile{
		FFmpeg:       cfg.FFmpegBinary(),
		CRF:          cfg.Fit.CRF,
		Preset:       cfg.Fit.Preset,
		AudioBitrate: cfg.Fit.AudioBitrate,
		Timeout:      time.Duration(cfg.Fit.Timeout) * time.Second,
	}
}

func (p Profile) args(in, out string) []string {
	preset := p.Preset
	if preset == "" {
		preset = "veryfast"
	}
	audio := p.AudioBitrate
	if audio == "" {
		audio = "128k"
	}
	return []string{
		"-i", in,
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(p.CRF),
		"-c:a", "aac",
		"-b:a", audio,
		"-movflags", "+faststart",
		out,
	}
}

// Fitter performs the single re-encode.
type Fitter struct {
	profile Profile
	logger  *slog.Logger
}

// New constructs a Fitter.
func New(profile Profile, logger *slog.Logger) *Fitter {
	return &Fitter{profile: profile, logger: logging.NewComponentLogger(logger, "fit")}
}

// Fit re-encodes in once. A result still above ceiling, or one from an encode
// that exited with an error, is discarded and reported as ErrSize. The encode output is removed through the janitor on
// every failure path; the input is left for the caller.
func (f *Fitter) Fit(ctx context.Context, janitor *artifact.Janitor, in artifact.Artifact, ceiling int64) (artifact.Artifact, error) {
	if janitor == nil {
		return artifact.Artifact{}, errors.New("fit: janitor required")
	}
	if ceiling <= 0 {
		return artifact.Artifact{}, services.Wrap(services.ErrValidation, "fit", "validate", "no size ceiling to fit", nil)
	}

	out := janitor.Allocate(artifact.RoleFitOutput, ".mp4")
	if f.profile.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.profile.Timeout)
		defer cancel()
	}

	f.logger.InfoContext(ctx, "re-encoding to fit ceiling",
		logging.Bytes("input", in.Size),
		logging.Bytes("ceiling", ceiling),
		logging.Int("crf", f.profile.CRF),
		logging.String(logging.FieldEventType, "fit_start"),
	)
	res := runFFmpeg(ctx, f.profile.FFmpeg, f.profile.args(in.Path, out.Path)...)

	size, _ := fileutil.Size(out.Path)
	if size <= 0 {
		_ = janitor.Discard(out)
		cause := res.Err
		if cause == nil {
			cause = errors.New("empty output")
		}
		msg := "re-encode produced no output"
		if tail := res.Tail(2); tail != "" {
			msg += ": " + tail
		}
		return artifact.Artifact{}, services.Wrap(services.ErrSize, "fit", "encode", msg, cause)
	}
	if res.Err != nil {
		_ = janitor.Discard(out)
		msg := "re-encode did not finish"
		if tail := res.Tail(2); tail != "" {
			msg += ": " + tail
		}
		return artifact.Artifact{}, services.Wrap(services.ErrSize, "fit", "encode", msg, res.Err)
	}
	if size > ceiling {
		_ = janitor.Discard(out)
		return artifact.Artifact{}, services.Wrap(services.ErrSize, "fit", "verify",
			fmt.Sprintf("re-encoded size %d still exceeds ceiling %d", size, ceiling), nil)
	}

	out.Size = size
	janitor.Track(out)
	f.logger.InfoContext(ctx, "re-encode fits ceiling",
		logging.Bytes("output", size),
		logging.Duration("elapsed", res.Elapsed),
		logging.String(logging.FieldEventType, "fit_complete"),
	)
	return out, nil
}
