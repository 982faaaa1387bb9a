package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"relay/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	// FileFormat overrides Format for file outputs. Empty means Format.
	FileFormat  string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	addSource := opts.Development || level <= slog.LevelDebug

	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	fileFormat := format
	if strings.TrimSpace(opts.FileFormat) != "" {
		if fileFormat, err = normalizeFormat(opts.FileFormat); err != nil {
			return nil, err
		}
	}

	terminals, files, err := openWriters(
		defaultSlice(opts.OutputPaths, []string{"stdout"}),
		defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}),
	)
	if err != nil {
		return nil, err
	}

	var handlers []slog.Handler
	if terminals != nil {
		handlers = append(handlers, buildHandler(format, terminals, levelVar, addSource))
	}
	if files != nil {
		handlers = append(handlers, buildHandler(fileFormat, files, levelVar, addSource))
	}
	switch len(handlers) {
	case 0:
		return NewNop(), nil
	case 1:
		return slog.New(handlers[0]), nil
	default:
		return slog.New(&splitHandler{handlers: handlers}), nil
	}
}

// NewFromConfig creates a logger using application config defaults. When
// runLogPath is non-empty the run log is written there in the configured
// file format, alongside the console output on stderr.
func NewFromConfig(cfg *config.Config, runLogPath string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{"stderr"}})
	}
	outputs := []string{"stderr"}
	if strings.TrimSpace(runLogPath) != "" {
		outputs = append(outputs, runLogPath)
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		FileFormat:  cfg.Logging.FileFormat,
		OutputPaths: outputs,
	})
}

func buildHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	if format == "json" {
		return newJSONHandler(w, lvl, addSource)
	}
	return newPrettyHandler(w, lvl, addSource)
}

func normalizeFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "":
		return "console", nil
	case "console", "json":
		return format, nil
	default:
		return "", fmt.Errorf("log format: unsupported value %q", raw)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), value...)
}

// openWriters resolves output targets into a terminal writer (stdout/stderr)
// and a file writer. Either may be nil.
func openWriters(outputPaths []string, errorPaths []string) (io.Writer, io.Writer, error) {
	seen := map[string]struct{}{}
	var terminals, files []io.Writer
	combined := append(append([]string{}, outputPaths...), errorPaths...)

	for _, path := range combined {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			terminals = append(terminals, os.Stdout)
		case "stderr":
			terminals = append(terminals, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			files = append(files, file)
		}
	}
	return joinWriters(terminals), joinWriters(files), nil
}

func joinWriters(writers []io.Writer) io.Writer {
	switch len(writers) {
	case 0:
		return nil
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
