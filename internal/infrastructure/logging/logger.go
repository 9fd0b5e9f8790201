package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/offgridlab/offgrid-core/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "offgrid"

// Logger is a slog.Logger carrying the service and version attributes.
// It satisfies the small Logger interfaces declared by the onewire,
// renogy, telemetry and mqtt packages. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of the config.
//
// Output is "stdout" (default), "stderr" or a file path. A file that
// cannot be opened falls back to stderr and the failure is logged there.
func New(cfg config.LoggingConfig, version string) *Logger {
	out, openErr := openOutput(cfg.Output)
	l := NewWithWriter(out, cfg, version)
	if openErr != nil {
		l.Warn("log file unavailable, logging to stderr", "path", cfg.Output, "error", openErr)
	}
	return l
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return os.Stderr, err
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return os.Stderr, err
	}
	return f, nil
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	}))}
}

// parseLevel maps debug, warn/warning and error; anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger with extra attributes.
//
//	log.With("component", "poller").Info("poll complete")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the logger used before configuration is loaded.
func Default() *Logger {
	return NewWithWriter(os.Stdout, config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
