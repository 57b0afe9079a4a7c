package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
)

// ServiceName is attached to every entry as the "service" attribute.
const ServiceName = "linewriter"

// redacted replaces the value of any attribute whose key names a secret.
const redacted = "[REDACTED]"

// secretKeys are attribute keys never written in clear.
var secretKeys = []string{"token", "password", "secret", "authorization"}

// Logger wraps slog.Logger with line writer defaults.
//
// Thread Safety: All methods are safe for concurrent use. Loggers derived
// with With or Component share the level of the logger they came from.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a Logger writing to cfg.Output in cfg.Format.
//
// Every entry carries service and version attributes. Durations are written
// as strings ("1.5s") in both formats, and attributes named like a secret
// (token, password) are redacted.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for the default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	case "discard":
		output = io.Discard
	default:
		output = os.Stdout
	}
	return newLogger(output, cfg.Format, cfg.Level, version)
}

func newLogger(w io.Writer, format, level, version string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))

	opts := &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler), level: lv}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSecret(a.Key) {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// parseLevel converts debug, info, warn (or warning) and error to a level.
// Anything else is info.
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

// SetLevel changes the level of this logger and every logger derived from it.
func (l *Logger) SetLevel(level string) {
	if l.level != nil {
		l.level.Set(parseLevel(level))
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	sinkLogger := logger.With("sink", "tsdb")
//	sinkLogger.Warn("write failed") // Includes sink=tsdb
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default creates a JSON info logger on stdout for use before the
// configuration is loaded.
func Default() *Logger {
	return newLogger(os.Stdout, "json", "info", "dev")
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return newLogger(io.Discard, "text", "error", "test")
}
