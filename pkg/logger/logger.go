// Package logger provides structured logging for the error log service.
//
// This package wraps Go's standard log/slog package with named channels and
// convenience methods for the events the middleware and proxy emit.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with additional convenience methods
type Logger struct {
	*slog.Logger
}

// LoggerConfig defines logger configuration options
type LoggerConfig struct {
	// Level specifies the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Format specifies output format (text, json)
	Format string `yaml:"format"`

	// Output receives log records; nil means stdout
	Output io.Writer `yaml:"-"`
}

// New creates a new logger with the specified configuration
func New(cfg LoggerConfig) *Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Default creates a logger with default settings
func Default() *Logger {
	return New(LoggerConfig{Level: "info", Format: "text"})
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return New(LoggerConfig{Output: io.Discard})
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug

	case "info":
		return slog.LevelInfo

	case "warn", "warning":
		return slog.LevelWarn

	case "error", "fatal":
		return slog.LevelError

	default:
		return slog.LevelInfo
	}
}

// Channel returns a logger for the named channel. The empty name is the
// root channel and returns l itself.
func (l *Logger) Channel(name string) *Logger {
	if name == "" {
		return l
	}

	return l.With("channel", name)
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Error log events

// LogFaultCaptured logs a fault recorded by the error log
func (l *Logger) LogFaultCaptured(entry, category, message, trace string) {
	l.Error("Unhandled fault",
		"entry", entry,
		"category", category,
		"message", message,
		"trace", trace,
	)
}

// LogViewServed logs a request for the diagnostic view
func (l *Logger) LogViewServed(view, entry string, found bool) {
	l.Debug("Error log view served", "view", view, "entry", entry, "found", found)
}

// Proxy events

// LogProxy logs a proxy request attempt
func (l *Logger) LogProxy(method, path, target string, attempt, total int) {
	l.Info("Proxy attempt",
		"method", method,
		"path", path,
		"target", target,
		"attempt", attempt,
		"total_targets", total,
	)
}

// LogProxySuccess logs a successful proxy request
func (l *Logger) LogProxySuccess(target string) {
	l.Info("Proxy success", "target", target)
}

// LogProxyFailure logs a failed proxy request
func (l *Logger) LogProxyFailure(target string, err error) {
	l.Warn("Proxy failure", "target", target, "error", err)
}

// LogAllTargetsFailed logs when all targets fail
func (l *Logger) LogAllTargetsFailed(method, path string) {
	l.Error("All targets failed", "method", method, "path", path)
}
