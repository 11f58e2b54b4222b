// Package log is the structured logging layer for the eth2030 execution
// engine. It is a thin veneer over log/slog: subsystems obtain child
// loggers carrying a "module" attribute, and handlers decide the output
// shape (JSON by default, human-readable via TerminalHandler).
package log

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger carries a slog.Logger plus the chaining helpers subsystems use.
type Logger struct {
	inner *slog.Logger
}

// root holds the process-wide logger behind the package-level functions.
var root atomic.Pointer[Logger]

func init() {
	root.Store(New(slog.LevelInfo))
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler,
// for tests and custom destinations.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger. Nil is ignored.
func SetDefault(l *Logger) {
	if l != nil {
		root.Store(l)
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return root.Load()
}

// Module returns a child logger tagged with a "module" attribute; this is
// how subsystems (core, vm, state, ...) obtain their contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Package-level shorthands on the default logger.

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
