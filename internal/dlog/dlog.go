// Package dlog wraps zerolog with the small, chainable API the rest of
// dropctl depends on, the way the teacher's internal/logger wraps its own
// backend behind a stable Logger type.
package dlog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures a Logger at construction time.
type Options struct {
	Level     string // "info", "debug", or "trace"
	Writer    io.Writer
	Component string
}

// Logger is the process-wide structured logger used by every component.
type Logger struct {
	base zerolog.Logger
}

// New builds a Logger from Options. An unrecognized Level falls back to info.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := parseLevel(opts.Level)

	base := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if opts.Component != "" {
		base = base.With().Str("component", opts.Component).Logger()
	}

	return &Logger{base: base}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a derived Logger that always carries the supplied fields.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	if len(fields) == 0 {
		return l
	}
	ctx := l.base.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{base: ctx.Logger()}
}

// Trace writes a trace-level entry, used for dependency-scheduling
// chatter (§9 design notes: "a trace-level event, not fatal").
func (l *Logger) Trace(msg string) {
	if l == nil {
		return
	}
	l.base.Trace().Msg(msg)
}

// Debug writes a debug-level entry.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Info writes an informational entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Warn writes a warning entry, used for the deferred-evaluation and
// non-fatal disposition classes in spec.md §7.
func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error writes an error entry including the causing error.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// Nop returns a Logger that discards everything, for tests and for
// components that receive no logger.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}
