package scmemory

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/scmemory/model"
)

// Logger wraps slog.Logger with scmemory-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithContext tags the logger with a memory context name.
func (l *Logger) WithContext(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("context", name),
	}
}

// LogCreate logs an element creation.
func (l *Logger) LogCreate(ctx context.Context, kind string, addr model.Addr, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"kind", kind,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "element created",
			"kind", kind,
			"addr", addr.String(),
		)
	}
}

// LogErase logs an erase with its cascade size.
func (l *Logger) LogErase(ctx context.Context, addr model.Addr, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "erase failed",
			"addr", addr.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "element erased",
			"addr", addr.String(),
			"cascade", count,
		)
	}
}

// LogSave logs a save of the repository.
func (l *Logger) LogSave(ctx context.Context, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"segments", segments,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"segments", segments,
		)
	}
}

// LogLoad logs the load of the repository.
func (l *Logger) LogLoad(ctx context.Context, segments int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"segments", segments,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"segments", segments,
		)
	}
}
