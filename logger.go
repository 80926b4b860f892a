package geopartition

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with engine-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithStrategy adds the strategy name to the logger.
func (l *Logger) WithStrategy(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("strategy", name),
	}
}

// LogPlan logs the plan phase outcome.
func (l *Logger) LogPlan(ctx context.Context, strategy string, rows, partitions int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "plan failed",
			"strategy", strategy,
			"rows", rows,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "plan completed",
			"strategy", strategy,
			"rows", rows,
			"partitions", partitions,
			"duration", duration,
		)
	}
}

// LogAnalysis logs the analysis phase outcome.
func (l *Logger) LogAnalysis(ctx context.Context, partitions, warnings int, cv float64) {
	if warnings > 0 {
		l.WarnContext(ctx, "analysis found warnings",
			"partitions", partitions,
			"warnings", warnings,
			"cv", cv,
		)
	} else {
		l.InfoContext(ctx, "analysis completed",
			"partitions", partitions,
			"cv", cv,
		)
	}
}

// LogWrite logs the write phase outcome.
func (l *Logger) LogWrite(ctx context.Context, files int, rows uint64, bytes int64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "write completed",
			"files", files,
			"rows", rows,
			"bytes", bytes,
			"duration", duration,
		)
	}
}
