package bindex

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with bindex-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithReference adds a reference id field to the logger.
func (l *Logger) WithReference(id int) *Logger {
	return &Logger{
		Logger: l.Logger.With("reference", id),
	}
}

// WithName adds a name field to the logger (file or blob name).
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("name", name),
	}
}

// LogBuild logs the outcome of a Builder.Build call.
func (l *Logger) LogBuild(records uint64, references int, err error) {
	if err != nil {
		l.Error("index build failed",
			"records", records,
			"references", references,
			"error", err,
		)
	} else {
		l.Info("index built",
			"records", records,
			"references", references,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(refID int, start, end int64, chunks int, err error) {
	if err != nil {
		l.Error("query failed",
			"reference", refID,
			"start", start,
			"end", end,
			"error", err,
		)
	} else {
		l.Debug("query completed",
			"reference", refID,
			"start", start,
			"end", end,
			"chunks", chunks,
		)
	}
}

// LogWrite logs a serialization operation.
func (l *Logger) LogWrite(name string, bytes int64, err error) {
	if err != nil {
		l.Error("index write failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("index written",
			"name", name,
			"bytes", bytes,
		)
	}
}

// LogRead logs a deserialization operation.
func (l *Logger) LogRead(name string, references int, err error) {
	if err != nil {
		l.Error("index read failed",
			"name", name,
			"error", err,
		)
	} else {
		l.Info("index read",
			"name", name,
			"references", references,
		)
	}
}
