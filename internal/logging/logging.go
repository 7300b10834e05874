// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// RequestIDKey is the context key for caller-supplied request IDs.
	RequestIDKey ContextKey = "request_id"
	// BatchIDKey is the context key for resolver batch IDs.
	BatchIDKey ContextKey = "batch_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatJSON)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat converts "json" or "text" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q", s)
}

// InitLogger initializes the global logger with the specified level and
// format. Logs go to stderr so command output on stdout stays clean.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo is InitLogger writing to w.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	defaultLogger = New(w, level, format)
	slog.SetDefault(defaultLogger)
}

// New builds a logger without touching the global one.
func New(w io.Writer, level Level, format Format) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// NewRequestID returns a fresh random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// NewBatchID returns a fresh random batch ID.
func NewBatchID() string {
	return uuid.NewString()
}

// WithBatchID adds a batch ID to the context.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// GetBatchID retrieves the batch ID from the context.
func GetBatchID(ctx context.Context) string {
	if batchID, ok := ctx.Value(BatchIDKey).(string); ok {
		return batchID
	}
	return ""
}

// LoggerFromContext returns the global logger with context IDs attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return With(ctx, defaultLogger)
}

// With attaches the IDs carried by ctx to logger.
func With(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = defaultLogger
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if batchID := GetBatchID(ctx); batchID != "" {
		logger = logger.With("batch_id", batchID)
	}
	return logger
}

// DebugContext logs a debug message through the global logger with the IDs carried by ctx.
func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Debug(msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// SourceFetch logs a completed backend call.
func SourceFetch(ctx context.Context, logger *slog.Logger, source, key string, duration time.Duration, args ...any) {
	allArgs := []any{
		"source", source,
		"key", key,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	With(ctx, logger).Debug("source_fetch", allArgs...)
}

// SourceError logs a failed backend call. Not-found results are expected
// and are logged at debug level; everything else is a warning.
func SourceError(ctx context.Context, logger *slog.Logger, source, key, kind string, err error, args ...any) {
	allArgs := []any{
		"source", source,
		"key", key,
		"kind", kind,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	l := With(ctx, logger)
	if kind == "not_found" {
		l.Debug("source_error", allArgs...)
		return
	}
	l.Warn("source_error", allArgs...)
}

// CacheEvent logs cache activity such as invalidations.
func CacheEvent(ctx context.Context, logger *slog.Logger, event, key string, args ...any) {
	allArgs := []any{
		"event", event,
		"key", key,
	}
	allArgs = append(allArgs, args...)
	With(ctx, logger).Debug("cache_event", allArgs...)
}

// BatchResolved logs the outcome of a batch resolution.
func BatchResolved(ctx context.Context, logger *slog.Logger, source string, refs, groups, resolved int, duration time.Duration, args ...any) {
	allArgs := []any{
		"source", source,
		"refs", refs,
		"groups", groups,
		"resolved", resolved,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	With(ctx, logger).Info("batch_resolved", allArgs...)
}
