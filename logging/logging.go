package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultRequestID is logged when a record has no request to correlate with.
const DefaultRequestID = "n/a"

var logger *slog.Logger

func init() {
	// Default to INFO level
	InitLogger("info")
}

// ParseLevel maps a config level name onto a slog level, unknown names become INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger initializes the global logger with the specified level
func InitLogger(level string) {
	InitLoggerTo(os.Stderr, level)
}

// InitLoggerTo is InitLogger writing to w instead of stderr.
func InitLoggerTo(w io.Writer, level string) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	handler := slog.NewTextHandler(w, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// GetLogger returns the global logger instance
func GetLogger() *slog.Logger {
	return logger
}

type requestIDKey struct{}

// ContextWithRequestID stores the id used to correlate log records of one request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the id stored in ctx, or DefaultRequestID.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultRequestID
}

// FromContext returns the global logger tagged with the request id from ctx.
func FromContext(ctx context.Context) *slog.Logger {
	return GetLogger().With("request_id", RequestID(ctx))
}

// WithPlane tags a logger with the part of the service emitting records,
// for example "http", "llm" or "nfc".
func WithPlane(l *slog.Logger, plane string) *slog.Logger {
	return l.With("plane", plane)
}
