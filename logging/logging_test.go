package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerInitialized(t *testing.T) {
	logger := GetLogger()
	require.NotNil(t, logger, "Logger should be initialized")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"default for unknown", "invalid", slog.LevelInfo},
		{"uppercase", "DEBUG", slog.LevelDebug},
		{"mixed case", "InFo", slog.LevelInfo},
		{"padded", " error ", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedLevel, ParseLevel(tt.level))
		})
	}
}

func TestInitLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "warn")
	t.Cleanup(func() { InitLogger("info") })

	slog.Info("hidden message")
	slog.Warn("visible message")

	require.NotContains(t, buf.String(), "hidden message")
	require.Contains(t, buf.String(), "visible message")
}

func TestGetLogger(t *testing.T) {
	InitLogger("info")
	logger1 := GetLogger()
	logger2 := GetLogger()

	require.NotNil(t, logger1)
	require.NotNil(t, logger2)
	require.Equal(t, logger1, logger2, "GetLogger should return the same instance")
}

func TestRequestID(t *testing.T) {
	t.Run("defaults when missing", func(t *testing.T) {
		require.Equal(t, DefaultRequestID, RequestID(context.Background()))
	})

	t.Run("defaults when empty", func(t *testing.T) {
		ctx := ContextWithRequestID(context.Background(), "")
		require.Equal(t, DefaultRequestID, RequestID(ctx))
	})

	t.Run("logged with records", func(t *testing.T) {
		var buf bytes.Buffer
		InitLoggerTo(&buf, "info")
		t.Cleanup(func() { InitLogger("info") })

		ctx := ContextWithRequestID(context.Background(), "req-42")
		WithPlane(FromContext(ctx), "llm").Info("calling model")

		require.Contains(t, buf.String(), "request_id=req-42")
		require.Contains(t, buf.String(), "plane=llm")
	})
}
