package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAppErrorRequest(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		req, err := DecodeAppErrorRequest([]byte(`{"platform":"ios","error_message":"crash"}`))
		require.NoError(t, err)
		require.Equal(t, "ios", req.Platform)
		require.Equal(t, "crash", req.ErrorMessage)
		require.Empty(t, req.TsUTC)
		require.Nil(t, req.Context)
	})

	t.Run("full", func(t *testing.T) {
		req, err := DecodeAppErrorRequest([]byte(`{
			"ts_utc": "2025-01-01T10:00:00Z",
			"platform": "android",
			"app_version": "1.2.3",
			"error_message": "NFC timeout",
			"stacktrace": "at Reader.read",
			"context_json": {"screen": "scan", "attempt": 2},
			"user_agent": "okhttp",
			"device_info": "Pixel 8",
			"request_id": null
		}`))
		require.NoError(t, err)
		require.Equal(t, "2025-01-01T10:00:00Z", req.TsUTC)
		require.Equal(t, "scan", req.Context["screen"])
		require.Empty(t, req.RequestID)
	})

	invalid := map[string]string{
		"not json":              `{`,
		"not object":            `[1,2]`,
		"missing platform":      `{"error_message":"x"}`,
		"empty platform":        `{"platform":"","error_message":"x"}`,
		"empty message":         `{"platform":"ios","error_message":""}`,
		"context not an object": `{"platform":"ios","error_message":"x","context_json":"oops"}`,
		"numeric platform":      `{"platform":5,"error_message":"x"}`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAppErrorRequest([]byte(body))
			require.Error(t, err)
		})
	}
}
