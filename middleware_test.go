package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/logging"
	"go-passport-recognizer/storage"
)

func TestFormatBody(t *testing.T) {
	jsonBody := []byte(`{"a":1}`)
	large := []byte(strings.Repeat("x", maxLoggedBodySize+1))

	tests := []struct {
		name        string
		body        []byte
		size        int64
		contentType string
		want        string
	}{
		{name: "empty", body: nil, size: 0, contentType: "application/json", want: ""},
		{name: "json", body: jsonBody, size: int64(len(jsonBody)), contentType: "application/json; charset=utf-8", want: `{"a":1}`},
		{name: "plain text", body: []byte("hello"), size: 5, contentType: "text/plain", want: "hello"},
		{name: "form", body: []byte("a=1"), size: 3, contentType: "application/x-www-form-urlencoded", want: "a=1"},
		{name: "multipart", body: []byte("--b"), size: 3, contentType: "multipart/form-data; boundary=b", want: placeholderBody(3)},
		{name: "binary type", body: []byte{0xFF, 0xD8}, size: 2, contentType: "image/jpeg", want: placeholderBody(2)},
		{name: "invalid utf8", body: []byte{0xFF, 0xFE}, size: 2, contentType: "text/plain", want: placeholderBody(2)},
		{name: "too large", body: large, size: int64(len(large)), contentType: "application/json", want: placeholderBody(int64(len(large)))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, formatBody(tc.body, tc.size, tc.contentType))
		})
	}
}

func TestPlaceholderShape(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(placeholderBody(12)), &decoded))
	require.Equal(t, map[string]any{"placeholder": "binary_or_too_large", "size": 12.0}, decoded)

	require.NoError(t, json.Unmarshal([]byte(unhandledPlaceholder("boom")), &decoded))
	require.Equal(t, "unhandled_exception", decoded["placeholder"])
	require.Equal(t, "boom", decoded["detail"])
}

func TestRequestLogMiddleware(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := requestLogMiddleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/echo?x=1", strings.NewReader(`{"echo":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Length", "13")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	logs := store.RequestLogs()
	require.Len(t, logs, 1)
	entry := logs[0]
	require.Equal(t, http.MethodPost, entry.Method)
	require.Equal(t, "/echo", entry.Path)
	require.Equal(t, "x=1", entry.Query)
	require.Equal(t, http.StatusCreated, entry.StatusCode)
	require.Equal(t, "test-agent", entry.UserAgent)
	require.Equal(t, int64(len(`{"echo":true}`)), entry.ContentLength)
	require.Equal(t, `{"echo":true}`, entry.RequestBody)
	require.Equal(t, `{"echo":true}`, entry.ResponseBody)
	require.Empty(t, entry.Error)
	require.GreaterOrEqual(t, entry.DurationMs, int64(0))
}

func TestRequestLogMiddlewareRecoversPanic(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := requestLogMiddleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())

	logs := store.RequestLogs()
	require.Len(t, logs, 1)
	require.Equal(t, http.StatusInternalServerError, logs[0].StatusCode)
	require.Equal(t, "kaboom", logs[0].Error)
	require.Equal(t, unhandledPlaceholder("kaboom"), logs[0].ResponseBody)
	require.Equal(t, int64(-1), logs[0].ContentLength)
}

func TestRequestLogMiddlewareSkipsEventStreams(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := requestLogMiddleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "event: ping\ndata: {}\n\n")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Contains(t, rec.Body.String(), "event: ping")
	logs := store.RequestLogs()
	require.Len(t, logs, 1)
	require.Equal(t, placeholderBody(0), logs[0].ResponseBody)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
	}))

	t.Run("client supplied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, "abc-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, "abc-1", seen)
		require.Equal(t, "abc-1", rec.Header().Get(requestIDHeader))
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotEmpty(t, seen)
		require.NotEqual(t, logging.DefaultRequestID, seen)
		require.Equal(t, seen, rec.Header().Get(requestIDHeader))
	})
}
