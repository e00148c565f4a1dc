package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OllamaClient, *storage.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := storage.NewMemoryStore()
	client := NewOllamaClient(
		LLMConfig{BaseURL: server.URL + "/", Model: "test-model", TimeoutSec: 5, Attempts: 3},
		WithCallLogger(store),
		WithRetryDelay(time.Millisecond),
	)
	return client, store
}

func TestChatWithImageSuccess(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		require.Equal(t, "user", req.Messages[0].Role)
		require.Equal(t, "prompt", req.Messages[0].Content)
		require.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte("image"))}, req.Messages[0].Images)

		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "ok"}})
	})

	requestID, text, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Regexp(t, `^req-[0-9a-f]{8}$`, requestID)

	logs := store.LLMLogs()
	require.Len(t, logs, 1)
	require.Equal(t, requestID, logs[0].RequestID)
	require.True(t, logs[0].Success)
	require.Empty(t, logs[0].Error)
	require.Contains(t, logs[0].OutputJSON, `"message"`)
	require.Contains(t, logs[0].InputJSON, `"image_size":5`)
}

func TestChatWithImageHTTPError(t *testing.T) {
	var calls atomic.Int32
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, _, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Contains(t, err.Error(), "Ollama HTTP error")
	require.Equal(t, int32(3), calls.Load())

	logs := store.LLMLogs()
	require.Len(t, logs, 1)
	require.False(t, logs[0].Success)
	require.Contains(t, logs[0].Error, "Ollama HTTP error")
	require.Empty(t, logs[0].OutputJSON)
}

func TestChatWithImageClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, _, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Contains(t, err.Error(), "404")
	require.Equal(t, int32(1), calls.Load())
}

func TestChatWithImageRecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": `{"document_number":"AB123"}`}})
	})

	_, text, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.NoError(t, err)
	require.Equal(t, `{"document_number":"AB123"}`, text)
	require.Equal(t, int32(2), calls.Load())
	require.Len(t, store.LLMLogs(), 1)
}

func TestChatWithImageBadJSON(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, _, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)

	logs := store.LLMLogs()
	require.Len(t, logs, 1)
	require.False(t, logs[0].Success)
	require.Equal(t, "not json", logs[0].OutputJSON)
}

func TestChatWithImageUnreachable(t *testing.T) {
	client := NewOllamaClient(LLMConfig{BaseURL: "http://127.0.0.1:1", TimeoutSec: 1, Attempts: 1})
	_, _, err := client.ChatWithImage(context.Background(), []byte("image"), "prompt")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewOllamaClientDefaults(t *testing.T) {
	client := NewOllamaClient(LLMConfig{})
	require.Equal(t, DefaultBaseURL, client.baseURL)
	require.Equal(t, DefaultModel, client.Model())
	require.Equal(t, uint(DefaultAttempts), client.attempts)
	require.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}
