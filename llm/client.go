package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"go-passport-recognizer/logging"
	"go-passport-recognizer/storage"
)

// ErrUnavailable wraps every failure to get an answer from the model.
var ErrUnavailable = errors.New("LLM unavailable")

const (
	DefaultBaseURL  = "http://127.0.0.1:11434"
	DefaultModel    = "qwen3-vl:30b"
	DefaultTimeout  = 120 * time.Second
	DefaultAttempts = 2
	DefaultDelay    = 500 * time.Millisecond
)

type LLMConfig struct {
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	TimeoutSec int    `json:"timeout_sec"`
	Attempts   int    `json:"attempts"`
	Language   string `json:"language"`
}

// VisionClient sends one image and a prompt to a vision model.
type VisionClient interface {
	// ChatWithImage returns the id assigned to the call and the assistant text.
	ChatWithImage(ctx context.Context, image []byte, prompt string) (requestID string, text string, err error)
}

// CallLogger records every model call. Implemented by storage.Store.
type CallLogger interface {
	SaveLLMLog(ctx context.Context, entry storage.LLMLog) error
}

// OllamaClient talks to the Ollama chat API.
type OllamaClient struct {
	baseURL    string
	model      string
	attempts   uint
	delay      time.Duration
	httpClient *http.Client
	callLogger CallLogger
}

type Option func(*OllamaClient)

func WithCallLogger(logger CallLogger) Option {
	return func(c *OllamaClient) { c.callLogger = logger }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *OllamaClient) { c.httpClient = client }
}

func WithRetryDelay(delay time.Duration) Option {
	return func(c *OllamaClient) { c.delay = delay }
}

func NewOllamaClient(config LLMConfig, opts ...Option) *OllamaClient {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := DefaultTimeout
	if config.TimeoutSec > 0 {
		timeout = time.Duration(config.TimeoutSec) * time.Second
	}
	attempts := uint(DefaultAttempts)
	if config.Attempts > 0 {
		attempts = uint(config.Attempts)
	}

	client := &OllamaClient{
		baseURL:    baseURL,
		model:      model,
		attempts:   attempts,
		delay:      DefaultDelay,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *OllamaClient) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func newRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (c *OllamaClient) ChatWithImage(ctx context.Context, image []byte, prompt string) (string, string, error) {
	requestID := newRequestID()
	log := logging.FromContext(ctx).With("llm_request_id", requestID, "model", c.model)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(image)},
		}},
		Stream: false,
	})
	if err != nil {
		return requestID, "", fmt.Errorf("%w: failed to marshal chat request: %v", ErrUnavailable, err)
	}

	start := time.Now()
	var raw []byte
	err = retry.Do(
		func() error {
			var callErr error
			raw, callErr = c.post(ctx, body)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("Retrying Ollama call", "attempt", n+1, "error", err)
		}),
	)

	entry := storage.LLMLog{
		ID:        uuid.NewString(),
		TsUTC:     time.Now().UTC(),
		RequestID: requestID,
		Model:     c.model,
		InputJSON: c.inputJSON(prompt, len(image)),
	}
	defer c.record(ctx, &entry)

	if err != nil {
		entry.Error = err.Error()
		log.Error("Ollama call failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return requestID, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	entry.OutputJSON = string(raw)

	var response chatResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		entry.Error = fmt.Sprintf("Ollama response decode error: %v", err)
		log.Error("Failed to decode Ollama response", "error", err)
		return requestID, "", fmt.Errorf("%w: failed to decode chat response: %v", ErrUnavailable, err)
	}

	entry.Success = true
	log.Info("Ollama call completed", "duration_ms", time.Since(start).Milliseconds(), "content_length", len(response.Message.Content))
	return requestID, response.Message.Content, nil
}

// post performs a single call. Client errors are not retried.
func (c *OllamaClient) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create chat request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama request error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		httpErr := fmt.Errorf("Ollama HTTP error: %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, retry.Unrecoverable(httpErr)
		}
		return nil, httpErr
	}
	return data, nil
}

func (c *OllamaClient) inputJSON(prompt string, imageSize int) string {
	data, _ := json.Marshal(map[string]any{
		"model":      c.model,
		"prompt":     prompt,
		"image_size": imageSize,
	})
	return string(data)
}

func (c *OllamaClient) record(ctx context.Context, entry *storage.LLMLog) {
	if c.callLogger == nil {
		return
	}
	// the request context may already be cancelled when the call failed
	if err := c.callLogger.SaveLLMLog(context.WithoutCancel(ctx), *entry); err != nil {
		slog.Warn("Failed to store LLM log", "request_id", entry.RequestID, "error", err)
	}
}
