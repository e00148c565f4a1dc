package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/events"
	"go-passport-recognizer/images"
	"go-passport-recognizer/llm"
	"go-passport-recognizer/nfc"
	"go-passport-recognizer/storage"
)

const testBaseURL = "http://localhost:8081"

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

// testEnv bundles the in-memory backends a test server runs on.
type testEnv struct {
	store  *storage.MemoryStore
	files  *storage.FileStore
	bus    *events.MemoryBus
	vision *fakeVisionClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	bus := events.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })
	return &testEnv{
		store:  storage.NewMemoryStore(),
		files:  files,
		bus:    bus,
		vision: &fakeVisionClient{requestID: "req-0000abcd"},
	}
}

func (e *testEnv) state() *ServerState {
	normalizer := images.NewNormalizer(images.Options{})
	return &ServerState{
		store:        e.store,
		files:        e.files,
		bus:          e.bus,
		visionClient: e.vision,
		nfcService:   nfc.NewService(e.store, e.files, e.bus, normalizer, nfc.DefaultMaxFaceImageBytes),
		promptLang:   "en",
	}
}

func startTestServer(t *testing.T, state *ServerState) *Server {
	t.Helper()

	srv, err := NewServer(state, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)
	return readResponse[T](t, resp)
}

// postImage uploads image as the multipart "image" field. A nil image sends a
// form without that field.
func postImage[T any](t *testing.T, url string, image []byte) (*http.Response, []byte, *T) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		part, err := mw.CreateFormFile("image", "passport.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return readResponse[T](t, resp)
}

func readResponse[T any](t *testing.T, resp *http.Response) (*http.Response, []byte, *T) {
	t.Helper()
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v T
	_ = json.Unmarshal(respBody, &v)
	return resp, respBody, &v
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// test doubles

type fakeVisionClient struct {
	mutex     sync.Mutex
	requestID string
	text      string
	err       error
	prompts   []string
	images    [][]byte
}

var _ llm.VisionClient = (*fakeVisionClient)(nil)

func (f *fakeVisionClient) ChatWithImage(_ context.Context, image []byte, prompt string) (string, string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	return f.requestID, f.text, f.err
}

func (f *fakeVisionClient) respond(text string, err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.text = text
	f.err = err
}

func (f *fakeVisionClient) calls() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.prompts)
}
