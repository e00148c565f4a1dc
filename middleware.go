package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"go-passport-recognizer/logging"
	"go-passport-recognizer/storage"
)

const maxLoggedBodySize = 65536

const requestIDHeader = "X-Request-ID"

var textContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
}

// requestIDMiddleware tags the request context with the client supplied
// X-Request-ID or a fresh one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), requestID)))
	})
}

// requestLogMiddleware stores every exchange in the request log. Failing to
// store an entry never changes the response.
func requestLogMiddleware(store storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			body := &bodyRecorder{ReadCloser: r.Body}
			r.Body = body
			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			entry := storage.RequestLog{
				TsUTC:         start.UTC(),
				Method:        r.Method,
				Path:          r.URL.Path,
				Query:         r.URL.RawQuery,
				ClientIP:      clientIP(r),
				UserAgent:     r.Header.Get("User-Agent"),
				ContentType:   r.Header.Get("Content-Type"),
				ContentLength: headerContentLength(r),
			}

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					detail := fmt.Sprint(rec)
					slog.Error("Unhandled panic in handler", "path", r.URL.Path, "error", detail)
					entry.StatusCode = http.StatusInternalServerError
					entry.Error = detail
					entry.ResponseBody = unhandledPlaceholder(detail)
					if !recorder.wroteHeader {
						respondWithErr(recorder, http.StatusInternalServerError, ErrorInternal, "unhandled panic", errors.New(detail))
					}
				} else {
					entry.StatusCode = recorder.status
					entry.ResponseBody = recorder.loggedBody()
				}
				entry.DurationMs = time.Since(start).Milliseconds()
				entry.RequestBody = formatBody(body.captured(), body.size, entry.ContentType)

				if err := store.SaveRequestLog(context.WithoutCancel(r.Context()), entry); err != nil {
					slog.Warn("Failed to store request log", "path", entry.Path, "error", err)
				}
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}

func headerContentLength(r *http.Request) int64 {
	value := r.Header.Get("Content-Length")
	if value == "" {
		return -1
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// formatBody returns the body as text when it is small UTF-8 text, and a
// size placeholder otherwise.
func formatBody(body []byte, size int64, contentType string) string {
	if size == 0 {
		return ""
	}
	if size > maxLoggedBodySize {
		return placeholderBody(size)
	}

	contentType = strings.ToLower(contentType)
	if strings.HasPrefix(contentType, "multipart/") || !isTextContentType(contentType) {
		return placeholderBody(size)
	}
	if !utf8.Valid(body) {
		return placeholderBody(size)
	}
	return string(body)
}

func isTextContentType(contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	for _, ct := range textContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

func placeholderBody(size int64) string {
	data, _ := json.Marshal(map[string]any{"placeholder": "binary_or_too_large", "size": size})
	return string(data)
}

func unhandledPlaceholder(detail string) string {
	data, _ := json.Marshal(map[string]any{"placeholder": "unhandled_exception", "detail": detail})
	return string(data)
}

// bodyRecorder keeps the first maxLoggedBodySize+1 bytes read by the handler
// and counts the rest.
type bodyRecorder struct {
	io.ReadCloser
	buf  bytes.Buffer
	size int64
}

func (b *bodyRecorder) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.size += int64(n)
		if room := maxLoggedBodySize + 1 - b.buf.Len(); room > 0 {
			b.buf.Write(p[:min(n, room)])
		}
	}
	return n, err
}

func (b *bodyRecorder) captured() []byte {
	return b.buf.Bytes()
}

// responseRecorder passes everything through and keeps a copy of small
// bodies. Event streams are never copied.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	streaming   bool
	buf         bytes.Buffer
	size        int64
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = code
	rw.streaming = strings.HasPrefix(strings.ToLower(rw.Header().Get("Content-Type")), "text/event-stream")
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(p []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(p)
	if n > 0 && !rw.streaming {
		rw.size += int64(n)
		if room := maxLoggedBodySize + 1 - rw.buf.Len(); room > 0 {
			rw.buf.Write(p[:min(n, room)])
		}
	}
	return n, err
}

func (rw *responseRecorder) Flush() {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseRecorder) loggedBody() string {
	if rw.streaming {
		return placeholderBody(0)
	}
	return formatBody(rw.buf.Bytes(), rw.size, rw.Header().Get("Content-Type"))
}
