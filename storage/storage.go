package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Scan is one stored NFC chip read.
type Scan struct {
	ScanID        string
	TsUTC         time.Time
	PassportJSON  string
	FaceImagePath string
}

// LLMLog records one call to the vision model.
type LLMLog struct {
	ID         string
	TsUTC      time.Time
	RequestID  string
	Model      string
	InputJSON  string
	OutputJSON string
	Success    bool
	Error      string
}

// RequestLog records one HTTP exchange.
type RequestLog struct {
	TsUTC         time.Time
	Method        string
	Path          string
	Query         string
	StatusCode    int
	DurationMs    int64
	ClientIP      string
	UserAgent     string
	ContentType   string
	ContentLength int64 // -1 when the client did not send the header
	Error         string
	RequestBody   string
	ResponseBody  string
}

// AppErrorLog is an error reported by a client application.
type AppErrorLog struct {
	TsUTC        string
	Platform     string
	AppVersion   string
	ErrorMessage string
	Stacktrace   string
	ContextJSON  string
	UserAgent    string
	DeviceInfo   string
	RequestID    string
}

// Store should be safe for concurrent use.
type Store interface {
	// SaveScan inserts a new scan, scan ids are unique.
	SaveScan(ctx context.Context, scan Scan) error

	// GetScan returns ErrNotFound when no scan has the given id.
	GetScan(ctx context.Context, scanID string) (Scan, error)

	SaveLLMLog(ctx context.Context, entry LLMLog) error

	SaveRequestLog(ctx context.Context, entry RequestLog) error

	// SaveAppErrorLog returns the id assigned to the stored entry.
	SaveAppErrorLog(ctx context.Context, entry AppErrorLog) (int64, error)

	Close() error
}
