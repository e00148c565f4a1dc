package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps everything in process memory. Used with storage_type "memory".
type MemoryStore struct {
	mutex       sync.Mutex
	scans       map[string]Scan
	llmLogs     []LLMLog
	requestLogs []RequestLog
	appErrors   []AppErrorLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scans: make(map[string]Scan)}
}

func (s *MemoryStore) SaveScan(_ context.Context, scan Scan) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.scans[scan.ScanID]; ok {
		return fmt.Errorf("scan %s already exists", scan.ScanID)
	}
	s.scans[scan.ScanID] = scan
	return nil
}

func (s *MemoryStore) GetScan(_ context.Context, scanID string) (Scan, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if scan, ok := s.scans[scanID]; ok {
		return scan, nil
	}
	return Scan{}, ErrNotFound
}

func (s *MemoryStore) SaveLLMLog(_ context.Context, entry LLMLog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.llmLogs = append(s.llmLogs, entry)
	return nil
}

func (s *MemoryStore) SaveRequestLog(_ context.Context, entry RequestLog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.requestLogs = append(s.requestLogs, entry)
	return nil
}

func (s *MemoryStore) SaveAppErrorLog(_ context.Context, entry AppErrorLog) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.appErrors = append(s.appErrors, entry)
	return int64(len(s.appErrors)), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) LLMLogs() []LLMLog {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]LLMLog(nil), s.llmLogs...)
}

func (s *MemoryStore) RequestLogs() []RequestLog {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]RequestLog(nil), s.requestLogs...)
}

func (s *MemoryStore) AppErrorLogs() []AppErrorLog {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]AppErrorLog(nil), s.appErrors...)
}
