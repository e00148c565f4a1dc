package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS llm_logs (
		id TEXT PRIMARY KEY,
		ts_utc TEXT NOT NULL,
		request_id TEXT NOT NULL,
		model TEXT NOT NULL,
		input_json TEXT NOT NULL,
		output_json TEXT,
		success INTEGER NOT NULL,
		error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS nfc_scans (
		scan_id TEXT PRIMARY KEY,
		ts_utc TEXT NOT NULL,
		passport_json TEXT NOT NULL,
		face_image_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_request_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_utc TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		query TEXT,
		status_code INTEGER,
		duration_ms INTEGER,
		client_ip TEXT,
		user_agent TEXT,
		content_type TEXT,
		content_length INTEGER,
		error TEXT,
		request_body TEXT,
		response_body TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS app_error_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_utc TEXT NOT NULL,
		platform TEXT NOT NULL,
		app_version TEXT,
		error_message TEXT NOT NULL,
		stacktrace TEXT,
		context_json TEXT,
		user_agent TEXT,
		device_info TEXT,
		request_id TEXT
	)`,
}

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	slog.Info("Opened SQLite database", "path", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveScan(ctx context.Context, scan Scan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nfc_scans (scan_id, ts_utc, passport_json, face_image_path) VALUES (?, ?, ?, ?)`,
		scan.ScanID, formatTime(scan.TsUTC), scan.PassportJSON, scan.FaceImagePath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (Scan, error) {
	var (
		scan Scan
		ts   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT scan_id, ts_utc, passport_json, face_image_path FROM nfc_scans WHERE scan_id = ?`, scanID,
	).Scan(&scan.ScanID, &ts, &scan.PassportJSON, &scan.FaceImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, ErrNotFound
	}
	if err != nil {
		return Scan{}, fmt.Errorf("failed to query scan: %w", err)
	}
	scan.TsUTC, _ = time.Parse(time.RFC3339Nano, ts)
	return scan, nil
}

func (s *SQLiteStore) SaveLLMLog(ctx context.Context, entry LLMLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_logs (id, ts_utc, request_id, model, input_json, output_json, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, formatTime(entry.TsUTC), entry.RequestID, entry.Model, entry.InputJSON,
		nullString(entry.OutputJSON), entry.Success, nullString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert llm log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveRequestLog(ctx context.Context, entry RequestLog) error {
	var contentLength sql.NullInt64
	if entry.ContentLength >= 0 {
		contentLength = sql.NullInt64{Int64: entry.ContentLength, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_request_logs (
			ts_utc, method, path, query, status_code, duration_ms, client_ip, user_agent,
			content_type, content_length, error, request_body, response_body
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(entry.TsUTC), entry.Method, entry.Path, entry.Query, entry.StatusCode, entry.DurationMs,
		nullString(entry.ClientIP), nullString(entry.UserAgent), nullString(entry.ContentType), contentLength,
		nullString(entry.Error), entry.RequestBody, entry.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveAppErrorLog(ctx context.Context, entry AppErrorLog) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO app_error_logs (
			ts_utc, platform, app_version, error_message, stacktrace, context_json, user_agent, device_info, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TsUTC, entry.Platform, nullString(entry.AppVersion), entry.ErrorMessage, nullString(entry.Stacktrace),
		nullString(entry.ContextJSON), nullString(entry.UserAgent), nullString(entry.DeviceInfo), nullString(entry.RequestID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert app error log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read app error log id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
