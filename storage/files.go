package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps face images as <dir>/<scan_id>_face.jpg.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create files directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) FacePath(scanID string) string {
	return filepath.Join(f.dir, scanID+"_face.jpg")
}

// SaveFace writes the image through a temporary file so readers never see a partial image.
func (f *FileStore) SaveFace(scanID string, data []byte) (string, error) {
	path := f.FacePath(scanID)
	tmp, err := os.CreateTemp(f.dir, scanID+"_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create face image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write face image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close face image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move face image into place: %w", err)
	}
	return path, nil
}

// ReadFace returns ErrNotFound when no image was stored for the scan.
func (f *FileStore) ReadFace(scanID string) ([]byte, error) {
	data, err := os.ReadFile(f.FacePath(scanID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read face image: %w", err)
	}
	return data, nil
}

func (f *FileStore) RemoveFace(scanID string) error {
	err := os.Remove(f.FacePath(scanID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove face image: %w", err)
	}
	return nil
}
