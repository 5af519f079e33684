// Package storage provides local-disk persistence for engine
// artifacts: exported timetables and the substitution-load ledger.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalStorage persists files on disk under a base directory. Writes
// go through a temp-file-then-rename sequence so a concurrent reader
// always observes either the pre- or post-write bytes, never a torn
// file.
type LocalStorage struct {
	baseDir string
	mu      sync.Mutex
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveAtomic writes data to filename via a same-directory temp file
// followed by os.Rename, which POSIX guarantees is atomic within one
// filesystem. The in-process mutex serialises concurrent callers so
// two writers in the same binary never interleave temp files.
func (s *LocalStorage) SaveAtomic(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into place: %w", err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path := s.resolve(filename)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, nil
}

// ReadFile returns the full contents of a stored file, or
// os.ErrNotExist if it is missing.
func (s *LocalStorage) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(s.resolve(filename))
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path := s.resolve(filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

// Path exposes the resolved on-disk path (useful for debugging); it is
// relative when the base directory is.
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}
