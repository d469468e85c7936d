package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStorage keeps uploaded files below a single root directory.
// Names that resolve outside the root are refused by the underlying BasePathFs.
type LocalStorage struct {
	root string
	fs   afero.Fs
}

// NewLocalStorage creates the root directory when missing.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: abs, fs: afero.NewBasePathFs(afero.NewOsFs(), abs)}, nil
}

// NewMemStorage is an in-memory LocalStorage, used in tests and dry runs.
func NewMemStorage(root string) *LocalStorage {
	return &LocalStorage{root: root, fs: afero.NewMemMapFs()}
}

// SaveStream copies r into name. A partially written file is removed on failure.
func (s *LocalStorage) SaveStream(name string, r io.Reader) (string, error) {
	if dir := filepath.Dir(name); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("prepare directory for %s: %w", name, err)
		}
	}
	file, err := s.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", name, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("write file %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("close file %s: %w", name, err)
	}
	return name, nil
}

// ReadFile loads the whole file into memory.
func (s *LocalStorage) ReadFile(name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether name is a regular file in storage.
func (s *LocalStorage) Exists(name string) bool {
	info, err := s.fs.Stat(name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Path exposes the absolute location of name (useful for debugging).
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.root, name)
}
