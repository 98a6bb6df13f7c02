package progstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/strmhost/iris/internal/achievement"
)

// FileStore persists progress as one JSON document. Saves go through a
// temporary file and an atomic rename so a crash mid-write never corrupts
// the previous checkpoint.
type FileStore struct {
	path string
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the progress document. A missing file yields [ErrNotFound]; a
// present but undecodable file yields a wrapped error so the caller can log
// it and start fresh.
func (s *FileStore) Load(_ context.Context) (achievement.Progress, error) {
	var p achievement.Progress

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, ErrNotFound
		}
		return p, fmt.Errorf("progstore: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return achievement.Progress{}, fmt.Errorf("progstore: decode %s: %w", s.path, err)
	}
	return p, nil
}

// Save writes the progress document atomically.
func (s *FileStore) Save(_ context.Context, p achievement.Progress) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("progstore: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("progstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("progstore: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("progstore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("progstore: rename to %s: %w", s.path, err)
	}
	return nil
}
