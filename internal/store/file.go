package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists each collection as a JSON document inside a single
// directory. Writes go through a temp file plus rename so readers observe
// either the prior document or the new one, never a partial write.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(_ context.Context, collection string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, documentName(collection)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", collection, err)
	}
	decodeCollection(data, out)
	return nil
}

func (s *FileStore) Save(_ context.Context, collection string, records any) error {
	data, err := encodeCollection(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, documentName(collection)+".*")
	if err != nil {
		return fmt.Errorf("store: stage %s: %w", collection, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: stage %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: stage %s: %w", collection, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: stage %s: %w", collection, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, documentName(collection))); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: write %s: %w", collection, err)
	}
	return nil
}
