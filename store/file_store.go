package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultFileName = "game_log.json"

// FileStore keeps the match log in one JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, export Export) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save log: %w", err)
		}
	}
	if err := writeJSON(s.path, export, 0o644); err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

// Load reads the stored log. A missing file yields an empty export.
func (s *FileStore) Load(_ context.Context) (Export, error) {
	var export Export
	found, err := readJSON(s.path, &export)
	if err != nil {
		return Export{}, fmt.Errorf("load log: %w", err)
	}
	if !found {
		return Export{}, nil
	}
	if export.LogEntries == nil {
		export.LogEntries = []string{}
	}
	return export, nil
}
