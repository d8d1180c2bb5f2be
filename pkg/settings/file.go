package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// DefaultFileName is the settings file under the user's XDG config home.
const DefaultFileName = "boncuk/settings.json"

// DefaultFilePath returns $XDG_CONFIG_HOME/boncuk/settings.json, creating
// the parent directory.
func DefaultFilePath() (string, error) {
	return xdg.ConfigFile(DefaultFileName)
}

// FileStore keeps settings in a JSON object on disk. Every mutation rewrites
// the file atomically.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// OpenFile loads path, or starts empty if it does not exist. An empty path
// uses DefaultFilePath.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, fmt.Errorf("settings: resolve path: %w", err)
		}
		path = p
	}
	s := &FileStore{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("settings: parse %s: %w", path, err)
		}
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.persistLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.persistLocked(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("settings: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("settings: replace %s: %w", s.path, err)
	}
	return nil
}
