package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONFile implements KV using a single JSON file for persistence.
// Every write rewrites the whole file atomically.
type JSONFile struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// fileData is the on-disk layout.
type fileData struct {
	Version   int                        `json:"version"`
	UpdatedAt string                     `json:"updated_at"`
	Entries   map[string]json.RawMessage `json:"entries"`
}

const currentVersion = 1

// NewJSONFile opens the store at path. A missing file is created on first write.
func NewJSONFile(path string) (*JSONFile, error) {
	s := &JSONFile{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}
	return s, nil
}

// DefaultPath is ~/.companion/state.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".companion", "state.json"), nil
}

func (s *JSONFile) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	var stored fileData
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if stored.Entries != nil {
		s.data = stored.Entries
	}
	return nil
}

// save writes the file; callers hold the write lock.
func (s *JSONFile) save() error {
	stored := fileData{
		Version:   currentVersion,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:   s.data,
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get returns the stored document for key.
func (s *JSONFile) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

// Put stores a JSON document under key and flushes the file.
func (s *JSONFile) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("store: value for %s is not valid JSON", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append(json.RawMessage(nil), value...)
	return s.save()
}

// Delete removes key and flushes the file.
func (s *JSONFile) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

// Path returns the backing file path.
func (s *JSONFile) Path() string { return s.path }
