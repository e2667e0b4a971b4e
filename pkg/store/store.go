// Package store persists the companion's long-lived state (mood and
// personality) on top of a small key-value interface with memory, JSON file
// and PostgreSQL backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-companion/pkg/affect"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: not found")

// Well-known keys.
const (
	KeyMood        = "mood"
	KeyPersonality = "personality"
)

// KV is a minimal key-value store holding JSON documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Repository maps the companion's state types onto KV keys.
type Repository struct {
	kv KV
}

// NewRepository wraps kv.
func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// LoadMood returns the saved mood, or ErrNotFound.
func (r *Repository) LoadMood(ctx context.Context) (affect.Mood, error) {
	var m affect.Mood
	if err := r.load(ctx, KeyMood, &m); err != nil {
		return affect.Mood{}, err
	}
	return affect.NewMood(m.Mood, m.Energy, m.Trust), nil
}

// SaveMood writes the mood.
func (r *Repository) SaveMood(ctx context.Context, m affect.Mood) error {
	return r.save(ctx, KeyMood, m)
}

// LoadPersonality returns the saved personality, or ErrNotFound.
func (r *Repository) LoadPersonality(ctx context.Context) (affect.Personality, error) {
	var p affect.Personality
	if err := r.load(ctx, KeyPersonality, &p); err != nil {
		return affect.Personality{}, err
	}
	return p.Clamped(), nil
}

// SavePersonality writes the personality.
func (r *Repository) SavePersonality(ctx context.Context, p affect.Personality) error {
	return r.save(ctx, KeyPersonality, p)
}

func (r *Repository) load(ctx context.Context, key string, v any) error {
	data, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return r.kv.Put(ctx, key, data)
}

// Memory is an in-process KV, used by tests and the simulate command.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
