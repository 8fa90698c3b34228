// Package memory provides an in-process ContextStore, the default backend
// for tests and single-binary deployments.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ketram/parley/pkg/domain"
)

// Store implements ports.ContextStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists a serialized snapshot of the context, so later mutations by
// the caller cannot reach the stored copy.
func (s *Store) Save(ctx context.Context, id string, dc *domain.Context) error {
	raw, err := json.Marshal(dc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = raw
	return nil
}

// Load retrieves the context for an ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Context, error) {
	s.mu.RLock()
	raw, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrContextNotFound
	}

	var dc domain.Context
	if err := json.Unmarshal(raw, &dc); err != nil {
		return nil, err
	}
	return &dc, nil
}

// Delete removes the context for an ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the IDs of all stored contexts.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
