// Package memory is an in-process snapshot.Store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/sketchbook/internal/snapshot"
)

// Store implements snapshot.Store in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ snapshot.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save stores an encoded copy so later edits to cp do not leak in.
func (s *Store) Save(ctx context.Context, cp snapshot.Checkpoint) error {
	encoded, err := snapshot.Encode(cp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cp.SessionID] = encoded
	return nil
}

// Load decodes a fresh copy of the stored checkpoint.
func (s *Store) Load(ctx context.Context, sessionID string) (snapshot.Checkpoint, error) {
	s.mu.RLock()
	encoded, ok := s.data[sessionID]
	s.mu.RUnlock()

	if !ok {
		return snapshot.Checkpoint{}, fmt.Errorf("load %s: %w", sessionID, snapshot.ErrNotFound)
	}
	return snapshot.Decode(encoded)
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session ids in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
