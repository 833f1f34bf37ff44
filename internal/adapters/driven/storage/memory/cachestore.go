package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	saves   int
}

// NewCacheStore creates an empty in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{entries: make(map[string]domain.CacheEntry)}
}

// Load returns a copy of the stored entries.
func (s *CacheStore) Load(_ context.Context) (map[string]domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.CacheEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored entries.
func (s *CacheStore) Save(_ context.Context, entries map[string]domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]domain.CacheEntry, len(entries))
	for k, v := range entries {
		s.entries[k] = v
	}
	s.saves++
	return nil
}

// Location returns ":memory:".
func (s *CacheStore) Location() string {
	return ":memory:"
}

// Saves returns how many times Save was called.
func (s *CacheStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
