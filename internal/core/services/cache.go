package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// ExtractionCache maps (domain, entity id) to the fingerprint and records of
// the last generation. It is loaded once, mutated in memory, and saved once.
//
// Reads may run concurrently; writes are serialised.
type ExtractionCache struct {
	store driven.CacheStore

	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
	hits    int
	misses  int
}

// NewExtractionCache creates an empty cache backed by store.
// A nil store gives a cache that is never persisted.
func NewExtractionCache(store driven.CacheStore) *ExtractionCache {
	return &ExtractionCache{
		store:   store,
		entries: make(map[string]domain.CacheEntry),
	}
}

// LoadExtractionCache loads the cache from store.
//
// If the store holds data that cannot be parsed, the returned cache is empty
// and usable, and the error is a *domain.CacheCorruptError. Every entity is
// then regenerated for this run. Other load errors return a nil cache.
func LoadExtractionCache(ctx context.Context, store driven.CacheStore) (*ExtractionCache, error) {
	c := NewExtractionCache(store)
	if store == nil {
		return c, nil
	}

	entries, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCacheCorrupt) {
			logger.Error("Extraction cache at %s is corrupt, regenerating every entity: %v",
				store.Location(), err)
			return c, err
		}
		return nil, fmt.Errorf("load cache: %w", err)
	}

	for key, entry := range entries {
		c.entries[key] = entry
	}
	logger.Debug("Loaded %d cache entries from %s", len(c.entries), store.Location())
	return c, nil
}

// LoadLockedExtractionCache is LoadExtractionCache for a run that will Save. When
// store implements driven.CacheLocker the lock is taken before loading and
// held until the returned release is called. Load errors are reported as by
// LoadExtractionCache; on a non-corrupt error the lock is already released.
func LoadLockedExtractionCache(ctx context.Context, store driven.CacheStore) (*ExtractionCache, func() error, error) {
	release := func() error { return nil }
	if locker, ok := store.(driven.CacheLocker); ok {
		if err := locker.Lock(); err != nil {
			return nil, release, fmt.Errorf("lock cache %s: %w", store.Location(), err)
		}
		release = locker.Unlock
	}

	c, err := LoadExtractionCache(ctx, store)
	if c == nil {
		_ = release()
		return nil, func() error { return nil }, err
	}
	return c, release, err
}

// IsUnchanged reports whether an entry exists for (domainName, entityID)
// whose fingerprint equals fingerprint. It updates hit and miss counters.
func (c *ExtractionCache) IsUnchanged(domainName, entityID, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[domain.CacheKey(domainName, entityID)]
	if ok && entry.Fingerprint == fingerprint {
		c.hits++
		return true
	}
	c.misses++
	return false
}

// CachedRecords returns the stored records for (domainName, entityID), or nil.
// It does not check freshness; call IsUnchanged first.
func (c *ExtractionCache) CachedRecords(domainName, entityID string) []domain.TrainingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain.CacheKey(domainName, entityID)]
	if !ok {
		return nil
	}
	return append([]domain.TrainingRecord(nil), entry.Records...)
}

// Store upserts the entry for (domainName, entityID). It is held in memory
// until Save.
func (c *ExtractionCache) Store(domainName, entityID, fingerprint string, records []domain.TrainingRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[domain.CacheKey(domainName, entityID)] = domain.CacheEntry{
		Fingerprint: fingerprint,
		Records:     append([]domain.TrainingRecord(nil), records...),
	}
}

// Save persists the full cache through the store in one atomic replace.
func (c *ExtractionCache) Save(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.mu.RLock()
	snapshot := make(map[string]domain.CacheEntry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	logger.Debug("Saved %d cache entries to %s", len(snapshot), c.store.Location())
	return nil
}

// Len returns the number of entries.
func (c *ExtractionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the counters for this process run.
func (c *ExtractionCache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsFor(c.entries, c.hits, c.misses)
}

func statsFor(entries map[string]domain.CacheEntry, hits, misses int) domain.CacheStats {
	byDomain := make(map[string]int)
	for key := range entries {
		if d, _, ok := domain.SplitCacheKey(key); ok {
			byDomain[d]++
		}
	}
	return domain.CacheStats{
		Hits:     hits,
		Misses:   misses,
		Entries:  len(entries),
		ByDomain: byDomain,
	}
}
