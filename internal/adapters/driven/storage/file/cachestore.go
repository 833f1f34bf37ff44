package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

var (
	_ driven.CacheStore  = (*CacheStore)(nil)
	_ driven.CacheLocker = (*CacheStore)(nil)
)

// CacheFileName is the cache file created inside the output directory.
const CacheFileName = ".extraction_cache.json"

// CacheStore keeps the extraction cache as one JSON object keyed by
// "{domain}:{entity_id}".
type CacheStore struct {
	path string
	lock *flock.Flock
}

// NewCacheStore creates a cache store at {dir}/.extraction_cache.json.
func NewCacheStore(dir string) *CacheStore {
	return NewCacheStoreAt(filepath.Join(dir, CacheFileName))
}

// NewCacheStoreAt creates a cache store at an explicit path.
func NewCacheStoreAt(path string) *CacheStore {
	return &CacheStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads every entry. A missing file is an empty cache.
func (s *CacheStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.CacheEntry{}, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}

	var entries map[string]domain.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &domain.CacheCorruptError{Location: s.path, Err: err}
	}
	if entries == nil {
		entries = map[string]domain.CacheEntry{}
	}
	return entries, nil
}

// Lock takes the cache lock for a whole run. Another process holding it
// yields domain.ErrCacheLocked.
func (s *CacheStore) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return domain.ErrCacheLocked
	}
	return nil
}

// Unlock releases a lock taken by Lock. It is a no-op when not held.
func (s *CacheStore) Unlock() error {
	if !s.lock.Locked() {
		return nil
	}
	return s.lock.Unlock()
}

// Save replaces the cache file. When Lock is already held the write happens
// under it; otherwise the lock is taken for the write alone and a concurrent
// holder yields domain.ErrCacheLocked.
func (s *CacheStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = map[string]domain.CacheEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if !s.lock.Locked() {
		if err := s.Lock(); err != nil {
			return err
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

// Location returns the cache file path.
func (s *CacheStore) Location() string {
	return s.path
}
