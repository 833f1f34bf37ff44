// Package redis provides an extraction cache held in a Redis hash, so several
// hosts can share skip-on-rerun state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// DefaultPrefix namespaces the cache key.
const DefaultPrefix = "qa-extract:"

// Options configures the Redis connection.
type Options struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// Prefix is prepended to the cache key (default "qa-extract:").
	Prefix string
}

// CacheStore keeps every cache entry as one field of a single hash.
type CacheStore struct {
	client *redis.Client
	key    string
	addr   string
}

// NewCacheStore connects to the Redis server named by opts.URL.
func NewCacheStore(opts Options) (*CacheStore, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CacheStore{
		client: redis.NewClient(redisOpts),
		key:    prefix + "extraction_cache",
		addr:   redisOpts.Addr,
	}, nil
}

// Load reads the whole hash. A missing key is an empty cache; a field that
// cannot be decoded makes the whole cache corrupt.
func (s *CacheStore) Load(ctx context.Context) (map[string]domain.CacheEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load cache from redis: %w", err)
	}

	entries := make(map[string]domain.CacheEntry, len(fields))
	for k, v := range fields {
		var entry domain.CacheEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, &domain.CacheCorruptError{Location: s.Location(), Err: fmt.Errorf("field %s: %w", k, err)}
		}
		entries[k] = entry
	}
	return entries, nil
}

// Save replaces the hash inside MULTI/EXEC so readers never see a partial cache.
func (s *CacheStore) Save(ctx context.Context, entries map[string]domain.CacheEntry) error {
	values := make(map[string]any, len(entries))
	for k, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode cache entry %s: %w", k, err)
		}
		values[k] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cache to redis: %w", err)
	}
	return nil
}

// Location returns "redis://{addr}/{key}".
func (s *CacheStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.addr, s.key)
}

// Close closes the client.
func (s *CacheStore) Close() error {
	return s.client.Close()
}
