package domain

import "strings"

// CacheEntry is the persisted generation result for one entity.
// Replaying an entry must reproduce its records exactly.
type CacheEntry struct {
	Fingerprint string           `json:"fingerprint"`
	Records     []TrainingRecord `json:"records"`
}

// CacheKey returns the cache key for an entity, "{domain}:{entity_id}".
func CacheKey(domain, entityID string) string {
	return domain + ":" + entityID
}

// SplitCacheKey reverses CacheKey. Entity ids may themselves contain ':'.
func SplitCacheKey(key string) (domain, entityID string, ok bool) {
	domain, entityID, ok = strings.Cut(key, ":")
	if !ok || domain == "" || entityID == "" {
		return "", "", false
	}
	return domain, entityID, true
}

// CacheStats are the cache counters for one process run.
type CacheStats struct {
	Hits    int
	Misses  int
	Entries int

	// ByDomain counts stored entries per domain.
	ByDomain map[string]int
}
