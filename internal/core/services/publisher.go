package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

// Ensure Publisher implements the interface.
var _ driving.PushService = (*Publisher)(nil)

// Publisher pushes previously written records to the review store with
// entity-replace semantics.
type Publisher struct {
	store driven.ReviewStore
	sync  *ReplaceSync
}

// NewPublisher creates a publisher for store.
func NewPublisher(store driven.ReviewStore) *Publisher {
	return &Publisher{store: store, sync: NewReplaceSync()}
}

// Push groups records by domain, in first-appearance order, and syncs each.
// Per-source-ref failures are reported, not returned.
func (p *Publisher) Push(ctx context.Context, records []domain.TrainingRecord) ([]domain.SyncReport, error) {
	if p.store == nil {
		return nil, fmt.Errorf("push: %w: no review store configured", domain.ErrInvalidInput)
	}

	byDomain := make(map[string][]domain.TrainingRecord)
	var order []string
	for _, r := range records {
		if _, ok := byDomain[r.Domain]; !ok {
			order = append(order, r.Domain)
		}
		byDomain[r.Domain] = append(byDomain[r.Domain], r)
	}

	reports := make([]domain.SyncReport, 0, len(order))
	for _, name := range order {
		reports = append(reports, p.sync.Sync(ctx, name, byDomain[name], p.store))
	}
	return reports, nil
}

// Ensure CacheReporter implements the interface.
var _ driving.CacheService = (*CacheReporter)(nil)

// CacheReporter reports on a persisted extraction cache.
type CacheReporter struct {
	store driven.CacheStore
}

// NewCacheReporter creates a cache reporter for store.
func NewCacheReporter(store driven.CacheStore) *CacheReporter {
	return &CacheReporter{store: store}
}

// Stats loads the cache and returns its entry counts.
func (c *CacheReporter) Stats(ctx context.Context) (domain.CacheStats, error) {
	cache, err := LoadExtractionCache(ctx, c.store)
	if err != nil {
		return domain.CacheStats{}, err
	}
	return cache.Stats(), nil
}
