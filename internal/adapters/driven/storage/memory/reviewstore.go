package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure ReviewStore implements the interface.
var _ driven.ReviewStore = (*ReviewStore)(nil)

// ReviewStore is an in-memory implementation of driven.ReviewStore.
// Live items keep insertion order so queries are deterministic.
type ReviewStore struct {
	mu       sync.RWMutex
	items    map[string]domain.ReviewItem
	order    []string
	byRecord map[string]string
	archive  []domain.ArchiveRecord
}

// NewReviewStore creates a new in-memory review store.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{
		items:    make(map[string]domain.ReviewItem),
		byRecord: make(map[string]string),
	}
}

// QueryBySourceRef returns live items whose record has the given source ref.
func (s *ReviewStore) QueryBySourceRef(_ context.Context, sourceRef string) ([]domain.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ReviewItem
	for _, id := range s.order {
		item := s.items[id]
		if item.Record.SourceRef == sourceRef {
			out = append(out, item)
		}
	}
	return out, nil
}

// DeleteByIDs removes live items. Unknown ids are ignored.
func (s *ReviewStore) DeleteByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		item, ok := s.items[id]
		if !ok {
			continue
		}
		drop[id] = true
		delete(s.byRecord, item.Record.ID)
		delete(s.items, id)
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return nil
}

// Push upserts live items by record id. Existing responses are kept.
func (s *ReviewStore) Push(_ context.Context, records []domain.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if id, ok := s.byRecord[r.ID]; ok {
			item := s.items[id]
			item.Record = r
			s.items[id] = item
			continue
		}
		id := uuid.New().String()
		s.items[id] = domain.ReviewItem{ID: id, Record: r}
		s.byRecord[r.ID] = id
		s.order = append(s.order, id)
	}
	return nil
}

// Archive appends to the archive collection.
func (s *ReviewStore) Archive(_ context.Context, records []domain.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = append(s.archive, records...)
	return nil
}

// Respond attaches a reviewer response to the live item holding recordID.
func (s *ReviewStore) Respond(recordID string, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRecord[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	item := s.items[id]
	item.Responses = append(item.Responses, resp)
	s.items[id] = item
	return nil
}

// Live returns every live item in insertion order.
func (s *ReviewStore) Live() []domain.ReviewItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ReviewItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Archived returns the archive collection.
func (s *ReviewStore) Archived() []domain.ArchiveRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ArchiveRecord(nil), s.archive...)
}
