package driven

import (
	"context"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// CacheStore persists the extraction cache as a whole.
// The cache is loaded once per run and saved once at the end.
type CacheStore interface {
	// Load returns every stored entry keyed by domain.CacheKey.
	// A missing store yields an empty map. A store that exists but cannot be
	// parsed yields a *domain.CacheCorruptError.
	Load(ctx context.Context) (map[string]domain.CacheEntry, error)

	// Save atomically replaces the stored cache with entries.
	// A failed save must leave the previous contents intact.
	Save(ctx context.Context, entries map[string]domain.CacheEntry) error

	// Location describes where the cache lives, for logs.
	Location() string
}

// CacheLocker is implemented by cache stores that can be held exclusively
// from Load to Save, so overlapping runs cannot drop each other's entries.
type CacheLocker interface {
	// Lock takes the lock without blocking. It returns domain.ErrCacheLocked
	// when another holder has it.
	Lock() error
	Unlock() error
}

// ReviewStore is the downstream review platform holding published records.
// The core never assumes exclusive access: deletes tolerate missing ids and
// pushes upsert by record id.
type ReviewStore interface {
	// QueryBySourceRef returns live items whose record has the given source ref.
	QueryBySourceRef(ctx context.Context, sourceRef string) ([]domain.ReviewItem, error)

	// DeleteByIDs removes live items by review-store id. Unknown ids are ignored.
	DeleteByIDs(ctx context.Context, ids []string) error

	// Push adds or replaces live items for records.
	Push(ctx context.Context, records []domain.TrainingRecord) error

	// Archive appends records to the archive collection.
	Archive(ctx context.Context, records []domain.ArchiveRecord) error
}

// RecordWriter persists records as one line-delimited JSON stream per domain.
type RecordWriter interface {
	// Write replaces the stream for domain with records and returns its location.
	Write(ctx context.Context, domain string, records []domain.TrainingRecord) (string, error)
}

// RecordReader loads records from a line-delimited JSON stream.
type RecordReader interface {
	// Read returns every record in the stream at path, in order.
	Read(ctx context.Context, path string) ([]domain.TrainingRecord, error)
}

// ProjectionWriter persists the raw projections of a run, keyed by domain.
// Writers that do not support projections simply do not implement it.
type ProjectionWriter interface {
	WriteProjections(ctx context.Context, projections map[string][]map[string]any) (string, error)
}
