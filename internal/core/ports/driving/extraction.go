package driving

import (
	"context"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// ExtractionService runs the extraction pipeline over one or more domains.
type ExtractionService interface {
	// Run extracts records for the requested domains and returns the run summary.
	// A cancelled context stops new work but the cache is still saved.
	Run(ctx context.Context, req RunRequest) (*domain.RunSummary, error)
}

// RunRequest selects what an extraction run does.
type RunRequest struct {
	// Domains to extract; empty means every configured domain.
	Domains []string

	// Push runs entity-replace against the review store for fresh records.
	Push bool

	// WriteOutput writes one JSONL stream per domain.
	WriteOutput bool
}

// PushService publishes records to the review store with entity-replace semantics.
type PushService interface {
	// Push groups records by domain and synchronises each domain.
	Push(ctx context.Context, records []domain.TrainingRecord) ([]domain.SyncReport, error)
}

// CacheService reports on the extraction cache.
type CacheService interface {
	// Stats loads the cache and returns its counters.
	Stats(ctx context.Context) (domain.CacheStats, error)
}

// ReportService summarises and validates record streams.
type ReportService interface {
	// Report breaks records down by domain, granularity, complexity and decision.
	Report(records []domain.TrainingRecord) domain.RecordReport

	// ValidateCitations checks every record's citation marker against its source ref.
	ValidateCitations(records []domain.TrainingRecord) domain.CitationReport
}
