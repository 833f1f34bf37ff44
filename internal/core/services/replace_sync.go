package services

import (
	"context"
	"time"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// ReplaceSync makes a review store's live records for a domain match a fresh
// batch using entity-replace: every existing item for a changed source ref is
// deleted and the fresh records are pushed. Annotated items are archived first.
type ReplaceSync struct {
	now func() time.Time
}

// NewReplaceSync creates a replace-sync.
func NewReplaceSync() *ReplaceSync {
	return &ReplaceSync{now: time.Now}
}

// Sync synchronises records for domainName against store.
//
// A failure for one source ref is recorded in the report and the remaining
// source refs are still processed. If archiving fails, that source ref is
// neither deleted nor pushed so no annotation is lost.
func (s *ReplaceSync) Sync(
	ctx context.Context,
	domainName string,
	records []domain.TrainingRecord,
	store driven.ReviewStore,
) domain.SyncReport {
	groups, order := groupBySourceRef(records)
	report := domain.SyncReport{Domain: domainName, SourceRefs: len(order)}

	for _, ref := range order {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, domain.SyncFailure{SourceRef: ref, Op: domain.SyncOpQuery, Err: err})
			continue
		}
		s.syncRef(ctx, ref, groups[ref], store, &report)
	}

	if report.OK() {
		logger.Info("Synced %s: %d source refs, %d pushed, %d deleted, %d archived",
			domainName, report.SourceRefs, report.Pushed, report.Deleted, report.Archived)
	} else {
		logger.Warn("Synced %s with %d failures", domainName, len(report.Failures))
	}
	return report
}

func (s *ReplaceSync) syncRef(
	ctx context.Context,
	ref string,
	fresh []domain.TrainingRecord,
	store driven.ReviewStore,
	report *domain.SyncReport,
) {
	// 1. Find what the store currently holds for this entity
	existing, err := store.QueryBySourceRef(ctx, ref)
	if err != nil {
		report.Failures = append(report.Failures, domain.SyncFailure{SourceRef: ref, Op: domain.SyncOpQuery, Err: err})
		return
	}

	// 2. Archive annotated items before anything is deleted
	archived := make([]domain.ArchiveRecord, 0, len(existing))
	ids := make([]string, 0, len(existing))
	at := s.now()
	for _, item := range existing {
		ids = append(ids, item.ID)
		if item.IsAnnotated() {
			archived = append(archived, domain.NewArchiveRecord(item, domain.ArchiveReasonSourceDataChanged, at))
		}
	}
	if len(archived) > 0 {
		if err := store.Archive(ctx, archived); err != nil {
			report.Failures = append(report.Failures, domain.SyncFailure{SourceRef: ref, Op: domain.SyncOpArchive, Err: err})
			return
		}
		report.Archived += len(archived)
	}

	// 3. Delete every live item for the entity
	if len(ids) > 0 {
		if err := store.DeleteByIDs(ctx, ids); err != nil {
			report.Failures = append(report.Failures, domain.SyncFailure{SourceRef: ref, Op: domain.SyncOpDelete, Err: err})
			return
		}
		report.Deleted += len(ids)
	}

	// 4. Push the fresh records
	if err := store.Push(ctx, fresh); err != nil {
		report.Failures = append(report.Failures, domain.SyncFailure{SourceRef: ref, Op: domain.SyncOpPush, Err: err})
		return
	}
	report.Pushed += len(fresh)
	logger.Debug("Replaced %s: %d deleted, %d archived, %d pushed", ref, len(ids), len(archived), len(fresh))
}

// groupBySourceRef groups records by source ref, keeping first-appearance order.
func groupBySourceRef(records []domain.TrainingRecord) (map[string][]domain.TrainingRecord, []string) {
	groups := make(map[string][]domain.TrainingRecord)
	var order []string
	for _, r := range records {
		if _, ok := groups[r.SourceRef]; !ok {
			order = append(order, r.SourceRef)
		}
		groups[r.SourceRef] = append(groups[r.SourceRef], r)
	}
	return groups, order
}
