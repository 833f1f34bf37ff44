package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

// captureWriter records what a run writes.
type captureWriter struct {
	mu          sync.Mutex
	streams     map[string][]domain.TrainingRecord
	projections map[string][]map[string]any
	failWith    error
}

func (w *captureWriter) Write(_ context.Context, d string, records []domain.TrainingRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return "", w.failWith
	}
	if w.streams == nil {
		w.streams = map[string][]domain.TrainingRecord{}
	}
	w.streams[d] = records
	return d + "_qa_pairs.jsonl", nil
}

func (w *captureWriter) WriteProjections(_ context.Context, p map[string][]map[string]any) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projections = p
	return "raw_projections.json", nil
}

type runnerFixture struct {
	model  *countingModel
	cache  *ExtractionCache
	store  *memory.CacheStore
	review *memory.ReviewStore
	writer *captureWriter
}

func ranchRaw() domain.RawEntity {
	return domain.RawEntity{"id": "ranch", "name": "Ranch", "resource_type": "storage", "organization_names": []string{"TACC"}}
}

func deltaRaw() domain.RawEntity {
	return domain.RawEntity{"id": "delta", "name": "Delta", "resource_type": "compute", "organization_names": []string{"NCSA"}}
}

func newRunnerFixture() *runnerFixture {
	f := &runnerFixture{
		model: &countingModel{reply: func(_, user string) (string, error) {
			if strings.Contains(user, "Entity ID: delta") {
				return `[{"question":"What is Delta?","answer":"Delta is a GPU system. <<SRC:compute-resources:delta>>"}]`, nil
			}
			return ranchReply, nil
		}},
		store:  memory.NewCacheStore(),
		review: memory.NewReviewStore(),
		writer: &captureWriter{},
	}
	f.cache = NewExtractionCache(f.store)
	return f
}

func (f *runnerFixture) runner(settings domain.ExtractionSettings, sources ...driven.EntitySource) *Runner {
	pipeline := NewEntityPipeline(f.cache, NewFreeformGenerator(nil, 0), NewTemplateGenerator(ranchTemplates()), nil,
		PipelineConfig{Model: f.model, MaxTokens: 256, ModelTimeout: time.Second, Incremental: true})
	return NewRunner(sources, pipeline, f.cache, RunnerOptions{
		Review:   f.review,
		Writer:   f.writer,
		Settings: settings,
	})
}

func computeSource(raws ...domain.RawEntity) *fakeSource {
	return &fakeSource{domainName: domain.DomainComputeResources, raws: raws}
}

func TestRunner_RunWritesAndSaves(t *testing.T) {
	f := newRunnerFixture()
	r := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw(), deltaRaw()))

	summary, err := r.Run(context.Background(), driving.RunRequest{WriteOutput: true})
	require.NoError(t, err)

	require.Len(t, summary.Domains, 1)
	d := summary.Domains[0]
	assert.Equal(t, 2, d.Fetched)
	assert.Equal(t, 2, d.Generated)
	assert.Zero(t, d.CacheHits)
	assert.Equal(t, 2, d.Records[domain.GranularityComprehensive])
	assert.Equal(t, 4, d.Records[domain.GranularityFactoid])
	assert.True(t, summary.Succeeded())
	assert.NotEmpty(t, summary.RunID)

	// Fetch order is preserved in the written stream.
	stream := f.writer.streams[domain.DomainComputeResources]
	require.Len(t, stream, 6)
	assert.Equal(t, "compute-resources_ranch_1", stream[0].ID)
	assert.Equal(t, "compute-resources_delta_1", stream[3].ID)
	assert.Len(t, f.writer.projections[domain.DomainComputeResources], 2)

	assert.Equal(t, 1, f.store.Saves())
	assert.Equal(t, 2, summary.Cache.Entries)
}

func TestRunner_UnchangedEntityNeverReachesReplaceSync(t *testing.T) {
	f := newRunnerFixture()
	ctx := context.Background()
	ranchRef := domain.SourceRef(domain.DomainComputeResources, "ranch")

	// First run publishes Ranch, then a reviewer annotates it.
	_, err := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw())).
		Run(ctx, driving.RunRequest{Push: true})
	require.NoError(t, err)
	require.NoError(t, f.review.Respond("compute-resources_ranch_1", domain.Response{
		UserID: "reviewer",
		Status: domain.ResponseSubmitted,
		Values: map[string]string{domain.ResponseEditedAnswer: "Ranch is TACC's archival storage system."},
	}))
	before, err := f.review.QueryBySourceRef(ctx, ranchRef)
	require.NoError(t, err)

	// Second run: Ranch is unchanged, Delta is new.
	summary, err := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw(), deltaRaw())).
		Run(ctx, driving.RunRequest{Push: true})
	require.NoError(t, err)

	d := summary.Domains[0]
	assert.Equal(t, 1, d.CacheHits)
	assert.Equal(t, 1, d.Generated)
	require.NotNil(t, d.Sync)
	assert.Equal(t, 1, d.Sync.SourceRefs, "only the fresh entity is synced")

	after, err := f.review.QueryBySourceRef(ctx, ranchRef)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.review.Archived())
}

func TestRunner_ChangedEntityArchivesAnnotations(t *testing.T) {
	f := newRunnerFixture()
	ctx := context.Background()

	_, err := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw())).
		Run(ctx, driving.RunRequest{Push: true})
	require.NoError(t, err)
	require.NoError(t, f.review.Respond("compute-resources_ranch_1", domain.Response{
		UserID: "reviewer",
		Status: domain.ResponseSubmitted,
	}))

	changed := ranchRaw()
	changed["organization_names"] = []string{"TACC", "UT Austin"}
	summary, err := f.runner(domain.DefaultExtractionSettings(), computeSource(changed)).
		Run(ctx, driving.RunRequest{Push: true})
	require.NoError(t, err)

	require.NotNil(t, summary.Domains[0].Sync)
	assert.Equal(t, 1, summary.Domains[0].Sync.Archived)

	archived := f.review.Archived()
	require.Len(t, archived, 1)
	assert.Equal(t, "compute-resources_ranch_1", archived[0].Item.Record.ID)
	assert.Equal(t, domain.ArchiveReasonSourceDataChanged, archived[0].Reason)

	live := f.review.Live()
	require.Len(t, live, 3)
	for _, item := range live {
		assert.False(t, item.IsAnnotated())
	}
	assert.Contains(t, live[len(live)-1].Record.Answer, "TACC, UT Austin")
}

func TestRunner_FetchFailureIsDomainScoped(t *testing.T) {
	f := newRunnerFixture()
	broken := &fakeSource{domainName: domain.DomainNSFAwards, fetchErr: errors.New("connection refused")}
	r := f.runner(domain.DefaultExtractionSettings(), broken, computeSource(ranchRaw()))

	summary, err := r.Run(context.Background(), driving.RunRequest{})
	require.NoError(t, err)
	require.Len(t, summary.Domains, 2)

	assert.Equal(t, domain.DomainNSFAwards, summary.Domains[0].Domain)
	assert.False(t, summary.Domains[0].FullyFetched())
	assert.Contains(t, summary.Domains[0].FetchError, "connection refused")
	assert.True(t, summary.Domains[1].FullyFetched())
	assert.True(t, summary.Succeeded())
}

func TestRunner_NoDomainFetched(t *testing.T) {
	f := newRunnerFixture()
	broken := &fakeSource{domainName: domain.DomainNSFAwards, fetchErr: errors.New("down")}

	summary, err := f.runner(domain.DefaultExtractionSettings(), broken).Run(context.Background(), driving.RunRequest{})
	require.NoError(t, err)
	assert.False(t, summary.Succeeded())
}

func TestRunner_FailedEntityDoesNotStopDomain(t *testing.T) {
	f := newRunnerFixture()
	source := computeSource(ranchRaw(), deltaRaw())
	source.cleanErr = map[string]error{"ranch": errors.New("bad html")}

	summary, err := f.runner(domain.DefaultExtractionSettings(), source).Run(context.Background(), driving.RunRequest{})
	require.NoError(t, err)

	d := summary.Domains[0]
	assert.Equal(t, 1, d.Failed)
	assert.Equal(t, []string{"ranch"}, d.FailedEntities)
	assert.Equal(t, 1, d.Generated)
}

func TestRunner_EntityFilters(t *testing.T) {
	f := newRunnerFixture()
	settings := domain.DefaultExtractionSettings()
	settings.EntityIDs = []string{"delta"}

	summary, err := f.runner(settings, computeSource(ranchRaw(), deltaRaw())).Run(context.Background(), driving.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Domains[0].Fetched)
	assert.Equal(t, 1, f.model.Calls())

	f = newRunnerFixture()
	settings = domain.DefaultExtractionSettings()
	settings.MaxEntities = 1
	summary, err = f.runner(settings, computeSource(ranchRaw(), deltaRaw())).Run(context.Background(), driving.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Domains[0].Fetched)
}

func TestRunner_ConcurrentEntitiesKeepFetchOrder(t *testing.T) {
	f := newRunnerFixture()
	settings := domain.DefaultExtractionSettings()
	settings.EntityConcurrency = 4

	raws := make([]domain.RawEntity, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		raws = append(raws, domain.RawEntity{"id": id, "name": strings.ToUpper(id), "resource_type": "compute"})
	}
	f.model.reply = func(_, _ string) (string, error) { return "[]", nil }

	_, err := f.runner(settings, computeSource(raws...)).Run(context.Background(), driving.RunRequest{WriteOutput: true})
	require.NoError(t, err)

	stream := f.writer.streams[domain.DomainComputeResources]
	require.Len(t, stream, 8)
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		assert.Equal(t, "compute-resources_"+id+"_fq_resource_type", stream[i].ID)
	}
}

func TestRunner_UnknownDomain(t *testing.T) {
	f := newRunnerFixture()
	_, err := f.runner(domain.DefaultExtractionSettings(), computeSource()).
		Run(context.Background(), driving.RunRequest{Domains: []string{"weather"}})
	assert.ErrorIs(t, err, domain.ErrUnknownDomain)
}

func TestRunner_PushWithoutReviewStore(t *testing.T) {
	f := newRunnerFixture()
	pipeline := NewEntityPipeline(f.cache, NewFreeformGenerator(nil, 0), NewTemplateGenerator(nil), nil, PipelineConfig{Model: f.model})
	r := NewRunner([]driven.EntitySource{computeSource()}, pipeline, f.cache, RunnerOptions{})

	_, err := r.Run(context.Background(), driving.RunRequest{Push: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunner_CancelledRunStillSavesCache(t *testing.T) {
	f := newRunnerFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.model.reply = func(_, _ string) (string, error) {
		cancel()
		return ranchReply, nil
	}

	summary, err := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw(), deltaRaw())).
		Run(ctx, driving.RunRequest{})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, f.store.Saves())

	entries, loadErr := f.store.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Contains(t, entries, "compute-resources:ranch")
	assert.NotContains(t, entries, "compute-resources:delta")
}

func TestRunner_WriteFailureIsReported(t *testing.T) {
	f := newRunnerFixture()
	f.writer.failWith = errors.New("read-only file system")
	r := f.runner(domain.DefaultExtractionSettings(), computeSource(ranchRaw()))

	summary, err := r.Run(context.Background(), driving.RunRequest{WriteOutput: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "write compute-resources stream")
	assert.Contains(t, err.Error(), "read-only file system")
	require.Len(t, summary.Domains, 1)
	assert.Equal(t, "read-only file system", summary.Domains[0].WriteError)
	assert.Equal(t, 1, f.store.Saves())
}
