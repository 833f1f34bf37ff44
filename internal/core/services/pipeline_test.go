package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

type pipelineFixture struct {
	cache    *ExtractionCache
	store    *memory.CacheStore
	model    *countingModel
	judge    *countingModel
	pipeline *EntityPipeline
}

func newPipelineFixture(t *testing.T, withJudge bool) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		store: memory.NewCacheStore(),
		model: &countingModel{replies: []string{ranchReply}},
		judge: &countingModel{reply: func(_, _ string) (string, error) {
			return `[{"record_id":"compute-resources_ranch_1","faithfulness":0.9,"relevance":0.9,"completeness":0.9,"issues":[]}]`, nil
		}},
	}
	f.cache = NewExtractionCache(f.store)

	cfg := PipelineConfig{Model: f.model, MaxTokens: 1024, ModelTimeout: time.Second, Incremental: true}
	if withJudge {
		cfg.Judge = f.judge
	}
	f.pipeline = NewEntityPipeline(
		f.cache,
		NewFreeformGenerator(nil, 0),
		NewTemplateGenerator(ranchTemplates()),
		NewJudgeEvaluator(nil, 512),
		cfg,
	)
	return f
}

func TestEntityPipeline_EndToEndRanch(t *testing.T) {
	f := newPipelineFixture(t, false)

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.NoError(t, err)
	assert.Equal(t, StateStored, out.State)
	require.Len(t, out.Records, 3)

	counts := map[domain.Granularity]int{}
	for _, r := range out.Records {
		counts[r.Granularity]++
		assert.True(t, r.Metadata.HasCitation, r.ID)
	}
	assert.Equal(t, 1, counts[domain.GranularityComprehensive])
	assert.Equal(t, 2, counts[domain.GranularityFactoid])

	require.NoError(t, f.cache.Save(context.Background()))
	entries, err := f.store.Load(context.Background())
	require.NoError(t, err)
	entry, ok := entries["compute-resources:ranch"]
	require.True(t, ok)
	assert.Len(t, entry.Records, 3)
	assert.Equal(t, domain.MustFingerprint(ranchFields()), entry.Fingerprint)
}

func TestEntityPipeline_ReplayMakesNoModelCalls(t *testing.T) {
	f := newPipelineFixture(t, true)
	ctx := context.Background()

	first, err := f.pipeline.Process(ctx, ranchEntity())
	require.NoError(t, err)
	require.Equal(t, StateStored, first.State)
	generated, judged := f.model.Calls(), f.judge.Calls()

	second, err := f.pipeline.Process(ctx, ranchEntity())
	require.NoError(t, err)

	assert.Equal(t, StateReplayed, second.State)
	assert.Equal(t, generated, f.model.Calls(), "no generation call on replay")
	assert.Equal(t, judged, f.judge.Calls(), "no judge call on replay")
	assert.Equal(t, first.Records, second.Records)
	assert.False(t, second.IsFresh())
}

func TestEntityPipeline_MissRunsOneCycle(t *testing.T) {
	f := newPipelineFixture(t, true)
	f.cache.Store("compute-resources", "ranch", "stale-fingerprint", nil)

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.NoError(t, err)

	assert.Equal(t, StateStored, out.State)
	assert.Equal(t, 1, f.model.Calls())
	assert.Equal(t, 1, f.judge.Calls())
	require.NotNil(t, out.Records[0].Metadata.Scores)
	assert.Equal(t, domain.DecisionApproved, out.Records[0].Metadata.Scores.SuggestedDecision)
	assert.Nil(t, out.Records[1].Metadata.Scores)

	cached := f.cache.CachedRecords("compute-resources", "ranch")
	require.Len(t, cached, 3)
	assert.NotNil(t, cached[0].Metadata.Scores, "scores are persisted with the records")
}

func TestEntityPipeline_NonIncrementalRegenerates(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.pipeline.cfg.Incremental = false

	for i := 0; i < 2; i++ {
		out, err := f.pipeline.Process(context.Background(), ranchEntity())
		require.NoError(t, err)
		assert.Equal(t, StateStored, out.State)
	}
	assert.Equal(t, 2, f.model.Calls())
}

func TestEntityPipeline_ChangedFieldsRegenerate(t *testing.T) {
	f := newPipelineFixture(t, false)
	ctx := context.Background()

	_, err := f.pipeline.Process(ctx, ranchEntity())
	require.NoError(t, err)

	changed := ranchEntity()
	changed.Fields["organization_names"] = []string{"TACC", "UT Austin"}
	out, err := f.pipeline.Process(ctx, changed)
	require.NoError(t, err)

	assert.Equal(t, StateStored, out.State)
	assert.Equal(t, 2, f.model.Calls())
}

func TestEntityPipeline_GatewayFailureFailsEntity(t *testing.T) {
	f := newPipelineFixture(t, true)
	f.model.err = errors.New("connection refused")

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrModelCall)
	assert.Equal(t, StateFailed, out.State)
	assert.Empty(t, out.Records)
	assert.Zero(t, f.judge.Calls())
	assert.Zero(t, f.cache.Len(), "failed entities are not cached")
}

func TestEntityPipeline_TimeoutFailsEntity(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.pipeline.cfg.ModelTimeout = 10 * time.Millisecond
	f.model.reply = nil
	f.model.replies = nil
	slow := &blockingModel{}
	f.pipeline.cfg.Model = slow

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, out.State)
}

func TestEntityPipeline_ParseFailureKeepsFactoids(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.model.replies = []string{"sorry, no JSON today"}

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.NoError(t, err)
	assert.Equal(t, StateStored, out.State)
	assert.ErrorIs(t, out.GenerationErr, domain.ErrGenerationParse)
	assert.Len(t, out.Records, 2)
}

func TestEntityPipeline_JudgeFailureKeepsRecords(t *testing.T) {
	f := newPipelineFixture(t, true)
	f.judge.reply = func(_, _ string) (string, error) { return "", errors.New("judge overloaded") }

	out, err := f.pipeline.Process(context.Background(), ranchEntity())
	require.NoError(t, err)
	assert.Equal(t, StateStored, out.State)
	assert.ErrorIs(t, out.JudgeErr, domain.ErrJudgeUnavailable)
	for _, r := range out.Records {
		assert.False(t, r.IsScored())
	}
}

func TestEntityPipeline_UnserialisableFieldsFail(t *testing.T) {
	f := newPipelineFixture(t, false)
	entity := ranchEntity()
	entity.Fields["callback"] = func() {}

	out, err := f.pipeline.Process(context.Background(), entity)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, StateFailed, out.State)
	assert.Zero(t, f.model.Calls())
}

func TestEntityPipeline_Run(t *testing.T) {
	f := newPipelineFixture(t, false)
	source := &fakeSource{domainName: "compute-resources", detailErr: errors.New("detail tool missing")}
	raw := domain.RawEntity{"id": "ranch", "name": "Ranch", "resource_type": "storage", "organization_names": []string{"TACC"}}

	out := f.pipeline.Run(context.Background(), source, raw)

	assert.Equal(t, StateStored, out.State)
	assert.Len(t, out.Records, 3)
	assert.Equal(t, map[string]any{"id": "ranch", "name": "Ranch"}, out.Projection)
	assert.Equal(t, []string{"ranch"}, source.details)
}

func TestEntityPipeline_RunCleanFailure(t *testing.T) {
	f := newPipelineFixture(t, false)
	source := &fakeSource{
		domainName: "compute-resources",
		cleanErr:   map[string]error{"ranch": errors.New("malformed hardware block")},
	}

	out := f.pipeline.Run(context.Background(), source, domain.RawEntity{"id": "ranch"})

	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrFetch)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, out.Err, &fetchErr)
	assert.Equal(t, "ranch", fetchErr.EntityID)
	assert.Zero(t, f.model.Calls())
}

func TestEntityState_IsTerminal(t *testing.T) {
	assert.True(t, StateReplayed.IsTerminal())
	assert.True(t, StateStored.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateGenerating.IsTerminal())
	assert.False(t, StateFingerprinted.IsTerminal())
}

// blockingModel blocks until its context ends.
type blockingModel struct{ countingModel }

func (b *blockingModel) Generate(ctx context.Context, _, _ string, _ int) (driven.GeneratedText, error) {
	<-ctx.Done()
	return driven.GeneratedText{}, ctx.Err()
}
