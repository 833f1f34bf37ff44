package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// EntityState is a step in one entity's pass through the pipeline.
type EntityState string

// Entity states. Replayed, Stored and Failed are terminal.
const (
	StateFetched       EntityState = "fetched"
	StateFingerprinted EntityState = "fingerprinted"
	StateReplayed      EntityState = "replayed"
	StateGenerating    EntityState = "generating"
	StateScoring       EntityState = "scoring"
	StateStored        EntityState = "stored"
	StateFailed        EntityState = "failed"
)

// IsTerminal returns true for states an entity finishes in.
func (s EntityState) IsTerminal() bool {
	return s == StateReplayed || s == StateStored || s == StateFailed
}

// EntityOutcome is what the pipeline produced for one entity.
type EntityOutcome struct {
	Domain   string
	EntityID string
	State    EntityState

	// Fingerprint is empty if the entity failed before fingerprinting.
	Fingerprint string

	// Records are the replayed or freshly generated records.
	Records []domain.TrainingRecord

	// Projection is the raw projection handed to the comparison generator.
	// It is never persisted.
	Projection map[string]any

	// Err is set when State is StateFailed.
	Err error

	// GenerationErr and JudgeErr record recovered failures.
	GenerationErr error
	JudgeErr      error
}

// IsFresh returns true if the records were generated during this run.
func (o EntityOutcome) IsFresh() bool {
	return o.State == StateStored
}

// PipelineConfig configures an EntityPipeline.
type PipelineConfig struct {
	// Model generates freeform records.
	Model driven.ModelGateway

	// Judge scores records; nil disables judging.
	Judge driven.ModelGateway

	// MaxTokens bounds each generation call.
	MaxTokens int

	// ModelTimeout bounds each model call; 0 means no per-call bound.
	ModelTimeout time.Duration

	// Incremental enables cache replay for unchanged entities.
	Incremental bool
}

// EntityPipeline takes one entity from fetched to a terminal state.
type EntityPipeline struct {
	cache     *ExtractionCache
	freeform  *FreeformGenerator
	templates *TemplateGenerator
	judge     *JudgeEvaluator
	cfg       PipelineConfig
}

// NewEntityPipeline creates an entity pipeline.
func NewEntityPipeline(
	cache *ExtractionCache,
	freeform *FreeformGenerator,
	templates *TemplateGenerator,
	judge *JudgeEvaluator,
	cfg PipelineConfig,
) *EntityPipeline {
	if cache == nil {
		cache = NewExtractionCache(nil)
	}
	return &EntityPipeline{
		cache:     cache,
		freeform:  freeform,
		templates: templates,
		judge:     judge,
		cfg:       cfg,
	}
}

// Run fetches detail for a raw entity, cleans it and processes it.
// A detail failure is logged and the entity proceeds without detail.
func (p *EntityPipeline) Run(ctx context.Context, source driven.EntitySource, raw domain.RawEntity) EntityOutcome {
	domainName := source.Domain()
	id := raw.String("id")

	detail, err := source.FetchDetail(ctx, id)
	if err != nil {
		logger.Warn("Detail fetch failed for %s/%s, continuing without detail: %v", domainName, id, err)
		detail = nil
	}

	entity, err := source.Clean(raw, detail)
	if err != nil {
		fetchErr := &domain.FetchError{Domain: domainName, EntityID: id, Err: err}
		logger.Error("Skipping entity: %v", fetchErr)
		return EntityOutcome{Domain: domainName, EntityID: id, State: StateFailed, Err: fetchErr}
	}

	outcome, err := p.Process(ctx, entity)
	if err != nil {
		logger.Error("Entity %s/%s failed: %v", domainName, entity.ID, err)
		return outcome
	}
	outcome.Projection = source.Project(entity)
	return outcome
}

// Process drives one cleaned entity through fingerprinting, cache replay or
// generation and scoring, and cache store.
//
// The returned error is non-nil exactly when the outcome is StateFailed.
//
//nolint:gocyclo // State machine with necessary sequential steps
func (p *EntityPipeline) Process(ctx context.Context, entity domain.Entity) (EntityOutcome, error) {
	out := EntityOutcome{Domain: entity.Domain, EntityID: entity.ID, State: StateFetched}

	// 1. Fingerprint cleaned fields
	fp, err := domain.Fingerprint(entity.Fields)
	if err != nil {
		return p.fail(out, fmt.Errorf("fingerprint: %w", err))
	}
	out.Fingerprint = fp
	out.State = StateFingerprinted

	// 2. Replay unchanged entities without any model call
	if p.cfg.Incremental && p.cache.IsUnchanged(entity.Domain, entity.ID, fp) {
		out.Records = p.cache.CachedRecords(entity.Domain, entity.ID)
		out.State = StateReplayed
		logger.Debug("Replayed %d cached records for %s/%s", len(out.Records), entity.Domain, entity.ID)
		return out, nil
	}

	// 3. Generate freeform and factoid records
	out.State = StateGenerating
	if err := ctx.Err(); err != nil {
		return p.fail(out, err)
	}

	genCtx, cancel := p.callContext(ctx)
	freeform, err := p.freeform.Generate(genCtx, entity, p.cfg.Model, p.cfg.MaxTokens)
	cancel()
	if err != nil {
		return p.fail(out, fmt.Errorf("generate: %w", err))
	}
	if freeform.ModelFailed() {
		return p.fail(out, freeform.Err)
	}
	out.GenerationErr = freeform.Err

	factoids, err := p.templates.Generate(entity.Domain, entity.ID, entity.Fields)
	if err != nil {
		return p.fail(out, fmt.Errorf("render templates: %w", err))
	}

	records := make([]domain.TrainingRecord, 0, len(freeform.Records)+len(factoids))
	records = append(records, freeform.Records...)
	records = append(records, factoids...)

	// 4. Score the whole batch with one judge call
	if p.cfg.Judge != nil && p.judge != nil && len(records) > 0 {
		out.State = StateScoring
		judgeCtx, cancel := p.callContext(ctx)
		result := p.judge.Evaluate(judgeCtx, records, entity.Fields, p.cfg.Judge)
		cancel()
		if result.Err != nil {
			logger.Warn("Judge unavailable for %s/%s, records left unscored: %v", entity.Domain, entity.ID, result.Err)
			out.JudgeErr = result.Err
		}
	}

	// 5. Store in the in-memory cache
	p.cache.Store(entity.Domain, entity.ID, fp, records)
	out.Records = records
	out.State = StateStored

	logger.Debug("Generated %d records for %s/%s (%d freeform, %d factoid)",
		len(records), entity.Domain, entity.ID, len(freeform.Records), len(factoids))
	return out, nil
}

func (p *EntityPipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.ModelTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.ModelTimeout)
}

func (p *EntityPipeline) fail(out EntityOutcome, err error) (EntityOutcome, error) {
	out.State = StateFailed
	out.Err = err
	out.Records = nil
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("Model call timed out for %s/%s", out.Domain, out.EntityID)
	}
	return out, err
}
