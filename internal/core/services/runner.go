package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// Ensure Runner implements the interface.
var _ driving.ExtractionService = (*Runner)(nil)

// RunnerOptions are the optional collaborators of a Runner.
type RunnerOptions struct {
	// Review receives fresh records when a run pushes.
	Review driven.ReviewStore

	// Writer receives one stream per domain when a run writes output.
	Writer driven.RecordWriter

	// Settings bound entity selection and concurrency.
	Settings domain.ExtractionSettings
}

// Runner runs the entity pipeline over every requested domain and saves the
// extraction cache once at the end.
type Runner struct {
	sources  map[string]driven.EntitySource
	order    []string
	pipeline *EntityPipeline
	cache    *ExtractionCache
	sync     *ReplaceSync
	review   driven.ReviewStore
	writer   driven.RecordWriter
	settings domain.ExtractionSettings
	now      func() time.Time
}

// NewRunner creates a runner. Sources are processed in the order given
// when no domain is requested explicitly.
func NewRunner(
	sources []driven.EntitySource,
	pipeline *EntityPipeline,
	cache *ExtractionCache,
	opts RunnerOptions,
) *Runner {
	r := &Runner{
		sources:  make(map[string]driven.EntitySource, len(sources)),
		pipeline: pipeline,
		cache:    cache,
		sync:     NewReplaceSync(),
		review:   opts.Review,
		writer:   opts.Writer,
		settings: opts.Settings,
		now:      time.Now,
	}
	for _, s := range sources {
		if _, dup := r.sources[s.Domain()]; dup {
			continue
		}
		r.sources[s.Domain()] = s
		r.order = append(r.order, s.Domain())
	}
	return r
}

// domainResult is what one domain run hands back to Run.
type domainResult struct {
	summary     domain.DomainSummary
	projections []map[string]any
	writeErr    error
}

// Run extracts records for the requested domains.
//
// A cancelled context stops new entities from starting. The cache is saved
// regardless, so work done before cancellation is not repeated next run.
func (r *Runner) Run(ctx context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	// 1. Resolve domains
	domains, err := r.resolveDomains(req.Domains)
	if err != nil {
		return nil, err
	}
	if req.Push && r.review == nil {
		return nil, fmt.Errorf("push requested: %w: no review store configured", domain.ErrInvalidInput)
	}

	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: r.now(),
	}
	logger.Info("Run %s: extracting %d domains", summary.RunID, len(domains))

	// 2. Run domains concurrently; each domain is independent
	results := make([]domainResult, len(domains))
	g := new(errgroup.Group)
	if r.settings.DomainConcurrency > 0 {
		g.SetLimit(r.settings.DomainConcurrency)
	}
	for i, name := range domains {
		g.Go(func() error {
			results[i] = r.runDomain(ctx, r.sources[name], req)
			return nil
		})
	}
	_ = g.Wait()

	// 3. Save the cache even when cancelled
	var errs []error
	if err := r.cache.Save(context.WithoutCancel(ctx)); err != nil {
		logger.Error("Failed to save extraction cache: %v", err)
		errs = append(errs, err)
	}

	// 4. Write projections for the comparison generator
	projections := make(map[string][]map[string]any)
	for _, res := range results {
		summary.Domains = append(summary.Domains, res.summary)
		if res.writeErr != nil {
			errs = append(errs, res.writeErr)
		}
		if len(res.projections) > 0 {
			projections[res.summary.Domain] = res.projections
		}
	}
	if pw, ok := r.writer.(driven.ProjectionWriter); ok && req.WriteOutput && len(projections) > 0 {
		if path, err := pw.WriteProjections(ctx, projections); err != nil {
			logger.Error("Failed to write raw projections: %v", err)
			errs = append(errs, err)
		} else {
			logger.Info("Wrote raw projections to %s", path)
		}
	}

	summary.Cache = r.cache.Stats()
	summary.FinishedAt = r.now()
	if ctx.Err() != nil {
		summary.Cancelled = true
		errs = append(errs, ctx.Err())
	}

	return summary, errors.Join(errs...)
}

func (r *Runner) resolveDomains(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string(nil), r.order...), nil
	}
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := r.sources[name]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDomain, name)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// runDomain fetches one domain's entities and processes them in fetch order.
//
//nolint:gocognit // Orchestration function with necessary sequential steps
func (r *Runner) runDomain(ctx context.Context, source driven.EntitySource, req driving.RunRequest) domainResult {
	name := source.Domain()
	res := domainResult{summary: domain.DomainSummary{
		Domain:  name,
		Records: make(map[domain.Granularity]int),
	}}

	logger.Section(name)

	// 1. Fetch the entity list; failure here is fatal for the domain
	raws, err := source.FetchEntities(ctx)
	if err != nil {
		fetchErr := &domain.FetchError{Domain: name, Err: err}
		logger.Error("%v", fetchErr)
		res.summary.FetchError = fetchErr.Error()
		return res
	}
	raws = r.selectEntities(raws)
	res.summary.Fetched = len(raws)
	logger.Info("Fetched %d %s entities", len(raws), name)

	// 2. Process entities with bounded concurrency, results kept in fetch order
	outcomes := make([]EntityOutcome, len(raws))
	started := make([]bool, len(raws))
	g := new(errgroup.Group)
	limit := r.settings.EntityConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			outcomes[i] = r.pipeline.Run(ctx, source, raw)
			return nil
		})
	}
	_ = g.Wait()

	// 3. Aggregate
	var all, fresh []domain.TrainingRecord
	for i, o := range outcomes {
		if !started[i] {
			continue
		}
		switch o.State {
		case StateReplayed:
			res.summary.CacheHits++
		case StateStored:
			res.summary.Generated++
			fresh = append(fresh, o.Records...)
		case StateFailed:
			res.summary.Failed++
			res.summary.FailedEntities = append(res.summary.FailedEntities, o.EntityID)
			continue
		}
		for _, rec := range o.Records {
			res.summary.Records[rec.Granularity]++
		}
		all = append(all, o.Records...)
		if o.Projection != nil {
			res.projections = append(res.projections, o.Projection)
		}
	}

	// 4. Entity-replace only for entities generated this run
	if req.Push && len(fresh) > 0 {
		report := r.sync.Sync(ctx, name, fresh, r.review)
		res.summary.Sync = &report
	}

	// 5. Write the domain stream
	if req.WriteOutput && r.writer != nil {
		path, err := r.writer.Write(ctx, name, all)
		if err != nil {
			logger.Error("Failed to write %s records: %v", name, err)
			res.writeErr = fmt.Errorf("write %s stream: %w", name, err)
			res.summary.WriteError = err.Error()
		} else {
			logger.Info("Wrote %d %s records to %s", len(all), name, path)
		}
	}

	logger.Info("%s: %d fetched, %d cached, %d generated, %d failed",
		name, res.summary.Fetched, res.summary.CacheHits, res.summary.Generated, res.summary.Failed)
	return res
}

// selectEntities applies the entity id filter and then the entity limit.
func (r *Runner) selectEntities(raws []domain.RawEntity) []domain.RawEntity {
	if len(r.settings.EntityIDs) > 0 {
		wanted := make(map[string]bool, len(r.settings.EntityIDs))
		for _, id := range r.settings.EntityIDs {
			wanted[id] = true
		}
		filtered := raws[:0:0]
		for _, raw := range raws {
			if wanted[raw.String("id")] {
				filtered = append(filtered, raw)
			}
		}
		raws = filtered
	}
	if r.settings.MaxEntities > 0 && len(raws) > r.settings.MaxEntities {
		raws = raws[:r.settings.MaxEntities]
	}
	return raws
}
