package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// countingModel implements driven.ModelGateway with scripted replies.
type countingModel struct {
	mu      sync.Mutex
	replies []string
	reply   func(system, user string) (string, error)
	err     error
	calls   int
	users   []string
	systems []string
}

func (m *countingModel) Generate(ctx context.Context, system, user string, _ int) (driven.GeneratedText, error) {
	m.mu.Lock()
	m.calls++
	m.users = append(m.users, user)
	m.systems = append(m.systems, system)
	n := m.calls
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return driven.GeneratedText{}, err
	}
	if m.err != nil {
		return driven.GeneratedText{}, m.err
	}
	if m.reply != nil {
		text, err := m.reply(system, user)
		return driven.GeneratedText{Text: text, Model: "fake"}, err
	}
	if len(m.replies) == 0 {
		return driven.GeneratedText{Text: "[]", Model: "fake"}, nil
	}
	idx := n - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return driven.GeneratedText{Text: m.replies[idx], Model: "fake"}, nil
}

func (m *countingModel) ModelName() string { return "fake" }
func (m *countingModel) Close() error      { return nil }

func (m *countingModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// fakeSource implements driven.EntitySource over fixed raw entities.
// Clean copies every raw key except "id" and "name" into Fields.
type fakeSource struct {
	domainName string
	raws       []domain.RawEntity
	fetchErr   error
	detailErr  error
	cleanErr   map[string]error

	mu      sync.Mutex
	details []string
}

func (s *fakeSource) Domain() string { return s.domainName }

func (s *fakeSource) FetchEntities(_ context.Context) ([]domain.RawEntity, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.raws, nil
}

func (s *fakeSource) FetchDetail(_ context.Context, id string) (domain.RawEntity, error) {
	s.mu.Lock()
	s.details = append(s.details, id)
	s.mu.Unlock()
	if s.detailErr != nil {
		return nil, s.detailErr
	}
	return nil, nil
}

func (s *fakeSource) Clean(raw, _ domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if err := s.cleanErr[id]; err != nil {
		return domain.Entity{}, err
	}
	fields := domain.Fields{}
	for k, v := range raw {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	return domain.Entity{Domain: s.domainName, ID: id, Name: raw.String("name"), Fields: fields}, nil
}

func (s *fakeSource) Project(e domain.Entity) map[string]any {
	return map[string]any{"id": e.ID, "name": e.Name}
}

// flakyReviewStore wraps a review store and fails chosen operations for
// chosen source refs.
type flakyReviewStore struct {
	driven.ReviewStore

	failQuery   map[string]bool
	failArchive bool
	failDelete  map[string]bool
	failPush    map[string]bool

	mu       sync.Mutex
	queried  []string
	lastRefs []string
}

var errStoreDown = errors.New("review store unavailable")

func (f *flakyReviewStore) QueryBySourceRef(ctx context.Context, ref string) ([]domain.ReviewItem, error) {
	f.mu.Lock()
	f.queried = append(f.queried, ref)
	f.lastRefs = []string{ref}
	f.mu.Unlock()
	if f.failQuery[ref] {
		return nil, errStoreDown
	}
	return f.ReviewStore.QueryBySourceRef(ctx, ref)
}

func (f *flakyReviewStore) Archive(ctx context.Context, records []domain.ArchiveRecord) error {
	if f.failArchive {
		return errStoreDown
	}
	return f.ReviewStore.Archive(ctx, records)
}

func (f *flakyReviewStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if f.failDelete[f.current()] {
		return errStoreDown
	}
	return f.ReviewStore.DeleteByIDs(ctx, ids)
}

func (f *flakyReviewStore) Push(ctx context.Context, records []domain.TrainingRecord) error {
	if len(records) > 0 && f.failPush[records[0].SourceRef] {
		return errStoreDown
	}
	return f.ReviewStore.Push(ctx, records)
}

func (f *flakyReviewStore) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lastRefs) == 0 {
		return ""
	}
	return f.lastRefs[0]
}

// ranchFields are the fields of the end-to-end fixture entity.
func ranchFields() domain.Fields {
	return domain.Fields{
		"name":               "Ranch",
		"resource_type":      "storage",
		"organization_names": []string{"TACC"},
	}
}

// ranchTemplates are two templates requiring resource_type and organization_names.
func ranchTemplates() TemplateTable {
	return TemplateTable{
		domain.DomainComputeResources: {
			{
				ID:             "fq_resource_type",
				Question:       "What type of resource is {name}?",
				Answer:         "{name} is a {resource_type} resource.",
				RequiredFields: []string{"resource_type"},
			},
			{
				ID:             "fq_operator",
				Question:       "Who operates {name}?",
				Answer:         "{name} is operated by {organization_names}.",
				RequiredFields: []string{"organization_names"},
			},
		},
	}
}

const ranchReply = `[{"question":"What is Ranch?","answer":"Ranch is a storage system operated by TACC. <<SRC:compute-resources:ranch>>"}]`
