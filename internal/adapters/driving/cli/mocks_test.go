package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/qa-extract/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.Settings
	validateErr error
	generation  []any
	judge       []any
}

func newMockSettings() *mockSettingsService {
	s := domain.DefaultSettings()
	s.Generation.APIKey = "sk-ant-1234567890abcdef"
	return &mockSettingsService{settings: s}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	s.Extraction.EntityIDs = append([]string(nil), m.settings.Extraction.EntityIDs...)
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.Settings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetGenerationBackend(b domain.LLMBackend, model, apiKey string) error {
	m.generation = []any{b, model, apiKey}
	m.settings.Generation = domain.ModelSettings{Backend: b, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetJudgeBackend(b domain.LLMBackend, model, apiKey string) error {
	m.judge = []any{b, model, apiKey}
	m.settings.Judge = domain.ModelSettings{Backend: b, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

// mockExtractionService is a mock implementation of driving.ExtractionService.
type mockExtractionService struct {
	summary *domain.RunSummary
	err     error
	req     driving.RunRequest
}

func (m *mockExtractionService) Run(_ context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	m.req = req
	return m.summary, m.err
}

// mockPushService is a mock implementation of driving.PushService.
type mockPushService struct {
	reports []domain.SyncReport
	err     error
	records []domain.TrainingRecord
}

func (m *mockPushService) Push(_ context.Context, records []domain.TrainingRecord) ([]domain.SyncReport, error) {
	m.records = records
	return m.reports, m.err
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	stats domain.CacheStats
	err   error
}

func (m *mockCacheService) Stats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, m.err
}

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	report    domain.RecordReport
	citations domain.CitationReport
}

func (m *mockReportService) Report([]domain.TrainingRecord) domain.RecordReport { return m.report }

func (m *mockReportService) ValidateCitations([]domain.TrainingRecord) domain.CitationReport {
	return m.citations
}

// mockRecordReader is a mock implementation of driven.RecordReader.
type mockRecordReader struct {
	byPath map[string][]domain.TrainingRecord
	paths  []string
}

func (m *mockRecordReader) Read(_ context.Context, path string) ([]domain.TrainingRecord, error) {
	m.paths = append(m.paths, path)
	return m.byPath[path], nil
}

// harness wires mocks into the CLI for one test.
type harness struct {
	settings   *mockSettingsService
	extraction *mockExtractionService
	push       *mockPushService
	cache      *mockCacheService
	reports    *mockReportService
	records    *mockRecordReader

	built    *domain.Settings
	needs    Needs
	buildErr error
	closed   bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		settings:   newMockSettings(),
		extraction: &mockExtractionService{summary: &domain.RunSummary{
			RunID:   "run-1",
			Domains: []domain.DomainSummary{{Domain: domain.DomainComputeResources, Fetched: 1}},
		}},
		push:       &mockPushService{},
		cache:      &mockCacheService{},
		reports:    &mockReportService{},
		records:    &mockRecordReader{byPath: map[string][]domain.TrainingRecord{}},
	}

	Configure(Config{
		Reports: h.reports,
		Records: h.records,
		Domains: []mcp.DomainInfo{
			{Domain: domain.DomainSoftware, Name: "Software Discovery", Tools: []string{"search_software"}},
		},
		StreamPath: func(dir, d string) string { return dir + "/" + d + "_qa_pairs.jsonl" },
		Build: func(_ context.Context, s *domain.Settings, needs Needs) (*Services, error) {
			h.built = s
			h.needs = needs
			if h.buildErr != nil {
				return nil, h.buildErr
			}
			return &Services{
				Extraction: h.extraction,
				Push:       h.push,
				Cache:      h.cache,
				Close:      func() error { h.closed = true; return nil },
			}, nil
		},
	})
	settingsService = h.settings

	t.Cleanup(func() {
		Configure(Config{})
		settingsService = nil
		resetFlags()
	})
	return h
}

// run executes the root command with args and returns its output.
func (h *harness) run(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables between tests.
func resetFlags() {
	extractIncremental = true
	extractFull = false
	extractNoJudge = false
	extractMaxEntities = 0
	extractMaxRecords = -1
	extractConcurrency = 0
	extractEntityIDs = nil
	extractOutputDir = ""
	extractPush = false
	extractNoOutput = false
	verbose = false
	logger.SetVerbose(false)
	pushDir = ""
	reportDir = ""
	reportJSON = false
	for _, name := range []string{"incremental", "entity-id"} {
		extractCmd.Flags().Lookup(name).Changed = false
	}
	offline := settingsCheckCmd.Flags().Lookup("offline")
	_ = offline.Value.Set("false")
	offline.Changed = false
	rootCmd.SetIn(nil)
}
