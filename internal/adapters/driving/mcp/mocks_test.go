package mcp

import (
	"context"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	report    domain.RecordReport
	citations domain.CitationReport
	seen      []domain.TrainingRecord
}

func (m *mockReportService) Report(records []domain.TrainingRecord) domain.RecordReport {
	m.seen = records
	return m.report
}

func (m *mockReportService) ValidateCitations(records []domain.TrainingRecord) domain.CitationReport {
	m.seen = records
	return m.citations
}

// mockRecordReader is a mock implementation of driven.RecordReader.
type mockRecordReader struct {
	records []domain.TrainingRecord
	err     error
	paths   []string
}

func (m *mockRecordReader) Read(_ context.Context, path string) ([]domain.TrainingRecord, error) {
	m.paths = append(m.paths, path)
	return m.records, m.err
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	stats domain.CacheStats
	err   error
}

func (m *mockCacheService) Stats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, m.err
}
