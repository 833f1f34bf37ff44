package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// StreamInput is the input schema for tools that read a record stream.
type StreamInput struct {
	Path string `json:"path" jsonschema:"path to a JSONL record stream"`
}

// CitationOutput is the output schema for validate_citations.
type CitationOutput struct {
	Total    int               `json:"total"`
	Valid    int               `json:"valid"`
	OK       bool              `json:"ok"`
	Problems []CitationProblem `json:"problems"`
}

// CitationProblem is one record with a bad citation.
type CitationProblem struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// ReportOutput is the output schema for report_records.
type ReportOutput struct {
	Total          int            `json:"total"`
	ByDomain       map[string]int `json:"by_domain"`
	ByGranularity  map[string]int `json:"by_granularity"`
	ByComplexity   map[string]int `json:"by_complexity"`
	ByDecision     map[string]int `json:"by_decision"`
	Scored         int            `json:"scored"`
	WithCitation   int            `json:"with_citation"`
	MeanConfidence float64        `json:"mean_confidence"`
}

// CacheStatsInput is the (empty) input schema for cache_stats.
type CacheStatsInput struct{}

// CacheStatsOutput is the output schema for cache_stats.
type CacheStatsOutput struct {
	Entries  int            `json:"entries"`
	ByDomain map[string]int `json:"by_domain"`
	Domains  []string       `json:"domains"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.inner, &mcp.Tool{
		Name:        "validate_citations",
		Description: "Check that every record in a stream ends with a citation matching its source ref",
	}, s.handleValidateCitations)

	mcp.AddTool(s.inner, &mcp.Tool{
		Name:        "report_records",
		Description: "Summarise a record stream by domain, granularity, complexity and suggested decision",
	}, s.handleReportRecords)

	mcp.AddTool(s.inner, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Show extraction cache entry counts per domain",
	}, s.handleCacheStats)
}

func (s *Server) readStream(ctx context.Context, path string) ([]domain.TrainingRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	records, err := s.ports.Records.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// handleValidateCitations handles the validate_citations tool invocation.
func (s *Server) handleValidateCitations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StreamInput,
) (*mcp.CallToolResult, CitationOutput, error) {
	records, err := s.readStream(ctx, input.Path)
	if err != nil {
		return nil, CitationOutput{}, err
	}

	report := s.ports.Reports.ValidateCitations(records)
	output := CitationOutput{
		Total:    report.Total,
		Valid:    report.Valid,
		OK:       report.OK(),
		Problems: make([]CitationProblem, len(report.Problems)),
	}
	for i, p := range report.Problems {
		output.Problems[i] = CitationProblem{RecordID: p.RecordID, Reason: p.Reason}
	}
	return nil, output, nil
}

// handleReportRecords handles the report_records tool invocation.
func (s *Server) handleReportRecords(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StreamInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	records, err := s.readStream(ctx, input.Path)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	r := s.ports.Reports.Report(records)
	return nil, ReportOutput{
		Total:          r.Total,
		ByDomain:       stringKeys(r.ByDomain),
		ByGranularity:  stringKeys(r.ByGranularity),
		ByComplexity:   stringKeys(r.ByComplexity),
		ByDecision:     stringKeys(r.ByDecision),
		Scored:         r.Scored,
		WithCitation:   r.WithCitation,
		MeanConfidence: r.MeanConfidence,
	}, nil
}

// handleCacheStats handles the cache_stats tool invocation.
func (s *Server) handleCacheStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CacheStatsInput,
) (*mcp.CallToolResult, CacheStatsOutput, error) {
	if s.ports.Cache == nil {
		return nil, CacheStatsOutput{}, ErrCacheUnavailable
	}
	stats, err := s.ports.Cache.Stats(ctx)
	if err != nil {
		return nil, CacheStatsOutput{}, fmt.Errorf("loading cache: %w", err)
	}

	domains := make([]string, 0, len(stats.ByDomain))
	for d := range stats.ByDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	byDomain := stats.ByDomain
	if byDomain == nil {
		byDomain = map[string]int{}
	}
	return nil, CacheStatsOutput{Entries: stats.Entries, ByDomain: byDomain, Domains: domains}, nil
}

func stringKeys[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
