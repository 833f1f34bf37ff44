package mcp

import (
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driving"
)

// DomainInfo describes one extraction domain for the domains resource.
type DomainInfo struct {
	Domain      string   `json:"domain"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	ServerURL   string   `json:"server_url,omitempty"`
}

// Ports aggregates everything the MCP server needs.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Reports summarises and validates record streams.
	Reports driving.ReportService

	// Records loads record streams from disk.
	Records driven.RecordReader

	// Cache reports extraction cache counters. Optional.
	Cache driving.CacheService

	// Domains are listed by the domains resource.
	Domains []DomainInfo

	// StreamPath resolves a domain's output stream. Optional; without it
	// the stream resource template is not registered.
	StreamPath func(domain string) string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Reports == nil {
		return ErrMissingReportService
	}
	if p.Records == nil {
		return ErrMissingRecordReader
	}
	return nil
}
