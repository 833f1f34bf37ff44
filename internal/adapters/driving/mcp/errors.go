// Package mcp provides an MCP (Model Context Protocol) server adapter for qa-extract.
// It lets an assistant inspect record streams, validate citations and read
// cache statistics without running an extraction.
package mcp

import "errors"

var (
	// ErrMissingReportService is returned when the report service is not provided.
	ErrMissingReportService = errors.New("mcp: report service is required")

	// ErrMissingRecordReader is returned when the record reader is not provided.
	ErrMissingRecordReader = errors.New("mcp: record reader is required")

	// ErrCacheUnavailable is returned by cache_stats when no cache is configured.
	ErrCacheUnavailable = errors.New("mcp: no extraction cache configured")
)
