// Package driving holds the use-case interfaces the command line and the
// MCP server call into: extraction, push, cache inspection, reporting and
// settings. internal/core/services implements them.
package driving
