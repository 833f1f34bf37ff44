// Package connectors holds one entity source per extraction domain and a
// registry that builds them from settings.
//
// Each domain lives in its own subpackage and implements driven.EntitySource.
// Shared helpers live in cleaning (HTML stripping, list filtering, scrubbing)
// and fetch (multi-query search with id deduplication).
package connectors
