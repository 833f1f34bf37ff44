// Package sqlite provides the review store on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database holds two collections:
//
//   - review_items: live records awaiting or carrying human review, with their responses
//   - review_archive: annotated items preserved before an entity replace (append only)
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.qa-extract/review.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. SQLite runs in WAL mode with a busy
// timeout so a second process can read while a sync is writing.
package sqlite
