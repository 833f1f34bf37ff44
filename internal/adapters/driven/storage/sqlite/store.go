package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/qa-extract/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ReviewStore = (*Store)(nil)

// DefaultFileName is the database file created when only a directory is known.
const DefaultFileName = "review.db"

const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Store is a SQLite-backed review store holding a live collection and an
// append-only archive.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the review database at path.
// If path is empty, defaults to ~/.qa-extract/review.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".qa-extract", DefaultFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.Files); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// QueryBySourceRef returns live items whose record has the given source ref,
// in insertion order, with their responses.
func (s *Store) QueryBySourceRef(ctx context.Context, sourceRef string) ([]domain.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_json FROM review_items
		WHERE source_ref = ?
		ORDER BY rowid
	`, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	for i := range items {
		responses, err := s.responses(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Responses = responses
	}
	return items, nil
}

// DeleteByIDs removes live items and their responses. Unknown ids are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM review_items WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete item %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Push upserts live items by record id. Existing responses are kept.
func (s *Store) Push(ctx context.Context, records []domain.TrainingRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := range records {
		r := records[i]
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling record %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO review_items (id, record_id, source_ref, domain, record_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(record_id) DO UPDATE SET
				source_ref = excluded.source_ref,
				domain = excluded.domain,
				record_json = excluded.record_json,
				updated_at = excluded.updated_at
		`, uuid.New().String(), r.ID, r.SourceRef, r.Domain, string(data), now, now)
		if err != nil {
			return fmt.Errorf("push record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit push: %w", err)
	}
	return nil
}

// Archive appends records to the archive table.
func (s *Store) Archive(ctx context.Context, records []domain.ArchiveRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range records {
		a := records[i]
		data, err := json.Marshal(a.Item)
		if err != nil {
			return fmt.Errorf("marshalling archived item %s: %w", a.Item.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO review_archive (item_id, record_id, source_ref, reason, annotation_depth, item_json, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.Item.ID, a.Item.Record.ID, a.Item.Record.SourceRef, a.Reason,
			string(a.AnnotationDepth), string(data), a.ArchivedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("archive item %s: %w", a.Item.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

// Respond attaches a reviewer response to the live item holding recordID.
func (s *Store) Respond(ctx context.Context, recordID string, resp domain.Response) error {
	var itemID string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM review_items WHERE record_id = ?", recordID).Scan(&itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find item for %s: %w", recordID, err)
	}

	values, err := json.Marshal(resp.Values)
	if err != nil {
		return fmt.Errorf("marshalling response values: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_responses (item_id, user_id, status, values_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, itemID, resp.UserID, string(resp.Status), string(values), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

// Archived returns archive entries for sourceRef in append order.
// An empty sourceRef returns the whole archive.
func (s *Store) Archived(ctx context.Context, sourceRef string) ([]domain.ArchiveRecord, error) {
	query := "SELECT item_json, reason, annotation_depth, archived_at FROM review_archive"
	var args []any
	if sourceRef != "" {
		query += " WHERE source_ref = ?"
		args = append(args, sourceRef)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchiveRecord
	for rows.Next() {
		var itemJSON, reason, depth, archivedAt string
		if err := rows.Scan(&itemJSON, &reason, &depth, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		var a domain.ArchiveRecord
		if err := json.Unmarshal([]byte(itemJSON), &a.Item); err != nil {
			return nil, fmt.Errorf("unmarshalling archived item: %w", err)
		}
		a.Reason = reason
		a.AnnotationDepth = domain.AnnotationDepth(depth)
		if a.ArchivedAt, err = time.Parse(time.RFC3339Nano, archivedAt); err != nil {
			return nil, fmt.Errorf("parsing archived_at: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Counts returns the number of live and archived items.
func (s *Store) Counts(ctx context.Context) (live, archived int, err error) {
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_items").Scan(&live); err != nil {
		return 0, 0, fmt.Errorf("count items: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_archive").Scan(&archived); err != nil {
		return 0, 0, fmt.Errorf("count archive: %w", err)
	}
	return live, archived, nil
}

func (s *Store) responses(ctx context.Context, itemID string) ([]domain.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, status, values_json FROM review_responses
		WHERE item_id = ?
		ORDER BY id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []domain.Response
	for rows.Next() {
		var resp domain.Response
		var status, values string
		if err := rows.Scan(&resp.UserID, &status, &values); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		resp.Status = domain.ResponseStatus(status)
		if values != "" && values != jsonNull {
			if err := json.Unmarshal([]byte(values), &resp.Values); err != nil {
				return nil, fmt.Errorf("unmarshalling response values: %w", err)
			}
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

func scanItems(rows *sql.Rows) ([]domain.ReviewItem, error) {
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		var recordJSON string
		if err := rows.Scan(&item.ID, &recordJSON); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if err := json.Unmarshal([]byte(recordJSON), &item.Record); err != nil {
			return nil, fmt.Errorf("unmarshalling record for item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
