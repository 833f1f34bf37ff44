package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure the record stores implement the interfaces.
var (
	_ driven.RecordWriter     = (*RecordWriter)(nil)
	_ driven.ProjectionWriter = (*RecordWriter)(nil)
	_ driven.RecordReader     = (*RecordReader)(nil)
)

// ProjectionsFileName is the per-run raw projection dump.
const ProjectionsFileName = "raw_projections.json"

// maxLineSize bounds one JSONL line. Records carry their source data, which
// can be large for entities with long descriptions.
const maxLineSize = 16 * 1024 * 1024

// StreamFileName returns the JSONL file name for a domain.
func StreamFileName(domainName string) string {
	return domainName + "_qa_pairs.jsonl"
}

// RecordWriter writes one JSONL stream per domain into a directory.
type RecordWriter struct {
	dir string
}

// NewRecordWriter creates a writer rooted at dir.
func NewRecordWriter(dir string) *RecordWriter {
	return &RecordWriter{dir: dir}
}

// Dir returns the output directory.
func (w *RecordWriter) Dir() string {
	return w.dir
}

// Write replaces {dir}/{domain}_qa_pairs.jsonl with records, one per line.
func (w *RecordWriter) Write(ctx context.Context, domainName string, records []domain.TrainingRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return "", fmt.Errorf("encode record %s: %w", records[i].ID, err)
		}
	}

	path := filepath.Join(w.dir, StreamFileName(domainName))
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write %s stream: %w", domainName, err)
	}
	return path, nil
}

// WriteProjections writes {dir}/raw_projections.json keyed by domain.
func (w *RecordWriter) WriteProjections(ctx context.Context, projections map[string][]map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(projections, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode projections: %w", err)
	}

	path := filepath.Join(w.dir, ProjectionsFileName)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("write projections: %w", err)
	}
	return path, nil
}

// RecordReader reads JSONL record streams.
type RecordReader struct{}

// NewRecordReader creates a reader.
func NewRecordReader() *RecordReader {
	return &RecordReader{}
}

// Read returns every record in path, in file order. Blank lines are skipped.
func (r *RecordReader) Read(ctx context.Context, path string) ([]domain.TrainingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []domain.TrainingRecord
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec domain.TrainingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %w", path, line, domain.ErrInvalidInput, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
