package driven

import (
	"context"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// ToolCaller invokes a named tool on a domain's tool server and returns its
// decoded JSON result.
type ToolCaller interface {
	// CallTool invokes name with args and returns the decoded result object.
	CallTool(ctx context.Context, name string, args map[string]any) (domain.RawEntity, error)

	// Close releases resources.
	Close() error
}

// EntitySource fetches and cleans entities for one domain.
// Sources differ only in how they fetch; cleaned entities are processed
// identically by the pipeline.
type EntitySource interface {
	// Domain returns the domain this source serves.
	Domain() string

	// FetchEntities lists raw entities in fetch order. Every returned item
	// carries a non-empty "id" key. An error here is fatal for the domain run.
	FetchEntities(ctx context.Context) ([]domain.RawEntity, error)

	// FetchDetail returns supplementary detail for one entity, or nil when the
	// domain has none. Callers treat a detail error as non-fatal.
	FetchDetail(ctx context.Context, id string) (domain.RawEntity, error)

	// Clean turns a raw entity (plus optional detail) into normalised fields.
	// Volatile and non-semantic fields must be stripped here.
	Clean(raw, detail domain.RawEntity) (domain.Entity, error)

	// Project returns the small fixed set of fields handed to the
	// comparison generator. It is not persisted.
	Project(entity domain.Entity) map[string]any
}
