package driven

import (
	"context"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

// ModelValidator checks a model configuration by making a minimal call.
type ModelValidator interface {
	// Validate returns nil if the backend answers with the given settings.
	Validate(ctx context.Context, settings domain.ModelSettings) error
}
