// Package fetch runs the search calls a connector needs to list a domain's
// entities: one or more tool queries, merged in order and deduplicated by id.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
	"github.com/custodia-labs/qa-extract/internal/logger"
)

// ErrAllQueriesFailed is returned when no search query succeeded.
var ErrAllQueriesFailed = errors.New("every search query failed")

// Query is one tool call contributing to an entity list.
type Query struct {
	Tool string
	Args map[string]any
}

// Plan describes how a domain's entity list is assembled.
type Plan struct {
	// Queries run in order. A failed query is logged and skipped unless
	// every query fails.
	Queries []Query

	// ListKeys are tried in order to find the result list in each response.
	ListKeys []string

	// Identify returns an entity's id, or "" to skip it. The id is written
	// back under "id" on the returned entity.
	Identify func(domain.RawEntity) string
}

// Collect runs the plan and returns entities in first-seen order.
func Collect(ctx context.Context, caller driven.ToolCaller, plan Plan) ([]domain.RawEntity, error) {
	var (
		out      []domain.RawEntity
		seen     = make(map[string]bool)
		failures []error
	)
	for _, q := range plan.Queries {
		result, err := caller.CallTool(ctx, q.Tool, q.Args)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Search %s %v failed: %v", q.Tool, q.Args, err)
			failures = append(failures, err)
			continue
		}

		items := List(result, plan.ListKeys...)
		added := 0
		for _, item := range items {
			id := plan.Identify(item)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			entity := make(domain.RawEntity, len(item)+1)
			for k, v := range item {
				entity[k] = v
			}
			entity["id"] = id
			out = append(out, entity)
			added++
		}
		logger.Debug("Search %s %v: %d results, %d new", q.Tool, q.Args, len(items), added)
	}

	if len(plan.Queries) > 0 && len(failures) == len(plan.Queries) {
		return nil, fmt.Errorf("%w: %w", ErrAllQueriesFailed, errors.Join(failures...))
	}
	return out, nil
}

// List returns the first non-empty list found under keys.
func List(result domain.RawEntity, keys ...string) []domain.RawEntity {
	for _, key := range keys {
		if items := result.Items(key); len(items) > 0 {
			return items
		}
	}
	return nil
}
