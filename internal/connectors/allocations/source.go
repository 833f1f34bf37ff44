// Package allocations lists active ACCESS allocation projects and cleans
// them into fields.
package allocations

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/connectors/cleaning"
	"github.com/custodia-labs/qa-extract/internal/connectors/fetch"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.EntitySource = (*Source)(nil)

// ToolSearch is the project search tool.
const ToolSearch = "search_projects"

// DefaultSearchLimit is the page size when none is configured.
const DefaultSearchLimit = 50

// SearchTerms are broad enough that together they cover most projects.
var SearchTerms = []string{"research", "science", "computing", "data", "engineering"}

// Config tunes the source.
type Config struct {
	// MaxQueries limits how many of SearchTerms are searched (0 = all).
	MaxQueries int

	// SearchLimit is the page size per search (0 = DefaultSearchLimit).
	SearchLimit int

	// Scrubber is applied to cleaned fields. May be nil.
	Scrubber *cleaning.Scrubber
}

// Source is the allocations entity source.
type Source struct {
	caller driven.ToolCaller
	cfg    Config
}

// New creates a source calling tools through caller.
func New(caller driven.ToolCaller, cfg Config) *Source {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	return &Source{caller: caller, cfg: cfg}
}

// Domain returns the domain name.
func (s *Source) Domain() string {
	return domain.DomainAllocations
}

// FetchEntities searches each term and merges projects by id.
func (s *Source) FetchEntities(ctx context.Context) ([]domain.RawEntity, error) {
	terms := cleaning.Cap(SearchTerms, s.cfg.MaxQueries)
	queries := make([]fetch.Query, 0, len(terms))
	for _, term := range terms {
		queries = append(queries, fetch.Query{
			Tool: ToolSearch,
			Args: map[string]any{"query": term, "limit": s.cfg.SearchLimit},
		})
	}
	return fetch.Collect(ctx, s.caller, fetch.Plan{
		Queries:  queries,
		ListKeys: []string{"items", "projects"},
		Identify: func(r domain.RawEntity) string {
			if strings.TrimSpace(r.String("requestTitle")) == "" {
				return ""
			}
			if id := r.String("projectId"); id != "" {
				return id
			}
			return r.String("requestNumber")
		},
	})
}

// FetchDetail returns nil; search results already carry everything.
func (s *Source) FetchDetail(context.Context, string) (domain.RawEntity, error) {
	return nil, nil
}

// Clean builds the project's fields.
func (s *Source) Clean(raw, _ domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: project without id", domain.ErrInvalidInput)
	}
	title := strings.TrimSpace(raw.String("requestTitle"))

	fields := domain.Fields{}
	cleaning.SetString(fields, "project_id", id)
	cleaning.SetString(fields, "title", title)
	cleaning.SetString(fields, "pi", raw.String("pi"))
	cleaning.SetString(fields, "institution", raw.String("piInstitution"))
	cleaning.SetString(fields, "field_of_science", raw.String("fos"))
	cleaning.SetString(fields, "allocation_type", raw.String("allocationType"))
	cleaning.SetString(fields, "abstract", cleaning.StripHTML(raw.String("abstract")))
	cleaning.SetString(fields, "begin_date", raw.String("beginDate"))
	cleaning.SetString(fields, "end_date", raw.String("endDate"))
	cleaning.SetStrings(fields, "resources", resourceLines(raw.Items("resources")))

	fields = s.cfg.Scrubber.Apply(fields)

	return domain.Entity{
		Domain:     domain.DomainAllocations,
		ID:         id,
		Name:       title,
		Fields:     fields,
		SourceData: map[string]any{"project": map[string]any(fields.Clone())},
	}, nil
}

// Project returns the comparison projection.
func (s *Source) Project(e domain.Entity) map[string]any {
	return map[string]any{
		"name":            e.Name,
		"project_id":      e.ID,
		"pi":              e.Fields.String("pi"),
		"institution":     e.Fields.String("institution"),
		"fos":             e.Fields.String("field_of_science"),
		"allocation_type": e.Fields.String("allocation_type"),
		"resource_count":  len(e.Fields.Strings("resources")),
	}
}

// resourceLines renders each allocated resource as "name: amount units".
func resourceLines(items []domain.RawEntity) []string {
	lines := make([]string, 0, len(items))
	for _, r := range items {
		name := strings.TrimSpace(r.String("resourceName"))
		if name == "" {
			name = strings.TrimSpace(r.String("name"))
		}
		if name == "" {
			continue
		}
		amount := r.String("allocation")
		units := strings.TrimSpace(r.String("units"))
		switch {
		case amount != "" && units != "":
			lines = append(lines, fmt.Sprintf("%s: %s %s", name, amount, units))
		case amount != "":
			lines = append(lines, fmt.Sprintf("%s: %s", name, amount))
		default:
			lines = append(lines, name)
		}
	}
	return cleaning.FilterStrings(lines)
}
