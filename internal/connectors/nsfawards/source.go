// Package nsfawards searches NSF awards related to research computing and
// cleans them into fields.
package nsfawards

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

// ToolSearch is the award search tool.
const ToolSearch = "search_nsf_awards"

// SearchTerms are queried in order, most relevant first.
var SearchTerms = []string{
	"cyberinfrastructure",
	"OAC",
	"high performance computing",
	"advanced computing",
	"research computing",
	"scientific computing",
	"data infrastructure",
	"cloud computing research",
	"computational science",
	"supercomputing",
	"ACCESS",
	"XSEDE",
}

// Config tunes the source.
type Config struct {
	// MaxQueries limits how many of SearchTerms are searched (0 = all).
	MaxQueries int

	// SearchLimit is the page size per search.
	SearchLimit int

	// Scrubber is applied to cleaned fields. May be nil.
	Scrubber *cleaning.Scrubber
}

// Source is the nsf-awards entity source.
type Source struct {
	caller driven.ToolCaller
	cfg    Config
}

// New creates a source calling tools through caller.
func New(caller driven.ToolCaller, cfg Config) *Source {
	return &Source{caller: caller, cfg: cfg}
}

// Domain returns the domain name.
func (s *Source) Domain() string {
	return domain.DomainNSFAwards
}

// FetchEntities searches each term and merges awards by award number.
func (s *Source) FetchEntities(ctx context.Context) ([]domain.RawEntity, error) {
	terms := cleaning.Cap(SearchTerms, s.cfg.MaxQueries)
	queries := make([]fetch.Query, 0, len(terms))
	for _, term := range terms {
		args := map[string]any{"query": term}
		if s.cfg.SearchLimit > 0 {
			args["limit"] = s.cfg.SearchLimit
		}
		queries = append(queries, fetch.Query{Tool: ToolSearch, Args: args})
	}
	return fetch.Collect(ctx, s.caller, fetch.Plan{
		Queries:  queries,
		ListKeys: []string{"items", "awards"},
		Identify: func(r domain.RawEntity) string {
			if strings.TrimSpace(r.String("title")) == "" {
				return ""
			}
			return strings.TrimSpace(r.String("awardNumber"))
		},
	})
}

// FetchDetail returns nil; search results already carry everything.
func (s *Source) FetchDetail(context.Context, string) (domain.RawEntity, error) {
	return nil, nil
}

// Clean builds the award's fields.
func (s *Source) Clean(raw, _ domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: award without number", domain.ErrInvalidInput)
	}
	title := strings.TrimSpace(raw.String("title"))

	fields := domain.Fields{}
	cleaning.SetString(fields, "award_number", id)
	cleaning.SetString(fields, "title", title)
	cleaning.SetString(fields, "principal_investigator", raw.String("principalInvestigator"))
	cleaning.SetString(fields, "institution", raw.String("institution"))
	cleaning.SetString(fields, "total_intended_award", raw.String("totalIntendedAward"))
	cleaning.SetString(fields, "total_awarded_to_date", raw.String("totalAwardedToDate"))
	cleaning.SetString(fields, "primary_program", raw.String("primaryProgram"))
	cleaning.SetString(fields, "program_officer", raw.String("programOfficer"))
	cleaning.SetString(fields, "abstract", cleaning.StripHTML(raw.String("abstract")))
	cleaning.SetString(fields, "start_date", raw.String("startDate"))
	cleaning.SetString(fields, "end_date", raw.String("endDate"))
	cleaning.SetStrings(fields, "co_pis", cleaning.FilterStrings(raw.Strings("coPIs")))

	fields = s.cfg.Scrubber.Apply(fields)

	return domain.Entity{
		Domain:     domain.DomainNSFAwards,
		ID:         id,
		Name:       title,
		Fields:     fields,
		SourceData: map[string]any{"award": map[string]any(fields.Clone())},
	}, nil
}

// Project returns the comparison projection.
func (s *Source) Project(e domain.Entity) map[string]any {
	return map[string]any{
		"name":            e.Name,
		"award_number":    e.ID,
		"pi":              e.Fields.String("principal_investigator"),
		"institution":     e.Fields.String("institution"),
		"total_award":     e.Fields.String("total_intended_award"),
		"primary_program": e.Fields.String("primary_program"),
		"has_co_pis":      len(e.Fields.Strings("co_pis")) > 0,
	}
}
