// Package software searches the software-discovery catalog across a fixed
// list of common package names and cleans each package into fields.
package software

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

// ToolSearch is the catalog search tool.
const ToolSearch = "search_software"

// maxExampleUse caps the example usage text kept from AI metadata.
const maxExampleUse = 1500

// SearchTerms are queried in order. The catalog has no list-all call.
var SearchTerms = []string{
	"python", "cuda", "gcc", "tensorflow", "pytorch", "mpi", "openmpi", "r",
	"matlab", "julia", "gromacs", "namd", "lammps", "vasp", "gaussian", "ansys",
	"cmake", "git", "singularity", "apptainer", "conda", "java", "perl", "rust",
	"llvm", "boost", "hdf5", "netcdf", "fftw", "blas", "lapack", "openssl",
	"vim", "emacs", "slurm",
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

// Source is the software-discovery entity source.
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
	return domain.DomainSoftware
}

// FetchEntities searches each term and merges the results. Packages are
// identified by lowercased name since the same package appears under
// several terms.
func (s *Source) FetchEntities(ctx context.Context) ([]domain.RawEntity, error) {
	terms := cleaning.Cap(SearchTerms, s.cfg.MaxQueries)
	queries := make([]fetch.Query, 0, len(terms))
	for _, term := range terms {
		args := map[string]any{"query": term, "include_ai_metadata": true}
		if s.cfg.SearchLimit > 0 {
			args["limit"] = s.cfg.SearchLimit
		}
		queries = append(queries, fetch.Query{Tool: ToolSearch, Args: args})
	}
	return fetch.Collect(ctx, s.caller, fetch.Plan{
		Queries:  queries,
		ListKeys: []string{"items", "software"},
		Identify: func(r domain.RawEntity) string {
			return strings.ToLower(strings.TrimSpace(r.String("name")))
		},
	})
}

// FetchDetail returns nil; search results already carry everything.
func (s *Source) FetchDetail(context.Context, string) (domain.RawEntity, error) {
	return nil, nil
}

// Clean builds the package's fields.
func (s *Source) Clean(raw, _ domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: software without id", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(raw.String("name"))
	if name == "" {
		name = id
	}

	fields := domain.Fields{}
	cleaning.SetString(fields, "name", name)
	cleaning.SetString(fields, "description", cleaning.StripHTML(raw.String("description")))
	cleaning.SetStrings(fields, "versions", cleaning.FilterStrings(raw.Strings("versions")))
	cleaning.SetStrings(fields, "available_on_resources", resourceNames(raw))
	cleaning.SetString(fields, "documentation", raw.String("documentation"))
	cleaning.SetString(fields, "website", raw.String("website"))

	if ai := raw.Object("ai_metadata"); ai != nil {
		cleaning.SetStrings(fields, "tags", cleaning.FilterStrings(ai.Strings("tags")))
		cleaning.SetString(fields, "research_area", ai.String("research_area"))
		cleaning.SetString(fields, "research_field", ai.String("research_field"))
		cleaning.SetString(fields, "software_type", ai.String("software_type"))
		cleaning.SetStrings(fields, "core_features", cleaning.FilterStrings(ai.Strings("core_features")))
		cleaning.SetString(fields, "example_use",
			cleaning.Truncate(strings.TrimSpace(ai.String("example_use")), maxExampleUse))
	}

	fields = s.cfg.Scrubber.Apply(fields)

	return domain.Entity{
		Domain:     domain.DomainSoftware,
		ID:         id,
		Name:       name,
		Fields:     fields,
		SourceData: map[string]any{"software": map[string]any(fields.Clone())},
	}, nil
}

// Project returns the comparison projection.
func (s *Source) Project(e domain.Entity) map[string]any {
	return map[string]any{
		"name":          e.Name,
		"software_id":   e.ID,
		"resources":     e.Fields.Strings("available_on_resources"),
		"tags":          e.Fields.Strings("tags"),
		"research_area": e.Fields.String("research_area"),
		"software_type": e.Fields.String("software_type"),
	}
}

// resourceNames reads available_on_resources, which the catalog returns as
// either plain ids or objects.
func resourceNames(raw domain.RawEntity) []string {
	list, _ := raw["available_on_resources"].([]any)
	names := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			names = append(names, v)
		case map[string]any:
			r := domain.RawEntity(v)
			if id := r.String("resource_id"); id != "" {
				names = append(names, id)
			} else {
				names = append(names, r.String("name"))
			}
		}
	}
	if len(names) == 0 {
		names = raw.Strings("available_on_resources")
	}
	return cleaning.FilterStrings(names)
}
