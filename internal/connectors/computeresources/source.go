// Package computeresources lists ACCESS-CI compute and storage resources and
// cleans them into fields for generation.
package computeresources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/qa-extract/internal/connectors/cleaning"
	"github.com/custodia-labs/qa-extract/internal/connectors/fetch"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
	"github.com/custodia-labs/qa-extract/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.EntitySource = (*Source)(nil)

// Tool names on the compute-resources server.
const (
	ToolSearch   = "search_resources"
	ToolHardware = "get_resource_hardware"
)

// minHardwareDetail drops hardware items whose details are boilerplate.
const minHardwareDetail = 50

var (
	statusSuffix = regexp.MustCompile(`(?i)\s*-\s*(COMING SOON|RETIRED|BETA).*$`)
	gpuPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)NVIDIA\s+([A-Z]\d+\s*\d*\s*(?:GB)?)`),
		regexp.MustCompile(`(?i)(A100|V100|H100|A40|A30|RTX\s*\d+)`),
	}
	hardwareCategories = []string{"gpus", "compute_nodes", "storage", "memory"}
)

// Config tunes the source.
type Config struct {
	// MaxDetailItems caps hardware items per category (0 = no cap).
	MaxDetailItems int

	// Scrubber is applied to cleaned fields. May be nil.
	Scrubber *cleaning.Scrubber
}

// Source is the compute-resources entity source.
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
	return domain.DomainComputeResources
}

// FetchEntities lists every resource. Resources announced as coming soon
// without a description carry nothing to ask about and are skipped.
func (s *Source) FetchEntities(ctx context.Context) ([]domain.RawEntity, error) {
	return fetch.Collect(ctx, s.caller, fetch.Plan{
		Queries:  []fetch.Query{{Tool: ToolSearch, Args: map[string]any{"query": ""}}},
		ListKeys: []string{"resources", "items"},
		Identify: func(r domain.RawEntity) string {
			name := r.String("name")
			if name == "" {
				return ""
			}
			if strings.Contains(name, "COMING SOON") && r.String("description") == "" {
				return ""
			}
			return r.String("id")
		},
	})
}

// FetchDetail returns the resource's hardware description.
func (s *Source) FetchDetail(ctx context.Context, id string) (domain.RawEntity, error) {
	hw, err := s.caller.CallTool(ctx, ToolHardware, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("fetch hardware for %s: %w", id, err)
	}
	return hw, nil
}

// Clean builds the resource's fields from the listing and hardware detail.
func (s *Source) Clean(raw, detail domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: resource without id", domain.ErrInvalidInput)
	}
	name := CleanName(raw.String("name"))

	fields := domain.Fields{
		"has_gpu":          raw.Bool("hasGpu"),
		"access_allocated": raw.Bool("accessAllocated"),
	}
	cleaning.SetString(fields, "name", name)
	cleaning.SetString(fields, "description", cleaning.StripHTML(raw.String("description")))
	cleaning.SetString(fields, "resource_type", raw.String("resourceType"))
	cleaning.SetStrings(fields, "organization_names", cleaning.FilterStrings(raw.Strings("organization_names")))
	cleaning.SetStrings(fields, "feature_names", cleaning.FilterStrings(raw.Strings("feature_names"), "Unknown"))

	hardware := s.cleanHardware(detail)
	cleaning.SetStrings(fields, "gpu_names", gpuTypes(hardware))
	cleaning.SetStrings(fields, "hardware", hardwareLines(hardware))

	fields = s.cfg.Scrubber.Apply(fields)

	resource := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "hardware" && k != "gpu_names" {
			resource[k] = v
		}
	}
	sourceData := map[string]any{"resource": resource, "hardware": nil}
	if len(hardware) > 0 {
		sourceData["hardware"] = hardware
	}

	return domain.Entity{
		Domain:     domain.DomainComputeResources,
		ID:         id,
		Name:       name,
		Fields:     fields,
		SourceData: sourceData,
	}, nil
}

// Project returns the comparison projection.
func (s *Source) Project(e domain.Entity) map[string]any {
	return map[string]any{
		"name":          e.Name,
		"resource_id":   e.ID,
		"organizations": e.Fields.Strings("organization_names"),
		"has_gpu":       e.Fields.Bool("has_gpu"),
		"gpu_types":     e.Fields.Strings("gpu_names"),
		"features":      e.Fields.Strings("feature_names"),
		"resource_type": e.Fields.String("resource_type"),
	}
}

// CleanName removes status suffixes such as "- COMING SOON".
func CleanName(name string) string {
	return strings.TrimSpace(statusSuffix.ReplaceAllString(name, ""))
}

// hardwareItem is one cleaned hardware entry.
type hardwareItem struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// cleanHardware keeps hardware items whose details say something concrete.
func (s *Source) cleanHardware(detail domain.RawEntity) map[string][]hardwareItem {
	if len(detail) == 0 {
		return nil
	}
	hw := detail.Object("hardware")
	if hw == nil {
		hw = detail
	}

	out := make(map[string][]hardwareItem)
	for _, category := range hardwareCategories {
		var items []hardwareItem
		for _, item := range hw.Items(category) {
			cleaned := hardwareItem{
				Name:    strings.TrimSpace(item.String("name")),
				Type:    strings.TrimSpace(item.String("type")),
				Details: cleaning.StripHTML(item.String("details")),
			}
			if len(cleaned.Details) > minHardwareDetail {
				items = append(items, cleaned)
			}
		}
		if items = cleaning.Cap(items, s.cfg.MaxDetailItems); len(items) > 0 {
			out[category] = items
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// gpuTypes collects GPU names from the gpus category and GPU model
// mentions in compute node details.
func gpuTypes(hardware map[string][]hardwareItem) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, gpu := range hardware["gpus"] {
		add(gpu.Name)
	}
	for _, node := range hardware["compute_nodes"] {
		for _, pattern := range gpuPatterns {
			for _, m := range pattern.FindAllStringSubmatch(node.Details, -1) {
				add(strings.ToUpper(strings.TrimSpace(m[1])))
			}
		}
	}
	return out
}

// hardwareLines flattens hardware into "category: name: details" lines in
// category order.
func hardwareLines(hardware map[string][]hardwareItem) []string {
	var lines []string
	for _, category := range hardwareCategories {
		for _, item := range hardware[category] {
			label := item.Name
			if label == "" {
				label = item.Type
			}
			lines = append(lines, fmt.Sprintf("%s: %s: %s", category, label, item.Details))
		}
	}
	return lines
}
