// Package affinitygroups lists ACCESS affinity groups with their events and
// knowledge base topics.
package affinitygroups

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

// ToolSearch lists groups, or returns one group's detail when given an id.
const ToolSearch = "search_affinity_groups"

// Config tunes the source.
type Config struct {
	// MaxDetailItems caps events and knowledge base topics (0 = no cap).
	MaxDetailItems int

	// Scrubber is applied to cleaned fields. May be nil.
	Scrubber *cleaning.Scrubber
}

// Source is the affinity-groups entity source.
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
	return domain.DomainAffinityGroups
}

// FetchEntities lists every group. Groups without a name are skipped.
func (s *Source) FetchEntities(ctx context.Context) ([]domain.RawEntity, error) {
	return fetch.Collect(ctx, s.caller, fetch.Plan{
		Queries:  []fetch.Query{{Tool: ToolSearch, Args: map[string]any{}}},
		ListKeys: []string{"items", "groups"},
		Identify: func(r domain.RawEntity) string {
			if strings.TrimSpace(r.String("name")) == "" {
				return ""
			}
			return r.String("id")
		},
	})
}

// FetchDetail returns the group's events and knowledge base.
func (s *Source) FetchDetail(ctx context.Context, id string) (domain.RawEntity, error) {
	detail, err := s.caller.CallTool(ctx, ToolSearch, map[string]any{"id": id, "include": "all"})
	if err != nil {
		return nil, fmt.Errorf("fetch group %s: %w", id, err)
	}
	return detail, nil
}

// Clean builds the group's fields from the listing and detail.
func (s *Source) Clean(raw, detail domain.RawEntity) (domain.Entity, error) {
	id := raw.String("id")
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: group without id", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(raw.String("name"))

	fields := domain.Fields{}
	cleaning.SetString(fields, "name", name)
	cleaning.SetString(fields, "description", cleaning.StripHTML(raw.String("description")))
	cleaning.SetString(fields, "coordinator", raw.String("coordinator"))
	cleaning.SetString(fields, "category", raw.String("category"))
	cleaning.SetString(fields, "slack_link", raw.String("slack_link"))
	cleaning.SetString(fields, "support_url", raw.String("support_url"))
	cleaning.SetString(fields, "ask_ci_forum", raw.String("ask_ci_forum"))

	if detail != nil {
		// Detail may wrap the group or be the group itself.
		if g := detail.Object("group"); g != nil {
			detail = g
		}
		events := cleaning.Cap(eventLines(detail.Items("events")), s.cfg.MaxDetailItems)
		cleaning.SetStrings(fields, "upcoming_events", events)
		topics := cleaning.Cap(topicTitles(detail.Items("knowledge_base")), s.cfg.MaxDetailItems)
		cleaning.SetStrings(fields, "knowledge_base_topics", topics)
	}

	fields = s.cfg.Scrubber.Apply(fields)

	return domain.Entity{
		Domain:     domain.DomainAffinityGroups,
		ID:         id,
		Name:       name,
		Fields:     fields,
		SourceData: map[string]any{"group": map[string]any(fields.Clone())},
	}, nil
}

// Project returns the comparison projection.
func (s *Source) Project(e domain.Entity) map[string]any {
	return map[string]any{
		"name":               e.Name,
		"group_id":           e.ID,
		"category":           e.Fields.String("category"),
		"coordinator":        e.Fields.String("coordinator"),
		"has_events":         len(e.Fields.Strings("upcoming_events")) > 0,
		"has_knowledge_base": len(e.Fields.Strings("knowledge_base_topics")) > 0,
	}
}

// eventLines renders events as "title (date)".
func eventLines(events []domain.RawEntity) []string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		title := strings.TrimSpace(ev.String("title"))
		if title == "" {
			continue
		}
		date := ev.String("date")
		if date == "" {
			date = ev.String("start_date")
		}
		if date != "" {
			title = fmt.Sprintf("%s (%s)", title, date)
		}
		lines = append(lines, title)
	}
	return cleaning.FilterStrings(lines)
}

func topicTitles(items []domain.RawEntity) []string {
	titles := make([]string, 0, len(items))
	for _, item := range items {
		t := item.String("title")
		if t == "" {
			t = item.String("name")
		}
		titles = append(titles, t)
	}
	return cleaning.FilterStrings(titles)
}
