package allocations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qa-extract/internal/connectors/cleaning"
	"github.com/custodia-labs/qa-extract/internal/core/domain"
)

type fakeCaller struct {
	byQuery map[string]domain.RawEntity
	calls   []map[string]any
}

func (f *fakeCaller) CallTool(_ context.Context, _ string, args map[string]any) (domain.RawEntity, error) {
	f.calls = append(f.calls, args)
	q, _ := args["query"].(string)
	if r, ok := f.byQuery[q]; ok {
		return r, nil
	}
	return domain.RawEntity{}, nil
}

func (f *fakeCaller) Close() error { return nil }

func TestSource_FetchEntities(t *testing.T) {
	caller := &fakeCaller{byQuery: map[string]domain.RawEntity{
		"research": {"projects": []any{
			map[string]any{"projectId": float64(4521), "requestTitle": "Climate Modeling"},
			map[string]any{"requestNumber": "CIS230045", "requestTitle": "Protein Folding"},
			map[string]any{"projectId": "999", "requestTitle": "  "},
		}},
		"science": {"items": []any{
			map[string]any{"projectId": float64(4521), "requestTitle": "Climate Modeling"},
		}},
	}}
	s := New(caller, Config{MaxQueries: 2})

	got, err := s.FetchEntities(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4521", got[0].String("id"))
	assert.Equal(t, "CIS230045", got[1].String("id"))
	require.Len(t, caller.calls, 2)
	assert.Equal(t, DefaultSearchLimit, caller.calls[0]["limit"])
}

func TestSource_Clean(t *testing.T) {
	s := New(nil, Config{})
	raw := domain.RawEntity{
		"id":             "4521",
		"requestTitle":   "Climate Modeling ",
		"pi":             "Ada Lovelace",
		"piInstitution":  "University of Somewhere",
		"fos":            "Atmospheric Sciences",
		"allocationType": "Explore",
		"abstract":       "<p>We model <i>clouds</i>.</p>",
		"beginDate":      "2025-01-01",
		"endDate":        "2026-01-01",
		"resources": []any{
			map[string]any{"resourceName": "Delta GPU", "allocation": float64(5000), "units": "GPU Hours"},
			map[string]any{"name": "Ranch", "allocation": float64(10)},
			map[string]any{"resourceName": "Anvil"},
			map[string]any{"allocation": float64(1)},
		},
	}

	e, err := s.Clean(raw, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.DomainAllocations, e.Domain)
	assert.Equal(t, "Climate Modeling", e.Name)
	assert.Equal(t, "Climate Modeling", e.Fields["title"])
	assert.Equal(t, "University of Somewhere", e.Fields["institution"])
	assert.Equal(t, "Atmospheric Sciences", e.Fields["field_of_science"])
	assert.Equal(t, "We model clouds.", e.Fields["abstract"])
	assert.Equal(t, []string{"Delta GPU: 5000 GPU Hours", "Ranch: 10", "Anvil"}, e.Fields["resources"])
	assert.Contains(t, e.SourceData, "project")
}

func TestSource_Clean_ScrubsPI(t *testing.T) {
	s := New(nil, Config{Scrubber: cleaning.NewScrubber([]string{"pi"}, true)})

	e, err := s.Clean(domain.RawEntity{
		"id": "1", "requestTitle": "T", "pi": "Ada",
		"abstract": "Contact ada@example.edu for data.",
	}, nil)

	require.NoError(t, err)
	assert.NotContains(t, e.Fields, "pi")
	assert.Equal(t, "Contact "+cleaning.RedactedEmail+" for data.", e.Fields["abstract"])
}

func TestSource_Clean_MissingID(t *testing.T) {
	_, err := New(nil, Config{}).Clean(domain.RawEntity{"requestTitle": "T"}, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSource_Project(t *testing.T) {
	s := New(nil, Config{})
	e, err := s.Clean(domain.RawEntity{
		"id": "1", "requestTitle": "T", "fos": "Physics",
		"resources": []any{map[string]any{"resourceName": "Delta"}},
	}, nil)
	require.NoError(t, err)

	p := s.Project(e)

	assert.Equal(t, "T", p["name"])
	assert.Equal(t, "Physics", p["fos"])
	assert.Equal(t, 1, p["resource_count"])
}
