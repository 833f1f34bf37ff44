package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceRef(t *testing.T) {
	tests := []struct {
		domain string
		id     string
		want   string
	}{
		{DomainComputeResources, "delta.ncsa.access-ci.org", "mcp://compute-resources/resources/delta.ncsa.access-ci.org"},
		{DomainSoftware, "gromacs", "mcp://software-discovery/software/gromacs"},
		{DomainAllocations, "CIS210014", "mcp://allocations/projects/CIS210014"},
		{DomainNSFAwards, "2138259", "mcp://nsf-awards/awards/2138259"},
		{DomainAffinityGroups, "42", "mcp://affinity-groups/groups/42"},
		{"other", "x", "mcp://other/entities/x"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			ref := SourceRef(tt.domain, tt.id)
			assert.Equal(t, tt.want, ref)

			d, id, ok := ParseSourceRef(ref)
			assert.True(t, ok)
			assert.Equal(t, tt.domain, d)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestParseSourceRef_Invalid(t *testing.T) {
	for _, ref := range []string{"", "http://x/y/z", "mcp://only", "mcp://d/kind/"} {
		_, _, ok := ParseSourceRef(ref)
		assert.False(t, ok, ref)
	}
}

func TestCacheKey_RoundTrip(t *testing.T) {
	key := CacheKey("software-discovery", "py:torch")
	assert.Equal(t, "software-discovery:py:torch", key)

	d, id, ok := SplitCacheKey(key)
	assert.True(t, ok)
	assert.Equal(t, "software-discovery", d)
	assert.Equal(t, "py:torch", id)
}

func TestRawEntity_Accessors(t *testing.T) {
	raw := RawEntity{
		"id":    float64(2138259),
		"name":  "Delta",
		"gpu":   true,
		"orgs":  []any{"NCSA", 3, "UIUC"},
		"hw":    map[string]any{"gpus": []any{map[string]any{"name": "A100"}, "junk"}},
		"empty": nil,
	}

	assert.Equal(t, "2138259", raw.String("id"))
	assert.Equal(t, "Delta", raw.String("name"))
	assert.True(t, raw.Bool("gpu"))
	assert.Equal(t, []string{"NCSA", "UIUC"}, raw.Strings("orgs"))
	assert.Len(t, raw.Object("hw").Items("gpus"), 1)
	assert.False(t, raw.Has("empty"))
	assert.False(t, raw.Has("missing"))
}

func TestFields_Clone(t *testing.T) {
	f := Fields{"orgs": []string{"A"}}
	c := f.Clone()
	c.Strings("orgs")[0] = "B"
	assert.Equal(t, "A", f.Strings("orgs")[0])
}

func TestAllDomains_Known(t *testing.T) {
	for _, d := range AllDomains() {
		assert.True(t, IsKnownDomain(d))
	}
	assert.False(t, IsKnownDomain("bogus"))
}
