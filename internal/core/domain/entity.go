package domain

import (
	"fmt"
	"strings"
)

// Known extraction domains.
const (
	DomainComputeResources = "compute-resources"
	DomainSoftware         = "software-discovery"
	DomainAllocations      = "allocations"
	DomainNSFAwards        = "nsf-awards"
	DomainAffinityGroups   = "affinity-groups"
)

// AllDomains returns the known domains in their canonical processing order.
func AllDomains() []string {
	return []string{
		DomainComputeResources,
		DomainSoftware,
		DomainAllocations,
		DomainNSFAwards,
		DomainAffinityGroups,
	}
}

// IsKnownDomain returns true if name is one of AllDomains.
func IsKnownDomain(name string) bool {
	for _, d := range AllDomains() {
		if d == name {
			return true
		}
	}
	return false
}

// sourceRefKinds maps a domain to the collection segment of its source refs.
var sourceRefKinds = map[string]string{
	DomainComputeResources: "resources",
	DomainSoftware:         "software",
	DomainAllocations:      "projects",
	DomainNSFAwards:        "awards",
	DomainAffinityGroups:   "groups",
}

// SourceRef builds the back-reference URI for an entity,
// e.g. mcp://compute-resources/resources/delta.ncsa.access-ci.org.
func SourceRef(domain, entityID string) string {
	kind, ok := sourceRefKinds[domain]
	if !ok {
		kind = "entities"
	}
	return fmt.Sprintf("mcp://%s/%s/%s", domain, kind, entityID)
}

// ParseSourceRef splits a source ref built by SourceRef into domain and entity id.
func ParseSourceRef(ref string) (domain, entityID string, ok bool) {
	rest, found := strings.CutPrefix(ref, "mcp://")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// Fields is the cleaned, flat field map of an entity. Values are strings,
// numbers, booleans or lists of strings.
type Fields map[string]any

// Clone returns a shallow copy of the field map. String lists are copied.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

// String returns the string value of a field, or "" if absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Strings returns a field as a string list. A single string becomes a
// one-element list; other types yield nil.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Bool returns the boolean value of a field, or false.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Entity is an external domain object after cleaning.
// It is fetched fresh on every run and never persisted directly.
type Entity struct {
	// Domain is the extraction domain this entity belongs to.
	Domain string

	// ID is unique within Domain.
	ID string

	// Name is the human-readable display name.
	Name string

	// Fields are the normalised fields that drive generation and fingerprinting.
	Fields Fields

	// SourceData is an optional richer copy attached to comprehensive
	// records so reviewers can verify answers.
	SourceData map[string]any
}

// SourceRef returns the entity's back-reference URI.
func (e Entity) SourceRef() string {
	return SourceRef(e.Domain, e.ID)
}

// CacheKey returns the entity's key in the extraction cache.
func (e Entity) CacheKey() string {
	return CacheKey(e.Domain, e.ID)
}

// RawEntity is an uncleaned item as returned by an upstream tool call.
type RawEntity map[string]any

// String returns a string value, or "" if absent or not a string.
// Numeric ids are rendered without a fractional part.
func (r RawEntity) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Bool returns a boolean value, or false.
func (r RawEntity) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Strings returns a list of strings. Non-string items are skipped.
func (r RawEntity) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Object returns a nested object, or nil.
func (r RawEntity) Object(key string) RawEntity {
	switch v := r[key].(type) {
	case map[string]any:
		return RawEntity(v)
	case RawEntity:
		return v
	default:
		return nil
	}
}

// Items returns a list of nested objects. Non-object items are skipped.
func (r RawEntity) Items(key string) []RawEntity {
	list, ok := r[key].([]any)
	if !ok {
		if typed, ok := r[key].([]RawEntity); ok {
			return typed
		}
		return nil
	}
	out := make([]RawEntity, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, RawEntity(m))
		}
	}
	return out
}

// Has returns true if the key is present with a non-nil value.
func (r RawEntity) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
