package driven

import "time"

// ConfigStore holds flat, dot-keyed settings such as "extraction.max_tokens".
// Typed getters return the zero value for a missing or mistyped key; callers
// that must tell "unset" from "zero" use Get.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// GetDuration reads a Go duration string ("90s") or a whole number of seconds.
	GetDuration(key string) time.Duration

	// Set stores one value and persists it.
	Set(key string, value any) error

	// SetMany stores values with a single write. On failure none are kept.
	SetMany(values map[string]any) error

	// Location describes where settings live, for messages.
	Location() string
}
