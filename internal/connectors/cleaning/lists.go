package cleaning

import (
	"strings"
	"unicode/utf8"
)

// FilterStrings trims items and drops blanks, duplicates and entries starting
// with any of excludePrefixes (case-insensitive).
func FilterStrings(items []string, excludePrefixes ...string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := strings.TrimSpace(item)
		if s == "" || seen[s] || hasAnyPrefixFold(s, excludePrefixes) {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func hasAnyPrefixFold(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return true
		}
	}
	return false
}

// Cap returns at most n items. n <= 0 means no cap.
func Cap[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// SetString stores a trimmed value, skipping empty ones.
func SetString(m map[string]any, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		m[key] = v
	}
}

// SetStrings stores a list, skipping empty ones.
func SetStrings(m map[string]any, key string, values []string) {
	if len(values) > 0 {
		m[key] = values
	}
}
