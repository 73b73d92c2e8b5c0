package util

import "strings"

// NormalizeName lowercases and trims a display name for matching.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
