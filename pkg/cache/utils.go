package cache

import "strings"

// Key joins non-empty parts with ':' into a namespaced cache key.
func Key(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}
