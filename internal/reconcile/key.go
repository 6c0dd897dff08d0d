// Package reconcile joins the primary county list with auxiliary datasets and
// merges them into an immutable snapshot of unified region entities.
package reconcile

import (
	"strings"

	"github.com/sells-group/regionsync/internal/source"
)

// CanonicalKey derives the join key of a primary record: the AGS field, or
// the RS field when AGS is absent (some subdivisions only carry RS).
func CanonicalKey(c source.County) (string, bool) {
	if k := strings.TrimSpace(c.AGS.String()); k != "" {
		return k, true
	}
	if k := strings.TrimSpace(c.RS.String()); k != "" {
		return k, true
	}
	return "", false
}

// KeyMatch reports whether two region codes refer to the same region.
// Sources pad and truncate codes differently ("5370" vs "05370"), so codes
// match when either contains the other. Empty codes never match.
func KeyMatch(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// firstMatch returns the index of the first key matching key, or -1.
// Iteration order decides ties: the first occurrence wins.
func firstMatch(keys []string, key string) int {
	for i, k := range keys {
		if KeyMatch(k, key) {
			return i
		}
	}
	return -1
}
