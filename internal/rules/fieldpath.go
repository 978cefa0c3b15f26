// internal/rules/fieldpath.go
package rules

import (
	"strconv"
	"strings"
)

/*
 * Context path resolution.
 *
 * Variable references address decoded JSON data with dotted paths:
 * "household.members.1.age" descends through maps by key and through
 * arrays by zero-based integer index. The empty path addresses the
 * whole scope, which array predicates rely on to reach the current
 * element ({"var": ""}).
 *
 * Resolution is total: any shape mismatch (missing key, index out of
 * range, descending into a scalar) reports absence instead of
 * failing, so rules stay evaluable over partial household data.
 */

// Lookup resolves a dotted path against decoded JSON data. The second
// return reports whether the full path resolved.
func Lookup(data any, path string) (any, bool) {
	if c, ok := data.(Context); ok {
		data = map[string]any(c)
	}
	if path == "" {
		return data, true
	}
	current := data
	for _, seg := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case Context:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
