// internal/rules/coercion.go
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

/*
 * Value coercion for rule evaluation.
 *
 * Rule data comes from JSON, so evaluated values are limited to
 * strings, float64 numbers, booleans, nil, []any and map[string]any.
 * Operators follow the loose coercion rules of the upstream rule
 * language: numeric strings count as numbers where a number is
 * expected, booleans fold to 0/1, and truthiness follows JSON
 * conventions (empty string, zero, null and empty arrays are falsy;
 * objects are truthy even when empty).
 *
 * Go-native ints appear when rules or contexts are built
 * programmatically; the numeric ladder accepts them so hand-built
 * trees behave like parsed ones.
 *
 * Deliberately NOT carried over from the upstream host language: the
 * empty string does not coerce to zero. "" == 0 is false here, which
 * keeps absent text fields from silently passing numeric checks.
 */

// ToNumber reports v as a float64 when it is a number. Strings and
// booleans are not converted here; comparison operators apply the
// looser ladder internally.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// looseNumber extends ToNumber with the coercions comparison operators
// apply: numeric strings parse as numbers and booleans fold to 0/1.
func looseNumber(v any) (float64, bool) {
	if f, ok := ToNumber(v); ok {
		return f, true
	}
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ToString renders v the way the rule language concatenates text.
// Numbers drop trailing zeros and nil renders empty.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return fmt.Sprintf("%v", v)
}

// Truthy reports whether v counts as true under rule-language
// truthiness: nil, false, zero, NaN, the empty string and empty
// arrays are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	if f, ok := ToNumber(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}
