// internal/rules/domain.go
package rules

import "time"

/*
 * Benefits-domain operators.
 *
 * Eligibility rules for public assistance programs keep reaching for
 * the same three predicates: inclusive range checks on income-style
 * figures, ages derived from a date of birth, and loose membership in
 * an enumerated category list. Naming them directly keeps authored
 * rules readable next to their policy sources.
 *
 * age_from_dob computes whole years against the evaluation timestamp
 * the pipeline records in the context, so results are reproducible
 * for cached and replayed evaluations. It falls back to the wall
 * clock only when no timestamp was provided.
 */

// EvaluatedAtKey is the context key under which the pipeline records
// the evaluation timestamp (RFC 3339). age_from_dob reads it so age
// math does not depend on the wall clock.
const EvaluatedAtKey = "evaluatedAt"

// DomainRegistry returns StandardRegistry extended with the
// benefits-domain operators.
func DomainRegistry() *Registry {
	r := StandardRegistry()
	r.RegisterDescribed("between", "is between", opBetween)
	r.RegisterDescribed("age_from_dob", "the age for date of birth", opAgeFromDOB)
	r.RegisterDescribed("matches_any", "matches one of", opMatchesAny)
	return r
}

// opBetween reports min <= value <= max, bounds inclusive. Operands
// follow ordering semantics: incomparable values yield false.
func opBetween(args []any, _ Context) (any, error) {
	if err := wantArgs("between", args, 3); err != nil {
		return nil, err
	}
	lo, okLo := compareOrder(args[1], args[0])
	hi, okHi := compareOrder(args[0], args[2])
	return okLo && okHi && lo <= 0 && hi <= 0, nil
}

// dateLayouts accepted for dates of birth and evaluation timestamps.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func evaluationTime(ctx Context) time.Time {
	switch at := ctx[EvaluatedAtKey].(type) {
	case string:
		if t, ok := parseDate(at); ok {
			return t
		}
	case time.Time:
		return at
	}
	return time.Now().UTC()
}

// opAgeFromDOB converts an ISO-8601 date of birth into an age in
// whole years at the evaluation timestamp. The year difference drops
// by one when the birthday has not yet occurred in the evaluation
// year.
func opAgeFromDOB(args []any, ctx Context) (any, error) {
	if err := wantArgs("age_from_dob", args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, newEvalError(ErrTypeMismatch, "age_from_dob", "expects an ISO-8601 date string, got %v", args[0])
	}
	dob, ok := parseDate(s)
	if !ok {
		return nil, newEvalError(ErrBadOperand, "age_from_dob", "cannot parse date of birth %q", s)
	}
	now := evaluationTime(ctx)
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return float64(years), nil
}

// opMatchesAny reports whether the first operand loosely equals any
// element of the second, which must be a list.
func opMatchesAny(args []any, _ Context) (any, error) {
	if err := wantArgs("matches_any", args, 2); err != nil {
		return nil, err
	}
	candidates, ok := args[1].([]any)
	if !ok {
		return nil, newEvalError(ErrTypeMismatch, "matches_any", "second operand must be a list, got %v", args[1])
	}
	for _, c := range candidates {
		if looseEqual(args[0], c) {
			return true, nil
		}
	}
	return false, nil
}
