package explain

import (
	"fmt"

	"github.com/eligoproject/eligo/internal/rules"
)

// WhatWouldPass walks a rule looking for numeric comparisons the data
// fails and suggests the change that would satisfy each one. Only
// comparisons of a variable against a numeric literal produce a
// suggestion; comparisons the data already satisfies are skipped.
//
// When nothing actionable is found the single generic suggestion is
// returned so callers always have something to show.
func WhatWouldPass(rule *rules.Rule, data rules.Context) []string {
	var suggestions []string
	collectSuggestions(rule, data, &suggestions)
	if len(suggestions) == 0 {
		return []string{"This rule cannot be easily modified to change the outcome"}
	}
	return suggestions
}

// collectSuggestions recurses through the logical connectives and
// inspects the ordered comparisons underneath them.
func collectSuggestions(r *rules.Rule, data rules.Context, out *[]string) {
	if r == nil || r.Kind != rules.KindOperator {
		return
	}
	switch r.Op {
	case ">", ">=", "<", "<=":
		if s, ok := comparisonSuggestion(r, data); ok {
			*out = append(*out, s)
		}
	case "and", "or", "!", "!!", "if":
		for _, operand := range r.Operands {
			collectSuggestions(operand, data, out)
		}
	}
}

func comparisonSuggestion(r *rules.Rule, data rules.Context) (string, bool) {
	if len(r.Operands) != 2 {
		return "", false
	}
	path, ok := suggestionPath(r.Operands[0])
	if !ok {
		return "", false
	}
	lit := r.Operands[1]
	if lit == nil || lit.Kind != rules.KindLiteral {
		return "", false
	}
	threshold, ok := rules.ToNumber(lit.Value)
	if !ok {
		return "", false
	}

	current, present := rules.Lookup(data, path)
	if !present || current == nil {
		return fmt.Sprintf("provide a value for %s", path), true
	}
	value, ok := rules.ToNumber(current)
	if !ok {
		return fmt.Sprintf("provide a numeric value for %s", path), true
	}

	switch r.Op {
	case ">":
		if value > threshold {
			return "", false
		}
		return fmt.Sprintf("increase %s from %s to more than %s",
			path, rules.ToString(value), rules.ToString(threshold)), true
	case ">=":
		if value >= threshold {
			return "", false
		}
		return fmt.Sprintf("increase %s from %s to at least %s",
			path, rules.ToString(value), rules.ToString(threshold)), true
	case "<":
		if value < threshold {
			return "", false
		}
		return fmt.Sprintf("reduce %s from %s to below %s",
			path, rules.ToString(value), rules.ToString(threshold)), true
	case "<=":
		if value <= threshold {
			return "", false
		}
		return fmt.Sprintf("reduce %s from %s to %s or below",
			path, rules.ToString(value), rules.ToString(threshold)), true
	}
	return "", false
}

// suggestionPath extracts the literal path from a var node.
func suggestionPath(r *rules.Rule) (string, bool) {
	if r == nil || r.Kind != rules.KindOperator || r.Op != "var" {
		return "", false
	}
	if len(r.Operands) == 0 || r.Operands[0] == nil || r.Operands[0].Kind != rules.KindLiteral {
		return "", false
	}
	path, ok := r.Operands[0].Value.(string)
	if !ok || path == "" {
		return "", false
	}
	return path, true
}
