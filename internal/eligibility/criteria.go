package eligibility

import (
	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// Comparison operators whose conjuncts report the observed value and
// the authored threshold on criterion results.
var comparisonOps = map[string]bool{
	"==": true, "===": true, "!=": true, "!==": true,
	"<": true, "<=": true, ">": true, ">=": true,
}

// deriveCriteria evaluates each top-level conjunct of an and-rule on
// its own so the result can report which criteria passed. A rule that
// is not a conjunction produces a single criterion. Conjuncts that
// fail to evaluate are skipped; the overall result already carries
// the failure.
func deriveCriteria(rule *rules.Rule, ctx rules.Context, opts rules.EvalOptions) []types.CriterionResult {
	conjuncts := []*rules.Rule{rule}
	if rule.Kind == rules.KindOperator && rule.Op == "and" {
		conjuncts = rule.Operands
	}

	results := make([]types.CriterionResult, 0, len(conjuncts))
	for _, conjunct := range conjuncts {
		value, err := rules.Evaluate(conjunct, ctx, opts)
		if err != nil {
			continue
		}
		criterion := types.CriterionResult{
			Criterion: conjunct.String(),
			Met:       rules.Truthy(value),
		}
		if variable, threshold, ok := comparisonParts(conjunct); ok {
			criterion.Criterion = variable
			criterion.Threshold = threshold
			if observed, ok := rules.Lookup(ctx, variable); ok {
				criterion.Value = observed
			}
		}
		results = append(results, criterion)
	}
	return results
}

// comparisonParts extracts the variable and threshold from conjuncts
// shaped like {"<": [{"var": "income"}, 50000]} or {"between":
// [{"var": "age"}, 18, 65]}; between reports [min, max].
func comparisonParts(conjunct *rules.Rule) (variable string, threshold any, ok bool) {
	if conjunct.Kind != rules.KindOperator {
		return "", nil, false
	}
	operands := conjunct.Operands
	switch {
	case comparisonOps[conjunct.Op] && len(operands) == 2:
		path, ok := varPath(operands[0])
		if !ok || operands[1].Kind != rules.KindLiteral {
			return "", nil, false
		}
		return path, operands[1].Value, true
	case conjunct.Op == "between" && len(operands) == 3:
		path, ok := varPath(operands[0])
		if !ok || operands[1].Kind != rules.KindLiteral || operands[2].Kind != rules.KindLiteral {
			return "", nil, false
		}
		return path, []any{operands[1].Value, operands[2].Value}, true
	}
	return "", nil, false
}

// varPath returns the literal path of a {"var": "x"} node.
func varPath(r *rules.Rule) (string, bool) {
	if r.Kind != rules.KindOperator || r.Op != "var" || len(r.Operands) == 0 {
		return "", false
	}
	lit := r.Operands[0]
	if lit.Kind != rules.KindLiteral {
		return "", false
	}
	path, ok := lit.Value.(string)
	return path, ok
}
