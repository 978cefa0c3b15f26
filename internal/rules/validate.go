// internal/rules/validate.go
package rules

import (
	"fmt"
	"math"
	"strconv"
)

/*
 * Static rule validation.
 *
 * Validate inspects a rule tree without evaluating it: structural
 * checks, a nesting-depth limit, a complexity score, operator
 * allow/deny lists, and extraction of the operators and variables the
 * rule touches. Authoring tools call it on save; the importer calls
 * it per rule before anything reaches the store.
 *
 * The complexity score is a review heuristic, not a cost model. Every
 * node adds twice its depth below the root, so deep nesting
 * dominates. Variable references add 0.5, array predicates add 3
 * (they run their lambda once per element), every other operator adds
 * 1. Scores above the limit are errors; scores above 80% of it are
 * warnings, so authors hear about runaway rules before the hard stop.
 *
 * Validate never panics and never returns an error value: every
 * problem, including nil nodes and aliased subtrees, lands in the
 * report. Walks carry a visited set, so a self-referential tree built
 * programmatically terminates and is reported instead of looping.
 */

// Limits for authored rules.
const (
	// DefaultMaxRuleDepth bounds nesting accepted by the validator.
	// Hand-authored eligibility rules rarely pass ten levels; twenty
	// leaves headroom without admitting generated monsters.
	DefaultMaxRuleDepth = 20

	// DefaultMaxComplexity bounds the complexity score.
	DefaultMaxComplexity = 100

	// complexityWarnPercent is the share of the complexity limit
	// above which a warning is attached.
	complexityWarnPercent = 80
)

// Issue codes attached to validation findings.
const (
	IssueStructure  = "structure"
	IssueDepth      = "depth"
	IssueComplexity = "complexity"
	IssueOperator   = "operator"
	IssueVariable   = "variable"
	IssueCycle      = "cycle"
	IssueParse      = "parse"
)

// Issue is one validation finding.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the outcome of static validation.
type Report struct {
	Valid      bool     `json:"valid"`
	Errors     []Issue  `json:"errors,omitempty"`
	Warnings   []Issue  `json:"warnings,omitempty"`
	Depth      int      `json:"depth"`
	Complexity int      `json:"complexity"`
	Operators  []string `json:"operators"`
	Variables  []string `json:"variables"`
}

// ValidateOptions tunes static validation.
type ValidateOptions struct {
	// MaxDepth overrides DefaultMaxRuleDepth when positive.
	MaxDepth int

	// MaxComplexity overrides DefaultMaxComplexity when positive.
	MaxComplexity int

	// AllowedOperators, when non-empty, is the closed set of operator
	// names the rule may use. Names outside it are warnings, or
	// errors in strict mode; unknown operators are otherwise assumed
	// to be valid custom extensions.
	AllowedOperators []string

	// DisallowedOperators are always errors.
	DisallowedOperators []string

	// RequiredVariables must each be referenced by the rule.
	RequiredVariables []string

	// Strict promotes allow-list findings to errors.
	Strict bool
}

// Validate statically checks a rule tree. It never panics; a nil rule
// yields an invalid report.
func Validate(rule *Rule, opts ValidateOptions) Report {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRuleDepth
	}
	maxComplexity := opts.MaxComplexity
	if maxComplexity <= 0 {
		maxComplexity = DefaultMaxComplexity
	}

	report := Report{Operators: []string{}, Variables: []string{}}
	if rule == nil {
		report.Errors = append(report.Errors, Issue{Code: IssueStructure, Message: "rule is nil"})
		return report
	}

	w := &ruleWalker{seen: make(map[*Rule]bool)}
	w.walk(rule, 1)

	report.Depth = w.depth
	report.Complexity = int(math.Round(w.score))
	report.Errors = append(report.Errors, w.errors...)
	if w.operators != nil {
		report.Operators = w.operators
	}
	if w.variables != nil {
		report.Variables = w.variables
	}

	if w.aliased > 0 {
		report.Errors = append(report.Errors, Issue{
			Code:    IssueCycle,
			Message: fmt.Sprintf("%d node(s) appear more than once in the tree", w.aliased),
		})
	}
	if w.depth > maxDepth {
		report.Errors = append(report.Errors, Issue{
			Code:    IssueDepth,
			Message: fmt.Sprintf("nesting depth %d exceeds limit %d", w.depth, maxDepth),
		})
	}
	switch {
	case report.Complexity > maxComplexity:
		report.Errors = append(report.Errors, Issue{
			Code:    IssueComplexity,
			Message: fmt.Sprintf("complexity %d exceeds limit %d", report.Complexity, maxComplexity),
		})
	case report.Complexity*100 > maxComplexity*complexityWarnPercent:
		report.Warnings = append(report.Warnings, Issue{
			Code:    IssueComplexity,
			Message: fmt.Sprintf("complexity %d is above %d%% of limit %d", report.Complexity, complexityWarnPercent, maxComplexity),
		})
	}

	if len(opts.DisallowedOperators) > 0 {
		denied := stringSet(opts.DisallowedOperators)
		for _, op := range report.Operators {
			if denied[op] {
				report.Errors = append(report.Errors, Issue{
					Code:    IssueOperator,
					Message: fmt.Sprintf("operator %q is not allowed", op),
				})
			}
		}
	}
	if len(opts.AllowedOperators) > 0 {
		allowed := stringSet(opts.AllowedOperators)
		for _, op := range report.Operators {
			if allowed[op] {
				continue
			}
			issue := Issue{
				Code:    IssueOperator,
				Message: fmt.Sprintf("operator %q is outside the allowed set", op),
			}
			if opts.Strict {
				report.Errors = append(report.Errors, issue)
			} else {
				report.Warnings = append(report.Warnings, issue)
			}
		}
	}
	if len(opts.RequiredVariables) > 0 {
		referenced := stringSet(report.Variables)
		for _, v := range opts.RequiredVariables {
			if !referenced[v] {
				report.Errors = append(report.Errors, Issue{
					Code:    IssueVariable,
					Message: fmt.Sprintf("required variable %q is never referenced", v),
				})
			}
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// ValidateJSON parses data and validates the resulting tree. Parse
// failures come back inside the report, not as an error, so callers
// have one result shape.
func ValidateJSON(data []byte, opts ValidateOptions) Report {
	rule, err := ParseRule(data)
	if err != nil {
		return Report{
			Errors:    []Issue{{Code: IssueParse, Message: err.Error()}},
			Operators: []string{},
			Variables: []string{},
		}
	}
	return Validate(rule, opts)
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// arrayPredicates weigh more in the complexity score: they evaluate
// their lambda once per element.
var arrayPredicates = map[string]bool{
	"map": true, "filter": true, "reduce": true,
	"all": true, "some": true, "none": true,
}

type ruleWalker struct {
	seen      map[*Rule]bool
	depth     int
	score     float64
	aliased   int
	operators []string
	variables []string
	opSeen    map[string]bool
	varSeen   map[string]bool
	errors    []Issue
}

// walk accumulates depth, complexity, extraction and structural
// findings in one pass. level is 1-based; complexity counts depth
// below the root.
func (w *ruleWalker) walk(n *Rule, level int) {
	if n == nil {
		w.errors = append(w.errors, Issue{Code: IssueStructure, Message: "nil node in rule tree"})
		return
	}
	if w.seen[n] {
		w.aliased++
		return
	}
	w.seen[n] = true
	if level > w.depth {
		w.depth = level
	}
	w.score += float64(level-1) * 2

	switch n.Kind {
	case KindLiteral:
	case KindList:
		for _, item := range n.Items {
			w.walk(item, level+1)
		}
	case KindOperator:
		switch {
		case n.Op == "var":
			w.score += 0.5
			w.recordVariable(n)
		case arrayPredicates[n.Op]:
			w.score += 3
			w.recordOperator(n.Op)
		default:
			w.score++
			w.recordOperator(n.Op)
		}
		for _, operand := range n.Operands {
			w.walk(operand, level+1)
		}
	default:
		w.errors = append(w.errors, Issue{
			Code:    IssueStructure,
			Message: fmt.Sprintf("unrecognized node kind %d", n.Kind),
		})
	}
}

func (w *ruleWalker) recordOperator(op string) {
	if w.opSeen == nil {
		w.opSeen = make(map[string]bool)
	}
	if w.opSeen[op] {
		return
	}
	w.opSeen[op] = true
	w.operators = append(w.operators, op)
}

func (w *ruleWalker) recordVariable(n *Rule) {
	if len(n.Operands) == 0 {
		w.errors = append(w.errors, Issue{Code: IssueStructure, Message: "var without a path operand"})
		return
	}
	pathNode := n.Operands[0]
	if pathNode == nil {
		// walk reports the nil node itself
		return
	}
	if pathNode.Kind != KindLiteral {
		w.errors = append(w.errors, Issue{Code: IssueStructure, Message: "var path must be a literal"})
		return
	}
	var path string
	switch p := pathNode.Value.(type) {
	case nil:
		path = ""
	case string:
		path = p
	case float64:
		path = strconv.FormatFloat(p, 'f', -1, 64)
	default:
		w.errors = append(w.errors, Issue{
			Code:    IssueStructure,
			Message: fmt.Sprintf("var path must be a string, got %v", p),
		})
		return
	}
	if w.varSeen == nil {
		w.varSeen = make(map[string]bool)
	}
	if w.varSeen[path] {
		return
	}
	w.varSeen[path] = true
	w.variables = append(w.variables, path)
}
