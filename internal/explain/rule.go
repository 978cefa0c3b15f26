// Package explain renders rules and evaluation results as natural
// language: what a rule requires, why a determination came out the
// way it did, what would change a negative outcome, and how two
// evaluations of the same rule diverged.
//
// Everything here is a derived view. Nothing is persisted and no
// function in this package evaluates, stores or mutates anything; the
// explainer never fails, it degrades to blunter phrasing.
package explain

import (
	"fmt"
	"strings"

	"github.com/eligoproject/eligo/internal/rules"
)

// Level selects how technical an explanation reads.
type Level int

const (
	// Simple produces short phrases aimed at applicants.
	Simple Level = iota

	// Standard produces complete sentences aimed at caseworkers.
	Standard

	// Technical produces the raw structural form aimed at rule authors.
	Technical
)

// String returns the CLI spelling of the level.
func (l Level) String() string {
	switch l {
	case Simple:
		return "simple"
	case Technical:
		return "technical"
	}
	return "standard"
}

// ParseLevel maps a CLI spelling to a Level. The empty string means
// Standard.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "simple":
		return Simple, nil
	case "", "standard":
		return Standard, nil
	case "technical":
		return Technical, nil
	}
	return Standard, fmt.Errorf("unknown explanation level %q (want simple, standard or technical)", s)
}

// Complexity bands reported on rule explanations.
const (
	BandSimple      = "simple"
	BandModerate    = "moderate"
	BandComplex     = "complex"
	BandVeryComplex = "very-complex"
)

// complexityBand classifies a complexity score for human readers.
func complexityBand(score int) string {
	switch {
	case score < 20:
		return BandSimple
	case score < 50:
		return BandModerate
	case score < 80:
		return BandComplex
	}
	return BandVeryComplex
}

// Node is one element of an explanation tree. The tree mirrors the
// rule: one node per operator, variable reference or literal.
type Node struct {
	Kind     string  `json:"kind"`
	Operator string  `json:"operator,omitempty"`
	Text     string  `json:"text"`
	Children []*Node `json:"children,omitempty"`
}

// RuleExplanation describes what a rule requires without evaluating
// it.
type RuleExplanation struct {
	Summary    string   `json:"summary"`
	Level      Level    `json:"-"`
	Band       string   `json:"band"`
	Complexity int      `json:"complexity"`
	Variables  []string `json:"variables"`
	Operators  []string `json:"operators"`
	Tree       *Node    `json:"tree,omitempty"`
}

// descriptions supplies fallback phrases for operators without a
// dedicated template, including the domain set.
var descriptions = rules.DomainRegistry()

// Rule explains a rule at the requested level. The validator harvest
// supplies the variables, operators and complexity band; the summary
// and tree render the structure as prose, or as the raw structural
// form at the Technical level.
func Rule(rule *rules.Rule, level Level) RuleExplanation {
	report := rules.Validate(rule, rules.ValidateOptions{})
	ex := RuleExplanation{
		Level:      level,
		Band:       complexityBand(report.Complexity),
		Complexity: report.Complexity,
		Variables:  report.Variables,
		Operators:  report.Operators,
	}
	if rule == nil {
		ex.Summary = "no rule provided"
		return ex
	}
	ex.Summary = phrase(rule, level)
	ex.Tree = buildTree(rule, level)
	return ex
}

// phrase renders a subtree as one sentence fragment.
func phrase(r *rules.Rule, level Level) string {
	if r == nil {
		return "nothing"
	}
	if level == Technical {
		return r.String()
	}
	switch r.Kind {
	case rules.KindLiteral:
		return literalPhrase(r.Value)
	case rules.KindList:
		return listPhrase(r.Items, level)
	case rules.KindOperator:
		return operatorPhrase(r, level)
	}
	return "an unrecognized condition"
}

func literalPhrase(v any) string {
	switch s := v.(type) {
	case nil:
		return "nothing"
	case string:
		return fmt.Sprintf("%q", s)
	}
	return rules.ToString(v)
}

func listPhrase(items []*rules.Rule, level Level) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = phrase(item, level)
	}
	return strings.Join(parts, ", ")
}

func operandPhrases(operands []*rules.Rule, level Level) []string {
	parts := make([]string, len(operands))
	for i, operand := range operands {
		parts[i] = phrase(operand, level)
	}
	return parts
}

// operatorPhrase renders one operator application. Each standard
// operator has a template; custom operators fall back to their
// registered description, then to a functional rendering.
func operatorPhrase(r *rules.Rule, level Level) string {
	operands := r.Operands
	switch r.Op {
	case "var":
		return varPhrase(r)
	case "and":
		parts := operandPhrases(operands, level)
		if level == Simple {
			return strings.Join(parts, " and ")
		}
		return fmt.Sprintf("all of the following are true: %s", strings.Join(parts, "; "))
	case "or":
		parts := operandPhrases(operands, level)
		if level == Simple {
			return strings.Join(parts, " or ")
		}
		return fmt.Sprintf("at least one of the following is true: %s", strings.Join(parts, "; "))
	case "!":
		if len(operands) == 1 {
			if level == Simple {
				return "not " + phrase(operands[0], level)
			}
			return "it is not the case that " + phrase(operands[0], level)
		}
	case "!!":
		if len(operands) == 1 {
			return phrase(operands[0], level) + " is present"
		}
	case "if":
		return ifPhrase(operands, level)
	case "==", "===", "!=", "!==", "<", "<=", ">", ">=", "in", "matches_any":
		if len(operands) == 2 {
			desc, _ := descriptions.Describe(r.Op)
			return fmt.Sprintf("%s %s %s", phrase(operands[0], level), desc, phrase(operands[1], level))
		}
	case "between":
		if len(operands) == 3 {
			return fmt.Sprintf("%s is between %s and %s",
				phrase(operands[0], level), phrase(operands[1], level), phrase(operands[2], level))
		}
	case "+", "-", "*", "/", "%":
		if len(operands) >= 2 {
			desc, _ := descriptions.Describe(r.Op)
			return strings.Join(operandPhrases(operands, level), " "+desc+" ")
		}
	case "min", "max":
		desc, _ := descriptions.Describe(r.Op)
		return fmt.Sprintf("%s %s", desc, strings.Join(operandPhrases(operands, level), ", "))
	case "all":
		if len(operands) == 2 {
			return fmt.Sprintf("every element of %s satisfies: %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "some":
		if len(operands) == 2 {
			return fmt.Sprintf("at least one element of %s satisfies: %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "none":
		if len(operands) == 2 {
			return fmt.Sprintf("no element of %s satisfies: %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "filter":
		if len(operands) == 2 {
			return fmt.Sprintf("the elements of %s where %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "map":
		if len(operands) == 2 {
			return fmt.Sprintf("each element of %s transformed by %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "reduce":
		if len(operands) >= 2 {
			return fmt.Sprintf("%s folded with %s", phrase(operands[0], level), phrase(operands[1], level))
		}
	case "merge":
		return fmt.Sprintf("%s combined into one list", strings.Join(operandPhrases(operands, level), ", "))
	case "cat":
		return fmt.Sprintf("%s joined together", strings.Join(operandPhrases(operands, level), ", "))
	case "substr":
		if len(operands) >= 1 {
			return fmt.Sprintf("a part of %s", phrase(operands[0], level))
		}
	case "age_from_dob":
		if len(operands) == 1 {
			return fmt.Sprintf("the age derived from %s", phrase(operands[0], level))
		}
	}
	if desc, ok := descriptions.Describe(r.Op); ok {
		if len(operands) == 2 {
			return fmt.Sprintf("%s %s %s", phrase(operands[0], level), desc, phrase(operands[1], level))
		}
		return fmt.Sprintf("%s: %s", desc, strings.Join(operandPhrases(operands, level), ", "))
	}
	return fmt.Sprintf("%s(%s)", r.Op, strings.Join(operandPhrases(operands, level), ", "))
}

func varPhrase(r *rules.Rule) string {
	if len(r.Operands) == 0 || r.Operands[0] == nil || r.Operands[0].Kind != rules.KindLiteral {
		return "a value"
	}
	path, ok := r.Operands[0].Value.(string)
	if !ok || path == "" {
		return "each value"
	}
	return path
}

// ifPhrase renders cond/then pairs with an optional trailing else.
func ifPhrase(operands []*rules.Rule, level Level) string {
	var b strings.Builder
	i := 0
	for ; i+1 < len(operands); i += 2 {
		if i > 0 {
			b.WriteString(", otherwise ")
		}
		fmt.Fprintf(&b, "if %s then %s", phrase(operands[i], level), phrase(operands[i+1], level))
	}
	if i < len(operands) {
		fmt.Fprintf(&b, ", otherwise %s", phrase(operands[i], level))
	}
	if b.Len() == 0 {
		return "an empty conditional"
	}
	return b.String()
}

// buildTree mirrors the rule as an explanation tree. Conjunction
// nodes summarize with a condition count; their children carry the
// sub-phrases.
func buildTree(r *rules.Rule, level Level) *Node {
	if r == nil {
		return nil
	}
	switch r.Kind {
	case rules.KindLiteral:
		return &Node{Kind: "literal", Text: nodeText(r, level)}
	case rules.KindList:
		node := &Node{Kind: "list", Text: nodeText(r, level)}
		for _, item := range r.Items {
			node.Children = append(node.Children, buildTree(item, level))
		}
		return node
	case rules.KindOperator:
		if r.Op == "var" {
			return &Node{Kind: "variable", Operator: r.Op, Text: nodeText(r, level)}
		}
		node := &Node{Kind: "operator", Operator: r.Op, Text: nodeText(r, level)}
		for _, operand := range r.Operands {
			node.Children = append(node.Children, buildTree(operand, level))
		}
		return node
	}
	return &Node{Kind: "unknown", Text: "an unrecognized condition"}
}

// nodeText is the per-node phrase: conjunctions summarize by count so
// deep trees stay readable, everything else reuses the sentence
// templates.
func nodeText(r *rules.Rule, level Level) string {
	if level == Technical {
		return r.String()
	}
	switch {
	case r.Kind == rules.KindList:
		return fmt.Sprintf("a list of %d values", len(r.Items))
	case r.Kind == rules.KindOperator && r.Op == "and":
		return fmt.Sprintf("all of the following are true: %d conditions", len(r.Operands))
	case r.Kind == rules.KindOperator && r.Op == "or":
		return fmt.Sprintf("at least one of the following is true: %d conditions", len(r.Operands))
	}
	return phrase(r, level)
}
