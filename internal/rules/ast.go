// internal/rules/ast.go
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

/*
 * Rule abstract syntax tree.
 *
 * Rules arrive as JSON documents in a recursive shape:
 *   - a bare scalar (string, number, boolean, null) is a literal
 *   - an array is a list whose elements are themselves rules
 *   - an object with exactly one key applies the operator named by
 *     the key to its value, which holds the operand rules
 *
 * {"<": [{"var": "monthlyIncome"}, 2500]} therefore reads "the value
 * of monthlyIncome is less than 2500". Objects with zero or multiple
 * keys are rejected at parse time so every node has exactly one
 * meaning.
 *
 * Trees are parsed once at ingestion and shared read-only afterwards;
 * nothing in this package mutates a parsed node.
 */

// Kind discriminates the three shapes a rule node can take.
type Kind int

const (
	KindLiteral Kind = iota
	KindList
	KindOperator
)

// Rule is a single node of a parsed rule tree. Exactly one of the
// shape fields is meaningful, selected by Kind: Value for literals,
// Items for lists, Op/Operands for operator applications.
type Rule struct {
	Kind Kind

	// Value holds a literal: string, float64, bool, or nil.
	Value any

	// Items holds list elements.
	Items []*Rule

	// Op names the operator and Operands holds its arguments.
	Op       string
	Operands []*Rule
}

// Lit builds a literal node. Numeric values are normalized to float64,
// matching what the JSON decoder produces.
func Lit(v any) *Rule {
	switch n := v.(type) {
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case float32:
		v = float64(n)
	}
	return &Rule{Kind: KindLiteral, Value: v}
}

// ListOf builds a list node from the given elements.
func ListOf(items ...*Rule) *Rule {
	return &Rule{Kind: KindList, Items: items}
}

// Apply builds an operator application node.
func Apply(op string, operands ...*Rule) *Rule {
	return &Rule{Kind: KindOperator, Op: op, Operands: operands}
}

// Var builds a variable lookup node for a dotted context path.
func Var(path string) *Rule {
	return Apply("var", Lit(path))
}

// ParseRule decodes a JSON document into a rule tree.
func ParseRule(data []byte) (*Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rule: %w", err)
	}
	return &r, nil
}

// UnmarshalJSON decodes one node. The operand position of an operator
// object may be a JSON array (one operand per element) or any other
// value (a single operand), so {"var": "age"} and {"var": ["age"]}
// parse to the same tree.
func (r *Rule) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty rule node")
	}
	switch data[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj) != 1 {
			return fmt.Errorf("operator object must have exactly one key, got %d", len(obj))
		}
		for op, raw := range obj {
			operands, err := parseOperands(raw)
			if err != nil {
				return fmt.Errorf("operator %q: %w", op, err)
			}
			r.Kind = KindOperator
			r.Op = op
			r.Operands = operands
		}
		return nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return err
		}
		items := make([]*Rule, len(elems))
		for i, raw := range elems {
			item := new(Rule)
			if err := json.Unmarshal(raw, item); err != nil {
				return err
			}
			items[i] = item
		}
		r.Kind = KindList
		r.Items = items
		return nil
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		r.Kind = KindLiteral
		r.Value = v
		return nil
	}
}

func parseOperands(raw json.RawMessage) ([]*Rule, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		operands := make([]*Rule, len(elems))
		for i, e := range elems {
			operand := new(Rule)
			if err := json.Unmarshal(e, operand); err != nil {
				return nil, err
			}
			operands[i] = operand
		}
		return operands, nil
	}
	operand := new(Rule)
	if err := json.Unmarshal(trimmed, operand); err != nil {
		return nil, err
	}
	return []*Rule{operand}, nil
}

// MarshalJSON renders the node back to rule JSON. Operators with a
// single operand use the bare form, so the common {"var": "x"} shape
// survives a round trip.
func (r *Rule) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindList:
		if r.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.Items)
	case KindOperator:
		var operands any
		switch len(r.Operands) {
		case 0:
			operands = []*Rule{}
		case 1:
			operands = r.Operands[0]
		default:
			operands = r.Operands
		}
		return json.Marshal(map[string]any{r.Op: operands})
	default:
		return json.Marshal(r.Value)
	}
}

// String renders the node as compact JSON for logs and messages.
func (r *Rule) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("<invalid rule: %v>", err)
	}
	return string(data)
}
