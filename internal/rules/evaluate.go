// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"strconv"
)

/*
 * Rule evaluation.
 *
 * Evaluation is a recursive walk of the parsed tree against a data
 * context. Literals yield themselves, lists yield evaluated element
 * slices, and operator applications dispatch by name:
 *
 *   1. per-call overrides (EvalOptions.Operators) win by name
 *   2. core forms (var, if, and, or, map, filter, reduce, all, some,
 *      none) evaluate inline because they control which operands run
 *      and in which scope
 *   3. everything else resolves in the registry, operands evaluated
 *      eagerly left to right
 *
 * Failure handling splits two ways. Missing data is not an error: an
 * unresolved variable yields its default or nil, and comparisons over
 * nil are simply false. Malformed rules and bad arithmetic are
 * errors, reported as *EvalError with a machine-readable kind. A
 * recover at the exported boundary converts panics from custom
 * operators into ErrOperatorPanic so one bad extension cannot take
 * down a batch.
 *
 * Evaluation is deterministic and mutation-free: the same tree and an
 * equal context always produce the same result, and neither is ever
 * written to. Depth is budgeted so hostile nesting fails fast instead
 * of exhausting the stack.
 */

// Context carries the flat key-value data a rule evaluates against.
type Context map[string]any

// DefaultMaxEvalDepth bounds recursion during evaluation. Nesting
// deeper than this is hostile input, not a real eligibility rule;
// validated rules sit two orders of magnitude under it.
const DefaultMaxEvalDepth = 200

// ErrKind classifies evaluation failures.
type ErrKind int

const (
	// ErrUnknownOperator reports an operator name with no
	// implementation in scope.
	ErrUnknownOperator ErrKind = iota

	// ErrBadOperand reports a wrong operand count or shape.
	ErrBadOperand

	// ErrTypeMismatch reports an operand whose type the operator
	// cannot work with.
	ErrTypeMismatch

	// ErrDivisionByZero reports division or remainder by zero.
	ErrDivisionByZero

	// ErrDepthExceeded reports nesting beyond the evaluation depth
	// limit.
	ErrDepthExceeded

	// ErrOperatorPanic reports a panic recovered from an operator
	// function.
	ErrOperatorPanic
)

// String returns the kind's wire name.
func (k ErrKind) String() string {
	switch k {
	case ErrUnknownOperator:
		return "unknown_operator"
	case ErrBadOperand:
		return "bad_operand"
	case ErrTypeMismatch:
		return "type_mismatch"
	case ErrDivisionByZero:
		return "division_by_zero"
	case ErrDepthExceeded:
		return "depth_exceeded"
	case ErrOperatorPanic:
		return "operator_panic"
	}
	return "unknown"
}

// EvalError is the error type all evaluation failures share.
type EvalError struct {
	Kind    ErrKind
	Op      string
	Message string
}

func (e *EvalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: operator %q: %s", e.Kind, e.Op, e.Message)
}

func newEvalError(kind ErrKind, op, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// EvalOptions tunes a single evaluation.
type EvalOptions struct {
	// MaxDepth overrides DefaultMaxEvalDepth when positive.
	MaxDepth int

	// Registry supplies the operator set. StandardRegistry() is used
	// when nil; engines evaluating in a loop should build a registry
	// once and pass it here.
	Registry *Registry

	// Operators are per-call overrides that win by name, including
	// over core forms. Overrides receive eagerly evaluated operands.
	Operators map[string]OperatorFunc
}

// Evaluate runs rule against ctx and returns the computed value.
// Failures are *EvalError; missing context data is not a failure.
func Evaluate(rule *Rule, ctx Context, opts EvalOptions) (result any, err error) {
	ev := &evaluator{
		root:      ctx,
		registry:  opts.Registry,
		overrides: opts.Operators,
		maxDepth:  opts.MaxDepth,
	}
	if ev.registry == nil {
		ev.registry = StandardRegistry()
	}
	if ev.maxDepth <= 0 {
		ev.maxDepth = DefaultMaxEvalDepth
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = newEvalError(ErrOperatorPanic, "", "recovered: %v", r)
		}
	}()
	return ev.eval(rule, map[string]any(ctx), 0)
}

type evaluator struct {
	root      Context
	registry  *Registry
	overrides map[string]OperatorFunc
	maxDepth  int
}

func (ev *evaluator) eval(rule *Rule, scope any, depth int) (any, error) {
	if rule == nil {
		return nil, nil
	}
	if depth > ev.maxDepth {
		return nil, newEvalError(ErrDepthExceeded, "", "rule nesting exceeds %d levels", ev.maxDepth)
	}
	switch rule.Kind {
	case KindLiteral:
		return rule.Value, nil
	case KindList:
		items := make([]any, len(rule.Items))
		for i, item := range rule.Items {
			v, err := ev.eval(item, scope, depth+1)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	case KindOperator:
		return ev.apply(rule, scope, depth)
	}
	return nil, newEvalError(ErrBadOperand, "", "unrecognized node kind %d", rule.Kind)
}

func (ev *evaluator) apply(rule *Rule, scope any, depth int) (any, error) {
	if fn, ok := ev.overrides[rule.Op]; ok {
		args, err := ev.evalOperands(rule.Operands, scope, depth)
		if err != nil {
			return nil, err
		}
		return fn(args, ev.root)
	}
	switch rule.Op {
	case "var":
		return ev.evalVar(rule, scope, depth)
	case "if":
		return ev.evalIf(rule, scope, depth)
	case "and":
		return ev.evalAnd(rule, scope, depth)
	case "or":
		return ev.evalOr(rule, scope, depth)
	case "map", "filter", "reduce", "all", "some", "none":
		return ev.evalArray(rule, scope, depth)
	}
	if fn, ok := ev.registry.Resolve(rule.Op); ok {
		args, err := ev.evalOperands(rule.Operands, scope, depth)
		if err != nil {
			return nil, err
		}
		return fn(args, ev.root)
	}
	return nil, newEvalError(ErrUnknownOperator, rule.Op, "no such operator")
}

func (ev *evaluator) evalOperands(operands []*Rule, scope any, depth int) ([]any, error) {
	args := make([]any, len(operands))
	for i, operand := range operands {
		v, err := ev.eval(operand, scope, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// evalVar resolves a variable reference. The path operand is taken
// literally, never evaluated; a second operand supplies a default that
// is evaluated only on a miss. Unresolvable paths yield the default or
// nil: missing household data is an answer, not an error.
func (ev *evaluator) evalVar(rule *Rule, scope any, depth int) (any, error) {
	if len(rule.Operands) == 0 {
		return nil, newEvalError(ErrBadOperand, "var", "missing path operand")
	}
	pathNode := rule.Operands[0]
	if pathNode == nil || pathNode.Kind != KindLiteral {
		return nil, newEvalError(ErrBadOperand, "var", "path must be a literal")
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
		return nil, newEvalError(ErrBadOperand, "var", "path must be a string, got %v", p)
	}
	if v, ok := Lookup(scope, path); ok {
		return v, nil
	}
	if len(rule.Operands) > 1 {
		return ev.eval(rule.Operands[1], scope, depth+1)
	}
	return nil, nil
}

// evalIf walks condition/result pairs lazily: only the branch selected
// by the first truthy condition runs. An odd trailing operand is the
// else branch; without one the result is nil.
func (ev *evaluator) evalIf(rule *Rule, scope any, depth int) (any, error) {
	ops := rule.Operands
	for len(ops) >= 2 {
		cond, err := ev.eval(ops[0], scope, depth+1)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.eval(ops[1], scope, depth+1)
		}
		ops = ops[2:]
	}
	if len(ops) == 1 {
		return ev.eval(ops[0], scope, depth+1)
	}
	return nil, nil
}

// evalAnd short-circuits on the first falsy operand. The result is
// the decision, not the last operand value.
func (ev *evaluator) evalAnd(rule *Rule, scope any, depth int) (any, error) {
	for _, operand := range rule.Operands {
		v, err := ev.eval(operand, scope, depth+1)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// evalOr short-circuits on the first truthy operand.
func (ev *evaluator) evalOr(rule *Rule, scope any, depth int) (any, error) {
	for _, operand := range rule.Operands {
		v, err := ev.eval(operand, scope, depth+1)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

// evalArray implements the array predicates. The first operand names
// the source array (nil counts as empty), the second is a lambda rule
// evaluated once per element with the element as the whole scope, the
// way the upstream language scopes its predicates. reduce instead
// scopes {"current": element, "accumulator": acc} and takes an
// optional initial accumulator as a third operand.
func (ev *evaluator) evalArray(rule *Rule, scope any, depth int) (any, error) {
	op := rule.Op
	if len(rule.Operands) < 2 {
		return nil, newEvalError(ErrBadOperand, op, "expects an array operand and a predicate, got %d operands", len(rule.Operands))
	}
	src, err := ev.eval(rule.Operands[0], scope, depth+1)
	if err != nil {
		return nil, err
	}
	var items []any
	switch s := src.(type) {
	case nil:
	case []any:
		items = s
	default:
		return nil, newEvalError(ErrTypeMismatch, op, "first operand must be an array, got %T", src)
	}
	lambda := rule.Operands[1]
	switch op {
	case "map":
		out := make([]any, len(items))
		for i, item := range items {
			v, err := ev.eval(lambda, item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "filter":
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := ev.eval(lambda, item, depth+1)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				out = append(out, item)
			}
		}
		return out, nil
	case "all":
		// all over an empty array is false, matching the upstream
		// language.
		if len(items) == 0 {
			return false, nil
		}
		for _, item := range items {
			v, err := ev.eval(lambda, item, depth+1)
			if err != nil {
				return nil, err
			}
			if !Truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case "some":
		for _, item := range items {
			v, err := ev.eval(lambda, item, depth+1)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				return true, nil
			}
		}
		return false, nil
	case "none":
		for _, item := range items {
			v, err := ev.eval(lambda, item, depth+1)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case "reduce":
		var acc any
		if len(rule.Operands) > 2 {
			acc, err = ev.eval(rule.Operands[2], scope, depth+1)
			if err != nil {
				return nil, err
			}
		}
		for _, item := range items {
			frame := map[string]any{"current": item, "accumulator": acc}
			acc, err = ev.eval(lambda, frame, depth+1)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
	return nil, newEvalError(ErrUnknownOperator, op, "no such operator")
}
