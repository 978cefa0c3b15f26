// internal/rules/operators.go
package rules

import (
	"math"
	"reflect"
	"strings"
)

/*
 * Standard operator set.
 *
 * Implements the comparison, arithmetic, membership and string
 * operators shared by every deployment. Comparison semantics follow
 * the upstream rule language: loose equality coerces numeric strings
 * and booleans before comparing, strict equality requires matching
 * types, and ordering over incomparable operands is false rather than
 * an error so rules stay total over sparse household data.
 *
 * Arithmetic is stricter: operands that cannot be read as numbers
 * raise TypeMismatch, and division or remainder by zero raises
 * DivisionByZero. A rule author doing arithmetic over a field wants
 * to hear about bad data; a comparison is a filter.
 */

// StandardRegistry returns a fresh registry holding the standard
// operator set. Callers may mutate the result freely.
func StandardRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDescribed("==", "equals", opLooseEqual)
	r.RegisterDescribed("===", "is exactly", opStrictEqual)
	r.RegisterDescribed("!=", "does not equal", opLooseNotEqual)
	r.RegisterDescribed("!==", "is not exactly", opStrictNotEqual)
	r.RegisterDescribed("<", "is less than", opLess)
	r.RegisterDescribed("<=", "is at most", opLessOrEqual)
	r.RegisterDescribed(">", "is greater than", opGreater)
	r.RegisterDescribed(">=", "is at least", opGreaterOrEqual)
	r.RegisterDescribed("!", "is not", opNot)
	r.RegisterDescribed("!!", "is present", opDoubleNot)
	r.RegisterDescribed("+", "plus", opAdd)
	r.RegisterDescribed("-", "minus", opSubtract)
	r.RegisterDescribed("*", "times", opMultiply)
	r.RegisterDescribed("/", "divided by", opDivide)
	r.RegisterDescribed("%", "modulo", opModulo)
	r.RegisterDescribed("min", "the smallest of", opMin)
	r.RegisterDescribed("max", "the largest of", opMax)
	r.RegisterDescribed("in", "is one of", opIn)
	r.RegisterDescribed("merge", "combined into one list", opMerge)
	r.RegisterDescribed("cat", "joined together", opCat)
	r.RegisterDescribed("substr", "a part of", opSubstr)
	return r
}

func wantArgs(op string, args []any, want int) error {
	if len(args) != want {
		return newEvalError(ErrBadOperand, op, "expects %d operands, got %d", want, len(args))
	}
	return nil
}

func wantAtLeast(op string, args []any, min int) error {
	if len(args) < min {
		return newEvalError(ErrBadOperand, op, "expects at least %d operands, got %d", min, len(args))
	}
	return nil
}

// looseEqual compares with the coercions of the upstream language:
// values comparable as numbers compare numerically (so "5" == 5 and
// true == 1), otherwise like types compare directly and unlike types
// are unequal. Lists and objects compare structurally.
func looseEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if af, aok := looseNumber(a); aok {
		if bf, bok := looseNumber(b); bok {
			return af == bf
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as == bs
		}
	}
	return reflect.DeepEqual(a, b)
}

// strictEqual requires matching types before comparing. Numbers of
// any Go width count as one type.
func strictEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if af, aok := ToNumber(a); aok {
		bf, bok := ToNumber(b)
		return bok && af == bf
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return reflect.DeepEqual(a, b)
}

// compareOrder returns -1/0/1 when a and b are orderable: two strings
// compare lexicographically, everything else compares numerically
// after loose coercion. The second return is false when no ordering
// exists, in which case ordering operators answer false.
func compareOrder(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), true
		}
	}
	af, aok := looseNumber(a)
	bf, bok := looseNumber(b)
	if !aok || !bok || math.IsNaN(af) || math.IsNaN(bf) {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func opLooseEqual(args []any, _ Context) (any, error) {
	if err := wantArgs("==", args, 2); err != nil {
		return nil, err
	}
	return looseEqual(args[0], args[1]), nil
}

func opLooseNotEqual(args []any, _ Context) (any, error) {
	if err := wantArgs("!=", args, 2); err != nil {
		return nil, err
	}
	return !looseEqual(args[0], args[1]), nil
}

func opStrictEqual(args []any, _ Context) (any, error) {
	if err := wantArgs("===", args, 2); err != nil {
		return nil, err
	}
	return strictEqual(args[0], args[1]), nil
}

func opStrictNotEqual(args []any, _ Context) (any, error) {
	if err := wantArgs("!==", args, 2); err != nil {
		return nil, err
	}
	return !strictEqual(args[0], args[1]), nil
}

func opLess(args []any, _ Context) (any, error) {
	if err := wantArgs("<", args, 2); err != nil {
		return nil, err
	}
	c, ok := compareOrder(args[0], args[1])
	return ok && c < 0, nil
}

func opLessOrEqual(args []any, _ Context) (any, error) {
	if err := wantArgs("<=", args, 2); err != nil {
		return nil, err
	}
	c, ok := compareOrder(args[0], args[1])
	return ok && c <= 0, nil
}

func opGreater(args []any, _ Context) (any, error) {
	if err := wantArgs(">", args, 2); err != nil {
		return nil, err
	}
	c, ok := compareOrder(args[0], args[1])
	return ok && c > 0, nil
}

func opGreaterOrEqual(args []any, _ Context) (any, error) {
	if err := wantArgs(">=", args, 2); err != nil {
		return nil, err
	}
	c, ok := compareOrder(args[0], args[1])
	return ok && c >= 0, nil
}

func opNot(args []any, _ Context) (any, error) {
	if err := wantArgs("!", args, 1); err != nil {
		return nil, err
	}
	return !Truthy(args[0]), nil
}

func opDoubleNot(args []any, _ Context) (any, error) {
	if err := wantArgs("!!", args, 1); err != nil {
		return nil, err
	}
	return Truthy(args[0]), nil
}

func numericArgs(op string, args []any) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		f, ok := looseNumber(a)
		if !ok {
			return nil, newEvalError(ErrTypeMismatch, op, "operand %d is not a number: %v", i, a)
		}
		nums[i] = f
	}
	return nums, nil
}

func opAdd(args []any, _ Context) (any, error) {
	if err := wantAtLeast("+", args, 1); err != nil {
		return nil, err
	}
	nums, err := numericArgs("+", args)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum, nil
}

// opSubtract is unary negation with one operand, subtraction with two.
func opSubtract(args []any, _ Context) (any, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, newEvalError(ErrBadOperand, "-", "expects 1 or 2 operands, got %d", len(args))
	}
	nums, err := numericArgs("-", args)
	if err != nil {
		return nil, err
	}
	if len(nums) == 1 {
		return -nums[0], nil
	}
	return nums[0] - nums[1], nil
}

func opMultiply(args []any, _ Context) (any, error) {
	if err := wantAtLeast("*", args, 1); err != nil {
		return nil, err
	}
	nums, err := numericArgs("*", args)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, n := range nums {
		product *= n
	}
	return product, nil
}

func opDivide(args []any, _ Context) (any, error) {
	if err := wantArgs("/", args, 2); err != nil {
		return nil, err
	}
	nums, err := numericArgs("/", args)
	if err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return nil, newEvalError(ErrDivisionByZero, "/", "division by zero")
	}
	return nums[0] / nums[1], nil
}

func opModulo(args []any, _ Context) (any, error) {
	if err := wantArgs("%", args, 2); err != nil {
		return nil, err
	}
	nums, err := numericArgs("%", args)
	if err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return nil, newEvalError(ErrDivisionByZero, "%", "remainder by zero")
	}
	return math.Mod(nums[0], nums[1]), nil
}

func opMin(args []any, _ Context) (any, error) {
	if err := wantAtLeast("min", args, 1); err != nil {
		return nil, err
	}
	nums, err := numericArgs("min", args)
	if err != nil {
		return nil, err
	}
	least := nums[0]
	for _, n := range nums[1:] {
		if n < least {
			least = n
		}
	}
	return least, nil
}

func opMax(args []any, _ Context) (any, error) {
	if err := wantAtLeast("max", args, 1); err != nil {
		return nil, err
	}
	nums, err := numericArgs("max", args)
	if err != nil {
		return nil, err
	}
	greatest := nums[0]
	for _, n := range nums[1:] {
		if n > greatest {
			greatest = n
		}
	}
	return greatest, nil
}

// opIn reports membership: a list haystack uses loose equality per
// element, a string haystack is a substring test. Any other haystack
// is false.
func opIn(args []any, _ Context) (any, error) {
	if err := wantArgs("in", args, 2); err != nil {
		return nil, err
	}
	switch hay := args[1].(type) {
	case []any:
		for _, item := range hay {
			if looseEqual(args[0], item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		return strings.Contains(hay, ToString(args[0])), nil
	}
	return false, nil
}

// opMerge flattens one level: list operands contribute their elements,
// scalars contribute themselves.
func opMerge(args []any, _ Context) (any, error) {
	merged := make([]any, 0, len(args))
	for _, a := range args {
		if items, ok := a.([]any); ok {
			merged = append(merged, items...)
			continue
		}
		merged = append(merged, a)
	}
	return merged, nil
}

func opCat(args []any, _ Context) (any, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(ToString(a))
	}
	return b.String(), nil
}

// opSubstr slices a string by rune offsets with the negative-index
// conventions of the upstream language: a negative offset counts from
// the end, a negative length stops that many runes before the end.
func opSubstr(args []any, _ Context) (any, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, newEvalError(ErrBadOperand, "substr", "expects 2 or 3 operands, got %d", len(args))
	}
	runes := []rune(ToString(args[0]))
	offset, ok := looseNumber(args[1])
	if !ok {
		return nil, newEvalError(ErrTypeMismatch, "substr", "offset is not a number: %v", args[1])
	}
	start := int(offset)
	if start < 0 {
		start += len(runes)
		if start < 0 {
			start = 0
		}
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := len(runes)
	if len(args) == 3 {
		length, ok := looseNumber(args[2])
		if !ok {
			return nil, newEvalError(ErrTypeMismatch, "substr", "length is not a number: %v", args[2])
		}
		n := int(length)
		if n < 0 {
			end = len(runes) + n
		} else {
			end = start + n
		}
		if end > len(runes) {
			end = len(runes)
		}
		if end < start {
			end = start
		}
	}
	return string(runes[start:end]), nil
}
