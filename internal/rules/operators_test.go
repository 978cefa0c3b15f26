// internal/rules/operators_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// evalJSON parses and evaluates src against ctx with the standard
// operator set.
func evalJSON(t *testing.T, src string, ctx Context) (any, error) {
	t.Helper()
	rule := mustParse(t, src)
	return Evaluate(rule, ctx, EvalOptions{})
}

func TestOperators_Equality(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{name: "loose equal numbers", src: `{"==": [1, 1]}`, want: true},
		{name: "loose equal numeric string", src: `{"==": ["5", 5]}`, want: true},
		{name: "loose equal bool and number", src: `{"==": [true, 1]}`, want: true},
		{name: "loose equal mixed types", src: `{"==": ["a", 1]}`, want: false},
		{name: "loose equal empty string vs zero", src: `{"==": ["", 0]}`, want: false},
		{name: "loose equal nulls", src: `{"==": [null, null]}`, want: true},
		{name: "loose equal null vs zero", src: `{"==": [null, 0]}`, want: false},
		{name: "loose not equal", src: `{"!=": ["5", 6]}`, want: true},
		{name: "strict equal same type", src: `{"===": [5, 5]}`, want: true},
		{name: "strict equal rejects coercion", src: `{"===": ["5", 5]}`, want: false},
		{name: "strict not equal", src: `{"!==": ["5", 5]}`, want: true},
		{name: "strict equal strings", src: `{"===": ["a", "a"]}`, want: true},
		{
			name: "loose equal against missing variable",
			src:  `{"==": [{"var": "absent"}, 18]}`,
			ctx:  Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOperators_Ordering(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{name: "less than", src: `{"<": [1, 2]}`, want: true},
		{name: "less or equal boundary", src: `{"<=": [2, 2]}`, want: true},
		{name: "greater than", src: `{">": [3, 2]}`, want: true},
		{name: "greater or equal boundary", src: `{">=": [2, 2]}`, want: true},
		{name: "numeric string coerces", src: `{"<": ["9", 10]}`, want: true},
		{name: "strings compare lexicographically", src: `{"<": ["apple", "banana"]}`, want: true},
		{name: "incomparable is false", src: `{"<": [null, 5]}`, want: false},
		{name: "incomparable reversed is false", src: `{">": [null, 5]}`, want: false},
		{name: "word string is incomparable", src: `{"<": ["abc", 5]}`, want: false},
		{
			name: "missing variable compares false both ways",
			src:  `{"and": [{"!": {"<": [{"var": "gone"}, 5]}}, {"!": {">": [{"var": "gone"}, 5]}}]}`,
			ctx:  Context{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOperators_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{name: "sum", src: `{"+": [1, 2, 3]}`, want: 6.0},
		{name: "sum coerces numeric strings", src: `{"+": ["1", 2]}`, want: 3.0},
		{name: "unary minus", src: `{"-": [4]}`, want: -4.0},
		{name: "subtraction", src: `{"-": [10, 4]}`, want: 6.0},
		{name: "product", src: `{"*": [2, 3, 4]}`, want: 24.0},
		{name: "division", src: `{"/": [9, 3]}`, want: 3.0},
		{name: "modulo", src: `{"%": [7, 3]}`, want: 1.0},
		{name: "min", src: `{"min": [4, 2, 9]}`, want: 2.0},
		{name: "max", src: `{"max": [4, 2, 9]}`, want: 9.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, nil)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOperators_ArithmeticErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind ErrKind
	}{
		{name: "division by zero", src: `{"/": [1, 0]}`, wantKind: ErrDivisionByZero},
		{name: "remainder by zero", src: `{"%": [1, 0]}`, wantKind: ErrDivisionByZero},
		{name: "non-numeric operand", src: `{"+": [1, "abc"]}`, wantKind: ErrTypeMismatch},
		{name: "null operand", src: `{"*": [1, null]}`, wantKind: ErrTypeMismatch},
		{name: "wrong arity", src: `{"/": [1]}`, wantKind: ErrBadOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalJSON(t, tt.src, nil)
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Evaluate(%s) error = %v, want *EvalError", tt.src, err)
			}
			if evalErr.Kind != tt.wantKind {
				t.Errorf("Evaluate(%s) kind = %v, want %v", tt.src, evalErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestOperators_Membership(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{
			name: "in list",
			src:  `{"in": [{"var": "state"}, ["CA", "OR", "WA"]]}`,
			ctx:  Context{"state": "OR"},
			want: true,
		},
		{
			name: "in list miss",
			src:  `{"in": ["NV", ["CA", "OR", "WA"]]}`,
			want: false,
		},
		{
			name: "in list loose equality",
			src:  `{"in": ["2", [1, 2, 3]]}`,
			want: true,
		},
		{name: "substring", src: `{"in": ["Spring", "Springfield"]}`, want: true},
		{name: "substring miss", src: `{"in": ["Shell", "Springfield"]}`, want: false},
		{name: "bad haystack is false", src: `{"in": ["x", 42]}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOperators_Strings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{name: "cat", src: `{"cat": ["house", "hold"]}`, want: "household"},
		{name: "cat stringifies numbers", src: `{"cat": ["size ", 4]}`, want: "size 4"},
		{name: "cat ignores null", src: `{"cat": ["a", null, "b"]}`, want: "ab"},
		{name: "substr offset", src: `{"substr": ["jsonlogic", 4]}`, want: "logic"},
		{name: "substr negative offset", src: `{"substr": ["jsonlogic", -5]}`, want: "logic"},
		{name: "substr with length", src: `{"substr": ["jsonlogic", 1, 3]}`, want: "son"},
		{name: "substr negative length", src: `{"substr": ["jsonlogic", 4, -2]}`, want: "log"},
		{name: "substr offset past end", src: `{"substr": ["ab", 9]}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, nil)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOperators_Merge(t *testing.T) {
	got, err := evalJSON(t, `{"merge": [["a", "b"], "c", ["d"]]}`, nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	want := []any{"a", "b", "c", "d"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestOperators_Negation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{name: "not falsy", src: `{"!": [false]}`, want: true},
		{name: "not truthy", src: `{"!": ["value"]}`, want: false},
		{name: "double not presence", src: `{"!!": [{"var": "income"}]}`, ctx: Context{"income": 100.0}, want: true},
		{name: "double not absence", src: `{"!!": [{"var": "income"}]}`, ctx: Context{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalJSON(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}
