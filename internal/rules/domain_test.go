// internal/rules/domain_test.go
package rules

import (
	"errors"
	"testing"
)

// evalDomain evaluates src with the benefits-domain operator set.
func evalDomain(t *testing.T, src string, ctx Context) (any, error) {
	t.Helper()
	rule := mustParse(t, src)
	return Evaluate(rule, ctx, EvalOptions{Registry: DomainRegistry()})
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{name: "inside range", src: `{"between": [25, 18, 65]}`, want: true},
		{name: "lower bound inclusive", src: `{"between": [18, 18, 65]}`, want: true},
		{name: "upper bound inclusive", src: `{"between": [65, 18, 65]}`, want: true},
		{name: "below range", src: `{"between": [17, 18, 65]}`, want: false},
		{name: "above range", src: `{"between": [66, 18, 65]}`, want: false},
		{name: "numeric string coerces", src: `{"between": ["40", 18, 65]}`, want: true},
		{name: "strings compare lexicographically", src: `{"between": ["m", "a", "z"]}`, want: true},
		{name: "incomparable value is false", src: `{"between": [null, 18, 65]}`, want: false},
		{
			name: "variable operand",
			src:  `{"between": [{"var": "householdSize"}, 1, 8]}`,
			ctx:  Context{"householdSize": 4.0},
			want: true,
		},
		{
			name: "missing variable is false",
			src:  `{"between": [{"var": "householdSize"}, 1, 8]}`,
			ctx:  Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalDomain(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestBetween_Arity(t *testing.T) {
	_, err := evalDomain(t, `{"between": [5, 1]}`, nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) || evalErr.Kind != ErrBadOperand {
		t.Fatalf("Evaluate() error = %v, want BadOperand", err)
	}
}

func TestAgeFromDOB(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		evaluatedAt string
		ctx         Context
		want        any
	}{
		{
			name:        "birthday already passed",
			src:         `{"age_from_dob": ["2000-03-10"]}`,
			evaluatedAt: "2024-06-15T00:00:00Z",
			want:        24.0,
		},
		{
			name:        "birthday today",
			src:         `{"age_from_dob": ["2000-06-15"]}`,
			evaluatedAt: "2024-06-15T00:00:00Z",
			want:        24.0,
		},
		{
			name:        "birthday tomorrow",
			src:         `{"age_from_dob": ["2000-06-16"]}`,
			evaluatedAt: "2024-06-15T00:00:00Z",
			want:        23.0,
		},
		{
			name:        "day before birthday later in month",
			src:         `{"age_from_dob": ["2000-06-15"]}`,
			evaluatedAt: "2024-06-14T23:59:00Z",
			want:        23.0,
		},
		{
			name:        "plain date timestamp",
			src:         `{"age_from_dob": ["1950-01-01"]}`,
			evaluatedAt: "2024-06-15",
			want:        74.0,
		},
		{
			name:        "date of birth from variable",
			src:         `{"age_from_dob": [{"var": "dateOfBirth"}]}`,
			evaluatedAt: "2024-06-15T00:00:00Z",
			ctx:         Context{"dateOfBirth": "1990-12-01"},
			want:        33.0,
		},
		{
			name:        "rfc3339 date of birth",
			src:         `{"age_from_dob": ["1990-12-01T08:30:00Z"]}`,
			evaluatedAt: "2024-06-15T00:00:00Z",
			want:        33.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Context{EvaluatedAtKey: tt.evaluatedAt}
			for k, v := range tt.ctx {
				ctx[k] = v
			}
			got, err := evalDomain(t, tt.src, ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestAgeFromDOB_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind ErrKind
	}{
		{name: "non-string operand", src: `{"age_from_dob": [19900101]}`, wantKind: ErrTypeMismatch},
		{name: "unparseable date", src: `{"age_from_dob": ["12/01/1990"]}`, wantKind: ErrBadOperand},
		{name: "missing variable", src: `{"age_from_dob": [{"var": "dateOfBirth"}]}`, wantKind: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalDomain(t, tt.src, Context{EvaluatedAtKey: "2024-06-15T00:00:00Z"})
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

// Age computed inside an element predicate still reads the evaluation
// timestamp from the top-level context, not the element scope.
func TestAgeFromDOB_InsidePredicate(t *testing.T) {
	src := `{"some": [{"var": "members"}, {">=": [{"age_from_dob": [{"var": "dob"}]}, 65]}]}`
	ctx := Context{
		EvaluatedAtKey: "2024-06-15T00:00:00Z",
		"members": []any{
			map[string]any{"dob": "2010-04-01"},
			map[string]any{"dob": "1950-04-01"},
		},
	}
	got, err := evalDomain(t, src, ctx)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil", err)
	}
	if got != true {
		t.Errorf("Evaluate() = %v, want true", got)
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ctx  Context
		want any
	}{
		{
			name: "match on category",
			src:  `{"matches_any": [{"var": "category"}, ["disabled", "veteran", "senior"]]}`,
			ctx:  Context{"category": "veteran"},
			want: true,
		},
		{
			name: "no match",
			src:  `{"matches_any": ["student", ["disabled", "veteran", "senior"]]}`,
			want: false,
		},
		{name: "loose numeric match", src: `{"matches_any": ["2", [1, 2, 3]]}`, want: true},
		{name: "empty candidate list", src: `{"matches_any": ["x", []]}`, want: false},
		{
			name: "missing variable",
			src:  `{"matches_any": [{"var": "category"}, ["veteran"]]}`,
			ctx:  Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalDomain(t, tt.src, tt.ctx)
			if err != nil {
				t.Fatalf("Evaluate(%s) error = %v, want nil", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%s) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestMatchesAny_BadCandidates(t *testing.T) {
	_, err := evalDomain(t, `{"matches_any": ["x", "not-a-list"]}`, nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) || evalErr.Kind != ErrTypeMismatch {
		t.Fatalf("Evaluate() error = %v, want TypeMismatch", err)
	}
}
