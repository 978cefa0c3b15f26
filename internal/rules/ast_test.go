// internal/rules/ast_test.go
package rules

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mustParse is a test helper; parse failures are test bugs.
func mustParse(t *testing.T, src string) *Rule {
	t.Helper()
	rule, err := ParseRule([]byte(src))
	if err != nil {
		t.Fatalf("ParseRule(%s) error = %v, want nil", src, err)
	}
	return rule
}

func TestParseRule_Shapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want *Rule
	}{
		{
			name: "string literal",
			src:  `"hello"`,
			want: Lit("hello"),
		},
		{
			name: "number literal",
			src:  `42.5`,
			want: Lit(42.5),
		},
		{
			name: "boolean literal",
			src:  `true`,
			want: Lit(true),
		},
		{
			name: "null literal",
			src:  `null`,
			want: Lit(nil),
		},
		{
			name: "list of literals",
			src:  `[1, "two", false]`,
			want: ListOf(Lit(1), Lit("two"), Lit(false)),
		},
		{
			name: "operator with array operands",
			src:  `{"<": [{"var": "monthlyIncome"}, 2500]}`,
			want: Apply("<", Var("monthlyIncome"), Lit(2500)),
		},
		{
			name: "operator with bare operand",
			src:  `{"var": "age"}`,
			want: Var("age"),
		},
		{
			name: "operator with bare object operand",
			src:  `{"!": {"var": "enrolled"}}`,
			want: Apply("!", Var("enrolled")),
		},
		{
			name: "nested conjunction",
			src:  `{"and": [{">=": [{"var": "age"}, 18]}, {"<": [{"var": "income"}, 50000]}]}`,
			want: Apply("and",
				Apply(">=", Var("age"), Lit(18)),
				Apply("<", Var("income"), Lit(50000)),
			),
		},
		{
			name: "membership with list operand",
			src:  `{"in": [{"var": "state"}, ["CA", "OR"]]}`,
			want: Apply("in", Var("state"), ListOf(Lit("CA"), Lit("OR"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRule(%s) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestParseRule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantSub string
	}{
		{
			name:    "empty object",
			src:     `{}`,
			wantSub: "exactly one key",
		},
		{
			name:    "two operator keys",
			src:     `{"and": [true], "or": [false]}`,
			wantSub: "exactly one key",
		},
		{
			name:    "invalid JSON",
			src:     `{"and": `,
			wantSub: "parse rule",
		},
		{
			name:    "nested multi-key object",
			src:     `{"and": [{"a": 1, "b": 2}]}`,
			wantSub: "exactly one key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule([]byte(tt.src))
			if err == nil {
				t.Fatalf("ParseRule(%s) error = nil, want error", tt.src)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("ParseRule(%s) error = %q, want substring %q", tt.src, err, tt.wantSub)
			}
		})
	}
}

func TestRule_RoundTrip(t *testing.T) {
	sources := []string{
		`{"<":[{"var":"income"},50000]}`,
		`{"and":[{">=":[{"var":"age"},18]},{"in":[{"var":"state"},["CA","OR"]]}]}`,
		`{"if":[{"var":"employed"},1,0]}`,
		`{"var":"household.members.0.age"}`,
		`[1,2,[3,4]]`,
		`"plain"`,
		`null`,
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first := mustParse(t, src)
			encoded, err := first.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v, want nil", err)
			}
			second := mustParse(t, string(encoded))
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestRule_String(t *testing.T) {
	rule := Apply("<", Var("income"), Lit(50000))
	got := rule.String()
	want := `{"<":[{"var":"income"},50000]}`
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
