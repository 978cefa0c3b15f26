// internal/rules/fieldpath_test.go
package rules

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLookup_Normal(t *testing.T) {
	data := map[string]any{
		"monthlyIncome": 2500.0,
		"household": map[string]any{
			"size": 4.0,
			"members": []any{
				map[string]any{"age": 34.0},
				map[string]any{"age": 7.0},
			},
		},
		"flags": []any{"a", "b"},
	}

	tests := []struct {
		name      string
		path      string
		want      any
		wantFound bool
	}{
		{
			name:      "top-level key",
			path:      "monthlyIncome",
			want:      2500.0,
			wantFound: true,
		},
		{
			name:      "nested object traversal",
			path:      "household.size",
			want:      4.0,
			wantFound: true,
		},
		{
			name:      "array index access",
			path:      "household.members.1.age",
			want:      7.0,
			wantFound: true,
		},
		{
			name:      "empty path returns whole scope",
			path:      "",
			want:      nil, // compared separately below
			wantFound: true,
		},
		{
			name:      "missing key",
			path:      "annualIncome",
			want:      nil,
			wantFound: false,
		},
		{
			name:      "missing nested key",
			path:      "household.vehicle",
			want:      nil,
			wantFound: false,
		},
		{
			name:      "index out of range",
			path:      "flags.7",
			want:      nil,
			wantFound: false,
		},
		{
			name:      "negative index",
			path:      "flags.-1",
			want:      nil,
			wantFound: false,
		},
		{
			name:      "non-numeric index into array",
			path:      "flags.first",
			want:      nil,
			wantFound: false,
		},
		{
			name:      "descend into scalar",
			path:      "monthlyIncome.cents",
			want:      nil,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Lookup(data, tt.path)
			if found != tt.wantFound {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.path, found, tt.wantFound)
			}
			if tt.path == "" {
				if _, ok := got.(map[string]any); !ok {
					t.Fatalf("Lookup(%q) = %T, want whole map", tt.path, got)
				}
				return
			}
			if found && got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup_ContextNormalization(t *testing.T) {
	ctx := Context{"outer": map[string]any{"inner": "found"}}

	got, found := Lookup(ctx, "outer.inner")
	if !found {
		t.Fatalf("Lookup() found = false, want true")
	}
	if got != "found" {
		t.Errorf("Lookup() = %v, want %q", got, "found")
	}
}

func TestLookup_ScalarScope(t *testing.T) {
	// Array predicates hand scalar elements to var as the whole scope.
	got, found := Lookup(1500.0, "")
	if !found || got != 1500.0 {
		t.Errorf("Lookup(scalar, \"\") = %v, %v, want 1500, true", got, found)
	}
	if _, found := Lookup(1500.0, "anything"); found {
		t.Errorf("Lookup(scalar, path) found = true, want false")
	}
}

// Property-based test: resolution never crashes
func TestLookup_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("lookup never crashes regardless of path shape", prop.ForAll(
		func(depth int, useIndex bool, stray string) bool {
			segments := make([]string, 0, depth)
			for i := 0; i < depth; i++ {
				switch {
				case useIndex && i%3 == 0:
					segments = append(segments, fmt.Sprint(i))
				case i%2 == 0:
					segments = append(segments, "key")
				default:
					segments = append(segments, stray)
				}
			}
			path := strings.Join(segments, ".")
			data := map[string]any{
				"key": []any{map[string]any{"key": "value"}},
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Lookup() panicked: %v", r)
				}
			}()

			_, _ = Lookup(data, path)
			return true
		},
		gen.IntRange(0, 20),
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property-based test: resolution is deterministic
func TestLookup_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("repeat lookups agree", prop.ForAll(
		func(n int) bool {
			data := map[string]any{"a": []any{1.0, 2.0, 3.0}}
			path := fmt.Sprintf("a.%d", n)
			v1, ok1 := Lookup(data, path)
			v2, ok2 := Lookup(data, path)
			return v1 == v2 && ok1 == ok2
		},
		gen.IntRange(-2, 6),
	))

	properties.TestingRun(t)
}
