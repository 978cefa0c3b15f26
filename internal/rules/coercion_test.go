// internal/rules/coercion_test.go
package rules

import (
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{name: "float64", value: 42.5, want: 42.5, wantOK: true},
		{name: "int", value: 42, want: 42, wantOK: true},
		{name: "int64", value: int64(7), want: 7, wantOK: true},
		{name: "numeric string rejected", value: "42", want: 0, wantOK: false},
		{name: "bool rejected", value: true, want: 0, wantOK: false},
		{name: "nil rejected", value: nil, want: 0, wantOK: false},
		{name: "array rejected", value: []any{1.0}, want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ToNumber(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestLooseNumber(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{name: "numeric string", value: "42.5", want: 42.5, wantOK: true},
		{name: "padded numeric string", value: "  7 ", want: 7, wantOK: true},
		{name: "true folds to one", value: true, want: 1, wantOK: true},
		{name: "false folds to zero", value: false, want: 0, wantOK: true},
		{name: "empty string is not zero", value: "", want: 0, wantOK: false},
		{name: "word string rejected", value: "abc", want: 0, wantOK: false},
		{name: "NaN string rejected", value: "NaN", want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := looseNumber(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("looseNumber(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("looseNumber(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "string passthrough", value: "x", want: "x"},
		{name: "whole float drops decimals", value: 42.0, want: "42"},
		{name: "fraction keeps digits", value: 42.5, want: "42.5"},
		{name: "bool", value: true, want: "true"},
		{name: "nil renders empty", value: nil, want: ""},
		{name: "int", value: 7, want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.value); got != tt.want {
				t.Errorf("ToString(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "nil", value: nil, want: false},
		{name: "false", value: false, want: false},
		{name: "true", value: true, want: true},
		{name: "zero", value: 0.0, want: false},
		{name: "nonzero", value: 0.1, want: true},
		{name: "NaN", value: math.NaN(), want: false},
		{name: "empty string", value: "", want: false},
		{name: "nonempty string", value: "0", want: true},
		{name: "empty array", value: []any{}, want: false},
		{name: "nonempty array", value: []any{false}, want: true},
		{name: "empty object is truthy", value: map[string]any{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.value); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
