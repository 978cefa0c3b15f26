// internal/rules/registry.go
package rules

import "sort"

/*
 * Operator registry.
 *
 * Operators are dispatched dynamically by name so deployments can add
 * domain vocabulary without touching the evaluator. Entries are plain
 * functions over already-evaluated operand values; the core control
 * forms (var, if, and, or and the array predicates) are not registry
 * entries because they decide which operands to evaluate and in what
 * scope.
 *
 * Registries are plain values built by constructor functions; nothing
 * here touches global state, so two engines with different operator
 * sets coexist in one process.
 */

// OperatorFunc implements a single operator. It receives operand
// values that have already been evaluated, plus the root evaluation
// context for operators that need ambient data such as the evaluation
// timestamp. Scoped lookups inside array predicates are resolved by
// the evaluator before arguments reach the function.
type OperatorFunc func(args []any, ctx Context) (any, error)

type operatorEntry struct {
	fn   OperatorFunc
	desc string
}

// Registry maps operator names to implementations.
type Registry struct {
	entries map[string]operatorEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]operatorEntry)}
}

// Register adds or replaces an operator.
func (r *Registry) Register(name string, fn OperatorFunc) {
	r.entries[name] = operatorEntry{fn: fn}
}

// RegisterDescribed adds an operator together with a short human
// phrase used by explanation rendering when no specific template
// exists.
func (r *Registry) RegisterDescribed(name, desc string, fn OperatorFunc) {
	r.entries[name] = operatorEntry{fn: fn, desc: desc}
}

// Resolve returns the implementation registered under name.
func (r *Registry) Resolve(name string) (OperatorFunc, bool) {
	e, ok := r.entries[name]
	return e.fn, ok
}

// Describe returns the human phrase registered for name, if any.
func (r *Registry) Describe(name string) (string, bool) {
	e, ok := r.entries[name]
	if !ok || e.desc == "" {
		return "", false
	}
	return e.desc, true
}

// Names returns all registered operator names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for name, e := range r.entries {
		c.entries[name] = e
	}
	return c
}

// Merge copies every entry of other into r, overwriting on name
// collisions.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for name, e := range other.entries {
		r.entries[name] = e
	}
}
