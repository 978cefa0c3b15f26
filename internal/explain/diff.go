package explain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// DataChange records one top-level data key whose value differs
// between two evaluations.
type DataChange struct {
	Key    string `json:"key"`
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
}

// DifferenceExplanation describes how two evaluations of the same
// rule diverged.
type DifferenceExplanation struct {
	Changes        []DataChange `json:"changes,omitempty"`
	OutcomeChanged bool         `json:"outcomeChanged"`
	Summary        string       `json:"summary"`
}

// Difference compares two determinations and the data each saw. It
// reports every changed data key in sorted order, whether the outcome
// flipped, and a one-line summary tying the two together.
func Difference(first, second *types.EvaluationResult, firstData, secondData rules.Context) DifferenceExplanation {
	d := DifferenceExplanation{
		Changes: dataChanges(firstData, secondData),
	}
	if first != nil && second != nil {
		d.OutcomeChanged = first.Eligible != second.Eligible
	}
	d.Summary = differenceSummary(d, second)
	return d
}

func dataChanges(before, after rules.Context) []DataChange {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []DataChange
	for _, k := range sorted {
		b, a := before[k], after[k]
		if reflect.DeepEqual(b, a) {
			continue
		}
		changes = append(changes, DataChange{Key: k, Before: b, After: a})
	}
	return changes
}

func differenceSummary(d DifferenceExplanation, second *types.EvaluationResult) string {
	changed := make([]string, len(d.Changes))
	for i, c := range d.Changes {
		changed[i] = fmt.Sprintf("%s went from %s to %s", c.Key, valuePhrase(c.Before), valuePhrase(c.After))
	}
	switch {
	case d.OutcomeChanged && second != nil && second.Eligible:
		return "The outcome changed to eligible: " + strings.Join(changed, "; ")
	case d.OutcomeChanged:
		return "The outcome changed to ineligible: " + strings.Join(changed, "; ")
	case len(changed) == 0:
		return "Nothing changed between the two evaluations"
	}
	return "The data changed but the outcome stayed the same: " + strings.Join(changed, "; ")
}
