package explain

import (
	"fmt"
	"strings"

	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// ResultOptions tunes how a determination is explained.
type ResultOptions struct {
	// Level selects the phrasing register. Zero value is Simple.
	Level Level

	// IncludeSuggestions adds WhatWouldChange hints to negative
	// outcomes.
	IncludeSuggestions bool
}

// ResultExplanation interprets one eligibility determination for a
// human reader. PlainLanguage is the assembled narrative; the other
// fields expose its parts for callers that render their own layout.
type ResultExplanation struct {
	Headline        string   `json:"headline"`
	Reasoning       []string `json:"reasoning,omitempty"`
	CriteriaPassed  []string `json:"criteriaPassed,omitempty"`
	CriteriaFailed  []string `json:"criteriaFailed,omitempty"`
	MissingInfo     []string `json:"missingInfo,omitempty"`
	NextSteps       []string `json:"nextSteps,omitempty"`
	WhatWouldChange []string `json:"whatWouldChange,omitempty"`
	PlainLanguage   string   `json:"plainLanguage"`
}

// Result explains why a determination came out the way it did. def is
// the rule definition the result was produced from and data is the
// evaluation context the rule saw; both may be nil when the
// evaluation never reached a rule.
//
// The four outcomes are handled distinctly: failed evaluations point
// at review, incomplete ones report each missing field as a failed
// criterion, and clean determinations split the evaluated criteria by
// whether they were met.
func Result(result *types.EvaluationResult, def *types.RuleDefinition, data rules.Context, opts ResultOptions) ResultExplanation {
	var ex ResultExplanation
	switch {
	case result == nil:
		ex.Headline = "No determination to explain"
	case result.Confidence == types.ConfidenceFailed:
		ex.Headline = "We could not determine eligibility"
		ex.Reasoning = []string{result.Reason, "A caseworker needs to review this case"}
	case result.Incomplete:
		ex.Headline = "More information is needed before eligibility can be determined"
		ex.Reasoning = append(ex.Reasoning, result.Reason)
		for _, field := range result.MissingFields {
			ex.CriteriaFailed = append(ex.CriteriaFailed, field+" is missing")
			ex.MissingInfo = append(ex.MissingInfo, field)
		}
	case result.Eligible:
		ex.Headline = "You appear to be eligible for this program"
		ex.Reasoning = reasoning(result)
		ex.CriteriaPassed, ex.CriteriaFailed = splitCriteria(result.CriteriaResults)
		ex.NextSteps = nextSteps(def)
	default:
		ex.Headline = "You do not appear to be eligible for this program"
		ex.Reasoning = reasoning(result)
		ex.CriteriaPassed, ex.CriteriaFailed = splitCriteria(result.CriteriaResults)
		if opts.IncludeSuggestions {
			ex.WhatWouldChange = whatWouldChange(result.CriteriaResults)
			// No numeric criterion to work from: walk the rule itself.
			if len(ex.WhatWouldChange) == 0 && def != nil && def.RuleLogic != nil && data != nil {
				ex.WhatWouldChange = WhatWouldPass(def.RuleLogic, data)
			}
		}
	}
	ex.PlainLanguage = assemble(&ex, opts.Level)
	return ex
}

func reasoning(result *types.EvaluationResult) []string {
	lines := []string{result.Reason}
	if total := len(result.CriteriaResults); total > 0 {
		met := 0
		for _, c := range result.CriteriaResults {
			if c.Met {
				met++
			}
		}
		lines = append(lines, fmt.Sprintf("Meets %d of %d criteria", met, total))
	}
	return lines
}

func splitCriteria(criteria []types.CriterionResult) (passed, failed []string) {
	for _, c := range criteria {
		if c.Met {
			passed = append(passed, criterionPhrase(c))
		} else {
			failed = append(failed, criterionPhrase(c))
		}
	}
	return passed, failed
}

// criterionPhrase renders one evaluated criterion, with the observed
// value and authored threshold when the conjunct compared a variable.
func criterionPhrase(c types.CriterionResult) string {
	if c.Threshold == nil {
		return c.Criterion
	}
	if c.Value == nil {
		return fmt.Sprintf("%s has no value on file (threshold %s)", c.Criterion, thresholdPhrase(c.Threshold))
	}
	return fmt.Sprintf("%s is %s (threshold %s)", c.Criterion, valuePhrase(c.Value), thresholdPhrase(c.Threshold))
}

func valuePhrase(v any) string {
	switch s := v.(type) {
	case nil:
		return "nothing"
	case string:
		return fmt.Sprintf("%q", s)
	}
	return rules.ToString(v)
}

func thresholdPhrase(v any) string {
	if bounds, ok := v.([]any); ok {
		if len(bounds) == 2 {
			return fmt.Sprintf("between %s and %s", valuePhrase(bounds[0]), valuePhrase(bounds[1]))
		}
		parts := make([]string, len(bounds))
		for i, b := range bounds {
			parts[i] = valuePhrase(b)
		}
		return strings.Join(parts, ", ")
	}
	return valuePhrase(v)
}

func nextSteps(def *types.RuleDefinition) []string {
	var steps []string
	if def != nil {
		for _, doc := range def.RequiredDocuments {
			steps = append(steps, "Gather your "+doc)
		}
	}
	return append(steps, "Submit an application for this program")
}

// whatWouldChange phrases a directional change for each failed
// criterion whose observed value and threshold are both numeric.
func whatWouldChange(criteria []types.CriterionResult) []string {
	var changes []string
	for _, c := range criteria {
		if c.Met {
			continue
		}
		value, okValue := rules.ToNumber(c.Value)
		threshold, okThreshold := rules.ToNumber(c.Threshold)
		if !okValue || !okThreshold {
			continue
		}
		switch {
		case value < threshold:
			changes = append(changes, fmt.Sprintf("increase %s from %s to at least %s",
				c.Criterion, rules.ToString(value), rules.ToString(threshold)))
		case value > threshold:
			changes = append(changes, fmt.Sprintf("reduce %s from %s to %s or below",
				c.Criterion, rules.ToString(value), rules.ToString(threshold)))
		}
	}
	return changes
}

// assemble builds the narrative: headline, then the reasoning block
// (omitted at the Simple level), then any next-step and
// missing-information bullets.
func assemble(ex *ResultExplanation, level Level) string {
	var b strings.Builder
	b.WriteString(ex.Headline)
	b.WriteString(".")
	if level != Simple && len(ex.Reasoning) > 0 {
		b.WriteString("\n\n")
		for i, line := range ex.Reasoning {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(line)
			if !strings.HasSuffix(line, ".") {
				b.WriteString(".")
			}
		}
	}
	if len(ex.NextSteps) > 0 {
		b.WriteString("\n\nNext steps:")
		for _, step := range ex.NextSteps {
			b.WriteString("\n  - " + step)
		}
	}
	if len(ex.MissingInfo) > 0 {
		b.WriteString("\n\nPlease provide:")
		for _, field := range ex.MissingInfo {
			b.WriteString("\n  - " + field)
		}
	}
	if len(ex.WhatWouldChange) > 0 && level != Simple {
		b.WriteString("\n\nWhat would change the outcome:")
		for _, change := range ex.WhatWouldChange {
			b.WriteString("\n  - " + change)
		}
	}
	return b.String()
}
