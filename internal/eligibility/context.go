package eligibility

import (
	"time"

	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// BuildContext assembles the evaluation context from a profile
// snapshot: a copy of the profile data plus derived fields. Rules are
// authored against monthly income, so a profile carrying only
// annualIncome gets monthlyIncome derived; a profile that already has
// one keeps it. The evaluation timestamp is stored under
// rules.EvaluatedAtKey for date operators.
func BuildContext(profile *types.Profile, now time.Time) rules.Context {
	ctx := make(rules.Context, len(profile.Data)+2)
	for k, v := range profile.Data {
		ctx[k] = v
	}
	if _, ok := ctx["monthlyIncome"]; !ok {
		if annual, ok := rules.ToNumber(ctx["annualIncome"]); ok {
			ctx["monthlyIncome"] = annual / 12
		}
	}
	ctx[rules.EvaluatedAtKey] = now.UTC().Format(time.RFC3339)
	return ctx
}

// MissingFields returns the required fields the context cannot
// satisfy: absent, nil, or the empty string. Zero and false count as
// present. Dotted requirements resolve the same way var lookups do.
func MissingFields(ctx rules.Context, required []string) []string {
	var missing []string
	for _, field := range required {
		v, ok := rules.Lookup(ctx, field)
		if !ok || v == nil || v == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
