// Package types provides the domain model shared across eligo
// components: household profiles, benefits programs, rule definitions
// and the results the evaluation pipeline produces.
//
// Persistence concerns stay out of this package; the store maps these
// types to rows, and the pipeline never sees a database handle.
package types

import (
	"time"

	"github.com/eligoproject/eligo/internal/rules"
)

// Resource limits enforced on imported definitions to keep stored
// rules reviewable and queries bounded.
const (
	// MaxRuleSourceSize limits the JSON size of one rule definition.
	// Rules are authored documents; anything near this size is a
	// generated artifact that belongs elsewhere.
	MaxRuleSourceSize = 64 * 1024

	// MaxRequiredFields limits the required-field list of one rule.
	MaxRequiredFields = 64
)

// ErrorRuleID marks results produced when evaluation could not run at
// all (missing profile, program or rules). Such results flow through
// the same shape as real determinations so batch callers never
// special-case.
const ErrorRuleID RuleID = "error"

// Confidence tiers reported on evaluation results. Tiered rather than
// continuous: downstream consumers branch on these exact values.
const (
	// ConfidenceFailed is reported when evaluation itself failed.
	ConfidenceFailed = 0

	// ConfidenceIncomplete is reported when required information was
	// missing from the profile.
	ConfidenceIncomplete = 50

	// ConfidenceComplete is reported for a clean determination.
	ConfidenceComplete = 95
)

// Profile is one household's data snapshot. Data holds the decoded
// JSON document rules evaluate against; the pipeline treats it as
// read-only.
type Profile struct {
	ID        ProfileID      `json:"profileId"`
	Data      map[string]any `json:"data"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Program is one benefits program rules can target.
type Program struct {
	ID          ProgramID `json:"programId"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
}

// RuleDefinition is a stored eligibility rule for a program. When a
// program has several active definitions, the highest Priority wins
// at evaluation time.
type RuleDefinition struct {
	ID                RuleID      `json:"ruleId"`
	ProgramID         ProgramID   `json:"programId"`
	RuleLogic         *rules.Rule `json:"ruleLogic"`
	RequiredFields    []string    `json:"requiredFields,omitempty"`
	RequiredDocuments []string    `json:"requiredDocuments,omitempty"`
	Priority          int         `json:"priority"`
	Version           string      `json:"version,omitempty"`
	Explanation       string      `json:"explanation,omitempty"`
	EffectiveDate     *time.Time  `json:"effectiveDate,omitempty"`
	ExpirationDate    *time.Time  `json:"expirationDate,omitempty"`
	Active            bool        `json:"active"`
}

// ActiveAt reports whether the definition applies at t: flagged
// active and inside the optional effective window.
func (r *RuleDefinition) ActiveAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveDate != nil && t.Before(*r.EffectiveDate) {
		return false
	}
	if r.ExpirationDate != nil && t.After(*r.ExpirationDate) {
		return false
	}
	return true
}

// CriterionResult reports one conjunct of an evaluated rule, with the
// observed value and authored threshold when the conjunct compares a
// variable against a literal.
type CriterionResult struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
	Value     any    `json:"value,omitempty"`
	Threshold any    `json:"threshold,omitempty"`
}

// EvaluationResult is one eligibility determination.
type EvaluationResult struct {
	ProfileID       ProfileID         `json:"profileId"`
	ProgramID       ProgramID         `json:"programId"`
	RuleID          RuleID            `json:"ruleId"`
	Eligible        bool              `json:"eligible"`
	Confidence      int               `json:"confidence"`
	Reason          string            `json:"reason"`
	CriteriaResults []CriterionResult `json:"criteriaResults,omitempty"`
	MissingFields   []string          `json:"missingFields,omitempty"`
	Incomplete      bool              `json:"incomplete"`
	NeedsReview     bool              `json:"needsReview"`
	EvaluatedAt     time.Time         `json:"evaluatedAt"`
	ExecutionTimeMs int64             `json:"executionTimeMs"`
}

// CachedResult wraps a stored determination with its cache window.
// Entries are append-only; reads pick the newest unexpired one.
type CachedResult struct {
	ID ResultID `json:"resultId"`
	EvaluationResult
	ExpiresAt time.Time `json:"expiresAt"`
}

// BatchSummary aggregates a multi-program evaluation. A result counts
// toward exactly one of Eligible, Ineligible, Incomplete or Errors;
// NeedsReview overlaps the others.
type BatchSummary struct {
	Total       int `json:"total"`
	Eligible    int `json:"eligible"`
	Ineligible  int `json:"ineligible"`
	Incomplete  int `json:"incomplete"`
	NeedsReview int `json:"needsReview"`
	Errors      int `json:"errors"`
}

// BatchResult is the outcome of evaluating one profile against many
// programs. Results keep the request order.
type BatchResult struct {
	ProfileID   ProfileID          `json:"profileId"`
	Results     []EvaluationResult `json:"results"`
	Summary     BatchSummary       `json:"summary"`
	EvaluatedAt time.Time          `json:"evaluatedAt"`
}
