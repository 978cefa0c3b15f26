// Package rulepack imports bulk definitions: a versioned JSON document
// carrying programs, rule definitions and optional seed profiles.
//
// Import happens in two phases. Parse decodes the document, checks the
// pack structure with field-level validation and statically validates
// every rule, rejecting the whole pack on the first problem; Apply
// writes an accepted pack through a store. Nothing malformed ever
// reaches persistence, so the read path can trust stored rule logic.
package rulepack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// packValidate checks pack structure before any rule parsing.
var packValidate = validator.New()

// Pack is the on-disk bulk definition format.
type Pack struct {
	Version  string        `json:"version" validate:"required"`
	Programs []PackProgram `json:"programs,omitempty" validate:"dive"`
	Rules    []PackRule    `json:"rules,omitempty" validate:"dive"`
	Profiles []PackProfile `json:"profiles,omitempty" validate:"dive"`
}

// PackProgram is one program entry. Active defaults to true when the
// field is absent.
type PackProgram struct {
	ID          string `json:"programId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

// PackRule is one rule entry. RuleLogic stays raw until Parse checks
// it; an absent ruleId is assigned at Apply time.
type PackRule struct {
	ID                string          `json:"ruleId,omitempty"`
	ProgramID         string          `json:"programId" validate:"required"`
	RuleLogic         json.RawMessage `json:"ruleLogic" validate:"required"`
	RequiredFields    []string        `json:"requiredFields,omitempty"`
	RequiredDocuments []string        `json:"requiredDocuments,omitempty"`
	Priority          int             `json:"priority,omitempty"`
	Version           string          `json:"version,omitempty"`
	Explanation       string          `json:"explanation,omitempty"`
	EffectiveDate     *time.Time      `json:"effectiveDate,omitempty"`
	ExpirationDate    *time.Time      `json:"expirationDate,omitempty"`
	Active            *bool           `json:"active,omitempty"`
}

// PackProfile is one seed profile, used to load fixture households
// into development databases.
type PackProfile struct {
	ID   string         `json:"profileId,omitempty"`
	Data map[string]any `json:"data" validate:"required"`
}

// Stats counts what an import wrote.
type Stats struct {
	Programs int
	Rules    int
	Profiles int
}

// Saver is the store surface the importer writes through. Both store
// implementations satisfy it.
type Saver interface {
	SaveProgram(ctx context.Context, program *types.Program) error
	SaveRule(ctx context.Context, def *types.RuleDefinition) error
	SaveProfile(ctx context.Context, profile *types.Profile) error
}

// Parse decodes and validates a rule pack. The first structural or
// rule-level problem rejects the whole pack; partial imports are worse
// than loud failures here.
func Parse(data []byte) (*Pack, error) {
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	if err := packValidate.Struct(&pack); err != nil {
		return nil, fmt.Errorf("invalid rule pack: %w", err)
	}
	for i := range pack.Rules {
		if err := checkRule(&pack.Rules[i], i); err != nil {
			return nil, err
		}
	}
	return &pack, nil
}

// checkRule enforces the resource limits and statically validates the
// rule logic.
func checkRule(r *PackRule, index int) error {
	label := r.ID
	if label == "" {
		label = fmt.Sprintf("rules[%d]", index)
	}
	if len(r.RuleLogic) > types.MaxRuleSourceSize {
		return fmt.Errorf("rule %s: %w: rule logic exceeds %d bytes", label, types.ErrRuleMalformed, types.MaxRuleSourceSize)
	}
	if len(r.RequiredFields) > types.MaxRequiredFields {
		return fmt.Errorf("rule %s: %w: %d required fields exceeds limit %d",
			label, types.ErrRuleMalformed, len(r.RequiredFields), types.MaxRequiredFields)
	}
	rule, err := rules.ParseRule(r.RuleLogic)
	if err != nil {
		return fmt.Errorf("rule %s: %w: %v", label, types.ErrRuleMalformed, err)
	}
	report := rules.Validate(rule, rules.ValidateOptions{})
	if !report.Valid {
		return fmt.Errorf("rule %s: %w: %s", label, types.ErrRuleMalformed, report.Errors[0].Message)
	}
	return nil
}

// Apply writes a parsed pack through the saver: programs first so
// rules land on existing programs, then rules, then profiles. The
// first write failure stops the import with everything before it
// already saved; Save calls are upserts, so re-running a fixed pack
// converges.
func Apply(ctx context.Context, pack *Pack, saver Saver) (Stats, error) {
	var stats Stats
	if pack == nil {
		return stats, fmt.Errorf("pack cannot be nil")
	}
	if saver == nil {
		return stats, fmt.Errorf("saver cannot be nil")
	}
	for i := range pack.Programs {
		program := pack.Programs[i].definition()
		if err := saver.SaveProgram(ctx, &program); err != nil {
			return stats, fmt.Errorf("program %s: %w", program.ID, err)
		}
		stats.Programs++
	}
	for i := range pack.Rules {
		def, err := pack.Rules[i].definition()
		if err != nil {
			return stats, err
		}
		if err := saver.SaveRule(ctx, def); err != nil {
			return stats, fmt.Errorf("rule %s: %w", def.ID, err)
		}
		stats.Rules++
	}
	for i := range pack.Profiles {
		profile := pack.Profiles[i].definition()
		if err := saver.SaveProfile(ctx, &profile); err != nil {
			return stats, fmt.Errorf("profile %s: %w", profile.ID, err)
		}
		stats.Profiles++
	}
	return stats, nil
}

func (p *PackProgram) definition() types.Program {
	program := types.Program{
		ID:          types.ProgramID(p.ID),
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Active:      true,
	}
	if p.Active != nil {
		program.Active = *p.Active
	}
	return program
}

func (r *PackRule) definition() (*types.RuleDefinition, error) {
	rule, err := rules.ParseRule(r.RuleLogic)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w: %v", r.ID, types.ErrRuleMalformed, err)
	}
	def := &types.RuleDefinition{
		ID:                types.RuleID(r.ID),
		ProgramID:         types.ProgramID(r.ProgramID),
		RuleLogic:         rule,
		RequiredFields:    r.RequiredFields,
		RequiredDocuments: r.RequiredDocuments,
		Priority:          r.Priority,
		Version:           r.Version,
		Explanation:       r.Explanation,
		EffectiveDate:     r.EffectiveDate,
		ExpirationDate:    r.ExpirationDate,
		Active:            true,
	}
	if r.Active != nil {
		def.Active = *r.Active
	}
	if def.ID == "" {
		def.ID = types.NewRuleID()
	}
	return def, nil
}

func (p *PackProfile) definition() types.Profile {
	profile := types.Profile{
		ID:   types.ProfileID(p.ID),
		Data: p.Data,
	}
	if profile.ID == "" {
		profile.ID = types.NewProfileID()
	}
	return profile
}
