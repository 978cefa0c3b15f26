package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eligoproject/eligo/internal/types"
)

func TestMemory_ProfilesAndPrograms(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.FindProfile(ctx, "p1"); !errors.Is(err, types.ErrProfileNotFound) {
		t.Fatalf("FindProfile() error = %v, want ErrProfileNotFound", err)
	}

	profile := &types.Profile{ID: "p1", Data: map[string]any{"income": 30000.0}}
	if err := m.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("SaveProfile() error = %v, want nil", err)
	}
	got, err := m.FindProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("FindProfile() error = %v, want nil", err)
	}
	if got.Data["income"] != 30000.0 {
		t.Errorf("income = %v, want 30000", got.Data["income"])
	}

	if err := m.SaveProgram(ctx, &types.Program{ID: "snap", Name: "Food Assistance", Active: true}); err != nil {
		t.Fatalf("SaveProgram() error = %v, want nil", err)
	}
	if err := m.SaveProgram(ctx, &types.Program{ID: "old", Name: "Sunset", Active: false}); err != nil {
		t.Fatalf("SaveProgram() error = %v, want nil", err)
	}
	if _, err := m.FindProgram(ctx, "nope"); !errors.Is(err, types.ErrProgramNotFound) {
		t.Fatalf("FindProgram() error = %v, want ErrProgramNotFound", err)
	}

	programs, err := m.FindActivePrograms(ctx)
	if err != nil {
		t.Fatalf("FindActivePrograms() error = %v, want nil", err)
	}
	if len(programs) != 1 || programs[0].ID != "snap" {
		t.Errorf("FindActivePrograms() = %v, want only snap", programs)
	}
}

func TestMemory_RulePriorityAndReplacement(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	logic := parseRule(t, `{"<": [{"var": "income"}, 50000]}`)
	for _, def := range []*types.RuleDefinition{
		{ID: "low", ProgramID: "snap", RuleLogic: logic, Priority: 1, Active: true},
		{ID: "high", ProgramID: "snap", RuleLogic: logic, Priority: 5, Active: true},
		{ID: "off", ProgramID: "snap", RuleLogic: logic, Priority: 9, Active: false},
	} {
		if err := m.SaveRule(ctx, def); err != nil {
			t.Fatalf("SaveRule(%s) error = %v, want nil", def.ID, err)
		}
	}

	defs, err := m.FindActiveRulesByProgram(ctx, "snap")
	if err != nil {
		t.Fatalf("FindActiveRulesByProgram() error = %v, want nil", err)
	}
	if len(defs) != 2 || defs[0].ID != "high" || defs[1].ID != "low" {
		t.Fatalf("defs = %v, want [high low]", defs)
	}

	// Re-importing a rule under a different program moves it.
	if err := m.SaveRule(ctx, &types.RuleDefinition{ID: "high", ProgramID: "medicaid", RuleLogic: logic, Active: true}); err != nil {
		t.Fatalf("SaveRule() error = %v, want nil", err)
	}
	defs, _ = m.FindActiveRulesByProgram(ctx, "snap")
	if len(defs) != 1 || defs[0].ID != "low" {
		t.Errorf("snap defs after move = %v, want only low", defs)
	}
	defs, _ = m.FindActiveRulesByProgram(ctx, "medicaid")
	if len(defs) != 1 || defs[0].ID != "high" {
		t.Errorf("medicaid defs after move = %v, want only high", defs)
	}
}

func TestMemory_CacheNewestNonExpired(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []*types.CachedResult{
		{
			EvaluationResult: types.EvaluationResult{ProfileID: "p1", ProgramID: "snap", Eligible: false, EvaluatedAt: now.Add(-2 * time.Hour)},
			ExpiresAt:        now.Add(time.Hour),
		},
		{
			EvaluationResult: types.EvaluationResult{ProfileID: "p1", ProgramID: "snap", Eligible: true, EvaluatedAt: now.Add(-time.Hour)},
			ExpiresAt:        now.Add(time.Hour),
		},
		{
			EvaluationResult: types.EvaluationResult{ProfileID: "p1", ProgramID: "other", Eligible: true, EvaluatedAt: now},
			ExpiresAt:        now.Add(time.Hour),
		},
	}
	for _, entry := range entries {
		if err := m.InsertCachedResult(ctx, entry); err != nil {
			t.Fatalf("InsertCachedResult() error = %v, want nil", err)
		}
		if entry.ID == "" {
			t.Fatal("InsertCachedResult() left ID empty")
		}
	}

	got, err := m.FindCachedResult(ctx, "p1", "snap")
	if err != nil {
		t.Fatalf("FindCachedResult() error = %v, want nil", err)
	}
	if !got.Eligible {
		t.Error("FindCachedResult() returned the older entry")
	}

	all, err := m.ListCachedResults(ctx, "p1")
	if err != nil {
		t.Fatalf("ListCachedResults() error = %v, want nil", err)
	}
	if len(all) != 3 || all[0].ProgramID != "other" {
		t.Errorf("ListCachedResults() = %d entries, first program %s; want 3, other", len(all), all[0].ProgramID)
	}

	deleted, err := m.DeleteCachedResults(ctx, "p1")
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteCachedResults() = %d, %v, want 3, nil", deleted, err)
	}
}

func TestMemory_ExpiredEntriesMiss(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	expired := &types.CachedResult{
		EvaluationResult: types.EvaluationResult{ProfileID: "p1", ProgramID: "snap", EvaluatedAt: now.Add(-48 * time.Hour)},
		ExpiresAt:        now.Add(-time.Hour),
	}
	if err := m.InsertCachedResult(ctx, expired); err != nil {
		t.Fatalf("InsertCachedResult() error = %v, want nil", err)
	}

	if _, err := m.FindCachedResult(ctx, "p1", "snap"); !errors.Is(err, types.ErrCacheMiss) {
		t.Fatalf("FindCachedResult() error = %v, want ErrCacheMiss", err)
	}
}
