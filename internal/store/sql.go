package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eligoproject/eligo/internal/core/db"
	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/types"
)

// SQL implements Store over named queries. One implementation serves
// SQLite and PostgreSQL: every timestamp is stored as RFC 3339 UTC
// text, so expiry comparisons work lexicographically in both drivers.
type SQL struct {
	q   *db.Queries
	log *zap.Logger
}

var _ Store = (*SQL)(nil)

// NewSQL creates the SQL store. A nil logger is replaced with a no-op.
func NewSQL(queries *db.Queries, log *zap.Logger) (*SQL, error) {
	if queries == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQL{q: queries, log: log}, nil
}

type profileRow struct {
	ProfileID string `db:"profile_id"`
	Data      string `db:"data"`
	UpdatedAt string `db:"updated_at"`
}

type programRow struct {
	ProgramID   string `db:"program_id"`
	Name        string `db:"name"`
	Category    string `db:"category"`
	Description string `db:"description"`
	Active      bool   `db:"active"`
}

type ruleRow struct {
	RuleID            string         `db:"rule_id"`
	ProgramID         string         `db:"program_id"`
	RuleLogic         string         `db:"rule_logic"`
	RequiredFields    string         `db:"required_fields"`
	RequiredDocuments string         `db:"required_documents"`
	Priority          int            `db:"priority"`
	Version           string         `db:"version"`
	Explanation       string         `db:"explanation"`
	EffectiveDate     sql.NullString `db:"effective_date"`
	ExpirationDate    sql.NullString `db:"expiration_date"`
	Active            bool           `db:"active"`
}

type cacheRow struct {
	ResultID        string `db:"result_id"`
	ProfileID       string `db:"profile_id"`
	ProgramID       string `db:"program_id"`
	RuleID          string `db:"rule_id"`
	Eligible        bool   `db:"eligible"`
	Confidence      int    `db:"confidence"`
	Reason          string `db:"reason"`
	CriteriaResults string `db:"criteria_results"`
	MissingFields   string `db:"missing_fields"`
	Incomplete      bool   `db:"incomplete"`
	NeedsReview     bool   `db:"needs_review"`
	EvaluatedAt     string `db:"evaluated_at"`
	ExecutionTimeMs int64  `db:"execution_time_ms"`
	ExpiresAt       string `db:"expires_at"`
}

// FindProfile returns the profile or types.ErrProfileNotFound.
func (s *SQL) FindProfile(ctx context.Context, id types.ProfileID) (*types.Profile, error) {
	var row profileRow
	if err := s.q.Get(ctx, "get-profile", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, types.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("find profile %s: %w", id, err)
	}
	return row.toProfile()
}

// FindProgram returns the program or types.ErrProgramNotFound.
func (s *SQL) FindProgram(ctx context.Context, id types.ProgramID) (*types.Program, error) {
	var row programRow
	if err := s.q.Get(ctx, "get-program", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("program %s: %w", id, types.ErrProgramNotFound)
		}
		return nil, fmt.Errorf("find program %s: %w", id, err)
	}
	return row.toProgram(), nil
}

// FindActivePrograms returns every program whose active flag is set.
func (s *SQL) FindActivePrograms(ctx context.Context) ([]types.Program, error) {
	var rows []programRow
	if err := s.q.Select(ctx, "list-active-programs", &rows, true); err != nil {
		return nil, fmt.Errorf("list active programs: %w", err)
	}
	programs := make([]types.Program, 0, len(rows))
	for _, row := range rows {
		programs = append(programs, *row.toProgram())
	}
	return programs, nil
}

// FindActiveRulesByProgram returns the program's active rules, highest
// priority first. A stored rule that no longer parses is skipped and
// logged rather than failing the whole read, so one bad import cannot
// take a program offline.
func (s *SQL) FindActiveRulesByProgram(ctx context.Context, programID types.ProgramID) ([]types.RuleDefinition, error) {
	var rows []ruleRow
	if err := s.q.Select(ctx, "list-active-rules-by-program", &rows, string(programID), true); err != nil {
		return nil, fmt.Errorf("list rules for program %s: %w", programID, err)
	}

	definitions := make([]types.RuleDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := row.toRuleDefinition()
		if err != nil {
			s.log.Warn("skipping malformed stored rule",
				zap.String("rule_id", row.RuleID),
				zap.String("program_id", row.ProgramID),
				zap.Error(err))
			continue
		}
		definitions = append(definitions, *def)
	}
	return definitions, nil
}

// FindCachedResult returns the newest non-expired cache entry for the
// pair, or types.ErrCacheMiss.
func (s *SQL) FindCachedResult(ctx context.Context, profileID types.ProfileID, programID types.ProgramID) (*types.CachedResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var row cacheRow
	if err := s.q.Get(ctx, "get-cached-result", &row, string(profileID), string(programID), now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cache %s/%s: %w", profileID, programID, types.ErrCacheMiss)
		}
		return nil, fmt.Errorf("find cached result: %w", err)
	}
	return row.toCachedResult()
}

// InsertCachedResult appends a cache entry, assigning an ID when the
// caller left it empty.
func (s *SQL) InsertCachedResult(ctx context.Context, result *types.CachedResult) error {
	if result == nil {
		return fmt.Errorf("cached result cannot be nil")
	}
	if result.ID == "" {
		result.ID = types.NewResultID()
	}

	criteria, err := json.Marshal(result.CriteriaResults)
	if err != nil {
		return fmt.Errorf("marshal criteria results: %w", err)
	}

	_, err = s.q.Exec(ctx, "insert-cached-result",
		string(result.ID),
		string(result.ProfileID),
		string(result.ProgramID),
		string(result.RuleID),
		result.Eligible,
		result.Confidence,
		result.Reason,
		string(criteria),
		marshalStrings(result.MissingFields),
		result.Incomplete,
		result.NeedsReview,
		result.EvaluatedAt.UTC().Format(time.RFC3339),
		result.ExecutionTimeMs,
		result.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert cached result: %w", err)
	}
	return nil
}

// ListCachedResults returns all cache entries for a profile, newest
// first, expired entries included.
func (s *SQL) ListCachedResults(ctx context.Context, profileID types.ProfileID) ([]types.CachedResult, error) {
	var rows []cacheRow
	if err := s.q.Select(ctx, "list-cached-results", &rows, string(profileID)); err != nil {
		return nil, fmt.Errorf("list cached results for %s: %w", profileID, err)
	}
	results := make([]types.CachedResult, 0, len(rows))
	for _, row := range rows {
		cached, err := row.toCachedResult()
		if err != nil {
			s.log.Warn("skipping malformed cache entry",
				zap.String("result_id", row.ResultID),
				zap.Error(err))
			continue
		}
		results = append(results, *cached)
	}
	return results, nil
}

// DeleteCachedResults removes all cache entries for a profile.
func (s *SQL) DeleteCachedResults(ctx context.Context, profileID types.ProfileID) (int64, error) {
	res, err := s.q.Exec(ctx, "delete-cached-results", string(profileID))
	if err != nil {
		return 0, fmt.Errorf("delete cached results for %s: %w", profileID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete cached results for %s: %w", profileID, err)
	}
	return n, nil
}

// SaveProfile upserts a profile, assigning an ID when absent and
// defaulting UpdatedAt to now.
func (s *SQL) SaveProfile(ctx context.Context, profile *types.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if profile.ID == "" {
		profile.ID = types.NewProfileID()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}

	data := "{}"
	if profile.Data != nil {
		encoded, err := json.Marshal(profile.Data)
		if err != nil {
			return fmt.Errorf("marshal profile data: %w", err)
		}
		data = string(encoded)
	}

	_, err := s.q.Exec(ctx, "save-profile",
		string(profile.ID), data, profile.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save profile %s: %w", profile.ID, err)
	}
	return nil
}

// SaveProgram upserts a program. Programs are referenced by rules, so
// the caller must supply a stable ID.
func (s *SQL) SaveProgram(ctx context.Context, program *types.Program) error {
	if program == nil {
		return fmt.Errorf("program cannot be nil")
	}
	if program.ID == "" {
		return fmt.Errorf("program id is required")
	}
	_, err := s.q.Exec(ctx, "save-program",
		string(program.ID), program.Name, program.Category, program.Description, program.Active)
	if err != nil {
		return fmt.Errorf("save program %s: %w", program.ID, err)
	}
	return nil
}

// SaveRule upserts a rule definition, assigning an ID when absent.
func (s *SQL) SaveRule(ctx context.Context, def *types.RuleDefinition) error {
	if def == nil {
		return fmt.Errorf("rule definition cannot be nil")
	}
	if def.ProgramID == "" {
		return fmt.Errorf("rule program id is required")
	}
	if def.RuleLogic == nil {
		return fmt.Errorf("rule %s: %w: missing rule logic", def.ID, types.ErrRuleMalformed)
	}
	if def.ID == "" {
		def.ID = types.NewRuleID()
	}

	logic, err := json.Marshal(def.RuleLogic)
	if err != nil {
		return fmt.Errorf("marshal rule logic for %s: %w", def.ID, err)
	}

	_, err = s.q.Exec(ctx, "save-rule",
		string(def.ID),
		string(def.ProgramID),
		string(logic),
		marshalStrings(def.RequiredFields),
		marshalStrings(def.RequiredDocuments),
		def.Priority,
		def.Version,
		def.Explanation,
		nullableTime(def.EffectiveDate),
		nullableTime(def.ExpirationDate),
		def.Active,
	)
	if err != nil {
		return fmt.Errorf("save rule %s: %w", def.ID, err)
	}
	return nil
}

func (r profileRow) toProfile() (*types.Profile, error) {
	var data map[string]any
	if r.Data != "" {
		if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
			return nil, fmt.Errorf("profile %s has malformed data: %w", r.ProfileID, err)
		}
	}
	updatedAt, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("profile %s has malformed timestamp: %w", r.ProfileID, err)
	}
	return &types.Profile{
		ID:        types.ProfileID(r.ProfileID),
		Data:      data,
		UpdatedAt: updatedAt,
	}, nil
}

func (r programRow) toProgram() *types.Program {
	return &types.Program{
		ID:          types.ProgramID(r.ProgramID),
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
		Active:      r.Active,
	}
}

func (r ruleRow) toRuleDefinition() (*types.RuleDefinition, error) {
	logic, err := rules.ParseRule([]byte(r.RuleLogic))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRuleMalformed, err)
	}
	fields, err := unmarshalStrings(r.RequiredFields)
	if err != nil {
		return nil, fmt.Errorf("malformed required_fields: %w", err)
	}
	documents, err := unmarshalStrings(r.RequiredDocuments)
	if err != nil {
		return nil, fmt.Errorf("malformed required_documents: %w", err)
	}
	effective, err := parseNullableTime(r.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("malformed effective_date: %w", err)
	}
	expiration, err := parseNullableTime(r.ExpirationDate)
	if err != nil {
		return nil, fmt.Errorf("malformed expiration_date: %w", err)
	}

	return &types.RuleDefinition{
		ID:                types.RuleID(r.RuleID),
		ProgramID:         types.ProgramID(r.ProgramID),
		RuleLogic:         logic,
		RequiredFields:    fields,
		RequiredDocuments: documents,
		Priority:          r.Priority,
		Version:           r.Version,
		Explanation:       r.Explanation,
		EffectiveDate:     effective,
		ExpirationDate:    expiration,
		Active:            r.Active,
	}, nil
}

func (r cacheRow) toCachedResult() (*types.CachedResult, error) {
	var criteria []types.CriterionResult
	if r.CriteriaResults != "" && r.CriteriaResults != "[]" {
		if err := json.Unmarshal([]byte(r.CriteriaResults), &criteria); err != nil {
			return nil, fmt.Errorf("malformed criteria_results: %w", err)
		}
	}
	missing, err := unmarshalStrings(r.MissingFields)
	if err != nil {
		return nil, fmt.Errorf("malformed missing_fields: %w", err)
	}
	evaluatedAt, err := time.Parse(time.RFC3339, r.EvaluatedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed evaluated_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, r.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("malformed expires_at: %w", err)
	}

	return &types.CachedResult{
		ID: types.ResultID(r.ResultID),
		EvaluationResult: types.EvaluationResult{
			ProfileID:       types.ProfileID(r.ProfileID),
			ProgramID:       types.ProgramID(r.ProgramID),
			RuleID:          types.RuleID(r.RuleID),
			Eligible:        r.Eligible,
			Confidence:      r.Confidence,
			Reason:          r.Reason,
			CriteriaResults: criteria,
			MissingFields:   missing,
			Incomplete:      r.Incomplete,
			NeedsReview:     r.NeedsReview,
			EvaluatedAt:     evaluatedAt,
			ExecutionTimeMs: r.ExecutionTimeMs,
		},
		ExpiresAt: expiresAt,
	}, nil
}

// marshalStrings encodes a string list as a JSON array, never null.
func marshalStrings(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	encoded, _ := json.Marshal(items)
	return string(encoded)
}

func unmarshalStrings(encoded string) ([]string, error) {
	if encoded == "" || encoded == "[]" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
