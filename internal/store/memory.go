package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eligoproject/eligo/internal/types"
)

// Memory is an in-process Store for tests and embedded use. It honors
// the same contract as the SQL store, including append-only cache
// entries and newest-first reads. Returned values share inner maps and
// slices with the stored ones; callers treat them as read-only, the
// same contract the pipeline already holds.
type Memory struct {
	mu       sync.RWMutex
	profiles map[types.ProfileID]types.Profile
	programs map[types.ProgramID]types.Program
	rules    map[types.ProgramID][]types.RuleDefinition
	cache    map[types.ProfileID][]types.CachedResult
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[types.ProfileID]types.Profile),
		programs: make(map[types.ProgramID]types.Program),
		rules:    make(map[types.ProgramID][]types.RuleDefinition),
		cache:    make(map[types.ProfileID][]types.CachedResult),
	}
}

// FindProfile returns the profile or types.ErrProfileNotFound.
func (m *Memory) FindProfile(_ context.Context, id types.ProfileID) (*types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, types.ErrProfileNotFound)
	}
	return &profile, nil
}

// FindProgram returns the program or types.ErrProgramNotFound.
func (m *Memory) FindProgram(_ context.Context, id types.ProgramID) (*types.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	program, ok := m.programs[id]
	if !ok {
		return nil, fmt.Errorf("program %s: %w", id, types.ErrProgramNotFound)
	}
	return &program, nil
}

// FindActivePrograms returns every program whose active flag is set,
// ordered by ID for deterministic iteration.
func (m *Memory) FindActivePrograms(_ context.Context) ([]types.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	programs := make([]types.Program, 0, len(m.programs))
	for _, program := range m.programs {
		if program.Active {
			programs = append(programs, program)
		}
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].ID < programs[j].ID })
	return programs, nil
}

// FindActiveRulesByProgram returns the program's active rules, highest
// priority first; ties keep insertion order.
func (m *Memory) FindActiveRulesByProgram(_ context.Context, programID types.ProgramID) ([]types.RuleDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var definitions []types.RuleDefinition
	for _, def := range m.rules[programID] {
		if def.Active {
			definitions = append(definitions, def)
		}
	}
	sort.SliceStable(definitions, func(i, j int) bool {
		return definitions[i].Priority > definitions[j].Priority
	})
	return definitions, nil
}

// FindCachedResult returns the newest non-expired cache entry for the
// pair, or types.ErrCacheMiss. Entries append in insertion order, so
// the scan runs back to front.
func (m *Memory) FindCachedResult(_ context.Context, profileID types.ProfileID, programID types.ProgramID) (*types.CachedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now().UTC()
	entries := m.cache[profileID]
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.ProgramID == programID && entry.ExpiresAt.After(now) {
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("cache %s/%s: %w", profileID, programID, types.ErrCacheMiss)
}

// InsertCachedResult appends a cache entry, assigning an ID when the
// caller left it empty.
func (m *Memory) InsertCachedResult(_ context.Context, result *types.CachedResult) error {
	if result == nil {
		return fmt.Errorf("cached result cannot be nil")
	}
	if result.ID == "" {
		result.ID = types.NewResultID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[result.ProfileID] = append(m.cache[result.ProfileID], *result)
	return nil
}

// ListCachedResults returns all cache entries for a profile, newest
// first, expired entries included.
func (m *Memory) ListCachedResults(_ context.Context, profileID types.ProfileID) ([]types.CachedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.cache[profileID]
	results := make([]types.CachedResult, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		results = append(results, entries[i])
	}
	return results, nil
}

// DeleteCachedResults removes all cache entries for a profile.
func (m *Memory) DeleteCachedResults(_ context.Context, profileID types.ProfileID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.cache[profileID]))
	delete(m.cache, profileID)
	return n, nil
}

// SaveProfile upserts a profile, assigning an ID when absent and
// defaulting UpdatedAt to now.
func (m *Memory) SaveProfile(_ context.Context, profile *types.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if profile.ID == "" {
		profile.ID = types.NewProfileID()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = *profile
	return nil
}

// SaveProgram upserts a program.
func (m *Memory) SaveProgram(_ context.Context, program *types.Program) error {
	if program == nil {
		return fmt.Errorf("program cannot be nil")
	}
	if program.ID == "" {
		return fmt.Errorf("program id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[program.ID] = *program
	return nil
}

// SaveRule upserts a rule definition, assigning an ID when absent. A
// re-import that moves a rule to another program replaces the old
// placement.
func (m *Memory) SaveRule(_ context.Context, def *types.RuleDefinition) error {
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

	m.mu.Lock()
	defer m.mu.Unlock()
	for programID, defs := range m.rules {
		kept := defs[:0]
		for _, existing := range defs {
			if existing.ID != def.ID {
				kept = append(kept, existing)
			}
		}
		m.rules[programID] = kept
	}
	m.rules[def.ProgramID] = append(m.rules[def.ProgramID], *def)
	return nil
}
