// Package store persists household profiles, benefit programs, rule
// definitions and cached evaluation results.
//
// The pipeline consumes the Store interface and never sees SQL; the
// SQL implementation runs named queries over sqlx, and Memory backs
// tests and embedded use. Cache entries are append-only: reads pick
// the newest non-expired entry, expiry is lazy, cleanup is external.
package store

import (
	"context"

	"github.com/eligoproject/eligo/internal/types"
)

// Store is the persistence surface the eligibility engine evaluates
// against. Not-found conditions are reported with the sentinel errors
// in the types package so callers can branch with errors.Is.
type Store interface {
	// FindProfile returns the profile or types.ErrProfileNotFound.
	FindProfile(ctx context.Context, id types.ProfileID) (*types.Profile, error)

	// FindProgram returns the program or types.ErrProgramNotFound.
	FindProgram(ctx context.Context, id types.ProgramID) (*types.Program, error)

	// FindActivePrograms returns every program whose active flag is set.
	FindActivePrograms(ctx context.Context) ([]types.Program, error)

	// FindActiveRulesByProgram returns the active rule definitions for
	// a program, highest priority first. The effective-window filter is
	// the caller's job; the store only checks the active flag.
	FindActiveRulesByProgram(ctx context.Context, programID types.ProgramID) ([]types.RuleDefinition, error)

	// FindCachedResult returns the newest non-expired cached result for
	// the pair, or types.ErrCacheMiss.
	FindCachedResult(ctx context.Context, profileID types.ProfileID, programID types.ProgramID) (*types.CachedResult, error)

	// InsertCachedResult appends a cache entry. Entries are never
	// updated in place.
	InsertCachedResult(ctx context.Context, result *types.CachedResult) error

	// ListCachedResults returns all cache entries for a profile,
	// newest first, expired entries included.
	ListCachedResults(ctx context.Context, profileID types.ProfileID) ([]types.CachedResult, error)

	// DeleteCachedResults removes all cache entries for a profile and
	// reports how many were removed.
	DeleteCachedResults(ctx context.Context, profileID types.ProfileID) (int64, error)
}
