package types

import "errors"

// Sentinel errors for eligo storage and pipeline operations.
var (
	// ErrProfileNotFound indicates no profile exists for the ID.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProgramNotFound indicates no program exists for the ID.
	ErrProgramNotFound = errors.New("program not found")

	// ErrNoActiveRules indicates a program has no active rule definitions.
	ErrNoActiveRules = errors.New("no active rules for program")

	// ErrCacheMiss indicates no valid cached result exists.
	ErrCacheMiss = errors.New("no cached result")

	// ErrRuleMalformed indicates a rule definition failed parsing or validation.
	ErrRuleMalformed = errors.New("malformed rule definition")
)
