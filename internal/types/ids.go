package types

import (
	"time"

	"github.com/google/uuid"
)

// ProfileID identifies a household profile.
// String alias enables type safety while keeping JSON string serialization.
type ProfileID string

// ProgramID identifies a benefits program. Imported packs assign
// readable slugs ("snap", "medicaid"); generated programs get UUIDs.
type ProgramID string

// RuleID identifies a stored rule definition.
type RuleID string

// ResultID identifies a cached evaluation result.
type ResultID string

// NewProfileID generates a UUIDv7 profile identifier.
// Time-ordered IDs keep sequential inserts clustered in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewProfileID() ProfileID {
	return ProfileID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewResultID generates a UUIDv7 cached-result identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewResultID() ResultID {
	return ResultID(uuid.Must(uuid.NewV7()).String())
}

// ParseProfileID validates and converts a string to ProfileID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseProfileID(s string) (ProfileID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ProfileID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ResultIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Lets cache maintenance reason about insertion time without a column
// read. Returns zero time for invalid UUIDs; caller should check IsZero().
func ResultIDTime(id ResultID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
