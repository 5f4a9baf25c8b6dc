// Package domain holds the typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so a VerificationID can never be
// passed where a UserID is expected. Parsing is strict: empty strings,
// malformed UUIDs and the nil UUID are all rejected.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UserID identifies a citizen account.
type UserID uuid.UUID

// VerificationID identifies one verification record (one uploaded document).
type VerificationID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewVerificationID returns a fresh random VerificationID.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// UUID exposes the underlying uuid.UUID for database drivers.
func (id UserID) UUID() uuid.UUID         { return uuid.UUID(id) }
func (id VerificationID) UUID() uuid.UUID { return uuid.UUID(id) }

// ParseUserID parses a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseStrict(s, "user id")
	return UserID(u), err
}

// ParseVerificationID parses a string into a VerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseStrict(s, "verification id")
	return VerificationID(u), err
}

func parseStrict(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", kind, err)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s must not be the nil uuid", kind)
	}
	return u, nil
}
