// Package graph manages the skill graph: which skills a user claims and
// which have been verified. Promotion replaces a claimed edge with a
// verified one and is idempotent, so a replayed job cannot double-promote.
package graph

import (
	"context"
	"time"

	id "talanta/pkg/domain"
)

// Promotion describes a claimed-to-verified edge upgrade.
type Promotion struct {
	UserID     id.UserID
	Skill      string
	Method     string
	VerifiedAt time.Time
}

// SkillGraph is the store of user-skill edges.
type SkillGraph interface {
	// AddClaim records that the user claims the skill. Re-adding an
	// existing claim is a no-op. A claim on an already-verified skill
	// is also a no-op: verification never regresses.
	AddClaim(ctx context.Context, userID id.UserID, skill string) error

	// Promote removes the claimed edge (if any) and ensures a verified
	// edge carrying the method and timestamp. Safe to repeat.
	Promote(ctx context.Context, p Promotion) error

	// HasVerified reports whether a verified edge exists, used by the
	// reconciliation sweep to detect promotions lost to a crash.
	HasVerified(ctx context.Context, userID id.UserID, skill string) (bool, error)
}
