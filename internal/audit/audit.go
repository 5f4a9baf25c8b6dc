// Package audit records who changed what in the verification pipeline.
// Domain code publishes events to a channel; a background worker persists
// them so the hot path never waits on the audit store.
package audit

import (
	"context"
	"time"

	id "talanta/pkg/domain"
)

// Action names a recorded mutation.
type Action string

const (
	ActionDocumentUploaded    Action = "document_uploaded"
	ActionVerificationStarted Action = "verification_started"
	ActionDocumentVerified    Action = "document_verified"
	ActionDocumentRejected    Action = "document_rejected"
	ActionTrustScoreChanged   Action = "trust_score_changed"
	ActionSkillPromoted       Action = "skill_promoted"
	ActionSweepRepair         Action = "sweep_repair"
)

// Event captures one mutation. Old and New carry small JSON-encodable
// snapshots of whatever the action changed.
type Event struct {
	Timestamp  time.Time
	Actor      string
	Action     Action
	EntityType string
	EntityID   string
	UserID     id.UserID
	Old        any
	New        any
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
