// Package store persists verification records and the trust-bearing user
// view. The Postgres implementations join a context transaction when one is
// present, so the orchestrator can commit a record's terminal status and the
// user's trust credit atomically.
package store

import (
	"context"
	"time"

	id "talanta/pkg/domain"

	"talanta/internal/verification/models"
)

// RecordStore persists verification records.
type RecordStore interface {
	Create(ctx context.Context, rec *models.VerificationRecord) error
	FindByID(ctx context.Context, recID id.VerificationID) (*models.VerificationRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]models.VerificationRecord, error)

	// MarkProcessing moves a record to PROCESSING. A record already in
	// PROCESSING is accepted so a retried job can re-enter; terminal
	// records are refused with sentinel.ErrInvalidState.
	MarkProcessing(ctx context.Context, recID id.VerificationID) error

	// Finalize writes the record's terminal status together with the
	// extracted fields, OCR data and trust delta. The update is guarded
	// on the current status being PROCESSING: a record something else
	// already finalized yields sentinel.ErrInvalidState and no write.
	Finalize(ctx context.Context, rec *models.VerificationRecord) error

	// ListStuckProcessing returns records sitting in PROCESSING whose
	// last update is older than the cutoff, for the reconciliation sweep.
	ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]models.VerificationRecord, error)

	// ListVerifiedWithSkill returns VERIFIED records carrying a skill,
	// so the sweep can re-check their graph edges.
	ListVerifiedWithSkill(ctx context.Context) ([]models.VerificationRecord, error)
}

// UserStore reads and writes the pipeline's view of a user.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// TxRunner runs fn inside one SQL transaction; stores called from fn join it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
