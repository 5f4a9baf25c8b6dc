package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talanta/pkg/domain"
	"talanta/pkg/platform/sentinel"

	"talanta/internal/verification/models"
)

func newRecord(userID id.UserID) *models.VerificationRecord {
	return &models.VerificationRecord{
		ID:           id.NewVerificationID(),
		UserID:       userID,
		DocumentType: models.DocumentCertificate,
		StorageKey:   "verifications/u/v.png",
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
}

func TestMemoryRecordStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	rec := newRecord(id.NewUserID())

	require.NoError(t, s.Create(ctx, rec))

	got, err := s.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	require.NoError(t, s.MarkProcessing(ctx, rec.ID))

	got, err = s.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)

	got.Status = models.StatusVerified
	got.TrustScoreDelta = 10
	now := time.Now()
	got.VerifiedAt = &now
	got.VerifiedBy = "SYSTEM"
	require.NoError(t, s.Finalize(ctx, got))

	final, err := s.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, final.Status)
	assert.Equal(t, 10, final.TrustScoreDelta)
}

func TestMemoryRecordStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	rec := newRecord(id.NewUserID())

	require.NoError(t, s.Create(ctx, rec))
	assert.ErrorIs(t, s.Create(ctx, rec), sentinel.ErrConflict)
}

func TestMemoryRecordStore_MarkProcessing(t *testing.T) {
	ctx := context.Background()

	t.Run("reentry from processing is allowed", func(t *testing.T) {
		s := NewMemoryRecordStore()
		rec := newRecord(id.NewUserID())
		require.NoError(t, s.Create(ctx, rec))

		require.NoError(t, s.MarkProcessing(ctx, rec.ID))
		require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	})

	t.Run("terminal record is refused", func(t *testing.T) {
		s := NewMemoryRecordStore()
		rec := newRecord(id.NewUserID())
		require.NoError(t, s.Create(ctx, rec))
		require.NoError(t, s.MarkProcessing(ctx, rec.ID))

		rec.Status = models.StatusRejected
		rec.RejectionReason = "ID number not found"
		require.NoError(t, s.Finalize(ctx, rec))

		assert.ErrorIs(t, s.MarkProcessing(ctx, rec.ID), sentinel.ErrInvalidState)
	})

	t.Run("unknown record", func(t *testing.T) {
		s := NewMemoryRecordStore()
		assert.ErrorIs(t, s.MarkProcessing(ctx, id.NewVerificationID()), sentinel.ErrNotFound)
	})
}

func TestMemoryRecordStore_FinalizeGuard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	rec := newRecord(id.NewUserID())
	require.NoError(t, s.Create(ctx, rec))

	// Not yet PROCESSING.
	rec.Status = models.StatusVerified
	assert.ErrorIs(t, s.Finalize(ctx, rec), sentinel.ErrInvalidState)

	require.NoError(t, s.MarkProcessing(ctx, rec.ID))
	require.NoError(t, s.Finalize(ctx, rec))

	// Already terminal: the second finalize must not double-apply.
	assert.ErrorIs(t, s.Finalize(ctx, rec), sentinel.ErrInvalidState)
}

func TestMemoryRecordStore_ListByUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	alice, bob := id.NewUserID(), id.NewUserID()

	a1 := newRecord(alice)
	a1.CreatedAt = time.Now().Add(-time.Hour)
	a2 := newRecord(alice)
	require.NoError(t, s.Create(ctx, a1))
	require.NoError(t, s.Create(ctx, a2))
	require.NoError(t, s.Create(ctx, newRecord(bob)))

	recs, err := s.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, a2.ID, recs[0].ID, "newest first")
}

func TestMemoryRecordStore_ListStuckProcessing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	rec := newRecord(id.NewUserID())
	require.NoError(t, s.Create(ctx, rec))
	require.NoError(t, s.MarkProcessing(ctx, rec.ID))

	fresh, err := s.ListStuckProcessing(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	s.SetNow(func() time.Time { return time.Now().Add(2 * time.Hour) })
	stuck, err := s.ListStuckProcessing(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, rec.ID, stuck[0].ID)
}

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	userID := id.NewUserID()

	_, err := s.FindByID(ctx, userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	s.Put(models.User{ID: userID, FullName: "John Mwangi", TrustScore: 40})

	u, err := s.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 40, u.TrustScore)

	u.TrustScore = 50
	u.IsVerified = true
	require.NoError(t, s.Update(ctx, u))

	again, err := s.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 50, again.TrustScore)
	assert.True(t, again.IsVerified)
}
