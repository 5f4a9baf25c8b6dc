//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "talanta/pkg/domain"
	"talanta/pkg/testutil/containers"

	"talanta/internal/audit"
	auditpg "talanta/internal/audit/store/postgres"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_logs"))
}

func (s *AuditStoreSuite) TestListByUserFiltersOnUserID() {
	ctx := context.Background()
	userID := id.NewUserID()
	otherID := id.NewUserID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	events := []audit.Event{
		{
			Timestamp:  now,
			Actor:      "SYSTEM",
			Action:     audit.ActionDocumentVerified,
			EntityType: "verification",
			EntityID:   id.NewVerificationID().String(),
			UserID:     userID,
			New:        map[string]any{"status": "VERIFIED"},
		},
		{
			Timestamp:  now.Add(time.Second),
			Actor:      "SYSTEM",
			Action:     audit.ActionTrustScoreChanged,
			EntityType: "user",
			EntityID:   userID.String(),
			UserID:     userID,
			Old:        map[string]any{"trust_score": float64(40)},
			New:        map[string]any{"trust_score": float64(50)},
		},
		{
			Timestamp:  now,
			Actor:      otherID.String(),
			Action:     audit.ActionDocumentUploaded,
			EntityType: "verification",
			EntityID:   id.NewVerificationID().String(),
			UserID:     otherID,
		},
	}
	for _, e := range events {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	got, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(audit.ActionDocumentVerified, got[0].Action)
	s.Equal(audit.ActionTrustScoreChanged, got[1].Action)
	s.Equal(userID, got[1].UserID)
	s.Equal(map[string]any{"trust_score": float64(50)}, got[1].New)

	other, err := s.store.ListByUser(ctx, otherID)
	s.Require().NoError(err)
	s.Require().Len(other, 1)
	s.Equal(audit.ActionDocumentUploaded, other[0].Action)
}

func (s *AuditStoreSuite) TestAppendWithoutUserID() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp:  time.Now().UTC(),
		Actor:      "SYSTEM",
		Action:     audit.ActionSweepRepair,
		EntityType: "skill",
		EntityID:   "Welding",
	}))

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM audit_logs WHERE user_id IS NULL`).Scan(&count))
	s.Equal(1, count)
}
