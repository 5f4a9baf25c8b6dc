package audit_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talanta/pkg/domain"

	"talanta/internal/audit"
	"talanta/internal/audit/store/memory"
)

func TestPublisherWorkerRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	pub := audit.NewPublisher(16, logger)
	worker := audit.NewWorker(store, pub.Inbox(), logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	userID := id.NewUserID()
	pub.Publish(audit.Event{
		Actor:      "SYSTEM",
		Action:     audit.ActionDocumentVerified,
		EntityType: "verification",
		EntityID:   id.NewVerificationID().String(),
		UserID:     userID,
		New:        map[string]any{"status": "VERIFIED"},
	})

	require.Eventually(t, func() bool {
		events, err := store.ListByUser(context.Background(), userID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionDocumentVerified, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "publisher stamps events")

	cancel()
	<-done
}

func TestPublisherDropsWhenInboxFull(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pub := audit.NewPublisher(1, logger)

	// No worker draining: the second publish must not block.
	pub.Publish(audit.Event{Action: audit.ActionDocumentUploaded})
	pub.Publish(audit.Event{Action: audit.ActionDocumentUploaded})

	assert.Len(t, pub.Inbox(), 1)
}
