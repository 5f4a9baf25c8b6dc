package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox into the store. A store failure is
// logged and the event dropped; the pipeline keeps running.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("failed to persist audit event",
					"action", event.Action, "entity_id", event.EntityID, "error", err)
			}
		}
	}
}
