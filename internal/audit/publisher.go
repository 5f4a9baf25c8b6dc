package audit

import (
	"log/slog"
	"time"
)

// Publisher hands events to the worker's inbox without blocking. A full
// inbox drops the event and logs it: audit must never stall a job commit.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(size int, logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, size),
		logger: logger,
		now:    time.Now,
	}
}

// Inbox is the channel the worker consumes.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Publish stamps and enqueues the event.
func (p *Publisher) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event",
			"action", event.Action, "entity_id", event.EntityID)
	}
}
