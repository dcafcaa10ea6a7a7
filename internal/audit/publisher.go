package audit

import (
	"context"
	"log/slog"
	"time"
)

const defaultInboxSize = 256

// Publisher hands events to the worker without blocking the caller. A full
// inbox drops the event with a warning; verification latency outranks audit
// completeness here.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher and its inbox.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		inbox:  make(chan Event, defaultInboxSize),
		logger: logger,
	}
}

// Emit queues the event for the worker. Never blocks.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "popup_id", event.PopupID, "user_id", event.UserID)
	}
}

// Inbox is the channel the worker drains.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
