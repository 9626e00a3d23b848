package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to the background worker through a bounded channel.
// Emit never blocks the request path: when the inbox is full the event is
// dropped and logged, trading completeness for latency.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger.With(slog.String("component", "audit"))}
}

// Emit queues an event for persistence. Nil-safe so services can run without
// auditing wired (tests, tooling).
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"actor", event.Actor,
		)
	}
}
