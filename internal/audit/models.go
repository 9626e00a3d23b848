package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Actor     string // owner id, "anonymous", or "scheduler"
	Action    string // e.g. "record.update", "attachment.upload", "record.archive"
	Record    string // record id or attachment path, when applicable
	Decision  string // "allow" / "deny" for policy-gated actions
	Reason    string
}

// Decisions recorded on events.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Store is the append-only sink behind the worker.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}
