// Package policy is the pure access-control evaluator. It never touches
// storage and never suspends, so the rules are unit-testable on their own.
package policy

import (
	"recordvault/internal/identity"
	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
)

// Operation is the closed set of operation kinds a rule can permit.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Decision is the outcome of an evaluation. Deny is the zero value so a
// forgotten rule can never grant access.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

// rule is one tagged permit rule. Rules only ever grant; denial is the
// absence of a permitting rule.
type rule struct {
	name    string
	permits func(ident identity.Identity, op Operation, rec *models.Record) bool
}

// The enumerated rule set, evaluated as an OR:
//   - owner: the authenticated owner may read, update, and delete
//   - public-read: anyone, including anonymous callers, may read a
//     published record; publication never affects mutation rights
var rules = []rule{
	{
		name: "owner",
		permits: func(ident identity.Identity, _ Operation, rec *models.Record) bool {
			return ident.Owns(rec.OwnerID)
		},
	},
	{
		name: "public-read",
		permits: func(_ identity.Identity, op Operation, rec *models.Record) bool {
			return op == OpRead && rec.IsPublished
		},
	},
}

// Engine evaluates an identity, operation kind, and record against the
// enumerated rule set. Permit if any rule permits; deny otherwise.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate decides read/update/delete against an existing record.
func (e *Engine) Evaluate(ident identity.Identity, op Operation, rec *models.Record) Decision {
	if rec == nil {
		return Deny
	}
	for _, r := range rules {
		if r.permits(ident, op, rec) {
			return Allow
		}
	}
	return Deny
}

// EvaluateCreate decides creation against the *proposed* owner: a caller may
// only create records it will own itself.
func (e *Engine) EvaluateCreate(ident identity.Identity, proposedOwner id.OwnerID) Decision {
	if ident.Owns(proposedOwner) {
		return Allow
	}
	return Deny
}

// EvaluateUpdate requires ownership of both the pre-image and the post-image,
// which blocks reassigning ownership away from or into a row the caller does
// not own.
func (e *Engine) EvaluateUpdate(ident identity.Identity, pre, post *models.Record) Decision {
	if pre == nil || post == nil {
		return Deny
	}
	if ident.Owns(pre.OwnerID) && ident.Owns(post.OwnerID) {
		return Allow
	}
	return Deny
}

// CanSee reports whether the record's existence may be revealed to the
// caller at all. Invisible records surface as NotFound rather than
// AccessDenied so private rows cannot be enumerated.
func (e *Engine) CanSee(ident identity.Identity, rec *models.Record) bool {
	return e.Evaluate(ident, OpRead, rec).Allowed()
}
