package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordvault/internal/identity"
	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
)

func newRecord(t *testing.T, owner id.OwnerID, published bool) *models.Record {
	t.Helper()
	draft := models.Draft{Title: "Policy Target"}
	if published {
		draft.Status = models.StatusActive
		draft.IsPublished = true
	}
	rec, err := models.New(owner, draft, time.Now())
	require.NoError(t, err)
	return rec
}

// Ownership invariant: read succeeds iff caller owns the record or the
// record is published.
func TestEvaluateRead(t *testing.T) {
	owner := id.NewOwnerID()
	engine := NewEngine()

	private := newRecord(t, owner, false)
	published := newRecord(t, owner, true)

	t.Run("owner reads own private record", func(t *testing.T) {
		assert.True(t, engine.Evaluate(identity.Authenticated(owner), OpRead, private).Allowed())
	})

	t.Run("stranger cannot read private record", func(t *testing.T) {
		assert.False(t, engine.Evaluate(identity.Authenticated(id.NewOwnerID()), OpRead, private).Allowed())
	})

	t.Run("anonymous cannot read private record", func(t *testing.T) {
		assert.False(t, engine.Evaluate(identity.Anonymous(), OpRead, private).Allowed())
	})

	t.Run("anyone reads published record", func(t *testing.T) {
		assert.True(t, engine.Evaluate(identity.Authenticated(id.NewOwnerID()), OpRead, published).Allowed())
		assert.True(t, engine.Evaluate(identity.Anonymous(), OpRead, published).Allowed())
	})
}

// No cross-owner mutation: publication only affects read visibility.
func TestEvaluateMutationsRequireOwnership(t *testing.T) {
	owner := id.NewOwnerID()
	stranger := identity.Authenticated(id.NewOwnerID())
	engine := NewEngine()

	published := newRecord(t, owner, true)

	for _, op := range []Operation{OpUpdate, OpDelete, OpCreate} {
		assert.False(t, engine.Evaluate(stranger, op, published).Allowed(), string(op))
		assert.False(t, engine.Evaluate(identity.Anonymous(), op, published).Allowed(), string(op))
	}
	assert.True(t, engine.Evaluate(identity.Authenticated(owner), OpUpdate, published).Allowed())
	assert.True(t, engine.Evaluate(identity.Authenticated(owner), OpDelete, published).Allowed())
}

func TestEvaluateCreate(t *testing.T) {
	owner := id.NewOwnerID()
	engine := NewEngine()

	t.Run("caller creates own record", func(t *testing.T) {
		assert.True(t, engine.EvaluateCreate(identity.Authenticated(owner), owner).Allowed())
	})

	t.Run("caller cannot create for someone else", func(t *testing.T) {
		assert.False(t, engine.EvaluateCreate(identity.Authenticated(owner), id.NewOwnerID()).Allowed())
	})

	t.Run("anonymous cannot create", func(t *testing.T) {
		assert.False(t, engine.EvaluateCreate(identity.Anonymous(), owner).Allowed())
	})
}

func TestEvaluateUpdateChecksBothImages(t *testing.T) {
	owner := id.NewOwnerID()
	ident := identity.Authenticated(owner)
	engine := NewEngine()

	pre := newRecord(t, owner, false)

	t.Run("owner keeps ownership", func(t *testing.T) {
		post := pre.Clone()
		assert.True(t, engine.EvaluateUpdate(ident, pre, post).Allowed())
	})

	t.Run("reassigning ownership away is denied", func(t *testing.T) {
		post := pre.Clone()
		post.OwnerID = id.NewOwnerID()
		assert.False(t, engine.EvaluateUpdate(ident, pre, post).Allowed())
	})

	t.Run("taking over a foreign record is denied", func(t *testing.T) {
		foreign := newRecord(t, id.NewOwnerID(), false)
		post := foreign.Clone()
		post.OwnerID = owner
		assert.False(t, engine.EvaluateUpdate(ident, foreign, post).Allowed())
	})
}

func TestDenyIsDefault(t *testing.T) {
	var d Decision
	assert.False(t, d.Allowed(), "zero value must deny")
	assert.False(t, NewEngine().Evaluate(identity.Anonymous(), OpRead, nil).Allowed())
}
