package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":        "hello-world",
		"  spaced   out  ":     "spaced-out",
		"Already-Slugged":      "already-slugged",
		"MixedCASE123":         "mixedcase123",
		"!!!":                  "",
		"a":                    "a",
		"Q4 Report (FINAL) v2": "q4-report-final-v2",
	}
	for title, want := range cases {
		assert.Equal(t, want, Slugify(title), title)
	}
}

func TestNewDefaults(t *testing.T) {
	now := time.Now()
	r, err := New(id.NewOwnerID(), Draft{Title: "Hello, World!"}, now)
	require.NoError(t, err)

	assert.False(t, r.ID.IsNil())
	assert.False(t, r.ExternalRef.IsNil())
	assert.Equal(t, "hello-world", r.Slug)
	assert.Equal(t, StatusDraft, r.Status)
	assert.Equal(t, PriorityMedium, r.Priority)
	assert.Equal(t, CategoryGeneral, r.Category)
	assert.True(t, r.Score.IsZero())
	assert.Nil(t, r.Amount)
	assert.Zero(t, r.Counter)
	assert.False(t, r.IsPublished)
	assert.NotNil(t, r.Tags)
	assert.NotNil(t, r.ScoreHistory)
	assert.NotNil(t, r.RelatedIDs)
	assert.NotNil(t, r.Metadata)
	assert.Nil(t, r.Config)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now, r.UpdatedAt)
}

func TestNewRejectsInvalidDrafts(t *testing.T) {
	now := time.Now()
	owner := id.NewOwnerID()
	negative := decimal.NewFromInt(-1)
	past := now.Add(-time.Hour)

	cases := map[string]Draft{
		"empty title":             {Title: ""},
		"title over 255":          {Title: string(make([]byte, 256))},
		"title with no slug":      {Title: "!!!"},
		"negative score":          {Title: "ok", Score: &negative},
		"negative amount":         {Title: "ok", Amount: &negative},
		"expiry before createdAt": {Title: "ok", ExpiresAt: &past},
		"published draft":         {Title: "ok", IsPublished: true},
		"published pending":       {Title: "ok", IsPublished: true, Status: StatusPending},
		"unknown status":          {Title: "ok", Status: Status("bogus")},
		"empty valid range":       {Title: "ok", ValidRange: &IntRange{Lo: 5, Hi: 5}},
	}
	for name, draft := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(owner, draft, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConstraintViolation), "%v", err)
		})
	}
}

func TestCompositeInvariantAllowsPublishedActive(t *testing.T) {
	r, err := New(id.NewOwnerID(), Draft{Title: "ok", Status: StatusActive, IsPublished: true}, time.Now())
	require.NoError(t, err)
	assert.True(t, r.IsPublished)
}

func TestDecimalRounding(t *testing.T) {
	score := decimal.RequireFromString("12.345")
	r, err := New(id.NewOwnerID(), Draft{Title: "ok", Score: &score}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "12.35", r.Score.StringFixed(2))
	assert.Equal(t, "12.35", r.Score.String())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusPending))
	assert.True(t, StatusPending.CanTransitionTo(StatusActive))
	assert.True(t, StatusActive.CanTransitionTo(StatusSuspended))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusActive))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusArchived))
	assert.True(t, StatusDraft.CanTransitionTo(StatusDraft), "same status is a no-op")

	assert.False(t, StatusDraft.CanTransitionTo(StatusActive))
	assert.False(t, StatusArchived.CanTransitionTo(StatusActive), "archived is terminal")
	assert.False(t, StatusActive.CanTransitionTo(StatusDraft))
}

func TestApplyArchive(t *testing.T) {
	now := time.Now()
	expiry := now.Add(time.Hour)
	r, err := New(id.NewOwnerID(), Draft{Title: "ok", Status: StatusActive, IsPublished: true, ExpiresAt: &expiry}, now)
	require.NoError(t, err)

	later := now.Add(2 * time.Hour)
	require.True(t, r.IsExpired(later.Add(time.Minute)))

	changed := r.ApplyArchive(later)
	assert.True(t, changed)
	assert.Equal(t, StatusArchived, r.Status)
	assert.False(t, r.IsPublished, "archival unpublishes so the composite invariant holds")
	assert.Equal(t, later, r.UpdatedAt)
	require.NoError(t, r.Validate())

	// Idempotent: a second application is a no-op.
	updatedAt := r.UpdatedAt
	assert.False(t, r.ApplyArchive(later.Add(time.Hour)))
	assert.Equal(t, updatedAt, r.UpdatedAt)
	assert.Equal(t, &expiry, r.ExpiresAt, "expiry is untouched by archival")
}

func TestApplyArchiveAdvancesStaleClock(t *testing.T) {
	now := time.Now()
	expiry := now.Add(time.Hour)
	r, err := New(id.NewOwnerID(), Draft{Title: "ok", Status: StatusActive, ExpiresAt: &expiry}, now)
	require.NoError(t, err)

	// The record was updated after the archive pass pinned its timestamp.
	r.UpdatedAt = now.Add(3 * time.Hour)
	before := r.UpdatedAt

	require.True(t, r.ApplyArchive(now.Add(2*time.Hour)))
	assert.True(t, r.UpdatedAt.After(before), "archival must not rewind UpdatedAt")
	assert.Equal(t, before.Add(time.Nanosecond), r.UpdatedAt)
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	r, err := New(id.NewOwnerID(), Draft{Title: "ok"}, now)
	require.NoError(t, err)

	assert.False(t, r.IsExpired(now), "no expiry set")

	expiry := now.Add(time.Hour)
	r.ExpiresAt = &expiry
	assert.False(t, r.IsExpired(now), "expiry in the future")
	assert.True(t, r.IsExpired(now.Add(2*time.Hour)))

	r.Status = StatusArchived
	assert.False(t, r.IsExpired(now.Add(2*time.Hour)), "already archived")
}

func TestCloneIsDeep(t *testing.T) {
	r, err := New(id.NewOwnerID(), Draft{
		Title:    "ok",
		Tags:     []string{"a"},
		Metadata: map[string]any{"k": "v"},
	}, time.Now())
	require.NoError(t, err)

	c := r.Clone()
	c.Tags[0] = "mutated"
	c.Metadata["k"] = "mutated"
	c.SetTitle("Changed")

	assert.Equal(t, []string{"a"}, r.Tags)
	assert.Equal(t, "v", r.Metadata["k"])
	assert.Equal(t, "ok", r.Title)
	assert.Equal(t, "ok", r.Slug)
}
