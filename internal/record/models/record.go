package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
	pstrings "recordvault/pkg/platform/strings"
)

const (
	titleMinLen = 1
	titleMaxLen = 255
)

// IntRange is a half-open integer interval [Lo, Hi).
type IntRange struct {
	Lo int64 `json:"lo"`
	Hi int64 `json:"hi"`
}

// TimeRange is a half-open timestamp interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Record is the core entity.
//
// Invariants (checked on every write, not just at creation):
//   - Title length 1–255; Slug derived from Title and unique store-wide
//   - Score >= 0; Amount nil or >= 0; both carry 2 fractional digits
//   - Counter >= 0
//   - ExpiresAt nil or strictly after CreatedAt
//   - IsPublished implies Status == active (composite invariant, enforced
//     atomically with any update touching either field)
//   - ID, ExternalRef, CreatedAt, OwnerID immutable after creation
//
// UpdatedAt is refreshed on every successful mutation; the facade owns that
// refresh, it is not caller-overridable.
type Record struct {
	ID          id.RecordID    `json:"id"`
	ExternalRef id.ExternalRef `json:"external_ref"`
	OwnerID     id.OwnerID     `json:"owner_id"`

	Title string `json:"title"`
	Slug  string `json:"slug"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Category Category `json:"category"`

	Score  decimal.Decimal  `json:"score"`
	Amount *decimal.Decimal `json:"amount,omitempty"`

	Counter int64 `json:"counter"`

	IsPublished bool `json:"is_published"`
	IsFeatured  bool `json:"is_featured"`

	Tags         []string          `json:"tags"`
	ScoreHistory []decimal.Decimal `json:"score_history"`
	RelatedIDs   []id.RecordID     `json:"related_ids"`

	Metadata map[string]any `json:"metadata"`
	Config   map[string]any `json:"config,omitempty"`

	ValidRange   *IntRange  `json:"valid_range,omitempty"`
	ActivePeriod *TimeRange `json:"active_period,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Draft carries the caller-settable fields for creation. Zero values fall
// back to the documented defaults. ID, ExternalRef, and CreatedAt are never
// caller-supplied; the facade rejects them before this type is built.
//
// Status may be any member of the closed set: the transition graph constrains
// changes to existing records, not the state a record is born in. A draft
// starting at active (even published) only has to satisfy Validate.
type Draft struct {
	Title        string
	Status       Status
	Priority     Priority
	Category     Category
	Score        *decimal.Decimal
	Amount       *decimal.Decimal
	Counter      *int64
	IsPublished  bool
	IsFeatured   bool
	Tags         []string
	ScoreHistory []decimal.Decimal
	RelatedIDs   []id.RecordID
	Metadata     map[string]any
	Config       map[string]any
	ValidRange   *IntRange
	ActivePeriod *TimeRange
	PublishedAt  *time.Time
	ExpiresAt    *time.Time
}

// New builds a record owned by ownerID with fresh identifiers, applies
// defaults, derives the slug, and validates every invariant.
func New(ownerID id.OwnerID, d Draft, now time.Time) (*Record, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeConstraintViolation, "record owner is required")
	}

	r := &Record{
		ID:           id.NewRecordID(),
		ExternalRef:  id.NewExternalRef(),
		OwnerID:      ownerID,
		Title:        d.Title,
		Slug:         Slugify(d.Title),
		Status:       d.Status,
		Priority:     d.Priority,
		Category:     d.Category,
		Score:        decimal.Zero,
		Amount:       d.Amount,
		IsPublished:  d.IsPublished,
		IsFeatured:   d.IsFeatured,
		Tags:         d.Tags,
		ScoreHistory: d.ScoreHistory,
		RelatedIDs:   d.RelatedIDs,
		Metadata:     d.Metadata,
		Config:       d.Config,
		ValidRange:   d.ValidRange,
		ActivePeriod: d.ActivePeriod,
		CreatedAt:    now,
		UpdatedAt:    now,
		PublishedAt:  d.PublishedAt,
		ExpiresAt:    d.ExpiresAt,
	}

	r.Tags = pstrings.DedupeAndTrim(r.Tags)

	// Defaults for the closed sets and optional scalars.
	if r.Status == "" {
		r.Status = StatusDraft
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Category == "" {
		r.Category = CategoryGeneral
	}
	if d.Score != nil {
		r.Score = *d.Score
	}
	if d.Counter != nil {
		r.Counter = *d.Counter
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.ScoreHistory == nil {
		r.ScoreHistory = []decimal.Decimal{}
	}
	if r.RelatedIDs == nil {
		r.RelatedIDs = []id.RecordID{}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	normalize(r)

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// normalize rounds decimal fields to the 2 fractional digits the data model
// carries.
func normalize(r *Record) {
	r.Score = r.Score.Round(2)
	if r.Amount != nil {
		rounded := r.Amount.Round(2)
		r.Amount = &rounded
	}
	for i := range r.ScoreHistory {
		r.ScoreHistory[i] = r.ScoreHistory[i].Round(2)
	}
}

// Validate checks every §3-style invariant. It runs on creation and again on
// each update's post-image before anything is persisted.
func (r *Record) Validate() error {
	if len(r.Title) < titleMinLen || len(r.Title) > titleMaxLen {
		return dErrors.New(dErrors.CodeConstraintViolation,
			fmt.Sprintf("title length must be between %d and %d", titleMinLen, titleMaxLen))
	}
	if r.Slug == "" {
		return dErrors.New(dErrors.CodeConstraintViolation, "title must contain at least one alphanumeric character")
	}
	if r.Slug != Slugify(r.Title) {
		return dErrors.New(dErrors.CodeConstraintViolation, "slug must be derived from title")
	}
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeConstraintViolation, "status is not in the closed set")
	}
	if !r.Priority.IsValid() {
		return dErrors.New(dErrors.CodeConstraintViolation, "priority is not in the closed set")
	}
	if !r.Category.IsValid() {
		return dErrors.New(dErrors.CodeConstraintViolation, "category is not in the closed set")
	}
	if r.Score.IsNegative() {
		return dErrors.New(dErrors.CodeConstraintViolation, "score must be non-negative")
	}
	if r.Amount != nil && r.Amount.IsNegative() {
		return dErrors.New(dErrors.CodeConstraintViolation, "amount must be non-negative")
	}
	if r.Counter < 0 {
		return dErrors.New(dErrors.CodeConstraintViolation, "counter must be non-negative")
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(r.CreatedAt) {
		return dErrors.New(dErrors.CodeConstraintViolation, "expiresAt must be strictly after createdAt")
	}
	if r.ValidRange != nil && r.ValidRange.Lo >= r.ValidRange.Hi {
		return dErrors.New(dErrors.CodeConstraintViolation, "validRange must be a non-empty half-open interval")
	}
	if r.ActivePeriod != nil && !r.ActivePeriod.Start.Before(r.ActivePeriod.End) {
		return dErrors.New(dErrors.CodeConstraintViolation, "activePeriod must be a non-empty half-open interval")
	}
	if r.IsPublished && r.Status != StatusActive {
		return dErrors.New(dErrors.CodeConstraintViolation, "a published record must have active status")
	}
	if r.OwnerID.IsNil() {
		return dErrors.New(dErrors.CodeConstraintViolation, "record owner is required")
	}
	return nil
}

// SetTitle changes the title and recomputes the slug in the same step so the
// derivation invariant cannot be broken halfway.
func (r *Record) SetTitle(title string) {
	r.Title = title
	r.Slug = Slugify(title)
}

// IsExpired reports whether the record is past its expiry and not yet
// archived — the scheduler's selection predicate.
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now) && r.Status != StatusArchived
}

// ApplyArchive performs the terminal lifecycle transition. Idempotent:
// returns false without touching anything when the record is already
// archived, so a retried scheduler tick cannot double-process.
func (r *Record) ApplyArchive(now time.Time) bool {
	if r.Status == StatusArchived {
		return false
	}
	r.Status = StatusArchived
	// Publication cannot survive archival; the composite invariant forbids
	// a published non-active record.
	r.IsPublished = false
	// The scheduler pins one timestamp per pass, so a record updated after
	// the pass started would otherwise have UpdatedAt rewound here.
	// UpdatedAt strictly advances on every mutation, this one included.
	if !now.After(r.UpdatedAt) {
		now = r.UpdatedAt.Add(time.Nanosecond)
	}
	r.UpdatedAt = now
	return true
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.ScoreHistory = append([]decimal.Decimal(nil), r.ScoreHistory...)
	c.RelatedIDs = append([]id.RecordID(nil), r.RelatedIDs...)
	c.Metadata = cloneMap(r.Metadata)
	c.Config = cloneMap(r.Config)
	if r.Amount != nil {
		amount := *r.Amount
		c.Amount = &amount
	}
	if r.ValidRange != nil {
		vr := *r.ValidRange
		c.ValidRange = &vr
	}
	if r.ActivePeriod != nil {
		ap := *r.ActivePeriod
		c.ActivePeriod = &ap
	}
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		c.PublishedAt = &t
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
