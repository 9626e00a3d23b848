// Package service is the record facade: the single entry point for all
// record operations. It sequences policy evaluation, invariant validation,
// and storage so no caller can bypass access control or persist an invalid
// record.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"recordvault/internal/audit"
	"recordvault/internal/identity"
	"recordvault/internal/record/metrics"
	"recordvault/internal/record/models"
	"recordvault/internal/record/policy"
	"recordvault/internal/record/store"
	"recordvault/pkg/requestcontext"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
	"recordvault/pkg/platform/sentinel"
	pstrings "recordvault/pkg/platform/strings"
)

// Service coordinates the policy engine, the record store, and the audit
// trail. All mutations flow through store.Execute so validation and write
// happen under the same row lock.
type Service struct {
	store   store.Store
	policy  *policy.Engine
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(st store.Store, engine *policy.Engine, publisher *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		policy:  engine,
		audit:   publisher,
		metrics: m,
		logger:  logger.With(slog.String("component", "record-service")),
	}
}

// CreateInput carries a creation request. ID, ExternalRef, and CreatedAt are
// server-generated; a caller supplying them is rejected outright rather than
// silently ignored.
type CreateInput struct {
	ID          string
	ExternalRef string
	CreatedAt   *time.Time

	Draft models.Draft
}

// Create builds and persists a new record owned by the caller.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Record, error) {
	start := time.Now()
	defer s.metrics.ObserveCreate(start)

	if input.ID != "" || input.ExternalRef != "" || input.CreatedAt != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "id, externalRef, and createdAt are server-generated")
	}

	ident := requestcontext.Identity(ctx)
	if !ident.Authenticated {
		s.deny(ctx, string(policy.OpCreate), "", "caller is not authenticated")
		return nil, dErrors.New(dErrors.CodeAccessDenied, "authentication required")
	}
	if !s.policy.EvaluateCreate(ident, ident.ID).Allowed() {
		s.deny(ctx, string(policy.OpCreate), "", "caller may not create records for this owner")
		return nil, dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}

	rec, err := models.New(ident.ID, input.Draft, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, s.translate(ctx, err)
	}

	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "record created",
		"record_id", rec.ID.String(),
		"owner_id", rec.OwnerID.String(),
		"slug", rec.Slug,
	)
	return rec, nil
}

// Get returns a record the caller is allowed to see. Records the caller
// cannot see surface as NotFound, never AccessDenied, so private rows cannot
// be enumerated by probing ids.
func (s *Service) Get(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	rec, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, s.translate(ctx, err)
	}
	if !s.policy.CanSee(requestcontext.Identity(ctx), rec) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return rec, nil
}

// GetByExternalRef is Get keyed on the external reference.
func (s *Service) GetByExternalRef(ctx context.Context, ref id.ExternalRef) (*models.Record, error) {
	rec, err := s.store.FindByExternalRef(ctx, ref)
	if err != nil {
		return nil, s.translate(ctx, err)
	}
	if !s.policy.CanSee(requestcontext.Identity(ctx), rec) {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return rec, nil
}

// UpdateInput carries a partial update. Nil fields are left untouched.
// OwnerID is present only so reassignment attempts can be detected and
// denied; ID, ExternalRef, and CreatedAt have no input field at all.
type UpdateInput struct {
	Title        *string
	Status       *models.Status
	Priority     *models.Priority
	Category     *models.Category
	Score        *decimal.Decimal
	Amount       *decimal.Decimal
	Counter      *int64
	IsPublished  *bool
	IsFeatured   *bool
	Tags         []string
	ScoreHistory []decimal.Decimal
	RelatedIDs   []id.RecordID
	Metadata     map[string]any
	Config       map[string]any
	ValidRange   *models.IntRange
	ActivePeriod *models.TimeRange
	PublishedAt  *time.Time
	ExpiresAt    *time.Time

	OwnerID *id.OwnerID

	// ExpectedUpdatedAt is an optional optimistic precondition. When set and
	// the stored UpdatedAt differs, the update fails with Conflict and is
	// never retried on the caller's behalf.
	ExpectedUpdatedAt *time.Time
}

// Update applies a partial update atomically: policy, precondition, field
// application, and invariant validation all run under the store's row lock,
// and nothing persists if any step fails.
func (s *Service) Update(ctx context.Context, recordID id.RecordID, input UpdateInput) (*models.Record, error) {
	start := time.Now()
	defer s.metrics.ObserveUpdate(start)

	ident := requestcontext.Identity(ctx)
	now := requestcontext.Now(ctx)

	updated, err := s.store.Execute(ctx, recordID,
		func(pre *models.Record) error {
			if !s.policy.CanSee(ident, pre) {
				return dErrors.New(dErrors.CodeNotFound, "record not found")
			}
			post := pre.Clone()
			if input.OwnerID != nil {
				post.OwnerID = *input.OwnerID
			}
			if !s.policy.EvaluateUpdate(ident, pre, post).Allowed() {
				s.deny(ctx, string(policy.OpUpdate), pre.ID.String(), "caller does not own the record")
				return dErrors.New(dErrors.CodeAccessDenied, "access denied")
			}
			if input.ExpectedUpdatedAt != nil && !input.ExpectedUpdatedAt.Equal(pre.UpdatedAt) {
				return dErrors.New(dErrors.CodeConflict, "record was modified concurrently")
			}
			return nil
		},
		func(rec *models.Record) error {
			if input.Status != nil && !rec.Status.CanTransitionTo(*input.Status) {
				return dErrors.New(dErrors.CodeConstraintViolation,
					"status transition from "+string(rec.Status)+" to "+string(*input.Status)+" is not allowed")
			}
			applyUpdate(rec, input)

			// UpdatedAt must advance on every successful mutation even when
			// the wall clock has not moved past the stored value.
			next := now
			if !next.After(rec.UpdatedAt) {
				next = rec.UpdatedAt.Add(time.Nanosecond)
			}
			rec.UpdatedAt = next

			return rec.Validate()
		},
	)
	if err != nil {
		return nil, s.translate(ctx, err)
	}

	s.logger.InfoContext(ctx, "record updated", "record_id", updated.ID.String())
	return updated, nil
}

func applyUpdate(rec *models.Record, input UpdateInput) {
	if input.Title != nil {
		rec.SetTitle(*input.Title)
	}
	if input.Status != nil {
		rec.Status = *input.Status
	}
	if input.Priority != nil {
		rec.Priority = *input.Priority
	}
	if input.Category != nil {
		rec.Category = *input.Category
	}
	if input.Score != nil {
		rec.Score = input.Score.Round(2)
	}
	if input.Amount != nil {
		rounded := input.Amount.Round(2)
		rec.Amount = &rounded
	}
	if input.Counter != nil {
		rec.Counter = *input.Counter
	}
	if input.IsPublished != nil {
		rec.IsPublished = *input.IsPublished
	}
	if input.IsFeatured != nil {
		rec.IsFeatured = *input.IsFeatured
	}
	if input.Tags != nil {
		rec.Tags = pstrings.DedupeAndTrim(input.Tags)
	}
	if input.ScoreHistory != nil {
		rec.ScoreHistory = make([]decimal.Decimal, len(input.ScoreHistory))
		for i, sc := range input.ScoreHistory {
			rec.ScoreHistory[i] = sc.Round(2)
		}
	}
	if input.RelatedIDs != nil {
		rec.RelatedIDs = input.RelatedIDs
	}
	if input.Metadata != nil {
		rec.Metadata = input.Metadata
	}
	if input.Config != nil {
		rec.Config = input.Config
	}
	if input.ValidRange != nil {
		rec.ValidRange = input.ValidRange
	}
	if input.ActivePeriod != nil {
		rec.ActivePeriod = input.ActivePeriod
	}
	if input.PublishedAt != nil {
		rec.PublishedAt = input.PublishedAt
	}
	if input.ExpiresAt != nil {
		rec.ExpiresAt = input.ExpiresAt
	}
	if input.OwnerID != nil {
		rec.OwnerID = *input.OwnerID
	}
}

// Delete removes a record. The same visibility masking as Get applies, so a
// caller cannot learn about rows it could not read.
func (s *Service) Delete(ctx context.Context, recordID id.RecordID) error {
	ident := requestcontext.Identity(ctx)

	rec, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return s.translate(ctx, err)
	}
	if !s.policy.CanSee(ident, rec) {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if !s.policy.Evaluate(ident, policy.OpDelete, rec).Allowed() {
		s.deny(ctx, string(policy.OpDelete), rec.ID.String(), "caller does not own the record")
		return dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}

	if err := s.store.Delete(ctx, recordID); err != nil {
		return s.translate(ctx, err)
	}

	s.logger.InfoContext(ctx, "record deleted", "record_id", recordID.String())
	return nil
}

// ListInput narrows a listing. Visibility is always applied on top: the
// result is the caller's own records plus anyone's published records.
type ListInput struct {
	Status   *models.Status
	Category *models.Category
}

// List returns every record visible to the caller that matches the filter.
func (s *Service) List(ctx context.Context, input ListInput) ([]*models.Record, error) {
	start := time.Now()
	defer s.metrics.ObserveList(start)

	ident := requestcontext.Identity(ctx)

	recs, err := s.store.List(ctx, store.ListFilter{
		Status:   input.Status,
		Category: input.Category,
	})
	if err != nil {
		return nil, s.translate(ctx, err)
	}

	visible := make([]*models.Record, 0, len(recs))
	for _, rec := range recs {
		if s.policy.CanSee(ident, rec) {
			visible = append(visible, rec)
		}
	}
	return visible, nil
}

// PurgeOwner deletes every record belonging to ownerID, the cascade run when
// an owner account is removed. Only the owner themselves may trigger it.
func (s *Service) PurgeOwner(ctx context.Context, ownerID id.OwnerID) (int, error) {
	ident := requestcontext.Identity(ctx)
	if !ident.Owns(ownerID) {
		s.deny(ctx, "purge", ownerID.String(), "caller is not the owner being purged")
		return 0, dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}

	removed, err := s.store.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, s.translate(ctx, err)
	}

	s.audit.Emit(ctx, audit.Event{
		Actor:    actor(ident),
		Action:   "owner.purge",
		Record:   ownerID.String(),
		Decision: audit.DecisionAllow,
	})
	s.logger.InfoContext(ctx, "owner purged", "owner_id", ownerID.String(), "records_removed", removed)
	return removed, nil
}

// ArchiveExpired performs the lifecycle transition for one expired record.
// It is a privileged internal operation invoked by the scheduler, so no
// policy evaluation applies. Idempotent: archiving an already-archived
// record reports archived=false and changes nothing.
func (s *Service) ArchiveExpired(ctx context.Context, recordID id.RecordID) (bool, error) {
	archived := false

	_, err := s.store.Execute(ctx, recordID,
		func(_ *models.Record) error { return nil },
		func(rec *models.Record) error {
			archived = rec.ApplyArchive(requestcontext.Now(ctx))
			return nil
		},
	)
	if err != nil {
		return false, s.translate(ctx, err)
	}

	if archived {
		s.metrics.IncrementArchived()
		s.audit.Emit(ctx, audit.Event{
			Actor:    "scheduler",
			Action:   "record.archive",
			Record:   recordID.String(),
			Decision: audit.DecisionAllow,
		})
		s.logger.InfoContext(ctx, "record archived", "record_id", recordID.String())
	}
	return archived, nil
}

// ExpiredRecordIDs lists candidates for the scheduler's archival pass.
func (s *Service) ExpiredRecordIDs(ctx context.Context, now time.Time) ([]id.RecordID, error) {
	ids, err := s.store.FindExpiredIDs(ctx, now)
	if err != nil {
		return nil, s.translate(ctx, err)
	}
	return ids, nil
}

// deny records a policy denial on the audit trail and metrics.
func (s *Service) deny(ctx context.Context, operation, record, reason string) {
	s.metrics.IncrementDenied(operation)
	s.audit.Emit(ctx, audit.Event{
		Actor:    actor(requestcontext.Identity(ctx)),
		Action:   "record." + operation,
		Record:   record,
		Decision: audit.DecisionDeny,
		Reason:   reason,
	})
}

func actor(ident identity.Identity) string {
	if ident.Authenticated {
		return ident.ID.String()
	}
	return "anonymous"
}

// translate maps store sentinel errors onto coded domain errors. Errors that
// already carry a code pass through untouched; anything unrecognized is
// treated as the storage layer being unavailable.
func (s *Service) translate(ctx context.Context, err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConstraintViolation, "slug is already in use")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "record was modified concurrently")
	default:
		s.logger.ErrorContext(ctx, "store failure", "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	}
}
