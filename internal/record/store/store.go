// Package store wraps the Record Repository collaborator. Implementations
// guarantee atomic single-row reads/writes, uniqueness on slug and external
// ref, and report facts through pkg/platform/sentinel errors; all policy and
// invariant decisions live above, in the service.
package store

import (
	"context"
	"time"

	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
)

// ListFilter narrows List results. Nil fields match everything; visibility
// filtering is the service's job, not the store's.
type ListFilter struct {
	OwnerID  *id.OwnerID
	Status   *models.Status
	Category *models.Category
}

// Store is the Record Repository contract.
//
// Execute is the atomic validate-then-mutate primitive: the implementation
// holds the row lock (mutex or SELECT ... FOR UPDATE) across both callbacks,
// so concurrent updates to the same record serialize and no write is
// silently lost. An error from either callback aborts with nothing
// persisted. Mutations that change the slug re-check uniqueness atomically
// and fail with sentinel.ErrAlreadyUsed.
type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	FindByExternalRef(ctx context.Context, ref id.ExternalRef) (*models.Record, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Record, error)
	Execute(ctx context.Context, recordID id.RecordID,
		validate func(pre *models.Record) error,
		mutate func(rec *models.Record) error,
	) (*models.Record, error)
	Delete(ctx context.Context, recordID id.RecordID) error
	// DeleteByOwner is the cascade used when an owner is deleted. Returns
	// the number of records removed.
	DeleteByOwner(ctx context.Context, ownerID id.OwnerID) (int, error)
	// FindExpiredIDs returns ids of records whose expiry has passed and
	// whose status is not yet archived.
	FindExpiredIDs(ctx context.Context, now time.Time) ([]id.RecordID, error)
}
