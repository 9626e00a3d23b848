package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
	"recordvault/pkg/platform/sentinel"
)

// InMemory keeps records in maps guarded by one RWMutex. It favors clarity
// over performance and backs unit tests and single-process deployments.
// Records are deep-copied on the way in and out so callers never alias
// store-internal state.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.Record
	bySlug  map[string]id.RecordID
	byRef   map[id.ExternalRef]id.RecordID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.RecordID]*models.Record),
		bySlug:  make(map[string]id.RecordID),
		byRef:   make(map[id.ExternalRef]id.RecordID),
	}
}

func (s *InMemory) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("record id %s: %w", rec.ID, sentinel.ErrAlreadyUsed)
	}
	if _, taken := s.bySlug[rec.Slug]; taken {
		return fmt.Errorf("slug %q: %w", rec.Slug, sentinel.ErrAlreadyUsed)
	}
	if _, taken := s.byRef[rec.ExternalRef]; taken {
		return fmt.Errorf("external ref %s: %w", rec.ExternalRef, sentinel.ErrAlreadyUsed)
	}

	stored := rec.Clone()
	s.records[stored.ID] = stored
	s.bySlug[stored.Slug] = stored.ID
	s.byRef[stored.ExternalRef] = stored.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) FindByExternalRef(_ context.Context, ref id.ExternalRef) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recordID, ok := s.byRef[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[recordID].Clone(), nil
}

func (s *InMemory) List(_ context.Context, filter ListFilter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(s.records))
	for _, rec := range s.records {
		if filter.OwnerID != nil && rec.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && rec.Category != *filter.Category {
			continue
		}
		out = append(out, rec.Clone())
	}
	// Newest first, id as tiebreaker for a stable order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Execute holds the store lock across validate and mutate, serializing
// concurrent updates to the same record.
func (s *InMemory) Execute(_ context.Context, recordID id.RecordID,
	validate func(pre *models.Record) error,
	mutate func(rec *models.Record) error,
) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pre, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(pre.Clone()); err != nil {
		return nil, err
	}

	work := pre.Clone()
	if err := mutate(work); err != nil {
		return nil, err
	}

	if work.Slug != pre.Slug {
		if holder, taken := s.bySlug[work.Slug]; taken && holder != recordID {
			return nil, fmt.Errorf("slug %q: %w", work.Slug, sentinel.ErrAlreadyUsed)
		}
		delete(s.bySlug, pre.Slug)
		s.bySlug[work.Slug] = recordID
	}

	s.records[recordID] = work
	return work.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.remove(rec)
	return nil
}

func (s *InMemory) DeleteByOwner(_ context.Context, ownerID id.OwnerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			s.remove(rec)
			count++
		}
	}
	return count, nil
}

func (s *InMemory) FindExpiredIDs(_ context.Context, now time.Time) ([]id.RecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.RecordID
	for _, rec := range s.records {
		if rec.IsExpired(now) {
			out = append(out, rec.ID)
		}
	}
	return out, nil
}

// remove must be called while holding s.mu.
func (s *InMemory) remove(rec *models.Record) {
	delete(s.records, rec.ID)
	delete(s.bySlug, rec.Slug)
	delete(s.byRef, rec.ExternalRef)
}
