package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"recordvault/internal/record/models"
	id "recordvault/pkg/domain"
	"recordvault/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *InMemoryStoreSuite) newRecord(title string) *models.Record {
	rec, err := models.New(id.NewOwnerID(), models.Draft{Title: title}, time.Now())
	s.Require().NoError(err)
	return rec
}

func (s *InMemoryStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by id and external ref", func() {
		rec := s.newRecord("Lookup Target")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(rec.Slug, found.Slug)

		byRef, err := s.store.FindByExternalRef(s.ctx, rec.ExternalRef)
		s.Require().NoError(err)
		s.Equal(rec.ID, byRef.ID)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewRecordID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("handed-out records do not alias store state", func() {
		rec := s.newRecord("Alias Check")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		found.SetTitle("Mutated Elsewhere")

		again, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal("Alias Check", again.Title)
	})
}

func (s *InMemoryStoreSuite) TestSlugUniqueness() {
	s.Run("rejects duplicate slug on create", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord("Same Title")))

		err := s.store.Create(s.ctx, s.newRecord("Same Title"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects slug collision via update", func() {
		first := s.newRecord("First Title")
		second := s.newRecord("Second Title")
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))

		_, err := s.store.Execute(s.ctx, second.ID,
			func(*models.Record) error { return nil },
			func(rec *models.Record) error {
				rec.SetTitle("First Title")
				return nil
			})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		// The failed update must not have freed or moved any slug.
		found, err := s.store.FindByID(s.ctx, second.ID)
		s.Require().NoError(err)
		s.Equal("second-title", found.Slug)
	})

	s.Run("a record keeps its own slug on unrelated updates", func() {
		rec := s.newRecord("Stable Slug")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		_, err := s.store.Execute(s.ctx, rec.ID,
			func(*models.Record) error { return nil },
			func(r *models.Record) error {
				r.Counter++
				return nil
			})
		s.Require().NoError(err)
	})
}

func (s *InMemoryStoreSuite) TestExecute() {
	s.Run("validate failure aborts with nothing persisted", func() {
		rec := s.newRecord("Guarded")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		boom := errors.New("rejected")
		_, err := s.store.Execute(s.ctx, rec.ID,
			func(*models.Record) error { return boom },
			func(r *models.Record) error {
				r.Counter = 99
				return nil
			})
		s.Require().ErrorIs(err, boom)

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Zero(found.Counter)
	})

	s.Run("mutate failure aborts with nothing persisted", func() {
		rec := s.newRecord("Guarded Too")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		boom := errors.New("invariant broken")
		_, err := s.store.Execute(s.ctx, rec.ID,
			func(*models.Record) error { return nil },
			func(r *models.Record) error {
				r.Counter = 99
				return boom
			})
		s.Require().ErrorIs(err, boom)

		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Zero(found.Counter)
	})

	s.Run("unknown id yields ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewRecordID(),
			func(*models.Record) error { return nil },
			func(*models.Record) error { return nil })
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent increments serialize without lost writes", func() {
		rec := s.newRecord("Contended")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		const goroutines = 50
		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Execute(s.ctx, rec.ID,
					func(*models.Record) error { return nil },
					func(r *models.Record) error {
						r.Counter++
						return nil
					})
				if err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		s.Equal(int32(0), failures.Load())
		found, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().NoError(err)
		s.Equal(int64(goroutines), found.Counter)
	})
}

func (s *InMemoryStoreSuite) TestDelete() {
	s.Run("delete frees the slug for reuse", func() {
		rec := s.newRecord("Reusable Title")
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.Delete(s.ctx, rec.ID))

		_, err := s.store.FindByID(s.ctx, rec.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.Create(s.ctx, s.newRecord("Reusable Title")))
	})

	s.Run("cascade removes all records of an owner", func() {
		owner := id.NewOwnerID()
		for _, title := range []string{"Mine One", "Mine Two"} {
			rec, err := models.New(owner, models.Draft{Title: title}, time.Now())
			s.Require().NoError(err)
			s.Require().NoError(s.store.Create(s.ctx, rec))
		}
		other := s.newRecord("Someone Else")
		s.Require().NoError(s.store.Create(s.ctx, other))

		count, err := s.store.DeleteByOwner(s.ctx, owner)
		s.Require().NoError(err)
		s.Equal(2, count)

		remaining, err := s.store.List(s.ctx, ListFilter{})
		s.Require().NoError(err)
		s.Len(remaining, 1)
		s.Equal(other.ID, remaining[0].ID)
	})
}

func (s *InMemoryStoreSuite) TestFindExpiredIDs() {
	now := time.Now()
	past := now.Add(time.Minute)
	future := now.Add(48 * time.Hour)

	expired, err := models.New(id.NewOwnerID(), models.Draft{Title: "Expired", ExpiresAt: &past}, now)
	s.Require().NoError(err)
	fresh, err := models.New(id.NewOwnerID(), models.Draft{Title: "Fresh", ExpiresAt: &future}, now)
	s.Require().NoError(err)
	eternal, err := models.New(id.NewOwnerID(), models.Draft{Title: "Eternal"}, now)
	s.Require().NoError(err)

	for _, rec := range []*models.Record{expired, fresh, eternal} {
		s.Require().NoError(s.store.Create(s.ctx, rec))
	}

	ids, err := s.store.FindExpiredIDs(s.ctx, now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal([]id.RecordID{expired.ID}, ids)
}
