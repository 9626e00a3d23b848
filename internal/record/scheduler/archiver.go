// Package scheduler runs the hourly archival pass: every record whose expiry
// has passed is moved to the terminal archived status. The pass is a system
// actor, so no caller policy applies to it.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"recordvault/pkg/requestcontext"

	id "recordvault/pkg/domain"
)

// Archiving holds the two service operations the scheduler drives.
type Archiving interface {
	ExpiredRecordIDs(ctx context.Context, now time.Time) ([]id.RecordID, error)
	ArchiveExpired(ctx context.Context, recordID id.RecordID) (bool, error)
}

const (
	tickInterval   = time.Hour
	lockTTL        = 10 * time.Minute
	maxConcurrency = 8
)

// Archiver wakes at the top of every hour, selects expired records, and
// archives each one individually so a single failure never abandons the rest
// of the batch. Ticks never overlap; a tick that is still running when the
// next fires makes the next a no-op.
type Archiver struct {
	service Archiving
	lock    RunLock
	metrics *Metrics
	logger  *slog.Logger

	runMu   sync.Mutex
	stopMu  sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewArchiver(service Archiving, lock RunLock, m *Metrics, logger *slog.Logger) *Archiver {
	if lock == nil {
		lock = NoopLock{}
	}
	return &Archiver{
		service: service,
		lock:    lock,
		metrics: m,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// Start launches the tick loop. The first tick fires at the next top of the
// hour, not immediately, so restarts do not cause off-schedule passes.
func (a *Archiver) Start(ctx context.Context) {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.stopped = make(chan struct{})
	go a.run(ctx)

	a.logger.Info("archival scheduler started", "interval", tickInterval.String())
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (a *Archiver) Stop() {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.stopped
	a.cancel = nil

	a.logger.Info("archival scheduler stopped")
}

func (a *Archiver) run(ctx context.Context) {
	defer close(a.stopped)

	timer := time.NewTimer(untilNextTick(time.Now()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	a.tick(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// untilNextTick returns the wait until the next top of the hour.
func untilNextTick(now time.Time) time.Duration {
	next := now.Truncate(tickInterval).Add(tickInterval)
	return next.Sub(now)
}

func (a *Archiver) tick(ctx context.Context) {
	if !a.runMu.TryLock() {
		a.logger.Warn("previous archival tick still running, skipping")
		return
	}
	defer a.runMu.Unlock()

	held, err := a.lock.TryAcquire(ctx, lockTTL)
	if err != nil {
		a.metrics.IncrementFailures()
		a.logger.ErrorContext(ctx, "run lock unavailable", "error", err)
		return
	}
	if !held {
		a.metrics.IncrementSkipped()
		a.logger.InfoContext(ctx, "another instance holds the run lock, skipping tick")
		return
	}
	defer func() {
		if err := a.lock.Release(ctx); err != nil {
			a.logger.WarnContext(ctx, "run lock release failed", "error", err)
		}
	}()

	if err := a.RunOnce(ctx, time.Now()); err != nil {
		a.metrics.IncrementFailures()
		a.logger.ErrorContext(ctx, "archival tick failed", "error", err)
	}
}

// RunOnce executes a single archival pass at the given instant. Exported so
// tests and operational tooling can drive a pass without the timer. The whole
// pass evaluates expiry against one consistent timestamp.
func (a *Archiver) RunOnce(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer a.metrics.ObserveTick(start)
	a.metrics.IncrementTicks()

	ctx = requestcontext.WithTime(ctx, now)

	ids, err := a.service.ExpiredRecordIDs(ctx, now)
	if err != nil {
		// Without the candidate list there is nothing safe to do; the next
		// tick retries from scratch.
		return err
	}
	if len(ids) == 0 {
		a.logger.DebugContext(ctx, "no expired records")
		return nil
	}

	var archived, failed int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, recordID := range ids {
		g.Go(func() error {
			ok, err := a.service.ArchiveExpired(gctx, recordID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Per-record failures are logged, not propagated: one bad
				// row must not stop the batch.
				failed++
				a.logger.ErrorContext(gctx, "archive failed",
					"record_id", recordID.String(), "error", err)
				return nil
			}
			if ok {
				archived++
			}
			return nil
		})
	}
	_ = g.Wait()

	a.logger.InfoContext(ctx, "archival tick finished",
		"candidates", len(ids),
		"archived", archived,
		"failed", failed,
	)
	return nil
}
