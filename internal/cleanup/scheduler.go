// Package cleanup reclaims storage by deleting previous-day completed
// orders once per day at a configured wall-clock time.
package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kdos/desserts-relay/internal/docstore"
	"github.com/kdos/desserts-relay/internal/order"
)

const (
	// DefaultHour and DefaultMinute place the trigger window at 01:00
	// local time, after "last night's" completed orders have been
	// reviewed.
	DefaultHour   = 1
	DefaultMinute = 0

	// DefaultInterval is the polling cadence for the trigger check.
	DefaultInterval = 30 * time.Second
)

// dateLayout is the calendar-date key used by the same-day guard.
const dateLayout = "2006-01-02"

// Scheduler runs the recurring cleanup job for one terminal process.
//
// The last-cleared date is explicit per-instance state, initialized unset;
// it blocks re-execution within the same calendar day but never blocks a
// future day's run, so orders left behind by a partial failure are
// retried then. The trigger fires on an exact hour:minute match - if the
// process is not observing the clock during that minute, cleanup silently
// skips that day (no catch-up).
type Scheduler struct {
	store      docstore.Client
	collection string
	clock      order.Clock
	hour       int
	minute     int
	interval   time.Duration
	log        *zap.SugaredLogger

	lastCleared string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTriggerTime sets the wall-clock hour and minute of the daily window.
func WithTriggerTime(hour, minute int) Option {
	return func(s *Scheduler) {
		s.hour = hour
		s.minute = minute
	}
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock substitutes the wall clock. Used by tests.
func WithClock(clock order.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the scheduler logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Scheduler over the given collection.
func New(store docstore.Client, collection string, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:      store,
		collection: collection,
		clock:      order.SystemClock{},
		hour:       DefaultHour,
		minute:     DefaultMinute,
		interval:   DefaultInterval,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls the trigger window until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one trigger check and reports whether a cleanup pass
// executed. A pass runs only when the wall clock matches the configured
// hour and minute exactly and no pass has run yet this calendar day.
//
// A failed query leaves the guard unset so a later tick inside the same
// window can retry; per-item deletion failures do not - they wait for a
// future day.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.clock.Now()
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return false
	}
	today := now.Format(dateLayout)
	if s.lastCleared == today {
		return false
	}

	if err := s.pass(ctx, startOfDay(now)); err != nil {
		s.log.Warnw("cleanup pass failed", "error", err)
		return false
	}
	s.lastCleared = today
	return true
}

// Force runs a cleanup pass immediately, bypassing the trigger window but
// not the same-day guard.
func (s *Scheduler) Force(ctx context.Context) error {
	now := s.clock.Now()
	if err := s.pass(ctx, startOfDay(now)); err != nil {
		return err
	}
	s.lastCleared = now.Format(dateLayout)
	return nil
}

// pass queries all DONE orders and deletes, concurrently, those whose
// doneAt falls before the start of the current day. Individual deletion
// failures are logged and absorbed; the only observable symptom is an
// order persisting past its expected cleanup time.
func (s *Scheduler) pass(ctx context.Context, cutoff time.Time) error {
	if _, err := s.store.EnsureIdentity(ctx); err != nil {
		return err
	}
	snap, err := s.store.QueryWhere(ctx, s.collection, "status", string(order.StatusDone))
	if err != nil {
		return err
	}

	var (
		wg    sync.WaitGroup
		stale int
	)
	for _, doc := range snap {
		o, err := order.Decode(doc.ID, doc.Data)
		if err != nil {
			s.log.Warnw("skipping undecodable order", "id", doc.ID, "error", err)
			continue
		}
		if o.DoneAt == nil || !o.DoneAt.Before(cutoff) {
			continue
		}
		stale++
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.store.Delete(ctx, s.collection, id); err != nil {
				s.log.Warnw("cleanup delete failed", "id", id, "error", err)
			}
		}(o.ID)
	}
	wg.Wait()

	s.log.Infow("cleanup pass complete", "candidates", len(snap), "stale", stale)
	return nil
}

// startOfDay returns midnight of now's calendar day in now's location.
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
