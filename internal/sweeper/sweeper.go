// Package sweeper implements the hold-release engine: a periodic
// background task that returns seats with expired holds to the
// available pool.  It communicates with the rest of the system only
// through the storage collaborator; there is no shared in-process state
// with request handlers.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/clock"
	"github.com/cvidalr/bus-trip-booking/internal/metrics"
)

// Store releases expired holds in a single conditional bulk update.
// *repository.SeatRepo satisfies it.  The expiry condition must live in
// the update statement itself so that a hold renewed or confirmed
// between the sweep's snapshot and its write is never released.
type Store interface {
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
}

// Publisher is notified after each sweep cycle that released at least
// one seat.  Publish failures are logged and ignored; event delivery is
// best-effort and never blocks reclamation.
type Publisher interface {
	SeatsReleased(ctx context.Context, count int64, at time.Time) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, count int64, at time.Time) error

func (f PublisherFunc) SeatsReleased(ctx context.Context, count int64, at time.Time) error {
	return f(ctx, count, at)
}

// Sweeper runs the release cycle on a fixed period.  A failed cycle is
// logged and retried on the next tick; it never crashes the process.
// A seat may stay incorrectly held for up to one period past its
// expiry; callers that need exact expiry semantics re-check at booking
// time.
type Sweeper struct {
	store    Store
	interval time.Duration
	clk      clock.Clock
	pub      Publisher
	metrics  *metrics.Collector

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Sweeper.  The interval is injected so tests can run fast
// cycles; production wires the configured sweep period.
func New(store Store, interval time.Duration, clk clock.Clock, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: interval,
		clk:      clk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Sweeper)

// WithPublisher attaches a release-event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Sweeper) { s.pub = p }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// Start launches the periodic sweep goroutine.  It returns immediately;
// the loop stops when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		log.Printf("sweeper: started, interval %s", s.interval)
		for {
			select {
			case <-ctx.Done():
				log.Printf("sweeper: stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop cancels the sweep loop and waits for the in-flight cycle to
// finish.  Safe to call only after Start.
func (s *Sweeper) Stop() {
	s.cancel()
	<-s.done
}

// Sweep runs one release cycle.  Every seat whose hold expired at or
// before now transitions back to available in one conditional bulk
// update; the per-seat transition is all-or-nothing by virtue of that
// update.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clk.Now()
	if s.metrics != nil {
		s.metrics.SweepCycles.Inc()
	}
	released, err := s.store.ReleaseExpired(ctx, now)
	if err != nil {
		log.Printf("sweeper: release cycle failed, retrying next tick: %v", err)
		if s.metrics != nil {
			s.metrics.SweepErrors.Inc()
		}
		return
	}
	if released == 0 {
		return
	}
	log.Printf("sweeper: released %d expired seat holds", released)
	if s.metrics != nil {
		s.metrics.SeatsReleased.Add(float64(released))
	}
	if s.pub != nil {
		if err := s.pub.SeatsReleased(ctx, released, now); err != nil {
			log.Printf("sweeper: publish release event failed: %v", err)
		}
	}
}
