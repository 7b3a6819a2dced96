package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/clock"
	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// fakeSeatStore applies the sweep semantics in memory: one conditional
// pass that releases every seat whose hold expired at or before now.
type fakeSeatStore struct {
	mu    sync.Mutex
	seats []model.Seat
	err   error
	calls int
}

func (f *fakeSeatStore) ReleaseExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	var released int64
	for i := range f.seats {
		s := &f.seats[i]
		if !s.IsAvailable && s.HoldUntil != nil && !s.HoldUntil.After(now) {
			s.IsAvailable = true
			s.HoldUntil = nil
			s.PassengerRef = nil
			released++
		}
	}
	return released, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	counts []int64
	err    error
}

func (f *fakePublisher) SeatsReleased(_ context.Context, count int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, count)
	return f.err
}

func heldSeat(id uint64, until time.Time) model.Seat {
	ref := "p-1"
	return model.Seat{ID: id, Code: "1A", Floor: 1, IsAvailable: false, HoldUntil: &until, PassengerRef: &ref}
}

func TestSweep_ReleasesExpiredHolds(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &fakeSeatStore{seats: []model.Seat{
		heldSeat(1, now.Add(-time.Second)),
		heldSeat(2, now.Add(time.Hour)),
		heldSeat(3, now), // expiry exactly now is expired
	}}
	pub := &fakePublisher{}
	s := New(store, time.Minute, clock.NewFixed(now), WithPublisher(pub))

	s.Sweep(context.Background())

	if !store.seats[0].IsAvailable {
		t.Fatal("expired hold must be released")
	}
	if store.seats[0].HoldUntil != nil || store.seats[0].PassengerRef != nil {
		t.Fatal("released seat must carry no hold or passenger ref")
	}
	if store.seats[1].IsAvailable {
		t.Fatal("future hold must be untouched")
	}
	if store.seats[1].PassengerRef == nil {
		t.Fatal("future hold must keep its passenger ref")
	}
	if !store.seats[2].IsAvailable {
		t.Fatal("hold expiring exactly now must be released")
	}
	if len(pub.counts) != 1 || pub.counts[0] != 2 {
		t.Fatalf("expected one publish with count 2, got %v", pub.counts)
	}
}

func TestSweep_NothingToRelease_NoPublish(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &fakeSeatStore{seats: []model.Seat{heldSeat(1, now.Add(time.Hour))}}
	pub := &fakePublisher{}
	s := New(store, time.Minute, clock.NewFixed(now), WithPublisher(pub))

	s.Sweep(context.Background())

	if len(pub.counts) != 0 {
		t.Fatalf("expected no publish for an empty cycle, got %v", pub.counts)
	}
}

func TestSweep_StoreErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &fakeSeatStore{err: errors.New("connection reset")}
	s := New(store, time.Minute, clock.NewFixed(now))

	// Must not panic; the loop retries on the next tick.
	s.Sweep(context.Background())
	s.Sweep(context.Background())

	if store.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", store.calls)
	}
}

func TestSweep_PublishErrorDoesNotUndoRelease(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &fakeSeatStore{seats: []model.Seat{heldSeat(1, now.Add(-time.Minute))}}
	pub := &fakePublisher{err: errors.New("broker down")}
	s := New(store, time.Minute, clock.NewFixed(now), WithPublisher(pub))

	s.Sweep(context.Background())

	if !store.seats[0].IsAvailable {
		t.Fatal("release must stick even when the event publish fails")
	}
}

func TestStartStop_RunsCyclesAndShutsDown(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &fakeSeatStore{}
	s := New(store, 5*time.Millisecond, clock.NewFixed(now))

	s.Start(context.Background())

	deadline := time.After(time.Second)
	for {
		store.mu.Lock()
		calls := store.calls
		store.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never ran twice within a second")
		case <-time.After(time.Millisecond):
		}
	}

	s.Stop()
	store.mu.Lock()
	after := store.calls
	store.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	store.mu.Lock()
	final := store.calls
	store.mu.Unlock()
	if final != after {
		t.Fatalf("sweeper kept running after Stop: %d then %d", after, final)
	}
}
