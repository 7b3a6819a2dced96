package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// fakeServiceStore keeps inserted instances in memory and can be primed
// with pre-existing (route, date) pairs or per-date insert failures.
type fakeServiceStore struct {
	existing  map[string]bool
	inserted  []model.ServiceInstance
	seatRefs  map[uint64][]uint64
	nextID    uint64
	failDate  string
	failErr   error
	existsErr error
}

func newFakeServiceStore() *fakeServiceStore {
	return &fakeServiceStore{
		existing: map[string]bool{},
		seatRefs: map[uint64][]uint64{},
	}
}

func svcKey(routeID uint64, d time.Time) string {
	return fmt.Sprintf("%d|%s", routeID, d.Format("2006-01-02"))
}

func (f *fakeServiceStore) ExistsForDate(_ context.Context, routeID uint64, travelDate time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existing[svcKey(routeID, travelDate)] {
		return true, nil
	}
	for _, svc := range f.inserted {
		if svc.RouteID == routeID && svc.TravelDate.Equal(travelDate) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeServiceStore) Insert(_ context.Context, svc *model.ServiceInstance) error {
	if f.failErr != nil && svc.TravelDate.Format("2006-01-02") == f.failDate {
		return f.failErr
	}
	f.nextID++
	svc.ID = f.nextID
	f.inserted = append(f.inserted, *svc)
	return nil
}

func (f *fakeServiceStore) UpdateSeatRefs(_ context.Context, serviceID uint64, seatIDs []uint64) error {
	f.seatRefs[serviceID] = seatIDs
	return nil
}

// fakeSeatStore records bulk inserts and hands out sequential ids.
type fakeSeatStore struct {
	created map[uint64][]model.Seat
	nextID  uint64
	err     error
}

func newFakeSeatStore() *fakeSeatStore {
	return &fakeSeatStore{created: map[uint64][]model.Seat{}}
}

func (f *fakeSeatStore) CreateBulk(_ context.Context, seats []model.Seat) ([]uint64, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]uint64, 0, len(seats))
	for _, s := range seats {
		f.nextID++
		ids = append(ids, f.nextID)
		f.created[s.ServiceID] = append(f.created[s.ServiceID], s)
	}
	return ids, nil
}

// fakeCounter returns a fixed seat count per service.
type fakeCounter struct {
	counts map[uint64]int
}

func (f *fakeCounter) CountByService(_ context.Context, serviceID uint64) (int, error) {
	return f.counts[serviceID], nil
}

// fakeFinder serves a canned slice filtered by the requested range.
type fakeFinder struct {
	services []model.ServiceInstance
}

func (f *fakeFinder) ByDateRange(_ context.Context, start, end time.Time) ([]model.ServiceInstance, error) {
	var out []model.ServiceInstance
	for _, svc := range f.services {
		if !svc.TravelDate.Before(start) && svc.TravelDate.Before(end) {
			out = append(out, svc)
		}
	}
	return out, nil
}
