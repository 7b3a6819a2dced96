package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// ServiceFinder is the slice of the service repository the query layer
// needs.  *repository.ServiceRepo satisfies it.
type ServiceFinder interface {
	ByDateRange(ctx context.Context, start, end time.Time) ([]model.ServiceInstance, error)
}

// SeatCounter counts seats per service.  *repository.SeatRepo satisfies it.
type SeatCounter interface {
	CountByService(ctx context.Context, serviceID uint64) (int, error)
}

// Query answers date/origin/destination searches over generated
// service instances.
type Query struct {
	services ServiceFinder
	seats    SeatCounter
	loc      *time.Location
}

// NewQuery builds a Query bound to the business timezone.
func NewQuery(services ServiceFinder, seats SeatCounter, loc *time.Location) *Query {
	return &Query{services: services, seats: seats, loc: loc}
}

// ServiceSummary is one search hit: the instance plus its seat count.
type ServiceSummary struct {
	Service   model.ServiceInstance
	SeatCount int
}

// FilterByDate returns the services travelling on the given civil date
// that stop at originStop strictly before destinationStop.  A service
// that stops at both names but in reverse relative order represents
// travel in the wrong direction and is excluded.
func (q *Query) FilterByDate(ctx context.Context, date, originStop, destinationStop string) ([]ServiceSummary, error) {
	if date == "" || originStop == "" || destinationStop == "" {
		return nil, fmt.Errorf("%w: date, origin and destination are required", ErrValidation)
	}
	day, err := time.ParseInLocation("2006-01-02", date, q.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, date)
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, q.loc)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, q.loc)

	services, err := q.services.ByDateRange(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("find services: %w", err)
	}

	summaries := make([]ServiceSummary, 0, len(services))
	for _, svc := range services {
		origin, ok := findDeparture(svc.Departures, originStop)
		if !ok {
			continue
		}
		dest, ok := findDeparture(svc.Departures, destinationStop)
		if !ok {
			continue
		}
		if origin.Order >= dest.Order {
			continue
		}
		count, err := q.seats.CountByService(ctx, svc.ID)
		if err != nil {
			return nil, fmt.Errorf("count seats for service %d: %w", svc.ID, err)
		}
		summaries = append(summaries, ServiceSummary{Service: svc, SeatCount: count})
	}
	return summaries, nil
}

func findDeparture(deps []model.Departure, stop string) (model.Departure, bool) {
	for _, d := range deps {
		if d.Stop == stop {
			return d, true
		}
	}
	return model.Departure{}, false
}

// DepartureView is the presentation form of a departure: the absolute
// instant plus its rendering on the business timezone's local clock.
type DepartureView struct {
	Order      uint32    `json:"order"`
	Stop       string    `json:"stop"`
	PriceCents uint32    `json:"price_cents"`
	Time       time.Time `json:"time"`
	TimeLocal  string    `json:"time_local,omitempty"`
}

// RenderDepartures returns the departures sorted by order ascending,
// each carrying its local "HH:mm" clock rendering.  A departure with a
// zero instant renders with the local clock field absent rather than
// failing.
func RenderDepartures(deps []model.Departure, loc *time.Location) []DepartureView {
	sorted := make([]model.Departure, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	views := make([]DepartureView, 0, len(sorted))
	for _, d := range sorted {
		v := DepartureView{
			Order:      d.Order,
			Stop:       d.Stop,
			PriceCents: d.PriceCents,
			Time:       d.Time,
		}
		if !d.Time.IsZero() {
			v.TimeLocal = d.Time.In(loc).Format("15:04")
		}
		views = append(views, v)
	}
	return views
}
