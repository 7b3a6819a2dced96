package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cvidalr/bus-trip-booking/internal/clock"
	"github.com/cvidalr/bus-trip-booking/internal/metrics"
	"github.com/cvidalr/bus-trip-booking/internal/model"
	"github.com/cvidalr/bus-trip-booking/internal/repository"
)

// ServiceStore is the slice of the service repository the expander
// needs.  *repository.ServiceRepo satisfies it.
type ServiceStore interface {
	ExistsForDate(ctx context.Context, routeID uint64, travelDate time.Time) (bool, error)
	Insert(ctx context.Context, svc *model.ServiceInstance) error
	UpdateSeatRefs(ctx context.Context, serviceID uint64, seatIDs []uint64) error
}

// SeatStore is the slice of the seat repository the expander needs.
// *repository.SeatRepo satisfies it.
type SeatStore interface {
	CreateBulk(ctx context.Context, seats []model.Seat) ([]uint64, error)
}

// Expander turns route templates into dated service instances over a
// fixed horizon.  The business timezone and horizon are injected at
// construction; there is no process-wide default.
type Expander struct {
	services ServiceStore
	seats    SeatStore
	loc      *time.Location
	horizon  int
	clk      clock.Clock
	metrics  *metrics.Collector
}

// NewExpander builds an Expander.  horizonDays is the number of days
// covered by one expansion run, counting the start date itself.
func NewExpander(services ServiceStore, seats SeatStore, loc *time.Location, horizonDays int, clk clock.Clock, opts ...ExpanderOption) *Expander {
	e := &Expander{
		services: services,
		seats:    seats,
		loc:      loc,
		horizon:  horizonDays,
		clk:      clk,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ExpanderOption func(*Expander)

// WithMetrics attaches a metrics collector to the expander.
func WithMetrics(m *metrics.Collector) ExpanderOption {
	return func(e *Expander) { e.metrics = m }
}

// Expand generates one service instance for every day within the
// horizon starting at startDate (a "YYYY-MM-DD" civil date in the
// business timezone) whose ISO weekday (1=Monday..7=Sunday) is in
// daysOfWeek.  Dates that already have an instance for this route are
// skipped, so re-running the same parameters never duplicates a
// bookable slot.
//
// For each generated instance the seat inventory is built from layout
// before the next date is attempted.  When a date fails part-way the
// instances generated so far are returned together with an error naming
// the failed date; earlier dates are not rolled back.
//
// The caller is responsible for checking the route's schedule-active
// flag and for resolving layout from route.LayoutID; a route that
// references a layout which could not be resolved is a configuration
// error.
func (e *Expander) Expand(ctx context.Context, route *model.RouteTemplate, layout *model.LayoutTemplate, startDate string, daysOfWeek []int) ([]model.ServiceInstance, error) {
	wanted, err := weekdaySet(daysOfWeek)
	if err != nil {
		return nil, err
	}
	start, err := time.ParseInLocation("2006-01-02", startDate, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrValidation, startDate)
	}
	hour, minute, err := baseDepartureRule(route)
	if err != nil {
		return nil, err
	}
	if route.LayoutID != nil && layout == nil {
		return nil, fmt.Errorf("%w: layout %d referenced by route %q could not be resolved", ErrConfiguration, *route.LayoutID, route.Name)
	}

	var created []model.ServiceInstance
	for i := 0; i < e.horizon; i++ {
		// time.Date normalizes the day offset in civil time, which
		// keeps the local clock stable across DST transitions.
		day := time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, e.loc)
		if !wanted[isoWeekday(day)] {
			continue
		}

		exists, err := e.services.ExistsForDate(ctx, route.ID, day)
		if err != nil {
			return created, fmt.Errorf("check existing service for %s: %w", day.Format("2006-01-02"), err)
		}
		if exists {
			continue
		}

		svc, err := e.materialize(ctx, route, layout, day, hour, minute)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateService) {
				// Lost a race with a concurrent expansion of the same
				// route; the slot exists, which is what we wanted.
				continue
			}
			return created, fmt.Errorf("generate service for %s: %w", day.Format("2006-01-02"), err)
		}
		created = append(created, *svc)
	}
	return created, nil
}

// materialize persists one instance for the given civil day and builds
// its seat inventory.
func (e *Expander) materialize(ctx context.Context, route *model.RouteTemplate, layout *model.LayoutTemplate, day time.Time, hour, minute int) (*model.ServiceInstance, error) {
	base := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, e.loc)

	departures := make([]model.Departure, 0, len(route.Stops))
	for _, stop := range route.Stops {
		departures = append(departures, model.Departure{
			Order:      stop.Order,
			Stop:       stop.Name,
			Time:       base.Add(time.Duration(stop.OffsetMinutes) * time.Minute),
			PriceCents: stop.PriceCents,
		})
	}

	svc := &model.ServiceInstance{
		RouteID:     route.ID,
		LayoutID:    route.LayoutID,
		TravelDate:  day,
		Direction:   route.Direction,
		Origin:      route.Origin,
		Destination: route.Destination,
		Departures:  departures,
	}
	if err := e.services.Insert(ctx, svc); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ServicesGenerated.Inc()
	}

	if layout != nil {
		seats := BuildSeatRecords(svc.ID, layout)
		if len(seats) > 0 {
			ids, err := e.seats.CreateBulk(ctx, seats)
			if err != nil {
				return nil, fmt.Errorf("insert seats: %w", err)
			}
			if err := e.services.UpdateSeatRefs(ctx, svc.ID, ids); err != nil {
				return nil, fmt.Errorf("update seat refs: %w", err)
			}
			svc.SeatIDs = ids
			if e.metrics != nil {
				e.metrics.SeatsBuilt.Add(float64(len(ids)))
			}
		}
	}
	return svc, nil
}

// RouteExpansion is one unit of work for ExpandAll: a route together
// with its resolved layout and effective schedule parameters.
type RouteExpansion struct {
	Route     *model.RouteTemplate
	Layout    *model.LayoutTemplate
	StartDate string
	Days      []int
}

// RouteResult is the per-route outcome of a bulk expansion.
type RouteResult struct {
	RouteID       uint64 `json:"route_id"`
	Route         string `json:"route"`
	ServicesCount int    `json:"services_count"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// ExpansionReport summarizes one bulk expansion run.
type ExpansionReport struct {
	RunID         string        `json:"run_id"`
	TotalServices int           `json:"total_services"`
	Results       []RouteResult `json:"results"`
}

// ExpandAll expands every given route, isolating failures: one route's
// error becomes its status entry and never aborts the remaining routes.
// Instances generated before a route's failure are counted in its
// entry.
func (e *Expander) ExpandAll(ctx context.Context, items []RouteExpansion) ExpansionReport {
	report := ExpansionReport{
		RunID:   uuid.NewString(),
		Results: make([]RouteResult, 0, len(items)),
	}
	for _, item := range items {
		services, err := e.Expand(ctx, item.Route, item.Layout, item.StartDate, item.Days)
		res := RouteResult{
			RouteID:       item.Route.ID,
			Route:         item.Route.Name,
			ServicesCount: len(services),
			Status:        "success",
		}
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
		}
		report.TotalServices += len(services)
		report.Results = append(report.Results, res)
	}
	return report
}

// baseDepartureRule resolves the template's timing rule into an
// hour/minute pair.  Exactly one of the two forms must be present.
func baseDepartureRule(route *model.RouteTemplate) (hour, minute int, err error) {
	hasClock := route.BaseDepartureTime != nil
	hasMinutes := route.StartMinutes != nil
	switch {
	case hasClock && hasMinutes:
		return 0, 0, fmt.Errorf("%w: route %q sets both baseDepartureTime and startMinutes", ErrConfiguration, route.Name)
	case hasClock:
		return parseClock(*route.BaseDepartureTime, route.Name)
	case hasMinutes:
		m := *route.StartMinutes
		if m < 0 || m >= 24*60 {
			return 0, 0, fmt.Errorf("%w: route %q startMinutes %d out of range", ErrConfiguration, route.Name, m)
		}
		return m / 60, m % 60, nil
	default:
		return 0, 0, fmt.Errorf("%w: route %q needs baseDepartureTime (\"HH:mm\") or startMinutes", ErrConfiguration, route.Name)
	}
}

func parseClock(s, routeName string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: route %q baseDepartureTime %q must be \"HH:mm\"", ErrConfiguration, routeName, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: route %q baseDepartureTime %q has an invalid hour", ErrConfiguration, routeName, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: route %q baseDepartureTime %q has an invalid minute", ErrConfiguration, routeName, s)
	}
	return hour, minute, nil
}

// weekdaySet validates ISO weekday numbers and builds a lookup set.  An
// empty input yields an empty set and therefore zero instances.
func weekdaySet(days []int) (map[int]bool, error) {
	set := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("%w: weekday %d out of ISO range 1..7", ErrValidation, d)
		}
		set[d] = true
	}
	return set, nil
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering
// (1=Monday .. 7=Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Today returns the current civil date in the expander's timezone as a
// "YYYY-MM-DD" string, the default start date for expansion requests.
func (e *Expander) Today() string {
	return e.clk.Now().In(e.loc).Format("2006-01-02")
}
