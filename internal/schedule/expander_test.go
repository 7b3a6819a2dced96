package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/clock"
	"github.com/cvidalr/bus-trip-booking/internal/model"
	"github.com/cvidalr/bus-trip-booking/internal/repository"
)

func santiago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	return loc
}

func testRoute() *model.RouteTemplate {
	bd := "08:00"
	return &model.RouteTemplate{
		ID:                7,
		Name:              "Santiago - Mina",
		Origin:            "Santiago",
		Destination:       "Mina",
		Direction:         "outbound",
		BaseDepartureTime: &bd,
		Stops: []model.StopTemplate{
			{Order: 1, Name: "Santiago", OffsetMinutes: 0, PriceCents: 0},
			{Order: 2, Name: "Mina", OffsetMinutes: 180, PriceCents: 12000},
		},
	}
}

func newTestExpander(services *fakeServiceStore, seats *fakeSeatStore, loc *time.Location) *Expander {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, loc)
	return NewExpander(services, seats, loc, 14, clock.NewFixed(now))
}

func TestExpand_WeekdaySelection(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	// 2024-03-04 is a Monday; Mon/Wed/Fri over 14 days.
	created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1, 3, 5})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantDates := []string{"2024-03-04", "2024-03-06", "2024-03-08", "2024-03-11", "2024-03-13", "2024-03-15"}
	if len(created) != len(wantDates) {
		t.Fatalf("expected %d instances, got %d", len(wantDates), len(created))
	}
	for i, svc := range created {
		if got := svc.TravelDate.In(loc).Format("2006-01-02"); got != wantDates[i] {
			t.Fatalf("instance %d: expected date %s, got %s", i, wantDates[i], got)
		}
		if len(svc.Departures) != 2 {
			t.Fatalf("instance %d: expected 2 departures, got %d", i, len(svc.Departures))
		}
		if got := svc.Departures[0].Time.In(loc).Format("15:04"); got != "08:00" {
			t.Fatalf("instance %d: expected origin departure 08:00, got %s", i, got)
		}
		if got := svc.Departures[1].Time.In(loc).Format("15:04"); got != "11:00" {
			t.Fatalf("instance %d: expected destination departure 11:00, got %s", i, got)
		}
		if svc.Departures[0].Order >= svc.Departures[1].Order {
			t.Fatalf("instance %d: departure orders not increasing", i)
		}
		if svc.Departures[1].PriceCents != 12000 {
			t.Fatalf("instance %d: expected price 12000, got %d", i, svc.Departures[1].PriceCents)
		}
	}
}

func TestExpand_OffsetsFromBaseDeparture(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, svc := range created {
		base := svc.Departures[0].Time
		for _, dep := range svc.Departures {
			var offset time.Duration
			switch dep.Stop {
			case "Santiago":
				offset = 0
			case "Mina":
				offset = 180 * time.Minute
			}
			if !dep.Time.Equal(base.Add(offset)) {
				t.Fatalf("stop %s: expected base+%s, got %s", dep.Stop, offset, dep.Time)
			}
		}
	}
}

func TestExpand_LocalClockStableAcrossDST(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	// Chile left DST on 2024-04-07; Friday through Sunday spans the
	// transition and every departure must stay at 08:00 local.
	created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-04-05", []int{5, 6, 7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) == 0 {
		t.Fatal("expected instances across the DST transition")
	}
	for _, svc := range created {
		if got := svc.Departures[0].Time.In(loc).Format("15:04"); got != "08:00" {
			t.Fatalf("date %s: expected 08:00 local, got %s",
				svc.TravelDate.In(loc).Format("2006-01-02"), got)
		}
	}
}

func TestExpand_SkipsExistingDates(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	route := testRoute()
	services.existing[svcKey(route.ID, time.Date(2024, 3, 4, 0, 0, 0, 0, loc))] = true

	exp := newTestExpander(services, newFakeSeatStore(), loc)
	created, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected only 2024-03-11 to be created, got %d instances", len(created))
	}
	if got := created[0].TravelDate.In(loc).Format("2006-01-02"); got != "2024-03-11" {
		t.Fatalf("expected 2024-03-11, got %s", got)
	}
}

func TestExpand_Rerun_CreatesNothing(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	first, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1, 3, 5})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1, 3, 5})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected rerun to create nothing, got %d", len(second))
	}
	if len(services.inserted) != len(first) {
		t.Fatalf("expected store to hold %d instances, got %d", len(first), len(services.inserted))
	}
}

func TestExpand_DuplicateRaceIsSkipped(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	services.failDate = "2024-03-06"
	services.failErr = repository.ErrDuplicateService

	exp := newTestExpander(services, newFakeSeatStore(), loc)
	created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1, 3, 5})
	if err != nil {
		t.Fatalf("expected duplicate insert to be tolerated, got %v", err)
	}
	for _, svc := range created {
		if svc.TravelDate.In(loc).Format("2006-01-02") == "2024-03-06" {
			t.Fatal("raced date must not appear in the result")
		}
	}
	if len(created) != 5 {
		t.Fatalf("expected 5 instances around the raced date, got %d", len(created))
	}
}

func TestExpand_PartialFailureKeepsEarlierDates(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	services.failDate = "2024-03-06"
	services.failErr = errors.New("connection reset")

	exp := newTestExpander(services, newFakeSeatStore(), loc)
	created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{1, 3, 5})
	if err == nil {
		t.Fatal("expected an error for the failed date")
	}
	if !strings.Contains(err.Error(), "2024-03-06") {
		t.Fatalf("error should name the failed date, got %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected the instance before the failure to survive, got %d", len(created))
	}
	if got := created[0].TravelDate.In(loc).Format("2006-01-02"); got != "2024-03-04" {
		t.Fatalf("expected 2024-03-04, got %s", got)
	}
}

func TestExpand_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	exp := newTestExpander(newFakeServiceStore(), newFakeSeatStore(), loc)
	minutes := 480

	t.Run("both timing rules set", func(t *testing.T) {
		route := testRoute()
		route.StartMinutes = &minutes
		_, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("no timing rule", func(t *testing.T) {
		route := testRoute()
		route.BaseDepartureTime = nil
		_, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("malformed clock rule", func(t *testing.T) {
		route := testRoute()
		bad := "8h30"
		route.BaseDepartureTime = &bad
		_, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("unresolved layout reference", func(t *testing.T) {
		route := testRoute()
		layoutID := uint64(99)
		route.LayoutID = &layoutID
		_, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("start minutes out of range", func(t *testing.T) {
		route := testRoute()
		route.BaseDepartureTime = nil
		tooBig := 24 * 60
		route.StartMinutes = &tooBig
		_, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestExpand_ValidationErrors(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	exp := newTestExpander(newFakeServiceStore(), newFakeSeatStore(), loc)

	t.Run("bad start date", func(t *testing.T) {
		_, err := exp.Expand(context.Background(), testRoute(), nil, "04-03-2024", []int{1})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("weekday out of ISO range", func(t *testing.T) {
		for _, d := range []int{0, 8, -1} {
			_, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", []int{d})
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("weekday %d: expected ErrValidation, got %v", d, err)
			}
		}
	})

	t.Run("empty weekday set yields nothing", func(t *testing.T) {
		created, err := exp.Expand(context.Background(), testRoute(), nil, "2024-03-04", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(created) != 0 {
			t.Fatalf("expected zero instances, got %d", len(created))
		}
	})
}

func TestExpand_StartMinutesRule(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	route := testRoute()
	route.BaseDepartureTime = nil
	minutes := 21*60 + 30
	route.StartMinutes = &minutes

	created, err := exp.Expand(context.Background(), route, nil, "2024-03-04", []int{1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := created[0].Departures[0].Time.In(loc).Format("15:04"); got != "21:30" {
		t.Fatalf("expected 21:30 local departure, got %s", got)
	}
}

func TestExpand_BuildsSeatInventory(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	seats := newFakeSeatStore()
	exp := newTestExpander(services, seats, loc)

	layoutID := uint64(3)
	route := testRoute()
	route.LayoutID = &layoutID
	layout := &model.LayoutTemplate{
		ID:   layoutID,
		Name: "double decker",
		Floor1: model.FloorPlan{SeatClass: "salon-cama", Grid: [][]string{
			{"1A", "", "1B"},
			{"2A", "2B", ""},
		}},
		Floor2: model.FloorPlan{SeatClass: "semi-cama", Grid: [][]string{
			{"11A", "11B"},
		}},
	}

	created, err := exp.Expand(context.Background(), route, layout, "2024-03-04", []int{1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(created))
	}
	for _, svc := range created {
		built := seats.created[svc.ID]
		if len(built) != 6 {
			t.Fatalf("service %d: expected 6 seats, got %d", svc.ID, len(built))
		}
		if len(svc.SeatIDs) != 6 {
			t.Fatalf("service %d: expected 6 seat refs, got %d", svc.ID, len(svc.SeatIDs))
		}
		if got := len(services.seatRefs[svc.ID]); got != 6 {
			t.Fatalf("service %d: expected cached seat refs, got %d", svc.ID, got)
		}
		for _, seat := range built {
			if !seat.IsAvailable {
				t.Fatalf("service %d: new seat %s must start available", svc.ID, seat.Code)
			}
			if seat.HoldUntil != nil || seat.PassengerRef != nil {
				t.Fatalf("service %d: new seat %s must carry no hold", svc.ID, seat.Code)
			}
		}
	}
}

func TestExpandAll_IsolatesRouteFailures(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	services := newFakeServiceStore()
	exp := newTestExpander(services, newFakeSeatStore(), loc)

	broken := testRoute()
	broken.ID = 1
	broken.Name = "broken"
	broken.BaseDepartureTime = nil // no timing rule at all

	healthy := testRoute()
	healthy.ID = 2

	report := exp.ExpandAll(context.Background(), []RouteExpansion{
		{Route: broken, StartDate: "2024-03-04", Days: []int{1}},
		{Route: healthy, StartDate: "2024-03-04", Days: []int{1}},
	})

	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Status != "error" || report.Results[0].Error == "" {
		t.Fatalf("expected broken route to report an error, got %+v", report.Results[0])
	}
	if report.Results[1].Status != "success" {
		t.Fatalf("expected healthy route to succeed, got %+v", report.Results[1])
	}
	if report.Results[1].ServicesCount != 2 {
		t.Fatalf("expected 2 services for healthy route, got %d", report.Results[1].ServicesCount)
	}
	if report.TotalServices != 2 {
		t.Fatalf("expected total 2, got %d", report.TotalServices)
	}
}

func TestToday_UsesBusinessTimezone(t *testing.T) {
	t.Parallel()

	loc := santiago(t)
	// 02:00 UTC on March 2 is still March 1 in Santiago.
	now := time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)
	exp := NewExpander(newFakeServiceStore(), newFakeSeatStore(), loc, 14, clock.NewFixed(now))

	if got := exp.Today(); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", got)
	}
}
