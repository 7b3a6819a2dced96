package schedule

import (
	"testing"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

func TestProjectSeatMap_OverlaysLiveState(t *testing.T) {
	t.Parallel()

	layout := &model.LayoutTemplate{
		Floor1: model.FloorPlan{SeatClass: "salon-cama", Grid: [][]string{
			{"1A", "", "1B"},
		}},
		Floor2: model.FloorPlan{SeatClass: "semi-cama", Grid: [][]string{
			{"11A"},
		}},
	}

	holdUntil := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	passenger := "p-123"
	seats := []model.Seat{
		{ID: 1, Code: "1A", Floor: 1, IsAvailable: true},
		{ID: 2, Code: "1B", Floor: 1, IsAvailable: false, HoldUntil: &holdUntil, PassengerRef: &passenger},
		{ID: 3, Code: "11A", Floor: 2, IsAvailable: true},
	}

	view := ProjectSeatMap(layout, seats)
	if len(view.Floors) != 2 {
		t.Fatalf("expected 2 floors, got %d", len(view.Floors))
	}

	floor1 := view.Floors[0]
	if floor1.Floor != 1 || floor1.SeatClass != "salon-cama" {
		t.Fatalf("unexpected floor 1 header: %+v", floor1)
	}
	row := floor1.Rows[0]
	if len(row) != 3 {
		t.Fatalf("expected row width 3, got %d", len(row))
	}
	if row[1] != nil {
		t.Fatal("aisle cell must be nil")
	}
	if row[0] == nil || row[0].SeatID != 1 || !row[0].Available {
		t.Fatalf("unexpected 1A cell: %+v", row[0])
	}
	held := row[2]
	if held == nil || held.Available {
		t.Fatalf("expected 1B to render held, got %+v", held)
	}
	if held.HoldUntil == nil || !held.HoldUntil.Equal(holdUntil) {
		t.Fatalf("expected 1B hold expiry %v, got %v", holdUntil, held.HoldUntil)
	}
	if held.PassengerRef == nil || *held.PassengerRef != passenger {
		t.Fatalf("expected 1B passenger ref %q, got %v", passenger, held.PassengerRef)
	}

	floor2 := view.Floors[1]
	if floor2.Floor != 2 || floor2.Rows[0][0].SeatID != 3 {
		t.Fatalf("unexpected floor 2 projection: %+v", floor2)
	}
}

func TestProjectSeatMap_MissingLiveSeat(t *testing.T) {
	t.Parallel()

	layout := &model.LayoutTemplate{
		Floor1: model.FloorPlan{SeatClass: "semi-cama", Grid: [][]string{
			{"1A", "1B"},
		}},
	}
	// Inventory exists only for 1A; 1B must still render, unavailable.
	seats := []model.Seat{{ID: 1, Code: "1A", Floor: 1, IsAvailable: true}}

	view := ProjectSeatMap(layout, seats)
	if len(view.Floors) != 1 {
		t.Fatalf("expected 1 floor, got %d", len(view.Floors))
	}
	orphan := view.Floors[0].Rows[0][1]
	if orphan == nil {
		t.Fatal("expected a placeholder cell for 1B")
	}
	if orphan.SeatID != 0 || orphan.Available {
		t.Fatalf("placeholder must be unavailable with no seat id, got %+v", orphan)
	}
}

func TestProjectSeatMap_SkipsEmptyFloors(t *testing.T) {
	t.Parallel()

	layout := &model.LayoutTemplate{
		Floor1: model.FloorPlan{SeatClass: "semi-cama", Grid: [][]string{{"1A"}}},
	}
	view := ProjectSeatMap(layout, nil)
	if len(view.Floors) != 1 {
		t.Fatalf("expected only populated floors, got %d", len(view.Floors))
	}
	if view.Floors[0].Floor != 1 {
		t.Fatalf("expected floor 1, got %d", view.Floors[0].Floor)
	}
}
