package schedule

import (
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// SeatCell is one renderable position in a floor grid.  Cells present
// in the template geometry but without a matching live seat (inventory
// never built) keep SeatID zero and render unavailable rather than
// failing.
type SeatCell struct {
	Code         string     `json:"code"`
	SeatID       uint64     `json:"seat_id,omitempty"`
	Available    bool       `json:"available"`
	HoldUntil    *time.Time `json:"hold_until,omitempty"`
	PassengerRef *string    `json:"passenger_ref,omitempty"`
}

// FloorView is one floor of a projected seat map.  Rows mirror the
// layout grid; a nil cell is an aisle or other absence of a seat.
type FloorView struct {
	Floor     uint8       `json:"floor"`
	SeatClass string      `json:"seat_class"`
	Rows      [][]*SeatCell `json:"rows"`
}

// SeatMapView is the renderable seat map of one service instance.
type SeatMapView struct {
	Floors []FloorView `json:"floors"`
}

// ProjectSeatMap rebuilds the floor grids from the layout geometry and
// overlays the live seat state of one specific service.  Geometry,
// floor numbers and class tags come from the template; availability,
// hold expiry and passenger reference come from the live seats.  Pure
// function of its inputs.
func ProjectSeatMap(layout *model.LayoutTemplate, seats []model.Seat) SeatMapView {
	type seatKey struct {
		floor uint8
		code  string
	}
	live := make(map[seatKey]model.Seat, len(seats))
	for _, s := range seats {
		live[seatKey{floor: s.Floor, code: s.Code}] = s
	}

	var out SeatMapView
	floors := []struct {
		number uint8
		plan   model.FloorPlan
	}{
		{1, layout.Floor1},
		{2, layout.Floor2},
	}
	for _, f := range floors {
		if len(f.plan.Grid) == 0 {
			continue
		}
		view := FloorView{
			Floor:     f.number,
			SeatClass: f.plan.SeatClass,
			Rows:      make([][]*SeatCell, 0, len(f.plan.Grid)),
		}
		for _, row := range f.plan.Grid {
			cells := make([]*SeatCell, len(row))
			for i, code := range row {
				if code == "" {
					continue
				}
				cell := &SeatCell{Code: code}
				if s, ok := live[seatKey{floor: f.number, code: code}]; ok {
					cell.SeatID = s.ID
					cell.Available = s.IsAvailable
					cell.HoldUntil = s.HoldUntil
					cell.PassengerRef = s.PassengerRef
				}
				cells[i] = cell
			}
			view.Rows = append(view.Rows, cells)
		}
		out.Floors = append(out.Floors, view)
	}
	return out
}
