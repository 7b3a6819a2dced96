package schedule

import "github.com/cvidalr/bus-trip-booking/internal/model"

// BuildSeatRecords materializes one Seat per physical seat position of
// the layout, bound to the given service instance.  Floor 1's grid is
// walked row-major first, then floor 2's; empty cells are aisles or
// stairs and produce no seat.  A layout with no populated grid yields
// an empty slice, which is not an error: a service may legitimately
// have no inventory when layout population was skipped.
func BuildSeatRecords(serviceID uint64, layout *model.LayoutTemplate) []model.Seat {
	var seats []model.Seat
	floors := []struct {
		number uint8
		plan   model.FloorPlan
	}{
		{1, layout.Floor1},
		{2, layout.Floor2},
	}
	for _, f := range floors {
		for _, row := range f.plan.Grid {
			for _, code := range row {
				if code == "" {
					continue
				}
				seats = append(seats, model.Seat{
					ServiceID:   serviceID,
					Code:        code,
					Floor:       f.number,
					SeatClass:   f.plan.SeatClass,
					IsAvailable: true,
				})
			}
		}
	}
	return seats
}
