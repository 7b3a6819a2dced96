package model

import "time"

// LayoutTemplate describes the physical seat geometry of a two-floor
// coach.  Each floor is a rectangular grid of seat-code cells; an empty
// string cell marks an aisle, stairs or other absence of a physical
// seat.  Seat inventory for a generated service is materialized from
// this geometry.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – layout display name.
//  Floor1    – lower floor plan.
//  Floor2    – upper floor plan (empty grid when the coach has one floor).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type LayoutTemplate struct {
	ID        uint64    // layout_templates.id
	Name      string    // layout_templates.name
	Floor1    FloorPlan // layout_templates.floor1_class + floor1_grid (JSON)
	Floor2    FloorPlan // layout_templates.floor2_class + floor2_grid (JSON)
	CreatedAt time.Time // layout_templates.created_at
	UpdatedAt time.Time // layout_templates.updated_at
}

// FloorPlan is one floor of a layout: a seat-class tag shared by every
// seat on the floor plus the row-major grid of seat codes.
type FloorPlan struct {
	SeatClass string     `json:"seat_class"` // e.g. "semi-cama", "salon-cama"
	Grid      [][]string `json:"grid"`       // row-major; "" means no seat
}
