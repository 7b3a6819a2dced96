package model

import "time"

// RouteTemplate is the reusable definition of a bus route: its stops,
// fares and timing rule.  Concrete dated services are generated from it
// by the schedule expander; edits to a template never propagate to
// services that were already generated.
//
// Exactly one of BaseDepartureTime ("HH:mm" civil time) or StartMinutes
// (minutes since midnight) must be set.  A template with both or neither
// is a configuration error rejected at expansion time.
//
// Fields:
//  ID                – primary key identifier.
//  Name              – display name, e.g. "Santiago - Mina".
//  Origin            – origin stop label.
//  Destination       – destination stop label.
//  Direction         – direction tag copied onto generated services.
//  BaseDepartureTime – base departure as "HH:mm" (nil when StartMinutes is used).
//  StartMinutes      – base departure as minutes since midnight (nil when unused).
//  LayoutID          – optional reference to the seat layout template.
//  Schedule          – recurrence rule gating expansion.
//  Stops             – ordered stop list with offsets and fares.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type RouteTemplate struct {
	ID                uint64         // route_templates.id
	Name              string         // route_templates.name
	Origin            string         // route_templates.origin
	Destination       string         // route_templates.destination
	Direction         string         // route_templates.direction
	BaseDepartureTime *string        // route_templates.base_departure_time (nullable)
	StartMinutes      *int           // route_templates.start_minutes (nullable)
	LayoutID          *uint64        // route_templates.layout_id (nullable)
	Schedule          ScheduleRule   // route_templates.schedule_active + schedule_days
	Stops             []StopTemplate // route_stops rows ordered by stop_order
	CreatedAt         time.Time      // route_templates.created_at
	UpdatedAt         time.Time      // route_templates.updated_at
}

// ScheduleRule controls whether and on which weekdays a route may be
// expanded into dated services.  Days holds ISO weekday numbers
// (1=Monday .. 7=Sunday).
type ScheduleRule struct {
	Active bool  // expansion is refused while false
	Days   []int // ISO weekdays the route runs on
}

// StopTemplate is one stop within a route template.  Order values must
// be unique and strictly increasing; the expander copies them verbatim
// and the query layer relies on them to compare stop positions.
//
// Fields:
//  Order         – position of the stop within the route (strictly increasing).
//  Name          – stop label.
//  OffsetMinutes – minutes after the base departure the bus reaches this stop.
//  PriceCents    – fare to this stop in minor currency units.
type StopTemplate struct {
	Order         uint32 // route_stops.stop_order
	Name          string // route_stops.name
	OffsetMinutes int    // route_stops.offset_minutes
	PriceCents    uint32 // route_stops.price_cents
}
