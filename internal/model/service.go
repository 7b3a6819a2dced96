package model

import "time"

// ServiceInstance is one concrete, dated, bookable trip generated from
// a RouteTemplate.  Route fields are denormalized at creation time as a
// one-time snapshot; later template edits do not change existing
// instances.  The instance itself is immutable after generation except
// for SeatIDs, which is appended once the seat inventory is built.
//
// Fields:
//  ID          – primary key identifier.
//  RouteID     – template this instance was generated from.
//  LayoutID    – layout snapshot reference (nil when the route has none).
//  TravelDate  – the civil service date as an absolute instant at local midnight.
//  Direction   – direction tag copied from the template.
//  Origin      – origin label copied from the template.
//  Destination – destination label copied from the template.
//  Departures  – per-stop schedule, ordered by Order ascending.
//  SeatIDs     – cached identifiers of the seats built for this instance.
//                Rebuildable by querying seats by service; a cache, not a
//                source of truth.
//  CreatedAt   – creation timestamp.
type ServiceInstance struct {
	ID          uint64      // service_instances.id
	RouteID     uint64      // service_instances.route_id
	LayoutID    *uint64     // service_instances.layout_id (nullable)
	TravelDate  time.Time   // service_instances.travel_date
	Direction   string      // service_instances.direction
	Origin      string      // service_instances.origin
	Destination string      // service_instances.destination
	Departures  []Departure // service_departures rows ordered by stop_order
	SeatIDs     []uint64    // service_instances.seat_ids (JSON cache)
	CreatedAt   time.Time   // service_instances.created_at
}

// Departure is a stop's scheduled time and fare within a service
// instance.  Order values are unique and strictly increasing within a
// service; this is the contract the query layer relies on to decide
// whether a service travels from one stop towards another.
type Departure struct {
	Order      uint32    // service_departures.stop_order
	Stop       string    // service_departures.stop_name
	Time       time.Time // service_departures.departs_at (absolute instant)
	PriceCents uint32    // service_departures.price_cents
}
