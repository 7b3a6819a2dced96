package model

import "time"

// Seat is one bookable inventory unit tied to a specific service
// instance.  Seats are created in bulk from the layout geometry when
// the instance is generated and are never deleted while the instance
// exists.
//
// Invariant: IsAvailable == false implies HoldUntil is set (a pending
// hold) or PassengerRef is set with HoldUntil cleared (a confirmed
// booking).  A seat whose hold expired without confirmation is returned
// to the available pool by the release sweeper, which clears both
// HoldUntil and PassengerRef.
//
// Fields:
//  ID           – primary key identifier.
//  ServiceID    – service instance this seat belongs to.
//  Code         – human-facing seat label, e.g. "1A".
//  Floor        – floor number, 1 or 2.
//  SeatClass    – seat-class tag copied from the layout floor.
//  IsAvailable  – whether the seat can currently be held.
//  HoldUntil    – hold expiry instant (nil when not held).
//  PassengerRef – external passenger reference (nil when unassigned).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Seat struct {
	ID           uint64     // seats.id
	ServiceID    uint64     // seats.service_id
	Code         string     // seats.code
	Floor        uint8      // seats.floor
	SeatClass    string     // seats.seat_class
	IsAvailable  bool       // seats.is_available
	HoldUntil    *time.Time // seats.hold_until (nullable)
	PassengerRef *string    // seats.passenger_ref (nullable)
	CreatedAt    time.Time  // seats.created_at
	UpdatedAt    time.Time  // seats.updated_at
}
