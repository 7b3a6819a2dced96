// This file manages the seat inventory.  Seats are written in bulk when
// an instance is generated, mutated by hold placement (an external
// collaborator) and by ReleaseExpired, and never deleted while their
// service exists.  All hold-state transitions are single conditional
// UPDATEs keyed on current state; there is no read-then-write anywhere
// in this file.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// SeatRepo manages persistence for seats.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulk inserts all seats of a service in one statement and
// returns their generated ids in insertion order.  The ids are
// re-queried rather than derived from LastInsertId so the result stays
// correct regardless of the server's auto-increment lock mode.  Passing
// an empty slice returns an empty id list and no error.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) ([]uint64, error) {
	if len(seats) == 0 {
		return []uint64{}, nil
	}
	query := `INSERT INTO seats (service_id, code, floor, seat_class, is_available) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, 1)"
		args = append(args, s.ServiceID, s.Code, s.Floor, s.SeatClass)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.IDsByService(ctx, seats[0].ServiceID)
}

// IDsByService returns the seat ids of a service ordered by id.  This
// is the re-derivation path for the instance's seat-ref cache.
func (r *SeatRepo) IDsByService(ctx context.Context, serviceID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM seats WHERE service_id = ? ORDER BY id`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByService returns the full seat records of a service ordered by
// floor then id.  The seat-map projector overlays these onto the layout
// geometry.
func (r *SeatRepo) ListByService(ctx context.Context, serviceID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, service_id, code, floor, seat_class, is_available, hold_until, passenger_ref, created_at, updated_at
		 FROM seats WHERE service_id = ? ORDER BY floor, id`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var (
			s    model.Seat
			hold sql.NullTime
			pax  sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.ServiceID, &s.Code, &s.Floor, &s.SeatClass,
			&s.IsAvailable, &hold, &pax, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if hold.Valid {
			t := hold.Time
			s.HoldUntil = &t
		}
		if pax.Valid {
			v := pax.String
			s.PassengerRef = &v
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CountByService returns how many seats exist for a service.
func (r *SeatRepo) CountByService(ctx context.Context, serviceID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE service_id = ?`, serviceID).Scan(&n)
	return n, err
}

// ReleaseExpired returns every seat whose hold expired at or before now
// to the available pool, clearing the hold expiry and the passenger
// reference.  The transition condition lives inside the UPDATE itself,
// so a hold renewed or confirmed between the sweeper's tick and this
// write no longer matches the predicate and is left untouched.  Seats
// with a passenger but no hold_until are confirmed bookings and never
// match.  Returns the number of seats released.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats
		 SET is_available = 1, hold_until = NULL, passenger_ref = NULL
		 WHERE is_available = 0 AND hold_until IS NOT NULL AND hold_until <= ?`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
