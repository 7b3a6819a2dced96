// This file manages service instances: the dated, bookable trips the
// schedule expander generates.  An instance row is written exactly once;
// the only later mutation is the seat_ids cache updated after inventory
// build.  The unique (route_id, travel_date) index backs the expansion
// idempotence guarantee.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// ServiceRepo manages persistence for service instances and their
// departures.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a ServiceRepo bound to the provided database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// Insert persists a service instance and its departure list in one
// transaction, populating the generated ID.  A duplicate
// (route_id, travel_date) pair yields ErrDuplicateService.
func (r *ServiceRepo) Insert(ctx context.Context, svc *model.ServiceInstance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO service_instances (route_id, layout_id, travel_date, direction, origin, destination)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		svc.RouteID, svc.LayoutID, svc.TravelDate.UTC(), svc.Direction, svc.Origin, svc.Destination)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateService
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	svc.ID = uint64(id)

	if len(svc.Departures) > 0 {
		query := `INSERT INTO service_departures (service_id, stop_order, stop_name, departs_at, price_cents) VALUES `
		args := make([]interface{}, 0, len(svc.Departures)*5)
		for i, d := range svc.Departures {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, svc.ID, d.Order, d.Stop, d.Time.UTC(), d.PriceCents)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExistsForDate reports whether the route already has an instance for
// the given travel date.  The expander calls this before materializing
// a date so re-running the same parameters never duplicates a slot.
func (r *ServiceRepo) ExistsForDate(ctx context.Context, routeID uint64, travelDate time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM service_instances WHERE route_id = ? AND travel_date = ? LIMIT 1`,
		routeID, travelDate.UTC()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSeatRefs stores the seat id cache on the instance.  The cache
// is not a source of truth: a crash between the seat bulk insert and
// this update leaves a service whose seats are still discoverable by
// querying seats by service id.
func (r *ServiceRepo) UpdateSeatRefs(ctx context.Context, serviceID uint64, seatIDs []uint64) error {
	refs, err := json.Marshal(seatIDs)
	if err != nil {
		return fmt.Errorf("marshal seat ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE service_instances SET seat_ids = ? WHERE id = ?`, string(refs), serviceID)
	return err
}

// GetByID fetches one service instance with departures ordered by
// stop_order.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.ServiceInstance, error) {
	svc, err := r.scanOne(ctx,
		`SELECT id, route_id, layout_id, travel_date, direction, origin, destination, seat_ids, created_at
		 FROM service_instances WHERE id = ?`, id)
	if err != nil {
		return model.ServiceInstance{}, err
	}
	svc.Departures, err = r.loadDepartures(ctx, svc.ID)
	if err != nil {
		return model.ServiceInstance{}, err
	}
	return svc, nil
}

// ListAll returns every service instance with its departures.  Intended
// for the admin listing endpoint; public browsing goes through
// ByDateRange.
func (r *ServiceRepo) ListAll(ctx context.Context) ([]model.ServiceInstance, error) {
	return r.listByQuery(ctx,
		`SELECT id, route_id, layout_id, travel_date, direction, origin, destination, seat_ids, created_at
		 FROM service_instances ORDER BY travel_date, id`)
}

// ByDateRange returns the instances whose travel date falls in
// [start, end), departures included.  Callers compute the day bounds in
// the business timezone.
func (r *ServiceRepo) ByDateRange(ctx context.Context, start, end time.Time) ([]model.ServiceInstance, error) {
	return r.listByQuery(ctx,
		`SELECT id, route_id, layout_id, travel_date, direction, origin, destination, seat_ids, created_at
		 FROM service_instances WHERE travel_date >= ? AND travel_date < ? ORDER BY travel_date, id`,
		start.UTC(), end.UTC())
}

func (r *ServiceRepo) listByQuery(ctx context.Context, q string, args ...interface{}) ([]model.ServiceInstance, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.ServiceInstance
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range services {
		services[i].Departures, err = r.loadDepartures(ctx, services[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return services, nil
}

func (r *ServiceRepo) scanOne(ctx context.Context, q string, args ...interface{}) (model.ServiceInstance, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return model.ServiceInstance{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.ServiceInstance{}, err
		}
		return model.ServiceInstance{}, ErrServiceNotFound
	}
	return scanService(rows)
}

func scanService(rows *sql.Rows) (model.ServiceInstance, error) {
	var (
		svc  model.ServiceInstance
		refs sql.NullString
	)
	if err := rows.Scan(&svc.ID, &svc.RouteID, &svc.LayoutID, &svc.TravelDate,
		&svc.Direction, &svc.Origin, &svc.Destination, &refs, &svc.CreatedAt); err != nil {
		return model.ServiceInstance{}, err
	}
	if refs.Valid && refs.String != "" {
		if err := json.Unmarshal([]byte(refs.String), &svc.SeatIDs); err != nil {
			return model.ServiceInstance{}, fmt.Errorf("unmarshal seat ids: %w", err)
		}
	}
	return svc, nil
}

func (r *ServiceRepo) loadDepartures(ctx context.Context, serviceID uint64) ([]model.Departure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stop_order, stop_name, departs_at, price_cents
		 FROM service_departures WHERE service_id = ? ORDER BY stop_order`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []model.Departure
	for rows.Next() {
		var d model.Departure
		if err := rows.Scan(&d.Order, &d.Stop, &d.Time, &d.PriceCents); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}
