// Package repository contains data access logic for the booking domain.
// This file manages route templates and their ordered stop lists.  A
// route template is immutable business configuration edited only through
// the admin CRUD endpoints; the schedule expander reads it but never
// writes it.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// RouteRepo manages persistence for route templates and their stops.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a RouteRepo bound to the provided database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// Create inserts a route template together with its stops in one
// transaction and populates the generated ID.
func (r *RouteRepo) Create(ctx context.Context, rt *model.RouteTemplate) error {
	days, err := json.Marshal(rt.Schedule.Days)
	if err != nil {
		return fmt.Errorf("marshal schedule days: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO route_templates
		 (name, origin, destination, direction, base_departure_time, start_minutes, layout_id, schedule_active, schedule_days)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.Name, rt.Origin, rt.Destination, rt.Direction,
		rt.BaseDepartureTime, rt.StartMinutes, rt.LayoutID,
		rt.Schedule.Active, string(days))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)

	if err := insertStopsTx(ctx, tx, rt.ID, rt.Stops); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches one route template with its stops ordered by stop_order.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (model.RouteTemplate, error) {
	var (
		rt   model.RouteTemplate
		days []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, origin, destination, direction, base_departure_time, start_minutes,
		        layout_id, schedule_active, schedule_days, created_at, updated_at
		 FROM route_templates WHERE id = ?`, id).
		Scan(&rt.ID, &rt.Name, &rt.Origin, &rt.Destination, &rt.Direction,
			&rt.BaseDepartureTime, &rt.StartMinutes, &rt.LayoutID,
			&rt.Schedule.Active, &days, &rt.CreatedAt, &rt.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.RouteTemplate{}, ErrRouteNotFound
	}
	if err != nil {
		return model.RouteTemplate{}, err
	}
	if len(days) > 0 {
		if err := json.Unmarshal(days, &rt.Schedule.Days); err != nil {
			return model.RouteTemplate{}, fmt.Errorf("unmarshal schedule days: %w", err)
		}
	}
	rt.Stops, err = r.loadStops(ctx, rt.ID)
	if err != nil {
		return model.RouteTemplate{}, err
	}
	return rt, nil
}

// ListAll returns every route template, stops included.
func (r *RouteRepo) ListAll(ctx context.Context) ([]model.RouteTemplate, error) {
	return r.list(ctx, `SELECT id FROM route_templates ORDER BY id`)
}

// ListActive returns the route templates whose schedule is active.  The
// bulk expansion endpoint iterates over this set.
func (r *RouteRepo) ListActive(ctx context.Context) ([]model.RouteTemplate, error) {
	return r.list(ctx, `SELECT id FROM route_templates WHERE schedule_active = 1 ORDER BY id`)
}

func (r *RouteRepo) list(ctx context.Context, q string) ([]model.RouteTemplate, error) {
	rows, err := r.db.QueryContext(ctx, q)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	routes := make([]model.RouteTemplate, 0, len(ids))
	for _, id := range ids {
		rt, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

// Update replaces the template's scalar fields and its entire stop list.
// Existing service instances keep the snapshot they were generated with.
func (r *RouteRepo) Update(ctx context.Context, rt *model.RouteTemplate) error {
	days, err := json.Marshal(rt.Schedule.Days)
	if err != nil {
		return fmt.Errorf("marshal schedule days: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE route_templates
		 SET name = ?, origin = ?, destination = ?, direction = ?, base_departure_time = ?,
		     start_minutes = ?, layout_id = ?, schedule_active = ?, schedule_days = ?
		 WHERE id = ?`,
		rt.Name, rt.Origin, rt.Destination, rt.Direction, rt.BaseDepartureTime,
		rt.StartMinutes, rt.LayoutID, rt.Schedule.Active, string(days), rt.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The UPDATE may also report zero rows when nothing changed;
		// disambiguate with an existence probe.
		var one int
		if probeErr := tx.QueryRowContext(ctx,
			`SELECT 1 FROM route_templates WHERE id = ?`, rt.ID).Scan(&one); probeErr == sql.ErrNoRows {
			return ErrRouteNotFound
		} else if probeErr != nil {
			return probeErr
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM route_stops WHERE route_id = ?`, rt.ID); err != nil {
		return err
	}
	if err := insertStopsTx(ctx, tx, rt.ID, rt.Stops); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a route template and its stops.
func (r *RouteRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM route_stops WHERE route_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM route_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRouteNotFound
	}
	return tx.Commit()
}

func (r *RouteRepo) loadStops(ctx context.Context, routeID uint64) ([]model.StopTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stop_order, name, offset_minutes, price_cents
		 FROM route_stops WHERE route_id = ? ORDER BY stop_order`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []model.StopTemplate
	for rows.Next() {
		var s model.StopTemplate
		if err := rows.Scan(&s.Order, &s.Name, &s.OffsetMinutes, &s.PriceCents); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// insertStopsTx bulk-inserts the stop list inside the caller's
// transaction.  Passing an empty slice has no effect.
func insertStopsTx(ctx context.Context, tx *sql.Tx, routeID uint64, stops []model.StopTemplate) error {
	if len(stops) == 0 {
		return nil
	}
	query := `INSERT INTO route_stops (route_id, stop_order, name, offset_minutes, price_cents) VALUES `
	args := make([]interface{}, 0, len(stops)*5)
	for i, s := range stops {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, routeID, s.Order, s.Name, s.OffsetMinutes, s.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
