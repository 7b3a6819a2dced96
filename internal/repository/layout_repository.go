package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cvidalr/bus-trip-booking/internal/model"
)

// LayoutRepo manages persistence for seat layout templates.  Floor
// grids are stored as JSON columns and (de)serialized here so the rest
// of the application works with [][]string directly.
type LayoutRepo struct {
	db *sql.DB
}

// NewLayoutRepo returns a LayoutRepo bound to the provided database.
func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

// Create inserts a layout template and populates the generated ID.
func (r *LayoutRepo) Create(ctx context.Context, lt *model.LayoutTemplate) error {
	g1, err := json.Marshal(lt.Floor1.Grid)
	if err != nil {
		return fmt.Errorf("marshal floor1 grid: %w", err)
	}
	g2, err := json.Marshal(lt.Floor2.Grid)
	if err != nil {
		return fmt.Errorf("marshal floor2 grid: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO layout_templates (name, floor1_class, floor1_grid, floor2_class, floor2_grid)
		 VALUES (?, ?, ?, ?, ?)`,
		lt.Name, lt.Floor1.SeatClass, string(g1), lt.Floor2.SeatClass, string(g2))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lt.ID = uint64(id)
	return nil
}

// GetByID fetches one layout template with both floor grids decoded.
func (r *LayoutRepo) GetByID(ctx context.Context, id uint64) (model.LayoutTemplate, error) {
	var (
		lt     model.LayoutTemplate
		g1, g2 []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, floor1_class, floor1_grid, floor2_class, floor2_grid, created_at, updated_at
		 FROM layout_templates WHERE id = ?`, id).
		Scan(&lt.ID, &lt.Name, &lt.Floor1.SeatClass, &g1, &lt.Floor2.SeatClass, &g2,
			&lt.CreatedAt, &lt.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.LayoutTemplate{}, ErrLayoutNotFound
	}
	if err != nil {
		return model.LayoutTemplate{}, err
	}
	if len(g1) > 0 {
		if err := json.Unmarshal(g1, &lt.Floor1.Grid); err != nil {
			return model.LayoutTemplate{}, fmt.Errorf("unmarshal floor1 grid: %w", err)
		}
	}
	if len(g2) > 0 {
		if err := json.Unmarshal(g2, &lt.Floor2.Grid); err != nil {
			return model.LayoutTemplate{}, fmt.Errorf("unmarshal floor2 grid: %w", err)
		}
	}
	return lt, nil
}

// ListAll returns every layout template.
func (r *LayoutRepo) ListAll(ctx context.Context) ([]model.LayoutTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM layout_templates ORDER BY id`)
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

	layouts := make([]model.LayoutTemplate, 0, len(ids))
	for _, id := range ids {
		lt, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, lt)
	}
	return layouts, nil
}
