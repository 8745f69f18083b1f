package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// HolidayRepository persists holiday markers, one per date.
type HolidayRepository struct {
	db *sqlx.DB
}

func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// List returns holidays in date order, optionally bounded (inclusive).
func (r *HolidayRepository) List(ctx context.Context, from, to string) ([]models.Holiday, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if from != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, to)
	}
	query := "SELECT id, date, description FROM holidays"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date"

	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// FindByDate returns the holiday on date or sql.ErrNoRows.
func (r *HolidayRepository) FindByDate(ctx context.Context, date string) (*models.Holiday, error) {
	var h models.Holiday
	if err := r.db.GetContext(ctx, &h, r.db.Rebind("SELECT id, date, description FROM holidays WHERE date = ?"), date); err != nil {
		return nil, err
	}
	return &h, nil
}

// Upsert creates the holiday or replaces the description of an existing one.
func (r *HolidayRepository) Upsert(ctx context.Context, h *models.Holiday) error {
	query := r.db.Rebind(`INSERT INTO holidays (date, description) VALUES (?, ?)
ON CONFLICT (date) DO UPDATE SET description = excluded.description RETURNING id`)
	if err := r.db.GetContext(ctx, &h.ID, query, h.Date, h.Description); err != nil {
		return fmt.Errorf("upsert holiday %s: %w", h.Date, err)
	}
	return nil
}

// Delete removes the holiday on date; missing rows are not an error.
func (r *HolidayRepository) Delete(ctx context.Context, date string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM holidays WHERE date = ?"), date)
	if err != nil {
		return false, fmt.Errorf("delete holiday %s: %w", date, err)
	}
	return affected(res)
}
