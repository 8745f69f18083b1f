package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// AdjustmentRepository persists per-subject attendance corrections.
type AdjustmentRepository struct {
	db *sqlx.DB
}

func NewAdjustmentRepository(db *sqlx.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// List returns every stored adjustment ordered by subject.
func (r *AdjustmentRepository) List(ctx context.Context) ([]models.AttendanceAdjustment, error) {
	var out []models.AttendanceAdjustment
	if err := r.db.SelectContext(ctx, &out, "SELECT subject, present_delta, total_delta, updated_at FROM attendance_adjustments ORDER BY subject"); err != nil {
		return nil, fmt.Errorf("list attendance adjustments: %w", err)
	}
	return out, nil
}

// Upsert stores the adjustment for its subject, replacing any previous one.
func (r *AdjustmentRepository) Upsert(ctx context.Context, adj models.AttendanceAdjustment) error {
	query := r.db.Rebind(`INSERT INTO attendance_adjustments (subject, present_delta, total_delta, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (subject) DO UPDATE SET present_delta = excluded.present_delta, total_delta = excluded.total_delta, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, adj.Subject, adj.PresentDelta, adj.TotalDelta, adj.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance adjustment %s: %w", adj.Subject, err)
	}
	return nil
}

// Delete drops the adjustment for subject; missing rows are not an error.
func (r *AdjustmentRepository) Delete(ctx context.Context, subject string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM attendance_adjustments WHERE subject = ?"), subject)
	if err != nil {
		return false, fmt.Errorf("delete attendance adjustment %s: %w", subject, err)
	}
	return affected(res)
}

// RenameSubject moves an adjustment to a new subject name.
func (r *AdjustmentRepository) RenameSubject(ctx context.Context, from, to string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE attendance_adjustments SET subject = ? WHERE subject = ?"), to, from); err != nil {
		return fmt.Errorf("rename attendance adjustment: %w", err)
	}
	return nil
}
