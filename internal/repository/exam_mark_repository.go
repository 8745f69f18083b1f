package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studytrack-api/internal/models"
)

const examMarkColumns = "id, subject, marks, total_marks, COALESCE(weightage, 1) AS weightage, exam_date, notes"

// ExamMarkRepository persists exam results.
type ExamMarkRepository struct {
	db *sqlx.DB
}

// NewExamMarkRepository constructs the repository.
func NewExamMarkRepository(db *sqlx.DB) *ExamMarkRepository {
	return &ExamMarkRepository{db: db}
}

// List returns marks ordered by exam date, newest first. An empty subject returns all marks.
func (r *ExamMarkRepository) List(ctx context.Context, subject string) ([]models.ExamMark, error) {
	query := "SELECT " + examMarkColumns + " FROM exam_marks"
	var args []interface{}
	if subject != "" {
		query += " WHERE subject = ?"
		args = append(args, subject)
	}
	query += " ORDER BY exam_date DESC, id DESC"

	var marks []models.ExamMark
	if err := r.db.SelectContext(ctx, &marks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list exam marks: %w", err)
	}
	return marks, nil
}

// FindByID returns a mark or sql.ErrNoRows.
func (r *ExamMarkRepository) FindByID(ctx context.Context, id int64) (*models.ExamMark, error) {
	var mark models.ExamMark
	if err := r.db.GetContext(ctx, &mark, r.db.Rebind("SELECT "+examMarkColumns+" FROM exam_marks WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &mark, nil
}

// Insert stores a mark and fills in its id.
func (r *ExamMarkRepository) Insert(ctx context.Context, mark *models.ExamMark) error {
	query := r.db.Rebind(`INSERT INTO exam_marks (subject, marks, total_marks, weightage, exam_date, notes)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &mark.ID, query, mark.Subject, mark.Marks, mark.TotalMarks, mark.Weightage, mark.ExamDate, mark.Notes); err != nil {
		return fmt.Errorf("insert exam mark: %w", err)
	}
	return nil
}

// Update rewrites the score fields. Subject and exam date are fixed once recorded.
func (r *ExamMarkRepository) Update(ctx context.Context, mark *models.ExamMark) (bool, error) {
	query := r.db.Rebind("UPDATE exam_marks SET marks = ?, total_marks = ?, weightage = ?, notes = ? WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, mark.Marks, mark.TotalMarks, mark.Weightage, mark.Notes, mark.ID)
	if err != nil {
		return false, fmt.Errorf("update exam mark %d: %w", mark.ID, err)
	}
	return affected(res)
}

// Delete removes a mark; missing rows are not an error.
func (r *ExamMarkRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM exam_marks WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("delete exam mark %d: %w", id, err)
	}
	return affected(res)
}

// RenameSubject rewrites historical marks from one subject to another.
func (r *ExamMarkRepository) RenameSubject(ctx context.Context, from, to string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE exam_marks SET subject = ? WHERE subject = ?"), to, from)
	if err != nil {
		return 0, fmt.Errorf("rename exam mark subject: %w", err)
	}
	return res.RowsAffected()
}
