package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// Nullable columns are normalised in the projection so legacy rows scan cleanly.
const attendanceColumns = "id, COALESCE(subject, '') AS subject, date, status, COALESCE(multiplier, 1) AS multiplier, " +
	"(is_manual IS TRUE) AS is_manual, (is_archived IS TRUE) AS is_archived, notes"

const (
	activeClause   = "is_archived IS NOT TRUE"
	archivedClause = "is_archived IS TRUE"
)

// AttendanceRepository persists attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListActive returns every non-archived record, most recent first.
func (r *AttendanceRepository) ListActive(ctx context.Context) ([]models.AttendanceRecord, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE " + activeClause + " ORDER BY date DESC, id DESC"
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list active attendance: %w", err)
	}
	return records, nil
}

// ListArchived returns archived records, optionally narrowed by a case-insensitive search
// over subject, date, status and notes.
func (r *AttendanceRepository) ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE " + archivedClause
	var args []interface{}
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query += " AND (LOWER(COALESCE(subject, '')) LIKE ? OR date LIKE ? OR LOWER(status) LIKE ? OR LOWER(COALESCE(notes, '')) LIKE ?)"
		args = append(args, like, like, like, like)
	}
	query += " ORDER BY date DESC, id DESC"

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list archived attendance: %w", err)
	}
	return records, nil
}

// ListForDate returns the non-archived records of a calendar date, newest first.
func (r *AttendanceRepository) ListForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	query := r.db.Rebind("SELECT " + attendanceColumns + " FROM attendance WHERE date = ? AND " + activeClause + " ORDER BY id DESC")
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance for %s: %w", date, err)
	}
	return records, nil
}

// List returns a filtered page of records and the total match count.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	conditions := []string{activeClause}
	if filter.Archived {
		conditions = []string{archivedClause}
	}
	var args []interface{}

	if filter.Subject != "" {
		conditions = append(conditions, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.DateTo)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		conditions = append(conditions, "LOWER(COALESCE(notes, '')) LIKE ?")
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	base := "FROM attendance WHERE " + strings.Join(conditions, " AND ")

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date %s, id %s LIMIT %d OFFSET %d", attendanceColumns, base, order, order, size, offset)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+base), args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// FindByID returns a record regardless of its archive state. Missing rows yield sql.ErrNoRows.
func (r *AttendanceRepository) FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	query := r.db.Rebind("SELECT " + attendanceColumns + " FROM attendance WHERE id = ?")
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Insert stores a new record and fills in its generated id.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	query := r.db.Rebind(`INSERT INTO attendance (subject, date, status, multiplier, is_manual, is_archived, notes)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		record.Subject, record.Date, record.Status, record.Weight(), record.IsManual, record.IsArchived, record.Notes,
	); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	record.ID = id
	return nil
}

// UpdateStatus rewrites status and multiplier and marks the record as manually edited.
// It reports whether a row was changed.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id int64, status models.AttendanceStatus, multiplier int) (bool, error) {
	if multiplier <= 0 {
		multiplier = 1
	}
	query := r.db.Rebind("UPDATE attendance SET status = ?, multiplier = ?, is_manual = ? WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, status, multiplier, true, id)
	if err != nil {
		return false, fmt.Errorf("update attendance %d: %w", id, err)
	}
	return affected(res)
}

// Archive soft-deletes a record. Repeating it is a no-op; the bool reports whether the row exists.
func (r *AttendanceRepository) Archive(ctx context.Context, id int64) (bool, error) {
	return r.setArchived(ctx, id, true)
}

// Restore reverses Archive.
func (r *AttendanceRepository) Restore(ctx context.Context, id int64) (bool, error) {
	return r.setArchived(ctx, id, false)
}

func (r *AttendanceRepository) setArchived(ctx context.Context, id int64, archived bool) (bool, error) {
	query := r.db.Rebind("UPDATE attendance SET is_archived = ? WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, archived, id)
	if err != nil {
		return false, fmt.Errorf("set archived=%t on attendance %d: %w", archived, id, err)
	}
	return affected(res)
}

// Delete removes a record permanently. Deleting a missing row is not an error.
func (r *AttendanceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM attendance WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("delete attendance %d: %w", id, err)
	}
	return affected(res)
}

// RenameSubject rewrites historical rows from one subject to another.
func (r *AttendanceRepository) RenameSubject(ctx context.Context, from, to string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE attendance SET subject = ? WHERE subject = ?"), to, from)
	if err != nil {
		return 0, fmt.Errorf("rename attendance subject: %w", err)
	}
	return res.RowsAffected()
}
