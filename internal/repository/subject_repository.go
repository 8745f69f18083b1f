package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// SubjectRepository derives subject names from the relational store.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListAllSubjects returns the deduplicated, case-sensitively sorted union of subjects on
// active attendance rows and exam marks. The "Unknown" placeholder is never a subject.
func (r *SubjectRepository) ListAllSubjects(ctx context.Context) ([]string, error) {
	const query = `SELECT subject FROM attendance
WHERE is_archived IS NOT TRUE AND subject IS NOT NULL AND subject <> '' AND subject <> 'Unknown'
UNION
SELECT subject FROM exam_marks WHERE subject IS NOT NULL AND subject <> ''`

	var subjects []string
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	// Sorted here rather than in SQL so ordering does not depend on the database collation.
	sort.Strings(subjects)
	return subjects, nil
}
