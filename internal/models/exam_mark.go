package models

// ExamMark stores a single assessment result.
type ExamMark struct {
	ID         int64   `db:"id" json:"id"`
	Subject    string  `db:"subject" json:"subject"`
	Marks      float64 `db:"marks" json:"marks"`
	TotalMarks float64 `db:"total_marks" json:"total_marks"`
	Weightage  float64 `db:"weightage" json:"weightage"`
	ExamDate   string  `db:"exam_date" json:"exam_date"`
	Notes      *string `db:"notes" json:"notes,omitempty"`
}

// Percentage is marks as a share of total marks.
func (m ExamMark) Percentage() float64 {
	if m.TotalMarks <= 0 {
		return 0
	}
	return m.Marks / m.TotalMarks * 100
}

// WeightedScore scales the percentage by the weightage.
func (m ExamMark) WeightedScore() float64 {
	return m.Percentage() * m.Weightage / 100
}

// Grade maps the percentage onto letter grades.
func (m ExamMark) Grade() string {
	return GradeFor(m.Percentage())
}

// GradeFor maps a percentage onto letter grades.
func GradeFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}
