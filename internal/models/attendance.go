package models

import "strings"

// AttendanceStatus represents the outcome recorded for a class.
type AttendanceStatus string

const (
	AttendanceStatusPresent   AttendanceStatus = "present"
	AttendanceStatusAbsent    AttendanceStatus = "absent"
	AttendanceStatusLate      AttendanceStatus = "late"
	AttendanceStatusCancelled AttendanceStatus = "cancelled"
	AttendanceStatusTest      AttendanceStatus = "test"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusCancelled, AttendanceStatusTest:
		return true
	default:
		return false
	}
}

// UnknownSubject is the column default for rows written before subjects were stored.
const UnknownSubject = "Unknown"

// DateLayout is the calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// AttendanceRecord is one logged class.
type AttendanceRecord struct {
	ID         int64            `db:"id" json:"id"`
	Subject    string           `db:"subject" json:"subject"`
	Date       string           `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Multiplier int              `db:"multiplier" json:"multiplier"`
	IsManual   bool             `db:"is_manual" json:"is_manual"`
	IsArchived bool             `db:"is_archived" json:"is_archived"`
	Notes      *string          `db:"notes" json:"notes,omitempty"`
}

// Weight is the number of class units the record stands for.
func (r AttendanceRecord) Weight() int {
	if r.Multiplier <= 0 {
		return 1
	}
	return r.Multiplier
}

// ResolveSubject returns the subject the record belongs to. The stored column wins;
// legacy rows fall back to notes shaped like "Class: Mathematics".
func (r AttendanceRecord) ResolveSubject() (string, bool) {
	if s := strings.TrimSpace(r.Subject); s != "" && s != UnknownSubject {
		return s, true
	}
	if r.Notes == nil {
		return "", false
	}
	return SubjectFromNotes(*r.Notes)
}

// SubjectFromNotes returns the trimmed segment between the first and second ": " of notes,
// so "Class: Physics: Lab session" yields Physics.
func SubjectFromNotes(notes string) (string, bool) {
	_, rest, ok := strings.Cut(notes, ": ")
	if !ok {
		return "", false
	}
	if segment, _, found := strings.Cut(rest, ": "); found {
		rest = segment
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || rest == UnknownSubject {
		return "", false
	}
	return rest, true
}

// AttendanceFilter scopes paginated listings.
type AttendanceFilter struct {
	Subject   string
	Status    *AttendanceStatus
	DateFrom  string
	DateTo    string
	Archived  bool
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}

// AttendanceAdjustment is a persisted per-subject correction added on top of the counts
// computed from records.
type AttendanceAdjustment struct {
	Subject      string `db:"subject" json:"subject"`
	PresentDelta int    `db:"present_delta" json:"present_delta"`
	TotalDelta   int    `db:"total_delta" json:"total_delta"`
	UpdatedAt    string `db:"updated_at" json:"updated_at"`
}
