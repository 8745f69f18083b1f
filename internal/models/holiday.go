package models

// Holiday marks a date with no classes. It never affects aggregates.
type Holiday struct {
	ID          int64   `db:"id" json:"id"`
	Date        string  `db:"date" json:"date"`
	Description *string `db:"description" json:"description,omitempty"`
}
