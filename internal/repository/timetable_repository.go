package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

const timetableKey = "timetable"

// TimetableRepository keeps the weekly timetable as a single JSON document.
type TimetableRepository struct {
	store kv.Store
}

func NewTimetableRepository(store kv.Store) *TimetableRepository {
	return &TimetableRepository{store: store}
}

// Get returns the stored timetable. found is false when nothing was ever saved.
func (r *TimetableRepository) Get(ctx context.Context) (table models.WeeklyTimetable, found bool, err error) {
	if err := kv.GetJSON(ctx, r.store, timetableKey, &table); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return table, true, nil
}

// Save replaces the stored timetable.
func (r *TimetableRepository) Save(ctx context.Context, table models.WeeklyTimetable) error {
	return kv.SetJSON(ctx, r.store, timetableKey, table, 0)
}
