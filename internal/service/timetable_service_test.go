package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

func newTimetableForTest(table models.WeeklyTimetable) (*TimetableService, *memTimetableRepo, *memAttendanceRepo) {
	repo := &memTimetableRepo{table: table}
	attendance := &memAttendanceRepo{}
	holidays := holidayStub{holidays: map[string]models.Holiday{"2024-01-13": {Date: "2024-01-13"}}}
	return NewTimetableService(repo, attendance, holidays, nil, nil), repo, attendance
}

func TestTimetableDefaultsWhenNothingStored(t *testing.T) {
	svc, repo, _ := newTimetableForTest(nil)
	table, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 6)
	for _, day := range models.Weekdays {
		require.Len(t, table[day], 2, day)
		assert.Equal(t, "Mathematics", table[day][0].Subject)
		assert.Equal(t, "9:00", table[day][0].StartTime)
		assert.Equal(t, "Computer Science", table[day][1].Subject)
		assert.Equal(t, "11:00", table[day][1].EndTime)
	}
	_, ok := table["Sunday"]
	assert.False(t, ok)
	assert.Zero(t, repo.saves)
}

func TestTimetableSaveValidatesAndSorts(t *testing.T) {
	svc, repo, _ := newTimetableForTest(nil)
	saved, err := svc.Save(context.Background(), models.WeeklyTimetable{
		"Tuesday": {
			{Subject: "Physics", StartTime: "13:00", EndTime: "14:00"},
			{Subject: "Chemistry", StartTime: "9:30", EndTime: "10:15"},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved["Tuesday"], 2)
	assert.Equal(t, "Chemistry", saved["Tuesday"][0].Subject)
	assert.NotEmpty(t, saved["Tuesday"][0].ID)
	assert.Empty(t, saved["Monday"])
	assert.Equal(t, 1, repo.saves)

	invalid := []models.WeeklyTimetable{
		{"Sunday": {{Subject: "Art", StartTime: "9:00", EndTime: "10:00"}}},
		{"Monday": {{Subject: "Art", StartTime: "25:00", EndTime: "26:00"}}},
		{"Monday": {{Subject: "Art", StartTime: "10:00", EndTime: "9:00"}}},
		{"Monday": {{Subject: " ", StartTime: "9:00", EndTime: "10:00"}}},
	}
	for _, table := range invalid {
		_, err := svc.Save(context.Background(), table)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), "%v", table)
	}
	assert.Equal(t, 1, repo.saves)
}

func TestTimetableEntryLifecycle(t *testing.T) {
	svc, _, _ := newTimetableForTest(nil)
	ctx := context.Background()
	changes := 0
	svc.OnChange(func(context.Context) { changes++ })

	entry, err := svc.AddEntry(ctx, "Monday", TimetableEntryRequest{Subject: "Art", StartTime: "8:00", EndTime: "8:45"})
	require.NoError(t, err)
	table, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, table["Monday"][0].ID)

	_, renamed, err := svc.UpdateEntry(ctx, "Monday", "Monday-0", TimetableEntryRequest{Subject: "Maths", StartTime: "9:00", EndTime: "10:00"}, true)
	require.NoError(t, err)
	assert.Equal(t, 5, renamed)
	table, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, table.HasSubject("Mathematics"))

	_, renamed, err = svc.UpdateEntry(ctx, "Tuesday", "Tuesday-1", TimetableEntryRequest{Subject: "CS", StartTime: "10:00", EndTime: "11:00"}, false)
	require.NoError(t, err)
	assert.Zero(t, renamed)
	table, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, table.HasSubject("Computer Science"))

	_, _, err = svc.UpdateEntry(ctx, "Tuesday", "missing", TimetableEntryRequest{Subject: "CS", StartTime: "10:00", EndTime: "11:00"}, false)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.DeleteEntry(ctx, "Monday", entry.ID))
	assert.True(t, errors.Is(svc.DeleteEntry(ctx, "Monday", entry.ID), appErrors.ErrNotFound))

	require.NoError(t, svc.ClearDay(ctx, "Friday"))
	table, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, table["Friday"])
	assert.True(t, errors.Is(svc.ClearDay(ctx, "Sunday"), appErrors.ErrValidation))

	assert.Equal(t, 5, changes)
}

func TestTimetableTodayMarksRecordedClasses(t *testing.T) {
	svc, _, attendance := newTimetableForTest(nil)
	attendance.records = []models.AttendanceRecord{
		{ID: 1, Subject: "Mathematics", Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 1},
		{ID: 2, Subject: "Computer Science", Date: "2024-01-10", Status: models.AttendanceStatusAbsent, Multiplier: 1, IsArchived: true},
	}
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }

	today, err := svc.Today(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", today.Date)
	assert.Equal(t, "Wednesday", today.Day)
	require.Len(t, today.Entries, 2)
	assert.True(t, today.Entries[0].Marked)
	assert.Equal(t, int64(1), today.Entries[0].Record.ID)
	assert.False(t, today.Entries[1].Marked)
	assert.Nil(t, today.Holiday)
}

func TestTimetableTodaySundayShowsSaturday(t *testing.T) {
	svc, _, _ := newTimetableForTest(nil)
	today, err := svc.Today(context.Background(), "2024-01-14")
	require.NoError(t, err)
	assert.Equal(t, "Saturday", today.Day)
	assert.Len(t, today.Entries, 2)

	saturday, err := svc.Today(context.Background(), "2024-01-13")
	require.NoError(t, err)
	require.NotNil(t, saturday.Holiday)

	_, err = svc.Today(context.Background(), "13/01/2024")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTimetableStorageFailure(t *testing.T) {
	svc, repo, _ := newTimetableForTest(nil)
	repo.err = errors.New("kv down")
	_, err := svc.Get(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
