package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type timetableRepository interface {
	Get(ctx context.Context) (models.WeeklyTimetable, bool, error)
	Save(ctx context.Context, table models.WeeklyTimetable) error
}

type dayAttendanceReader interface {
	ListForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
}

type holidayFinder interface {
	FindByDate(ctx context.Context, date string) (*models.Holiday, error)
}

// DefaultWeeklyTimetable is served until a timetable has been saved.
func DefaultWeeklyTimetable() models.WeeklyTimetable {
	subjects := []string{"Mathematics", "Computer Science"}
	table := make(models.WeeklyTimetable, len(models.Weekdays))
	for _, day := range models.Weekdays {
		entries := make([]models.TimetableEntry, 0, len(subjects))
		for i, subject := range subjects {
			entries = append(entries, models.TimetableEntry{
				ID:        fmt.Sprintf("%s-%d", day, i),
				Subject:   subject,
				StartTime: fmt.Sprintf("%d:00", 9+i),
				EndTime:   fmt.Sprintf("%d:00", 10+i),
			})
		}
		table[day] = entries
	}
	return table
}

// TimetableEntryRequest is the payload for creating or editing one slot.
type TimetableEntryRequest struct {
	Subject   string `json:"subject" validate:"required"`
	StartTime string `json:"start_time" validate:"required,clock_time"`
	EndTime   string `json:"end_time" validate:"required,clock_time"`
}

// TimetableService manages the weekly timetable document.
type TimetableService struct {
	repo       timetableRepository
	attendance dayAttendanceReader
	holidays   holidayFinder
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	listeners []func(ctx context.Context)
}

// NewTimetableService constructs the service.
func NewTimetableService(repo timetableRepository, attendance dayAttendanceReader, holidays holidayFinder, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:       repo,
		attendance: attendance,
		holidays:   holidays,
		validator:  ensureValidator(validate),
		logger:     logger,
		now:        time.Now,
	}
}

// OnChange registers fn to run after every saved timetable change.
func (s *TimetableService) OnChange(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the stored timetable or the default one.
func (s *TimetableService) Get(ctx context.Context) (models.WeeklyTimetable, error) {
	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *TimetableService) load(ctx context.Context) (models.WeeklyTimetable, error) {
	table, found, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.Error("failed to load timetable", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if !found {
		table = DefaultWeeklyTimetable()
	}
	for _, day := range models.Weekdays {
		if table[day] == nil {
			table[day] = []models.TimetableEntry{}
		}
	}
	return table, nil
}

// Save validates and replaces the whole timetable.
func (s *TimetableService) Save(ctx context.Context, table models.WeeklyTimetable) (models.WeeklyTimetable, error) {
	normalized := make(models.WeeklyTimetable, len(models.Weekdays))
	for day, entries := range table {
		if !models.IsWeekday(day) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q, expected Monday to Saturday", day))
		}
		out := make([]models.TimetableEntry, 0, len(entries))
		for _, e := range entries {
			entry, err := s.buildEntry(e.ID, TimetableEntryRequest{Subject: e.Subject, StartTime: e.StartTime, EndTime: e.EndTime})
			if err != nil {
				return nil, err
			}
			out = append(out, entry)
		}
		normalized[day] = out
	}
	err := s.Mutate(ctx, func(current models.WeeklyTimetable) (bool, error) {
		for k := range current {
			delete(current, k)
		}
		for day, entries := range normalized {
			current[day] = entries
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// AddEntry appends a slot to day.
func (s *TimetableService) AddEntry(ctx context.Context, day string, req TimetableEntryRequest) (*models.TimetableEntry, error) {
	if !models.IsWeekday(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day")
	}
	entry, err := s.buildEntry("", req)
	if err != nil {
		return nil, err
	}
	err = s.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		table[day] = append(table[day], entry)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry edits one slot. When cascadeRename is set and the subject changed, every other
// slot carrying the old subject is renamed too; the count of renamed slots is returned.
func (s *TimetableService) UpdateEntry(ctx context.Context, day, id string, req TimetableEntryRequest, cascadeRename bool) (*models.TimetableEntry, int, error) {
	if !models.IsWeekday(day) {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "invalid day")
	}
	entry, err := s.buildEntry(id, req)
	if err != nil {
		return nil, 0, err
	}
	renamed := 0
	err = s.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		idx := indexOfEntry(table[day], id)
		if idx < 0 {
			return false, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		oldSubject := table[day][idx].Subject
		table[day][idx] = entry
		if cascadeRename && oldSubject != entry.Subject {
			renamed = renameInTimetable(table, oldSubject, entry.Subject)
		}
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &entry, renamed, nil
}

// DeleteEntry removes one slot.
func (s *TimetableService) DeleteEntry(ctx context.Context, day, id string) error {
	return s.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		idx := indexOfEntry(table[day], id)
		if idx < 0 {
			return false, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		table[day] = append(table[day][:idx], table[day][idx+1:]...)
		return true, nil
	})
}

// ClearDay removes every slot of day.
func (s *TimetableService) ClearDay(ctx context.Context, day string) error {
	if !models.IsWeekday(day) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid day")
	}
	return s.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		if len(table[day]) == 0 {
			return false, nil
		}
		table[day] = []models.TimetableEntry{}
		return true, nil
	})
}

// Today returns the slots for date (today when empty) together with which of them already
// have an active attendance record. Sunday shows Saturday's slots.
func (s *TimetableService) Today(ctx context.Context, date string) (*models.TodayTimetable, error) {
	day := s.now()
	if date != "" {
		parsed, err := time.Parse(models.DateLayout, date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
		}
		day = parsed
	}
	date = day.Format(models.DateLayout)

	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	weekday := models.TimetableDay(day)
	result := &models.TodayTimetable{Date: date, Day: weekday, Entries: []models.TodayClassEntry{}}

	var records []models.AttendanceRecord
	if s.attendance != nil {
		records, err = s.attendance.ListForDate(ctx, date)
		if err != nil {
			s.logger.Error("failed to load attendance for day", zap.String("date", date), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
	}
	if s.holidays != nil {
		holiday, err := s.holidays.FindByDate(ctx, date)
		switch {
		case err == nil:
			result.Holiday = holiday
		case errors.Is(err, sql.ErrNoRows):
		default:
			s.logger.Warn("failed to load holiday", zap.String("date", date), zap.Error(err))
		}
	}

	for _, entry := range table[weekday] {
		item := models.TodayClassEntry{TimetableEntry: entry}
		for i := range records {
			if subject, ok := records[i].ResolveSubject(); ok && subject == entry.Subject {
				rec := records[i]
				item.Marked = true
				item.Record = &rec
				break
			}
		}
		result.Entries = append(result.Entries, item)
	}
	return result, nil
}

// Mutate loads the timetable, applies fn and saves the result when fn reports a change.
// Mutations are serialised so concurrent edits are not lost.
func (s *TimetableService) Mutate(ctx context.Context, fn func(models.WeeklyTimetable) (bool, error)) error {
	s.mu.Lock()
	table, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changed, err := fn(table)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	for day := range table {
		sortEntries(table[day])
	}
	if err := s.repo.Save(ctx, table); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to save timetable", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	listeners := append([]func(ctx context.Context){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx)
	}
	return nil
}

func (s *TimetableService) buildEntry(id string, req TimetableEntryRequest) (models.TimetableEntry, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return models.TimetableEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable entry")
	}
	start, _ := models.ClockMinutes(req.StartTime)
	end, _ := models.ClockMinutes(req.EndTime)
	if end <= start {
		return models.TimetableEntry{}, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if id == "" {
		id = newEntryID()
	}
	return models.TimetableEntry{ID: id, Subject: req.Subject, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

func newEntryID() string {
	return uuid.NewString()
}

func indexOfEntry(entries []models.TimetableEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func renameInTimetable(table models.WeeklyTimetable, from, to string) int {
	count := 0
	for day, entries := range table {
		for i := range entries {
			if entries[i].Subject == from {
				table[day][i].Subject = to
				count++
			}
		}
	}
	return count
}

func sortEntries(entries []models.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, errA := models.ClockMinutes(entries[i].StartTime)
		b, errB := models.ClockMinutes(entries[j].StartTime)
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		return a < b
	})
}
