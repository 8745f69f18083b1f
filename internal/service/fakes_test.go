package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// memAttendanceRepo mirrors the relational attendance store in memory.
type memAttendanceRepo struct {
	mu      sync.Mutex
	records []models.AttendanceRecord
	nextID  int64
	err     error
}

func (r *memAttendanceRepo) active() []models.AttendanceRecord {
	var out []models.AttendanceRecord
	for _, rec := range r.records {
		if !rec.IsArchived {
			out = append(out, rec)
		}
	}
	return out
}

func (r *memAttendanceRepo) ListActive(ctx context.Context) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.active(), nil
}

func (r *memAttendanceRepo) ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range r.records {
		if rec.IsArchived && strings.Contains(strings.ToLower(rec.Subject), strings.ToLower(search)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAttendanceRepo) ListForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []models.AttendanceRecord
	for _, rec := range r.active() {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range r.records {
		if rec.IsArchived != filter.Archived {
			continue
		}
		if filter.Subject != "" && rec.Subject != filter.Subject {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, len(out), nil
}

func (r *memAttendanceRepo) FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			copied := rec
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memAttendanceRepo) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	record.ID = r.nextID
	record.Multiplier = record.Weight()
	r.records = append(r.records, *record)
	return nil
}

func (r *memAttendanceRepo) update(id int64, fn func(*models.AttendanceRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			fn(&r.records[i])
			return true
		}
	}
	return false
}

func (r *memAttendanceRepo) UpdateStatus(ctx context.Context, id int64, status models.AttendanceStatus, multiplier int) (bool, error) {
	return r.update(id, func(rec *models.AttendanceRecord) {
		rec.Status = status
		rec.Multiplier = multiplier
		rec.IsManual = true
	}), nil
}

func (r *memAttendanceRepo) Archive(ctx context.Context, id int64) (bool, error) {
	return r.update(id, func(rec *models.AttendanceRecord) { rec.IsArchived = true }), nil
}

func (r *memAttendanceRepo) Restore(ctx context.Context, id int64) (bool, error) {
	return r.update(id, func(rec *models.AttendanceRecord) { rec.IsArchived = false }), nil
}

func (r *memAttendanceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memAttendanceRepo) RenameSubject(ctx context.Context, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.records {
		if r.records[i].Subject == from {
			r.records[i].Subject = to
			n++
		}
	}
	return n, nil
}

// ListAllSubjects lets the fake double as the registry's relational subject source.
func (r *memAttendanceRepo) ListAllSubjects(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.active() {
		if rec.Subject != "" && rec.Subject != models.UnknownSubject {
			out = append(out, rec.Subject)
		}
	}
	return out, nil
}

type memAdjustmentRepo struct {
	items map[string]models.AttendanceAdjustment
}

func newMemAdjustmentRepo() *memAdjustmentRepo {
	return &memAdjustmentRepo{items: map[string]models.AttendanceAdjustment{}}
}

func (r *memAdjustmentRepo) List(ctx context.Context) ([]models.AttendanceAdjustment, error) {
	var out []models.AttendanceAdjustment
	for _, adj := range r.items {
		out = append(out, adj)
	}
	return out, nil
}

func (r *memAdjustmentRepo) Upsert(ctx context.Context, adj models.AttendanceAdjustment) error {
	r.items[adj.Subject] = adj
	return nil
}

func (r *memAdjustmentRepo) Delete(ctx context.Context, subject string) (bool, error) {
	_, ok := r.items[subject]
	delete(r.items, subject)
	return ok, nil
}

func (r *memAdjustmentRepo) RenameSubject(ctx context.Context, from, to string) error {
	if adj, ok := r.items[from]; ok {
		delete(r.items, from)
		adj.Subject = to
		r.items[to] = adj
	}
	return nil
}

type memTimetableRepo struct {
	table models.WeeklyTimetable
	saves int
	err   error
}

func (r *memTimetableRepo) Get(ctx context.Context) (models.WeeklyTimetable, bool, error) {
	if r.err != nil {
		return nil, false, r.err
	}
	if r.table == nil {
		return nil, false, nil
	}
	copied := make(models.WeeklyTimetable, len(r.table))
	for day, entries := range r.table {
		copied[day] = append([]models.TimetableEntry{}, entries...)
	}
	return copied, true, nil
}

func (r *memTimetableRepo) Save(ctx context.Context, table models.WeeklyTimetable) error {
	if r.err != nil {
		return r.err
	}
	r.saves++
	r.table = table
	return nil
}

type holidayStub struct {
	holidays map[string]models.Holiday
}

func (h holidayStub) FindByDate(ctx context.Context, date string) (*models.Holiday, error) {
	if hol, ok := h.holidays[date]; ok {
		return &hol, nil
	}
	return nil, sql.ErrNoRows
}

func strPtr(v string) *string { return &v }
