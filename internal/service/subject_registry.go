package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type subjectSource interface {
	ListAllSubjects(ctx context.Context) ([]string, error)
}

type timetableEditor interface {
	Get(ctx context.Context) (models.WeeklyTimetable, error)
	Mutate(ctx context.Context, fn func(models.WeeklyTimetable) (bool, error)) error
}

type subjectRowRenamer interface {
	RenameSubject(ctx context.Context, from, to string) (int64, error)
}

type adjustmentRenamer interface {
	RenameSubject(ctx context.Context, from, to string) error
}

// SubjectHistory groups the stores rewritten when a rename asks for history to follow.
type SubjectHistory struct {
	Attendance  subjectRowRenamer
	ExamMarks   subjectRowRenamer
	Adjustments adjustmentRenamer
}

// RenameSubjectRequest renames a subject across the timetable and optionally its history.
type RenameSubjectRequest struct {
	From           string `json:"from" validate:"required"`
	To             string `json:"to" validate:"required"`
	Cascade        *bool  `json:"cascade"`
	RewriteHistory bool   `json:"rewrite_history"`
}

// RenameSubjectResult counts what a rename touched.
type RenameSubjectResult struct {
	From              string `json:"from"`
	To                string `json:"to"`
	TimetableEntries  int    `json:"timetable_entries"`
	AttendanceRecords int64  `json:"attendance_records"`
	ExamMarks         int64  `json:"exam_marks"`
}

// SubjectRegistry is the process-wide list of known subjects: the sorted union of subjects on
// attendance, exam marks and the timetable. The list is cached until Invalidate is called.
type SubjectRegistry struct {
	source    subjectSource
	timetable timetableEditor
	history   SubjectHistory
	logger    *zap.Logger

	mu       sync.RWMutex
	subjects []string
	loaded   bool

	subsMu      sync.Mutex
	subscribers []func(ctx context.Context)
}

// NewSubjectRegistry constructs the registry.
func NewSubjectRegistry(source subjectSource, timetable timetableEditor, history SubjectHistory, logger *zap.Logger) *SubjectRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectRegistry{source: source, timetable: timetable, history: history, logger: logger}
}

// Subscribe registers fn to run whenever the registry is invalidated.
func (r *SubjectRegistry) Subscribe(fn func(ctx context.Context)) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Invalidate drops the cached subject list and notifies subscribers.
func (r *SubjectRegistry) Invalidate(ctx context.Context) {
	r.mu.Lock()
	r.subjects = nil
	r.loaded = false
	r.mu.Unlock()

	r.subsMu.Lock()
	subscribers := append([]func(ctx context.Context){}, r.subscribers...)
	r.subsMu.Unlock()
	for _, fn := range subscribers {
		fn(ctx)
	}
}

// List returns the known subjects sorted case-sensitively.
func (r *SubjectRegistry) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	if r.loaded {
		out := append([]string{}, r.subjects...)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	stored, err := r.source.ListAllSubjects(ctx)
	if err != nil {
		r.logger.Error("failed to list subjects", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	table, err := r.timetable.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects := mergeSubjects(stored, table.Subjects())

	r.mu.Lock()
	r.subjects = subjects
	r.loaded = true
	r.mu.Unlock()
	return append([]string{}, subjects...), nil
}

// Add registers a new subject. It gets a Monday 9:00-10:00 slot unless the timetable already
// lists it; no attendance is written.
func (r *SubjectRegistry) Add(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == models.UnknownSubject {
		return "", appErrors.Clone(appErrors.ErrValidation, "subject name is required")
	}
	subjects, err := r.List(ctx)
	if err != nil {
		return "", err
	}
	if containsString(subjects, name) {
		return "", appErrors.Clone(appErrors.ErrConflict, "subject already exists")
	}
	entry := models.TimetableEntry{ID: newEntryID(), Subject: name, StartTime: "9:00", EndTime: "10:00"}
	err = r.timetable.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		if table.HasSubject(name) {
			return false, nil
		}
		table["Monday"] = append(table["Monday"], entry)
		return true, nil
	})
	if err != nil {
		return "", err
	}
	r.logger.Info("subject added", zap.String("subject", name))
	r.Invalidate(ctx)
	return name, nil
}

// Rename moves a subject to a new name. Timetable entries follow unless Cascade is false.
// Attendance, exam marks and adjustments keep the old name unless RewriteHistory is set, so
// without it the old name stays listed for as long as history carries it.
func (r *SubjectRegistry) Rename(ctx context.Context, req RenameSubjectRequest) (*RenameSubjectResult, error) {
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	if req.From == "" || req.To == "" || req.To == models.UnknownSubject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from and to are required")
	}
	if req.From == req.To {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new name must differ from the current one")
	}
	cascade := req.Cascade == nil || *req.Cascade
	if !cascade && !req.RewriteHistory {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rename must cascade to the timetable or rewrite history")
	}
	subjects, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if !containsString(subjects, req.From) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}

	result := &RenameSubjectResult{From: req.From, To: req.To}
	defer r.Invalidate(ctx)

	if cascade {
		err = r.timetable.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
			result.TimetableEntries = renameInTimetable(table, req.From, req.To)
			return result.TimetableEntries > 0, nil
		})
		if err != nil {
			return nil, err
		}
	}
	if req.RewriteHistory {
		if err := r.rewriteHistory(ctx, result); err != nil {
			return nil, err
		}
	}
	r.logger.Info("subject renamed",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int("timetable_entries", result.TimetableEntries),
		zap.Int64("attendance_records", result.AttendanceRecords),
		zap.Int64("exam_marks", result.ExamMarks),
	)
	return result, nil
}

func (r *SubjectRegistry) rewriteHistory(ctx context.Context, result *RenameSubjectResult) error {
	var err error
	if r.history.Attendance != nil {
		if result.AttendanceRecords, err = r.history.Attendance.RenameSubject(ctx, result.From, result.To); err != nil {
			r.logger.Error("failed to rename attendance subject", zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename attendance history")
		}
	}
	if r.history.ExamMarks != nil {
		if result.ExamMarks, err = r.history.ExamMarks.RenameSubject(ctx, result.From, result.To); err != nil {
			r.logger.Error("failed to rename exam mark subject", zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename exam mark history")
		}
	}
	if r.history.Adjustments != nil {
		if err := r.history.Adjustments.RenameSubject(ctx, result.From, result.To); err != nil {
			r.logger.Error("failed to rename attendance adjustment", zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename attendance adjustment")
		}
	}
	return nil
}

// Remove deletes every timetable slot of the subject. History is untouched, so a subject with
// attendance or exam marks stays listed. It returns the number of removed slots.
func (r *SubjectRegistry) Remove(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	subjects, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	if !containsString(subjects, name) {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	removed := 0
	err = r.timetable.Mutate(ctx, func(table models.WeeklyTimetable) (bool, error) {
		for day, entries := range table {
			kept := entries[:0]
			for _, e := range entries {
				if e.Subject == name {
					removed++
					continue
				}
				kept = append(kept, e)
			}
			table[day] = kept
		}
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("subject removed from timetable", zap.String("subject", name), zap.Int("entries", removed))
	r.Invalidate(ctx)
	return removed, nil
}

func mergeSubjects(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, group := range groups {
		for _, s := range group {
			if s == "" || s == models.UnknownSubject {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(values []string, v string) bool {
	i := sort.SearchStrings(values, v)
	return i < len(values) && values[i] == v
}
