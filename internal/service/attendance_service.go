package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type attendanceRepository interface {
	ListActive(ctx context.Context) ([]models.AttendanceRecord, error)
	ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error)
	ListForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	FindByID(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	UpdateStatus(ctx context.Context, id int64, status models.AttendanceStatus, multiplier int) (bool, error)
	Archive(ctx context.Context, id int64) (bool, error)
	Restore(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type adjustmentRepository interface {
	List(ctx context.Context) ([]models.AttendanceAdjustment, error)
	Upsert(ctx context.Context, adj models.AttendanceAdjustment) error
	Delete(ctx context.Context, subject string) (bool, error)
}

type subjectRegistry interface {
	List(ctx context.Context) ([]string, error)
	Invalidate(ctx context.Context)
	Subscribe(fn func(ctx context.Context))
}

// AttendanceOptions tunes aggregation and caching.
type AttendanceOptions struct {
	Aggregation AggregationOptions
	CacheTTL    time.Duration
}

// AttendanceService coordinates attendance workflows and aggregate computation.
type AttendanceService struct {
	repo        attendanceRepository
	adjustments adjustmentRepository
	holidays    holidayFinder
	registry    subjectRegistry
	cache       *CacheService
	metrics     *MetricsService
	opts        AttendanceOptions
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service. The aggregate cache is dropped
// whenever the registry is invalidated.
func NewAttendanceService(
	repo attendanceRepository,
	adjustments adjustmentRepository,
	holidays holidayFinder,
	registry subjectRegistry,
	cache *CacheService,
	metrics *MetricsService,
	opts AttendanceOptions,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		repo:        repo,
		adjustments: adjustments,
		holidays:    holidays,
		registry:    registry,
		cache:       cache,
		metrics:     metrics,
		opts:        opts,
		validator:   ensureValidator(validate),
		logger:      logger,
		now:         time.Now,
	}
	svc.opts.Aggregation = opts.Aggregation.withDefaults()
	if registry != nil {
		registry.Subscribe(svc.invalidateAggregates)
	}
	return svc
}

// MarkAttendanceRequest is the quick-add / manual add payload. Subject falls back to the
// subject segment of notes ("Extra Class: Physics") and date defaults to today.
type MarkAttendanceRequest struct {
	Subject    string  `json:"subject"`
	Date       string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status     string  `json:"status" validate:"required,attendance_status"`
	Multiplier int     `json:"multiplier" validate:"omitempty,min=1"`
	Notes      *string `json:"notes"`
	Scheduled  bool    `json:"scheduled"`
	OnConflict string  `json:"on_conflict" validate:"omitempty,conflict_policy"`
}

// Mark outcomes.
const (
	MarkOutcomeCreated   = "created"
	MarkOutcomeUpdated   = "updated"
	MarkOutcomeUnchanged = "unchanged"
)

// MarkResult reports what Mark did. Conflict is set whenever an active record for the same
// subject and date already existed.
type MarkResult struct {
	Record   *models.AttendanceRecord `json:"record,omitempty"`
	Outcome  string                   `json:"outcome"`
	Conflict *models.AttendanceRecord `json:"conflict,omitempty"`
}

// UpdateAttendanceRequest edits the status and multiplier of a record.
type UpdateAttendanceRequest struct {
	Status     string `json:"status" validate:"required,attendance_status"`
	Multiplier int    `json:"multiplier" validate:"omitempty,min=1"`
}

// AttendanceListRequest describes list filters.
type AttendanceListRequest struct {
	Subject   string  `form:"subject"`
	Status    *string `form:"status" validate:"omitempty,attendance_status"`
	DateFrom  string  `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string  `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Archived  bool    `form:"archived"`
	Search    string  `form:"search"`
	Page      int     `form:"page"`
	PageSize  int     `form:"page_size"`
	SortOrder string  `form:"sort_order"`
}

// SetAdjustmentRequest overrides the displayed counts of a subject.
type SetAdjustmentRequest struct {
	Present int `json:"present" validate:"min=0,ltefield=Total"`
	Total   int `json:"total" validate:"min=0"`
}

// DayAttendance is the calendar view of a single date.
type DayAttendance struct {
	Date    string                    `json:"date"`
	Holiday *models.Holiday           `json:"holiday,omitempty"`
	Records []models.AttendanceRecord `json:"records"`
}

// Mark records a class. When an active record for the same subject and date exists the
// conflict policy decides: ask answers 409, update rewrites it, abort leaves it and append
// inserts a second record, as for an extra class on the same day.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*MarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" && req.Notes != nil {
		subject, _ = models.SubjectFromNotes(*req.Notes)
	}
	if subject == "" || subject == models.UnknownSubject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	date := req.Date
	if date == "" {
		date = s.now().Format(models.DateLayout)
	}
	multiplier := req.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	status := models.AttendanceStatus(req.Status)
	policy := req.OnConflict
	if policy == "" {
		policy = ConflictPolicyAsk
	}

	sameDay, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		s.logger.Error("failed to check attendance conflict", zap.String("date", date), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	existing := findBySubject(sameDay, subject)
	if existing != nil && policy != ConflictPolicyAppend {
		result := &MarkResult{Conflict: existing}
		switch policy {
		case ConflictPolicyAbort:
			result.Record = existing
			result.Outcome = MarkOutcomeUnchanged
			return result, nil
		case ConflictPolicyUpdate:
			updated, err := s.updateStatus(ctx, existing.ID, status, multiplier)
			if err != nil {
				return nil, err
			}
			result.Record = updated
			result.Outcome = MarkOutcomeUpdated
			return result, nil
		default:
			return result, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this subject and date")
		}
	}

	record := &models.AttendanceRecord{
		Subject:    subject,
		Date:       date,
		Status:     status,
		Multiplier: multiplier,
		IsManual:   !req.Scheduled,
		Notes:      req.Notes,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		s.logger.Error("failed to insert attendance", zap.String("subject", subject), zap.String("date", date), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.mutated(ctx)
	return &MarkResult{Record: record, Outcome: MarkOutcomeCreated, Conflict: existing}, nil
}

// Update edits status and multiplier. A zero multiplier keeps the current one.
func (s *AttendanceService) Update(ctx context.Context, id int64, req UpdateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	multiplier := req.Multiplier
	if multiplier <= 0 {
		multiplier = current.Weight()
	}
	return s.updateStatus(ctx, id, models.AttendanceStatus(req.Status), multiplier)
}

func (s *AttendanceService) updateStatus(ctx context.Context, id int64, status models.AttendanceStatus, multiplier int) (*models.AttendanceRecord, error) {
	changed, err := s.repo.UpdateStatus(ctx, id, status, multiplier)
	if err != nil {
		s.logger.Error("failed to update attendance", zap.Int64("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	s.mutated(ctx)
	return s.Get(ctx, id)
}

// Archive soft-deletes a record so it stops counting towards aggregates.
func (s *AttendanceService) Archive(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	return s.setArchived(ctx, id, true)
}

// Restore brings an archived record back into the aggregates.
func (s *AttendanceService) Restore(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	return s.setArchived(ctx, id, false)
}

func (s *AttendanceService) setArchived(ctx context.Context, id int64, archived bool) (*models.AttendanceRecord, error) {
	op := s.repo.Restore
	if archived {
		op = s.repo.Archive
	}
	found, err := op(ctx, id)
	if err != nil {
		s.logger.Error("failed to change archive state", zap.Int64("id", id), zap.Bool("archived", archived), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	s.mutated(ctx)
	return s.Get(ctx, id)
}

// Delete removes a record permanently. Deleting a missing record succeeds.
func (s *AttendanceService) Delete(ctx context.Context, id int64) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete attendance", zap.Int64("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	if found {
		s.mutated(ctx)
	}
	return nil
}

// Get returns one record regardless of archive state.
func (s *AttendanceService) Get(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// List returns a page of records.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	var status *models.AttendanceStatus
	if req.Status != nil {
		st := models.AttendanceStatus(*req.Status)
		status = &st
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 20
	}
	filter := models.AttendanceFilter{
		Subject:   strings.TrimSpace(req.Subject),
		Status:    status,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Archived:  req.Archived,
		Search:    req.Search,
		Page:      page,
		PageSize:  size,
		SortOrder: req.SortOrder,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListArchived returns archived records matching search.
func (s *AttendanceService) ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error) {
	rows, err := s.repo.ListArchived(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list archived attendance")
	}
	if rows == nil {
		rows = []models.AttendanceRecord{}
	}
	return rows, nil
}

// ListForDate returns the active records of date and its holiday marker, if any.
func (s *AttendanceService) ListForDate(ctx context.Context, date string) (*DayAttendance, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	rows, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if rows == nil {
		rows = []models.AttendanceRecord{}
	}
	day := &DayAttendance{Date: date, Records: rows}
	if s.holidays != nil {
		holiday, err := s.holidays.FindByDate(ctx, date)
		switch {
		case err == nil:
			day.Holiday = holiday
		case errors.Is(err, sql.ErrNoRows):
		default:
			s.logger.Warn("failed to load holiday", zap.String("date", date), zap.Error(err))
		}
	}
	return day, nil
}

// Summary returns the per-subject and overall aggregate, served from cache when possible.
func (s *AttendanceService) Summary(ctx context.Context) (*models.AttendanceSummary, error) {
	var cached models.AttendanceSummary
	if hit, err := s.cache.LoadSummary(ctx, &cached); err == nil && hit {
		return &cached, nil
	}
	generation := s.cache.Generation()
	summary, err := s.computeSummary(ctx, true)
	if err != nil {
		return nil, err
	}
	_, _ = s.cache.StoreSummary(ctx, summary, s.opts.CacheTTL, generation)
	return summary, nil
}

// SubjectSummary returns the aggregate of one subject.
func (s *AttendanceService) SubjectSummary(ctx context.Context, subject string) (*models.SubjectAggregate, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	agg, ok := summary.Subject(subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return &agg, nil
}

// SetAdjustment makes the subject display present/total by persisting the difference to the
// counts computed from records. Later records keep adding on top of it.
func (s *AttendanceService) SetAdjustment(ctx context.Context, subject string, req SetAdjustmentRequest) (*models.SubjectAggregate, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment")
	}
	computed, err := s.computeSummary(ctx, false)
	if err != nil {
		return nil, err
	}
	agg, ok := computed.Subject(subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	presentDelta, totalDelta := adjustmentFor(agg.Present, agg.Total, req.Present, req.Total)
	adj := models.AttendanceAdjustment{
		Subject:      subject,
		PresentDelta: presentDelta,
		TotalDelta:   totalDelta,
		UpdatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.adjustments.Upsert(ctx, adj); err != nil {
		s.logger.Error("failed to save adjustment", zap.String("subject", subject), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save adjustment")
	}
	s.mutated(ctx)
	return s.SubjectSummary(ctx, subject)
}

// ClearAdjustment drops the override of subject.
func (s *AttendanceService) ClearAdjustment(ctx context.Context, subject string) error {
	found, err := s.adjustments.Delete(ctx, subject)
	if err != nil {
		s.logger.Error("failed to delete adjustment", zap.String("subject", subject), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete adjustment")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "no adjustment for subject")
	}
	s.mutated(ctx)
	return nil
}

// ActiveRecords returns every active record, for exports.
func (s *AttendanceService) ActiveRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return rows, nil
}

func (s *AttendanceService) computeSummary(ctx context.Context, withAdjustments bool) (*models.AttendanceSummary, error) {
	var subjects []string
	if s.registry != nil {
		var err error
		if subjects, err = s.registry.List(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	records, err := s.repo.ListActive(ctx)
	s.metrics.ObserveDBQuery("attendance_list_active", time.Since(start))
	if err != nil {
		s.logger.Error("failed to load attendance for aggregation", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	var adjustments []models.AttendanceAdjustment
	if withAdjustments && s.adjustments != nil {
		if adjustments, err = s.adjustments.List(ctx); err != nil {
			s.logger.Error("failed to load adjustments", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adjustments")
		}
	}

	start = time.Now()
	summary := Aggregate(subjects, records, adjustments, s.opts.Aggregation, s.logger)
	s.metrics.ObserveAggregation(time.Since(start), len(summary.Excluded))
	return &summary, nil
}

// mutated rebuilds derived state from scratch on the next read.
func (s *AttendanceService) mutated(ctx context.Context) {
	if s.registry != nil {
		s.registry.Invalidate(ctx)
		return
	}
	s.invalidateAggregates(ctx)
}

func (s *AttendanceService) invalidateAggregates(ctx context.Context) {
	if err := s.cache.InvalidateAggregates(ctx); err != nil {
		s.logger.Warn("failed to invalidate aggregate cache", zap.Error(err))
	}
}

func findBySubject(records []models.AttendanceRecord, subject string) *models.AttendanceRecord {
	for i := range records {
		if name, ok := records[i].ResolveSubject(); ok && name == subject {
			rec := records[i]
			return &rec
		}
	}
	return nil
}
