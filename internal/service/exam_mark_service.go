package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type examMarkRepository interface {
	List(ctx context.Context, subject string) ([]models.ExamMark, error)
	FindByID(ctx context.Context, id int64) (*models.ExamMark, error)
	Insert(ctx context.Context, mark *models.ExamMark) error
	Update(ctx context.Context, mark *models.ExamMark) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type registryInvalidator interface {
	Invalidate(ctx context.Context)
}

// CreateExamMarkRequest is the payload for recording an exam result.
type CreateExamMarkRequest struct {
	Subject    string   `json:"subject" validate:"required"`
	Marks      float64  `json:"marks" validate:"min=0,ltefield=TotalMarks"`
	TotalMarks float64  `json:"total_marks" validate:"gt=0"`
	Weightage  *float64 `json:"weightage" validate:"omitempty,min=0,max=100"`
	ExamDate   string   `json:"exam_date" validate:"required,datetime=2006-01-02"`
	Notes      *string  `json:"notes"`
}

// UpdateExamMarkRequest edits the scores of a result. Subject and date are fixed once recorded.
type UpdateExamMarkRequest struct {
	Marks      float64  `json:"marks" validate:"min=0,ltefield=TotalMarks"`
	TotalMarks float64  `json:"total_marks" validate:"gt=0"`
	Weightage  *float64 `json:"weightage" validate:"omitempty,min=0,max=100"`
	Notes      *string  `json:"notes"`
}

// ExamMarkView adds the derived scores to a stored mark.
type ExamMarkView struct {
	models.ExamMark
	Percentage    float64 `json:"percentage"`
	WeightedScore float64 `json:"weighted_score"`
	Grade         string  `json:"grade"`
}

func newExamMarkView(m models.ExamMark) ExamMarkView {
	return ExamMarkView{ExamMark: m, Percentage: m.Percentage(), WeightedScore: m.WeightedScore(), Grade: m.Grade()}
}

// ExamMarkService manages exam results.
type ExamMarkService struct {
	repo      examMarkRepository
	registry  registryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamMarkService constructs the service.
func NewExamMarkService(repo examMarkRepository, registry registryInvalidator, validate *validator.Validate, logger *zap.Logger) *ExamMarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamMarkService{repo: repo, registry: registry, validator: ensureValidator(validate), logger: logger}
}

// List returns marks, newest exam first, optionally for a single subject.
func (s *ExamMarkService) List(ctx context.Context, subject string) ([]ExamMarkView, error) {
	marks, err := s.repo.List(ctx, strings.TrimSpace(subject))
	if err != nil {
		s.logger.Error("failed to list exam marks", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam marks")
	}
	views := make([]ExamMarkView, 0, len(marks))
	for _, m := range marks {
		views = append(views, newExamMarkView(m))
	}
	return views, nil
}

// Get returns one mark.
func (s *ExamMarkService) Get(ctx context.Context, id int64) (*ExamMarkView, error) {
	mark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam mark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam mark")
	}
	view := newExamMarkView(*mark)
	return &view, nil
}

// Create records a result. Weightage defaults to 1.
func (s *ExamMarkService) Create(ctx context.Context, req CreateExamMarkRequest) (*ExamMarkView, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	mark := &models.ExamMark{
		Subject:    req.Subject,
		Marks:      req.Marks,
		TotalMarks: req.TotalMarks,
		Weightage:  weightageOrDefault(req.Weightage),
		ExamDate:   req.ExamDate,
		Notes:      req.Notes,
	}
	if err := s.repo.Insert(ctx, mark); err != nil {
		s.logger.Error("failed to insert exam mark", zap.String("subject", mark.Subject), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam mark")
	}
	s.invalidate(ctx)
	view := newExamMarkView(*mark)
	return &view, nil
}

// Update rewrites the scores and notes of a mark.
func (s *ExamMarkService) Update(ctx context.Context, id int64, req UpdateExamMarkRequest) (*ExamMarkView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mark := current.ExamMark
	mark.Marks = req.Marks
	mark.TotalMarks = req.TotalMarks
	if req.Weightage != nil {
		mark.Weightage = *req.Weightage
	}
	mark.Notes = req.Notes

	updated, err := s.repo.Update(ctx, &mark)
	if err != nil {
		s.logger.Error("failed to update exam mark", zap.Int64("id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam mark")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam mark not found")
	}
	view := newExamMarkView(mark)
	return &view, nil
}

// Delete removes a mark.
func (s *ExamMarkService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete exam mark", zap.Int64("id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam mark")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "exam mark not found")
	}
	s.invalidate(ctx)
	return nil
}

func (s *ExamMarkService) invalidate(ctx context.Context) {
	if s.registry != nil {
		s.registry.Invalidate(ctx)
	}
}

func weightageOrDefault(w *float64) float64 {
	if w == nil {
		return 1
	}
	return *w
}
