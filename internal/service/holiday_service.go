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

type holidayRepository interface {
	List(ctx context.Context, from, to string) ([]models.Holiday, error)
	FindByDate(ctx context.Context, date string) (*models.Holiday, error)
	Upsert(ctx context.Context, h *models.Holiday) error
	Delete(ctx context.Context, date string) (bool, error)
}

// HolidayRequest marks a date as a holiday.
type HolidayRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description *string `json:"description"`
}

// HolidayListRequest bounds a holiday listing.
type HolidayListRequest struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// HolidayService manages the holiday calendar. Holidays are informational only.
type HolidayService struct {
	repo      holidayRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs the service.
func NewHolidayService(repo holidayRepository, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, validator: ensureValidator(validate), logger: logger}
}

// List returns holidays in the optional inclusive range.
func (s *HolidayService) List(ctx context.Context, req HolidayListRequest) ([]models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	holidays, err := s.repo.List(ctx, req.From, req.To)
	if err != nil {
		s.logger.Error("failed to list holidays", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	if holidays == nil {
		holidays = []models.Holiday{}
	}
	return holidays, nil
}

// Get returns the holiday on date.
func (s *HolidayService) Get(ctx context.Context, date string) (*models.Holiday, error) {
	h, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holiday")
	}
	return h, nil
}

// Set creates the holiday or replaces its description.
func (s *HolidayService) Set(ctx context.Context, req HolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		req.Description = &trimmed
	}
	h := &models.Holiday{Date: req.Date, Description: req.Description}
	if err := s.repo.Upsert(ctx, h); err != nil {
		s.logger.Error("failed to save holiday", zap.String("date", req.Date), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save holiday")
	}
	return h, nil
}

// Delete removes the holiday on date.
func (s *HolidayService) Delete(ctx context.Context, date string) error {
	deleted, err := s.repo.Delete(ctx, date)
	if err != nil {
		s.logger.Error("failed to delete holiday", zap.String("date", date), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
	}
	return nil
}
