package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type onboardingRepository interface {
	Get(ctx context.Context) (models.OnboardingState, error)
	Save(ctx context.Context, state models.OnboardingState) error
}

// OnboardingService tracks the first-run flow.
type OnboardingService struct {
	repo   onboardingRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewOnboardingService constructs the service.
func NewOnboardingService(repo onboardingRepository, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{repo: repo, logger: logger, now: time.Now}
}

// State returns whether onboarding finished.
func (s *OnboardingService) State(ctx context.Context) (*models.OnboardingState, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.Error("failed to load onboarding state", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load onboarding state")
	}
	return &state, nil
}

// Complete marks onboarding as finished. Completing twice keeps the first timestamp.
func (s *OnboardingService) Complete(ctx context.Context) (*models.OnboardingState, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.Completed {
		return state, nil
	}
	now := s.now().UTC()
	next := models.OnboardingState{Completed: true, CompletedAt: &now}
	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("failed to save onboarding state", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save onboarding state")
	}
	return &next, nil
}
