package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

const onboardingKey = "onboarding_completed"

// OnboardingRepository stores the first-run flag.
type OnboardingRepository struct {
	store kv.Store
}

func NewOnboardingRepository(store kv.Store) *OnboardingRepository {
	return &OnboardingRepository{store: store}
}

func (r *OnboardingRepository) Get(ctx context.Context) (models.OnboardingState, error) {
	var state models.OnboardingState
	if err := kv.GetJSON(ctx, r.store, onboardingKey, &state); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return models.OnboardingState{}, nil
		}
		return models.OnboardingState{}, err
	}
	return state, nil
}

func (r *OnboardingRepository) Save(ctx context.Context, state models.OnboardingState) error {
	return kv.SetJSON(ctx, r.store, onboardingKey, state, 0)
}
