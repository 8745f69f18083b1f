package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type memHolidayRepo struct {
	items map[string]models.Holiday
}

func (r *memHolidayRepo) List(ctx context.Context, from, to string) ([]models.Holiday, error) {
	var out []models.Holiday
	for date, h := range r.items {
		if (from == "" || date >= from) && (to == "" || date <= to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memHolidayRepo) FindByDate(ctx context.Context, date string) (*models.Holiday, error) {
	if h, ok := r.items[date]; ok {
		return &h, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memHolidayRepo) Upsert(ctx context.Context, h *models.Holiday) error {
	r.items[h.Date] = *h
	return nil
}

func (r *memHolidayRepo) Delete(ctx context.Context, date string) (bool, error) {
	_, ok := r.items[date]
	delete(r.items, date)
	return ok, nil
}

func TestHolidayServiceLifecycle(t *testing.T) {
	repo := &memHolidayRepo{items: map[string]models.Holiday{}}
	svc := NewHolidayService(repo, nil, nil)
	ctx := context.Background()

	empty, err := svc.List(ctx, HolidayListRequest{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	h, err := svc.Set(ctx, HolidayRequest{Date: "2024-03-11", Description: strPtr("  Spring break ")})
	require.NoError(t, err)
	assert.Equal(t, "Spring break", *h.Description)

	_, err = svc.Set(ctx, HolidayRequest{Date: "2024-03-11", Description: strPtr("Exam leave")})
	require.NoError(t, err)
	_, err = svc.Set(ctx, HolidayRequest{Date: "2024-05-01"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "2024-03-11")
	require.NoError(t, err)
	assert.Equal(t, "Exam leave", *got.Description)

	march, err := svc.List(ctx, HolidayListRequest{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, march, 1)

	require.NoError(t, svc.Delete(ctx, "2024-03-11"))
	assert.True(t, errors.Is(svc.Delete(ctx, "2024-03-11"), appErrors.ErrNotFound))
	_, err = svc.Get(ctx, "2024-03-11")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestHolidayServiceValidation(t *testing.T) {
	svc := NewHolidayService(&memHolidayRepo{items: map[string]models.Holiday{}}, nil, nil)
	_, err := svc.Set(context.Background(), HolidayRequest{Date: "11/03/2024"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.List(context.Background(), HolidayListRequest{From: "march"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
