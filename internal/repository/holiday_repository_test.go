package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
)

func TestHolidayRepositoryUpsertByDate(t *testing.T) {
	ctx := context.Background()
	repo := NewHolidayRepository(newSQLiteDB(t))

	first := "Founders day"
	h := &models.Holiday{Date: "2024-03-08", Description: &first}
	require.NoError(t, repo.Upsert(ctx, h))
	id := h.ID

	second := "Founders day (observed)"
	h2 := &models.Holiday{Date: "2024-03-08", Description: &second}
	require.NoError(t, repo.Upsert(ctx, h2))
	assert.Equal(t, id, h2.ID)

	got, err := repo.FindByDate(ctx, "2024-03-08")
	require.NoError(t, err)
	assert.Equal(t, second, *got.Description)

	require.NoError(t, repo.Upsert(ctx, &models.Holiday{Date: "2024-05-01"}))
	list, err := repo.List(ctx, "2024-04-01", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-05-01", list[0].Date)

	found, err := repo.Delete(ctx, "2024-03-08")
	require.NoError(t, err)
	assert.True(t, found)
	_, err = repo.FindByDate(ctx, "2024-03-08")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAdjustmentRepositoryOnSQLite(t *testing.T) {
	ctx := context.Background()
	repo := NewAdjustmentRepository(newSQLiteDB(t))

	require.NoError(t, repo.Upsert(ctx, models.AttendanceAdjustment{Subject: "Physics", PresentDelta: 1, TotalDelta: 2, UpdatedAt: "2024-01-01T00:00:00Z"}))
	require.NoError(t, repo.Upsert(ctx, models.AttendanceAdjustment{Subject: "Physics", PresentDelta: -1, TotalDelta: 0, UpdatedAt: "2024-01-02T00:00:00Z"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, -1, list[0].PresentDelta)

	require.NoError(t, repo.RenameSubject(ctx, "Physics", "Applied Physics"))
	found, err := repo.Delete(ctx, "Applied Physics")
	require.NoError(t, err)
	assert.True(t, found)
}
