package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

func TestTimetableRepositoryDistinguishesMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewTimetableRepository(kv.NewMemory())

	table, found, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, table)

	require.NoError(t, repo.Save(ctx, models.WeeklyTimetable{"Monday": {{ID: "1", Subject: "Art", StartTime: "9:00", EndTime: "10:00"}}}))
	table, found, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Art", table["Monday"][0].Subject)
}

func TestNoteAndTodoRepositoriesStartEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	notes, err := NewNoteRepository(store).List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	todos := NewTodoRepository(store)
	require.NoError(t, todos.Save(ctx, []models.Todo{{ID: "a", Text: "revise", Completed: true}}))
	list, err := todos.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Todo{{ID: "a", Text: "revise", Completed: true}}, list)
}

func TestReportRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(kv.NewMemory())

	queued := &models.ReportJob{Type: models.ReportTypeSummary, CreatedAt: time.Now().Add(-time.Minute)}
	done := &models.ReportJob{Type: models.ReportTypeAttendance}
	require.NoError(t, repo.Create(ctx, queued))
	require.NoError(t, repo.Create(ctx, done))

	finished := models.ReportStatusFinished
	at := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.Update(ctx, done.ID, UpdateReportJobParams{Status: &finished, FinishedAt: &at}))

	list, err := repo.ListQueued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, queued.ID, list[0].ID)

	old, err := repo.ListFinishedBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, done.ID, old[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestCacheRepositoryPatternDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository(kv.NewMemory(), nil)

	require.NoError(t, repo.Set(ctx, "aggregate:summary", map[string]int{"total": 3}, time.Minute))
	var got map[string]int
	require.NoError(t, repo.Get(ctx, "aggregate:summary", &got))
	assert.Equal(t, 3, got["total"])

	require.NoError(t, repo.DeleteByPattern(ctx, "aggregate:*"))
	err := repo.Get(ctx, "aggregate:summary", &got)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}
