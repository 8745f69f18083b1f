package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/repository"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

func TestNoteServiceNewestFirst(t *testing.T) {
	store := kv.NewMemory()
	svc := NewNoteService(repository.NewNoteRepository(store), nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600)) }
	ctx := context.Background()

	first, err := svc.Add(ctx, TextRequest{Text: "revise chapter 3"})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, first.CreatedAt.Location())
	assert.Equal(t, 1, first.CreatedAt.Hour())
	second, err := svc.Add(ctx, TextRequest{Text: " bring lab coat "})
	require.NoError(t, err)
	assert.Equal(t, "bring lab coat", second.Text)

	notes, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)

	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, second.ID), appErrors.ErrNotFound))

	notes, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, first.ID, notes[0].ID)

	_, err = svc.Add(ctx, TextRequest{Text: "   "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTodoServiceToggle(t *testing.T) {
	svc := NewTodoService(repository.NewTodoRepository(kv.NewMemory()), nil)
	ctx := context.Background()

	a, err := svc.Add(ctx, TextRequest{Text: "submit assignment"})
	require.NoError(t, err)
	assert.False(t, a.Completed)
	b, err := svc.Add(ctx, TextRequest{Text: "print notes"})
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	toggled, err = svc.Toggle(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = svc.Toggle(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, a.ID))
	todos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, b.ID, todos[0].ID)
	assert.True(t, errors.Is(svc.Delete(ctx, a.ID), appErrors.ErrNotFound))
}

func TestOnboardingCompleteKeepsFirstTimestamp(t *testing.T) {
	svc := NewOnboardingService(repository.NewOnboardingRepository(kv.NewMemory()), nil)
	ctx := context.Background()

	state, err := svc.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.Completed)
	assert.Nil(t, state.CompletedAt)

	first := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	done, err := svc.Complete(ctx)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	svc.now = func() time.Time { return first.Add(time.Hour) }
	again, err := svc.Complete(ctx)
	require.NoError(t, err)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, first.Equal(*again.CompletedAt))
}
