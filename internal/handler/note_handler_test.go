package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/repository"
	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

func newNoteRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := kv.NewMemory()
	h := NewNoteHandler(
		service.NewNoteService(repository.NewNoteRepository(store), nil),
		service.NewTodoService(repository.NewTodoRepository(store), nil),
		service.NewOnboardingService(repository.NewOnboardingRepository(store), nil),
	)
	r := gin.New()
	r.GET("/notes", h.ListNotes)
	r.POST("/notes", h.AddNote)
	r.DELETE("/notes/:id", h.DeleteNote)
	r.GET("/todos", h.ListTodos)
	r.POST("/todos", h.AddTodo)
	r.POST("/todos/:id/toggle", h.ToggleTodo)
	r.DELETE("/todos/:id", h.DeleteTodo)
	r.GET("/onboarding", h.Onboarding)
	r.POST("/onboarding/complete", h.CompleteOnboarding)
	return r
}

func TestNoteHandlerNotes(t *testing.T) {
	r := newNoteRouter()

	w := doJSON(r, http.MethodPost, "/notes", map[string]string{"text": "bring lab coat"})
	require.Equal(t, http.StatusCreated, w.Code)
	var note models.Note
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &note))
	assert.Equal(t, "bring lab coat", note.Text)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/notes", map[string]string{"text": "  "}).Code)

	w = doJSON(r, http.MethodGet, "/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []models.Note
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &notes))
	require.Len(t, notes, 1)

	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/notes/"+note.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodDelete, "/notes/"+note.ID, nil).Code)
}

func TestNoteHandlerTodosAndOnboarding(t *testing.T) {
	r := newNoteRouter()

	w := doJSON(r, http.MethodPost, "/todos", map[string]string{"text": "revise optics"})
	require.Equal(t, http.StatusCreated, w.Code)
	var todo models.Todo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &todo))
	assert.False(t, todo.Completed)

	w = doJSON(r, http.MethodPost, "/todos/"+todo.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &todo))
	assert.True(t, todo.Completed)

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodPost, "/todos/missing/toggle", nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/todos/"+todo.ID, nil).Code)

	w = doJSON(r, http.MethodGet, "/onboarding", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"completed":false}`, string(decodeEnvelope(t, w).Data))

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/onboarding/complete", nil).Code)
	w = doJSON(r, http.MethodGet, "/onboarding", nil)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"completed":true`)
}
