package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type noteService interface {
	List(ctx context.Context) ([]models.Note, error)
	Add(ctx context.Context, req service.TextRequest) (*models.Note, error)
	Delete(ctx context.Context, id string) error
}

type todoService interface {
	List(ctx context.Context) ([]models.Todo, error)
	Add(ctx context.Context, req service.TextRequest) (*models.Todo, error)
	Toggle(ctx context.Context, id string) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}

type onboardingService interface {
	State(ctx context.Context) (*models.OnboardingState, error)
	Complete(ctx context.Context) (*models.OnboardingState, error)
}

// NoteHandler exposes notes, to-dos and the onboarding flag.
type NoteHandler struct {
	notes      noteService
	todos      todoService
	onboarding onboardingService
}

// NewNoteHandler constructs the handler.
func NewNoteHandler(notes noteService, todos todoService, onboarding onboardingService) *NoteHandler {
	return &NoteHandler{notes: notes, todos: todos, onboarding: onboarding}
}

// ListNotes godoc
// @Summary List notes, newest first
// @Tags Notes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	notes, err := h.notes.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, nil)
}

// AddNote godoc
// @Summary Add a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.TextRequest true "Note"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) AddNote(c *gin.Context) {
	var req service.TextRequest
	if err := bindJSON(c, &req, "invalid note payload"); err != nil {
		response.Error(c, err)
		return
	}
	note, err := h.notes.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// DeleteNote godoc
// @Summary Delete a note
// @Tags Notes
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTodos godoc
// @Summary List to-dos
// @Tags Todos
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /todos [get]
func (h *NoteHandler) ListTodos(c *gin.Context) {
	todos, err := h.todos.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, todos, nil)
}

// AddTodo godoc
// @Summary Add a to-do
// @Tags Todos
// @Accept json
// @Produce json
// @Param payload body service.TextRequest true "To-do"
// @Success 201 {object} response.Envelope
// @Router /todos [post]
func (h *NoteHandler) AddTodo(c *gin.Context) {
	var req service.TextRequest
	if err := bindJSON(c, &req, "invalid todo payload"); err != nil {
		response.Error(c, err)
		return
	}
	todo, err := h.todos.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, todo)
}

// ToggleTodo godoc
// @Summary Flip the completed flag of a to-do
// @Tags Todos
// @Produce json
// @Param id path string true "To-do ID"
// @Success 200 {object} response.Envelope
// @Router /todos/{id}/toggle [post]
func (h *NoteHandler) ToggleTodo(c *gin.Context) {
	todo, err := h.todos.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, todo, nil)
}

// DeleteTodo godoc
// @Summary Delete a to-do
// @Tags Todos
// @Param id path string true "To-do ID"
// @Success 204
// @Router /todos/{id} [delete]
func (h *NoteHandler) DeleteTodo(c *gin.Context) {
	if err := h.todos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Onboarding godoc
// @Summary First-run state
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding [get]
func (h *NoteHandler) Onboarding(c *gin.Context) {
	state, err := h.onboarding.State(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// CompleteOnboarding godoc
// @Summary Mark onboarding as finished
// @Tags Onboarding
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /onboarding/complete [post]
func (h *NoteHandler) CompleteOnboarding(c *gin.Context) {
	state, err := h.onboarding.Complete(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}
