package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type noteRepository interface {
	List(ctx context.Context) ([]models.Note, error)
	Save(ctx context.Context, notes []models.Note) error
}

type todoRepository interface {
	List(ctx context.Context) ([]models.Todo, error)
	Save(ctx context.Context, todos []models.Todo) error
}

// TextRequest carries the text of a note or to-do.
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// NoteService manages free-text notes, newest first.
type NoteService struct {
	repo   noteRepository
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewNoteService constructs the service.
func NewNoteService(repo noteRepository, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{repo: repo, logger: logger, now: time.Now}
}

// List returns every note.
func (s *NoteService) List(ctx context.Context) ([]models.Note, error) {
	notes, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to load notes", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notes")
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Add stores a note at the top of the list.
func (s *NoteService) Add(ctx context.Context, req TextRequest) (*models.Note, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "text is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	note := models.Note{ID: uuid.NewString(), Text: text, CreatedAt: s.now().UTC()}
	notes = append([]models.Note{note}, notes...)
	if err := s.repo.Save(ctx, notes); err != nil {
		s.logger.Error("failed to save notes", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save note")
	}
	return &note, nil
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(notes) {
		return appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	if err := s.repo.Save(ctx, kept); err != nil {
		s.logger.Error("failed to save notes", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	return nil
}

// TodoService manages the to-do checklist.
type TodoService struct {
	repo   todoRepository
	logger *zap.Logger
	mu     sync.Mutex
}

// NewTodoService constructs the service.
func NewTodoService(repo todoRepository, logger *zap.Logger) *TodoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoService{repo: repo, logger: logger}
}

// List returns every to-do in insertion order.
func (s *TodoService) List(ctx context.Context) ([]models.Todo, error) {
	todos, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to load todos", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load todos")
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

// Add appends an open to-do.
func (s *TodoService) Add(ctx context.Context, req TextRequest) (*models.Todo, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "text is required")
	}
	todo := models.Todo{ID: uuid.NewString(), Text: text}
	err := s.update(ctx, func(todos []models.Todo) ([]models.Todo, error) {
		return append(todos, todo), nil
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// Toggle flips the completed flag and returns the updated item.
func (s *TodoService) Toggle(ctx context.Context, id string) (*models.Todo, error) {
	var toggled models.Todo
	err := s.update(ctx, func(todos []models.Todo) ([]models.Todo, error) {
		for i := range todos {
			if todos[i].ID == id {
				todos[i].Completed = !todos[i].Completed
				toggled = todos[i]
				return todos, nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "todo not found")
	})
	if err != nil {
		return nil, err
	}
	return &toggled, nil
}

// Delete removes a to-do.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(todos []models.Todo) ([]models.Todo, error) {
		for i := range todos {
			if todos[i].ID == id {
				return append(todos[:i], todos[i+1:]...), nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "todo not found")
	})
}

func (s *TodoService) update(ctx context.Context, fn func([]models.Todo) ([]models.Todo, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.List(ctx)
	if err != nil {
		return err
	}
	todos, err = fn(todos)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, todos); err != nil {
		s.logger.Error("failed to save todos", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save todos")
	}
	return nil
}
