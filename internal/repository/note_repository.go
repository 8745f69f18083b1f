package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

const (
	notesKey = "notes"
	todosKey = "todos"
)

// jsonList stores a whole list under one key; an absent key reads as empty.
type jsonList[T any] struct {
	store kv.Store
	key   string
}

func (l jsonList[T]) load(ctx context.Context) ([]T, error) {
	var items []T
	if err := kv.GetJSON(ctx, l.store, l.key, &items); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l jsonList[T]) save(ctx context.Context, items []T) error {
	return kv.SetJSON(ctx, l.store, l.key, items, 0)
}

// NoteRepository persists free-text notes.
type NoteRepository struct {
	list jsonList[models.Note]
}

func NewNoteRepository(store kv.Store) *NoteRepository {
	return &NoteRepository{list: jsonList[models.Note]{store: store, key: notesKey}}
}

func (r *NoteRepository) List(ctx context.Context) ([]models.Note, error) {
	return r.list.load(ctx)
}

func (r *NoteRepository) Save(ctx context.Context, notes []models.Note) error {
	return r.list.save(ctx, notes)
}

// TodoRepository persists the to-do checklist.
type TodoRepository struct {
	list jsonList[models.Todo]
}

func NewTodoRepository(store kv.Store) *TodoRepository {
	return &TodoRepository{list: jsonList[models.Todo]{store: store, key: todosKey}}
}

func (r *TodoRepository) List(ctx context.Context) ([]models.Todo, error) {
	return r.list.load(ctx)
}

func (r *TodoRepository) Save(ctx context.Context, todos []models.Todo) error {
	return r.list.save(ctx, todos)
}
