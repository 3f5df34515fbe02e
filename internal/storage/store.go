// Package storage is the persistence adapter. It keeps users, todos and LINE
// links in a document store. Every todo lookup by id is scoped to its owner.
package storage

import (
	"context"
	"errors"

	"github.com/ytakahashi/todo-app/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrAlreadyCompleted = errors.New("already completed")
)

type UserRepository interface {
	// CreateUser stores u. It returns ErrDuplicate when u.Email is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type TodoRepository interface {
	CreateTodo(ctx context.Context, t *models.Todo) error
	// ListTodos returns the owner's todos, newest first.
	ListTodos(ctx context.Context, ownerID string) ([]*models.Todo, error)
	GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error)
	// MarkTodoCompleted flips isCompleted to true in one step. It returns
	// ErrAlreadyCompleted when the todo was already done.
	MarkTodoCompleted(ctx context.Context, ownerID, id string) error
	DeleteTodo(ctx context.Context, ownerID, id string) error
}

type LinkRepository interface {
	SaveLink(ctx context.Context, link *models.LineLink) error
	GetLink(ctx context.Context, lineUserID string) (*models.LineLink, error)
}

type Store interface {
	UserRepository
	TodoRepository
	LinkRepository
	Close() error
}
