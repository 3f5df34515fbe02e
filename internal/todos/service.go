// Package todos implements todo CRUD scoped to an owning user.
package todos

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/models"
	"github.com/ytakahashi/todo-app/internal/storage"
)

const (
	MaxTextLen = 500

	MsgTextInvalid      = "Todo description is required and must be under 500 characters"
	MsgNotFound         = "Todo not found"
	MsgRemoveNotFound   = "Not Found"
	MsgAlreadyCompleted = "Todo already completed"
)

type Service struct {
	repo   storage.TodoRepository
	logger logging.Logger
	now    func() time.Time
}

func NewService(repo storage.TodoRepository, logger logging.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// List returns ownerID's todos, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	todos, err := s.repo.ListTodos(ctx, ownerID)
	if err != nil {
		return nil, s.internal(ctx, "list", err)
	}
	return todos, nil
}

func (s *Service) Create(ctx context.Context, ownerID, text string) (*models.Todo, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(text) > MaxTextLen {
		return nil, apperr.Validation(MsgTextInvalid)
	}

	todo := &models.Todo{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Text:        truncate(trimmed, MaxTextLen),
		IsCompleted: false,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.CreateTodo(ctx, todo); err != nil {
		return nil, s.internal(ctx, "create", err)
	}

	return todo, nil
}

// Complete flips isCompleted to true. There is no way back.
func (s *Service) Complete(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	todo, err := s.repo.GetTodo(ctx, ownerID, todoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, s.internal(ctx, "get", err)
	}

	if todo.IsCompleted {
		return nil, apperr.Conflict(MsgAlreadyCompleted)
	}

	if err := s.repo.MarkTodoCompleted(ctx, ownerID, todoID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound(MsgNotFound)
		case errors.Is(err, storage.ErrAlreadyCompleted):
			return nil, apperr.Conflict(MsgAlreadyCompleted)
		}
		return nil, s.internal(ctx, "complete", err)
	}

	todo.IsCompleted = true
	return todo, nil
}

// Remove deletes an owned todo and returns its id.
func (s *Service) Remove(ctx context.Context, ownerID, todoID string) (string, error) {
	if err := s.repo.DeleteTodo(ctx, ownerID, todoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound(MsgRemoveNotFound)
		}
		return "", s.internal(ctx, "remove", err)
	}
	return todoID, nil
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "todos: "+op+" failed", "error", err)
	return apperr.Internal(err)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
