package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ytakahashi/todo-app/internal/models"
)

// MemoryStore keeps everything in process memory. It backs the development
// mode (memory://) and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	todos   map[string]models.Todo
	links   map[string]models.LineLink
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		todos:   make(map[string]models.Todo),
		links:   make(map[string]models.LineLink),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return ErrDuplicate
	}
	m.users[u.ID] = *u
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *MemoryStore) CreateTodo(ctx context.Context, t *models.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.todos[t.ID]; ok {
		return ErrDuplicate
	}
	m.todos[t.ID] = *t
	return nil
}

func (m *MemoryStore) ListTodos(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	todos := []*models.Todo{}
	for _, t := range m.todos {
		if t.UserID == ownerID {
			t := t
			todos = append(todos, &t)
		}
	}
	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].ID > todos[j].ID
		}
		return todos[i].CreatedAt.After(todos[j].CreatedAt)
	})
	return todos, nil
}

func (m *MemoryStore) GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.todos[id]
	if !ok || t.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) MarkTodoCompleted(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.todos[id]
	if !ok || t.UserID != ownerID {
		return ErrNotFound
	}
	if t.IsCompleted {
		return ErrAlreadyCompleted
	}
	t.IsCompleted = true
	m.todos[id] = t
	return nil
}

func (m *MemoryStore) DeleteTodo(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.todos[id]
	if !ok || t.UserID != ownerID {
		return ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

func (m *MemoryStore) SaveLink(ctx context.Context, link *models.LineLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[link.LineUserID] = *link
	return nil
}

func (m *MemoryStore) GetLink(ctx context.Context, lineUserID string) (*models.LineLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.links[lineUserID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}
