package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const msgNoToken = "No token found"

// Store owns the client state. UI code reads it with State, listens with
// Subscribe and changes it only through the async actions below.
type Store struct {
	api     *API
	session SessionStorage

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore restores any saved token from session. The token is not trusted
// until LoadUser succeeds.
func NewStore(api *API, session SessionStorage) (*Store, error) {
	token, err := session.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Store{
		api:     api,
		session: session,
		state:   InitialState(token),
		subs:    make(map[int]func(State)),
	}, nil
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn to run after every dispatch. The returned func
// removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) RegisterUser(ctx context.Context, name, email, password string) error {
	s.Dispatch(RegisterPending{})
	sess, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		clearErr := s.session.Clear()
		s.Dispatch(RegisterRejected{Err: errorMessage(err)})
		return errors.Join(err, clearErr)
	}
	s.Dispatch(RegisterFulfilled{Session: *sess})
	return s.saveToken(sess.Token)
}

func (s *Store) LoginUser(ctx context.Context, email, password string) error {
	s.Dispatch(LoginPending{})
	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		clearErr := s.session.Clear()
		s.Dispatch(LoginRejected{Err: errorMessage(err)})
		return errors.Join(err, clearErr)
	}
	s.Dispatch(LoginFulfilled{Session: *sess})
	return s.saveToken(sess.Token)
}

// LoadUser checks the current token against the server and fetches its user.
func (s *Store) LoadUser(ctx context.Context) error {
	token := s.State().Auth.Token
	s.Dispatch(LoadUserPending{})

	if token == "" {
		s.Dispatch(LoadUserRejected{Err: msgNoToken})
		return &APIError{Status: 0, Msg: msgNoToken}
	}

	user, err := s.api.Me(ctx, token)
	if err != nil {
		clearErr := s.session.Clear()
		s.Dispatch(LoadUserRejected{Err: errorMessage(err)})
		return errors.Join(err, clearErr)
	}
	s.Dispatch(LoadUserFulfilled{User: *user})
	return nil
}

// LogoutUser forgets the token locally. Tokens are stateless, so the server
// is not involved.
func (s *Store) LogoutUser(ctx context.Context) error {
	s.Dispatch(LogoutPending{})
	err := s.session.Clear()
	s.Dispatch(LogoutFulfilled{})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) FetchTodos(ctx context.Context) error {
	token := s.State().Auth.Token
	s.Dispatch(FetchTodosPending{})
	list, err := s.api.ListTodos(ctx, token)
	if err != nil {
		s.Dispatch(FetchTodosRejected{Err: errorMessage(err)})
		return s.expireOn401(err)
	}
	s.Dispatch(FetchTodosFulfilled{Todos: list})
	return nil
}

func (s *Store) AddTodo(ctx context.Context, text string) error {
	token := s.State().Auth.Token
	s.Dispatch(AddTodoPending{})
	todo, err := s.api.CreateTodo(ctx, token, text)
	if err != nil {
		s.Dispatch(AddTodoRejected{Err: errorMessage(err)})
		return s.expireOn401(err)
	}
	s.Dispatch(AddTodoFulfilled{Todo: *todo})
	return nil
}

func (s *Store) RemoveTodo(ctx context.Context, id string) error {
	token := s.State().Auth.Token
	s.Dispatch(RemoveTodoPending{ID: id})
	removed, err := s.api.DeleteTodo(ctx, token, id)
	if err != nil {
		s.Dispatch(RemoveTodoRejected{Err: errorMessage(err)})
		return s.expireOn401(err)
	}
	s.Dispatch(RemoveTodoFulfilled{ID: removed})
	return nil
}

func (s *Store) CompleteTodo(ctx context.Context, id string) error {
	token := s.State().Auth.Token
	s.Dispatch(CompleteTodoPending{ID: id})
	todo, err := s.api.CompleteTodo(ctx, token, id)
	if err != nil {
		s.Dispatch(CompleteTodoRejected{Err: errorMessage(err)})
		return s.expireOn401(err)
	}
	s.Dispatch(CompleteTodoFulfilled{Todo: *todo})
	return nil
}

func (s *Store) saveToken(token string) error {
	if err := s.session.Save(token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// expireOn401 drops the session when the server no longer accepts the token.
func (s *Store) expireOn401(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return err
	}
	clearErr := s.session.Clear()
	s.Dispatch(SessionExpired{Err: apiErr.Msg})
	return errors.Join(err, clearErr)
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Msg
	}
	return err.Error()
}
