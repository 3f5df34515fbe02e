package client

import (
	"slices"

	"github.com/ytakahashi/todo-app/internal/models"
)

type AuthState struct {
	Token           string
	IsAuthenticated bool
	User            *models.PublicUser
	Loading         bool
	Error           string
}

type TodosState struct {
	IsLoading bool
	Data      []models.Todo
	Error     string
}

type State struct {
	Auth  AuthState
	Todos TodosState
}

// InitialState starts unauthenticated, carrying any token restored from
// session storage so LoadUser can validate it.
func InitialState(token string) State {
	return State{
		Auth:  AuthState{Token: token},
		Todos: TodosState{Data: []models.Todo{}},
	}
}

// Action is one state transition. Every async action dispatches its Pending
// value before the request starts and exactly one of Fulfilled or Rejected
// once it settles.
type Action interface {
	isAction()
}

type (
	RegisterPending   struct{}
	RegisterFulfilled struct{ Session Session }
	RegisterRejected  struct{ Err string }

	LoginPending   struct{}
	LoginFulfilled struct{ Session Session }
	LoginRejected  struct{ Err string }

	LoadUserPending   struct{}
	LoadUserFulfilled struct{ User models.PublicUser }
	LoadUserRejected  struct{ Err string }

	LogoutPending   struct{}
	LogoutFulfilled struct{}

	FetchTodosPending   struct{}
	FetchTodosFulfilled struct{ Todos []models.Todo }
	FetchTodosRejected  struct{ Err string }

	AddTodoPending   struct{}
	AddTodoFulfilled struct{ Todo models.Todo }
	AddTodoRejected  struct{ Err string }

	RemoveTodoPending   struct{ ID string }
	RemoveTodoFulfilled struct{ ID string }
	RemoveTodoRejected  struct{ Err string }

	CompleteTodoPending   struct{ ID string }
	CompleteTodoFulfilled struct{ Todo models.Todo }
	CompleteTodoRejected  struct{ Err string }

	// ClearErrors resets auth.error and todos.error.
	ClearErrors struct{}

	// SessionExpired follows a 401 on an authenticated request.
	SessionExpired struct{ Err string }
)

func (RegisterPending) isAction()       {}
func (RegisterFulfilled) isAction()     {}
func (RegisterRejected) isAction()      {}
func (LoginPending) isAction()          {}
func (LoginFulfilled) isAction()        {}
func (LoginRejected) isAction()         {}
func (LoadUserPending) isAction()       {}
func (LoadUserFulfilled) isAction()     {}
func (LoadUserRejected) isAction()      {}
func (LogoutPending) isAction()         {}
func (LogoutFulfilled) isAction()       {}
func (FetchTodosPending) isAction()     {}
func (FetchTodosFulfilled) isAction()   {}
func (FetchTodosRejected) isAction()    {}
func (AddTodoPending) isAction()        {}
func (AddTodoFulfilled) isAction()      {}
func (AddTodoRejected) isAction()       {}
func (RemoveTodoPending) isAction()     {}
func (RemoveTodoFulfilled) isAction()   {}
func (RemoveTodoRejected) isAction()    {}
func (CompleteTodoPending) isAction()   {}
func (CompleteTodoFulfilled) isAction() {}
func (CompleteTodoRejected) isAction()  {}
func (ClearErrors) isAction()           {}
func (SessionExpired) isAction()        {}

// Reduce returns the state after applying a. It never modifies s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case RegisterPending, LoginPending:
		s.Auth.Loading = true
		s.Auth.Error = ""
	case RegisterFulfilled:
		s.Auth = authenticated(a.Session)
	case LoginFulfilled:
		s.Auth = authenticated(a.Session)
	case RegisterRejected:
		s.Auth = AuthState{Error: a.Err}
	case LoginRejected:
		s.Auth = AuthState{Error: a.Err}

	case LoadUserPending:
		s.Auth.Loading = true
	case LoadUserFulfilled:
		user := a.User
		s.Auth.Loading = false
		s.Auth.IsAuthenticated = true
		s.Auth.User = &user
	case LoadUserRejected:
		s.Auth = AuthState{}

	case LogoutPending:
	case LogoutFulfilled:
		s = InitialState("")

	case FetchTodosPending:
		s.Todos.IsLoading = true
		s.Todos.Error = ""
	case FetchTodosFulfilled:
		s.Todos.IsLoading = false
		s.Todos.Data = slices.Clone(a.Todos)
		if s.Todos.Data == nil {
			s.Todos.Data = []models.Todo{}
		}
	case FetchTodosRejected:
		s.Todos.IsLoading = false
		s.Todos.Error = a.Err

	case AddTodoPending, RemoveTodoPending, CompleteTodoPending:
		s.Todos.Error = ""
	case AddTodoFulfilled:
		s.Todos.Data = append([]models.Todo{a.Todo}, s.Todos.Data...)
	case RemoveTodoFulfilled:
		data := make([]models.Todo, 0, len(s.Todos.Data))
		for _, t := range s.Todos.Data {
			if t.ID != a.ID {
				data = append(data, t)
			}
		}
		s.Todos.Data = data
	case CompleteTodoFulfilled:
		data := slices.Clone(s.Todos.Data)
		if i := slices.IndexFunc(data, func(t models.Todo) bool { return t.ID == a.Todo.ID }); i >= 0 {
			data[i] = a.Todo
		}
		s.Todos.Data = data
	case AddTodoRejected:
		s.Todos.Error = a.Err
	case RemoveTodoRejected:
		s.Todos.Error = a.Err
	case CompleteTodoRejected:
		s.Todos.Error = a.Err

	case ClearErrors:
		s.Auth.Error = ""
		s.Todos.Error = ""
	case SessionExpired:
		s = InitialState("")
		s.Auth.Error = a.Err
	}
	return s
}

func authenticated(sess Session) AuthState {
	user := sess.User
	return AuthState{
		Token:           sess.Token,
		IsAuthenticated: true,
		User:            &user,
	}
}
