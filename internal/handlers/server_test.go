package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ytakahashi/todo-app/internal/auth"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/storage"
	"github.com/ytakahashi/todo-app/internal/todos"
)

type testEnv struct {
	e     *echo.Echo
	store *storage.MemoryStore
	auth  *auth.Service
	todos *todos.Service
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	logger := logging.Discard()
	authService := auth.NewService(store, auth.NewTokenIssuer([]byte("test-secret"), 7*24*time.Hour), auth.NewBcryptHasher(bcrypt.MinCost), logger)
	todoService := todos.NewService(store, logger)
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &testEnv{
		e:     NewServer(cfg, logger, authService, todoService, nil),
		store: store,
		auth:  authService,
		todos: todoService,
	}
}

func (env *testEnv) do(t *testing.T, method, path, token, body string) (int, map[string]any, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var obj map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &obj)
	return rec.Code, obj, rec.Body.Bytes()
}

func (env *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	code, body, raw := env.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, code, string(raw))
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestTodoLifecycle(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})

	token := env.register(t, "Ann", "a@x.com", "secret1")

	code, todo, raw := env.do(t, http.MethodPost, "/api/todos", token, `{"text":"buy milk"}`)
	require.Equal(t, http.StatusOK, code, string(raw))
	id, _ := todo["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "buy milk", todo["text"])
	assert.Equal(t, false, todo["isCompleted"])

	code, todo, raw = env.do(t, http.MethodPost, "/api/todos/"+id+"/completed", token, "")
	require.Equal(t, http.StatusOK, code, string(raw))
	assert.Equal(t, true, todo["isCompleted"])

	code, body, _ := env.do(t, http.MethodPost, "/api/todos/"+id+"/completed", token, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Todo already completed", body["msg"])

	code, body, _ = env.do(t, http.MethodDelete, "/api/todos/"+id, token, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully Removed", body["msg"])
	assert.Equal(t, id, body["id"])

	code, _, raw = env.do(t, http.MethodGet, "/api/todos", token, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestListTodos_NewestFirst(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	token := env.register(t, "Ann", "a@x.com", "secret1")

	for _, text := range []string{"first", "second", "third"} {
		code, _, _ := env.do(t, http.MethodPost, "/api/todos", token, `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusOK, code)
		time.Sleep(2 * time.Millisecond)
	}

	code, _, raw := env.do(t, http.MethodGet, "/api/todos", token, "")
	require.Equal(t, http.StatusOK, code)

	var list []struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Text)
	assert.Equal(t, "first", list[2].Text)
}

func TestTodos_RequireToken(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})

	code, body, _ := env.do(t, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.MsgNoToken, body["msg"])

	code, body, _ = env.do(t, http.MethodPost, "/api/todos", "garbage", `{"text":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.MsgTokenInvalid, body["msg"])

	code, body, _ = env.do(t, http.MethodGet, "/api/auth/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, auth.MsgTokenInvalid, body["msg"])
}

func TestTodos_OtherUsersTodoIsNotFound(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	ann := env.register(t, "Ann", "a@x.com", "secret1")
	bob := env.register(t, "Bob", "b@x.com", "secret2")

	_, todo, _ := env.do(t, http.MethodPost, "/api/todos", ann, `{"text":"ann's"}`)
	id := todo["id"].(string)

	code, body, _ := env.do(t, http.MethodDelete, "/api/todos/"+id, bob, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", body["msg"])

	code, body, _ = env.do(t, http.MethodPost, "/api/todos/"+id+"/completed", bob, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Todo not found", body["msg"])

	_, _, raw := env.do(t, http.MethodGet, "/api/todos", bob, "")
	assert.JSONEq(t, `[]`, string(raw))

	_, _, raw = env.do(t, http.MethodGet, "/api/todos", ann, "")
	assert.Contains(t, string(raw), id)
}

func TestCreateTodo_Validation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	token := env.register(t, "Ann", "a@x.com", "secret1")

	for _, text := range []string{"", "   ", strings.Repeat("a", 501)} {
		code, _, raw := env.do(t, http.MethodPost, "/api/todos", token, `{"text":"`+text+`"}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.JSONEq(t, `{"errors":[{"msg":"`+todos.MsgTextInvalid+`"}]}`, string(raw))
	}
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	env.register(t, "Ann", "a@x.com", "secret1")

	code, body, _ := env.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Imposter","email":"A@X.com","password":"secret9"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.MsgUserExists, body["msg"])

	code, body, _ = env.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"","email":"nope","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errs, 3)

	code, _, _ = env.do(t, http.MethodPost, "/api/auth/register", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	env.register(t, "Ann", "a@x.com", "secret1")

	code, body, _ := env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"A@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, body, _ = env.do(t, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ann", body["name"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.NotContains(t, body, "password")

	_, wrongPassword, _ := env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"a@x.com","password":"wrong!!"}`)
	code, unknownEmail, _ := env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"z@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, auth.MsgInvalidCredentials, unknownEmail["msg"])
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestRegister_RateLimited(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 2})

	for i := 0; i < 2; i++ {
		code, _, _ := env.do(t, http.MethodPost, "/api/auth/register", "", `{"name":"","email":"","password":""}`)
		assert.Equal(t, http.StatusBadRequest, code)
	}

	code, body, _ := env.do(t, http.MethodPost, "/api/auth/register", "", `{"name":"Ann","email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, msgTooManyRegistrations, body["msg"])

	// Login is not limited.
	code, _, _ = env.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLinkCode(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})
	token := env.register(t, "Ann", "a@x.com", "secret1")

	code, body, _ := env.do(t, http.MethodPost, "/api/auth/line/link", token, "")
	require.Equal(t, http.StatusOK, code)
	linkCode, _ := body["code"].(string)
	require.NotEmpty(t, linkCode)
	assert.NotEmpty(t, body["expiresAt"])

	// A link code is not a session token.
	code, _, _ = env.do(t, http.MethodGet, "/api/todos", linkCode, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RegisterRateLimit: 10})

	code, body, _ := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])

	code, body, _ = env.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", body["msg"])

	code, _, _ = env.do(t, http.MethodPost, "/webhook", "", "{}")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorResponse_InternalDetailsOnlyInDevelopment(t *testing.T) {
	err := assert.AnError

	status, body := errorResponse(err, false)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, messageBody{Msg: "Server Error"}, body)

	status, body = errorResponse(err, true)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, messageBody{Msg: "Server Error", Details: err.Error()}, body)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	e := echo.New()
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		assert.Equal(t, want, bearerToken(c), "header %q", header)
	}
}
