// Package client is the terminal client's side of the todo API: a REST client,
// the application state with its reducer, and a Store that runs async actions
// against the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ytakahashi/todo-app/internal/models"
)

const (
	MsgNetworkError    = "Network error occurred"
	msgInvalidResponse = "Invalid server response"
)

// APIError is a failed call: a non-2xx response, or Status 0 when the server
// could not be reached.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return e.Msg
}

// Unauthorized reports whether the server rejected the session token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

type errorBody struct {
	Errors []struct {
		Msg string `json:"msg"`
	} `json:"errors"`
	Msg string `json:"msg"`
}

func (b errorBody) message() string {
	if len(b.Errors) > 0 {
		msgs := make([]string, 0, len(b.Errors))
		for _, e := range b.Errors {
			msgs = append(msgs, e.Msg)
		}
		return strings.Join(msgs, ", ")
	}
	return b.Msg
}

type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI talks to the server at baseURL, e.g. http://localhost:5000.
// A nil httpClient gets a client with a 15 second timeout.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (a *API) Register(ctx context.Context, name, email, password string) (*Session, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	var out Session
	if err := a.do(ctx, http.MethodPost, "/api/auth/register", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Login(ctx context.Context, email, password string) (*Session, error) {
	in := map[string]string{"email": email, "password": password}
	var out Session
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Me(ctx context.Context, token string) (*models.PublicUser, error) {
	var out models.PublicUser
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) ListTodos(ctx context.Context, token string) ([]models.Todo, error) {
	var out []models.Todo
	if err := a.do(ctx, http.MethodGet, "/api/todos", token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Todo{}
	}
	return out, nil
}

func (a *API) CreateTodo(ctx context.Context, token, text string) (*models.Todo, error) {
	var out models.Todo
	if err := a.do(ctx, http.MethodPost, "/api/todos", token, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CompleteTodo(ctx context.Context, token, id string) (*models.Todo, error) {
	var out models.Todo
	if err := a.do(ctx, http.MethodPost, "/api/todos/"+url.PathEscape(id)+"/completed", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTodo returns the id the server reports as removed.
func (a *API) DeleteTodo(ctx context.Context, token, id string) (string, error) {
	var out struct {
		Msg string `json:"msg"`
		ID  string `json:"id"`
	}
	if err := a.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), token, nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out.ID, nil
}

func (a *API) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return &APIError{Msg: MsgNetworkError}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Msg: MsgNetworkError}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		msg := ""
		if json.Unmarshal(raw, &eb) == nil {
			msg = eb.message()
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Msg: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Msg: msgInvalidResponse}
	}
	return nil
}
