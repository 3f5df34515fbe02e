package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/todos"
)

type TodoHandler struct {
	todos *todos.Service
}

func NewTodoHandler(todoService *todos.Service) *TodoHandler {
	return &TodoHandler{todos: todoService}
}

type createTodoRequest struct {
	Text string `json:"text"`
}

type removeTodoResponse struct {
	Msg string `json:"msg"`
	ID  string `json:"id"`
}

func (h *TodoHandler) List(c echo.Context) error {
	list, err := h.todos.List(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *TodoHandler) Create(c echo.Context) error {
	var in createTodoRequest
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("Invalid request body")
	}

	todo, err := h.todos.Create(c.Request().Context(), currentUser(c).ID, in.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Complete(c echo.Context) error {
	todo, err := h.todos.Complete(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) Remove(c echo.Context) error {
	id, err := h.todos.Remove(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, removeTodoResponse{Msg: "Successfully Removed", ID: id})
}
