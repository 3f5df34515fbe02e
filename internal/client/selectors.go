package client

import "github.com/ytakahashi/todo-app/internal/models"

func CompletedTodos(s State) []models.Todo {
	return filterTodos(s.Todos.Data, true)
}

func IncompleteTodos(s State) []models.Todo {
	return filterTodos(s.Todos.Data, false)
}

func filterTodos(todos []models.Todo, completed bool) []models.Todo {
	out := make([]models.Todo, 0, len(todos))
	for _, t := range todos {
		if t.IsCompleted == completed {
			out = append(out, t)
		}
	}
	return out
}
