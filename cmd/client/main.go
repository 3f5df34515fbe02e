package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ytakahashi/todo-app/internal/client"
	"github.com/ytakahashi/todo-app/internal/ui"
)

func main() {
	server := flag.String("server", envOr("TODO_SERVER", "http://localhost:5000"), "base URL of the todo API")
	sessionPath := flag.String("session", "", "session file (default <user config dir>/todo-app/session.json)")
	flag.Parse()

	path := *sessionPath
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error locating config dir: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	store, err := client.NewStore(client.NewAPI(*server, nil), client.NewFileSession(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting client: %v\n", err)
		os.Exit(1)
	}

	model := ui.New(store)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	model.Close()
	if err != nil {
		fmt.Printf("Error running todo client: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
