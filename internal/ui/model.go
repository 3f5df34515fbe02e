// Package ui is the terminal front end: a Bubble Tea program that renders the
// client store and turns key presses into store actions.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ytakahashi/todo-app/internal/client"
)

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenTodos
)

type action int

const (
	actionLogin action = iota
	actionRegister
	actionLoadUser
	actionLogout
	actionFetch
	actionAdd
	actionComplete
	actionRemove
)

// doneMsg reports that a store action settled.
type doneMsg struct {
	action action
	err    error
}

// stateMsg says the store changed since the model last looked.
type stateMsg struct{}

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

type Model struct {
	store       *client.Store
	state       client.State
	updates     chan struct{}
	unsubscribe func()

	screen   screen
	fields   []textinput.Model
	focus    int
	newTodo  textinput.Model
	cursor   int
	quitting bool
}

func New(store *client.Store) Model {
	fields := make([]textinput.Model, 3)
	for i := range fields {
		ti := textinput.New()
		ti.CharLimit = 254
		ti.Width = 40
		fields[i] = ti
	}
	fields[fieldName].Placeholder = "Ann"
	fields[fieldName].CharLimit = 100
	fields[fieldEmail].Placeholder = "ann@example.com"
	fields[fieldPassword].Placeholder = "at least 6 characters"
	fields[fieldPassword].CharLimit = 72
	fields[fieldPassword].EchoMode = textinput.EchoPassword
	fields[fieldPassword].EchoCharacter = '•'

	newTodo := textinput.New()
	newTodo.Placeholder = "What needs doing?"
	newTodo.CharLimit = 500
	newTodo.Width = 50

	// One pending signal is enough: the model always reads the latest state.
	updates := make(chan struct{}, 1)
	unsubscribe := store.Subscribe(func(client.State) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	m := Model{
		store:       store,
		state:       store.State(),
		updates:     updates,
		unsubscribe: unsubscribe,
		screen:      screenLogin,
		fields:      fields,
		newTodo:     newTodo,
	}
	m.focusField(fieldEmail)
	return m
}

// Close detaches the model from its store.
func (m Model) Close() {
	m.unsubscribe()
}

func (m Model) Init() tea.Cmd {
	if m.state.Auth.Token != "" {
		return tea.Batch(m.waitForState(), m.run(actionLoadUser, m.store.LoadUser))
	}
	return tea.Batch(m.waitForState(), textinput.Blink)
}

// waitForState blocks until the store dispatches again.
func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return stateMsg{}
	}
}

func (m Model) run(a action, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{action: a, err: fn(context.Background())}
	}
}

func (m *Model) focusField(i int) {
	m.focus = i
	for j := range m.fields {
		if j == i {
			m.fields[j].Focus()
		} else {
			m.fields[j].Blur()
		}
	}
}

// formFields lists the inputs shown on the current auth screen.
func (m Model) formFields() []int {
	if m.screen == screenRegister {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = m.store.State()
		m.clampCursor()
		return m, m.waitForState()
	case doneMsg:
		return m.settled(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.screen == screenTodos {
			return m.updateTodos(msg)
		}
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) settled(msg doneMsg) (tea.Model, tea.Cmd) {
	m.state = m.store.State()

	switch msg.action {
	case actionLogin, actionRegister, actionLoadUser:
		if m.state.Auth.IsAuthenticated {
			m.screen = screenTodos
			m.fields[fieldPassword].Reset()
			m.newTodo.Focus()
			return m, m.run(actionFetch, m.store.FetchTodos)
		}
	case actionLogout:
		m.screen = screenLogin
		m.focusField(fieldEmail)
		return m, nil
	case actionAdd:
		if msg.err == nil {
			m.newTodo.Reset()
		}
	}

	if !m.state.Auth.IsAuthenticated && m.screen == screenTodos {
		// The session expired under us.
		m.screen = screenLogin
		m.newTodo.Blur()
		m.focusField(fieldEmail)
	}
	m.clampCursor()
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	order := m.formFields()
	pos := 0
	for i, f := range order {
		if f == m.focus {
			pos = i
		}
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyCtrlR:
		if m.screen == screenLogin {
			m.screen = screenRegister
			m.focusField(fieldName)
		} else {
			m.screen = screenLogin
			m.focusField(fieldEmail)
		}
		m.store.Dispatch(client.ClearErrors{})
		m.state = m.store.State()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.focusField(order[(pos+1)%len(order)])
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.focusField(order[(pos+len(order)-1)%len(order)])
		return m, nil
	case tea.KeyEnter:
		if pos < len(order)-1 {
			m.focusField(order[pos+1])
			return m, nil
		}
		return m, m.submitForm()
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) submitForm() tea.Cmd {
	name := m.fields[fieldName].Value()
	email := m.fields[fieldEmail].Value()
	password := m.fields[fieldPassword].Value()

	if m.screen == screenRegister {
		return m.run(actionRegister, func(ctx context.Context) error {
			return m.store.RegisterUser(ctx, name, email, password)
		})
	}
	return m.run(actionLogin, func(ctx context.Context) error {
		return m.store.LoginUser(ctx, email, password)
	})
}

func (m Model) updateTodos(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.newTodo.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			text := m.newTodo.Value()
			return m, m.run(actionAdd, func(ctx context.Context) error {
				return m.store.AddTodo(ctx, text)
			})
		case tea.KeyEsc, tea.KeyTab:
			m.newTodo.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.newTodo, cmd = m.newTodo.Update(msg)
		return m, cmd
	}

	todos := m.state.Todos.Data
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(todos)-1 {
			m.cursor++
		}
	case "n", "tab":
		m.newTodo.Focus()
		return m, textinput.Blink
	case "r":
		return m, m.run(actionFetch, m.store.FetchTodos)
	case "l":
		return m, m.run(actionLogout, m.store.LogoutUser)
	case "c":
		if id, ok := m.selectedID(); ok {
			return m, m.run(actionComplete, func(ctx context.Context) error {
				return m.store.CompleteTodo(ctx, id)
			})
		}
	case "d":
		if id, ok := m.selectedID(); ok {
			return m, m.run(actionRemove, func(ctx context.Context) error {
				return m.store.RemoveTodo(ctx, id)
			})
		}
	}
	return m, nil
}

func (m Model) selectedID() (string, bool) {
	todos := m.state.Todos.Data
	if m.cursor < 0 || m.cursor >= len(todos) {
		return "", false
	}
	return todos[m.cursor].ID, true
}

func (m *Model) clampCursor() {
	if n := len(m.state.Todos.Data); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" TODO ") + "\n")

	if m.screen == screenTodos {
		b.WriteString(m.todosView())
	} else {
		b.WriteString(m.formView())
	}
	return b.String()
}

func (m Model) formView() string {
	title, other := "Log in", "register"
	if m.screen == screenRegister {
		title, other = "Create an account", "log in"
	}

	labels := map[int]string{fieldName: "Name", fieldEmail: "Email", fieldPassword: "Password"}
	var content strings.Builder
	for _, f := range m.formFields() {
		style := LabelStyle
		if f == m.focus {
			style = FocusedLabelStyle
		}
		content.WriteString(style.Render(labels[f]) + " " + m.fields[f].View() + "\n")
	}

	if m.state.Auth.Loading {
		content.WriteString("\n" + MutedStyle.Render("Working..."))
	}
	if m.state.Auth.Error != "" {
		content.WriteString("\n" + ErrorTextStyle.Render("✘ "+m.state.Auth.Error))
	}

	return SubHeaderStyle.Render(title) + "\n" +
		CardStyle.Render(content.String()) + "\n" +
		FooterStyle.Render(fmt.Sprintf("▸ Tab: next field • Enter: submit • Ctrl+R: %s • Esc: quit", other))
}

func (m Model) todosView() string {
	st := m.state
	sub := "Todos"
	if st.Auth.User != nil {
		sub = fmt.Sprintf("Todos for %s", st.Auth.User.Name)
	}
	sub += MutedStyle.Render(fmt.Sprintf("  %d open, %d done",
		len(client.IncompleteTodos(st)), len(client.CompletedTodos(st))))

	var content strings.Builder
	content.WriteString(m.newTodo.View() + "\n\n")

	switch {
	case st.Todos.IsLoading:
		content.WriteString(MutedStyle.Render("Loading..."))
	case len(st.Todos.Data) == 0:
		content.WriteString(MutedStyle.Render("Nothing to do."))
	default:
		for i, t := range st.Todos.Data {
			line := "[ ] " + t.Text
			style := TodoStyle
			if t.IsCompleted {
				line = "[x] " + t.Text
				style = DoneStyle
			}
			prefix := "  "
			if i == m.cursor && !m.newTodo.Focused() {
				prefix = SelectedStyle.Render("▸ ")
			}
			content.WriteString(prefix + style.Render(line) + "\n")
		}
	}

	if st.Todos.Error != "" {
		content.WriteString("\n" + ErrorTextStyle.Render("✘ "+st.Todos.Error))
	}

	help := "▸ n: new • c: complete • d: delete • r: refresh • l: logout • q: quit"
	if m.newTodo.Focused() {
		help = "▸ Enter: add • Esc: back to list • Ctrl+C: quit"
	}

	return SubHeaderStyle.Render(sub) + "\n" +
		CardStyle.Render(content.String()) + "\n" +
		FooterStyle.Render(help)
}
