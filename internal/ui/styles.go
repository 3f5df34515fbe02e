package ui

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#00BFFF")
	Accent    = lipgloss.Color("#FFD700")
	Success   = lipgloss.Color("#3CB371")
	ErrorCol  = lipgloss.Color("#FF5F5F")
	Text      = lipgloss.Color("#FFFFFF")
	Muted     = lipgloss.Color("#888888")

	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(1, 1).
			MarginLeft(1)

	SubHeaderStyle = lipgloss.NewStyle().
			Foreground(Muted).
			PaddingLeft(2).
			MarginBottom(1)

	CardStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(Muted).
			MarginLeft(2).
			Width(64)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(10)

	FocusedLabelStyle = LabelStyle.Copy().
				Foreground(Accent).
				Bold(true)

	TodoStyle = lipgloss.NewStyle().
			Foreground(Text)

	DoneStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Strikethrough(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ErrorCol).
			PaddingLeft(2)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1).
			PaddingLeft(4).
			Faint(true)
)
