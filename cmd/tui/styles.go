package tui

import "github.com/charmbracelet/lipgloss"

// Shared TUI styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00AFF0")).
			PaddingLeft(2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingLeft(2)

	DateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("#00AFF0")).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	AuthorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	NotificationStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#FAFAFA")).
				Padding(0, 1).
				Bold(true)
)
