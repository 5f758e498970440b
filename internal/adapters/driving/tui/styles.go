package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the pre-configured lipgloss styles for the chat view.
type Styles struct {
	// Title style for the header bar.
	Title lipgloss.Style

	// User style for the user's messages.
	User lipgloss.Style

	// Assistant style for answers.
	Assistant lipgloss.Style

	// Muted style for hints and source lines.
	Muted lipgloss.Style

	// Error style for failures.
	Error lipgloss.Style

	// Input style for the prompt border.
	Input lipgloss.Style
}

// DefaultStyles returns the default chat styling.
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1),
		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#06B6D4")),
		Assistant: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}
