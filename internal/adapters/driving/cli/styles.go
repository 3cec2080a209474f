package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Output styles for human-readable command output.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	citationStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#06B6D4"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))
)
