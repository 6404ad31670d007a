package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultMarkdownStyle detects the terminal background. Call it before the
// program takes over the terminal.
func DefaultMarkdownStyle() string { return markdownStyle() }

// Run shows the board until the user quits.
func Run(m Model) error {
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
