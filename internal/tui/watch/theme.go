// Package watch implements the toolgate invocation watch TUI.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
// Even with a single default theme, this keeps all colors in one place
// and makes future theme support trivial.
type Theme struct {
	// Outcome colors
	OutcomeOK     lipgloss.Style
	OutcomeDenied lipgloss.Style
	OutcomeFailed lipgloss.Style
	OutcomeOther  lipgloss.Style

	// UI elements
	Border lipgloss.Style
	Title  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		OutcomeOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		OutcomeDenied: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		OutcomeFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		OutcomeOther:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
