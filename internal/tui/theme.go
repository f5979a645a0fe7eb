package tui

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the interactive session. A single
// default theme for now; keeping the colors in one place makes future
// theme support trivial.
type Theme struct {
	Banner  lipgloss.Style
	Prompt  lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

func NewDefaultTheme() Theme {
	return Theme{
		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
	}
}
