package styles

import (
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// TUI layout.
var (
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)
)

// Line-oriented CLI output.
var (
	Prompt      = lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)
	InfoMark    = lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)
	SuccessMark = lipgloss.NewStyle().Bold(true).Foreground(colors.Green)
	ErrorMark   = lipgloss.NewStyle().Bold(true).Foreground(colors.Red)
)
