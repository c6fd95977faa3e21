package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#F4A956")
	colorText      = lipgloss.Color("#FAFAFA")
	colorSubtext   = lipgloss.Color("#777777")
	colorSuccess   = lipgloss.Color("#43BF6D")
	colorError     = lipgloss.Color("#FF5F5F")

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorSubtext).
			Padding(1, 1)

	styleTitle = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(colorText).
			Padding(0, 1).
			Bold(true)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Width(14)

	styleValue = lipgloss.NewStyle().
			Foreground(colorText)

	styleSuspended = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	styleRunning = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	styleStopped = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)
