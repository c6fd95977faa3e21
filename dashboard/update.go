package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 200 * time.Millisecond

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width - 4
		m.logViewport.Height = msg.Height/2 - 4
		return m, nil

	case tickMsg:
		if m.ring != nil {
			m.logViewport.SetContent(m.ring.ReadAll())
			m.logViewport.GotoBottom()
		}
		return m, tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctx.Abort()
			m.quitting = true
			return m, tea.Quit
		case "a":
			m.ctx.Abort()
			return m, nil
		case "s":
			m.ctx.Suspend()
			return m, nil
		case "r":
			m.ctx.Restart()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}
