package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kestrel-net/packetloom/timing"
)

func (m Model) View() string {
	if m.quitting {
		return "aborting replay...\n"
	}

	stats := m.ctx.GetStats()

	var status string
	switch {
	case m.ctx.IsSuspended():
		status = styleSuspended.Render("SUSPENDED")
	case m.ctx.IsRunning():
		status = styleRunning.Render("RUNNING")
	default:
		status = styleStopped.Render("STOPPED")
	}

	elapsed := stats.EndTime - stats.StartTime
	if stats.EndTime == 0 && stats.StartTime != 0 {
		elapsed = timing.Now() - stats.StartTime
	}

	row := func(label string, value string) string {
		return styleLabel.Render(label) + styleValue.Render(value)
	}

	statsBody := lipgloss.JoinVertical(lipgloss.Left,
		row("status", status),
		row("source", fmt.Sprintf("%d / %d", m.ctx.GetCurrentSource()+1, m.ctx.GetSourceCount())),
		row("sent", fmt.Sprintf("%d pkts / %d bytes", stats.PktsSent, stats.BytesSent)),
		row("failed", fmt.Sprintf("%d", stats.Failed)),
		row("skipped", fmt.Sprintf("%d", stats.Skipped)),
		row("elapsed", fmt.Sprintf("%.2fs", float64(elapsed)/1e6)),
	)

	statsPanel := stylePanel.Render(
		lipgloss.JoinVertical(lipgloss.Left, styleTitle.Render(" replay "), statsBody),
	)

	logPanel := stylePanel.Render(
		lipgloss.JoinVertical(lipgloss.Left, styleTitle.Render(" log "), m.logViewport.View()),
	)

	help := styleLabel.Copy().Width(0).Render("a: abort  s: suspend  r: restart  q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, statsPanel, logPanel, help)
}
