package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrel-net/packetloom/engine"
	"github.com/kestrel-net/packetloom/logging"
)

// Run starts the dashboard program, blocking until the user quits or
// the underlying terminal program errors out. Replay must already be
// running (or about to be started) in another goroutine.
func Run(ctx *engine.Context, ring *logging.Ring) error {
	p := tea.NewProgram(New(ctx, ring), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
