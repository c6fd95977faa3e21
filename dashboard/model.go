// Package dashboard implements a live bubbletea TUI over a running
// replay: a stats panel refreshed on a tick, a scrolling log tail fed
// by a logging.Ring, and key bindings for abort/suspend/restart.
package dashboard

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/kestrel-net/packetloom/engine"
	"github.com/kestrel-net/packetloom/logging"
)

// Model is the bubbletea model driving the dashboard.
type Model struct {
	ctx  *engine.Context
	ring *logging.Ring

	width, height int

	logViewport viewport.Model
	quitting    bool
}

// New builds a dashboard over an already-configured Context. The
// caller is responsible for starting ctx.Replay in its own goroutine;
// the dashboard only observes and controls it.
func New(ctx *engine.Context, ring *logging.Ring) Model {
	return Model{
		ctx:         ctx,
		ring:        ring,
		logViewport: viewport.New(0, 0),
	}
}
