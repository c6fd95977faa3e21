package engine

import (
	"github.com/kestrel-net/packetloom/dispatch"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/types"
)

// Abort sets the abort flag and requests both sender handles unblock
// any in-progress write. It returns once the signal has been sent and
// does not block for the replay goroutine to actually observe it.
func (c *Context) Abort() {
	c.abort.Store(true)

	c.mu.Lock()
	a, b := c.senderA, c.senderB
	c.mu.Unlock()

	if a != nil {
		a.Abort()
	}
	if b != nil {
		b.Abort()
	}
}

// Suspend temporarily pauses Replay at its next poll point.
func (c *Context) Suspend() {
	c.suspend.Store(true)
}

// Restart resumes a suspended Replay.
func (c *Context) Restart() {
	c.suspend.Store(false)
}

// validateForReplay enforces the configuration invariants that must
// hold before Replay may proceed:
//   - idx in range;
//   - a bitmap may only be combined with exactly one source;
//   - both interfaces, if configured, share a DLT;
//   - oneatatime mode has a callback installed;
//   - an fd source requires Loop == 1.
func (c *Context) validateForReplay(idx int, opts Options, senderA, senderB sender.Sender) error {
	if idx < -1 || idx >= len(opts.Sources) {
		return types.NewError(types.ErrorConfig, "invalid source index: %d", idx)
	}

	if opts.Bitmap != nil && len(opts.Sources) != 1 {
		return types.NewError(types.ErrorConfig, "a classification bitmap may only be combined with exactly one source, have %d", len(opts.Sources))
	}

	if err := dispatch.ValidateLinkTypes(senderA, senderB); err != nil {
		return err
	}

	if opts.Speed.Kind == types.SpeedOneAtATime && opts.Speed.ManualCallback == nil {
		return types.NewError(types.ErrorConfig, "oneatatime speed mode requires a manual callback")
	}

	if opts.Loop != 1 {
		for _, s := range opts.Sources {
			if s.Kind == types.SourceFD {
				return types.NewError(types.ErrorConfig, "fd sources are not rewindable; loop must be 1, got %d", opts.Loop)
			}
		}
	}

	return nil
}
