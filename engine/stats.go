package engine

import "github.com/kestrel-net/packetloom/types"

// GetStats returns a stable snapshot of the live counters. The replay
// goroutine is the sole writer, so a snapshot taken mid-update may be
// off by one packet; that is an accepted approximation, not a bug.
func (c *Context) GetStats() types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statsSnapshot = c.stats
	return c.statsSnapshot
}

// IsRunning reports whether a replay is currently underway (true even
// if suspended).
func (c *Context) IsRunning() bool {
	return c.running.Load()
}

// IsSuspended reports whether a running replay is currently paused.
func (c *Context) IsSuspended() bool {
	return c.suspend.Load()
}
