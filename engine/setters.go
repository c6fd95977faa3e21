package engine

import (
	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/filecache"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/timing"
	"github.com/kestrel-net/packetloom/types"
)

// Each setter below validates its argument, mutates Options (or opens
// a resource), and on failure returns a *types.Error while also
// recording it so a later GetErr() call can retrieve it.

// SetInterfaceA opens name for writing as interface A (direction C2S).
func (c *Context) SetInterfaceA(name string, open func(string, types.Direction) (sender.Sender, error)) error {
	s, err := open(name, types.DirectionC2S)
	if err != nil {
		e := types.WrapError(types.ErrorResource, err, "opening interface A %q", name)
		c.setErr(e)
		return e
	}
	c.mu.Lock()
	c.opts.InterfaceAName = name
	c.senderA = s
	c.mu.Unlock()
	return nil
}

// SetInterfaceB opens name for writing as interface B (direction
// S2C). It is valid to call this before or after SetInterfaceA; the
// link-type match between the two is enforced at Replay time
// regardless of call order.
func (c *Context) SetInterfaceB(name string, open func(string, types.Direction) (sender.Sender, error)) error {
	s, err := open(name, types.DirectionS2C)
	if err != nil {
		e := types.WrapError(types.ErrorResource, err, "opening interface B %q", name)
		c.setErr(e)
		return e
	}
	c.mu.Lock()
	c.opts.InterfaceBName = name
	c.senderB = s
	c.mu.Unlock()
	return nil
}

// SetSpeedMode installs the tagged-union speed mode wholesale.
func (c *Context) SetSpeedMode(mode types.SpeedMode) error {
	c.mu.Lock()
	c.opts.Speed = mode
	c.mu.Unlock()
	return nil
}

// SetLoop sets how many times to replay all sources; 0 means forever.
func (c *Context) SetLoop(n uint32) error {
	c.mu.Lock()
	c.opts.Loop = n
	c.mu.Unlock()
	return nil
}

// SetAccuracy installs a timing strategy, rejecting it up front if
// unavailable on this platform/build.
func (c *Context) SetAccuracy(a types.Accuracy) error {
	if !timing.Available(a) {
		e := types.NewError(types.ErrorPlatformUnavailable, "timing strategy %s not supported on this platform", a)
		c.setErr(e)
		return e
	}
	c.mu.Lock()
	c.opts.Accuracy = a
	c.mu.Unlock()
	return nil
}

// SetMTU overrides the outbound MTU ceiling enforced by the dispatcher.
func (c *Context) SetMTU(n int) error {
	if n <= 0 {
		e := types.NewError(types.ErrorConfig, "MTU must be > 0, got %d", n)
		c.setErr(e)
		return e
	}
	c.mu.Lock()
	c.opts.MTU = n
	c.mu.Unlock()
	return nil
}

// SetLimitSend caps the total packets sent across the whole replay;
// -1 means unlimited.
func (c *Context) SetLimitSend(n int64) error {
	if n < -1 {
		e := types.NewError(types.ErrorConfig, "limit_send must be -1 or >= 0, got %d", n)
		c.setErr(e)
		return e
	}
	c.mu.Lock()
	c.opts.LimitSend = n
	c.mu.Unlock()
	return nil
}

// SetFileCache turns the in-memory packet cache on or off globally.
// It has no effect on a single-pass (Loop == 1) replay, which never
// needs a second pass over any source.
func (c *Context) SetFileCache(enable bool) error {
	c.mu.Lock()
	c.opts.EnableFileCache = enable
	c.mu.Unlock()
	return nil
}

// SetUsePktHdrLen selects the packet's original on-the-wire length
// over its captured (possibly truncated) length for rate/MTU purposes.
func (c *Context) SetUsePktHdrLen(v bool) error {
	c.mu.Lock()
	c.opts.UsePktHdrLen = v
	c.mu.Unlock()
	if v {
		c.setWarn("--pktlen-equivalent may cause problems with truncated captures; use with caution")
	}
	return nil
}

// SetSleepAccel sets the sleep-accelerator fudge factor in
// microseconds, subtracted from each planned sleep (never the
// absolute deadline).
func (c *Context) SetSleepAccel(us int64) error {
	c.mu.Lock()
	c.opts.SleepAccelUs = us
	c.mu.Unlock()
	return nil
}

// AddSource appends a packet source, bounded by types.MaxSources.
func (c *Context) AddSource(spec types.SourceSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.opts.Sources) >= types.MaxSources {
		e := types.NewError(types.ErrorConfig, "unable to add more than %d sources", types.MaxSources)
		c.lastErr = e
		return e
	}

	if spec.Kind == types.SourceFD && c.opts.Loop != 1 {
		e := types.NewError(types.ErrorConfig, "fd sources are not rewindable; loop must be 1, got %d", c.opts.Loop)
		c.lastErr = e
		return e
	}

	c.opts.Sources = append(c.opts.Sources, spec)
	c.caches = append(c.caches, filecache.New())
	return nil
}

// SetBitmap binds a classification bitmap to the (necessarily single)
// configured source.
func (c *Context) SetBitmap(bm *bitmap.Bitmap) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.opts.Sources) > 1 {
		e := types.NewError(types.ErrorConfig, "a classification bitmap may only be combined with exactly one source, have %d", len(c.opts.Sources))
		c.lastErr = e
		return e
	}
	c.opts.Bitmap = bm
	return nil
}

// SetManualCallback installs the single-step callback required by
// oneatatime mode.
func (c *Context) SetManualCallback(cb types.ManualCallback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.Speed.Kind != types.SpeedOneAtATime {
		e := types.NewError(types.ErrorConfig, "unable to set manual callback because speed mode is not oneatatime")
		c.lastErr = e
		return e
	}
	c.opts.Speed.ManualCallback = cb
	return nil
}

// SetVerboseDump installs an optional per-sent-packet hook, called
// synchronously from the replay loop after each successful send.
func (c *Context) SetVerboseDump(fn func(types.PacketRecord, types.Interface)) {
	c.mu.Lock()
	c.opts.VerboseDump = fn
	c.mu.Unlock()
}

// GetErr returns the last error message. Its content after a
// successful call is undefined.
func (c *Context) GetErr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == nil {
		return ""
	}
	return c.lastErr.Error()
}

// GetWarn returns the last warning message.
func (c *Context) GetWarn() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastWarn
}

// GetSourceCount returns the number of configured sources.
func (c *Context) GetSourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.opts.Sources)
}

// GetCurrentSource returns the index of the source currently (or most
// recently) being replayed.
func (c *Context) GetCurrentSource() int {
	return int(c.currentSource.Load())
}
