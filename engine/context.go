// Package engine implements the replay loop and its control and
// statistics surface: a Context owns the option set, up to two sender
// handles, per-source file caches, live statistics, and the
// cooperative abort/suspend/running flags another goroutine may read
// and write.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/filecache"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/types"
)

// DefaultMTU is the outbound MTU ceiling used when no explicit value
// is configured.
const DefaultMTU = 1500

// Options is the configuration a Context carries into a replay. It is
// built up via Context's validated setters before the first call to
// Replay; the engine treats it as read-only from that point on.
type Options struct {
	Loop            uint32
	Speed           types.SpeedMode
	Accuracy        types.Accuracy
	MTU             int
	LimitSend       int64
	EnableFileCache bool
	UsePktHdrLen    bool
	SleepAccelUs    int64

	InterfaceAName string
	InterfaceBName string

	Sources []types.SourceSpec
	Bitmap  *bitmap.Bitmap

	// VerboseDump, when set, is invoked for every successfully sent
	// packet, standing in for piping frames to an external decoder.
	VerboseDump func(types.PacketRecord, types.Interface)

	Comment string
}

// Context is a single replay's configuration, resources, and
// live state, safe for concurrent use by a replay goroutine and a
// controlling goroutine (dashboard, signal handler, and so on).
type Context struct {
	mu sync.Mutex

	opts Options

	senderA, senderB sender.Sender
	caches           []*filecache.Cache

	currentSource atomic.Int32

	stats         types.Stats
	statsSnapshot types.Stats

	lastErr  *types.Error
	lastWarn string

	running atomic.Bool
	suspend atomic.Bool
	abort   atomic.Bool
}

// NewContext returns a Context with sensible defaults: replay once,
// real-time multiplier speed, the best available timing strategy,
// default MTU, and no send limit.
func NewContext() *Context {
	return &Context{
		opts: Options{
			Loop:      1,
			Speed:     types.Multiplier1x(),
			Accuracy:  types.AccuracyAbsoluteTime,
			MTU:       DefaultMTU,
			LimitSend: -1,
		},
	}
}

// Close releases the sender handles and any file caches. Sender
// handles and packet caches are exclusively owned by the context.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.senderA != nil {
		if err := c.senderA.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.senderA = nil
	}
	if c.senderB != nil {
		if err := c.senderB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.senderB = nil
	}
	c.caches = nil
	return firstErr
}

func (c *Context) setErr(err *types.Error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Context) setWarn(format string, args ...any) {
	c.mu.Lock()
	c.lastWarn = types.NewError(types.ErrorNone, format, args...).Msg
	c.mu.Unlock()
}
