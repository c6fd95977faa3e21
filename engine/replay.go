package engine

import (
	"io"
	"time"

	"github.com/kestrel-net/packetloom/dispatch"
	"github.com/kestrel-net/packetloom/filecache"
	"github.com/kestrel-net/packetloom/rate"
	"github.com/kestrel-net/packetloom/source"
	"github.com/kestrel-net/packetloom/timing"
	"github.com/kestrel-net/packetloom/types"
)

// suspendPollQuantum is the fixed sleep used while polling a suspended
// replay; a suspended pass never advances its pacing target.
const suspendPollQuantum = 100 * time.Millisecond

// Replay drives one full replay of idx (or every source, if idx == -1)
// for opts.Loop iterations (or forever, if Loop == 0). It blocks until
// completion or until Abort is observed.
func (c *Context) Replay(idx int) error {
	c.mu.Lock()
	opts := c.opts
	senderA, senderB := c.senderA, c.senderB
	caches := c.caches
	c.mu.Unlock()

	if err := c.validateForReplay(idx, opts, senderA, senderB); err != nil {
		c.setErr(err)
		return err
	}

	var sourcesToRun []int
	if idx == -1 {
		sourcesToRun = make([]int, len(opts.Sources))
		for i := range opts.Sources {
			sourcesToRun[i] = i
		}
	} else {
		sourcesToRun = []int{idx}
	}

	disp := dispatch.New(senderA, senderB, opts.Bitmap, opts.MTU)
	effectiveCache := opts.EnableFileCache && opts.Loop != 1

	monoStart := timing.Now()
	c.mu.Lock()
	c.stats = types.Stats{StartTime: monoStart}
	c.mu.Unlock()

	c.running.Store(true)
	c.abort.Store(false)

	rc := rate.New(opts.Speed, monoStart)

	finish := func() {
		c.mu.Lock()
		c.stats.EndTime = timing.Now()
		c.mu.Unlock()
		c.running.Store(false)
	}

	infinite := opts.Loop == 0
	remaining := opts.Loop

	lastReaders := make([]source.Reader, len(opts.Sources))

	for infinite || remaining > 0 {
		if !infinite {
			remaining--
		}

		for _, srcIdx := range sourcesToRun {
			c.currentSource.Store(int32(srcIdx))

			if opts.Bitmap != nil {
				opts.Bitmap.Reset()
			}

			cache := caches[srcIdx]
			reader, filling, err := openSourceForPass(opts.Sources[srcIdx], cache, effectiveCache, lastReaders[srcIdx])
			if err != nil {
				finish()
				e := types.WrapError(types.ErrorResource, err, "opening source %d", srcIdx)
				c.setErr(e)
				return e
			}

			if linkTyper, ok := reader.(source.LinkTyper); ok {
				if err := dispatch.ValidateSourceLinkType(linkTyper, senderA, senderB); err != nil {
					reader.Close()
					finish()
					if e, ok := err.(*types.Error); ok {
						c.setErr(e)
					}
					return err
				}
			}

			stopped, rerr := c.runSource(reader, cache, filling, rc, disp, &opts)
			reader.Close()
			lastReaders[srcIdx] = reader

			if rerr != nil {
				finish()
				if re, ok := rerr.(*types.Error); ok {
					c.setErr(re)
				}
				return rerr
			}
			if stopped {
				finish()
				return nil
			}
		}

		if c.abort.Load() {
			finish()
			return nil
		}
	}

	finish()
	return nil
}

// openSourceForPass returns the Reader to use for one pass over a
// source, and whether this pass is (re)filling that source's cache:
// absent transitions to filling on the first pass when caching is
// enabled, and a filled cache is served from memory thereafter. When
// caching is off and prev is a Rewindable left over from an earlier
// pass, the source is reopened through it rather than through a fresh
// source.Open, so a rewindable source only ever has its spec resolved
// once per replay.
func openSourceForPass(spec types.SourceSpec, cache *filecache.Cache, effectiveCache bool, prev source.Reader) (source.Reader, bool, error) {
	if effectiveCache {
		switch cache.State() {
		case filecache.Filled:
			return source.FromCache(cache), false, nil
		case filecache.Absent:
			cache.BeginFilling()
		}
		r, err := source.Open(spec)
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}

	if rewindable, ok := prev.(source.Rewindable); ok {
		r, err := rewindable.Reopen()
		if err != nil {
			return nil, false, err
		}
		return r, false, nil
	}

	r, err := source.Open(spec)
	if err != nil {
		return nil, false, err
	}
	return r, false, nil
}

// runSource drives the per-packet send procedure over one source, for
// one pass. stop reports whether the whole replay should end cleanly
// (abort, limit reached, or a oneatatime "stop").
func (c *Context) runSource(r source.Reader, cache *filecache.Cache, filling bool, rc *rate.Controller, disp *dispatch.Dispatcher, opts *Options) (stop bool, err error) {
	for {
		// Checked before each read, so a zero send limit sends nothing
		// and a limit reached mid-replay stops before reading ahead.
		if opts.LimitSend != -1 {
			c.mu.Lock()
			sent := int64(c.stats.PktsSent)
			c.mu.Unlock()
			if sent >= opts.LimitSend {
				return true, nil
			}
		}
		if c.abort.Load() {
			return true, nil
		}

		rec, rerr := r.Next()
		if rerr == io.EOF {
			if filling {
				cache.Finish()
			}
			return false, nil
		}
		if rerr != nil {
			return false, types.WrapError(types.ErrorIO, rerr, "reading next packet")
		}

		if filling {
			cache.Append(rec)
		}

		effLen := rec.EffectiveLength(opts.UsePktHdrLen)
		target := rc.NextTarget(rec.CaptureTimeUs, effLen)

		// Poll control flags before committing to the wait.
		for {
			if c.abort.Load() {
				return true, nil
			}
			if c.suspend.Load() {
				time.Sleep(suspendPollQuantum)
				continue
			}
			break
		}

		if err := timing.WaitUntil(target, opts.Accuracy, opts.SleepAccelUs); err != nil {
			return false, err
		}

		iface, outcome, derr := disp.Dispatch(rec, effLen)

		c.mu.Lock()
		switch outcome {
		case dispatch.Sent:
			c.stats.PktsSent++
			c.stats.BytesSent += uint64(effLen)
		case dispatch.Failed:
			c.stats.Failed++
		case dispatch.Skipped:
			c.stats.Skipped++
		}
		c.mu.Unlock()

		if outcome == dispatch.Sent && opts.VerboseDump != nil {
			opts.VerboseDump(rec, iface)
		}
		_ = derr // per-packet send failures are accumulated, not fatal

		if opts.Speed.Kind == types.SpeedOneAtATime && opts.Speed.ManualCallback != nil {
			if opts.Speed.ManualCallback() == types.ManualStop {
				return true, nil
			}
		}
	}
}
