// Package rate implements the rate controller: given a packet's
// capture time and length, and the active speed mode, compute the
// absolute monotonic microsecond time at which it should be sent.
package rate

import (
	"github.com/kestrel-net/packetloom/timing"
	"github.com/kestrel-net/packetloom/types"
)

// Controller holds the anchors and per-mode running state needed to
// compute send targets across an entire replay (possibly spanning
// several sources and loops — anchors are not reset between them).
type Controller struct {
	mode types.SpeedMode

	monoStart int64
	capStart  int64
	haveCap   bool
	lastCapUs int64

	// mbps: running bit counter.
	bitsSent uint64

	// pps: position within the current burst, and the target time for
	// that burst's first packet.
	burstPos    int
	burstTarget int64
}

// New creates a Controller anchored at the given monotonic start time.
// capStart is filled in lazily from the first packet seen: the
// capture-time anchor is "first capture timestamp observed", not a
// fixed zero.
func New(mode types.SpeedMode, monoStart int64) *Controller {
	return &Controller{mode: mode, monoStart: monoStart, burstTarget: monoStart}
}

// NextTarget returns the absolute monotonic microsecond time at which
// the packet with the given capture time and effective byte length
// should be sent.
func (c *Controller) NextTarget(captureTimeUs int64, effectiveLen uint32) (targetUs int64) {
	// A rewound timestamp is treated as equal to the previous one so
	// time never goes backward.
	if c.haveCap && captureTimeUs < c.lastCapUs {
		captureTimeUs = c.lastCapUs
	}
	if !c.haveCap {
		c.capStart = captureTimeUs
		c.haveCap = true
	}
	c.lastCapUs = captureTimeUs

	switch c.mode.Kind {
	case types.SpeedMultiplier:
		k := c.mode.Multiplier
		if k <= 0 {
			k = 1.0
		}
		delta := float64(captureTimeUs-c.capStart) / k
		return c.monoStart + int64(delta)

	case types.SpeedMbps:
		if c.mode.Mbps <= 0 {
			return timing.Now()
		}
		bits := c.bitsSent + uint64(effectiveLen)*8
		// s_n = mono_start + 8*B/r µs, r in Mbps => 8*B*1e6/(r*1e6) = 8*B/r.
		targetUs = c.monoStart + int64(float64(bits)/c.mode.Mbps)
		c.bitsSent = bits
		return targetUs

	case types.SpeedPPS:
		burst := c.mode.Burst
		if burst <= 0 {
			burst = 1
		}

		var target int64
		if c.burstPos == 0 {
			// First packet of a burst is paced to burstTarget; the
			// rest of the burst goes back-to-back at now().
			now := timing.Now()
			if c.burstTarget > now {
				target = c.burstTarget
			} else {
				target = now
			}
		} else {
			target = timing.Now()
		}

		c.burstPos++
		if c.burstPos == burst {
			c.burstPos = 0
			c.burstTarget += BurstAdvance(c.mode)
		}
		return target

	case types.SpeedTopspeed:
		return timing.Now()

	case types.SpeedOneAtATime:
		return timing.Now()

	default:
		return timing.Now()
	}
}

// BurstAdvance reports the number of microseconds the next burst's
// first target should advance by: burst * 1e6 / r. Called once per
// completed burst.
func BurstAdvance(mode types.SpeedMode) int64 {
	if mode.PPS <= 0 {
		return 0
	}
	burst := mode.Burst
	if burst <= 0 {
		burst = 1
	}
	return int64(float64(burst) * 1_000_000 / mode.PPS)
}
