// Package timing implements the timing primitives of a packet
// replayer: a monotonic microsecond clock and a family of wait-until
// strategies, each realizing the same contract with a different
// jitter/CPU tradeoff.
package timing

import (
	"time"

	"github.com/kestrel-net/packetloom/types"
)

var processStart = time.Now()

// Now returns a monotonic microsecond timestamp, anchored at package
// init so successive calls within one process are directly comparable
// and never regress.
func Now() int64 {
	return time.Since(processStart).Microseconds()
}

// Available reports whether a is usable on this platform/build. Only
// AccuracyIOPortSleep is ever unavailable in this pure-Go build, since
// direct I/O port access requires ioperm(2) and inline assembly that
// this module does not use.
func Available(a types.Accuracy) bool {
	if a == types.AccuracyIOPortSleep {
		return ioportAvailable()
	}
	return true
}

// CalibrateRDTSC re-measures the rdtsc-spin per-iteration spin unit
// over sampleWindow (a default calibration also runs lazily on first
// use). The AccuracyRDTSCSpin wait itself polls Now() until the target
// and does not read the measured unit, so calling this does not change
// when such a wait returns.
func CalibrateRDTSC(sampleWindow time.Duration) {
	calibrateRDTSCSpin(sampleWindow)
}

// WaitUntil blocks until Now() >= targetUs, using the realization for
// strategy a. accelUs is subtracted from the *planned sleep* only,
// never from the absolute target, so per-packet error does not
// accumulate across a replay.
//
// WaitUntil is a no-op when targetUs <= Now().
func WaitUntil(targetUs int64, a types.Accuracy, accelUs int64) error {
	now := Now()
	if targetUs <= now {
		return nil
	}

	if !Available(a) {
		return types.NewError(types.ErrorPlatformUnavailable, "timing strategy %s not supported on this platform", a)
	}

	plannedTarget := targetUs - accelUs
	if plannedTarget < now {
		plannedTarget = now
	}

	switch a {
	case types.AccuracyNanosleep:
		sleepNanosleep(plannedTarget)
	case types.AccuracyGTODSpin:
		spinGTOD(plannedTarget)
	case types.AccuracySelectSleep:
		sleepSelect(plannedTarget)
	case types.AccuracyRDTSCSpin:
		spinRDTSC(plannedTarget)
	case types.AccuracyIOPortSleep:
		sleepIOPort(plannedTarget)
	case types.AccuracyAbsoluteTime:
		sleepAbsolute(plannedTarget)
	default:
		return types.NewError(types.ErrorConfig, "unknown timing strategy: %d", a)
	}
	return nil
}

// sleepNanosleep realizes the *nanosleep* strategy: a single computed
// sleep for the delta, same as a one-shot nanosleep(2) call.
func sleepNanosleep(targetUs int64) {
	delta := targetUs - Now()
	if delta <= 0 {
		return
	}
	time.Sleep(time.Duration(delta) * time.Microsecond)
}

// spinGTOD realizes *gettimeofday-spin*: a tight loop re-reading the
// clock, trading CPU for minimal wakeup jitter.
func spinGTOD(targetUs int64) {
	for Now() < targetUs {
	}
}

// sleepSelect realizes *select-sleep*: waiting on an empty descriptor
// set with a timeout. Go has no direct select(2) binding in the
// standard library outside syscall; a timer channel is the idiomatic
// stand-in and produces the same "block with a timeout, no spinning"
// behavior the original strategy exists for.
func sleepSelect(targetUs int64) {
	delta := targetUs - Now()
	if delta <= 0 {
		return
	}
	t := time.NewTimer(time.Duration(delta) * time.Microsecond)
	defer t.Stop()
	<-t.C
}

// sleepAbsolute realizes *absolute-time*: repeatedly sleeps toward the
// absolute deadline rather than committing to one pre-computed delta,
// so a late wakeup from the scheduler just shortens the next sleep
// instead of overshooting.
func sleepAbsolute(targetUs int64) {
	for {
		now := Now()
		if now >= targetUs {
			return
		}
		time.Sleep(time.Duration(targetUs-now) * time.Microsecond)
	}
}
