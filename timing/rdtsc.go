package timing

import (
	"sync"
	"time"
)

// Go has no portable access to the RDTSC instruction without cgo or
// assembly, so the spin here polls the monotonic clock itself instead
// of a real cycle counter. A calibration pass still runs once before
// the first spin and records rdtscSpinUnit; the spin loop does not
// consult that value.
var (
	rdtscOnce     sync.Once
	rdtscSpinUnit time.Duration = 200 * time.Nanosecond
)

func calibrateRDTSCSpin(window time.Duration) {
	if window <= 0 {
		window = 50 * time.Millisecond
	}
	start := Now()
	iterations := int64(0)
	deadline := start + window.Microseconds()
	for Now() < deadline {
		iterations++
	}
	elapsed := Now() - start
	if iterations > 0 && elapsed > 0 {
		rdtscSpinUnit = time.Duration(elapsed*1000/iterations) * time.Nanosecond
	}
}

func spinRDTSC(targetUs int64) {
	rdtscOnce.Do(func() { calibrateRDTSCSpin(0) })
	for Now() < targetUs {
	}
}
