package timing

// ioport-sleep reads x86 I/O port 0x80 repeatedly as a calibrated
// delay. Doing so requires ioperm(2) plus inline assembly or cgo,
// neither of which this module uses (see DESIGN.md for why no
// ecosystem library covers raw port I/O), so this strategy always
// reports unavailable rather than fabricate a substitute that doesn't
// touch real hardware.
func ioportAvailable() bool { return false }

func sleepIOPort(targetUs int64) {
	spinGTOD(targetUs)
}
