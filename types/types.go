// Package types holds the data model shared across the replay engine:
// options, speed modes, timing strategies, packet records, statistics,
// and the structured error value used in place of an errno-style buffer.
package types

import "fmt"

// MaxSources bounds the number of packet sources a single Options
// value may carry, guarding against unbounded growth of an
// append-only slice.
const MaxSources = 256

// Direction marks which side of a conversation a sender handle was
// opened for. Purely informational — the engine never branches on it.
type Direction int

const (
	DirectionC2S Direction = iota
	DirectionS2C
)

func (d Direction) String() string {
	if d == DirectionS2C {
		return "S2C"
	}
	return "C2S"
}

// Interface identifies which of the two configured sender handles a
// packet was routed to.
type Interface int

const (
	InterfaceA Interface = iota
	InterfaceB
)

func (i Interface) String() string {
	if i == InterfaceB {
		return "B"
	}
	return "A"
}

// SourceKind distinguishes the three source-iterator variants.
type SourceKind int

const (
	SourceFilename SourceKind = iota
	SourceFD
	SourceCache
)

// SourceSpec describes one packet source added to an Options value.
// Exactly one of Filename/FD is meaningful depending on Kind.
// source.Open rejects SourceCache; cached passes are served through
// source.FromCache instead of a SourceSpec.
type SourceSpec struct {
	Kind     SourceKind
	Filename string
	FD       uintptr
}

// SpeedModeKind tags the SpeedMode union.
type SpeedModeKind int

const (
	SpeedMultiplier SpeedModeKind = iota
	SpeedMbps
	SpeedPPS
	SpeedTopspeed
	SpeedOneAtATime
)

// ManualCallbackResult is returned by a single-step callback to tell the
// replay loop whether to keep going.
type ManualCallbackResult int

const (
	ManualContinue ManualCallbackResult = iota
	ManualStop
)

// ManualCallback is invoked once per packet in oneatatime mode, after
// the packet has been dispatched.
type ManualCallback func() ManualCallbackResult

// SpeedMode is a tagged union of the five replay speed strategies.
// Only the fields relevant to Kind are meaningful.
type SpeedMode struct {
	Kind SpeedModeKind

	// Multiplier: real capture time stretched by 1/Multiplier.
	Multiplier float64

	// Mbps: target aggregate line rate in megabits/second. 0 = unbounded.
	Mbps float64

	// PPS / Burst: target packets/second, emitted in bursts of Burst
	// back-to-back before pacing resumes.
	PPS   float64
	Burst int

	// ManualCallback: invoked after each dispatch in oneatatime mode.
	ManualCallback ManualCallback
}

// Multiplier1x is the default speed mode: real-time replay.
func Multiplier1x() SpeedMode {
	return SpeedMode{Kind: SpeedMultiplier, Multiplier: 1.0}
}

// Accuracy names a timing-accuracy strategy used to pace sends.
type Accuracy int

const (
	AccuracyAbsoluteTime Accuracy = iota
	AccuracyGTODSpin
	AccuracyNanosleep
	AccuracySelectSleep
	AccuracyRDTSCSpin
	AccuracyIOPortSleep
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyAbsoluteTime:
		return "abstime"
	case AccuracyGTODSpin:
		return "gtod"
	case AccuracyNanosleep:
		return "nano"
	case AccuracySelectSleep:
		return "select"
	case AccuracyRDTSCSpin:
		return "rdtsc"
	case AccuracyIOPortSleep:
		return "ioport"
	default:
		return "unknown"
	}
}

// PacketRecord is one decoded-enough packet: its capture timestamp, its
// two possible lengths, and its raw link-layer bytes.
type PacketRecord struct {
	CaptureTimeUs  int64
	CapturedLength uint32
	OriginalLength uint32
	Bytes          []byte
}

// EffectiveLength returns OriginalLength when usePktHdrLen is set,
// otherwise CapturedLength — the length the rate controller and MTU
// check should use.
func (p PacketRecord) EffectiveLength(usePktHdrLen bool) uint32 {
	if usePktHdrLen {
		return p.OriginalLength
	}
	return p.CapturedLength
}

// Stats are the live, monotonically non-decreasing replay counters.
type Stats struct {
	PktsSent  uint64
	BytesSent uint64
	Failed    uint64
	Skipped   uint64
	StartTime int64 // monotonic microseconds
	EndTime   int64
}

// ErrorKind enumerates the error categories an operation can fail with.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorConfig
	ErrorResource
	ErrorIO
	ErrorSend
	ErrorAborted
	ErrorPlatformUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConfig:
		return "ConfigError"
	case ErrorResource:
		return "ResourceError"
	case ErrorIO:
		return "IoError"
	case ErrorSend:
		return "SendError"
	case ErrorAborted:
		return "Aborted"
	case ErrorPlatformUnavailable:
		return "PlatformUnavailable"
	default:
		return "NoError"
	}
}

// Error is a structured, kind-tagged error with an optional cause.
// Context.GetErr/GetWarn render it to text for callers that only want
// a message string.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a structured Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds a structured Error wrapping a lower-level cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
