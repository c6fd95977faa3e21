// Package sender implements the low-level frame sender consumed by the
// dispatcher: open a link-layer handle, report its link type, write
// frames to it, and support a best-effort abort that unblocks an
// in-progress write from another goroutine.
package sender

import (
	"sync/atomic"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/kestrel-net/packetloom/types"
)

// Sender is the interface the dispatcher and engine depend on. The
// concrete PcapSender below is one realization; tests substitute a
// fake that records writes instead of touching a real interface.
type Sender interface {
	GetLinkType() layers.LinkType
	Send(b []byte) (int, error)
	Abort()
	Close() error
}

// PcapSender writes frames to a live interface via gopacket/pcap.
// Abort flips a flag checked immediately before every write; Abort and
// Close both close the handle, which unblocks anything already inside
// a blocking write. This is the best an injection-only library offers without
// OS-specific non-blocking socket plumbing (see DESIGN.md).
type PcapSender struct {
	iface     string
	direction types.Direction
	handle    *pcap.Handle
	linkType  layers.LinkType

	aborted atomic.Bool
	closed  atomic.Bool
}

// Open opens iface for live writing. direction is informational only.
func Open(iface string, direction types.Direction) (*PcapSender, error) {
	// We don't capture, only inject, so a blocking read timeout and a
	// generous snaplen are both harmless here.
	handle, err := pcap.OpenLive(iface, 65535, false, pcap.BlockForever)
	if err != nil {
		return nil, types.WrapError(types.ErrorResource, err, "opening interface %s", iface)
	}
	return &PcapSender{
		iface:     iface,
		direction: direction,
		handle:    handle,
		linkType:  handle.LinkType(),
	}, nil
}

func (s *PcapSender) GetLinkType() layers.LinkType { return s.linkType }

// Send writes one frame. A non-fatal per-packet failure (handle
// reports a write error, but the sender itself is still usable) is
// returned as a types.Error of kind ErrorSend — callers accumulate
// these in Stats.Failed rather than aborting the replay.
func (s *PcapSender) Send(b []byte) (int, error) {
	if s.aborted.Load() {
		return 0, types.NewError(types.ErrorAborted, "sender %s aborted", s.iface)
	}
	if err := s.handle.WritePacketData(b); err != nil {
		return 0, types.WrapError(types.ErrorSend, err, "writing to %s", s.iface)
	}
	return len(b), nil
}

// Abort unblocks any in-progress or future Send call on this handle.
func (s *PcapSender) Abort() {
	s.aborted.Store(true)
	if s.closed.CompareAndSwap(false, true) {
		s.handle.Close()
	}
}

func (s *PcapSender) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.handle.Close()
	}
	return nil
}
