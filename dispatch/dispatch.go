// Package dispatch implements the dual-interface dispatcher: choose
// interface A or B per packet from the classification bitmap, enforce
// the MTU ceiling, and forward the frame to the chosen sender.
package dispatch

import (
	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/source"
	"github.com/kestrel-net/packetloom/types"
)

// Outcome tags what happened to a packet after Dispatch.
type Outcome int

const (
	Sent Outcome = iota
	Failed
	Skipped
)

// Dispatcher routes packets between at most two sender handles.
type Dispatcher struct {
	A, B   sender.Sender
	Bitmap *bitmap.Bitmap
	MTU    int
}

// New builds a Dispatcher. bm may be nil if no classification bitmap
// is bound to the current source — every packet then routes to A.
func New(a, b sender.Sender, bm *bitmap.Bitmap, mtu int) *Dispatcher {
	return &Dispatcher{A: a, B: b, Bitmap: bm, MTU: mtu}
}

// Dispatch sends one packet, enforcing the MTU ceiling and bitmap
// routing:
//   - a packet whose effective length exceeds MTU is a Failed send,
//     skipped without aborting (counted in Stats.Failed);
//   - a bitmap bit selecting B when B is not configured drops the
//     packet as Skipped (counted in Stats.Skipped, not Failed);
//   - otherwise the chosen sender's Send is called.
func (d *Dispatcher) Dispatch(rec types.PacketRecord, effectiveLen uint32) (types.Interface, Outcome, error) {
	iface := types.InterfaceA
	if d.Bitmap != nil {
		if b, ok := d.Bitmap.NextBit(); ok {
			iface = b
		}
	}

	if int(effectiveLen) > d.MTU {
		return iface, Failed, types.NewError(types.ErrorSend, "packet length %d exceeds MTU %d", effectiveLen, d.MTU)
	}

	target := d.A
	if iface == types.InterfaceB {
		if d.B == nil {
			return iface, Skipped, nil
		}
		target = d.B
	}

	if _, err := target.Send(rec.Bytes); err != nil {
		return iface, Failed, err
	}
	return iface, Sent, nil
}

// ValidateLinkTypes enforces that both interfaces, when both
// configured, report the same link-layer type.
func ValidateLinkTypes(a, b sender.Sender) error {
	if a == nil || b == nil {
		return nil
	}
	if a.GetLinkType() != b.GetLinkType() {
		return types.NewError(types.ErrorConfig, "DLT type mismatch: %s vs %s", a.GetLinkType(), b.GetLinkType())
	}
	return nil
}

// ValidateSourceLinkType enforces that a capture's link-layer type
// matches every configured sender handle. Capture sources that don't
// report a link type (fd, cache) are not checked.
func ValidateSourceLinkType(capture source.LinkTyper, a, b sender.Sender) error {
	dlt := capture.LinkType()
	if a != nil && a.GetLinkType() != dlt {
		return types.NewError(types.ErrorConfig, "capture DLT %s does not match interface A DLT %s", dlt, a.GetLinkType())
	}
	if b != nil && b.GetLinkType() != dlt {
		return types.NewError(types.ErrorConfig, "capture DLT %s does not match interface B DLT %s", dlt, b.GetLinkType())
	}
	return nil
}
