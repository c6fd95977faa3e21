package dispatch

import (
	"errors"
	"testing"

	"github.com/google/gopacket/layers"

	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/types"
)

type fakeSender struct {
	linkType layers.LinkType
	sent     [][]byte
	failNext bool
}

func (f *fakeSender) GetLinkType() layers.LinkType { return f.linkType }
func (f *fakeSender) Abort()                       {}
func (f *fakeSender) Close() error                 { return nil }
func (f *fakeSender) Send(b []byte) (int, error) {
	if f.failNext {
		return 0, errors.New("injection failed")
	}
	f.sent = append(f.sent, b)
	return len(b), nil
}

func TestDispatchNoBitmapGoesToA(t *testing.T) {
	a := &fakeSender{}
	d := New(a, nil, nil, 1500)

	iface, outcome, err := d.Dispatch(types.PacketRecord{Bytes: []byte{1, 2, 3}}, 3)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if iface != types.InterfaceA || outcome != Sent {
		t.Errorf("got (%v, %v), want (A, Sent)", iface, outcome)
	}
	if len(a.sent) != 1 {
		t.Errorf("sender A received %d packets, want 1", len(a.sent))
	}
}

func TestDispatchOversizeFails(t *testing.T) {
	a := &fakeSender{}
	d := New(a, nil, nil, 100)

	_, outcome, err := d.Dispatch(types.PacketRecord{Bytes: make([]byte, 200)}, 200)
	if err == nil {
		t.Fatal("Dispatch of an oversize packet should return an error")
	}
	if outcome != Failed {
		t.Errorf("outcome = %v, want Failed", outcome)
	}
	if len(a.sent) != 0 {
		t.Error("oversize packet should never reach the sender")
	}
}

func TestDispatchRoutesByBitmap(t *testing.T) {
	a := &fakeSender{}
	b := &fakeSender{}
	bm := bitmap.New([]byte{0x01}, 2, "")
	d := New(a, b, bm, 1500)

	iface, outcome, err := d.Dispatch(types.PacketRecord{Bytes: []byte{1}}, 1)
	if err != nil || iface != types.InterfaceB || outcome != Sent {
		t.Fatalf("first packet: (%v, %v, %v), want (B, Sent, nil)", iface, outcome, err)
	}

	iface, outcome, err = d.Dispatch(types.PacketRecord{Bytes: []byte{2}}, 1)
	if err != nil || iface != types.InterfaceA || outcome != Sent {
		t.Fatalf("second packet: (%v, %v, %v), want (A, Sent, nil)", iface, outcome, err)
	}
}

func TestDispatchSkipsBWhenUnconfigured(t *testing.T) {
	a := &fakeSender{}
	bm := bitmap.New([]byte{0x01}, 1, "")
	d := New(a, nil, bm, 1500)

	_, outcome, err := d.Dispatch(types.PacketRecord{Bytes: []byte{1}}, 1)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome != Skipped {
		t.Errorf("outcome = %v, want Skipped", outcome)
	}
}

func TestValidateLinkTypesMismatch(t *testing.T) {
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	b := &fakeSender{linkType: layers.LinkTypeRaw}

	if err := ValidateLinkTypes(a, b); err == nil {
		t.Fatal("ValidateLinkTypes should reject mismatched link types")
	}
	b.linkType = layers.LinkTypeEthernet
	if err := ValidateLinkTypes(a, b); err != nil {
		t.Errorf("ValidateLinkTypes: %v", err)
	}
}

type fakeCapture struct {
	linkType layers.LinkType
}

func (f *fakeCapture) LinkType() layers.LinkType { return f.linkType }

func TestValidateSourceLinkTypeMismatch(t *testing.T) {
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	capture := &fakeCapture{linkType: layers.LinkTypeRaw}

	if err := ValidateSourceLinkType(capture, a, nil); err == nil {
		t.Fatal("ValidateSourceLinkType should reject a capture DLT that doesn't match interface A")
	}

	capture.linkType = layers.LinkTypeEthernet
	if err := ValidateSourceLinkType(capture, a, nil); err != nil {
		t.Errorf("ValidateSourceLinkType: %v", err)
	}
}

func TestValidateSourceLinkTypeChecksBothInterfaces(t *testing.T) {
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	b := &fakeSender{linkType: layers.LinkTypeRaw}
	capture := &fakeCapture{linkType: layers.LinkTypeEthernet}

	if err := ValidateSourceLinkType(capture, a, b); err == nil {
		t.Fatal("ValidateSourceLinkType should reject a capture DLT that doesn't match interface B")
	}
}
