package sender

import (
	"testing"

	"github.com/kestrel-net/packetloom/types"
)

// openLoopback is a best-effort helper: live packet injection needs an
// interface and usually elevated privileges, neither of which is
// guaranteed in a test environment.
func openLoopback(t *testing.T) *PcapSender {
	s, err := Open("lo", types.DirectionC2S)
	if err != nil {
		t.Skipf("no usable loopback interface: %v", err)
	}
	return s
}

func TestAbortIsIdempotentAndRejectsSend(t *testing.T) {
	s := openLoopback(t)

	s.Abort()
	s.Abort() // must not panic or double-close

	if _, err := s.Send([]byte{0}); err == nil {
		t.Error("Send after Abort should fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openLoopback(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
