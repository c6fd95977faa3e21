package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/kestrel-net/packetloom/bitmap"
	"github.com/kestrel-net/packetloom/sender"
	"github.com/kestrel-net/packetloom/types"
)

type fakeSender struct {
	linkType layers.LinkType
	sent     [][]byte
	aborted  bool
	closed   bool
}

func (f *fakeSender) GetLinkType() layers.LinkType { return f.linkType }
func (f *fakeSender) Abort()                       { f.aborted = true }
func (f *fakeSender) Close() error                 { f.closed = true; return nil }
func (f *fakeSender) Send(b []byte) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return len(cp), nil
}

func newOpener(s *fakeSender) func(string, types.Direction) (sender.Sender, error) {
	return func(string, types.Direction) (sender.Sender, error) { return s, nil }
}

// writeTestPcap builds a tiny classic-pcap file with n packets, one
// microsecond apart, each of length payloadLen.
func writeTestPcap(t *testing.T, n, payloadLen int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatal(err)
	}

	base := time.Unix(1700000000, 0)
	payload := make([]byte, payloadLen)
	for i := 0; i < n; i++ {
		ci := gopacket.CaptureInfo{
			Timestamp:     base.Add(time.Duration(i) * time.Microsecond),
			CaptureLength: payloadLen,
			Length:        payloadLen,
		}
		if err := w.WritePacket(ci, payload); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func newTestContext(t *testing.T, path string, a *fakeSender) *Context {
	t.Helper()
	ctx := NewContext()
	if err := ctx.SetInterfaceA("eth-test", newOpener(a)); err != nil {
		t.Fatalf("SetInterfaceA: %v", err)
	}
	if err := ctx.SetSpeedMode(types.SpeedMode{Kind: types.SpeedTopspeed}); err != nil {
		t.Fatalf("SetSpeedMode: %v", err)
	}
	if err := ctx.AddSource(types.SourceSpec{Kind: types.SourceFilename, Filename: path}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	return ctx
}

func TestReplaySendsEveryPacketAtTopspeed(t *testing.T) {
	path := writeTestPcap(t, 5, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 5 {
		t.Errorf("PktsSent = %d, want 5", stats.PktsSent)
	}
	if len(a.sent) != 5 {
		t.Errorf("sender received %d packets, want 5", len(a.sent))
	}
	if ctx.IsRunning() {
		t.Error("IsRunning() should be false after Replay returns")
	}
}

func TestLimitSendStopsEarly(t *testing.T) {
	path := writeTestPcap(t, 10, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetLimitSend(3); err != nil {
		t.Fatalf("SetLimitSend: %v", err)
	}
	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 3 {
		t.Errorf("PktsSent = %d, want 3", stats.PktsSent)
	}
}

func TestLimitSendZeroSendsNothing(t *testing.T) {
	path := writeTestPcap(t, 10, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetLimitSend(0); err != nil {
		t.Fatalf("SetLimitSend: %v", err)
	}
	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 0 {
		t.Errorf("PktsSent = %d, want 0", stats.PktsSent)
	}
}

func TestOversizePacketCountsAsFailedNotFatal(t *testing.T) {
	path := writeTestPcap(t, 3, 2000)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetMTU(1500); err != nil {
		t.Fatalf("SetMTU: %v", err)
	}
	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.Failed != 3 {
		t.Errorf("Failed = %d, want 3", stats.Failed)
	}
	if stats.PktsSent != 0 {
		t.Errorf("PktsSent = %d, want 0", stats.PktsSent)
	}
}

func TestReplayRejectsSourceLinkTypeMismatch(t *testing.T) {
	path := writeTestPcap(t, 3, 64)
	a := &fakeSender{linkType: layers.LinkTypeRaw}
	ctx := newTestContext(t, path, a)

	if err := ctx.Replay(-1); err == nil {
		t.Fatal("Replay should reject a capture whose DLT doesn't match interface A")
	}
	if len(a.sent) != 0 {
		t.Errorf("sender A received %d packets, want 0", len(a.sent))
	}
}

func TestAbortStopsReplayEarly(t *testing.T) {
	path := writeTestPcap(t, 1000, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)
	if err := ctx.SetLoop(0); err != nil { // loop forever until aborted
		t.Fatalf("SetLoop: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- ctx.Replay(-1) }()

	time.Sleep(20 * time.Millisecond)
	ctx.Abort()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Replay: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Replay did not return within 2s of Abort")
	}

	if !a.aborted {
		t.Error("sender A should have been told to abort")
	}
}

func TestBitmapRoutesToBothInterfaces(t *testing.T) {
	path := writeTestPcap(t, 4, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	b := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetInterfaceB("eth-test-b", newOpener(b)); err != nil {
		t.Fatalf("SetInterfaceB: %v", err)
	}
	bm := bitmap.New([]byte{0x05}, 4, "") // B, A, B, A
	if err := ctx.SetBitmap(bm); err != nil {
		t.Fatalf("SetBitmap: %v", err)
	}

	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if len(a.sent) != 2 {
		t.Errorf("interface A received %d packets, want 2", len(a.sent))
	}
	if len(b.sent) != 2 {
		t.Errorf("interface B received %d packets, want 2", len(b.sent))
	}
}

func TestBitmapRejectedWithMultipleSources(t *testing.T) {
	path := writeTestPcap(t, 1, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.AddSource(types.SourceSpec{Kind: types.SourceFilename, Filename: path}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	bm := bitmap.New([]byte{0x00}, 1, "")
	if err := ctx.SetBitmap(bm); err == nil {
		t.Fatal("SetBitmap with two sources configured should fail")
	}
}

func TestOneAtATimeCallbackCanStopReplay(t *testing.T) {
	path := writeTestPcap(t, 10, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetSpeedMode(types.SpeedMode{Kind: types.SpeedOneAtATime}); err != nil {
		t.Fatalf("SetSpeedMode: %v", err)
	}

	sent := 0
	cb := func() types.ManualCallbackResult {
		sent++
		if sent >= 4 {
			return types.ManualStop
		}
		return types.ManualContinue
	}
	if err := ctx.SetManualCallback(cb); err != nil {
		t.Fatalf("SetManualCallback: %v", err)
	}

	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 4 {
		t.Errorf("PktsSent = %d, want 4", stats.PktsSent)
	}
}

func TestMultiLoopWithoutCacheReopensSource(t *testing.T) {
	path := writeTestPcap(t, 3, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetLoop(3); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}

	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 9 {
		t.Errorf("PktsSent = %d, want 9 (3 packets x 3 loops, re-read via Reopen each pass)", stats.PktsSent)
	}
}

func TestFileCacheServesSecondLoopFromMemory(t *testing.T) {
	path := writeTestPcap(t, 5, 64)
	a := &fakeSender{linkType: layers.LinkTypeEthernet}
	ctx := newTestContext(t, path, a)

	if err := ctx.SetFileCache(true); err != nil {
		t.Fatalf("SetFileCache: %v", err)
	}
	if err := ctx.SetLoop(2); err != nil {
		t.Fatalf("SetLoop: %v", err)
	}

	if err := ctx.Replay(-1); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	stats := ctx.GetStats()
	if stats.PktsSent != 10 {
		t.Errorf("PktsSent = %d, want 10 (5 packets x 2 loops)", stats.PktsSent)
	}
}
