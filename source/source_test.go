package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-net/packetloom/filecache"
	"github.com/kestrel-net/packetloom/types"
)

func TestFromCacheIteratesAndResets(t *testing.T) {
	c := filecache.New()
	c.BeginFilling()
	c.Append(types.PacketRecord{CaptureTimeUs: 1})
	c.Append(types.PacketRecord{CaptureTimeUs: 2})
	c.Finish()

	r := FromCache(c)

	rec, err := r.Next()
	if err != nil || rec.CaptureTimeUs != 1 {
		t.Fatalf("first Next() = (%v, %v), want (1, nil)", rec, err)
	}
	rec, err = r.Next()
	if err != nil || rec.CaptureTimeUs != 2 {
		t.Fatalf("second Next() = (%v, %v), want (2, nil)", rec, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("third Next() error = %v, want io.EOF", err)
	}

	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenRejectsUnsupportedKind(t *testing.T) {
	if _, err := Open(types.SourceSpec{Kind: types.SourceCache}); err == nil {
		t.Fatal("Open of a cache-kind spec should fail; cache sources bypass Open")
	}
}

func TestDetectFormatPrefersPcapngMagic(t *testing.T) {
	dir := t.TempDir()

	ngPath := filepath.Join(dir, "capture.pcapng")
	if err := os.WriteFile(ngPath, []byte{0x0A, 0x0D, 0x0D, 0x0A, 0, 0, 0, 0}, 0o600); err != nil {
		t.Fatal(err)
	}
	format, err := detectFormat(ngPath)
	if err != nil {
		t.Fatalf("detectFormat: %v", err)
	}
	if format != "pcapng" {
		t.Errorf("format = %q, want pcapng", format)
	}

	pcapPath := filepath.Join(dir, "capture.pcap")
	if err := os.WriteFile(pcapPath, []byte{0xD4, 0xC3, 0xB2, 0xA1, 0, 0, 0, 0}, 0o600); err != nil {
		t.Fatal(err)
	}
	format, err = detectFormat(pcapPath)
	if err != nil {
		t.Fatalf("detectFormat: %v", err)
	}
	if format != "pcap" {
		t.Errorf("format = %q, want pcap", format)
	}
}

func TestDetectFormatDefaultsToPcapOnShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pcap")
	if err := os.WriteFile(path, []byte{1, 2}, 0o600); err != nil {
		t.Fatal(err)
	}

	format, err := detectFormat(path)
	if err != nil {
		t.Fatalf("detectFormat: %v", err)
	}
	if format != "pcap" {
		t.Errorf("format = %q, want pcap", format)
	}
}
