package source

import (
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"github.com/kestrel-net/packetloom/types"
)

// packetDataSource is the minimal surface both pcap.Handle and
// pcapgo.NgReader satisfy; kept as its own interface so fileReader
// doesn't care which format it is backed by.
type packetDataSource interface {
	LinkType() layers.LinkType
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
	Close()
}

// fileReader reads (timestamp, length, bytes) records straight off a
// capture file, re-openable for loop > 1 since it is backed by a
// filename rather than a live descriptor. It never decodes beyond the
// link-layer framing — the replay engine has no use for packet
// contents, only for replaying the original bytes.
type fileReader struct {
	path string
	src  packetDataSource
}

func openFile(path string) (Reader, error) {
	src, err := openPacketDataSource(path)
	if err != nil {
		return nil, err
	}
	return &fileReader{path: path, src: src}, nil
}

func (f *fileReader) Next() (types.PacketRecord, error) {
	data, ci, err := f.src.ReadPacketData()
	if err == io.EOF {
		return types.PacketRecord{}, io.EOF
	}
	if err != nil {
		return types.PacketRecord{}, types.WrapError(types.ErrorIO, err, "reading packet from %s", f.path)
	}
	return types.PacketRecord{
		CaptureTimeUs:  ci.Timestamp.UnixMicro(),
		CapturedLength: uint32(len(data)),
		OriginalLength: uint32(ci.Length),
		Bytes:          data,
	}, nil
}

func (f *fileReader) Close() error {
	f.src.Close()
	return nil
}

// Reopen satisfies Rewindable: filename sources may be re-read for
// each loop pass when the file cache is disabled.
func (f *fileReader) Reopen() (Reader, error) {
	return openFile(f.path)
}

// LinkType exposes the underlying capture's link type. Satisfies
// LinkTyper, checked against the configured sender handles by
// dispatch.ValidateSourceLinkType when the engine opens this source.
func (f *fileReader) LinkType() layers.LinkType {
	return f.src.LinkType()
}

func openPacketDataSource(path string) (packetDataSource, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == "pcapng" {
		file, err := os.Open(path)
		if err != nil {
			return nil, types.WrapError(types.ErrorResource, err, "opening %s", path)
		}
		reader, err := pcapgo.NewNgReader(file, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			file.Close()
			return nil, types.WrapError(types.ErrorResource, err, "parsing pcapng header in %s", path)
		}
		return &ngSource{reader: reader, file: file}, nil
	}

	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, types.WrapError(types.ErrorResource, err, "opening %s", path)
	}
	return &offlineSource{handle: handle}, nil
}

type offlineSource struct {
	handle *pcap.Handle
}

func (s *offlineSource) LinkType() layers.LinkType { return s.handle.LinkType() }
func (s *offlineSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.handle.ReadPacketData()
}
func (s *offlineSource) Close() { s.handle.Close() }

type ngSource struct {
	reader *pcapgo.NgReader
	file   *os.File
}

func (s *ngSource) LinkType() layers.LinkType { return s.reader.LinkType() }
func (s *ngSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return s.reader.ReadPacketData()
}
func (s *ngSource) Close() { s.file.Close() }

// detectFormat sniffs the first 4 bytes of path for the pcapng section
// header magic (0x0A0D0D0A); anything else, including a file shorter
// than 4 bytes, is reported as classic pcap.
func detectFormat(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", types.WrapError(types.ErrorResource, err, "opening %s", path)
	}
	defer file.Close()

	header := make([]byte, 8)
	n, err := file.Read(header)
	if err != nil || n < 4 {
		return "pcap", nil
	}

	magic := uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16 | uint32(header[3])<<24
	if magic == 0x0A0D0D0A {
		return "pcapng", nil
	}
	return "pcap", nil
}
