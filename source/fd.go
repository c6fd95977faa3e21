package source

import (
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"

	"github.com/kestrel-net/packetloom/types"
)

// fdReader consumes packets from a caller-supplied descriptor via a
// pcapgo.Reader (classic pcap framing over a stream). It is not
// Rewindable; a fd source combined with loop != 1 is rejected by the
// engine's AddSource validation, not here.
type fdReader struct {
	file   *os.File
	reader *pcapgo.Reader
}

func openFD(fd uintptr) (Reader, error) {
	f := os.NewFile(fd, "fd")
	if f == nil {
		return nil, types.NewError(types.ErrorResource, "invalid file descriptor")
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, types.WrapError(types.ErrorResource, err, "parsing pcap header on fd")
	}
	return &fdReader{file: f, reader: r}, nil
}

func (f *fdReader) Next() (types.PacketRecord, error) {
	data, ci, err := f.reader.ReadPacketData()
	if err == io.EOF {
		return types.PacketRecord{}, io.EOF
	}
	if err != nil {
		return types.PacketRecord{}, types.WrapError(types.ErrorIO, err, "reading packet from fd")
	}
	return types.PacketRecord{
		CaptureTimeUs:  ci.Timestamp.UnixMicro(),
		CapturedLength: uint32(len(data)),
		OriginalLength: uint32(ci.Length),
		Bytes:          data,
	}, nil
}

func (f *fdReader) Close() error {
	return f.file.Close()
}
