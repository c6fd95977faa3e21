// Package bitmap implements a classification bitmap: a bit-packed,
// little-endian-within-byte vector that routes each packet in a single
// source to interface A (bit 0) or B (bit 1).
//
// The on-disk format that produces this vector is out of scope for
// this package — generating one is an auxiliary concern; this package
// only owns the in-memory vector, its cursor, and a minimal loader for
// the self-describing format this repository writes and reads.
package bitmap

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/kestrel-net/packetloom/types"
)

// Bitmap is the parsed in-memory bit vector plus its free-form comment.
type Bitmap struct {
	Bits    []byte
	Length  int
	Comment string

	byteIdx int
	bitIdx  int
}

// New wraps a raw bit-packed vector. length is the number of valid bits
// (may be less than len(bits)*8).
func New(bits []byte, length int, comment string) *Bitmap {
	return &Bitmap{Bits: bits, Length: length, Comment: comment}
}

// Reset rewinds the cursor to the start of the vector. Called between
// sources and between loops.
func (b *Bitmap) Reset() {
	b.byteIdx = 0
	b.bitIdx = 0
}

// NextBit returns the interface selected by the next bit and advances
// the cursor. ok is false once every bit described by Length has been
// consumed — callers should treat that as "no bitmap opinion" and fall
// back to interface A.
func (b *Bitmap) NextBit() (iface types.Interface, ok bool) {
	pos := b.byteIdx*8 + b.bitIdx
	if pos >= b.Length || b.byteIdx >= len(b.Bits) {
		return types.InterfaceA, false
	}

	bit := (b.Bits[b.byteIdx] >> uint(b.bitIdx)) & 1

	b.bitIdx++
	if b.bitIdx == 8 {
		b.bitIdx = 0
		b.byteIdx++
	}

	if bit == 1 {
		return types.InterfaceB, true
	}
	return types.InterfaceA, true
}

// magic identifies this repository's own bitmap file format.
const magic = uint32(0x7042_6d70) // "pBmp"-ish, arbitrary

// Load reads a bitmap previously written by Save. The wire format is
// this repository's own; nothing requires it to match any other
// tool's on-disk cache layout, so the format carries no compatibility
// burden.
func Load(r io.Reader) (*Bitmap, error) {
	br := bufio.NewReader(r)

	var hdr struct {
		Magic   uint32
		Length  int32
		NBytes  int32
		CmtLen  int32
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.Magic); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap magic")
	}
	if hdr.Magic != magic {
		return nil, types.NewError(types.ErrorConfig, "not a packetloom bitmap file")
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.Length); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap length")
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.NBytes); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap byte count")
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.CmtLen); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap comment length")
	}

	bits := make([]byte, hdr.NBytes)
	if _, err := io.ReadFull(br, bits); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap bits")
	}

	comment := make([]byte, hdr.CmtLen)
	if _, err := io.ReadFull(br, comment); err != nil {
		return nil, types.WrapError(types.ErrorIO, err, "reading bitmap comment")
	}

	return New(bits, int(hdr.Length), string(comment)), nil
}

// Save writes b in this repository's own bitmap file format.
func Save(w io.Writer, b *Bitmap) error {
	bw := bufio.NewWriter(w)

	fields := []any{
		magic,
		int32(b.Length),
		int32(len(b.Bits)),
		int32(len(b.Comment)),
	}
	for _, f := range fields {
		if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
			return types.WrapError(types.ErrorIO, err, "writing bitmap header")
		}
	}
	if _, err := bw.Write(b.Bits); err != nil {
		return types.WrapError(types.ErrorIO, err, "writing bitmap bits")
	}
	if _, err := bw.WriteString(b.Comment); err != nil {
		return types.WrapError(types.ErrorIO, err, "writing bitmap comment")
	}
	return bw.Flush()
}
