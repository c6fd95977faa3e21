// Package source implements a uniform source-iterator contract:
// open/next/close over a filename, a caller-supplied file descriptor,
// or a memory-cached packet list.
package source

import (
	"io"

	"github.com/google/gopacket/layers"

	"github.com/kestrel-net/packetloom/filecache"
	"github.com/kestrel-net/packetloom/types"
)

// Reader is the uniform iteration contract. Next returns io.EOF (via
// the error return) when the source is exhausted.
type Reader interface {
	Next() (types.PacketRecord, error)
	Close() error
}

// Rewindable sources can be reopened for another loop pass. Filename
// sources are; fd and cache sources are not (cache sources instead
// reuse Reset, see cacheReader).
type Rewindable interface {
	Reopen() (Reader, error)
}

// LinkTyper is implemented by sources that can report the link-layer
// type of the capture they're reading. The engine checks this against
// the configured sender handles via dispatch.ValidateSourceLinkType
// each time it opens such a source; fd and cache sources don't
// implement it and are exempt.
type LinkTyper interface {
	LinkType() layers.LinkType
}

// Open dispatches on a SourceSpec's Kind to the concrete Reader for
// that source. Cache sources are never opened this way — the replay
// loop reads them directly off a *filecache.Cache once Filled.
func Open(spec types.SourceSpec) (Reader, error) {
	switch spec.Kind {
	case types.SourceFilename:
		return openFile(spec.Filename)
	case types.SourceFD:
		return openFD(spec.FD)
	default:
		return nil, types.NewError(types.ErrorConfig, "source.Open: unsupported source kind %d", spec.Kind)
	}
}

// cacheReader adapts a filled filecache.Cache to the Reader contract,
// used once a source has reached the Filled state.
type cacheReader struct {
	cache *filecache.Cache
}

// FromCache returns a Reader over an already-Filled cache, having
// reset its cursor to the start. The replay loop calls this at the
// start of every loop pass once a source's cache state is Filled.
func FromCache(c *filecache.Cache) Reader {
	c.Reset()
	return &cacheReader{cache: c}
}

func (r *cacheReader) Next() (types.PacketRecord, error) {
	rec, ok := r.cache.Next()
	if !ok {
		return types.PacketRecord{}, io.EOF
	}
	return rec, nil
}

func (r *cacheReader) Close() error { return nil }
