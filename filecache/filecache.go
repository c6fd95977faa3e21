// Package filecache implements a per-source packet cache: on the
// first loop, optionally retain decoded packets in memory as a singly
// linked list; on later loops, serve them from memory instead of
// re-reading the source file.
package filecache

import "github.com/kestrel-net/packetloom/types"

// State is one of the three cache lifecycle states.
type State int

const (
	Absent State = iota
	Filling
	Filled
)

// entry is one node of the per-source linked list.
type entry struct {
	rec  types.PacketRecord
	next *entry
}

// Cache holds the decoded packets for a single source across the
// lifetime of a replay context. It is immutable once Filled.
type Cache struct {
	state State

	head *entry
	tail *entry
	cur  *entry
}

// New returns an empty, Absent cache.
func New() *Cache {
	return &Cache{}
}

// BeginFilling transitions Absent -> Filling. Calling it when the
// cache is not Absent is a no-op, matching the idempotent guard the
// replay loop applies ("filling on the first loop iteration when
// enable_file_cache is true").
func (c *Cache) BeginFilling() {
	if c.state == Absent {
		c.state = Filling
	}
}

// Append adds a decoded packet to the cache. Only valid while Filling.
func (c *Cache) Append(rec types.PacketRecord) {
	// Packet bytes must be heap-copied independently of the source
	// iterator's buffer, which pcap/pcapgo commonly reuses across reads.
	owned := make([]byte, len(rec.Bytes))
	copy(owned, rec.Bytes)
	rec.Bytes = owned

	node := &entry{rec: rec}
	if c.head == nil {
		c.head = node
	} else {
		c.tail.next = node
	}
	c.tail = node
}

// Finish transitions Filling -> Filled at source EOF. The list becomes
// immutable for the lifetime of the context from this point.
func (c *Cache) Finish() {
	if c.state == Filling {
		c.state = Filled
	}
}

// State reports the current lifecycle state.
func (c *Cache) State() State { return c.state }

// Reset rewinds the read cursor to the head of the list for a new
// loop pass. It never changes State — "filled" caches stay filled.
func (c *Cache) Reset() {
	c.cur = c.head
}

// Next returns the next cached record, or ok=false at the end of the
// list. Only meaningful once Filled (or, transiently, while iterating
// what has been Filled so far is undefined — callers only call Next
// after Reset on a Filled cache).
func (c *Cache) Next() (types.PacketRecord, bool) {
	if c.cur == nil {
		return types.PacketRecord{}, false
	}
	rec := c.cur.rec
	c.cur = c.cur.next
	return rec, true
}
