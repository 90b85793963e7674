package tomasulo

import (
	"github.com/twosigma/frost-sub005/insts"
)

// StoreQueueDepth is the number of in-flight stores tracked.
const StoreQueueDepth = 8

// SQEntry tracks one in-flight store. The address arrives from address
// generation and the data from the CDB, independently; both must be
// valid before the store can retire into memory, which happens only at
// ROB commit of its tag.
type SQEntry struct {
	Valid bool
	Tag   Tag

	AddrValid bool
	Addr      uint64
	Size      insts.MemSize

	// Data is the store value operand: a tag to snoop for, or the
	// resolved value.
	Data Operand
}

// overlaps reports whether the store's byte range intersects
// [addr, addr+size).
func (e *SQEntry) overlaps(addr, size uint64) bool {
	return e.Addr < addr+size && addr < e.Addr+e.Size.Bytes()
}

// covers reports whether the store's byte range fully contains
// [addr, addr+size), which is what makes direct forwarding possible.
func (e *SQEntry) covers(addr, size uint64) bool {
	return e.Addr <= addr && addr+size <= e.Addr+e.Size.Bytes()
}

// Disambiguation is the result of checking a load against all older
// stores in the queue.
type Disambiguation struct {
	// AllOlderKnown is false while any older store's address is still
	// unknown; the load must not issue to memory or forward.
	AllOlderKnown bool
	// Match indicates an older store with a known address overlaps the
	// load, so the load must not read memory.
	Match bool
	// CanForward indicates the youngest overlapping older store covers
	// the load's bytes and its data is valid; Data then holds the
	// forwarded value, already shifted into load alignment.
	CanForward bool
	Data       uint64
}

// StoreQueue tracks in-flight stores in program order, performs address
// disambiguation for loads, and forwards store data to overlapping
// younger loads.
type StoreQueue struct {
	entries [StoreQueueDepth]SQEntry
	head    uint8 // mod 2*depth
	tail    uint8 // mod 2*depth

	stats StoreQueueStats
}

// StoreQueueStats holds store queue counters.
type StoreQueueStats struct {
	Allocations uint64
	Retirements uint64
	Forwards    uint64
}

// NewStoreQueue creates an empty store queue.
func NewStoreQueue() *StoreQueue {
	return &StoreQueue{}
}

const sqPtrWrap = 2 * StoreQueueDepth

func (q *StoreQueue) headIdx() int { return int(q.head % StoreQueueDepth) }
func (q *StoreQueue) tailIdx() int { return int(q.tail % StoreQueueDepth) }

// Count returns the number of valid entries.
func (q *StoreQueue) Count() int {
	n := 0
	for i := range q.entries {
		if q.entries[i].Valid {
			n++
		}
	}
	return n
}

// Full reports whether no slot is free.
func (q *StoreQueue) Full() bool {
	return q.Count() == StoreQueueDepth
}

// Empty reports whether no stores are in flight.
func (q *StoreQueue) Empty() bool {
	return q.Count() == 0
}

// Stats returns queue counters.
func (q *StoreQueue) Stats() StoreQueueStats {
	return q.stats
}

// Alloc claims the tail slot for a store dispatched this cycle. data is
// the value operand resolved from the RAT; a pending operand is bypassed
// against the current cycle's broadcast before being parked to snoop.
func (q *StoreQueue) Alloc(tag Tag, size insts.MemSize, data Operand, cdb Broadcast) bool {
	if q.Full() {
		return false
	}

	q.entries[q.tailIdx()] = SQEntry{
		Valid: true,
		Tag:   tag,
		Size:  size,
		Data:  bypass(data, cdb),
	}
	q.tail = (q.tail + 1) % sqPtrWrap
	q.stats.Allocations++
	return true
}

// UpdateAddress fills in the address computed by address generation for
// the store owning tag.
func (q *StoreQueue) UpdateAddress(tag Tag, addr uint64) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && !e.AddrValid && e.Tag == tag {
			e.AddrValid = true
			e.Addr = addr
		}
	}
}

// Snoop captures store data whose producer tag appears on the CDB.
func (q *StoreQueue) Snoop(cdb Broadcast) {
	if !cdb.Valid {
		return
	}

	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && !e.Data.Ready && e.Data.Tag == cdb.Tag {
			e.Data = ReadyOperand(cdb.Value)
		}
	}
}

// Disambiguate checks a load at loadTag against every older store.
// Policy, oldest conservative first: an unknown older address blocks the
// load entirely; otherwise the youngest overlapping store decides
// whether the load forwards, stalls for data, or is free to read memory.
func (q *StoreQueue) Disambiguate(loadTag Tag, addr uint64, size insts.MemSize, head Tag) Disambiguation {
	result := Disambiguation{AllOlderKnown: true}
	loadAge := AgeOf(loadTag, head)
	bytes := size.Bytes()

	var youngest *SQEntry
	var youngestAge uint8
	for i := range q.entries {
		e := &q.entries[i]
		if !e.Valid || AgeOf(e.Tag, head) >= loadAge {
			continue
		}
		if !e.AddrValid {
			result.AllOlderKnown = false
			continue
		}
		if !e.overlaps(addr, bytes) {
			continue
		}
		result.Match = true
		age := AgeOf(e.Tag, head)
		if youngest == nil || age > youngestAge {
			youngest = e
			youngestAge = age
		}
	}

	if result.AllOlderKnown && youngest != nil &&
		youngest.covers(addr, bytes) && youngest.Data.Ready {
		shift := (addr - youngest.Addr) * 8
		mask := ^uint64(0)
		if bytes < 8 {
			mask = (uint64(1) << (bytes * 8)) - 1
		}
		result.CanForward = true
		result.Data = (youngest.Data.Value >> shift) & mask
		q.stats.Forwards++
	}

	return result
}

// Ready reports whether the store owning tag has both address and data
// valid, making it eligible to retire at commit.
func (q *StoreQueue) Ready(tag Tag) bool {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && e.Tag == tag {
			return e.AddrValid && e.Data.Ready
		}
	}
	return false
}

// Retire removes the store owning tag and returns its access. Called at
// ROB commit, which is what keeps memory writes in program order.
func (q *StoreQueue) Retire(tag Tag) (addr uint64, size insts.MemSize, data uint64, ok bool) {
	e := &q.entries[q.headIdx()]
	if !e.Valid || e.Tag != tag || !e.AddrValid || !e.Data.Ready {
		return 0, 0, 0, false
	}

	addr, size, data = e.Addr, e.Size, e.Data.Value
	e.Valid = false
	q.head = (q.head + 1) % sqPtrWrap
	q.stats.Retirements++
	return addr, size, data, true
}

// Invalidate drops the store owning tag without retiring it. Used when
// address generation reports a misaligned store.
func (q *StoreQueue) Invalidate(tag Tag) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && e.Tag == tag {
			e.Valid = false
		}
	}
	q.retractTail()
}

// FlushYounger invalidates stores younger than the boundary and
// retracts the tail past the invalidated run.
func (q *StoreQueue) FlushYounger(boundary, head Tag) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && YoungerThan(e.Tag, boundary, head) {
			e.Valid = false
		}
	}
	q.retractTail()
}

// FlushAll empties the queue.
func (q *StoreQueue) FlushAll() {
	for i := range q.entries {
		q.entries[i].Valid = false
	}
	q.tail = q.head
}

// retractTail walks the tail back over consecutive invalid slots so
// freed capacity is reusable.
func (q *StoreQueue) retractTail() {
	for q.tail != q.head && !q.entries[(q.tail-1)%StoreQueueDepth].Valid {
		q.tail = (q.tail - 1 + sqPtrWrap) % sqPtrWrap
	}
}
