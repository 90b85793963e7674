package tomasulo

import (
	"github.com/twosigma/frost-sub005/insts"
)

// LoadQueueDepth is the number of in-flight loads tracked.
const LoadQueueDepth = 8

// LQEntry tracks one in-flight load from dispatch until its data has
// been broadcast on the CDB.
type LQEntry struct {
	Valid bool
	Tag   Tag

	AddrValid bool
	Addr      uint64
	Size      insts.MemSize
	SignExt   bool

	// Issued marks a memory read in flight for this entry.
	Issued bool

	DataValid bool
	Data      uint64
	// Forwarded records that Data came from the store queue, not
	// memory.
	Forwarded bool
}

// MemRequest is a read issued to the memory interface.
type MemRequest struct {
	Addr uint64
	Size insts.MemSize
}

// LoadQueue tracks in-flight loads in program order. Once a load's
// address is known it is disambiguated against all older stores; it then
// forwards from the store queue, completes from the L0 cache, or issues
// a memory read. Only one load may be in flight to memory at a time, and
// completed loads compete for the CDB like any other producer.
type LoadQueue struct {
	entries [LoadQueueDepth]LQEntry
	head    uint8 // mod 2*depth
	tail    uint8 // mod 2*depth

	memOutstanding bool
	issuedIdx      int
	issuedTag      Tag

	hits []pendingHit

	stats LoadQueueStats
}

// pendingHit is a cache-hit fill still counting down its latency.
type pendingHit struct {
	idx  int
	tag  Tag
	wait uint64
	data uint64
}

// LoadQueueStats holds load queue counters.
type LoadQueueStats struct {
	Allocations uint64
	MemReads    uint64
	Forwards    uint64
	CacheHits   uint64
	Violations  uint64
}

// NewLoadQueue creates an empty load queue.
func NewLoadQueue() *LoadQueue {
	return &LoadQueue{}
}

const lqPtrWrap = 2 * LoadQueueDepth

func (q *LoadQueue) headIdx() int { return int(q.head % LoadQueueDepth) }

// Count returns the number of valid entries.
func (q *LoadQueue) Count() int {
	n := 0
	for i := range q.entries {
		if q.entries[i].Valid {
			n++
		}
	}
	return n
}

// Full reports whether no slot is free.
func (q *LoadQueue) Full() bool {
	return q.Count() == LoadQueueDepth
}

// Empty reports whether no loads are in flight.
func (q *LoadQueue) Empty() bool {
	return q.Count() == 0
}

// MemOutstanding reports whether a memory read is in flight.
func (q *LoadQueue) MemOutstanding() bool {
	return q.memOutstanding
}

// Stats returns queue counters.
func (q *LoadQueue) Stats() LoadQueueStats {
	return q.stats
}

// Alloc claims the tail slot for a load dispatched this cycle. The
// address is unknown until address generation completes.
func (q *LoadQueue) Alloc(tag Tag, size insts.MemSize, signExt bool) bool {
	if q.Full() {
		return false
	}

	q.entries[int(q.tail%LoadQueueDepth)] = LQEntry{
		Valid:   true,
		Tag:     tag,
		Size:    size,
		SignExt: signExt,
	}
	q.tail = (q.tail + 1) % lqPtrWrap
	q.stats.Allocations++
	return true
}

// UpdateAddress fills in the generated address for the load owning tag.
func (q *LoadQueue) UpdateAddress(tag Tag, addr uint64) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && !e.AddrValid && e.Tag == tag {
			e.AddrValid = true
			e.Addr = addr
		}
	}
}

// scan walks the queue from head to tail and returns the oldest entry
// with data ready to broadcast and the oldest entry wanting memory.
// Either index is -1 when no candidate exists.
func (q *LoadQueue) scan() (cdbIdx, memIdx int) {
	cdbIdx, memIdx = -1, -1
	for i := 0; i < LoadQueueDepth; i++ {
		idx := (q.headIdx() + i) % LoadQueueDepth
		e := &q.entries[idx]
		if !e.Valid {
			continue
		}
		if cdbIdx < 0 && e.DataValid {
			cdbIdx = idx
		}
		if memIdx < 0 && e.AddrValid && !e.Issued && !e.DataValid {
			memIdx = idx
		}
	}
	return cdbIdx, memIdx
}

// MemCandidate returns the oldest load whose address is known but whose
// data is not, if no memory read is already outstanding.
func (q *LoadQueue) MemCandidate() (*LQEntry, bool) {
	_, memIdx := q.scan()
	if memIdx < 0 || q.memOutstanding {
		return nil, false
	}
	return &q.entries[memIdx], true
}

// ApplyForward completes the current memory candidate with data
// forwarded from the store queue, bypassing memory entirely.
func (q *LoadQueue) ApplyForward(data uint64) {
	_, memIdx := q.scan()
	if memIdx < 0 {
		return
	}
	e := &q.entries[memIdx]
	e.Data = extend(data, e.Size, e.SignExt)
	e.DataValid = true
	e.Forwarded = true
	q.stats.Forwards++
}

// CompleteFromCache completes the current memory candidate with data
// read from the L0 cache, without issuing a memory request. The data
// becomes visible after the configured hit latency; a latency of one
// completes the entry this cycle.
func (q *LoadQueue) CompleteFromCache(data uint64, hitLatency uint64) {
	_, memIdx := q.scan()
	if memIdx < 0 {
		return
	}
	e := &q.entries[memIdx]
	q.stats.CacheHits++

	if hitLatency <= 1 {
		e.Data = extend(data, e.Size, e.SignExt)
		e.DataValid = true
		return
	}

	e.Issued = true
	q.hits = append(q.hits, pendingHit{idx: memIdx, tag: e.Tag, wait: hitLatency, data: data})
}

// TickHits advances pending cache-hit fills one cycle. Fills whose
// entry was flushed are dropped.
func (q *LoadQueue) TickHits() {
	kept := q.hits[:0]
	for _, h := range q.hits {
		e := &q.entries[h.idx]
		if !e.Valid || e.Tag != h.tag {
			continue
		}
		h.wait--
		if h.wait == 0 {
			e.Data = extend(h.data, e.Size, e.SignExt)
			e.DataValid = true
			continue
		}
		kept = append(kept, h)
	}
	q.hits = kept
}

// IssueToMemory marks the current memory candidate as issued and
// returns the read request. Only one read may be outstanding.
func (q *LoadQueue) IssueToMemory() (MemRequest, bool) {
	_, memIdx := q.scan()
	if memIdx < 0 || q.memOutstanding {
		return MemRequest{}, false
	}

	e := &q.entries[memIdx]
	e.Issued = true
	q.memOutstanding = true
	q.issuedIdx = memIdx
	q.issuedTag = e.Tag
	q.stats.MemReads++
	return MemRequest{Addr: e.Addr, Size: e.Size}, true
}

// MemResponse completes the issued load with data from memory. If the
// entry was flushed while the read was in flight, the stale response is
// drained and discarded, even when a later load has reused the slot.
func (q *LoadQueue) MemResponse(data uint64) {
	if !q.memOutstanding {
		return
	}
	q.memOutstanding = false

	e := &q.entries[q.issuedIdx]
	if !e.Valid || !e.Issued || e.Tag != q.issuedTag {
		return // stale response for a flushed load
	}
	e.Data = extend(data, e.Size, e.SignExt)
	e.DataValid = true
}

// BroadcastCandidate returns the completion for the oldest data-valid
// load. The entry is freed by FreeBroadcast once its result is absorbed
// by the CDB adapter. While the adapter is holding an earlier result no
// candidate is presented.
func (q *LoadQueue) BroadcastCandidate(adapterPending bool) (Completion, bool) {
	if adapterPending {
		return Completion{}, false
	}

	cdbIdx, _ := q.scan()
	if cdbIdx < 0 {
		return Completion{}, false
	}

	e := &q.entries[cdbIdx]
	return Completion{Valid: true, Tag: e.Tag, Value: e.Data}, true
}

// FreeBroadcast releases the entry whose completion was handed to the
// CDB adapter this cycle.
func (q *LoadQueue) FreeBroadcast() {
	cdbIdx, _ := q.scan()
	if cdbIdx >= 0 {
		q.entries[cdbIdx].Valid = false
		q.advanceHead()
	}
}

// Invalidate drops the load owning tag without completing it. Used when
// address generation reports a misaligned load.
func (q *LoadQueue) Invalidate(tag Tag) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && e.Tag == tag {
			e.Valid = false
		}
	}
	q.advanceHead()
	q.retractTail()
	q.dropDeadHits()
}

// CheckViolation scans for a load younger than storeTag that already
// obtained data overlapping the store's just-resolved address. Under
// conservative disambiguation this cannot happen, but a late-discovered
// overlap is fatal to the load's result and must flush it. Returns the
// oldest violating load's tag.
func (q *LoadQueue) CheckViolation(storeTag Tag, addr uint64, size insts.MemSize, head Tag) (Tag, bool) {
	storeAge := AgeOf(storeTag, head)
	bytes := size.Bytes()

	found := false
	var foundTag Tag
	var foundAge uint8
	for i := range q.entries {
		e := &q.entries[i]
		if !e.Valid || !e.AddrValid {
			continue
		}
		if !e.DataValid && !e.Issued {
			continue
		}
		age := AgeOf(e.Tag, head)
		if age <= storeAge {
			continue
		}
		if e.Addr < addr+bytes && addr < e.Addr+e.Size.Bytes() {
			if !found || age < foundAge {
				found = true
				foundTag = e.Tag
				foundAge = age
			}
		}
	}

	if found {
		q.stats.Violations++
	}
	return foundTag, found
}

// FlushYounger invalidates loads younger than the boundary and retracts
// the tail. An outstanding memory read for a flushed entry is left to
// drain; MemResponse discards the stale data when it arrives.
func (q *LoadQueue) FlushYounger(boundary, head Tag) {
	for i := range q.entries {
		e := &q.entries[i]
		if e.Valid && YoungerThan(e.Tag, boundary, head) {
			e.Valid = false
		}
	}
	q.advanceHead()
	q.retractTail()
	q.dropDeadHits()
}

// FlushAll empties the queue. An outstanding memory read is left to
// drain.
func (q *LoadQueue) FlushAll() {
	for i := range q.entries {
		q.entries[i].Valid = false
	}
	q.tail = q.head
	q.hits = nil
}

// dropDeadHits discards pending cache-hit fills whose entry was
// invalidated, before a reallocated slot can absorb them.
func (q *LoadQueue) dropDeadHits() {
	kept := q.hits[:0]
	for _, h := range q.hits {
		e := &q.entries[h.idx]
		if e.Valid && e.Tag == h.tag {
			kept = append(kept, h)
		}
	}
	q.hits = kept
}

// advanceHead moves the head past freed entries.
func (q *LoadQueue) advanceHead() {
	for q.head != q.tail && !q.entries[q.headIdx()].Valid {
		q.head = (q.head + 1) % lqPtrWrap
	}
}

// retractTail walks the tail back over consecutive invalid slots.
func (q *LoadQueue) retractTail() {
	for q.tail != q.head && !q.entries[(q.tail-1)%LoadQueueDepth].Valid {
		q.tail = (q.tail - 1 + lqPtrWrap) % lqPtrWrap
	}
}

// extend sign- or zero-extends a raw loaded value of the given size.
func extend(value uint64, size insts.MemSize, signExt bool) uint64 {
	bits := size.Bytes() * 8
	if bits >= 64 {
		return value
	}
	mask := (uint64(1) << bits) - 1
	value &= mask
	if signExt && value&(uint64(1)<<(bits-1)) != 0 {
		value |= ^mask
	}
	return value
}
