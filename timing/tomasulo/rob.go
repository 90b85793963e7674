package tomasulo

import (
	"fmt"
	"strings"

	"github.com/twosigma/frost-sub005/emu"
	"github.com/twosigma/frost-sub005/insts"
)

// ROBEntry is one in-flight instruction's bookkeeping slot. Entries are
// allocated at the tail in program order, mutated by CDB broadcasts, and
// retired from the head in program order.
type ROBEntry struct {
	Valid bool
	Done  bool

	PC uint64
	Op insts.Op

	// Destination register, meaningful when DestValid.
	DestValid bool
	DestRF    insts.RegFile
	DestReg   uint8

	// Value is the result to write at commit.
	Value uint64

	// Exception capture. Acted on only when the entry reaches the head.
	Exception bool
	Cause     emu.ExcCause

	// Replay marks a memory-ordering violation: the entry re-executes
	// after a full flush instead of trapping.
	Replay bool

	// Store bookkeeping.
	IsStore bool

	// Branch bookkeeping.
	IsBranch        bool
	PredictedTaken  bool
	PredictedTarget uint64
	Taken           bool
	Target          uint64
	Mispredicted    bool
	Resolved        bool
	// Recovered is set when misprediction recovery already ran at
	// resolution time, so commit must not flush again.
	Recovered bool

	// Checkpoint allocated for this branch, if any.
	HasCheckpoint bool
	CheckpointID  int
}

// AllocationRequest carries the dispatch-time fields of a new entry.
type AllocationRequest struct {
	PC uint64
	Op insts.Op

	DestValid bool
	DestRF    insts.RegFile
	DestReg   uint8

	IsStore  bool
	IsBranch bool

	PredictedTaken  bool
	PredictedTarget uint64

	// DoneAtDispatch marks entries that need no execution result:
	// jumps with a known link value, fences, stores (whose readiness
	// is tracked in the store queue), and halts.
	DoneAtDispatch bool
	// Value is the dispatch-time result (jump link address).
	Value uint64
}

// CommitInfo describes one committed instruction.
type CommitInfo struct {
	Tag Tag
	PC  uint64
	Op  insts.Op

	DestValid bool
	DestRF    insts.RegFile
	DestReg   uint8
	Value     uint64

	IsStore bool

	Exception bool
	Cause     emu.ExcCause
	Replay    bool

	IsBranch     bool
	Taken        bool
	Target       uint64
	Mispredicted bool
	Recovered    bool
	// RedirectPC is where the front end resumes after a misprediction
	// handled at commit.
	RedirectPC uint64

	HasCheckpoint bool
	CheckpointID  int
}

// ROB is the reorder buffer: a circular, tag-indexed record of every
// in-flight instruction and the single source of program order. Head and
// tail pointers carry a wrap bit so full and empty are distinguishable.
type ROB struct {
	entries [ROBDepth]ROBEntry
	head    uint8 // mod 2*ROBDepth
	tail    uint8 // mod 2*ROBDepth

	stats ROBStats
}

// ROBStats holds reorder buffer counters.
type ROBStats struct {
	Allocations uint64
	Commits     uint64
	Flushes     uint64
}

// NewROB creates an empty reorder buffer.
func NewROB() *ROB {
	return &ROB{}
}

const ptrWrap = 2 * ROBDepth

// Head returns the tag of the oldest in-flight instruction.
func (r *ROB) Head() Tag {
	return Tag(r.head & tagMask)
}

// Tail returns the tag the next allocation will receive.
func (r *ROB) Tail() Tag {
	return Tag(r.tail & tagMask)
}

// Full reports whether all slots are occupied.
func (r *ROB) Full() bool {
	return (r.tail^r.head)&(ptrWrap-1) == ROBDepth
}

// Empty reports whether no instructions are in flight.
func (r *ROB) Empty() bool {
	return r.tail == r.head
}

// Count returns the number of in-flight instructions.
func (r *ROB) Count() int {
	return int((r.tail - r.head + ptrWrap) % ptrWrap)
}

// Entry returns a pointer to the slot owned by tag.
func (r *ROB) Entry(tag Tag) *ROBEntry {
	return &r.entries[tag&tagMask]
}

// Stats returns reorder buffer counters.
func (r *ROB) Stats() ROBStats {
	return r.stats
}

// Allocate claims the tail slot for a new instruction and returns its
// tag. It fails when the buffer is full; dispatch must stall.
func (r *ROB) Allocate(req AllocationRequest) (Tag, bool) {
	if r.Full() {
		return 0, false
	}

	tag := r.Tail()
	entry := r.Entry(tag)
	*entry = ROBEntry{
		Valid:           true,
		Done:            req.DoneAtDispatch,
		PC:              req.PC,
		Op:              req.Op,
		DestValid:       req.DestValid,
		DestRF:          req.DestRF,
		DestReg:         req.DestReg,
		Value:           req.Value,
		IsStore:         req.IsStore,
		IsBranch:        req.IsBranch,
		PredictedTaken:  req.PredictedTaken,
		PredictedTarget: req.PredictedTarget,
	}

	r.tail = (r.tail + 1) % ptrWrap
	r.stats.Allocations++
	return tag, true
}

// SetCheckpoint records the checkpoint slot saved for a branch entry.
func (r *ROB) SetCheckpoint(tag Tag, id int) {
	entry := r.Entry(tag)
	if entry.Valid {
		entry.HasCheckpoint = true
		entry.CheckpointID = id
	}
}

// Complete applies a CDB broadcast to the owning entry: the result value
// and any captured exception are recorded and the entry becomes done.
// Broadcasts for flushed tags are ignored; broadcasts to an entry that
// was done at dispatch may still attach an exception (a misaligned
// store reports through the CDB even though store readiness is tracked
// in the store queue).
func (r *ROB) Complete(b Broadcast) {
	if !b.Valid {
		return
	}

	entry := r.Entry(b.Tag)
	if !entry.Valid {
		return
	}

	if !entry.Done {
		entry.Value = b.Value
	}
	entry.Done = true
	if b.Exception {
		entry.Exception = true
		entry.Cause = b.Cause
	}
}

// BranchResolve records the actual outcome of a branch. mispredicted is
// the authoritative flag from the branch unit comparing the outcome
// against the prediction carried since dispatch.
func (r *ROB) BranchResolve(tag Tag, taken bool, target uint64, mispredicted bool) {
	entry := r.Entry(tag)
	if !entry.Valid || !entry.IsBranch {
		return
	}

	entry.Taken = taken
	entry.Target = target
	entry.Mispredicted = mispredicted
	entry.Resolved = true
	entry.Done = true
}

// MarkRecovered flags a branch entry whose misprediction recovery
// already ran at resolution time.
func (r *ROB) MarkRecovered(tag Tag) {
	entry := r.Entry(tag)
	if entry.Valid {
		entry.Recovered = true
	}
}

// MarkReplay flags an entry for flush-and-reexecute at commit. Used for
// late-discovered memory ordering violations.
func (r *ROB) MarkReplay(tag Tag) {
	entry := r.Entry(tag)
	if entry.Valid {
		entry.Replay = true
		entry.Done = true
	}
}

// CanCommit reports whether the head entry is ready to retire. Commit is
// strictly head-first: a later tag can never commit before an earlier
// one, which is what makes exceptions precise.
func (r *ROB) CanCommit() bool {
	if r.Empty() {
		return false
	}
	head := r.Entry(r.Head())
	return head.Valid && head.Done
}

// Commit retires the head entry and frees its slot. Call only after
// CanCommit reports true.
func (r *ROB) Commit() CommitInfo {
	tag := r.Head()
	entry := r.Entry(tag)

	info := CommitInfo{
		Tag:           tag,
		PC:            entry.PC,
		Op:            entry.Op,
		DestValid:     entry.DestValid,
		DestRF:        entry.DestRF,
		DestReg:       entry.DestReg,
		Value:         entry.Value,
		IsStore:       entry.IsStore,
		Exception:     entry.Exception,
		Cause:         entry.Cause,
		Replay:        entry.Replay,
		IsBranch:      entry.IsBranch,
		Taken:         entry.Taken,
		Target:        entry.Target,
		Mispredicted:  entry.IsBranch && entry.Mispredicted,
		Recovered:     entry.Recovered,
		HasCheckpoint: entry.HasCheckpoint,
		CheckpointID:  entry.CheckpointID,
	}

	if info.Mispredicted {
		if entry.Taken {
			info.RedirectPC = entry.Target
		} else {
			info.RedirectPC = entry.PC + 4
		}
	}

	entry.Valid = false
	r.head = (r.head + 1) % ptrWrap
	r.stats.Commits++
	return info
}

// FlushYounger invalidates every entry younger than the boundary tag and
// retracts the tail to just past the boundary. The boundary entry and
// everything older survive untouched.
func (r *ROB) FlushYounger(boundary Tag) {
	head := r.Head()

	idx := Tag((boundary + 1)) & tagMask
	for idx != r.Tail() {
		r.entries[idx].Valid = false
		idx = (idx + 1) & tagMask
	}

	boundaryAge := AgeOf(boundary, head)
	r.tail = (r.head + uint8(boundaryAge) + 1) % ptrWrap
	r.stats.Flushes++
}

// FlushAll discards every in-flight entry.
func (r *ROB) FlushAll() {
	for i := range r.entries {
		r.entries[i].Valid = false
	}
	r.tail = r.head
	r.stats.Flushes++
}

// DumpState returns a debug summary of the buffer.
func (r *ROB) DumpState() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ROB head=%d tail=%d count=%d\n", r.Head(), r.Tail(), r.Count())
	for i := range r.entries {
		e := &r.entries[i]
		if e.Valid {
			fmt.Fprintf(&b, "  [%2d] pc=%#x done=%v value=%#x\n", i, e.PC, e.Done, e.Value)
		}
	}
	return b.String()
}
