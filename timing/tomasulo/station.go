package tomasulo

import (
	"github.com/twosigma/frost-sub005/insts"
)

// StationEntry holds one dispatched-but-not-yet-issued instruction with
// its operand tags or values.
type StationEntry struct {
	Busy bool

	Op  insts.Op
	Tag Tag
	PC  uint64

	// Src1-Src3 are the declared operands. An unused operand is ready
	// at dispatch. Src3 exists for fused three-operand forms.
	Src1, Src2, Src3 Operand

	// Imm substitutes for Src2 when UseImm is set.
	Imm    int64
	UseImm bool

	// Memory access shape, for the memory station.
	Size       insts.MemSize
	SignExtend bool

	// Branch prediction carried from dispatch to resolution.
	PredictedTaken  bool
	PredictedTarget uint64
	Target          uint64
}

// ready reports whether every declared operand is available.
func (e *StationEntry) ready() bool {
	return e.Busy &&
		e.Src1.Ready &&
		(e.Src2.Ready || e.UseImm) &&
		e.Src3.Ready
}

// IssueBundle is the payload handed to a functional unit at issue.
type IssueBundle struct {
	Op  insts.Op
	Tag Tag
	PC  uint64

	Src1, Src2, Src3 uint64

	Imm    int64
	UseImm bool

	Size       insts.MemSize
	SignExtend bool

	PredictedTaken  bool
	PredictedTarget uint64
	Target          uint64
}

// Station is one reservation station bank. Entries wait here for their
// operand tags to appear on the CDB, then issue to the bank's functional
// unit and are freed the same cycle.
type Station struct {
	class   insts.Class
	entries []StationEntry

	stats StationStats
}

// StationStats holds per-bank counters.
type StationStats struct {
	Dispatches uint64
	Issues     uint64
	Wakeups    uint64
}

// NewStation creates a bank of the given depth for a unit class.
func NewStation(class insts.Class, depth int) *Station {
	return &Station{
		class:   class,
		entries: make([]StationEntry, depth),
	}
}

// Class returns the unit class this bank feeds.
func (s *Station) Class() insts.Class {
	return s.class
}

// Full reports whether every slot is busy. Dispatch must stall while the
// bank is full; nothing is ever dropped.
func (s *Station) Full() bool {
	for i := range s.entries {
		if !s.entries[i].Busy {
			return false
		}
	}
	return true
}

// Count returns the number of busy entries.
func (s *Station) Count() int {
	n := 0
	for i := range s.entries {
		if s.entries[i].Busy {
			n++
		}
	}
	return n
}

// Stats returns bank counters.
func (s *Station) Stats() StationStats {
	return s.stats
}

// bypass marks a pending operand ready if the current cycle's broadcast
// carries its producer tag, so a dependent dispatched in the broadcast
// cycle needs no extra wakeup cycle.
func bypass(op Operand, cdb Broadcast) Operand {
	if !op.Ready && cdb.Valid && op.Tag == cdb.Tag {
		return ReadyOperand(cdb.Value)
	}
	return op
}

// Dispatch places an entry into the lowest free slot, applying same-
// cycle CDB bypass to each pending operand. It fails when the bank is
// full.
func (s *Station) Dispatch(entry StationEntry, cdb Broadcast) bool {
	for i := range s.entries {
		if s.entries[i].Busy {
			continue
		}

		entry.Busy = true
		entry.Src1 = bypass(entry.Src1, cdb)
		entry.Src2 = bypass(entry.Src2, cdb)
		entry.Src3 = bypass(entry.Src3, cdb)
		s.entries[i] = entry
		s.stats.Dispatches++
		return true
	}
	return false
}

// Snoop wakes every pending operand whose tag matches the broadcast.
// Entries may capture from the very cycle the result appears, enabling
// back-to-back dependent issue.
func (s *Station) Snoop(cdb Broadcast) {
	if !cdb.Valid {
		return
	}

	for i := range s.entries {
		e := &s.entries[i]
		if !e.Busy {
			continue
		}
		if !e.Src1.Ready && e.Src1.Tag == cdb.Tag {
			e.Src1 = ReadyOperand(cdb.Value)
			s.stats.Wakeups++
		}
		if !e.Src2.Ready && e.Src2.Tag == cdb.Tag {
			e.Src2 = ReadyOperand(cdb.Value)
			s.stats.Wakeups++
		}
		if !e.Src3.Ready && e.Src3.Tag == cdb.Tag {
			e.Src3 = ReadyOperand(cdb.Value)
			s.stats.Wakeups++
		}
	}
}

// SelectIssue picks the oldest ready entry whose target unit will
// accept it and frees its slot. Oldest-first keeps issue roughly in
// order within the bank and prevents starvation. When no unit is ready
// the bank holds its entries and retries next cycle.
func (s *Station) SelectIssue(head Tag, canAccept func(insts.Op) bool) (IssueBundle, bool) {
	best := -1
	var bestAge uint8
	for i := range s.entries {
		e := &s.entries[i]
		if !e.ready() || !canAccept(e.Op) {
			continue
		}
		age := AgeOf(e.Tag, head)
		if best < 0 || age < bestAge {
			best = i
			bestAge = age
		}
	}
	if best < 0 {
		return IssueBundle{}, false
	}

	e := &s.entries[best]
	bundle := IssueBundle{
		Op:              e.Op,
		Tag:             e.Tag,
		PC:              e.PC,
		Src1:            e.Src1.Value,
		Src2:            e.Src2.Value,
		Src3:            e.Src3.Value,
		Imm:             e.Imm,
		UseImm:          e.UseImm,
		Size:            e.Size,
		SignExtend:      e.SignExtend,
		PredictedTaken:  e.PredictedTaken,
		PredictedTarget: e.PredictedTarget,
		Target:          e.Target,
	}
	e.Busy = false
	s.stats.Issues++
	return bundle, true
}

// FlushYounger invalidates entries younger than the flush boundary.
func (s *Station) FlushYounger(boundary, head Tag) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.Busy && YoungerThan(e.Tag, boundary, head) {
			e.Busy = false
		}
	}
}

// FlushAll invalidates every entry.
func (s *Station) FlushAll() {
	for i := range s.entries {
		s.entries[i].Busy = false
	}
}
