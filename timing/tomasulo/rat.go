package tomasulo

import (
	"github.com/twosigma/frost-sub005/insts"
)

// numRegs is the number of architectural registers per register file.
const numRegs = 32

// NumCheckpoints is the number of RAT checkpoint slots available for
// branch recovery. A branch dispatched while all slots are busy falls
// back to commit-time recovery.
const NumCheckpoints = 4

// Operand is the result of a RAT lookup: either a ready architectural
// value or the tag of the pending producer.
type Operand struct {
	// Ready indicates Value holds the architectural value. When false,
	// Tag names the in-flight producer to wait for on the CDB.
	Ready bool
	Tag   Tag
	Value uint64
}

// ReadyOperand builds an operand carrying a resolved value.
func ReadyOperand(value uint64) Operand {
	return Operand{Ready: true, Value: value}
}

// PendingOperand builds an operand waiting on a producer tag.
func PendingOperand(tag Tag) Operand {
	return Operand{Tag: tag}
}

// ratEntry is one alias table slot: valid means the register's current
// value is being produced by the instruction holding tag.
type ratEntry struct {
	valid bool
	tag   Tag
}

// checkpoint is a shadow copy of both alias tables taken at a branch
// dispatch, used to restore the RAT when that branch mispredicts.
type checkpoint struct {
	valid     bool
	branchTag Tag
	intRAT    [numRegs]ratEntry
	fpRAT     [numRegs]ratEntry
}

// RAT is the register alias table. It maps each architectural register
// to either "ready, read the register file" or "pending, produced by tag
// T". At most one producer tag aliases a register at any time; a later
// dispatch to the same destination overwrites the alias, so write-after-
// write resolves by last-writer-wins at commit order.
type RAT struct {
	intRAT      [numRegs]ratEntry
	fpRAT       [numRegs]ratEntry
	checkpoints [NumCheckpoints]checkpoint
}

// NewRAT creates an alias table with every register ready.
func NewRAT() *RAT {
	return &RAT{}
}

func (r *RAT) table(rf insts.RegFile) *[numRegs]ratEntry {
	if rf == insts.RFFloat {
		return &r.fpRAT
	}
	return &r.intRAT
}

// Lookup resolves a source register against the alias table. regValue is
// the register's current architectural value; it is returned when no
// producer is pending. Integer register 0 is always ready zero. Reads
// are combinational: every lookup in a dispatch cycle observes the same
// snapshot because Rename for that cycle is applied afterwards.
func (r *RAT) Lookup(rf insts.RegFile, reg uint8, regValue uint64) Operand {
	if rf == insts.RFInt && reg == 0 {
		return ReadyOperand(0)
	}

	entry := r.table(rf)[reg]
	if entry.valid {
		return PendingOperand(entry.tag)
	}
	return ReadyOperand(regValue)
}

// Rename points the destination register at the newly allocated producer
// tag. Writes to integer register 0 are ignored.
func (r *RAT) Rename(rf insts.RegFile, reg uint8, tag Tag) {
	if rf == insts.RFInt && reg == 0 {
		return
	}
	r.table(rf)[reg] = ratEntry{valid: true, tag: tag}
}

// CommitClear reverts the register to ready if the committing tag is
// still its current alias. A mismatch means a younger dispatch already
// superseded the alias and no action is taken. The clear also applies to
// every live checkpoint so a later restore can never resurrect an alias
// to a retired tag.
func (r *RAT) CommitClear(rf insts.RegFile, reg uint8, tag Tag) {
	if rf == insts.RFInt && reg == 0 {
		return
	}

	entry := &r.table(rf)[reg]
	if entry.valid && entry.tag == tag {
		entry.valid = false
	}

	for i := range r.checkpoints {
		cp := &r.checkpoints[i]
		if !cp.valid {
			continue
		}
		table := &cp.intRAT
		if rf == insts.RFFloat {
			table = &cp.fpRAT
		}
		if table[reg].valid && table[reg].tag == tag {
			table[reg].valid = false
		}
	}
}

// CheckpointAvailable returns a free checkpoint slot, if any.
func (r *RAT) CheckpointAvailable() (int, bool) {
	for i := range r.checkpoints {
		if !r.checkpoints[i].valid {
			return i, true
		}
	}
	return 0, false
}

// CheckpointSave snapshots both alias tables into the given slot for the
// branch holding branchTag.
func (r *RAT) CheckpointSave(id int, branchTag Tag) {
	cp := &r.checkpoints[id]
	cp.valid = true
	cp.branchTag = branchTag
	cp.intRAT = r.intRAT
	cp.fpRAT = r.fpRAT
}

// CheckpointRestore replaces the live alias tables with the snapshot in
// the given slot. The slot stays allocated until the branch commits.
func (r *RAT) CheckpointRestore(id int) {
	cp := &r.checkpoints[id]
	r.intRAT = cp.intRAT
	r.fpRAT = cp.fpRAT
}

// CheckpointFree releases a checkpoint slot.
func (r *RAT) CheckpointFree(id int) {
	r.checkpoints[id].valid = false
}

// FreeCheckpointsYounger releases every checkpoint belonging to a branch
// younger than the flush boundary.
func (r *RAT) FreeCheckpointsYounger(boundary, head Tag) {
	for i := range r.checkpoints {
		cp := &r.checkpoints[i]
		if cp.valid && YoungerThan(cp.branchTag, boundary, head) {
			cp.valid = false
		}
	}
}

// FlushAll clears every alias and every checkpoint. With no instructions
// in flight, every register's value is the architectural one.
func (r *RAT) FlushAll() {
	for i := range r.intRAT {
		r.intRAT[i] = ratEntry{}
	}
	for i := range r.fpRAT {
		r.fpRAT[i] = ratEntry{}
	}
	for i := range r.checkpoints {
		r.checkpoints[i].valid = false
	}
}
