package tomasulo

import (
	"math"

	"github.com/twosigma/frost-sub005/emu"
	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/latency"
)

// execFunc computes a unit's result for an issued bundle. The units'
// internal arithmetic is outside the scheduler's concern; these are the
// black boxes behind the issue/complete interface.
type execFunc func(IssueBundle) Completion

// opState is one operation in flight inside a unit.
type opState struct {
	result    Completion
	remaining uint64
}

// FUnit models one functional unit: a fixed-latency execution path that
// accepts an operation with operands and eventually presents a tagged
// result. Pipelined units accept one operation per cycle; iterative
// units (the dividers) refuse new work until the current one exits.
// When the unit's CDB adapter is holding an ungranted result the exit is
// blocked and finished operations wait in place.
type FUnit struct {
	kind      FUKind
	latency   uint64
	pipelined bool
	exec      execFunc

	inflight []opState
	exit     Completion
	hasExit  bool
}

func newFUnit(kind FUKind, lat uint64, pipelined bool, exec execFunc) *FUnit {
	return &FUnit{
		kind:      kind,
		latency:   lat,
		pipelined: pipelined,
		exec:      exec,
	}
}

// NewALU creates the integer ALU, which also resolves branches.
func NewALU(cfg *latency.Config) *FUnit {
	return newFUnit(FUALU, cfg.ALULatency, true, execALU)
}

// NewMultiplier creates the pipelined integer multiplier.
func NewMultiplier(cfg *latency.Config) *FUnit {
	return newFUnit(FUMul, cfg.MulLatency, true, execMul)
}

// NewDivider creates the iterative integer divider.
func NewDivider(cfg *latency.Config) *FUnit {
	return newFUnit(FUDiv, cfg.DivLatency, false, execDiv)
}

// NewFPAdder creates the pipelined FP add/subtract unit.
func NewFPAdder(cfg *latency.Config) *FUnit {
	return newFUnit(FUFPAdd, cfg.FPAddLatency, true, execFPAdd)
}

// NewFPMultiplier creates the pipelined FP multiplier.
func NewFPMultiplier(cfg *latency.Config) *FUnit {
	return newFUnit(FUFPMul, cfg.FPMulLatency, true, execFPMul)
}

// NewFPDivider creates the iterative FP divider.
func NewFPDivider(cfg *latency.Config) *FUnit {
	return newFUnit(FUFPDiv, cfg.FPDivLatency, false, execFPDiv)
}

// Kind returns the unit's producer kind.
func (u *FUnit) Kind() FUKind {
	return u.kind
}

// CanAccept reports whether the unit can take a new operation this
// cycle. The owning station holds its ready entry and retries when the
// unit refuses.
func (u *FUnit) CanAccept() bool {
	if !u.pipelined {
		return len(u.inflight) == 0 && !u.hasExit
	}
	return len(u.inflight) < int(u.latency)+1
}

// Issue starts executing a bundle. Call only when CanAccept is true.
func (u *FUnit) Issue(b IssueBundle) {
	u.inflight = append(u.inflight, opState{
		result:    u.exec(b),
		remaining: u.latency,
	})
}

// Tick advances every in-flight operation one cycle. A finished
// operation moves to the exit slot when it is free; otherwise it waits.
func (u *FUnit) Tick() {
	for i := range u.inflight {
		if u.inflight[i].remaining > 0 {
			u.inflight[i].remaining--
		}
	}

	if !u.hasExit && len(u.inflight) > 0 && u.inflight[0].remaining == 0 {
		u.exit = u.inflight[0].result
		u.hasExit = true
		u.inflight = u.inflight[1:]
	}
}

// TakeExit removes and returns the finished result, if any. The engine
// calls this only when the unit's adapter can absorb a result.
func (u *FUnit) TakeExit() Completion {
	if !u.hasExit {
		return Completion{}
	}
	result := u.exit
	u.hasExit = false
	u.exit = Completion{}
	return result
}

// FlushYounger squashes in-flight operations and any waiting exit whose
// tag is younger than the flush boundary.
func (u *FUnit) FlushYounger(boundary, head Tag) {
	kept := u.inflight[:0]
	for _, op := range u.inflight {
		if !YoungerThan(op.result.Tag, boundary, head) {
			kept = append(kept, op)
		}
	}
	u.inflight = kept

	if u.hasExit && YoungerThan(u.exit.Tag, boundary, head) {
		u.hasExit = false
		u.exit = Completion{}
	}
}

// FlushAll squashes everything in flight.
func (u *FUnit) FlushAll() {
	u.inflight = u.inflight[:0]
	u.hasExit = false
	u.exit = Completion{}
}

func operand2(b IssueBundle) uint64 {
	if b.UseImm {
		return uint64(b.Imm)
	}
	return b.Src2
}

func execALU(b IssueBundle) Completion {
	c := Completion{Valid: true, Tag: b.Tag}
	src2 := operand2(b)

	switch b.Op {
	case insts.OpAdd:
		c.Value = b.Src1 + src2
	case insts.OpSub:
		c.Value = b.Src1 - src2
	case insts.OpAnd:
		c.Value = b.Src1 & src2
	case insts.OpOr:
		c.Value = b.Src1 | src2
	case insts.OpXor:
		c.Value = b.Src1 ^ src2
	case insts.OpSlt:
		if int64(b.Src1) < int64(src2) {
			c.Value = 1
		}
	case insts.OpBranchEQ, insts.OpBranchNE:
		taken := b.Src1 == b.Src2
		if b.Op == insts.OpBranchNE {
			taken = !taken
		}
		c.IsBranch = true
		c.Taken = taken
		c.Target = b.Target
		c.Mispredicted = taken != b.PredictedTaken ||
			(taken && b.Target != b.PredictedTarget)
	default:
		c.Exception = true
		c.Cause = emu.ExcIllegalInstruction
	}
	return c
}

func execMul(b IssueBundle) Completion {
	return Completion{Valid: true, Tag: b.Tag, Value: b.Src1 * operand2(b)}
}

func execDiv(b IssueBundle) Completion {
	c := Completion{Valid: true, Tag: b.Tag}
	divisor := operand2(b)

	// Division by zero follows the RISC-V convention: no trap, the
	// quotient is all ones and the remainder is the dividend.
	switch b.Op {
	case insts.OpDiv:
		if divisor == 0 {
			c.Value = ^uint64(0)
		} else {
			c.Value = uint64(int64(b.Src1) / int64(divisor))
		}
	case insts.OpRem:
		if divisor == 0 {
			c.Value = b.Src1
		} else {
			c.Value = uint64(int64(b.Src1) % int64(divisor))
		}
	}
	return c
}

func execFPAdd(b IssueBundle) Completion {
	x := math.Float64frombits(b.Src1)
	y := math.Float64frombits(b.Src2)
	if b.Op == insts.OpFSub {
		y = -y
	}
	return Completion{Valid: true, Tag: b.Tag, Value: math.Float64bits(x + y)}
}

func execFPMul(b IssueBundle) Completion {
	x := math.Float64frombits(b.Src1)
	y := math.Float64frombits(b.Src2)
	return Completion{Valid: true, Tag: b.Tag, Value: math.Float64bits(x * y)}
}

func execFPDiv(b IssueBundle) Completion {
	x := math.Float64frombits(b.Src1)
	y := math.Float64frombits(b.Src2)
	return Completion{Valid: true, Tag: b.Tag, Value: math.Float64bits(x / y)}
}
