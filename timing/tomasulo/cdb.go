package tomasulo

import (
	"github.com/twosigma/frost-sub005/emu"
)

// FUKind identifies one result producer on the common data bus.
type FUKind uint8

// Producer kinds, one per functional-unit result path.
const (
	FUALU FUKind = iota
	FUMul
	FUDiv
	FUMem
	FUFPAdd
	FUFPMul
	FUFPDiv
	NumFUs
)

// String returns the producer mnemonic.
func (k FUKind) String() string {
	switch k {
	case FUALU:
		return "alu"
	case FUMul:
		return "mul"
	case FUDiv:
		return "div"
	case FUMem:
		return "mem"
	case FUFPAdd:
		return "fpadd"
	case FUFPMul:
		return "fpmul"
	case FUFPDiv:
		return "fpdiv"
	default:
		return "unknown"
	}
}

// arbiterPriority lists producers from highest to lowest priority. The
// long-latency units come first: their results are rarer and holding
// them back would stall iterative units, while ALU results are plentiful
// and cheap to re-present. Ties never consider age; a held result is
// already safely buffered in its adapter.
var arbiterPriority = [NumFUs]FUKind{
	FUFPDiv, FUDiv, FUFPMul, FUMul, FUFPAdd, FUMem, FUALU,
}

// Completion is one functional-unit result presented for broadcast.
// Branch metadata rides along so the reorder buffer can record the
// resolved outcome when the result wins arbitration.
type Completion struct {
	// Valid indicates a result is present.
	Valid bool
	// Tag is the reorder buffer slot the result belongs to.
	Tag Tag
	// Value is the produced value.
	Value uint64

	// Exception and Cause report a precise exception captured at the
	// producing unit.
	Exception bool
	Cause     emu.ExcCause

	// Branch resolution metadata, meaningful only for branch results.
	IsBranch     bool
	Taken        bool
	Target       uint64
	Mispredicted bool
}

// Broadcast is the common data bus message. At most one exists per
// cycle and it is visible to every listener that same cycle.
type Broadcast struct {
	// Valid indicates a broadcast is present this cycle.
	Valid bool
	// Tag identifies the producing instruction.
	Tag Tag
	// Value is the result value.
	Value uint64
	// Exception and Cause carry a captured precise exception.
	Exception bool
	Cause     emu.ExcCause
}

// Arbiter selects at most one producer per cycle to drive the common
// data bus, using a fixed priority order across unit kinds.
type Arbiter struct{}

// NewArbiter creates a CDB arbiter.
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Arbitrate picks the highest-priority valid completion. It returns the
// winning completion, the per-producer grant vector, and whether any
// producer was granted.
func (a *Arbiter) Arbitrate(requests *[NumFUs]Completion) (Completion, [NumFUs]bool, bool) {
	var grants [NumFUs]bool

	for _, kind := range arbiterPriority {
		if requests[kind].Valid {
			grants[kind] = true
			return requests[kind], grants, true
		}
	}

	return Completion{}, grants, false
}

// toBroadcast narrows a completion to the bus message seen by listeners.
func (c Completion) toBroadcast() Broadcast {
	return Broadcast{
		Valid:     c.Valid,
		Tag:       c.Tag,
		Value:     c.Value,
		Exception: c.Exception,
		Cause:     c.Cause,
	}
}
