package emu

// ExcCause enumerates precise-exception causes reported through the CDB
// and raised when the faulting entry reaches the reorder buffer head.
type ExcCause uint8

// Exception causes.
const (
	ExcNone ExcCause = iota
	ExcIllegalInstruction
	ExcMisalignedLoad
	ExcMisalignedStore
)

// String returns a short description of the cause.
func (c ExcCause) String() string {
	switch c {
	case ExcNone:
		return "none"
	case ExcIllegalInstruction:
		return "illegal instruction"
	case ExcMisalignedLoad:
		return "misaligned load"
	case ExcMisalignedStore:
		return "misaligned store"
	default:
		return "unknown"
	}
}

// TrapEvent describes one precise exception delivered to the trap unit.
type TrapEvent struct {
	// Cause is the exception cause.
	Cause ExcCause
	// PC is the program counter of the faulting instruction.
	PC uint64
}

// TrapSink receives trap events from the commit stage, exactly once per
// faulting instruction. The CSR/trap unit is external to the engine.
type TrapSink interface {
	// Trap delivers a trap event and returns the redirect PC the front
	// end should resume fetching from.
	Trap(event TrapEvent) uint64
}

// TrapRecorder is a TrapSink that records events and redirects to a fixed
// vector. It serves as the default collaborator in tests and the CLI.
type TrapRecorder struct {
	// Vector is the PC returned for every trap.
	Vector uint64
	// Events holds every trap delivered, in order.
	Events []TrapEvent
}

// Trap records the event and returns the vector.
func (t *TrapRecorder) Trap(event TrapEvent) uint64 {
	t.Events = append(t.Events, event)
	return t.Vector
}
