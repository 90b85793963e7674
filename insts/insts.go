// Package insts defines the micro-op model consumed by the out-of-order
// scheduling engine. The front end (fetch/decode) is external to the
// engine; a micro-op is the decoded form it hands to dispatch.
package insts

// Op identifies a micro-operation.
type Op uint8

// Micro-operations, grouped by the reservation-station class that executes
// them.
const (
	OpNop Op = iota

	// Integer ALU class
	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpSlt
	OpBranchEQ // conditional branch, taken if src1 == src2
	OpBranchNE // conditional branch, taken if src1 != src2
	OpJal      // unconditional jump-and-link, resolved at dispatch

	// Multiply class
	OpMul

	// Divide class
	OpDiv
	OpRem

	// Memory class
	OpLoad
	OpStore
	OpFence

	// FP add class
	OpFAdd
	OpFSub

	// FP multiply/divide class
	OpFMul
	OpFDiv

	// Control
	OpHalt // stops the core at commit; src1 carries the exit code
)

// Class identifies a reservation-station / functional-unit class.
type Class uint8

// Reservation station classes. Each class has its own station bank and
// feeds one functional unit.
const (
	ClassALU Class = iota
	ClassMul
	ClassDiv
	ClassMem
	ClassFPAdd
	ClassFPMulDiv
	NumClasses
)

// String returns the class mnemonic.
func (c Class) String() string {
	switch c {
	case ClassALU:
		return "alu"
	case ClassMul:
		return "mul"
	case ClassDiv:
		return "div"
	case ClassMem:
		return "mem"
	case ClassFPAdd:
		return "fpadd"
	case ClassFPMulDiv:
		return "fpmuldiv"
	default:
		return "unknown"
	}
}

// RegFile selects the architectural register file an operand lives in.
type RegFile uint8

// Register file selectors.
const (
	RFInt RegFile = iota
	RFFloat
)

// MemSize encodes the access width of a load or store.
type MemSize uint8

// Memory access sizes.
const (
	SizeByte MemSize = iota
	SizeHalf
	SizeWord
	SizeDouble
)

// Bytes returns the access width in bytes.
func (s MemSize) Bytes() uint64 {
	return 1 << s
}

// RegNone marks an absent register operand.
const RegNone uint8 = 0xFF

// MicroOp is one decoded instruction as presented to dispatch.
type MicroOp struct {
	// Op is the operation to perform.
	Op Op

	// PC is the program counter of the instruction.
	PC uint64

	// Dest is the destination register, or RegNone.
	Dest uint8
	// DestRF selects the destination register file.
	DestRF RegFile

	// Src1, Src2 are source registers, or RegNone.
	Src1, Src2 uint8
	// SrcRF selects the source register file for Src1 and Src2.
	SrcRF RegFile

	// Imm is the immediate operand (address offset for memory ops,
	// second ALU operand when UseImm is set).
	Imm int64
	// UseImm substitutes Imm for the second operand.
	UseImm bool

	// Size and SignExtend control load/store data handling.
	Size       MemSize
	SignExtend bool

	// Target is the branch target PC (computed at decode).
	Target uint64
}

// ClassOf returns the reservation-station class that executes op.
func ClassOf(op Op) Class {
	switch op {
	case OpMul:
		return ClassMul
	case OpDiv, OpRem:
		return ClassDiv
	case OpLoad, OpStore, OpFence:
		return ClassMem
	case OpFAdd, OpFSub:
		return ClassFPAdd
	case OpFMul, OpFDiv:
		return ClassFPMulDiv
	default:
		return ClassALU
	}
}

// Class returns the reservation-station class of the micro-op.
func (m *MicroOp) Class() Class {
	return ClassOf(m.Op)
}

// IsBranch reports whether the micro-op resolves a control-flow outcome.
func (m *MicroOp) IsBranch() bool {
	switch m.Op {
	case OpBranchEQ, OpBranchNE, OpJal:
		return true
	default:
		return false
	}
}

// IsLoad reports whether the micro-op reads memory.
func (m *MicroOp) IsLoad() bool { return m.Op == OpLoad }

// IsStore reports whether the micro-op writes memory.
func (m *MicroOp) IsStore() bool { return m.Op == OpStore }

// HasDest reports whether the micro-op writes an architectural register.
// x0 is hardwired to zero, so an integer write to register 0 carries no
// destination.
func (m *MicroOp) HasDest() bool {
	if m.Dest == RegNone {
		return false
	}
	return m.DestRF != RFInt || m.Dest != 0
}
