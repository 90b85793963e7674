package insts

// Program is a sequence of micro-ops laid out at consecutive word-aligned
// PCs starting at 0. It stands in for the external fetch/decode front end
// in tests and the CLI.
type Program struct {
	ops []MicroOp
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{}
}

// Len returns the number of micro-ops in the program.
func (p *Program) Len() int {
	return len(p.ops)
}

// At returns the micro-op at the given PC, or false if the PC falls
// outside the program.
func (p *Program) At(pc uint64) (MicroOp, bool) {
	idx := pc / 4
	if pc%4 != 0 || idx >= uint64(len(p.ops)) {
		return MicroOp{}, false
	}
	return p.ops[idx], true
}

// append adds op at the next PC and returns the program for chaining.
func (p *Program) append(op MicroOp) *Program {
	op.PC = uint64(len(p.ops)) * 4
	p.ops = append(p.ops, op)
	return p
}

// AddI appends dest = src1 + imm.
func (p *Program) AddI(dest, src1 uint8, imm int64) *Program {
	return p.append(MicroOp{Op: OpAdd, Dest: dest, Src1: src1, Src2: RegNone, Imm: imm, UseImm: true})
}

// Add appends dest = src1 + src2.
func (p *Program) Add(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpAdd, Dest: dest, Src1: src1, Src2: src2})
}

// Sub appends dest = src1 - src2.
func (p *Program) Sub(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpSub, Dest: dest, Src1: src1, Src2: src2})
}

// And appends dest = src1 & src2.
func (p *Program) And(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpAnd, Dest: dest, Src1: src1, Src2: src2})
}

// Or appends dest = src1 | src2.
func (p *Program) Or(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpOr, Dest: dest, Src1: src1, Src2: src2})
}

// Xor appends dest = src1 ^ src2.
func (p *Program) Xor(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpXor, Dest: dest, Src1: src1, Src2: src2})
}

// Slt appends dest = 1 if src1 < src2 (signed), else 0.
func (p *Program) Slt(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpSlt, Dest: dest, Src1: src1, Src2: src2})
}

// Mul appends dest = src1 * src2.
func (p *Program) Mul(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpMul, Dest: dest, Src1: src1, Src2: src2})
}

// Div appends dest = src1 / src2.
func (p *Program) Div(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpDiv, Dest: dest, Src1: src1, Src2: src2})
}

// Rem appends dest = src1 % src2.
func (p *Program) Rem(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpRem, Dest: dest, Src1: src1, Src2: src2})
}

// Load appends dest = mem[src1 + offset].
func (p *Program) Load(dest, base uint8, offset int64, size MemSize) *Program {
	return p.append(MicroOp{
		Op: OpLoad, Dest: dest, Src1: base, Src2: RegNone,
		Imm: offset, Size: size, SignExtend: true,
	})
}

// Store appends mem[base + offset] = src.
func (p *Program) Store(src, base uint8, offset int64, size MemSize) *Program {
	return p.append(MicroOp{
		Op: OpStore, Dest: RegNone, Src1: base, Src2: src,
		Imm: offset, Size: size,
	})
}

// FLoad appends fdest = mem[base + offset], a double into the FP file.
func (p *Program) FLoad(dest, base uint8, offset int64) *Program {
	return p.append(MicroOp{
		Op: OpLoad, Dest: dest, DestRF: RFFloat, Src1: base, Src2: RegNone,
		Imm: offset, Size: SizeDouble,
	})
}

// FStore appends mem[base + offset] = fsrc as a double.
func (p *Program) FStore(src, base uint8, offset int64) *Program {
	return p.append(MicroOp{
		Op: OpStore, Dest: RegNone, Src1: base, Src2: src, SrcRF: RFFloat,
		Imm: offset, Size: SizeDouble,
	})
}

// Beq appends a branch to target when src1 == src2.
func (p *Program) Beq(src1, src2 uint8, target uint64) *Program {
	return p.append(MicroOp{Op: OpBranchEQ, Dest: RegNone, Src1: src1, Src2: src2, Target: target})
}

// Bne appends a branch to target when src1 != src2.
func (p *Program) Bne(src1, src2 uint8, target uint64) *Program {
	return p.append(MicroOp{Op: OpBranchNE, Dest: RegNone, Src1: src1, Src2: src2, Target: target})
}

// Jal appends an unconditional jump-and-link to target.
func (p *Program) Jal(dest uint8, target uint64) *Program {
	return p.append(MicroOp{Op: OpJal, Dest: dest, Src1: RegNone, Src2: RegNone, Target: target})
}

// FAdd appends dest = src1 + src2 in the FP register file.
func (p *Program) FAdd(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpFAdd, Dest: dest, Src1: src1, Src2: src2, DestRF: RFFloat, SrcRF: RFFloat})
}

// FSub appends dest = src1 - src2 in the FP register file.
func (p *Program) FSub(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpFSub, Dest: dest, Src1: src1, Src2: src2, DestRF: RFFloat, SrcRF: RFFloat})
}

// FMul appends dest = src1 * src2 in the FP register file.
func (p *Program) FMul(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpFMul, Dest: dest, Src1: src1, Src2: src2, DestRF: RFFloat, SrcRF: RFFloat})
}

// FDiv appends dest = src1 / src2 in the FP register file.
func (p *Program) FDiv(dest, src1, src2 uint8) *Program {
	return p.append(MicroOp{Op: OpFDiv, Dest: dest, Src1: src1, Src2: src2, DestRF: RFFloat, SrcRF: RFFloat})
}

// Fence appends a memory fence.
func (p *Program) Fence() *Program {
	return p.append(MicroOp{Op: OpFence, Dest: RegNone, Src1: RegNone, Src2: RegNone})
}

// Halt appends a halt whose exit code is read from src.
func (p *Program) Halt(src uint8) *Program {
	return p.append(MicroOp{Op: OpHalt, Dest: RegNone, Src1: src, Src2: RegNone})
}

// NextPC returns the PC one past the last appended micro-op. Useful for
// computing forward branch targets while building.
func (p *Program) NextPC() uint64 {
	return uint64(len(p.ops)) * 4
}
