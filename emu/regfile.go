// Package emu provides the architectural-state collaborators of the
// scheduling engine: register files, backing memory, and the trap sink.
package emu

// RegFile holds the architectural integer and floating-point register
// files. Integer register 0 is hardwired to zero.
type RegFile struct {
	// X holds integer registers x0-x31. X[0] always reads as 0.
	X [32]uint64

	// F holds floating-point registers f0-f31.
	F [32]uint64

	// PC is the architectural program counter, updated at commit.
	PC uint64
}

// ReadInt reads an integer register. Register 0 returns 0.
func (r *RegFile) ReadInt(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteInt writes an integer register. Writes to register 0 are ignored.
func (r *RegFile) WriteInt(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// ReadFloat reads a floating-point register as its raw bit pattern.
func (r *RegFile) ReadFloat(reg uint8) uint64 {
	if reg >= 32 {
		return 0
	}
	return r.F[reg]
}

// WriteFloat writes a floating-point register bit pattern.
func (r *RegFile) WriteFloat(reg uint8, value uint64) {
	if reg >= 32 {
		return
	}
	r.F[reg] = value
}

// Reset clears all registers and the PC.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
