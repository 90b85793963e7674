package cache

import (
	"github.com/twosigma/frost-sub005/emu"
)

// MemoryBacking adapts emu.Memory to the BackingStore interface.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a backing store over the given memory.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches size bytes at addr.
func (b *MemoryBacking) Read(addr uint64, size int) uint64 {
	return b.memory.Read(addr, size)
}

// Write stores the low size bytes of value at addr.
func (b *MemoryBacking) Write(addr uint64, size int, value uint64) {
	b.memory.Write(addr, size, value)
}
