package emu

// pageSize is the granularity of lazily allocated memory pages.
const pageSize = 4096

// Memory is a sparse, little-endian byte-addressed backing store. Pages
// are allocated on first touch, so large address spaces cost nothing
// until written.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64][]byte),
	}
}

func (m *Memory) page(addr uint64, alloc bool) []byte {
	base := addr &^ uint64(pageSize-1)
	p, ok := m.pages[base]
	if !ok && alloc {
		p = make([]byte, pageSize)
		m.pages[base] = p
	}
	return p
}

// ReadByte reads one byte. Untouched memory reads as zero.
func (m *Memory) ReadByte(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%pageSize]
}

// WriteByte writes one byte.
func (m *Memory) WriteByte(addr uint64, value byte) {
	m.page(addr, true)[addr%pageSize] = value
}

// Read reads size bytes starting at addr as a little-endian value.
func (m *Memory) Read(addr uint64, size int) uint64 {
	var value uint64
	for i := 0; i < size; i++ {
		value |= uint64(m.ReadByte(addr+uint64(i))) << (8 * i)
	}
	return value
}

// Write writes the low size bytes of value at addr, little-endian.
func (m *Memory) Write(addr uint64, size int, value uint64) {
	for i := 0; i < size; i++ {
		m.WriteByte(addr+uint64(i), byte(value>>(8*i)))
	}
}

// Read32 reads a 32-bit word.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.Read(addr, 4))
}

// Write32 writes a 32-bit word.
func (m *Memory) Write32(addr uint64, value uint32) {
	m.Write(addr, 4, uint64(value))
}

// Read64 reads a 64-bit doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	return m.Read(addr, 8)
}

// Write64 writes a 64-bit doubleword.
func (m *Memory) Write64(addr uint64, value uint64) {
	m.Write(addr, 8, value)
}

// Reset discards all memory contents.
func (m *Memory) Reset() {
	m.pages = make(map[uint64][]byte)
}
