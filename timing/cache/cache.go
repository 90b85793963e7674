// Package cache provides the L0 data cache that backs the load/store
// queues, built on Akita cache components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
}

// DefaultL0Config returns the default L0 data cache geometry: 4KB,
// 2-way, 32B lines, matching the original core's single-cycle L0.
func DefaultL0Config() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     32,
	}
}

// Statistics holds cache performance counters.
type Statistics struct {
	Reads  uint64
	Writes uint64
	Hits   uint64
	Misses uint64
	Fills  uint64
}

// HitRate returns the fraction of accesses that hit, as a percentage.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches size bytes at addr as a little-endian value.
	Read(addr uint64, size int) uint64
	// Write stores the low size bytes of value at addr.
	Write(addr uint64, size int, value uint64)
}

// Cache is a write-through L0 data cache. The directory (tags, validity,
// LRU replacement) comes from Akita; data lives in a flat per-block store.
// Loads that hit complete without a memory request; stores always write
// through to the backing store and update the line if present.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	backing   BackingStore
	stats     Statistics
}

// New creates a cache with the given geometry over the backing store.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache geometry.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// crossesLine reports whether [addr, addr+size) spans two cache lines.
func (c *Cache) crossesLine(addr uint64, size int) bool {
	return c.blockAddr(addr) != c.blockAddr(addr+uint64(size)-1)
}

// Read attempts a cache read. On a hit it returns the data and true; on a
// miss it returns false without allocating, leaving the caller to issue a
// memory request and Fill the line with the response.
func (c *Cache) Read(addr uint64, size int) (uint64, bool) {
	c.stats.Reads++

	if c.crossesLine(addr, size) {
		c.stats.Misses++
		return 0, false
	}

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block == nil || !block.IsValid {
		c.stats.Misses++
		return 0, false
	}

	c.stats.Hits++
	c.directory.Visit(block)

	offset := addr % uint64(c.config.BlockSize)
	return extractData(c.dataStore[c.blockIndex(block)], offset, size), true
}

// Write performs a write-through store: the backing store is always
// updated, and the cache line is updated only if already present.
func (c *Cache) Write(addr uint64, size int, value uint64) {
	c.stats.Writes++

	c.backing.Write(addr, size, value)

	if c.crossesLine(addr, size) {
		return
	}

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block == nil || !block.IsValid {
		return
	}

	c.directory.Visit(block)
	offset := addr % uint64(c.config.BlockSize)
	storeData(c.dataStore[c.blockIndex(block)], offset, size, value)
}

// Fill installs the line containing addr from the backing store,
// evicting the LRU victim. Write-through means victims are never dirty.
func (c *Cache) Fill(addr uint64) {
	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return
	}

	data := c.dataStore[c.blockIndex(victim)]
	for i := range data {
		data[i] = byte(c.backing.Read(blockAddr+uint64(i), 1))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)
	c.stats.Fills++
}

// Reset invalidates all lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// extractData extracts a little-endian value from a block.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a little-endian value into a block.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
