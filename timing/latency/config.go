// Package latency provides functional-unit timing configuration for the
// scheduling engine. Latencies default to the original core's RTL values
// and can be overridden from a JSON file.
package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds per-unit execution latencies in cycles.
type Config struct {
	// ALULatency is the latency of simple integer operations.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MulLatency is the latency of integer multiply. Default: 3 cycles.
	MulLatency uint64 `json:"mul_latency"`

	// DivLatency is the latency of integer divide/remainder. The divider
	// is iterative and refuses new work while busy. Default: 12 cycles.
	DivLatency uint64 `json:"div_latency"`

	// FPAddLatency is the latency of FP add/sub. Default: 4 cycles.
	FPAddLatency uint64 `json:"fp_add_latency"`

	// FPMulLatency is the latency of FP multiply. Default: 5 cycles.
	FPMulLatency uint64 `json:"fp_mul_latency"`

	// FPDivLatency is the latency of FP divide. Iterative, like the
	// integer divider. Default: 14 cycles.
	FPDivLatency uint64 `json:"fp_div_latency"`

	// AGULatency is the address-generation latency for memory ops.
	// Default: 1 cycle.
	AGULatency uint64 `json:"agu_latency"`

	// CacheHitLatency is the L0 data cache hit latency. Default: 1 cycle.
	CacheHitLatency uint64 `json:"cache_hit_latency"`

	// MemoryLatency is the backing memory access latency on a cache
	// miss. Default: 20 cycles.
	MemoryLatency uint64 `json:"memory_latency"`
}

// DefaultConfig returns a Config with the original core's latencies.
func DefaultConfig() *Config {
	return &Config{
		ALULatency:      1,
		MulLatency:      3,
		DivLatency:      12,
		FPAddLatency:    4,
		FPMulLatency:    5,
		FPDivLatency:    14,
		AGULatency:      1,
		CacheHitLatency: 1,
		MemoryLatency:   20,
	}
}

// LoadConfig loads a Config from a JSON file. Fields absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read latency config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse latency config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize latency config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write latency config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are usable.
func (c *Config) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MulLatency == 0 {
		return fmt.Errorf("mul_latency must be > 0")
	}
	if c.DivLatency == 0 {
		return fmt.Errorf("div_latency must be > 0")
	}
	if c.FPAddLatency == 0 {
		return fmt.Errorf("fp_add_latency must be > 0")
	}
	if c.FPMulLatency == 0 {
		return fmt.Errorf("fp_mul_latency must be > 0")
	}
	if c.FPDivLatency == 0 {
		return fmt.Errorf("fp_div_latency must be > 0")
	}
	if c.AGULatency == 0 {
		return fmt.Errorf("agu_latency must be > 0")
	}
	if c.CacheHitLatency == 0 {
		return fmt.Errorf("cache_hit_latency must be > 0")
	}
	if c.MemoryLatency == 0 {
		return fmt.Errorf("memory_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
