// Package core provides the cycle-accurate out-of-order core model,
// wiring the front end to the scheduling engine behind a high-level
// interface.
package core

import (
	"github.com/twosigma/frost-sub005/emu"
	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/frontend"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// DispatchStalls is the number of cycles dispatch was refused.
	DispatchStalls uint64
	// Mispredictions is the number of mispredicted branches committed.
	Mispredictions uint64
	// Flushes counts pipeline flushes, partial and full.
	Flushes uint64
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// Core is one out-of-order core: an in-order front end dispatching into
// the Tomasulo scheduling engine.
type Core struct {
	Engine   *tomasulo.Engine
	Frontend *frontend.Frontend

	regFile *emu.RegFile
	memory  *emu.Memory
	traps   *emu.TrapRecorder
}

// NewCore creates a core executing the given program, with fresh
// architectural state.
func NewCore(program *insts.Program, opts ...tomasulo.Option) *Core {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	traps := &emu.TrapRecorder{}

	c := &Core{
		regFile: regFile,
		memory:  memory,
		traps:   traps,
	}

	engineOpts := append([]tomasulo.Option{tomasulo.WithTrapSink(traps)}, opts...)
	c.Engine = tomasulo.NewEngine(regFile, memory, engineOpts...)
	c.Frontend = frontend.New(program, nil)

	c.Engine.SetRedirectHandler(c.Frontend.Redirect)
	c.Engine.SetBranchOutcomeHandler(c.Frontend.Train)
	return c
}

// RegFile returns the architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the core's memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Traps returns the recorded trap events.
func (c *Core) Traps() []emu.TrapEvent {
	return c.traps.Events
}

// Tick executes one cycle: the engine advances, then the front end
// presents at most one micro-op to dispatch.
func (c *Core) Tick() {
	c.Engine.Tick()

	if req, ok := c.Frontend.Next(); ok {
		if c.Engine.Dispatch(req) {
			c.Frontend.Accept()
		}
	}
}

// Halted reports whether a halt instruction has committed.
func (c *Core) Halted() bool {
	return c.Engine.Halted()
}

// ExitCode returns the halt instruction's exit code.
func (c *Core) ExitCode() uint64 {
	return c.Engine.ExitCode()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	es := c.Engine.Stats()
	return Stats{
		Cycles:         es.Cycles,
		Instructions:   es.Committed,
		DispatchStalls: es.DispatchStalls,
		Mispredictions: es.Mispredictions,
		Flushes:        es.PartialFlushes + es.FullFlushes,
	}
}

// Run executes until the core halts. Returns the exit code.
func (c *Core) Run() uint64 {
	for !c.Halted() {
		c.Tick()
	}
	return c.ExitCode()
}

// RunCycles executes at most the given number of cycles. Returns true
// while still running, false once halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles; i++ {
		if c.Halted() {
			return false
		}
		c.Tick()
	}
	return !c.Halted()
}

// Reset returns the core to its initial state, including architectural
// registers and the front end. Memory contents are preserved.
func (c *Core) Reset() {
	c.Engine.Reset()
	c.Frontend.Reset()
	c.regFile.Reset()
	c.traps.Events = nil
}
