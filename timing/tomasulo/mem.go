package tomasulo

import (
	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/latency"
)

// AddressResult is one finished address generation, routed to the load
// or store queue rather than the CDB.
type AddressResult struct {
	Tag     Tag
	IsStore bool
	Addr    uint64
	Size    insts.MemSize
	PC      uint64
}

type aguOp struct {
	result    AddressResult
	remaining uint64
}

// AGU is the address-generation path for memory operations. The memory
// station issues a load or store here once its base register is ready;
// the computed address is delivered to the owning queue after a fixed
// latency.
type AGU struct {
	latency  uint64
	inflight []aguOp
}

// NewAGU creates an address-generation unit.
func NewAGU(cfg *latency.Config) *AGU {
	return &AGU{latency: cfg.AGULatency}
}

// CanAccept reports whether a new operation can start this cycle.
func (a *AGU) CanAccept() bool {
	return len(a.inflight) < int(a.latency)+1
}

// Issue starts address generation for a memory bundle. The address is
// the base register plus the immediate offset.
func (a *AGU) Issue(b IssueBundle) {
	a.inflight = append(a.inflight, aguOp{
		result: AddressResult{
			Tag:     b.Tag,
			IsStore: b.Op == insts.OpStore,
			Addr:    b.Src1 + uint64(b.Imm),
			Size:    b.Size,
			PC:      b.PC,
		},
		remaining: a.latency,
	})
}

// Tick advances in-flight operations and returns the addresses that
// finished this cycle, oldest first.
func (a *AGU) Tick() []AddressResult {
	var done []AddressResult

	kept := a.inflight[:0]
	for _, op := range a.inflight {
		if op.remaining > 0 {
			op.remaining--
		}
		if op.remaining == 0 {
			done = append(done, op.result)
		} else {
			kept = append(kept, op)
		}
	}
	a.inflight = kept
	return done
}

// FlushYounger squashes in-flight address generations younger than the
// boundary.
func (a *AGU) FlushYounger(boundary, head Tag) {
	kept := a.inflight[:0]
	for _, op := range a.inflight {
		if !YoungerThan(op.result.Tag, boundary, head) {
			kept = append(kept, op)
		}
	}
	a.inflight = kept
}

// FlushAll squashes everything in flight.
func (a *AGU) FlushAll() {
	a.inflight = a.inflight[:0]
}

// MemPort models the read side of the memory interface with a fixed
// miss latency and a single outstanding request.
type MemPort struct {
	latency uint64

	busy      bool
	remaining uint64
	req       MemRequest
}

// NewMemPort creates a memory port with the configured miss latency.
func NewMemPort(cfg *latency.Config) *MemPort {
	return &MemPort{latency: cfg.MemoryLatency}
}

// Busy reports whether a request is in flight.
func (p *MemPort) Busy() bool {
	return p.busy
}

// Issue starts a read. Call only when the port is idle.
func (p *MemPort) Issue(req MemRequest) {
	p.busy = true
	p.remaining = p.latency
	p.req = req
}

// Tick advances the request. It returns the finished request and true
// on the cycle the response arrives.
func (p *MemPort) Tick() (MemRequest, bool) {
	if !p.busy {
		return MemRequest{}, false
	}
	if p.remaining > 0 {
		p.remaining--
	}
	if p.remaining == 0 {
		p.busy = false
		return p.req, true
	}
	return MemRequest{}, false
}
