package tomasulo

import (
	"github.com/twosigma/frost-sub005/emu"
	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/cache"
	"github.com/twosigma/frost-sub005/timing/latency"
)

// stationDepths gives the reservation station depth per unit class.
var stationDepths = [insts.NumClasses]int{
	insts.ClassALU:      8,
	insts.ClassMul:      4,
	insts.ClassDiv:      2,
	insts.ClassMem:      8,
	insts.ClassFPAdd:    6,
	insts.ClassFPMulDiv: 4,
}

// DispatchRequest is one decoded micro-op presented by the front end,
// together with the prediction it fetched down.
type DispatchRequest struct {
	Op              insts.MicroOp
	PredictedTaken  bool
	PredictedTarget uint64
}

// Statistics holds engine-level performance counters.
type Statistics struct {
	Cycles         uint64
	Dispatched     uint64
	DispatchStalls uint64
	Committed      uint64
	Broadcasts     uint64
	Branches       uint64
	Mispredictions uint64
	PartialFlushes uint64
	FullFlushes    uint64
	Replays        uint64
	Traps          uint64
}

// IPC returns committed instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Committed) / float64(s.Cycles)
}

// Engine is the out-of-order scheduling core: register renaming through
// the RAT, per-class reservation stations, load/store queues, a reorder
// buffer for in-order commit, and a single common data bus shared by all
// functional units through per-unit holding adapters.
//
// The engine owns execution and retirement only. Fetch and decode live
// in the front end, which feeds Dispatch one micro-op per cycle and is
// steered back through the redirect handler on mispredictions, traps,
// and replays.
type Engine struct {
	regFile *emu.RegFile
	mem     *emu.Memory
	traps   emu.TrapSink
	cfg     *latency.Config

	rob      *ROB
	rat      *RAT
	stations [insts.NumClasses]*Station
	lq       *LoadQueue
	sq       *StoreQueue
	arbiter  *Arbiter
	adapters [NumFUs]*Adapter
	units    [NumFUs]*FUnit
	agu      *AGU
	cache    *cache.Cache
	cacheCfg cache.Config
	memPort  *MemPort

	// memExc queues exception completions from address generation for
	// the memory result path, ahead of load data broadcasts.
	memExc []Completion

	// broadcast is this cycle's bus message, observed by dispatch for
	// same-cycle operand bypass.
	broadcast Broadcast

	onRedirect func(pc uint64)
	onBranch   func(pc uint64, taken bool, target uint64)

	halted   bool
	exitCode uint64
	cycle    uint64

	stats Statistics
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLatencies overrides the functional unit and memory latencies.
func WithLatencies(cfg *latency.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithCacheConfig overrides the L0 data cache geometry.
func WithCacheConfig(cfg cache.Config) Option {
	return func(e *Engine) { e.cacheCfg = cfg }
}

// WithTrapSink sets the trap unit that receives precise exceptions at
// commit.
func WithTrapSink(sink emu.TrapSink) Option {
	return func(e *Engine) { e.traps = sink }
}

// NewEngine creates an engine over the given architectural state.
func NewEngine(regFile *emu.RegFile, mem *emu.Memory, opts ...Option) *Engine {
	e := &Engine{
		regFile:  regFile,
		mem:      mem,
		cfg:      latency.DefaultConfig(),
		cacheCfg: cache.DefaultL0Config(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cache = cache.New(e.cacheCfg, cache.NewMemoryBacking(mem))
	e.buildPipeline()
	return e
}

// buildPipeline constructs the scheduling structures and units.
func (e *Engine) buildPipeline() {
	e.rob = NewROB()
	e.rat = NewRAT()
	e.lq = NewLoadQueue()
	e.sq = NewStoreQueue()
	e.arbiter = NewArbiter()
	e.agu = NewAGU(e.cfg)
	e.memPort = NewMemPort(e.cfg)

	for class := insts.Class(0); class < insts.NumClasses; class++ {
		e.stations[class] = NewStation(class, stationDepths[class])
	}

	e.units[FUALU] = NewALU(e.cfg)
	e.units[FUMul] = NewMultiplier(e.cfg)
	e.units[FUDiv] = NewDivider(e.cfg)
	e.units[FUFPAdd] = NewFPAdder(e.cfg)
	e.units[FUFPMul] = NewFPMultiplier(e.cfg)
	e.units[FUFPDiv] = NewFPDivider(e.cfg)
	// FUMem has no execution unit; the load queue and the exception
	// queue drive its result path directly.

	for kind := range e.adapters {
		e.adapters[kind] = NewAdapter()
	}
}

// SetRedirectHandler registers the front-end redirect callback, invoked
// on every misprediction recovery, trap, and replay.
func (e *Engine) SetRedirectHandler(handler func(pc uint64)) {
	e.onRedirect = handler
}

// SetBranchOutcomeHandler registers the callback invoked with each
// committed branch's resolved outcome, for predictor training.
func (e *Engine) SetBranchOutcomeHandler(handler func(pc uint64, taken bool, target uint64)) {
	e.onBranch = handler
}

// Halted reports whether a halt instruction has committed.
func (e *Engine) Halted() bool {
	return e.halted
}

// ExitCode returns the value of the halt instruction's source register
// at commit.
func (e *Engine) ExitCode() uint64 {
	return e.exitCode
}

// Busy reports whether any instruction is still in flight.
func (e *Engine) Busy() bool {
	return !e.rob.Empty()
}

// Cycle returns the number of cycles ticked.
func (e *Engine) Cycle() uint64 {
	return e.cycle
}

// Stats returns engine counters.
func (e *Engine) Stats() Statistics {
	return e.stats
}

// CacheStats returns L0 data cache counters.
func (e *Engine) CacheStats() cache.Statistics {
	return e.cache.Stats()
}

// ROBStats returns reorder buffer counters.
func (e *Engine) ROBStats() ROBStats {
	return e.rob.Stats()
}

// LoadQueueStats returns load queue counters.
func (e *Engine) LoadQueueStats() LoadQueueStats {
	return e.lq.Stats()
}

// StoreQueueStats returns store queue counters.
func (e *Engine) StoreQueueStats() StoreQueueStats {
	return e.sq.Stats()
}

// Reset returns the engine to its post-construction state. The
// architectural register file and memory are left untouched.
func (e *Engine) Reset() {
	e.buildPipeline()
	e.cache.Reset()
	e.memExc = nil
	e.broadcast = Broadcast{}
	e.halted = false
	e.exitCode = 0
	e.cycle = 0
	e.stats = Statistics{}
}

// Tick advances the engine one cycle. Dispatch is not part of Tick; the
// front end calls Dispatch afterwards so a newly dispatched entry can
// bypass this cycle's broadcast but cannot issue until the next cycle.
func (e *Engine) Tick() {
	e.cycle++
	e.stats.Cycles++

	for _, u := range e.units {
		if u != nil {
			u.Tick()
		}
	}

	e.memResponse()
	e.routeAddresses()
	e.broadcast = e.arbitrateAndBroadcast()
	e.commit()
	e.memPhase()
	e.issuePhase()
}

// memResponse drains a finished memory read into the load queue and
// fills the cache line it fetched. Pending cache-hit fills advance
// alongside.
func (e *Engine) memResponse() {
	e.lq.TickHits()

	req, done := e.memPort.Tick()
	if !done {
		return
	}

	data := e.mem.Read(req.Addr, int(req.Size.Bytes()))
	e.lq.MemResponse(data)
	e.cache.Fill(req.Addr)
}

// routeAddresses delivers finished address generations to the owning
// queue. A misaligned access drops its queue entry and reports a
// precise exception through the memory result path; a resolved store
// address is additionally checked against younger completed loads.
func (e *Engine) routeAddresses() {
	for _, ar := range e.agu.Tick() {
		if ar.Addr%ar.Size.Bytes() != 0 {
			cause := emu.ExcMisalignedLoad
			if ar.IsStore {
				cause = emu.ExcMisalignedStore
				e.sq.Invalidate(ar.Tag)
			} else {
				e.lq.Invalidate(ar.Tag)
			}
			e.memExc = append(e.memExc, Completion{
				Valid:     true,
				Tag:       ar.Tag,
				Exception: true,
				Cause:     cause,
			})
			continue
		}

		if ar.IsStore {
			e.sq.UpdateAddress(ar.Tag, ar.Addr)
			if tag, ok := e.lq.CheckViolation(ar.Tag, ar.Addr, ar.Size, e.rob.Head()); ok {
				e.rob.MarkReplay(tag)
			}
		} else {
			e.lq.UpdateAddress(ar.Tag, ar.Addr)
		}
	}
}

// arbitrateAndBroadcast collects each producer's result, arbitrates the
// bus, and applies the winning broadcast to every listener. Results are
// pulled from a unit only while its adapter is idle; otherwise they wait
// at the unit exit.
func (e *Engine) arbitrateAndBroadcast() Broadcast {
	var results [NumFUs]Completion

	for kind := FUKind(0); kind < NumFUs; kind++ {
		unit := e.units[kind]
		if unit == nil || e.adapters[kind].Pending() {
			continue
		}
		results[kind] = unit.TakeExit()
	}

	// The memory result path: queued exceptions first, then the oldest
	// data-valid load. Either is absorbed unconditionally below, granted
	// or latched.
	memExcTaken := false
	lqTaken := false
	if !e.adapters[FUMem].Pending() {
		if len(e.memExc) > 0 {
			results[FUMem] = e.memExc[0]
			memExcTaken = true
		} else if c, ok := e.lq.BroadcastCandidate(false); ok {
			results[FUMem] = c
			lqTaken = true
		}
	}

	var requests [NumFUs]Completion
	for kind := range e.adapters {
		requests[kind] = e.adapters[kind].Output(results[kind])
	}
	winner, grants, any := e.arbiter.Arbitrate(&requests)

	if memExcTaken {
		e.memExc = e.memExc[1:]
	}
	if lqTaken {
		e.lq.FreeBroadcast()
	}

	bcast := Broadcast{}
	if any {
		bcast = winner.toBroadcast()
		e.stats.Broadcasts++

		e.rob.Complete(bcast)
		if winner.IsBranch {
			e.rob.BranchResolve(winner.Tag, winner.Taken, winner.Target, winner.Mispredicted)
		}
		for _, s := range e.stations {
			s.Snoop(bcast)
		}
		e.sq.Snoop(bcast)
	}

	for kind := range e.adapters {
		e.adapters[kind].Step(results[kind], grants[kind])
	}

	if any && winner.IsBranch && winner.Mispredicted {
		e.recoverAtResolution(winner)
	}
	return bcast
}

// recoverAtResolution runs misprediction recovery the cycle the branch
// resolves, when a RAT checkpoint was saved for it: everything younger
// than the branch is flushed, the alias tables are restored, and the
// front end is redirected. Without a checkpoint the branch falls back
// to commit-time recovery.
func (e *Engine) recoverAtResolution(c Completion) {
	entry := e.rob.Entry(c.Tag)
	if !entry.Valid || !entry.HasCheckpoint {
		return
	}

	head := e.rob.Head()
	e.flushYounger(c.Tag, head)
	e.rat.FreeCheckpointsYounger(c.Tag, head)
	e.rat.CheckpointRestore(entry.CheckpointID)
	e.rob.MarkRecovered(c.Tag)
	e.stats.PartialFlushes++

	redirect := entry.PC + 4
	if c.Taken {
		redirect = c.Target
	}
	e.redirect(redirect)
}

// flushYounger squashes everything younger than the boundary tag across
// all scheduling structures. The boundary instruction and everything
// older survive.
func (e *Engine) flushYounger(boundary, head Tag) {
	e.rob.FlushYounger(boundary)
	for _, s := range e.stations {
		s.FlushYounger(boundary, head)
	}
	e.lq.FlushYounger(boundary, head)
	e.sq.FlushYounger(boundary, head)
	for _, u := range e.units {
		if u != nil {
			u.FlushYounger(boundary, head)
		}
	}
	for _, a := range e.adapters {
		a.FlushYounger(boundary, head)
	}
	e.agu.FlushYounger(boundary, head)

	kept := e.memExc[:0]
	for _, c := range e.memExc {
		if !YoungerThan(c.Tag, boundary, head) {
			kept = append(kept, c)
		}
	}
	e.memExc = kept
}

// flushAll squashes every in-flight instruction and clears the alias
// tables. With nothing in flight, architectural state is authoritative.
func (e *Engine) flushAll() {
	e.rob.FlushAll()
	e.rat.FlushAll()
	for _, s := range e.stations {
		s.FlushAll()
	}
	e.lq.FlushAll()
	e.sq.FlushAll()
	for _, u := range e.units {
		if u != nil {
			u.FlushAll()
		}
	}
	for _, a := range e.adapters {
		a.FlushAll()
	}
	e.agu.FlushAll()
	e.memExc = e.memExc[:0]
	e.stats.FullFlushes++
}

// commit retires at most one instruction from the reorder buffer head.
func (e *Engine) commit() {
	if e.halted || !e.rob.CanCommit() {
		return
	}

	headTag := e.rob.Head()
	head := e.rob.Entry(headTag)
	if head.IsStore && !head.Exception && !head.Replay && !e.sq.Ready(headTag) {
		return
	}

	info := e.rob.Commit()
	e.stats.Committed++

	if info.Exception {
		e.stats.Traps++
		var vector uint64
		if e.traps != nil {
			vector = e.traps.Trap(emu.TrapEvent{Cause: info.Cause, PC: info.PC})
		}
		e.flushAll()
		e.redirect(vector)
		return
	}

	if info.Replay {
		e.stats.Replays++
		e.flushAll()
		e.redirect(info.PC)
		return
	}

	if info.DestValid {
		if info.DestRF == insts.RFFloat {
			e.regFile.WriteFloat(info.DestReg, info.Value)
		} else {
			e.regFile.WriteInt(info.DestReg, info.Value)
		}
		e.rat.CommitClear(info.DestRF, info.DestReg, info.Tag)
	}

	if info.IsStore {
		if addr, size, data, ok := e.sq.Retire(info.Tag); ok {
			e.cache.Write(addr, int(size.Bytes()), data)
		}
	}

	if info.IsBranch {
		e.stats.Branches++
		if e.onBranch != nil {
			e.onBranch(info.PC, info.Taken, info.Target)
		}
		if info.HasCheckpoint {
			e.rat.CheckpointFree(info.CheckpointID)
		}
		if info.Mispredicted {
			e.stats.Mispredictions++
			if !info.Recovered {
				e.flushAll()
				e.redirect(info.RedirectPC)
			}
		}
	}

	if info.Op == insts.OpHalt {
		e.halted = true
		if reg := uint8(info.Value); reg < 32 {
			e.exitCode = e.regFile.ReadInt(reg)
		}
	}
}

// memPhase advances the oldest address-known load: forward from the
// store queue, complete from the cache, or issue the single outstanding
// memory read. An unknown or unforwardable older store stalls the load.
func (e *Engine) memPhase() {
	entry, ok := e.lq.MemCandidate()
	if !ok {
		return
	}

	d := e.sq.Disambiguate(entry.Tag, entry.Addr, entry.Size, e.rob.Head())
	if !d.AllOlderKnown {
		return
	}
	if d.CanForward {
		e.lq.ApplyForward(d.Data)
		return
	}
	if d.Match {
		return
	}

	if data, hit := e.cache.Read(entry.Addr, int(entry.Size.Bytes())); hit {
		e.lq.CompleteFromCache(data, e.cfg.CacheHitLatency)
		return
	}
	if req, ok := e.lq.IssueToMemory(); ok {
		e.memPort.Issue(req)
	}
}

// issuePhase moves at most one ready entry per station bank into its
// functional unit. Memory operations issue to address generation.
func (e *Engine) issuePhase() {
	head := e.rob.Head()

	direct := [...]struct {
		class insts.Class
		kind  FUKind
	}{
		{insts.ClassALU, FUALU},
		{insts.ClassMul, FUMul},
		{insts.ClassDiv, FUDiv},
		{insts.ClassFPAdd, FUFPAdd},
	}
	for _, p := range direct {
		unit := e.units[p.kind]
		bundle, ok := e.stations[p.class].SelectIssue(head, func(insts.Op) bool {
			return unit.CanAccept()
		})
		if ok {
			unit.Issue(bundle)
		}
	}

	// FP multiply and divide share a station bank but execute on
	// separate units.
	bundle, ok := e.stations[insts.ClassFPMulDiv].SelectIssue(head, func(op insts.Op) bool {
		if op == insts.OpFDiv {
			return e.units[FUFPDiv].CanAccept()
		}
		return e.units[FUFPMul].CanAccept()
	})
	if ok {
		unit := e.units[FUFPMul]
		if bundle.Op == insts.OpFDiv {
			unit = e.units[FUFPDiv]
		}
		unit.Issue(bundle)
	}

	bundle, ok = e.stations[insts.ClassMem].SelectIssue(head, func(insts.Op) bool {
		return e.agu.CanAccept()
	})
	if ok {
		e.agu.Issue(bundle)
	}
}

// readOperand resolves a source register: the architectural value when
// no producer is pending, the completed producer's result read out of
// the reorder buffer, or a pending tag to snoop for on the CDB.
func (e *Engine) readOperand(rf insts.RegFile, reg uint8) Operand {
	if reg == insts.RegNone {
		return ReadyOperand(0)
	}

	var value uint64
	if rf == insts.RFFloat {
		value = e.regFile.ReadFloat(reg)
	} else {
		value = e.regFile.ReadInt(reg)
	}

	op := e.rat.Lookup(rf, reg, value)
	if !op.Ready {
		entry := e.rob.Entry(op.Tag)
		if entry.Valid && entry.Done && !entry.Exception && !entry.Replay {
			op = ReadyOperand(entry.Value)
		}
	}
	return op
}

// Dispatch presents one decoded micro-op to the engine. It returns
// false when any required structure is full, in which case nothing is
// allocated and the front end must re-present the same micro-op next
// cycle. Accepted operands observe this cycle's broadcast.
func (e *Engine) Dispatch(req DispatchRequest) bool {
	if e.halted {
		return false
	}
	m := &req.Op

	needsStation := true
	switch m.Op {
	case insts.OpNop, insts.OpFence, insts.OpHalt, insts.OpJal:
		needsStation = false
	}
	class := m.Class()

	if e.rob.Full() ||
		(needsStation && e.stations[class].Full()) ||
		(m.IsLoad() && e.lq.Full()) ||
		(m.IsStore() && e.sq.Full()) {
		e.stats.DispatchStalls++
		return false
	}

	areq := AllocationRequest{
		PC:              m.PC,
		Op:              m.Op,
		IsStore:         m.IsStore(),
		IsBranch:        m.IsBranch(),
		PredictedTaken:  req.PredictedTaken,
		PredictedTarget: req.PredictedTarget,
	}
	if m.HasDest() {
		areq.DestValid = true
		areq.DestRF = m.DestRF
		areq.DestReg = m.Dest
	}
	switch m.Op {
	case insts.OpNop, insts.OpFence, insts.OpStore:
		areq.DoneAtDispatch = true
	case insts.OpHalt:
		// The exit code register is read architecturally at commit,
		// after everything older has retired.
		areq.DoneAtDispatch = true
		areq.Value = uint64(m.Src1)
	case insts.OpJal:
		areq.DoneAtDispatch = true
		areq.Value = m.PC + 4
	}

	tag, ok := e.rob.Allocate(areq)
	if !ok {
		return false
	}
	e.stats.Dispatched++

	if m.Op == insts.OpJal {
		mispredicted := !req.PredictedTaken || req.PredictedTarget != m.Target
		e.rob.BranchResolve(tag, true, m.Target, mispredicted)
	}

	switch {
	case m.Op == insts.OpLoad:
		e.lq.Alloc(tag, m.Size, m.SignExtend)
		e.stations[class].Dispatch(StationEntry{
			Op:         m.Op,
			Tag:        tag,
			PC:         m.PC,
			Src1:       e.readOperand(insts.RFInt, m.Src1),
			Src2:       ReadyOperand(0),
			Src3:       ReadyOperand(0),
			Imm:        m.Imm,
			UseImm:     true,
			Size:       m.Size,
			SignExtend: m.SignExtend,
		}, e.broadcast)

	case m.Op == insts.OpStore:
		e.sq.Alloc(tag, m.Size, e.readOperand(m.SrcRF, m.Src2), e.broadcast)
		e.stations[class].Dispatch(StationEntry{
			Op:     m.Op,
			Tag:    tag,
			PC:     m.PC,
			Src1:   e.readOperand(insts.RFInt, m.Src1),
			Src2:   ReadyOperand(0),
			Src3:   ReadyOperand(0),
			Imm:    m.Imm,
			UseImm: true,
			Size:   m.Size,
		}, e.broadcast)

	case needsStation:
		entry := StationEntry{
			Op:              m.Op,
			Tag:             tag,
			PC:              m.PC,
			Src1:            e.readOperand(m.SrcRF, m.Src1),
			Src3:            ReadyOperand(0),
			Imm:             m.Imm,
			UseImm:          m.UseImm,
			Target:          m.Target,
			PredictedTaken:  req.PredictedTaken,
			PredictedTarget: req.PredictedTarget,
		}
		if m.UseImm || m.Src2 == insts.RegNone {
			entry.Src2 = ReadyOperand(0)
		} else {
			entry.Src2 = e.readOperand(m.SrcRF, m.Src2)
		}
		e.stations[class].Dispatch(entry, e.broadcast)
	}

	// Conditional branches snapshot the alias tables so recovery can run
	// at resolution. With no free slot the branch recovers at commit.
	if m.Op == insts.OpBranchEQ || m.Op == insts.OpBranchNE {
		if id, ok := e.rat.CheckpointAvailable(); ok {
			e.rat.CheckpointSave(id, tag)
			e.rob.SetCheckpoint(tag, id)
		}
	}

	if areq.DestValid {
		e.rat.Rename(m.DestRF, m.Dest, tag)
	}
	return true
}

// redirect steers the front end to a new fetch PC.
func (e *Engine) redirect(pc uint64) {
	if e.onRedirect != nil {
		e.onRedirect(pc)
	}
}
