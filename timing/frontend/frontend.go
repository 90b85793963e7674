// Package frontend provides the in-order fetch/predict stage that feeds
// the out-of-order engine one micro-op per cycle.
package frontend

import (
	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

// Stats holds front-end counters.
type Stats struct {
	Fetched   uint64
	Redirects uint64
}

// Frontend walks a program in predicted order and produces dispatch
// requests. A rejected request is re-presented unchanged until the
// engine accepts it. Redirects from the engine override the predicted
// path on mispredictions, traps, and replays.
type Frontend struct {
	program   *insts.Program
	predictor *Predictor

	pc      uint64
	pending *tomasulo.DispatchRequest
	// fetchStall is set after fetching a halt; fetch resumes only on a
	// redirect, since everything past a halt is never executed.
	fetchStall bool

	stats Stats
}

// New creates a front end over the given program.
func New(program *insts.Program, predictor *Predictor) *Frontend {
	if predictor == nil {
		predictor = NewPredictor(DefaultPredictorConfig())
	}
	return &Frontend{
		program:   program,
		predictor: predictor,
	}
}

// PC returns the next fetch PC.
func (f *Frontend) PC() uint64 {
	return f.pc
}

// Stats returns front-end counters.
func (f *Frontend) Stats() Stats {
	return f.stats
}

// PredictorStats returns branch predictor counters.
func (f *Frontend) PredictorStats() PredictorStats {
	return f.predictor.Stats()
}

// Next returns the dispatch request for this cycle, or false when fetch
// is stalled. Fetching a branch speculatively steers the fetch PC along
// the predicted path.
func (f *Frontend) Next() (tomasulo.DispatchRequest, bool) {
	if f.pending != nil {
		return *f.pending, true
	}
	if f.fetchStall {
		return tomasulo.DispatchRequest{}, false
	}

	m, ok := f.program.At(f.pc)
	if !ok {
		return tomasulo.DispatchRequest{}, false
	}

	req := tomasulo.DispatchRequest{Op: m}
	switch m.Op {
	case insts.OpJal:
		// The target is computed at decode, so jumps never mispredict.
		req.PredictedTaken = true
		req.PredictedTarget = m.Target
		f.pc = m.Target

	case insts.OpBranchEQ, insts.OpBranchNE:
		pred := f.predictor.Predict(m.PC)
		if pred.Taken && pred.TargetKnown {
			req.PredictedTaken = true
			req.PredictedTarget = pred.Target
			f.pc = pred.Target
		} else {
			f.pc = m.PC + 4
		}

	case insts.OpHalt:
		f.fetchStall = true
		f.pc = m.PC + 4

	default:
		f.pc = m.PC + 4
	}

	f.pending = &req
	f.stats.Fetched++
	return req, true
}

// Accept marks the pending request as taken by the engine.
func (f *Frontend) Accept() {
	f.pending = nil
}

// Redirect abandons the speculative path and resumes fetch at pc.
func (f *Frontend) Redirect(pc uint64) {
	f.pc = pc
	f.pending = nil
	f.fetchStall = false
	f.stats.Redirects++
}

// Train updates the branch predictor with a committed branch outcome.
func (f *Frontend) Train(pc uint64, taken bool, target uint64) {
	f.predictor.Update(pc, taken, target)
}

// Reset returns fetch to PC 0 and clears the predictor.
func (f *Frontend) Reset() {
	f.pc = 0
	f.pending = nil
	f.fetchStall = false
	f.predictor.Reset()
	f.stats = Stats{}
}
