package tomasulo

// Adapter is the one-deep holding register between a functional unit and
// the CDB arbiter. An idle adapter passes a fresh result straight
// through; if the arbiter denies the grant, the result is latched and
// re-presented every cycle until granted. While a result is held the
// adapter asserts back-pressure and the owning station or queue must not
// hand the unit work that would produce a second un-bufferable result.
type Adapter struct {
	pending bool
	held    Completion
}

// NewAdapter creates an idle adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Pending reports whether a result is held awaiting a grant. This is the
// back-pressure signal honored by issue logic.
func (a *Adapter) Pending() bool {
	return a.pending
}

// Held returns the held result. Meaningful only while Pending.
func (a *Adapter) Held() Completion {
	return a.held
}

// Output returns the completion the adapter presents to the arbiter this
// cycle: the held result while pending, otherwise the unit's fresh
// result passed through with zero added latency.
func (a *Adapter) Output(unitResult Completion) Completion {
	if a.pending {
		return a.held
	}
	return unitResult
}

// Step applies the cycle-boundary state transition. unitResult is the
// unit's output during this cycle and granted is the arbiter's decision
// for this adapter. A new result arriving while the old one is granted
// latches immediately, allowing back-to-back broadcasts with no idle
// cycle.
func (a *Adapter) Step(unitResult Completion, granted bool) {
	switch {
	case a.pending && granted:
		if unitResult.Valid {
			a.held = unitResult
		} else {
			a.pending = false
			a.held = Completion{}
		}
	case !a.pending && unitResult.Valid && !granted:
		a.held = unitResult
		a.pending = true
	}
}

// FlushYounger discards a held result whose tag is younger than the
// flush boundary. Older held results survive untouched.
func (a *Adapter) FlushYounger(boundary, head Tag) {
	if a.pending && YoungerThan(a.held.Tag, boundary, head) {
		a.pending = false
		a.held = Completion{}
	}
}

// FlushAll discards any held result.
func (a *Adapter) FlushAll() {
	a.pending = false
	a.held = Completion{}
}
