// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import (
	"math/bits"
	"strconv"

	"touchflow.org/clock"
	"touchflow.org/f64"
	"touchflow.org/io/pointer"
	"touchflow.org/io/view"
)

// Handler is a gesture recognizer attached to a view. Handlers are
// not safe for concurrent use; every method must be called from the
// goroutine that delivers pointer samples.
type Handler struct {
	id     ID
	kind   Kind
	policy Policy
	rules  Rules

	state   State
	enabled bool
	// slop is nil when the handler accepts exactly its view bounds.
	slop              *HitSlop
	cancelWhenOutside bool
	manualActivation  bool
	needsPointerData  bool

	prepared bool
	view     view.ID
	arbiter  Arbiter
	sched    clock.Scheduler

	pos          f64.Point
	withinBounds bool
	pointers     int
	// tracked is a set of pointer ids, one bit per id below
	// pointer.MaxID.
	tracked uint32
}

// Arbiter decides between competing handlers.
type Arbiter interface {
	// Admit is asked before h moves to Active, or to End straight
	// from Began.
	Admit(h *Handler, to State) Verdict
	// StateChanged is called after every transition, before the
	// handler's policy sees it.
	StateChanged(h *Handler, newState, oldState State)
}

// Verdict is an Arbiter decision.
type Verdict uint8

const (
	// Proceed lets the transition happen.
	Proceed Verdict = iota
	// Defer postpones the transition. The arbiter replays it once
	// the handlers it depends on have resolved.
	Defer
	// Reject denies the transition. The handler is cancelled if it
	// began, failed otherwise.
	Reject
)

func newHandler(id ID, k Kind, p Policy) *Handler {
	return &Handler{id: id, kind: k, policy: p, enabled: true}
}

// ID returns the handler identity.
func (h *Handler) ID() ID { return h.id }

// Kind returns the recognizer variant.
func (h *Handler) Kind() Kind { return h.kind }

// State returns the current recognition state.
func (h *Handler) State() State { return h.state }

// View returns the view the handler is prepared for, or view.None.
func (h *Handler) View() view.ID { return h.view }

// Prepared reports whether the handler is attached to an arbiter.
func (h *Handler) Prepared() bool { return h.prepared }

// Position returns the last sample position in view coordinates.
func (h *Handler) Position() f64.Point { return h.pos }

// WithinBounds reports whether the last sample fell inside the
// handler's hit area.
func (h *Handler) WithinBounds() bool { return h.withinBounds }

// Pointers returns the pointer count of the last sample.
func (h *Handler) Pointers() int { return h.pointers }

// Enabled reports whether the handler accepts samples.
func (h *Handler) Enabled() bool { return h.enabled }

// SetEnabled enables or disables the handler. Disabling a prepared
// handler cancels its gesture.
func (h *Handler) SetEnabled(enabled bool) {
	if h.enabled == enabled {
		return
	}
	h.enabled = enabled
	if !enabled && h.prepared {
		h.Cancel()
	}
}

// HitSlop returns the hit slop and whether one is set.
func (h *Handler) HitSlop() (HitSlop, bool) {
	if h.slop == nil {
		return HitSlop{}, false
	}
	return *h.slop, true
}

// SetHitSlop sets the hit slop after validating it.
func (h *Handler) SetHitSlop(s HitSlop) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.slop = &s
	return nil
}

// ClearHitSlop removes the hit slop.
func (h *Handler) ClearHitSlop() {
	h.slop = nil
}

// ShouldCancelWhenOutside reports whether a sample outside the hit
// area aborts the gesture.
func (h *Handler) ShouldCancelWhenOutside() bool { return h.cancelWhenOutside }

// SetShouldCancelWhenOutside sets the outside policy.
func (h *Handler) SetShouldCancelWhenOutside(cancel bool) {
	h.cancelWhenOutside = cancel
}

// ManualActivation reports whether Activate is reserved to
// ForceActivate.
func (h *Handler) ManualActivation() bool { return h.manualActivation }

// SetManualActivation makes Activate a no-op so that only
// ForceActivate can activate the handler.
func (h *Handler) SetManualActivation(manual bool) {
	h.manualActivation = manual
}

// NeedsPointerData reports whether the orchestrator should stream
// raw samples for this handler to its listener.
func (h *Handler) NeedsPointerData() bool { return h.needsPointerData }

// SetNeedsPointerData sets the raw sample streaming flag.
func (h *Handler) SetNeedsPointerData(needs bool) {
	h.needsPointerData = needs
}

// Rules returns the relations used to query other handlers, or nil.
func (h *Handler) Rules() Rules { return h.rules }

// SetRules sets the relations between h and other handlers.
func (h *Handler) SetRules(r Rules) {
	h.rules = r
}

// Scheduler returns the scheduler of a prepared handler.
func (h *Handler) Scheduler() clock.Scheduler { return h.sched }

// Prepare attaches h to a view and an arbiter for one gesture.
// Prepare panics if h is already prepared or v is view.None.
func (h *Handler) Prepare(v view.ID, a Arbiter, s clock.Scheduler) {
	if h.prepared {
		panic("gesture: handler is already prepared")
	}
	if v == view.None {
		panic("gesture: handler prepared without a view")
	}
	h.prepared = true
	h.view = v
	h.arbiter = a
	h.sched = s
	h.state = Undetermined
	h.tracked = 0
}

// Reset detaches the handler and returns it to Undetermined.
func (h *Handler) Reset() {
	h.policy.Reset(h)
	h.prepared = false
	h.view = view.None
	h.arbiter = nil
	h.sched = nil
	h.state = Undetermined
	h.tracked = 0
	h.pointers = 0
	h.pos = f64.Point{}
	h.withinBounds = false
}

// WantEvents reports whether h should receive samples.
func (h *Handler) WantEvents() bool {
	return h.enabled && h.prepared && !h.state.Finished()
}

// StartTracking adds a pointer to the set followed by h. Ids at or
// above pointer.MaxID are ignored.
func (h *Handler) StartTracking(id pointer.ID) {
	if id < pointer.MaxID {
		h.tracked |= 1 << id
	}
}

// StopTracking removes a pointer from the followed set.
func (h *Handler) StopTracking(id pointer.ID) {
	if id < pointer.MaxID {
		h.tracked &^= 1 << id
	}
}

// Tracking reports whether h follows the pointer.
func (h *Handler) Tracking(id pointer.ID) bool {
	return id < pointer.MaxID && h.tracked&(1<<id) != 0
}

// Tracked returns the number of pointers followed by h.
func (h *Handler) Tracked() int {
	return bits.OnesCount32(h.tracked)
}

// HasCommonPointers reports whether h and o follow a pointer in
// common.
func (h *Handler) HasCommonPointers(o *Handler) bool {
	return h.tracked&o.tracked != 0
}

// IsWithinBounds reports whether p, in view coordinates, lies in
// the hit area of a view of the given size. Edges are inclusive.
func (h *Handler) IsWithinBounds(size, p f64.Point) bool {
	r := f64.Rectangle{Max: size}
	if h.slop != nil {
		r = h.slop.Expand(r)
	}
	return r.Contains(p)
}

// Handle feeds a sample in view coordinates to the handler. Samples
// are dropped while the handler does not want events.
func (h *Handler) Handle(s pointer.Sample, size f64.Point) {
	if !h.WantEvents() {
		return
	}
	h.pos = s.Position
	h.pointers = s.Count
	h.withinBounds = h.IsWithinBounds(size, s.Position)
	if h.cancelWhenOutside && !h.withinBounds {
		switch h.state {
		case Active:
			h.Cancel()
		case Began:
			h.Fail()
		}
		return
	}
	h.policy.Handle(h, s)
}

// Begin moves an Undetermined handler to Began.
func (h *Handler) Begin() {
	if h.state == Undetermined {
		h.moveTo(Began)
	}
}

// Activate moves the handler to Active, subject to the arbiter. It
// does nothing when manual activation is set.
func (h *Handler) Activate() {
	if !h.manualActivation {
		h.activate()
	}
}

// ForceActivate is like Activate but ignores manual activation.
func (h *Handler) ForceActivate() {
	h.activate()
}

func (h *Handler) activate() {
	if !h.state.Allows(Active) || !h.admit(Active) {
		return
	}
	h.moveTo(Active)
}

// End completes the gesture. Ending straight from Began is subject
// to the arbiter.
func (h *Handler) End() {
	switch h.state {
	case Active:
		h.moveTo(End)
	case Began:
		if h.admit(End) {
			h.moveTo(End)
		}
	}
}

// Fail moves an unfinished handler to Failed.
func (h *Handler) Fail() {
	if !h.state.Finished() {
		h.moveTo(Failed)
	}
}

// Cancel moves an unfinished handler to Cancelled.
func (h *Handler) Cancel() {
	if h.state.Finished() {
		return
	}
	h.policy.Cancelled(h)
	if !h.state.Finished() {
		h.moveTo(Cancelled)
	}
}

func (h *Handler) admit(to State) bool {
	if h.arbiter == nil {
		return true
	}
	switch h.arbiter.Admit(h, to) {
	case Proceed:
		return true
	case Reject:
		if h.state == Began {
			h.Cancel()
		} else {
			h.Fail()
		}
	}
	return false
}

func (h *Handler) moveTo(s State) {
	old := h.state
	if old == s {
		return
	}
	h.state = s
	if h.arbiter != nil {
		h.arbiter.StateChanged(h, s, old)
	}
	h.policy.StateChanged(h, s, old)
}

// ShouldWaitForFailure reports whether h must wait for o to fail
// before it can succeed.
func (h *Handler) ShouldWaitForFailure(o *Handler) bool {
	if o == h || h.rules == nil {
		return false
	}
	return h.rules.ShouldWaitForFailure(h, o)
}

// ShouldRequireToWaitForFailure reports whether o must wait for h to
// fail before o can succeed.
func (h *Handler) ShouldRequireToWaitForFailure(o *Handler) bool {
	if o == h || h.rules == nil {
		return false
	}
	return h.rules.ShouldRequireToWaitForFailure(h, o)
}

// ShouldRecognizeSimultaneously reports whether h may be active at
// the same time as o. A handler is always simultaneous with itself.
func (h *Handler) ShouldRecognizeSimultaneously(o *Handler) bool {
	if o == h {
		return true
	}
	if h.rules == nil {
		return false
	}
	return h.rules.ShouldRecognizeSimultaneously(h, o)
}

// ShouldBeCancelledBy reports whether an active h yields to o when
// o activates.
func (h *Handler) ShouldBeCancelledBy(o *Handler) bool {
	if o == h || h.rules == nil {
		return false
	}
	return h.rules.ShouldBeCancelledBy(h, o)
}

func (h *Handler) String() string {
	return h.kind.String() + "#" + strconv.FormatUint(uint64(h.id), 10)
}
