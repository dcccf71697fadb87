// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"golang.org/x/exp/slices"

	"touchflow.org/gesture"
)

// Admit implements gesture.Arbiter.
func (o *Orchestrator) Admit(h *gesture.Handler, to gesture.State) gesture.Verdict {
	r := o.records[h.ID()]
	if r == nil {
		return gesture.Proceed
	}
	for _, other := range o.live {
		if other == h || other.State() != gesture.Active || !o.competing(h, other) {
			continue
		}
		// An active handler keeps the pointers unless it yields to h.
		if !other.ShouldBeCancelledBy(h) || h.ShouldBeCancelledBy(other) {
			o.log.WithFields(o.fields(h)).WithField("winner", other.ID()).Debug("rejected")
			return gesture.Reject
		}
	}
	if o.mustWait(h) {
		if r.index == unassigned {
			r.index = o.nextIndex
			o.nextIndex++
		}
		r.awaiting = true
		if to == gesture.Active {
			r.pendingActivate = true
		} else {
			r.pendingEnd = true
		}
		o.log.WithFields(o.fields(h)).WithField("to", to).Debug("deferred")
		return gesture.Defer
	}
	return gesture.Proceed
}

// StateChanged implements gesture.Arbiter. Changes are queued and
// processed by the outermost call.
func (o *Orchestrator) StateChanged(h *gesture.Handler, newState, oldState gesture.State) {
	if r := o.records[h.ID()]; r != nil {
		if oldState == gesture.Undetermined && r.index == unassigned {
			r.index = o.nextIndex
			o.nextIndex++
		}
		if newState.Finished() {
			r.awaiting = false
			r.pendingActivate, r.pendingEnd = false, false
		}
	}
	o.changes = append(o.changes, stateChange{h: h, newState: newState, oldState: oldState})
	if o.draining {
		return
	}
	o.draining = true
	for len(o.changes) > 0 {
		c := o.changes[0]
		o.changes = o.changes[1:]
		o.process(c)
	}
	o.changes = o.changes[:0]
	o.draining = false
}

func (o *Orchestrator) process(c stateChange) {
	o.log.WithFields(o.fields(c.h)).WithField("from", c.oldState).WithField("to", c.newState).Debug("state")
	if o.listener != nil {
		o.listener.OnStateChange(c.h.ID(), c.newState, c.oldState)
	}
	switch c.newState {
	case gesture.Active:
		o.failWaiting(c.h)
		o.exclude(c.h)
	case gesture.End:
		o.failWaiting(c.h)
	case gesture.Failed, gesture.Cancelled:
		o.release(c.h)
	}
}

// exclude drives out the handlers competing with the newly active h.
func (o *Orchestrator) exclude(h *gesture.Handler) {
	for _, other := range slices.Clone(o.live) {
		if other == h || other.State().Finished() || !o.competing(h, other) {
			continue
		}
		if other.State() == gesture.Active && !other.ShouldBeCancelledBy(h) {
			continue
		}
		o.log.WithFields(o.fields(other)).WithField("winner", h.ID()).Debug("excluded")
		if other.State() == gesture.Undetermined {
			other.Fail()
		} else {
			other.Cancel()
		}
	}
}

// failWaiting fails the handlers waiting for h, which succeeded.
func (o *Orchestrator) failWaiting(h *gesture.Handler) {
	for _, w := range slices.Clone(o.live) {
		if w != h && !w.State().Finished() && o.waits(w, h) {
			w.Fail()
		}
	}
}

// release replays the deferred transitions of the handlers that only
// waited for h, which failed.
func (o *Orchestrator) release(h *gesture.Handler) {
	for _, w := range slices.Clone(o.live) {
		r := o.records[w.ID()]
		if w == h || r == nil || !r.awaiting || !o.waits(w, h) || o.mustWait(w) {
			continue
		}
		activate, end := r.pendingActivate, r.pendingEnd
		r.awaiting = false
		r.pendingActivate, r.pendingEnd = false, false
		o.log.WithFields(o.fields(w)).Debug("released")
		if activate {
			w.ForceActivate()
		}
		if end {
			w.End()
		}
	}
}

// mustWait reports whether h waits for an unfinished handler.
func (o *Orchestrator) mustWait(h *gesture.Handler) bool {
	for _, other := range o.live {
		if other != h && !other.State().Finished() && o.waits(h, other) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) waits(h, other *gesture.Handler) bool {
	return h.ShouldWaitForFailure(other) || other.ShouldRequireToWaitForFailure(h)
}

// competing reports whether h and other contend for a pointer.
func (o *Orchestrator) competing(h, other *gesture.Handler) bool {
	if !h.HasCommonPointers(other) {
		return false
	}
	return !h.ShouldRecognizeSimultaneously(other) && !other.ShouldRecognizeSimultaneously(h)
}
