// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"touchflow.org/gesture"
	"touchflow.org/io/pointer"
)

// Listener observes an Orchestrator. Its methods run on the
// delivering goroutine, in the order the changes happen.
type Listener interface {
	// OnStateChange reports every handler transition.
	OnStateChange(id gesture.ID, newState, oldState gesture.State)
	// OnTouchEvent streams the samples delivered to handlers that
	// need pointer data, in handler coordinates.
	OnTouchEvent(id gesture.ID, s pointer.Sample)
}

// ListenerFuncs adapts functions to a Listener. Nil fields are
// skipped.
type ListenerFuncs struct {
	StateChange func(id gesture.ID, newState, oldState gesture.State)
	TouchEvent  func(id gesture.ID, s pointer.Sample)
}

func (l ListenerFuncs) OnStateChange(id gesture.ID, newState, oldState gesture.State) {
	if l.StateChange != nil {
		l.StateChange(id, newState, oldState)
	}
}

func (l ListenerFuncs) OnTouchEvent(id gesture.ID, s pointer.Sample) {
	if l.TouchEvent != nil {
		l.TouchEvent(id, s)
	}
}
