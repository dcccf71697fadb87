// SPDX-License-Identifier: Unlicense OR MIT

/*
Package gesture implements gesture recognizers driven by pointer
samples.

A Handler runs the recognizer state machine shared by every gesture:
it starts Undetermined, may Begin, become Active and End, or leave
early by Fail or Cancel. What moves a handler between states is the
Policy of its Kind: taps count presses within time and distance
limits, long presses wait for a pointer to rest, and manual handlers
leave the decision to the host.

Handlers never resolve conflicts themselves. Success transitions are
submitted to an Arbiter, normally the orchestrator in package
io/input, which applies the Rules between handlers.
*/
package gesture

import (
	"fmt"

	"touchflow.org/io/pointer"
)

// ID identifies a Handler. IDs are assigned by the host and must be
// unique within an orchestrator.
type ID uint32

// Kind is the recognizer variant of a Handler.
type Kind uint8

const (
	// KindInert handlers fail on their first sample.
	KindInert Kind = iota
	// KindTap recognizes one or more quick presses.
	KindTap
	// KindLongPress recognizes a pointer held in place.
	KindLongPress
	// KindManual handlers begin on their first sample and are
	// resolved by the host.
	KindManual
)

// Policy is the per-kind behavior of a Handler. Policy methods are
// called by the Handler and must not be called directly.
type Policy interface {
	// Handle reacts to a sample already in handler coordinates.
	Handle(h *Handler, s pointer.Sample)
	// StateChanged runs after the arbiter has observed a transition.
	StateChanged(h *Handler, newState, oldState State)
	// Cancelled runs just before a handler is cancelled.
	Cancelled(h *Handler)
	// Reset clears per-gesture state.
	Reset(h *Handler)
}

// inert is the Policy of KindInert handlers.
type inert struct{}

func (k Kind) String() string {
	switch k {
	case KindInert:
		return "inert"
	case KindTap:
		return "tap"
	case KindLongPress:
		return "long-press"
	case KindManual:
		return "manual"
	default:
		panic("invalid Kind")
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindInert; k <= KindManual; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("gesture: unknown kind %q", s)
}

// NewInert returns a handler that fails as soon as it sees a sample.
// It can still take part in relations, for example as a handler other
// handlers wait for.
func NewInert(id ID) *Handler {
	return newHandler(id, KindInert, inert{})
}

func (inert) Handle(h *Handler, s pointer.Sample) {
	h.Fail()
}

func (inert) StateChanged(h *Handler, newState, oldState State) {}
func (inert) Cancelled(h *Handler)                            {}
func (inert) Reset(h *Handler)                                {}
