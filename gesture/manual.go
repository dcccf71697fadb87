// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import "touchflow.org/io/pointer"

type manual struct{}

// NewManual returns a handler that begins on its first sample and
// otherwise waits for the host to move it between states.
func NewManual(id ID) *Handler {
	return newHandler(id, KindManual, manual{})
}

// NewCustom returns a handler whose recognition is driven by p. It
// reports KindManual, since only its host knows what it recognizes.
func NewCustom(id ID, p Policy) *Handler {
	return newHandler(id, KindManual, p)
}

func (manual) Handle(h *Handler, s pointer.Sample) {
	if h.State() == Undetermined {
		h.Begin()
	}
}

func (manual) StateChanged(h *Handler, newState, oldState State) {}
func (manual) Cancelled(h *Handler)                            {}
func (manual) Reset(h *Handler)                                {}
