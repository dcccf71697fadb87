// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import (
	"golang.org/x/exp/slices"
)

// Rules answers relation queries between pairs of handlers. The
// Handler methods of the same names filter out self-relations before
// consulting Rules.
type Rules interface {
	// ShouldWaitForFailure reports whether h may only succeed after
	// other failed.
	ShouldWaitForFailure(h, other *Handler) bool
	// ShouldRequireToWaitForFailure reports whether other may only
	// succeed after h failed.
	ShouldRequireToWaitForFailure(h, other *Handler) bool
	// ShouldRecognizeSimultaneously reports whether h and other may
	// be active together.
	ShouldRecognizeSimultaneously(h, other *Handler) bool
	// ShouldBeCancelledBy reports whether an active h yields to
	// other.
	ShouldBeCancelledBy(h, other *Handler) bool
}

// Relations is a table of declared relations between handler ids.
// The zero value has no relations and is ready to use.
type Relations struct {
	waitFor      map[ID][]ID
	blocks       map[ID][]ID
	simultaneous map[ID][]ID
	cancelledBy  map[ID][]ID
}

// NewRelations returns an empty table.
func NewRelations() *Relations {
	return new(Relations)
}

// WaitFor declares that id waits for each of others to fail.
func (r *Relations) WaitFor(id ID, others ...ID) {
	r.waitFor = add(r.waitFor, id, others)
}

// Blocks declares that each of others waits for id to fail.
func (r *Relations) Blocks(id ID, others ...ID) {
	r.blocks = add(r.blocks, id, others)
}

// Simultaneous declares that id may be active together with each of
// others. The relation is symmetric.
func (r *Relations) Simultaneous(id ID, others ...ID) {
	r.simultaneous = add(r.simultaneous, id, others)
}

// CancelledBy declares that an active id yields to each of others.
func (r *Relations) CancelledBy(id ID, others ...ID) {
	r.cancelledBy = add(r.cancelledBy, id, others)
}

// Drop removes every relation that mentions id.
func (r *Relations) Drop(id ID) {
	for _, m := range []map[ID][]ID{r.waitFor, r.blocks, r.simultaneous, r.cancelledBy} {
		delete(m, id)
		for k, ids := range m {
			ids = slices.DeleteFunc(ids, func(o ID) bool { return o == id })
			if len(ids) == 0 {
				delete(m, k)
			} else {
				m[k] = ids
			}
		}
	}
}

// Clear removes all relations.
func (r *Relations) Clear() {
	*r = Relations{}
}

func (r *Relations) ShouldWaitForFailure(h, other *Handler) bool {
	return has(r.waitFor, h.ID(), other.ID())
}

func (r *Relations) ShouldRequireToWaitForFailure(h, other *Handler) bool {
	return has(r.blocks, h.ID(), other.ID())
}

func (r *Relations) ShouldRecognizeSimultaneously(h, other *Handler) bool {
	return has(r.simultaneous, h.ID(), other.ID()) || has(r.simultaneous, other.ID(), h.ID())
}

func (r *Relations) ShouldBeCancelledBy(h, other *Handler) bool {
	return has(r.cancelledBy, h.ID(), other.ID())
}

func add(m map[ID][]ID, id ID, others []ID) map[ID][]ID {
	if m == nil {
		m = make(map[ID][]ID)
	}
	for _, o := range others {
		if o != id && !slices.Contains(m[id], o) {
			m[id] = append(m[id], o)
		}
	}
	return m
}

func has(m map[ID][]ID, id, other ID) bool {
	return slices.Contains(m[id], other)
}
