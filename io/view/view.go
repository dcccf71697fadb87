// SPDX-License-Identifier: Unlicense OR MIT

/*
Package view describes the view geometry the gesture orchestrator
queries when it selects candidate handlers for a pointer.

The orchestrator never computes layout itself. Hosts implement
Tree over their own view system; Hierarchy is an in-memory
implementation used by tests and by the replay tool.
*/
package view

import (
	"errors"
	"fmt"

	"touchflow.org/f64"
)

// ID identifies a view. The zero ID is never assigned.
type ID uint32

// None is the zero ID.
const None ID = 0

// Tree is the geometry query interface of the host view system.
type Tree interface {
	// HitTest returns the views under p, given in root coordinates.
	// The most direct target comes first, followed by the views
	// that should see the pointer through it, such as its ancestors.
	// A view the walk visits is also hit when reach, if not nil,
	// reports p within an area extending the view.
	HitTest(p f64.Point, reach Reach) []ID
	// Bounds returns the frame of v in root coordinates, or an error
	// wrapping ErrNotFound if v is not attached to the tree.
	Bounds(v ID) (f64.Rectangle, error)
}

// Reach reports whether local, in the coordinates of the view v of
// the given size, lies in an area that extends the view beyond its
// frame, such as the hit slop of its handlers. It only widens the
// views the hit walk visits; it never makes hidden, excluded or
// covered views targets.
type Reach func(v ID, size, local f64.Point) bool

// PointerEvents controls whether a view and its children can be
// the target of a pointer.
type PointerEvents uint8

const (
	// EventsAuto lets both the view and its children be targets.
	EventsAuto PointerEvents = iota
	// EventsNone excludes the view and its children.
	EventsNone
	// EventsBoxOnly makes the view a target but never its children.
	EventsBoxOnly
	// EventsBoxNone excludes the view itself but not its children.
	EventsBoxNone
)

// ErrNotFound is returned for views that are not attached.
var ErrNotFound = errors.New("view: not found")

// Hierarchy is an in-memory Tree. Frames are relative to the
// parent view, and children are hit in reverse insertion order,
// the last added child being on top.
type Hierarchy struct {
	nodes []node
}

// Options configure a view added to a Hierarchy.
type Options struct {
	PointerEvents PointerEvents
	// Overflow lets children receive pointers outside the frame of
	// the view.
	Overflow bool
	// Hidden views and their children are never targets.
	Hidden bool
}

type node struct {
	frame f64.Rectangle
	opts  Options

	// Tree indices, with -1 being the sentinel.
	parent     int
	firstChild int
	lastChild  int
	sibling    int

	removed bool
}

// NewHierarchy returns a Hierarchy with a root view covering root.
func NewHierarchy(root f64.Rectangle) *Hierarchy {
	h := new(Hierarchy)
	h.nodes = append(h.nodes, node{
		frame:      root,
		parent:     -1,
		firstChild: -1,
		lastChild:  -1,
		sibling:    -1,
	})
	return h
}

// Root returns the root view.
func (h *Hierarchy) Root() ID {
	return idOf(0)
}

// Add a child view of parent with the frame given in parent
// coordinates.
func (h *Hierarchy) Add(parent ID, frame f64.Rectangle, opts Options) (ID, error) {
	pidx, err := h.index(parent)
	if err != nil {
		return None, err
	}
	idx := len(h.nodes)
	p := &h.nodes[pidx]
	if p.firstChild == -1 {
		p.firstChild = idx
	}
	if sib := p.lastChild; sib != -1 {
		h.nodes[sib].sibling = idx
	}
	p.lastChild = idx
	h.nodes = append(h.nodes, node{
		frame:      frame.Canon(),
		opts:       opts,
		parent:     pidx,
		firstChild: -1,
		lastChild:  -1,
		sibling:    -1,
	})
	return idOf(idx), nil
}

// Remove detaches v and its children.
func (h *Hierarchy) Remove(v ID) error {
	idx, err := h.index(v)
	if err != nil {
		return err
	}
	if idx == 0 {
		return fmt.Errorf("view: cannot remove root: %w", ErrNotFound)
	}
	h.markRemoved(idx)
	return nil
}

func (h *Hierarchy) markRemoved(idx int) {
	n := &h.nodes[idx]
	n.removed = true
	for c := n.firstChild; c != -1; c = h.nodes[c].sibling {
		h.markRemoved(c)
	}
}

// SetFrame moves or resizes v.
func (h *Hierarchy) SetFrame(v ID, frame f64.Rectangle) error {
	idx, err := h.index(v)
	if err != nil {
		return err
	}
	h.nodes[idx].frame = frame.Canon()
	return nil
}

// SetOptions replaces the options of v.
func (h *Hierarchy) SetOptions(v ID, opts Options) error {
	idx, err := h.index(v)
	if err != nil {
		return err
	}
	h.nodes[idx].opts = opts
	return nil
}

// Bounds implements Tree.
func (h *Hierarchy) Bounds(v ID) (f64.Rectangle, error) {
	idx, err := h.index(v)
	if err != nil {
		return f64.Rectangle{}, err
	}
	r := h.nodes[idx].frame
	for p := h.nodes[idx].parent; p != -1; p = h.nodes[p].parent {
		r = r.Add(h.nodes[p].frame.Min)
	}
	return r, nil
}

// HitTest implements Tree.
func (h *Hierarchy) HitTest(p f64.Point, reach Reach) []ID {
	if len(h.nodes) == 0 {
		return nil
	}
	hits, _ := h.hit(0, p, reach, nil)
	return hits
}

// hit searches the subtree at idx for targets of p, given in the
// coordinates of the parent of idx. It reports whether a target
// was found.
func (h *Hierarchy) hit(idx int, p f64.Point, reach Reach, hits []ID) ([]ID, bool) {
	n := &h.nodes[idx]
	if n.opts.Hidden || n.removed {
		return hits, false
	}
	local := p.Sub(n.frame.Min)
	size := n.frame.Size()
	inside := 0 <= local.X && local.X <= size.X &&
		0 <= local.Y && local.Y <= size.Y
	// Only the frame clips children; reach widens the view alone.
	target := inside || (reach != nil && reach(idOf(idx), size, local))
	switch n.opts.PointerEvents {
	case EventsNone:
		return hits, false
	case EventsBoxOnly:
		if target {
			hits = append(hits, idOf(idx))
		}
		return hits, target
	case EventsBoxNone:
		var found bool
		if inside || n.opts.Overflow {
			hits, found = h.hitChildren(idx, local, reach, hits)
		}
		if found && target {
			hits = append(hits, idOf(idx))
		}
		return hits, found
	default:
		var found bool
		if inside || n.opts.Overflow {
			hits, found = h.hitChildren(idx, local, reach, hits)
		}
		if target {
			hits = append(hits, idOf(idx))
		}
		return hits, found || target
	}
}

// hitChildren tries the children of idx from the top most down and
// stops at the first child subtree containing a target.
func (h *Hierarchy) hitChildren(idx int, local f64.Point, reach Reach, hits []ID) ([]ID, bool) {
	var children []int
	for c := h.nodes[idx].firstChild; c != -1; c = h.nodes[c].sibling {
		children = append(children, c)
	}
	for i := len(children) - 1; i >= 0; i-- {
		var found bool
		hits, found = h.hit(children[i], local, reach, hits)
		if found {
			return hits, true
		}
	}
	return hits, false
}

func (h *Hierarchy) index(v ID) (int, error) {
	idx := int(v) - 1
	if idx < 0 || idx >= len(h.nodes) || h.nodes[idx].removed {
		return 0, fmt.Errorf("view %d: %w", v, ErrNotFound)
	}
	return idx, nil
}

func idOf(idx int) ID {
	return ID(idx + 1)
}

func (p PointerEvents) String() string {
	switch p {
	case EventsAuto:
		return "auto"
	case EventsNone:
		return "none"
	case EventsBoxOnly:
		return "box-only"
	case EventsBoxNone:
		return "box-none"
	default:
		panic("unknown PointerEvents")
	}
}

// ParsePointerEvents is the inverse of PointerEvents.String.
func ParsePointerEvents(s string) (PointerEvents, error) {
	for p := EventsAuto; p <= EventsBoxNone; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("view: unknown pointer events mode %q", s)
}
