// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"touchflow.org/gesture"
	"touchflow.org/io/view"
)

var (
	// ErrNotFound is returned for unknown handler ids.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned for operations that do not apply
	// to the current state of a handler or sample stream.
	ErrInvalidState = errors.New("invalid state")
)

// registry maps handler ids to handlers and handlers to views. It is
// owned by one Orchestrator.
type registry struct {
	handlers map[gesture.ID]*gesture.Handler
	attached map[gesture.ID]view.ID
	views    map[view.ID][]*gesture.Handler
}

func (r *registry) init() {
	r.handlers = make(map[gesture.ID]*gesture.Handler)
	r.attached = make(map[gesture.ID]view.ID)
	r.views = make(map[view.ID][]*gesture.Handler)
}

func (r *registry) attach(h *gesture.Handler, v view.ID) {
	r.attached[h.ID()] = v
	r.views[v] = append(r.views[v], h)
}

func (r *registry) detach(h *gesture.Handler) {
	v, ok := r.attached[h.ID()]
	if !ok {
		return
	}
	delete(r.attached, h.ID())
	hs := slices.DeleteFunc(r.views[v], func(o *gesture.Handler) bool { return o == h })
	if len(hs) > 0 {
		r.views[v] = hs
		return
	}
	delete(r.views, v)
}

// Register adds a handler. Handlers without rules share the
// orchestrator's rules.
func (o *Orchestrator) Register(h *gesture.Handler) error {
	if _, exists := o.reg.handlers[h.ID()]; exists {
		return fmt.Errorf("input: register handler %d: %w", h.ID(), ErrInvalidState)
	}
	if h.Rules() == nil {
		h.SetRules(o.rules)
	}
	o.reg.handlers[h.ID()] = h
	return nil
}

// Attach makes a registered handler a candidate for pointers that
// hit v. A handler is attached to at most one view; attaching it
// elsewhere cancels its current gesture.
func (o *Orchestrator) Attach(id gesture.ID, v view.ID) error {
	h, err := o.Handler(id)
	if err != nil {
		return err
	}
	if v == view.None {
		return fmt.Errorf("input: attach handler %d without a view: %w", id, ErrInvalidState)
	}
	if cur, ok := o.reg.attached[id]; ok {
		if cur == v {
			return nil
		}
		o.detach(h)
	}
	o.reg.attach(h, v)
	o.cleanup()
	return nil
}

// Detach removes a handler from its view, cancelling its gesture.
func (o *Orchestrator) Detach(id gesture.ID) error {
	h, err := o.Handler(id)
	if err != nil {
		return err
	}
	o.detach(h)
	o.cleanup()
	return nil
}

// Drop detaches and unregisters a handler and removes it from the
// orchestrator's relations.
func (o *Orchestrator) Drop(id gesture.ID) error {
	h, err := o.Handler(id)
	if err != nil {
		return err
	}
	o.detach(h)
	o.cleanup()
	delete(o.reg.handlers, id)
	if d, ok := o.rules.(interface{ Drop(gesture.ID) }); ok {
		d.Drop(id)
	}
	return nil
}

// Handler returns a registered handler.
func (o *Orchestrator) Handler(id gesture.ID) (*gesture.Handler, error) {
	h, ok := o.reg.handlers[id]
	if !ok {
		return nil, fmt.Errorf("input: handler %d: %w", id, ErrNotFound)
	}
	return h, nil
}

// HandlersForView returns the handlers attached to v in attach
// order.
func (o *Orchestrator) HandlersForView(v view.ID) []*gesture.Handler {
	return slices.Clone(o.reg.views[v])
}

func (o *Orchestrator) detach(h *gesture.Handler) {
	if o.records[h.ID()] != nil {
		h.Cancel()
	}
	o.reg.detach(h)
}
