// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"touchflow.org/clock"
	"touchflow.org/f64"
	"touchflow.org/gesture"
	"touchflow.org/io/pointer"
	"touchflow.org/io/view"
)

// Orchestrator routes pointer samples from a view tree to gesture
// handlers and arbitrates between them. An Orchestrator is not safe
// for concurrent use; Run serializes samples and timers for hosts
// that deliver from other goroutines.
type Orchestrator struct {
	tree     view.Tree
	reg      registry
	rules    gesture.Rules
	sched    clock.Scheduler
	loop     *clock.Loop
	ownLoop  bool
	listener Listener
	log      logrus.FieldLogger

	cacheSize int
	// hits memoizes hit tests within a pointer stream.
	hits *lru.Cache[f64.Point, []view.ID]

	// live is the set of handlers prepared for the current stream,
	// in the order they became candidates.
	live    []*gesture.Handler
	records map[gesture.ID]*record
	// seq numbers candidates for stable ordering.
	seq int
	// nextIndex is the next activation index of the stream.
	nextIndex int

	changes  []stateChange
	draining bool
	// delivering counts nested Deliver calls.
	delivering int
	session    uuid.UUID
}

// record is the orchestrator's bookkeeping for a live handler.
type record struct {
	order int
	// index is the activation index, unassigned until the handler
	// first leaves Undetermined.
	index int
	// awaiting is set while a success transition is deferred until
	// the handlers it waits for resolve.
	awaiting        bool
	pendingActivate bool
	pendingEnd      bool
}

// stateChange is a queued handler transition.
type stateChange struct {
	h                  *gesture.Handler
	newState, oldState gesture.State
}

// Option configures an Orchestrator.
type Option func(o *Orchestrator)

const (
	unassigned          = math.MaxInt
	defaultHitCacheSize = 64
)

// WithRules sets the relations handed to registered handlers that
// have none. The default is an empty gesture.Relations.
func WithRules(r gesture.Rules) Option {
	return func(o *Orchestrator) {
		o.rules = r
	}
}

// WithScheduler sets the scheduler for recognizer timers. The
// default is a clock.Loop, which requires Run.
func WithScheduler(s clock.Scheduler) Option {
	return func(o *Orchestrator) {
		o.sched = s
	}
}

// WithListener sets the listener of state changes and pointer data.
func WithListener(l Listener) Option {
	return func(o *Orchestrator) {
		o.listener = l
	}
}

// WithLogger sets the logger for arbitration decisions. By default
// nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithHitCacheSize sets the number of hit test results kept per
// pointer stream. Zero disables the cache.
func WithHitCacheSize(n int) Option {
	return func(o *Orchestrator) {
		o.cacheSize = n
	}
}

// New returns an Orchestrator for the views of tree.
func New(tree view.Tree, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tree:      tree,
		records:   make(map[gesture.ID]*record),
		cacheSize: defaultHitCacheSize,
	}
	o.reg.init()
	for _, opt := range opts {
		opt(o)
	}
	if o.rules == nil {
		o.rules = gesture.NewRelations()
	}
	if o.sched == nil {
		o.loop = clock.NewLoop()
		o.sched = o.loop
		o.ownLoop = true
	} else if l, ok := o.sched.(*clock.Loop); ok {
		o.loop = l
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if o.cacheSize > 0 {
		// New only fails for non-positive sizes.
		o.hits, _ = lru.New[f64.Point, []view.ID](o.cacheSize)
	}
	return o
}

// Rules returns the orchestrator's default relations.
func (o *Orchestrator) Rules() gesture.Rules {
	return o.rules
}

// Session identifies the current pointer stream. It changes with
// every Down sample.
func (o *Orchestrator) Session() uuid.UUID {
	return o.session
}

// Live returns the ids of the handlers that take part in the
// current stream and have not finished, in delivery order.
func (o *Orchestrator) Live() []gesture.ID {
	var ids []gesture.ID
	for _, h := range o.ordered() {
		if !h.State().Finished() {
			ids = append(ids, h.ID())
		}
	}
	return ids
}

// Deliver routes a sample in root coordinates. Errors report
// handlers that were cancelled because their view left the tree;
// delivery to the other handlers is not affected.
func (o *Orchestrator) Deliver(s pointer.Sample) error {
	if s.PointerID >= pointer.MaxID {
		return fmt.Errorf("input: pointer id %d out of range: %w", s.PointerID, ErrInvalidState)
	}
	o.cleanup()
	o.delivering++
	var errs []error
	switch s.Phase {
	case pointer.Down, pointer.PointerDown:
		o.extract(s)
	case pointer.Cancel:
		o.cancelAll()
	}
	for _, h := range o.ordered() {
		if err := o.deliverTo(h, s); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Phase == pointer.Up {
		o.endStream()
	}
	o.delivering--
	o.cleanup()
	return errors.Join(errs...)
}

// SetState moves a live handler to state. It is how hosts resolve
// manual handlers; Active bypasses manual activation.
func (o *Orchestrator) SetState(id gesture.ID, state gesture.State) error {
	h, err := o.Handler(id)
	if err != nil {
		return err
	}
	if o.records[id] == nil {
		return fmt.Errorf("input: handler %d is not part of a stream: %w", id, ErrInvalidState)
	}
	switch state {
	case gesture.Began:
		h.Begin()
	case gesture.Active:
		h.ForceActivate()
	case gesture.End:
		h.End()
	case gesture.Failed:
		h.Fail()
	case gesture.Cancelled:
		h.Cancel()
	default:
		return fmt.Errorf("input: set handler %d to %v: %w", id, state, ErrInvalidState)
	}
	o.cleanup()
	return nil
}

// CancelAll cancels every live handler.
func (o *Orchestrator) CancelAll() {
	o.cancelAll()
	o.cleanup()
}

// Run delivers samples and runs due timers on the calling goroutine
// until ctx is done or samples is closed. Run requires the
// orchestrator to be scheduled by a clock.Loop. Delivery errors are
// logged.
func (o *Orchestrator) Run(ctx context.Context, samples <-chan pointer.Sample) error {
	if o.loop == nil {
		return fmt.Errorf("input: Run needs a clock.Loop scheduler: %w", ErrInvalidState)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return nil
			}
			if err := o.Deliver(s); err != nil {
				o.log.WithError(err).WithField("session", o.session).Warn("delivery failed")
			}
		case f := <-o.loop.C():
			f()
		}
	}
}

// Close cancels the live handlers and releases the timers of the
// default scheduler.
func (o *Orchestrator) Close() {
	o.CancelAll()
	if o.ownLoop {
		o.loop.Close()
	}
}

// extract adds the handlers under a new pointer to the stream.
func (o *Orchestrator) extract(s pointer.Sample) {
	if s.Phase == pointer.Down {
		if !o.streaming() {
			o.nextIndex = 0
		}
		o.session = uuid.New()
		if o.hits != nil {
			o.hits.Purge()
		}
	}
	for _, v := range o.hitTest(s.Position) {
		for _, h := range o.reg.views[v] {
			o.offer(h, v, s)
		}
	}
}

func (o *Orchestrator) hitTest(p f64.Point) []view.ID {
	if o.hits != nil {
		if ids, ok := o.hits.Get(p); ok {
			return ids
		}
	}
	ids := o.tree.HitTest(p, o.reach)
	if o.hits != nil {
		o.hits.Add(p, ids)
	}
	return ids
}

// reach extends the views the hit walk visits by the hit slop of
// their handlers.
func (o *Orchestrator) reach(v view.ID, size, local f64.Point) bool {
	for _, h := range o.reg.views[v] {
		if _, ok := h.HitSlop(); ok && h.Enabled() && h.IsWithinBounds(size, local) {
			return true
		}
	}
	return false
}

// offer makes h a candidate for the pointer of s if the pointer is
// within its hit area.
func (o *Orchestrator) offer(h *gesture.Handler, v view.ID, s pointer.Sample) {
	if !h.Enabled() {
		return
	}
	b, err := o.tree.Bounds(v)
	if err != nil || !h.IsWithinBounds(b.Size(), s.Position.Sub(b.Min)) {
		return
	}
	if o.records[h.ID()] == nil {
		if h.Prepared() {
			// Prepared by another orchestrator.
			return
		}
		o.seq++
		o.records[h.ID()] = &record{order: o.seq, index: unassigned}
		o.live = append(o.live, h)
		h.Prepare(v, o, timers{o})
		o.log.WithFields(o.fields(h)).Debug("candidate")
	}
	h.StartTracking(s.PointerID)
}

// deliverTo feeds s to h in view coordinates. Samples about
// pointers h does not track are skipped.
func (o *Orchestrator) deliverTo(h *gesture.Handler, s pointer.Sample) error {
	r := o.records[h.ID()]
	if r == nil || !h.WantEvents() || !h.Tracking(s.PointerID) {
		return nil
	}
	b, err := o.tree.Bounds(h.View())
	if err != nil {
		o.log.WithFields(o.fields(h)).Debug("view detached")
		h.Cancel()
		return fmt.Errorf("input: handler %d: %w", h.ID(), err)
	}
	// Deferred handlers only see pointers come and go, and nothing
	// once their End is pending.
	if !r.awaiting || (s.Phase != pointer.Move && !r.pendingEnd) {
		local := adapt(h, s)
		local.Position = s.Position.Sub(b.Min)
		h.Handle(local, b.Size())
		if h.NeedsPointerData() && o.listener != nil {
			o.listener.OnTouchEvent(h.ID(), local)
		}
	}
	if s.Phase == pointer.Up || s.Phase == pointer.PointerUp {
		h.StopTracking(s.PointerID)
	}
	return nil
}

// adapt rewrites s as seen by h, which only counts the pointers it
// tracks: its first pointer goes Down and its last goes Up.
func adapt(h *gesture.Handler, s pointer.Sample) pointer.Sample {
	n := h.Tracked()
	switch s.Phase {
	case pointer.Down, pointer.PointerDown:
		s.Phase = pointer.PointerDown
		if n == 1 {
			s.Phase = pointer.Down
		}
	case pointer.Up, pointer.PointerUp:
		s.Phase = pointer.PointerUp
		if n == 1 {
			s.Phase = pointer.Up
		}
	}
	s.Count = n
	return s
}

// endStream fails the candidates that never engaged once the last
// pointer is up. Handlers that began resolve by their own timers.
func (o *Orchestrator) endStream() {
	for _, h := range slices.Clone(o.live) {
		if h.State() == gesture.Undetermined && !o.records[h.ID()].awaiting {
			h.Fail()
		}
	}
}

func (o *Orchestrator) cancelAll() {
	hs := o.ordered()
	for i := len(hs) - 1; i >= 0; i-- {
		hs[i].Cancel()
	}
}

// streaming reports whether an unfinished handler remains from an
// earlier pointer.
func (o *Orchestrator) streaming() bool {
	for _, h := range o.live {
		if !h.State().Finished() {
			return true
		}
	}
	return false
}

// ordered returns the live handlers in delivery order.
func (o *Orchestrator) ordered() []*gesture.Handler {
	hs := slices.Clone(o.live)
	slices.SortStableFunc(hs, func(a, b *gesture.Handler) int {
		ra, rb := o.records[a.ID()], o.records[b.ID()]
		if c := cmp.Compare(ra.index, rb.index); c != 0 {
			return c
		}
		return cmp.Compare(ra.order, rb.order)
	})
	return hs
}

// cleanup resets and forgets finished handlers unless a sample or a
// state change is being processed.
func (o *Orchestrator) cleanup() {
	if o.delivering > 0 || o.draining {
		return
	}
	live := o.live[:0]
	for _, h := range o.live {
		r := o.records[h.ID()]
		if h.State().Finished() && !r.awaiting {
			delete(o.records, h.ID())
			h.Reset()
			continue
		}
		live = append(live, h)
	}
	for i := len(live); i < len(o.live); i++ {
		o.live[i] = nil
	}
	o.live = live
}

func (o *Orchestrator) fields(h *gesture.Handler) logrus.Fields {
	return logrus.Fields{
		"session": o.session,
		"handler": h.ID(),
		"kind":    h.Kind(),
	}
}

// timers runs the cleanup after every recognizer timer, once the
// handler that owns it has finished its transition.
type timers struct {
	o *Orchestrator
}

func (t timers) Now() time.Duration {
	return t.o.sched.Now()
}

func (t timers) AfterFunc(d time.Duration, f func()) clock.Timer {
	return t.o.sched.AfterFunc(d, func() {
		f()
		t.o.cleanup()
	})
}
