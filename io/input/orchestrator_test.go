// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"touchflow.org/clock"
	"touchflow.org/f64"
	"touchflow.org/gesture"
	"touchflow.org/io/pointer"
	"touchflow.org/io/view"
	"touchflow.org/unit"
)

type transition struct {
	id gesture.ID
	to gesture.State
}

// env drives an orchestrator over an in-memory view tree with a
// manual clock.
type env struct {
	t       *testing.T
	tree    *view.Hierarchy
	clock   *clock.Manual
	rules   *gesture.Relations
	o       *Orchestrator
	log     []transition
	touches map[gesture.ID][]pointer.Sample
	down    int
}

func newEnv(t *testing.T, opts ...Option) *env {
	e := &env{
		t:       t,
		tree:    view.NewHierarchy(f64.Rect(0, 0, 400, 400)),
		clock:   new(clock.Manual),
		rules:   gesture.NewRelations(),
		touches: make(map[gesture.ID][]pointer.Sample),
	}
	l := ListenerFuncs{
		StateChange: func(id gesture.ID, newState, oldState gesture.State) {
			e.log = append(e.log, transition{id, newState})
		},
		TouchEvent: func(id gesture.ID, s pointer.Sample) {
			e.touches[id] = append(e.touches[id], s)
		},
	}
	opts = append([]Option{WithScheduler(e.clock), WithListener(l), WithRules(e.rules)}, opts...)
	e.o = New(e.tree, opts...)
	return e
}

func (e *env) view(parent view.ID, r f64.Rectangle, opts view.Options) view.ID {
	e.t.Helper()
	v, err := e.tree.Add(parent, r, opts)
	if err != nil {
		e.t.Fatal(err)
	}
	return v
}

func (e *env) attach(v view.ID, hs ...*gesture.Handler) {
	e.t.Helper()
	for _, h := range hs {
		if err := e.o.Register(h); err != nil {
			e.t.Fatal(err)
		}
		if err := e.o.Attach(h.ID(), v); err != nil {
			e.t.Fatal(err)
		}
	}
}

// send delivers a sample at ms milliseconds, running the timers due
// before it.
func (e *env) send(phase pointer.Phase, ms int, id pointer.ID, x, y float64) error {
	switch phase {
	case pointer.Down, pointer.PointerDown:
		e.down++
	}
	s := pointer.Sample{
		Phase:     phase,
		PointerID: id,
		Count:     e.down,
		Position:  f64.Pt(x, y),
		Time:      time.Duration(ms) * time.Millisecond,
	}
	switch phase {
	case pointer.Up, pointer.PointerUp:
		e.down--
	case pointer.Cancel:
		e.down = 0
	}
	e.clock.AdvanceTo(s.Time)
	return e.o.Deliver(s)
}

func (e *env) mustSend(phase pointer.Phase, ms int, id pointer.ID, x, y float64) {
	e.t.Helper()
	if err := e.send(phase, ms, id, x, y); err != nil {
		e.t.Fatal(err)
	}
}

func (e *env) advance(ms int) {
	e.clock.AdvanceTo(time.Duration(ms) * time.Millisecond)
}

func (e *env) states(id gesture.ID) []gesture.State {
	var states []gesture.State
	for _, tr := range e.log {
		if tr.id == id {
			states = append(states, tr.to)
		}
	}
	return states
}

func (e *env) expect(id gesture.ID, want ...gesture.State) {
	e.t.Helper()
	if got := e.states(id); !reflect.DeepEqual(got, want) {
		e.t.Errorf("handler %d: states %v, want %v", id, got, want)
	}
}

var box = f64.Rect(0, 0, 100, 100)

func TestSingleTap(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	tap := gesture.NewTap(1, gesture.DefaultTapConfig())
	e.attach(v, tap)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if got := e.o.Live(); !reflect.DeepEqual(got, []gesture.ID{1}) {
		t.Fatalf("live %v, want [1]", got)
	}
	e.mustSend(pointer.Up, 100, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
	if len(e.o.Live()) != 0 {
		t.Errorf("live after tap: %v", e.o.Live())
	}
	if tap.Prepared() || tap.State() != gesture.Undetermined {
		t.Errorf("finished handler not reset: prepared %v state %v", tap.Prepared(), tap.State())
	}
	if e.clock.Pending() != 0 {
		t.Errorf("%d timers left", e.clock.Pending())
	}
}

func TestTapMissesView(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()))
	e.mustSend(pointer.Down, 0, 0, 150, 50)
	e.mustSend(pointer.Up, 50, 0, 150, 50)
	e.expect(1)
}

func TestArbitrationTieBreak(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewTap(2, gesture.DefaultTapConfig()))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 80, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
	e.expect(2, gesture.Began, gesture.Cancelled)
	want := []transition{
		{1, gesture.Began}, {2, gesture.Began},
		{1, gesture.Active}, {2, gesture.Cancelled}, {1, gesture.End},
	}
	if !reflect.DeepEqual(e.log, want) {
		t.Errorf("log %v, want %v", e.log, want)
	}
}

func TestSimultaneous(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewTap(2, gesture.DefaultTapConfig()))
	e.rules.Simultaneous(1, 2)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 80, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
	e.expect(2, gesture.Began, gesture.Active, gesture.End)
}

func TestMutualExclusion(t *testing.T) {
	const n = 4
	actions := []gesture.State{gesture.Began, gesture.Active, gesture.End, gesture.Active, gesture.Failed}
	for seed := 0; seed < 64; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			e := newEnv(t)
			v := e.view(e.tree.Root(), box, view.Options{})
			states := make(map[gesture.ID]gesture.State)
			e.o.listener = ListenerFuncs{StateChange: func(id gesture.ID, newState, oldState gesture.State) {
				states[id] = newState
				active := 0
				for _, s := range states {
					if s == gesture.Active {
						active++
					}
				}
				if active > 1 {
					t.Fatalf("%d handlers active: %v", active, states)
				}
			}}
			for i := 1; i <= n; i++ {
				e.attach(v, gesture.NewManual(gesture.ID(i)))
			}
			e.mustSend(pointer.Down, 0, 0, 50, 50)
			x := seed
			for step := 0; step < 8; step++ {
				id := gesture.ID(x%n + 1)
				st := actions[(x/n)%len(actions)]
				x = x*31 + 7
				// Finished handlers leave the stream.
				if err := e.o.SetState(id, st); err != nil && !errors.Is(err, ErrInvalidState) {
					t.Fatal(err)
				}
			}
		})
	}
}

func TestActivationCancelsCompetitors(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	const n = 20
	for i := 1; i <= n; i++ {
		e.attach(v, gesture.NewManual(gesture.ID(i)))
	}
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.log = nil
	if err := e.o.SetState(5, gesture.Active); err != nil {
		t.Fatal(err)
	}
	if got := e.log[0]; got != (transition{5, gesture.Active}) {
		t.Fatalf("first transition %v, want 5 Active", got)
	}
	if len(e.log) != n {
		t.Fatalf("%d transitions, want %d", len(e.log), n)
	}
	prev := gesture.ID(0)
	for _, tr := range e.log[1:] {
		if tr.to != gesture.Cancelled {
			t.Errorf("handler %d: %v, want Cancelled", tr.id, tr.to)
		}
		if tr.id <= prev {
			t.Errorf("cancellations out of order: %d after %d", tr.id, prev)
		}
		prev = tr.id
	}
	if got := e.o.Live(); !reflect.DeepEqual(got, []gesture.ID{5}) {
		t.Errorf("live %v, want [5]", got)
	}
}

func TestCancelledBy(t *testing.T) {
	for _, yields := range []bool{true, false} {
		t.Run(fmt.Sprintf("yields=%v", yields), func(t *testing.T) {
			e := newEnv(t)
			outer := e.view(e.tree.Root(), f64.Rect(0, 0, 200, 200), view.Options{})
			inner := e.view(outer, f64.Rect(100, 100, 200, 200), view.Options{})
			e.attach(outer, gesture.NewManual(1))
			e.attach(inner, gesture.NewManual(2))
			if yields {
				e.rules.CancelledBy(1, 2)
			}
			e.mustSend(pointer.Down, 0, 0, 50, 50)
			if err := e.o.SetState(1, gesture.Active); err != nil {
				t.Fatal(err)
			}
			// The second pointer lands on both views.
			e.mustSend(pointer.PointerDown, 10, 1, 150, 150)
			if err := e.o.SetState(2, gesture.Active); err != nil {
				t.Fatal(err)
			}
			if yields {
				e.expect(1, gesture.Began, gesture.Active, gesture.Cancelled)
				e.expect(2, gesture.Began, gesture.Active)
			} else {
				e.expect(1, gesture.Began, gesture.Active)
				e.expect(2, gesture.Began, gesture.Cancelled)
			}
		})
	}
}

// cancelHook begins on the first sample and logs its cancel hook
// with the state the handler is in at that moment.
type cancelHook struct {
	log *[]string
}

func (c cancelHook) Handle(h *gesture.Handler, s pointer.Sample) {
	if h.State() == gesture.Undetermined {
		h.Begin()
	}
}

func (c cancelHook) StateChanged(h *gesture.Handler, newState, oldState gesture.State) {}

func (c cancelHook) Cancelled(h *gesture.Handler) {
	*c.log = append(*c.log, fmt.Sprintf("cancel %d %v", h.ID(), h.State()))
}

func (c cancelHook) Reset(h *gesture.Handler) {}

func TestCancelHookOnExclusion(t *testing.T) {
	var log []string
	tree := view.NewHierarchy(f64.Rect(0, 0, 400, 400))
	outer, _ := tree.Add(tree.Root(), f64.Rect(0, 0, 200, 200), view.Options{})
	inner, _ := tree.Add(outer, f64.Rect(100, 100, 200, 200), view.Options{})
	rules := gesture.NewRelations()
	o := New(tree, WithScheduler(new(clock.Manual)), WithRules(rules), WithListener(ListenerFuncs{
		StateChange: func(id gesture.ID, newState, oldState gesture.State) {
			log = append(log, fmt.Sprintf("state %d %v", id, newState))
		},
	}))
	for _, a := range []struct {
		h *gesture.Handler
		v view.ID
	}{
		{gesture.NewCustom(1, cancelHook{&log}), outer},
		{gesture.NewManual(2), inner},
	} {
		if err := o.Register(a.h); err != nil {
			t.Fatal(err)
		}
		if err := o.Attach(a.h.ID(), a.v); err != nil {
			t.Fatal(err)
		}
	}
	rules.CancelledBy(1, 2)
	deliver := func(phase pointer.Phase, id pointer.ID, x, y float64) {
		t.Helper()
		if err := o.Deliver(pointer.Sample{Phase: phase, PointerID: id, Position: f64.Pt(x, y)}); err != nil {
			t.Fatal(err)
		}
	}
	deliver(pointer.Down, 0, 50, 50)
	if err := o.SetState(1, gesture.Active); err != nil {
		t.Fatal(err)
	}
	deliver(pointer.PointerDown, 1, 150, 150)
	log = nil
	if err := o.SetState(2, gesture.Active); err != nil {
		t.Fatal(err)
	}
	o.CancelAll()
	// The hook runs once, while 1 is still active and before the
	// listener sees it cancelled.
	want := []string{"state 2 Active", "cancel 1 Active", "state 1 Cancelled", "state 2 Cancelled"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("callbacks = %q, want %q", log, want)
	}
}

func TestSimultaneousWithActive(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewManual(1), gesture.NewManual(2), gesture.NewManual(3))
	e.rules.Simultaneous(1, 3)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if err := e.o.SetState(3, gesture.Active); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began)
	e.expect(2, gesture.Began, gesture.Cancelled)
	if err := e.o.SetState(1, gesture.Active); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began, gesture.Active)
}

func doubleTapEnv(t *testing.T) *env {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	double := gesture.DefaultTapConfig()
	double.NumberOfTaps = 2
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewTap(2, double))
	e.rules.WaitFor(1, 2)
	return e
}

func TestDoubleTap(t *testing.T) {
	e := doubleTapEnv(t)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 100, 0, 50, 50)
	e.mustSend(pointer.Down, 300, 0, 52, 50)
	e.mustSend(pointer.Up, 400, 0, 52, 50)
	e.expect(1, gesture.Began, gesture.Failed)
	e.expect(2, gesture.Began, gesture.Active, gesture.End)
	if len(e.o.Live()) != 0 || e.clock.Pending() != 0 {
		t.Errorf("live %v, %d timers", e.o.Live(), e.clock.Pending())
	}
}

func TestWaitForFailureReleases(t *testing.T) {
	e := doubleTapEnv(t)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 100, 0, 50, 50)
	e.expect(1, gesture.Began)
	e.advance(1000)
	e.expect(2, gesture.Began, gesture.Failed)
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
	if len(e.o.Live()) != 0 {
		t.Errorf("live %v", e.o.Live())
	}
}

func TestBlocks(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewManual(2))
	// 1 may only succeed once 2 failed.
	e.rules.Blocks(2, 1)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 50, 0, 50, 50)
	e.expect(1, gesture.Began)
	if err := e.o.SetState(2, gesture.Failed); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
}

func TestWaitForActivationFails(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewManual(2))
	e.rules.WaitFor(1, 2)
	e.rules.Simultaneous(1, 2)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 50, 0, 50, 50)
	if err := e.o.SetState(2, gesture.Active); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began, gesture.Failed)
	e.expect(2, gesture.Began, gesture.Active)
}

func TestLongPressBeatsTap(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v,
		gesture.NewTap(1, gesture.DefaultTapConfig()),
		gesture.NewLongPress(2, gesture.DefaultLongPressConfig(unit.Metric{PxPerDp: 1})),
	)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Move, 300, 0, 52, 50)
	e.mustSend(pointer.Up, 700, 0, 52, 50)
	e.expect(1, gesture.Began, gesture.Failed)
	e.expect(2, gesture.Began, gesture.Active, gesture.End)

	e.log = nil
	e.mustSend(pointer.Down, 1000, 0, 50, 50)
	e.mustSend(pointer.Up, 1100, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
	e.expect(2, gesture.Began, gesture.Cancelled)
}

func TestLongPressDeferredRelease(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v,
		gesture.NewLongPress(1, gesture.DefaultLongPressConfig(unit.Metric{PxPerDp: 1})),
		gesture.NewManual(2),
	)
	e.rules.WaitFor(1, 2)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.advance(600)
	// The activation is held back while 2 is undecided.
	e.expect(1, gesture.Began)
	e.mustSend(pointer.Up, 700, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Failed)
	if err := e.o.SetState(2, gesture.Failed); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began, gesture.Failed)
}

func TestCancelWhenOutside(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	lp := gesture.NewLongPress(1, gesture.LongPressConfig{MinDuration: 100 * time.Millisecond, MaxDistance: gesture.Unset})
	e.attach(v, lp)
	e.mustSend(pointer.Down, 0, 0, 90, 50)
	e.mustSend(pointer.Move, 200, 0, 99, 50)
	e.mustSend(pointer.Move, 250, 0, 101, 50)
	e.mustSend(pointer.Move, 260, 0, 90, 50)
	e.expect(1, gesture.Began, gesture.Active, gesture.Cancelled)
}

func TestHitSlopCandidates(t *testing.T) {
	tests := []struct {
		name string
		p    f64.Point
		want bool
	}{
		{"inside", f64.Pt(150, 150), true},
		{"slop edge", f64.Pt(90, 150), true},
		{"slop corner", f64.Pt(210, 210), true},
		{"beyond slop", f64.Pt(89.9, 150), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			v := e.view(e.tree.Root(), f64.Rect(100, 100, 200, 200), view.Options{})
			h := gesture.NewManual(1)
			if err := h.SetHitSlop(gesture.UniformHitSlop(10)); err != nil {
				t.Fatal(err)
			}
			e.attach(v, h)
			e.mustSend(pointer.Down, 0, 0, tt.p.X, tt.p.Y)
			if got := len(e.o.Live()) == 1; got != tt.want {
				t.Errorf("candidate %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHitSlopFollowsTree(t *testing.T) {
	tests := []struct {
		name string
		opts view.Options
		// cover adds a box-only sibling on top of the view.
		cover bool
	}{
		{"none", view.Options{PointerEvents: view.EventsNone}, false},
		{"box-none", view.Options{PointerEvents: view.EventsBoxNone}, false},
		{"hidden", view.Options{Hidden: true}, false},
		{"covered", view.Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			v := e.view(e.tree.Root(), box, tt.opts)
			if tt.cover {
				e.view(e.tree.Root(), box, view.Options{PointerEvents: view.EventsBoxOnly})
			}
			h := gesture.NewTap(1, gesture.DefaultTapConfig())
			if err := h.SetHitSlop(gesture.UniformHitSlop(0)); err != nil {
				t.Fatal(err)
			}
			e.attach(v, h)
			e.mustSend(pointer.Down, 0, 0, 50, 50)
			e.mustSend(pointer.Up, 50, 0, 50, 50)
			e.advance(1000)
			if got := e.states(1); len(got) != 0 {
				t.Errorf("states %v, want none", got)
			}
		})
	}
}

func TestNestedViews(t *testing.T) {
	e := newEnv(t)
	outer := e.view(e.tree.Root(), f64.Rect(0, 0, 200, 200), view.Options{})
	inner := e.view(outer, f64.Rect(50, 50, 100, 100), view.Options{})
	other := e.view(e.tree.Root(), f64.Rect(300, 300, 400, 400), view.Options{})
	e.attach(outer, gesture.NewManual(1))
	e.attach(inner, gesture.NewManual(2))
	e.attach(other, gesture.NewManual(3))
	pd := gesture.NewManual(4)
	pd.SetNeedsPointerData(true)
	e.attach(inner, pd)
	e.mustSend(pointer.Down, 0, 0, 60, 70)
	// Candidates are ordered by view depth, then activation order.
	if got := e.o.Live(); !reflect.DeepEqual(got, []gesture.ID{2, 4, 1}) {
		t.Errorf("live %v, want [2 4 1]", got)
	}
	touches := e.touches[4]
	if len(touches) != 1 || touches[0].Position != f64.Pt(10, 20) {
		t.Errorf("pointer data %v, want one sample at (10,20)", touches)
	}
	if len(e.touches[2]) != 0 {
		t.Errorf("pointer data streamed for handler without the flag")
	}
}

func TestPointerEventsNone(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{PointerEvents: view.EventsNone})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if len(e.o.Live()) != 0 {
		t.Errorf("live %v through a view without pointer events", e.o.Live())
	}
}

func TestSecondPointer(t *testing.T) {
	e := newEnv(t)
	left := e.view(e.tree.Root(), box, view.Options{})
	right := e.view(e.tree.Root(), f64.Rect(200, 0, 300, 100), view.Options{})
	twoFingers := gesture.DefaultTapConfig()
	twoFingers.MinPointers = 2
	e.attach(left, gesture.NewTap(1, twoFingers))
	e.attach(right, gesture.NewTap(2, gesture.DefaultTapConfig()))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.PointerDown, 20, 1, 250, 50)
	e.mustSend(pointer.PointerUp, 40, 1, 250, 50)
	e.mustSend(pointer.Up, 60, 0, 50, 50)
	e.advance(1000)
	// Each handler saw one pointer of its own: the second finger did
	// not land on the left view.
	e.expect(2, gesture.Began, gesture.Active, gesture.End)
	e.expect(1, gesture.Began, gesture.Failed)
}

func TestCancelSample(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewTap(1, gesture.DefaultTapConfig()), gesture.NewManual(2))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Cancel, 10, 0, 50, 50)
	e.expect(1, gesture.Began, gesture.Cancelled)
	e.expect(2, gesture.Began, gesture.Cancelled)
	if e.clock.Pending() != 0 {
		t.Errorf("%d timers left after cancel", e.clock.Pending())
	}
}

func TestDisabledAndInert(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	h := gesture.NewManual(1)
	e.attach(v, h, gesture.NewInert(2))
	h.SetEnabled(false)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.expect(2, gesture.Failed)
	e.expect(1)
}

func TestDetachedView(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewManual(1))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if err := e.tree.Remove(v); err != nil {
		t.Fatal(err)
	}
	err := e.send(pointer.Move, 10, 0, 55, 50)
	if !errors.Is(err, view.ErrNotFound) {
		t.Errorf("Deliver error %v, want view.ErrNotFound", err)
	}
	e.expect(1, gesture.Began, gesture.Cancelled)
}

func TestDetachCancels(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewManual(1))
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if err := e.o.Detach(1); err != nil {
		t.Fatal(err)
	}
	e.expect(1, gesture.Began, gesture.Cancelled)
	if len(e.o.HandlersForView(v)) != 0 {
		t.Error("handler still attached")
	}
	if err := e.o.Drop(1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.o.Handler(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("dropped handler lookup: %v", err)
	}
}

func TestErrors(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	e.attach(v, gesture.NewManual(1))
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unknown handler", func() error { _, err := e.o.Handler(9); return err }(), ErrNotFound},
		{"attach unknown", e.o.Attach(9, v), ErrNotFound},
		{"detach unknown", e.o.Detach(9), ErrNotFound},
		{"duplicate", e.o.Register(gesture.NewManual(1)), ErrInvalidState},
		{"attach without view", e.o.Attach(1, view.None), ErrInvalidState},
		{"set state outside stream", e.o.SetState(1, gesture.Active), ErrInvalidState},
		{"set state unknown", e.o.SetState(9, gesture.Active), ErrNotFound},
		{"pointer id", e.send(pointer.Down, 0, pointer.MaxID, 50, 50), ErrInvalidState},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: %v, want %v", tt.name, tt.err, tt.want)
		}
	}
	e.down = 0
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	if err := e.o.SetState(1, gesture.Undetermined); !errors.Is(err, ErrInvalidState) {
		t.Errorf("set state Undetermined: %v", err)
	}
}

func TestManualSetState(t *testing.T) {
	e := newEnv(t)
	v := e.view(e.tree.Root(), box, view.Options{})
	h := gesture.NewManual(1)
	h.SetManualActivation(true)
	e.attach(v, h)
	e.mustSend(pointer.Down, 0, 0, 50, 50)
	e.mustSend(pointer.Up, 10, 0, 50, 50)
	for _, st := range []gesture.State{gesture.Active, gesture.End} {
		if err := e.o.SetState(1, st); err != nil {
			t.Fatal(err)
		}
	}
	e.expect(1, gesture.Began, gesture.Active, gesture.End)
}

// countingTree counts hit tests.
type countingTree struct {
	view.Tree
	hits int
}

func (c *countingTree) HitTest(p f64.Point, reach view.Reach) []view.ID {
	c.hits++
	return c.Tree.HitTest(p, reach)
}

func TestHitCache(t *testing.T) {
	tree := view.NewHierarchy(f64.Rect(0, 0, 400, 400))
	ct := &countingTree{Tree: tree}
	o := New(ct, WithScheduler(new(clock.Manual)))
	down := func(phase pointer.Phase, id pointer.ID) {
		if err := o.Deliver(pointer.Sample{Phase: phase, PointerID: id, Position: f64.Pt(5, 5)}); err != nil {
			t.Fatal(err)
		}
	}
	down(pointer.Down, 0)
	down(pointer.PointerDown, 1)
	if ct.hits != 1 {
		t.Errorf("%d hit tests in one stream, want 1", ct.hits)
	}
	down(pointer.Down, 0)
	if ct.hits != 2 {
		t.Errorf("%d hit tests after a new stream, want 2", ct.hits)
	}

	ct.hits = 0
	o = New(ct, WithScheduler(new(clock.Manual)), WithHitCacheSize(0))
	down(pointer.Down, 0)
	down(pointer.PointerDown, 1)
	if ct.hits != 2 {
		t.Errorf("%d hit tests without cache, want 2", ct.hits)
	}
}

func TestRun(t *testing.T) {
	tree := view.NewHierarchy(f64.Rect(0, 0, 400, 400))
	active := make(chan gesture.ID, 1)
	o := New(tree, WithListener(ListenerFuncs{StateChange: func(id gesture.ID, newState, oldState gesture.State) {
		if newState == gesture.Active {
			active <- id
		}
	}}))
	defer o.Close()
	lp := gesture.NewLongPress(1, gesture.LongPressConfig{MinDuration: 10 * time.Millisecond, MaxDistance: gesture.Unset})
	if err := o.Register(lp); err != nil {
		t.Fatal(err)
	}
	if err := o.Attach(1, tree.Root()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	samples := make(chan pointer.Sample, 1)
	samples <- pointer.Sample{Phase: pointer.Down, Count: 1, Position: f64.Pt(5, 5)}
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, samples) }()
	select {
	case id := <-active:
		if id != 1 {
			t.Errorf("handler %d activated, want 1", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("long press never activated")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRunNeedsLoop(t *testing.T) {
	o := New(view.NewHierarchy(box), WithScheduler(new(clock.Manual)))
	if err := o.Run(context.Background(), nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Run with manual clock: %v", err)
	}
}
