// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import (
	"math"
	"time"

	"touchflow.org/clock"
	"touchflow.org/f64"
	"touchflow.org/io/pointer"
)

// TapConfig configures a tap handler. Distances are in pixels and
// Unset means unbounded.
type TapConfig struct {
	// NumberOfTaps is the number of presses that make the gesture.
	NumberOfTaps int
	// MaxDuration bounds how long each press may last.
	MaxDuration time.Duration
	// MaxDelay bounds the time between a release and the next
	// press.
	MaxDelay time.Duration
	// MaxDeltaX and MaxDeltaY bound the travel along each axis.
	MaxDeltaX, MaxDeltaY float64
	// MaxDistance bounds the travel in any direction.
	MaxDistance float64
	// MinPointers is the number of pointers that must have been
	// down at once.
	MinPointers int
}

type tap struct {
	cfg TapConfig

	start, last f64.Point
	// offset accumulates travel from before the pointer count
	// last changed.
	offset      f64.Point
	rebase      bool
	taps        int
	maxPointers int
	timer       clock.Timer
}

// DefaultTapConfig returns the configuration of a single tap
// without travel limits.
func DefaultTapConfig() TapConfig {
	return TapConfig{
		NumberOfTaps: 1,
		MaxDuration:  500 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		MaxDeltaX:    Unset,
		MaxDeltaY:    Unset,
		MaxDistance:  Unset,
		MinPointers:  1,
	}
}

// NewTap returns a tap handler. The handler is cancelled when its
// pointer leaves the hit area.
func NewTap(id ID, cfg TapConfig) *Handler {
	if cfg.NumberOfTaps < 1 {
		cfg.NumberOfTaps = 1
	}
	if cfg.MinPointers < 1 {
		cfg.MinPointers = 1
	}
	h := newHandler(id, KindTap, &tap{cfg: cfg})
	h.cancelWhenOutside = true
	return h
}

func (t *tap) Handle(h *Handler, s pointer.Sample) {
	state := h.State()
	if state == Undetermined {
		t.offset = f64.Point{}
		t.start, t.last = s.Position, s.Position
		t.rebase = false
	}
	switch {
	case s.Phase == pointer.PointerDown || s.Phase == pointer.PointerUp:
		// The position is that of another pointer. The next sample
		// starts a new leg of travel.
		t.rebase = true
	case t.rebase:
		t.offset = t.offset.Add(t.last.Sub(t.start))
		t.start, t.last = s.Position, s.Position
		t.rebase = false
	default:
		t.last = s.Position
	}
	if s.Count > t.maxPointers {
		t.maxPointers = s.Count
	}
	switch {
	case t.exceeded():
		h.Fail()
	case state == Undetermined:
		if s.Phase == pointer.Down {
			h.Begin()
		}
		t.press(h)
	case state == Began:
		switch s.Phase {
		case pointer.Up:
			t.release(h)
		case pointer.Down:
			t.press(h)
		}
	}
}

// press arms the timer bounding the press duration.
func (t *tap) press(h *Handler) {
	t.failAfter(h, t.cfg.MaxDuration)
}

// release counts a tap and either recognizes the gesture or waits
// for the next press.
func (t *tap) release(h *Handler) {
	t.stop()
	t.taps++
	if t.taps == t.cfg.NumberOfTaps && t.maxPointers >= t.cfg.MinPointers {
		h.Activate()
		h.End()
		return
	}
	t.failAfter(h, t.cfg.MaxDelay)
}

func (t *tap) exceeded() bool {
	d := t.last.Sub(t.start).Add(t.offset)
	if isSet(t.cfg.MaxDeltaX) && math.Abs(d.X) > t.cfg.MaxDeltaX {
		return true
	}
	if isSet(t.cfg.MaxDeltaY) && math.Abs(d.Y) > t.cfg.MaxDeltaY {
		return true
	}
	return isSet(t.cfg.MaxDistance) && d.Len2() > t.cfg.MaxDistance*t.cfg.MaxDistance
}

func (t *tap) failAfter(h *Handler, d time.Duration) {
	t.stop()
	sched := h.Scheduler()
	if sched == nil {
		return
	}
	t.timer = sched.AfterFunc(d, func() {
		t.timer = nil
		if h.Prepared() && !h.State().Finished() {
			h.Fail()
		}
	})
}

func (t *tap) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *tap) StateChanged(h *Handler, newState, oldState State) {
	if newState.Finished() {
		t.stop()
	}
}

func (t *tap) Cancelled(h *Handler) {
	t.stop()
}

func (t *tap) Reset(h *Handler) {
	t.stop()
	t.taps = 0
	t.maxPointers = 0
	t.offset = f64.Point{}
	t.rebase = false
}
