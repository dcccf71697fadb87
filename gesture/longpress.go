// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import (
	"time"

	"touchflow.org/clock"
	"touchflow.org/f64"
	"touchflow.org/io/pointer"
	"touchflow.org/unit"
)

// LongPressConfig configures a long press handler.
type LongPressConfig struct {
	// MinDuration is how long the pointer must stay down before the
	// handler activates. Zero activates on the first sample.
	MinDuration time.Duration
	// MaxDistance in pixels bounds the travel from the first
	// sample. Unset means unbounded.
	MaxDistance float64
}

// DefaultMaxDistance is the default travel allowed during a long
// press.
const DefaultMaxDistance = unit.Dp(10)

type longPress struct {
	cfg   LongPressConfig
	start f64.Point
	timer clock.Timer
}

// DefaultLongPressConfig returns the default configuration, with
// distances converted by m.
func DefaultLongPressConfig(m unit.Metric) LongPressConfig {
	return LongPressConfig{
		MinDuration: 500 * time.Millisecond,
		MaxDistance: m.Dp(DefaultMaxDistance),
	}
}

// NewLongPress returns a long press handler. The handler is
// cancelled when its pointer leaves the hit area.
func NewLongPress(id ID, cfg LongPressConfig) *Handler {
	h := newHandler(id, KindLongPress, &longPress{cfg: cfg})
	h.cancelWhenOutside = true
	return h
}

func (l *longPress) Handle(h *Handler, s pointer.Sample) {
	if h.State() == Undetermined {
		l.start = s.Position
		h.Begin()
		if h.State() != Began {
			return
		}
		if l.cfg.MinDuration > 0 {
			l.arm(h)
		} else {
			h.Activate()
		}
	}
	if s.Phase == pointer.Up {
		l.stop()
		if h.State() == Active {
			h.End()
		} else {
			h.Fail()
		}
		return
	}
	if d := s.Position.Sub(l.start); d.Len2() > l.cfg.MaxDistance*l.cfg.MaxDistance {
		if h.State() == Active {
			h.Cancel()
		} else {
			h.Fail()
		}
	}
}

func (l *longPress) arm(h *Handler) {
	sched := h.Scheduler()
	if sched == nil {
		return
	}
	l.timer = sched.AfterFunc(l.cfg.MinDuration, func() {
		l.timer = nil
		if h.Prepared() && h.State() == Began {
			h.Activate()
		}
	})
}

func (l *longPress) stop() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *longPress) StateChanged(h *Handler, newState, oldState State) {
	if newState.Finished() {
		l.stop()
	}
}

func (l *longPress) Cancelled(h *Handler) {
	l.stop()
}

func (l *longPress) Reset(h *Handler) {
	l.stop()
}
