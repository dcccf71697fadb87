// SPDX-License-Identifier: Unlicense OR MIT

// Package clock provides the cancellable delayed callbacks used by
// recognizers. Callbacks always run on the goroutine that delivers
// pointer samples: Manual fires them synchronously from Advance, and
// Loop hands them to the event loop through a channel.
package clock

import (
	"time"
)

// Scheduler schedules callbacks on the sample delivery goroutine.
type Scheduler interface {
	// Now returns the current time, relative to an undefined base.
	Now() time.Duration
	// AfterFunc arranges for f to run after d.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether
	// the call stopped the timer.
	Stop() bool
}

// Manual is a Scheduler driven by explicit calls to Advance. The zero
// value is ready to use and starts at time zero.
type Manual struct {
	now     time.Duration
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	m    *Manual
	when time.Duration
	seq  uint64
	f    func()
	done bool
}

// Now implements Scheduler.
func (m *Manual) Now() time.Duration {
	return m.now
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, when: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, running every callback that
// becomes due in deadline order. Callbacks scheduled by callbacks run
// too if they fall due before the new time.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.now + d)
}

// AdvanceTo is like Advance but takes an absolute time. Times in the
// past are ignored.
func (m *Manual) AdvanceTo(t time.Duration) {
	for {
		next := m.next(t)
		if next == nil {
			break
		}
		m.now = next.when
		next.done = true
		m.remove(next)
		next.f()
	}
	if t > m.now {
		m.now = t
	}
}

// Pending returns the number of callbacks not yet run or stopped.
func (m *Manual) Pending() int {
	return len(m.pending)
}

func (m *Manual) next(limit time.Duration) *manualTimer {
	var next *manualTimer
	for _, t := range m.pending {
		if t.when > limit {
			continue
		}
		if next == nil || t.when < next.when || (t.when == next.when && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

// Loop is a wall clock Scheduler for an event loop. Due callbacks are
// sent on C and must be run by the loop goroutine, the same goroutine
// that calls AfterFunc and Stop.
type Loop struct {
	start time.Time
	c     chan func()
	done  chan struct{}
}

type loopTimer struct {
	t       *time.Timer
	stopped bool
	fired   bool
}

// NewLoop returns a Loop whose time base is the current time.
func NewLoop() *Loop {
	return &Loop{
		start: time.Now(),
		c:     make(chan func(), 16),
		done:  make(chan struct{}),
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Duration {
	return time.Since(l.start)
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := new(loopTimer)
	run := func() {
		// Stop may have raced with the wall clock timer.
		if lt.stopped {
			return
		}
		lt.fired = true
		f()
	}
	lt.t = time.AfterFunc(d, func() {
		select {
		case l.c <- run:
		case <-l.done:
		}
	})
	return lt
}

// C returns the channel of due callbacks.
func (l *Loop) C() <-chan func() {
	return l.c
}

// Close releases the goroutines of pending timers. Callbacks not yet
// received from C are dropped.
func (l *Loop) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.t.Stop()
	return true
}
