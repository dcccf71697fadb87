// SPDX-License-Identifier: Unlicense OR MIT

/*
Package pointer describes the pointer samples fed into the gesture
orchestrator by the host touch system.

A pointer stream starts with a Down sample, may add and lift
further pointers with PointerDown and PointerUp, reports motion
with Move and ends with Up or Cancel.
*/
package pointer

import (
	"fmt"
	"time"

	"touchflow.org/f64"
)

// Sample is one pointer observation. Samples are immutable values;
// handlers never modify the samples they receive.
type Sample struct {
	Phase Phase
	// PointerID identifies the pointer that changed in this sample.
	// Hosts report each moving pointer in a Move sample of its own.
	PointerID ID
	// Count is the number of pointers down, including a pointer
	// being lifted by an Up or PointerUp sample.
	Count int
	// Position is the coordinates of the changed pointer. The
	// orchestrator delivers root coordinates; handlers see
	// positions relative to the top left corner of their view.
	Position f64.Point
	// Time is when the sample was observed. The timestamp is
	// relative to an undefined base.
	Time time.Duration
}

// ID identifies a pointer from its Down or PointerDown sample to
// its Up, PointerUp or Cancel sample.
type ID uint16

// Phase of a Sample.
type Phase uint8

const (
	// Down starts a stream with its first pointer.
	Down Phase = iota
	// Move reports motion of the pointers that are down.
	Move
	// PointerDown adds a pointer to a stream.
	PointerDown
	// PointerUp lifts a pointer while others remain down.
	PointerUp
	// Up lifts the last pointer of a stream.
	Up
	// Cancel aborts the stream. It is generated when the host
	// system takes the pointers away from the gesture tree.
	Cancel
)

// MaxID bounds the pointer ids a handler can track.
const MaxID = 32

// Starts reports whether p puts a new pointer down.
func (p Phase) Starts() bool {
	return p == Down || p == PointerDown
}

// Lifts reports whether p takes a pointer away.
func (p Phase) Lifts() bool {
	return p == Up || p == PointerUp
}

func (p Phase) String() string {
	switch p {
	case Down:
		return "Down"
	case Move:
		return "Move"
	case PointerDown:
		return "PointerDown"
	case PointerUp:
		return "PointerUp"
	case Up:
		return "Up"
	case Cancel:
		return "Cancel"
	default:
		panic("unknown Phase")
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for p := Down; p <= Cancel; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("pointer: unknown phase %q", s)
}

func (s Sample) String() string {
	return fmt.Sprintf("%v#%d@%v n=%d t=%v", s.Phase, s.PointerID, s.Position, s.Count, s.Time)
}
