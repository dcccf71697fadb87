// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import "fmt"

// State is the recognition state of a Handler.
type State uint8

const (
	// Undetermined is the state of a handler that has not yet
	// decided whether the pointers belong to its gesture.
	Undetermined State = iota
	// Began means the handler tentatively follows the pointers.
	Began
	// Active means the gesture is recognized and owns its pointers.
	Active
	// End means the gesture completed.
	End
	// Failed means the pointers did not form the gesture.
	Failed
	// Cancelled means the gesture was aborted after it began,
	// usually by a competing handler.
	Cancelled
)

// Finished reports whether s is a terminal state. Finished handlers
// accept no further transitions until they are reset.
func (s State) Finished() bool {
	return s == End || s == Failed || s == Cancelled
}

// Allows reports whether the transition graph has an edge from s
// to t.
func (s State) Allows(t State) bool {
	switch t {
	case Began:
		return s == Undetermined
	case Active:
		return s == Undetermined || s == Began
	case End:
		return s == Began || s == Active
	case Failed, Cancelled:
		return !s.Finished()
	}
	return false
}

func (s State) String() string {
	switch s {
	case Undetermined:
		return "Undetermined"
	case Began:
		return "Began"
	case Active:
		return "Active"
	case End:
		return "End"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		panic("invalid State")
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st := Undetermined; st <= Cancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("gesture: unknown state %q", s)
}
