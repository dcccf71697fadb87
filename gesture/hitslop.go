// SPDX-License-Identifier: Unlicense OR MIT

package gesture

import (
	"errors"
	"math"

	"touchflow.org/f64"
)

// Unset marks a HitSlop field without a value.
var Unset = math.NaN()

// HitSlop expands or constrains the area of a view that a handler
// accepts pointers in. Left, Top, Right and Bottom move the
// corresponding edge outwards by that many pixels; negative values
// shrink the area. Width and Height fix the size of the area,
// measured from the Left (or Right) and Top (or Bottom) edge that
// is set. Fields equal to Unset are ignored.
type HitSlop struct {
	Left, Top, Right, Bottom float64
	Width, Height            float64
}

var (
	errSlopHorizontal = errors.New("gesture: hit slop cannot set left, right and width")
	errSlopVertical   = errors.New("gesture: hit slop cannot set top, bottom and height")
	errSlopWidth      = errors.New("gesture: hit slop width needs left or right")
	errSlopHeight     = errors.New("gesture: hit slop height needs top or bottom")
)

// NoHitSlop returns a HitSlop with every field Unset.
func NoHitSlop() HitSlop {
	return HitSlop{Left: Unset, Top: Unset, Right: Unset, Bottom: Unset, Width: Unset, Height: Unset}
}

// UniformHitSlop returns a HitSlop that moves all four edges by p.
func UniformHitSlop(p float64) HitSlop {
	s := NoHitSlop()
	s.Left, s.Top, s.Right, s.Bottom = p, p, p, p
	return s
}

// Validate reports whether the fields describe a single rectangle.
func (s HitSlop) Validate() error {
	switch {
	case isSet(s.Left) && isSet(s.Right) && isSet(s.Width):
		return errSlopHorizontal
	case isSet(s.Width) && !isSet(s.Left) && !isSet(s.Right):
		return errSlopWidth
	case isSet(s.Top) && isSet(s.Bottom) && isSet(s.Height):
		return errSlopVertical
	case isSet(s.Height) && !isSet(s.Top) && !isSet(s.Bottom):
		return errSlopHeight
	}
	return nil
}

// Expand applies the slop to a view rectangle in view coordinates.
func (s HitSlop) Expand(r f64.Rectangle) f64.Rectangle {
	if isSet(s.Left) {
		r.Min.X -= s.Left
	}
	if isSet(s.Right) {
		r.Max.X += s.Right
	}
	if isSet(s.Top) {
		r.Min.Y -= s.Top
	}
	if isSet(s.Bottom) {
		r.Max.Y += s.Bottom
	}
	if isSet(s.Width) {
		if isSet(s.Left) {
			r.Max.X = r.Min.X + s.Width
		} else if isSet(s.Right) {
			r.Min.X = r.Max.X - s.Width
		}
	}
	if isSet(s.Height) {
		if isSet(s.Top) {
			r.Max.Y = r.Min.Y + s.Height
		} else if isSet(s.Bottom) {
			r.Min.Y = r.Max.Y - s.Height
		}
	}
	return r
}

func isSet(v float64) bool {
	return !math.IsNaN(v)
}
