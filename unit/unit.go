// SPDX-License-Identifier: Unlicense OR MIT

/*
Package unit implements device independent units.

Device independent pixel, or dp, is the unit for distances independent
of the underlying display device. Recognizer thresholds such as
the maximum finger travel of a long press are specified in dp and
converted to pixels with a Metric before they are compared to pointer
positions.
*/
package unit

import (
	"fmt"
	"math"
)

// Dp represents device independent pixels. 1 dp will
// have the same apparent size across platforms and
// display resolutions.
type Dp float64

// Metric converts Dp values to device pixels.
type Metric struct {
	// PxPerDp is the device pixels per dp.
	PxPerDp float64
}

// Dp converts v to pixels.
func (m Metric) Dp(v Dp) float64 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return float64(v)
	}
	return float64(v) * nonZero(m.PxPerDp)
}

// PxToDp converts v px to dp.
func (m Metric) PxToDp(v float64) Dp {
	return Dp(v / nonZero(m.PxPerDp))
}

func (v Dp) String() string {
	return fmt.Sprintf("%gdp", float64(v))
}

func nonZero(v float64) float64 {
	if v == 0. {
		return 1
	}
	return v
}
