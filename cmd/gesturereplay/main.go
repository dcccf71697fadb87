// SPDX-License-Identifier: Unlicense OR MIT

// Command gesturereplay feeds recorded pointer samples through a
// gesture orchestrator and prints how the handlers resolved.
//
// A scenario file declares views, handlers and samples:
//
//	root = [0, 0, 400, 800]
//
//	[[view]]
//	name = "button"
//	frame = [100, 100, 200, 150]
//
//	[[handler]]
//	id = 1
//	kind = "tap"
//	view = "button"
//	taps = 2
//
//	[[sample]]
//	phase = "Down"
//	x = 150
//	y = 120
//	t_ms = 0
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gesturereplay: %v\n", err)
		os.Exit(1)
	}
}
