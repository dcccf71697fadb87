// SPDX-License-Identifier: Unlicense OR MIT

/*
Package input implements the gesture orchestrator.

An [Orchestrator] owns the handlers registered for a view tree. For
every pointer stream it hit tests the tree to pick the candidate
handlers, delivers samples to them in activation order, and decides
between handlers that compete for the same pointers: a handler that
activates drives its competitors out, handlers that wait for others
are held back until those fail, and simultaneous handlers share the
pointers.

Arbitration is single threaded. State changes raised while another
change is being processed are queued and handled in order before
the outermost call returns, so cancellation cascades never recurse.
*/
package input
