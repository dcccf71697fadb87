// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"touchflow.org/clock"
	"touchflow.org/config"
	"touchflow.org/gesture"
	"touchflow.org/io/input"
)

// transition is a state change observed during a replay.
type transition struct {
	At       time.Duration
	Handler  string
	From, To gesture.State
}

func (t transition) String() string {
	return fmt.Sprintf("%8v  %-16s %v -> %v", t.At, t.Handler, t.From, t.To)
}

// replay runs sc against a fresh orchestrator on a manual clock and
// returns the transitions in the order they happened.
func replay(sc *scenario, cfg config.Config, log logrus.FieldLogger) ([]transition, error) {
	tree, views, err := sc.buildViews()
	if err != nil {
		return nil, err
	}
	samples, err := sc.samples()
	if err != nil {
		return nil, err
	}
	clk := new(clock.Manual)
	var (
		trace []transition
		o     *input.Orchestrator
	)
	listener := input.ListenerFuncs{
		StateChange: func(id gesture.ID, newState, oldState gesture.State) {
			name := fmt.Sprint(id)
			if h, err := o.Handler(id); err == nil {
				name = h.String()
			}
			trace = append(trace, transition{At: clk.Now(), Handler: name, From: oldState, To: newState})
		},
	}
	o = input.New(tree,
		input.WithScheduler(clk),
		input.WithListener(listener),
		input.WithLogger(log),
		input.WithHitCacheSize(cfg.Orchestrator.HitCacheSize),
	)
	defer o.Close()
	if err := sc.install(o, cfg, views); err != nil {
		return nil, err
	}
	for _, s := range samples {
		clk.AdvanceTo(s.Time)
		log.WithField("sample", s).Debug("deliver")
		if err := o.Deliver(s); err != nil {
			return trace, err
		}
	}
	clk.Advance(sc.settle())
	return trace, nil
}

func printTrace(w io.Writer, name string, trace []transition) error {
	if _, err := fmt.Fprintf(w, "# %s\n", name); err != nil {
		return err
	}
	for _, t := range trace {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
	}
	return nil
}
