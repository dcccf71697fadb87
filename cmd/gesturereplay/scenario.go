// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"

	"touchflow.org/config"
	"touchflow.org/f64"
	"touchflow.org/gesture"
	"touchflow.org/io/input"
	"touchflow.org/io/pointer"
	"touchflow.org/io/view"
	"touchflow.org/unit"
)

// scenario is a replay file.
type scenario struct {
	// Root is the frame of the root view, [x0, y0, x1, y1].
	Root []float64 `toml:"root"`
	// SettleMs is how long the clock runs after the last sample.
	SettleMs int           `toml:"settle_ms"`
	Views    []viewSpec    `toml:"view"`
	Handlers []handlerSpec `toml:"handler"`
	Samples  []sampleSpec  `toml:"sample"`
}

type viewSpec struct {
	Name string `toml:"name"`
	// Parent names an earlier view. Empty means the root.
	Parent        string    `toml:"parent"`
	Frame         []float64 `toml:"frame"`
	PointerEvents string    `toml:"pointer_events"`
	Overflow      bool      `toml:"overflow"`
	Hidden        bool      `toml:"hidden"`
}

// handlerSpec describes a handler. Zero valued overrides keep the
// configured defaults; distances are in dp.
type handlerSpec struct {
	ID                uint32  `toml:"id"`
	Kind              string  `toml:"kind"`
	View              string  `toml:"view"`
	Taps              int     `toml:"taps"`
	MinPointers       int     `toml:"min_pointers"`
	MaxDistance       float64 `toml:"max_distance"`
	MinDurationMs     int     `toml:"min_duration_ms"`
	HitSlop           float64 `toml:"hit_slop"`
	ManualActivation  bool    `toml:"manual_activation"`
	CancelWhenOutside *bool   `toml:"cancel_when_outside"`
	Disabled          bool    `toml:"disabled"`

	WaitFor      []uint32 `toml:"wait_for"`
	Blocks       []uint32 `toml:"blocks"`
	Simultaneous []uint32 `toml:"simultaneous"`
	CancelledBy  []uint32 `toml:"cancelled_by"`
}

type sampleSpec struct {
	Phase   string  `toml:"phase"`
	Pointer uint16  `toml:"pointer"`
	X       float64 `toml:"x"`
	Y       float64 `toml:"y"`
	TimeMs  int     `toml:"t_ms"`
}

const defaultSettle = time.Second

func loadScenario(path string) (*scenario, error) {
	sc := new(scenario)
	md, err := toml.DecodeFile(path, sc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		slices.Sort(names)
		return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(names, ", "))
	}
	return sc, nil
}

func (sc *scenario) settle() time.Duration {
	if sc.SettleMs <= 0 {
		return defaultSettle
	}
	return time.Duration(sc.SettleMs) * time.Millisecond
}

func rect(name string, r []float64) (f64.Rectangle, error) {
	if len(r) != 4 {
		return f64.Rectangle{}, fmt.Errorf("%s: frame needs 4 coordinates, got %d", name, len(r))
	}
	return f64.Rect(r[0], r[1], r[2], r[3]), nil
}

// buildViews returns the view tree of sc and the ids of its named
// views.
func (sc *scenario) buildViews() (*view.Hierarchy, map[string]view.ID, error) {
	root, err := rect("root", sc.Root)
	if err != nil {
		return nil, nil, err
	}
	tree := view.NewHierarchy(root)
	ids := map[string]view.ID{"": tree.Root()}
	for _, vs := range sc.Views {
		if vs.Name == "" {
			return nil, nil, fmt.Errorf("view without a name")
		}
		if _, dup := ids[vs.Name]; dup {
			return nil, nil, fmt.Errorf("view %q: duplicate name", vs.Name)
		}
		parent, ok := ids[vs.Parent]
		if !ok {
			return nil, nil, fmt.Errorf("view %q: unknown parent %q", vs.Name, vs.Parent)
		}
		frame, err := rect(vs.Name, vs.Frame)
		if err != nil {
			return nil, nil, err
		}
		opts := view.Options{Overflow: vs.Overflow, Hidden: vs.Hidden}
		if vs.PointerEvents != "" {
			if opts.PointerEvents, err = view.ParsePointerEvents(vs.PointerEvents); err != nil {
				return nil, nil, fmt.Errorf("view %q: %w", vs.Name, err)
			}
		}
		id, err := tree.Add(parent, frame, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("view %q: %w", vs.Name, err)
		}
		ids[vs.Name] = id
	}
	return tree, ids, nil
}

// newHandler builds the handler described by hs on top of the
// configured recognizer defaults.
func (hs handlerSpec) newHandler(cfg config.Config) (*gesture.Handler, error) {
	kind, err := gesture.ParseKind(hs.Kind)
	if err != nil {
		return nil, fmt.Errorf("handler %d: %w", hs.ID, err)
	}
	m := cfg.Metric()
	id := gesture.ID(hs.ID)
	var h *gesture.Handler
	switch kind {
	case gesture.KindTap:
		tc := cfg.TapConfig()
		if hs.Taps > 0 {
			tc.NumberOfTaps = hs.Taps
		}
		if hs.MinPointers > 0 {
			tc.MinPointers = hs.MinPointers
		}
		if hs.MaxDistance > 0 {
			tc.MaxDistance = m.Dp(unit.Dp(hs.MaxDistance))
		}
		h = gesture.NewTap(id, tc)
	case gesture.KindLongPress:
		lc := cfg.LongPressConfig()
		if hs.MinDurationMs > 0 {
			lc.MinDuration = time.Duration(hs.MinDurationMs) * time.Millisecond
		}
		if hs.MaxDistance > 0 {
			lc.MaxDistance = m.Dp(unit.Dp(hs.MaxDistance))
		}
		h = gesture.NewLongPress(id, lc)
	case gesture.KindManual:
		h = gesture.NewManual(id)
	default:
		h = gesture.NewInert(id)
	}
	if hs.HitSlop > 0 {
		if err := h.SetHitSlop(gesture.UniformHitSlop(m.Dp(unit.Dp(hs.HitSlop)))); err != nil {
			return nil, fmt.Errorf("handler %d: %w", hs.ID, err)
		}
	}
	h.SetManualActivation(hs.ManualActivation)
	if hs.CancelWhenOutside != nil {
		h.SetShouldCancelWhenOutside(*hs.CancelWhenOutside)
	}
	h.SetEnabled(!hs.Disabled)
	return h, nil
}

// install registers and attaches the handlers of sc and records
// their relations.
func (sc *scenario) install(o *input.Orchestrator, cfg config.Config, views map[string]view.ID) error {
	rel, ok := o.Rules().(*gesture.Relations)
	if !ok {
		return fmt.Errorf("orchestrator rules are not editable")
	}
	for _, hs := range sc.Handlers {
		v, ok := views[hs.View]
		if !ok || hs.View == "" {
			return fmt.Errorf("handler %d: unknown view %q", hs.ID, hs.View)
		}
		h, err := hs.newHandler(cfg)
		if err != nil {
			return err
		}
		if err := o.Register(h); err != nil {
			return err
		}
		if err := o.Attach(h.ID(), v); err != nil {
			return err
		}
		id := gesture.ID(hs.ID)
		rel.WaitFor(id, ids(hs.WaitFor)...)
		rel.Blocks(id, ids(hs.Blocks)...)
		rel.Simultaneous(id, ids(hs.Simultaneous)...)
		rel.CancelledBy(id, ids(hs.CancelledBy)...)
	}
	return nil
}

func ids(raw []uint32) []gesture.ID {
	out := make([]gesture.ID, len(raw))
	for i, id := range raw {
		out[i] = gesture.ID(id)
	}
	return out
}

// samples converts the scenario samples, filling in the pointer
// counts. Timestamps must not decrease.
func (sc *scenario) samples() ([]pointer.Sample, error) {
	down := make(map[pointer.ID]bool)
	out := make([]pointer.Sample, 0, len(sc.Samples))
	var last time.Duration
	for i, ss := range sc.Samples {
		phase, err := pointer.ParsePhase(ss.Phase)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		t := time.Duration(ss.TimeMs) * time.Millisecond
		if t < last {
			return nil, fmt.Errorf("sample %d: time %v before %v", i, t, last)
		}
		last = t
		id := pointer.ID(ss.Pointer)
		if phase.Starts() {
			down[id] = true
		}
		s := pointer.Sample{
			Phase:     phase,
			PointerID: id,
			Count:     len(down),
			Position:  f64.Pt(ss.X, ss.Y),
			Time:      t,
		}
		switch {
		case phase.Lifts():
			delete(down, id)
		case phase == pointer.Cancel:
			clear(down)
		}
		out = append(out, s)
	}
	return out, nil
}
