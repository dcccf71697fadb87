// SPDX-License-Identifier: Unlicense OR MIT

// Package config loads the recognizer defaults and orchestrator
// settings from TOML.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"

	"touchflow.org/gesture"
	"touchflow.org/unit"
)

// Config is the TOML document.
type Config struct {
	Log          Log          `toml:"log"`
	Display      Display      `toml:"display"`
	Tap          Tap          `toml:"tap"`
	LongPress    LongPress    `toml:"long_press"`
	Orchestrator Orchestrator `toml:"orchestrator"`
}

// Log selects the log level, one of the logrus level names.
type Log struct {
	Level string `toml:"level"`
}

// Display describes the pixel density of the pointer coordinates.
type Display struct {
	PxPerDp float64 `toml:"px_per_dp"`
}

// Tap holds tap defaults. Distances are in dp; zero distances are
// unbounded.
type Tap struct {
	NumberOfTaps  int     `toml:"number_of_taps"`
	MaxDurationMs int     `toml:"max_duration_ms"`
	MaxDelayMs    int     `toml:"max_delay_ms"`
	MaxDeltaX     float64 `toml:"max_delta_x"`
	MaxDeltaY     float64 `toml:"max_delta_y"`
	MaxDistance   float64 `toml:"max_distance"`
	MinPointers   int     `toml:"min_pointers"`
}

// LongPress holds long press defaults. A zero distance is unbounded.
type LongPress struct {
	MinDurationMs int     `toml:"min_duration_ms"`
	MaxDistance   float64 `toml:"max_distance"`
}

// Orchestrator holds orchestrator settings.
type Orchestrator struct {
	HitCacheSize int `toml:"hit_cache_size"`
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		Log:     Log{Level: "info"},
		Display: Display{PxPerDp: 1},
		Tap: Tap{
			NumberOfTaps:  1,
			MaxDurationMs: 500,
			MaxDelayMs:    500,
			MinPointers:   1,
		},
		LongPress: LongPress{
			MinDurationMs: 500,
			MaxDistance:   float64(gesture.DefaultMaxDistance),
		},
		Orchestrator: Orchestrator{HitCacheSize: 64},
	}
}

// Load reads a configuration file. Keys missing from the file keep
// their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := undecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Decode is like Load but reads from r.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := undecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate reports settings that no recognizer can use.
func (c Config) Validate() error {
	switch {
	case c.Display.PxPerDp <= 0:
		return fmt.Errorf("config: display.px_per_dp must be positive, got %g", c.Display.PxPerDp)
	case c.Tap.NumberOfTaps < 1:
		return fmt.Errorf("config: tap.number_of_taps must be at least 1, got %d", c.Tap.NumberOfTaps)
	case c.Tap.MaxDurationMs < 0 || c.Tap.MaxDelayMs < 0 || c.LongPress.MinDurationMs < 0:
		return fmt.Errorf("config: durations must not be negative")
	case c.Orchestrator.HitCacheSize < 0:
		return fmt.Errorf("config: orchestrator.hit_cache_size must not be negative")
	}
	return nil
}

// Metric returns the dp conversion of the display.
func (c Config) Metric() unit.Metric {
	return unit.Metric{PxPerDp: c.Display.PxPerDp}
}

// TapConfig converts the tap defaults to pixels.
func (c Config) TapConfig() gesture.TapConfig {
	m := c.Metric()
	return gesture.TapConfig{
		NumberOfTaps: c.Tap.NumberOfTaps,
		MaxDuration:  millis(c.Tap.MaxDurationMs),
		MaxDelay:     millis(c.Tap.MaxDelayMs),
		MaxDeltaX:    px(m, c.Tap.MaxDeltaX),
		MaxDeltaY:    px(m, c.Tap.MaxDeltaY),
		MaxDistance:  px(m, c.Tap.MaxDistance),
		MinPointers:  c.Tap.MinPointers,
	}
}

// LongPressConfig converts the long press defaults to pixels.
func (c Config) LongPressConfig() gesture.LongPressConfig {
	return gesture.LongPressConfig{
		MinDuration: millis(c.LongPress.MinDurationMs),
		MaxDistance: px(c.Metric(), c.LongPress.MaxDistance),
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func px(m unit.Metric, dp float64) float64 {
	if dp <= 0 {
		return gesture.Unset
	}
	return m.Dp(unit.Dp(dp))
}

func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	slices.Sort(names)
	return fmt.Errorf("config: unknown keys %s", strings.Join(names, ", "))
}
