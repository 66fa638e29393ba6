// Package config loads and validates the generator's tunables. Every
// parameter is bounded and checked at startup; a value outside its
// bounds aborts the run before any selection happens.
package config

import (
	"fmt"

	"github.com/franz/autodj/internal/util"
	"github.com/spf13/viper"
)

// Mix holds the global targets for one set
type Mix struct {
	TargetDurationMinutes int
	MaxPlaylistTracks     int
	SeedTrack             int64 // optional explicit seed track id (0 = auto)
}

// Constraints holds the per-step selection constraints
type Constraints struct {
	BPMTolerancePercent     float64
	EscalationStepPercent   float64
	MaxEscalations          int
	EnergyWindowSize        int
	MinTrackDurationSeconds int
	MaxRepeatDecayHours     int
}

// Render holds the knobs the downstream renderer consumes verbatim
type Render struct {
	CrossfadeDurationSeconds int
	HoldDurationBars         int
}

// Weights combines the selector's scoring terms. Exposed as config
// because the exact numbers are tuning, not contract.
type Weights struct {
	Harmonic float64
	Energy   float64
	Recency  float64
	Jitter   float64
}

// Run holds run-level execution settings
type Run struct {
	TimeBudgetSeconds int
	OutputDir         string
}

// Config is the validated configuration for a generation run
type Config struct {
	Mix         Mix
	Constraints Constraints
	Render      Render
	Weights     Weights
	Run         Run
}

// Defaults mirror the values the original deployment shipped with
func setDefaults() {
	viper.SetDefault("mix.target_duration_minutes", 60)
	viper.SetDefault("mix.max_playlist_tracks", 90)
	viper.SetDefault("mix.seed_track", 0)

	viper.SetDefault("constraints.bpm_tolerance_percent", 4.0)
	viper.SetDefault("constraints.escalation_step_percent", 2.0)
	viper.SetDefault("constraints.max_escalations", 3)
	viper.SetDefault("constraints.energy_window_size", 3)
	viper.SetDefault("constraints.min_track_duration_seconds", 120)
	viper.SetDefault("constraints.max_repeat_decay_hours", 168)

	viper.SetDefault("render.crossfade_duration_seconds", 4)
	viper.SetDefault("render.hold_duration_bars", 16)

	viper.SetDefault("weights.harmonic", 1.0)
	viper.SetDefault("weights.energy", 1.0)
	viper.SetDefault("weights.recency", 0.5)
	viper.SetDefault("weights.jitter", 0.05)

	viper.SetDefault("run.time_budget_seconds", 30)
	viper.SetDefault("run.output_dir", "data/playlists")
}

// Load reads configuration from viper (config file, env, flags) and
// validates it
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{
		Mix: Mix{
			TargetDurationMinutes: viper.GetInt("mix.target_duration_minutes"),
			MaxPlaylistTracks:     viper.GetInt("mix.max_playlist_tracks"),
			SeedTrack:             viper.GetInt64("mix.seed_track"),
		},
		Constraints: Constraints{
			BPMTolerancePercent:     viper.GetFloat64("constraints.bpm_tolerance_percent"),
			EscalationStepPercent:   viper.GetFloat64("constraints.escalation_step_percent"),
			MaxEscalations:          viper.GetInt("constraints.max_escalations"),
			EnergyWindowSize:        viper.GetInt("constraints.energy_window_size"),
			MinTrackDurationSeconds: viper.GetInt("constraints.min_track_duration_seconds"),
			MaxRepeatDecayHours:     viper.GetInt("constraints.max_repeat_decay_hours"),
		},
		Render: Render{
			CrossfadeDurationSeconds: viper.GetInt("render.crossfade_duration_seconds"),
			HoldDurationBars:         viper.GetInt("render.hold_duration_bars"),
		},
		Weights: Weights{
			Harmonic: viper.GetFloat64("weights.harmonic"),
			Energy:   viper.GetFloat64("weights.energy"),
			Recency:  viper.GetFloat64("weights.recency"),
			Jitter:   viper.GetFloat64("weights.jitter"),
		},
		Run: Run{
			TimeBudgetSeconds: viper.GetInt("run.time_budget_seconds"),
			OutputDir:         viper.GetString("run.output_dir"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// intBound / floatBound describe a single parameter's allowed range
type intBound struct {
	name     string
	value    int
	min, max int
}

type floatBound struct {
	name     string
	value    float64
	min, max float64
}

// Validate checks every parameter against its bounds
func (c *Config) Validate() error {
	intBounds := []intBound{
		{"mix.target_duration_minutes", c.Mix.TargetDurationMinutes, 30, 120},
		{"mix.max_playlist_tracks", c.Mix.MaxPlaylistTracks, 10, 150},
		{"constraints.max_escalations", c.Constraints.MaxEscalations, 0, 10},
		{"constraints.energy_window_size", c.Constraints.EnergyWindowSize, 2, 5},
		{"constraints.min_track_duration_seconds", c.Constraints.MinTrackDurationSeconds, 60, 300},
		{"constraints.max_repeat_decay_hours", c.Constraints.MaxRepeatDecayHours, 24, 720},
		{"render.crossfade_duration_seconds", c.Render.CrossfadeDurationSeconds, 2, 8},
		{"render.hold_duration_bars", c.Render.HoldDurationBars, 4, 64},
		{"run.time_budget_seconds", c.Run.TimeBudgetSeconds, 5, 300},
	}
	for _, b := range intBounds {
		if b.value < b.min || b.value > b.max {
			return fmt.Errorf("%w: %s=%d out of bounds [%d, %d]",
				util.ErrInvalidConfig, b.name, b.value, b.min, b.max)
		}
	}

	floatBounds := []floatBound{
		{"constraints.bpm_tolerance_percent", c.Constraints.BPMTolerancePercent, 2, 10},
		{"constraints.escalation_step_percent", c.Constraints.EscalationStepPercent, 0.5, 5},
		{"weights.harmonic", c.Weights.Harmonic, 0, 10},
		{"weights.energy", c.Weights.Energy, 0, 10},
		{"weights.recency", c.Weights.Recency, 0, 10},
		{"weights.jitter", c.Weights.Jitter, 0, 1},
	}
	for _, b := range floatBounds {
		if b.value < b.min || b.value > b.max {
			return fmt.Errorf("%w: %s=%g out of bounds [%g, %g]",
				util.ErrInvalidConfig, b.name, b.value, b.min, b.max)
		}
	}

	if c.Run.OutputDir == "" {
		return fmt.Errorf("%w: run.output_dir must not be empty", util.ErrInvalidConfig)
	}

	return nil
}
