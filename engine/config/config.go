// Package config holds the playback settings shared by the animation library, the bake store and
// the command line tools. Values come from the environment and can be overridden with options.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/caarlos0/env/v11"
)

var ErrInvalidConfig = errors.New("config: invalid value")

// Config is the playback configuration.
type Config struct {
	// BakeFrames is the number of frames sampled per clip by a bake.
	BakeFrames int `env:"OXY_ANIM_BAKE_FRAMES" envDefault:"60"`
	// Speed is the default playback speed multiplier.
	Speed float64 `env:"OXY_ANIM_SPEED" envDefault:"1.0"`
	// Type is the default playback mode name, "interpolated" or "baked".
	Type string `env:"OXY_ANIM_TYPE" envDefault:"interpolated"`
	// Workers is the worker pool size. Zero selects one less than the CPU count.
	Workers int `env:"OXY_ANIM_WORKERS" envDefault:"0"`
	// TickRate is the simulated engine tick rate in ticks per second.
	TickRate int `env:"OXY_ANIM_TICK_RATE" envDefault:"60"`
	// ProfileInterval is how often the profiler reports.
	ProfileInterval time.Duration `env:"OXY_ANIM_PROFILE_INTERVAL" envDefault:"1s"`
	// BakeStore is the path of the SQLite bake store. Empty disables persistence.
	BakeStore string `env:"OXY_ANIM_BAKE_STORE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment, applies the options over it and validates
// the result.
//
// Parameters:
//   - options: variadic list of ConfigBuilderOption overrides, applied in order
//
// Returns:
//   - Config: the configuration
//   - error: a parse error or ErrInvalidConfig
func Load(options ...ConfigBuilderOption) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	switch {
	case c.BakeFrames < 1:
		return fmt.Errorf("%w: bake frames %d", ErrInvalidConfig, c.BakeFrames)
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed %v", ErrInvalidConfig, c.Speed)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	case c.TickRate < 1:
		return fmt.Errorf("%w: tick rate %d", ErrInvalidConfig, c.TickRate)
	case c.ProfileInterval < 0:
		return fmt.Errorf("%w: profile interval %v", ErrInvalidConfig, c.ProfileInterval)
	}
	if _, err := animation.ParseType(c.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// WorkerCount returns the configured worker count, defaulting to one less than the CPU count.
func (c Config) WorkerCount() int {
	return common.Coalesce(c.Workers, max(1, runtime.NumCPU()-1))
}

// TickInterval returns the duration of one simulated tick in seconds.
func (c Config) TickInterval() float64 {
	return 1 / float64(c.TickRate)
}
