package config

import "time"

// ConfigBuilderOption overrides a Config value after the environment has been read.
type ConfigBuilderOption func(*Config)

// WithBakeFrames overrides the number of frames sampled per bake.
func WithBakeFrames(n int) ConfigBuilderOption {
	return func(c *Config) {
		c.BakeFrames = n
	}
}

// WithSpeed overrides the playback speed multiplier.
func WithSpeed(speed float64) ConfigBuilderOption {
	return func(c *Config) {
		c.Speed = speed
	}
}

// WithType overrides the playback mode name.
func WithType(t string) ConfigBuilderOption {
	return func(c *Config) {
		c.Type = t
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(n int) ConfigBuilderOption {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithTickRate overrides the simulated tick rate.
func WithTickRate(rate int) ConfigBuilderOption {
	return func(c *Config) {
		c.TickRate = rate
	}
}

// WithProfileInterval overrides the profiler report interval.
func WithProfileInterval(d time.Duration) ConfigBuilderOption {
	return func(c *Config) {
		c.ProfileInterval = d
	}
}

// WithBakeStore overrides the bake store path.
func WithBakeStore(path string) ConfigBuilderOption {
	return func(c *Config) {
		c.BakeStore = path
	}
}
