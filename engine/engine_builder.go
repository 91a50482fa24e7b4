package engine

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/library"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler sets the profiler ticked by the engine when profiling is enabled.
//
// Parameters:
//   - p: a pre-configured Profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithLibrary sets the library of animations the engine steps each tick.
//
// Parameters:
//   - lib: the animation library to drive
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLibrary(lib library.Library) EngineBuilderOption {
	return func(e *engine) {
		e.library = lib
	}
}

// WithTickCallback registers the tick callback during engine construction.
//
// Parameters:
//   - callback: function receiving each tick's clock, delta and outputs
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback TickCallback) EngineBuilderOption {
	return func(e *engine) {
		e.tickCallback = callback
	}
}
