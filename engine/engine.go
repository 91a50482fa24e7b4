package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/Carmen-Shannon/oxy-anim/engine/library"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

var (
	// ErrNoLibrary is returned by Run when the engine has no library to drive.
	ErrNoLibrary = errors.New("engine: no animation library")
	// ErrRunning is returned by Run when the tick loop is already running.
	ErrRunning = errors.New("engine: already running")
)

// TickCallback receives the outputs of one tick.
// systemTime is the clock value the library was updated with, deltaTime the step that led to it.
type TickCallback func(systemTime, deltaTime float64, outputs map[string]*joint.Pose)

// engine implements the Engine interface.
// Drives a library of animations on a fixed-rate tick loop.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	library library.Library

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   TickCallback

	systemTime float64
	ticks      int
}

// Engine steps every animation in a library on a shared clock.
// The clock is simulated: each tick advances it by the tick's delta, starting from zero.
type Engine interface {
	// Library returns the library the engine drives.
	//
	// Returns:
	//   - library.Library: the library, or nil if none was configured
	Library() library.Library

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// If the engine is running, the change takes effect on the next tick.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// TickInterval returns the wall time between ticks of Run.
	//
	// Returns:
	//   - time.Duration: the current tick interval
	TickInterval() time.Duration

	// SetTickCallback registers the function called after each tick.
	//
	// Parameters:
	//   - callback: function receiving the tick's clock, delta and outputs
	SetTickCallback(callback TickCallback)

	// Step advances the clock by one tick of deltaTime seconds without waiting on wall time.
	// Updates every animation in the library and fires the tick callback.
	//
	// Parameters:
	//   - deltaTime: the simulated seconds covered by this tick
	//
	// Returns:
	//   - map[string]*joint.Pose: the library outputs for this tick
	Step(deltaTime float64) map[string]*joint.Pose

	// SystemTime returns the clock value the next tick will update with.
	//
	// Returns:
	//   - float64: simulated seconds since the engine started
	SystemTime() float64

	// Ticks returns the number of ticks stepped so far.
	//
	// Returns:
	//   - int: the tick count
	Ticks() int

	// Running reports whether Run is currently looping.
	//
	// Returns:
	//   - bool: true while Run has not returned
	Running() bool

	// Run steps the library at the tick rate, using measured wall time as each tick's delta.
	// Blocks until the context is done or Quit is called.
	//
	// Parameters:
	//   - ctx: cancelling the context stops the loop
	//
	// Returns:
	//   - error: ErrNoLibrary, ErrRunning, or nil once the loop stops
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times and from the tick callback; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (library, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	return e
}

func (e *engine) Library() library.Library {
	return e.library
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}

	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()
}

func (e *engine) TickInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engineTickRate
}

func (e *engine) SetTickCallback(callback TickCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) Step(deltaTime float64) map[string]*joint.Pose {
	if e.library == nil {
		panic("engine: Step called without a library")
	}

	e.mu.Lock()
	systemTime := e.systemTime
	callback := e.tickCallback
	profiling := e.profilingEnabled
	e.mu.Unlock()

	start := time.Now()
	outputs := e.library.UpdateAll(systemTime, deltaTime)
	cost := time.Since(start)

	e.mu.Lock()
	e.systemTime += deltaTime
	e.ticks++
	e.mu.Unlock()

	if profiling {
		e.profiler.Tick(cost, len(outputs))
	}
	if callback != nil {
		callback(systemTime, deltaTime, outputs)
	}
	return outputs
}

func (e *engine) SystemTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.systemTime
}

func (e *engine) Ticks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

func (e *engine) Running() bool {
	return e.running.Load()
}

func (e *engine) Run(ctx context.Context) error {
	if e.library == nil {
		return ErrNoLibrary
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)

	ticker := time.NewTicker(e.TickInterval())
	defer ticker.Stop()

	log.Printf("[Engine] Running %d animations every %s", e.library.Len(), e.TickInterval())
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			e.Step(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// Quit signals the tick loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// tickInterval converts a tick rate to the time between ticks, treating fps <= 0 as 60.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
