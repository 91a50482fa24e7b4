// Package library keeps a named set of animations and drives them as a batch: baking every clip
// and advancing every clip for one engine tick, spread over a worker pool.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/bake_store"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNilAnimation = errors.New("library: animation is nil")
	ErrUnnamed      = errors.New("library: animation has no name")
	ErrDuplicate    = errors.New("library: animation name already registered")
)

// libraryImpl is the implementation of the Library interface.
type libraryImpl struct {
	mu      sync.RWMutex
	anims   map[string]animation.Animation
	outputs map[string]*joint.Pose

	// batch serializes BakeAll and UpdateAll so an Animation is never driven by two tasks.
	batch sync.Mutex

	workers int
	pool    worker.DynamicWorkerPool
	tracer  trace.Tracer
	store   bake_store.Store
}

// Library is a registry of animations keyed by name.
//
// Each Animation is single-threaded; the Library runs different animations in parallel but never
// the same one from two goroutines. BakeAll and UpdateAll are serialized against each other.
type Library interface {
	// Add registers an animation under its name.
	//
	// Parameters:
	//   - anim: the animation to register
	//
	// Returns:
	//   - error: ErrNilAnimation, ErrUnnamed or ErrDuplicate
	Add(anim animation.Animation) error

	// Get returns the animation registered under name.
	Get(name string) (animation.Animation, bool)

	// Remove unregisters the animation with the given name.
	//
	// Returns:
	//   - bool: true if an animation was removed
	Remove(name string) bool

	// Names returns the registered names in sorted order.
	Names() []string

	// Len returns the number of registered animations.
	Len() int

	// BakeAll bakes every registered animation with frameCount frames, one worker task per clip.
	// With a bake store configured, a stored bake of the same frame count is loaded instead of
	// baking, and fresh bakes are saved. Every clip is attempted; failures are joined.
	//
	// Parameters:
	//   - ctx: the request context; clips not yet started when it is cancelled are skipped
	//   - frameCount: the number of frames per clip
	//
	// Returns:
	//   - error: the joined per-clip errors, or nil
	BakeAll(ctx context.Context, frameCount int) error

	// UpdateAll advances every registered animation to systemTime and waits for all of them.
	//
	// Parameters:
	//   - systemTime: the current engine time in seconds
	//   - deltaTime: the time since the previous tick in seconds
	//
	// Returns:
	//   - map[string]*joint.Pose: the pose produced by each animation this tick
	UpdateAll(systemTime, deltaTime float64) map[string]*joint.Pose

	// Outputs returns the poses produced by the last UpdateAll.
	Outputs() map[string]*joint.Pose

	// Close stops the worker pool. The Library must not be used afterwards.
	Close()
}

var _ Library = &libraryImpl{}

// NewLibrary creates an empty Library and starts its worker pool.
//
// Parameters:
//   - options: variadic list of LibraryBuilderOption functions to configure the Library
//
// Returns:
//   - Library: the new library
func NewLibrary(options ...LibraryBuilderOption) Library {
	l := &libraryImpl{
		anims:   make(map[string]animation.Animation),
		outputs: make(map[string]*joint.Pose),
		workers: 1,
		tracer:  otel.Tracer("github.com/Carmen-Shannon/oxy-anim/engine/library"),
	}
	for _, opt := range options {
		opt(l)
	}

	// Initialize the pool after options so WithWorkers can override the default.
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *libraryImpl) Add(anim animation.Animation) error {
	if anim == nil {
		return ErrNilAnimation
	}
	name := anim.Name()
	if name == "" {
		return ErrUnnamed
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.anims[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	l.anims[name] = anim
	return nil
}

func (l *libraryImpl) Get(name string) (animation.Animation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.anims[name]
	return a, ok
}

func (l *libraryImpl) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.anims[name]; !ok {
		return false
	}
	delete(l.anims, name)
	delete(l.outputs, name)
	return true
}

func (l *libraryImpl) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedNamesLocked()
}

func (l *libraryImpl) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.anims)
}

func (l *libraryImpl) BakeAll(ctx context.Context, frameCount int) error {
	if frameCount < 1 {
		return fmt.Errorf("%w: %d", animation.ErrInvalidFrameCount, frameCount)
	}
	l.batch.Lock()
	defer l.batch.Unlock()

	ctx, span := l.tracer.Start(ctx, "library.BakeAll", trace.WithAttributes(
		attribute.Int("clips", l.Len()),
		attribute.Int("frames", frameCount),
	))
	defer span.End()

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		errs   []error
		taskID int
	)
	for _, anim := range l.snapshot() {
		wg.Add(1)
		a := anim
		id := taskID
		taskID++
		l.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				err := l.bakeOne(ctx, a, frameCount)
				if err != nil {
					errMu.Lock()
					errs = append(errs, fmt.Errorf("bake %q: %w", a.Name(), err))
					errMu.Unlock()
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bake failed")
	}
	return err
}

// bakeOne bakes a single clip, going through the bake store when one is configured.
func (l *libraryImpl) bakeOne(ctx context.Context, a animation.Animation, frameCount int) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := l.tracer.Start(ctx, "library.Bake", trace.WithAttributes(
		attribute.String("clip", a.Name()),
		attribute.Int("frames", frameCount),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var source string
	if l.store != nil {
		source = bake_store.Signature(a.Keyframes())
		if bind := storeBindPose(a); bind != nil {
			frames, quantum, err := l.store.Load(ctx, a.Name(), source, bind)
			want := a.Duration() / float64(frameCount)
			switch {
			case err == nil && len(frames) == frameCount && sameQuantum(quantum, want):
				if err := a.LoadBaked(frames, quantum); err != nil {
					return err
				}
				span.SetAttributes(attribute.String("source", "store"))
				log.Printf("[Library] loaded %q from bake store: %d frames", a.Name(), frameCount)
				return nil
			case err == nil && len(frames) == frameCount:
				log.Printf("[Library] stored bake of %q samples every %gs, want %gs, rebaking", a.Name(), quantum, want)
			case errors.Is(err, bake_store.ErrStale):
				log.Printf("[Library] stored bake of %q is from other keyframes, rebaking", a.Name())
			case err != nil && !errors.Is(err, bake_store.ErrNotFound):
				log.Printf("[Library] bake store load of %q failed, rebaking: %v", a.Name(), err)
			}
		}
	}

	start := time.Now()
	if err := a.Bake(frameCount); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("source", "bake"))
	log.Printf("[Library] baked %q: %d frames in %s", a.Name(), frameCount, time.Since(start))

	if l.store != nil {
		if err := l.store.Save(ctx, a.Name(), source, a.Quantum(), a.BakedFrames()); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// sameQuantum reports whether a stored sampling interval matches the one a fresh bake would use.
func sameQuantum(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9*max(1, math.Abs(want))
}

// storeBindPose returns the pose stored frames are rebuilt on: the bind pose, or the first
// keyframe for animations without one.
func storeBindPose(a animation.Animation) *joint.Pose {
	if bind := a.BindPose(); bind != nil {
		return bind
	}
	if keys := a.Keyframes(); len(keys) > 0 {
		return keys[0].Pose
	}
	return nil
}

func (l *libraryImpl) UpdateAll(systemTime, deltaTime float64) map[string]*joint.Pose {
	l.batch.Lock()
	defer l.batch.Unlock()

	anims := l.snapshot()
	results := make([]*joint.Pose, len(anims))

	// The pool's Wait blocks until workers idle out, so a WaitGroup is the per-tick barrier.
	var wg sync.WaitGroup
	for i, anim := range anims {
		wg.Add(1)
		idx, a := i, anim
		l.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx] = a.Update(systemTime, deltaTime)
				return nil, nil
			},
		})
	}
	wg.Wait()

	out := make(map[string]*joint.Pose, len(anims))
	for i, a := range anims {
		out[a.Name()] = results[i]
	}

	l.mu.Lock()
	l.outputs = out
	l.mu.Unlock()
	return out
}

func (l *libraryImpl) Outputs() map[string]*joint.Pose {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*joint.Pose, len(l.outputs))
	for k, v := range l.outputs {
		out[k] = v
	}
	return out
}

func (l *libraryImpl) Close() {
	l.pool.Stop()
}

// snapshot returns the registered animations in name order.
func (l *libraryImpl) snapshot() []animation.Animation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]animation.Animation, 0, len(l.anims))
	for _, name := range l.sortedNamesLocked() {
		out = append(out, l.anims[name])
	}
	return out
}

func (l *libraryImpl) sortedNamesLocked() []string {
	names := make([]string, 0, len(l.anims))
	for name := range l.anims {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
