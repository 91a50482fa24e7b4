// Package animation drives a skeleton through time. An Animation owns an ordered keyframe
// sequence and produces one resolved pose per tick, either by blending the surrounding keyframes
// or by reading a cache of poses baked at a fixed interval.
package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
)

var (
	ErrTooFewKeyframes   = errors.New("animation: at least two keyframes are required")
	ErrInvalidFrameCount = errors.New("animation: frame count must be positive")
	ErrInvalidQuantum    = errors.New("animation: quantum must be positive")
	ErrUnknownType       = errors.New("animation: unknown type")
)

// Clock is a snapshot of an Animation's playback clock.
type Clock struct {
	// StartTime is the system time that maps to clip time zero.
	StartTime float64
	// Elapsed is the unscaled time since StartTime as of the last running update.
	Elapsed float64
	// ScaledTime is Elapsed multiplied by the playback speed.
	ScaledTime float64
	// DeltaTime is the tick delta passed to the last update.
	DeltaTime float64
	// Paused reports whether the clock is frozen.
	Paused bool
	// PendingReset reports whether the next update restarts the clip.
	PendingReset bool
}

// animationImpl is the implementation of the Animation interface.
type animationImpl struct {
	name      string
	keyframes []Frame
	bindPose  *joint.Pose
	speed     float64

	mode playbackMode
	bake *bakedClip

	startTime, elapsed, scaled, delta float64
	paused, pendingReset              bool

	blend      float64
	work       *joint.Pose
	lastOutput *joint.Pose
}

// Animation is a playback state machine over a keyframe sequence.
//
// Keyframes must be in ascending time order and share one skeleton topology; neither is checked.
// At least two keyframes must exist before Update is called. An Animation is driven from a single
// goroutine; keyframe poses are only read, so several Animations may share them.
type Animation interface {
	// Name returns the clip name.
	Name() string

	// Update advances the clock to systemTime and returns the resolved pose for this tick.
	//
	// While paused the clock baseline follows systemTime so elapsed time stays frozen, and the
	// previous output is returned without recomputation. A pending reset restarts the clip at
	// systemTime. In interpolated mode the keyframe pair advances by at most one step per call and
	// the pose is blended, composed with the bind pose and resolved. When scaled time reaches the
	// last keyframe the reset is armed for the next call, and this call still blends the current
	// pair, so the blend factor can exceed 1 on that tick. In baked mode the pose at
	// floor(scaledTime / quantum), wrapped to the cache size, is returned as stored.
	//
	// The returned pose is owned by the Animation and is overwritten by later updates; callers
	// must not mutate it.
	//
	// Parameters:
	//   - systemTime: the current engine time in seconds
	//   - deltaTime: the time since the previous tick in seconds
	//
	// Returns:
	//   - *joint.Pose: the resolved pose
	Update(systemTime, deltaTime float64) *joint.Pose

	// Bake replaces the baked cache with frameCount poses sampled every Duration()/frameCount
	// seconds from time zero. Each pose is interpolated, composed with the bind pose and resolved.
	// Bake runs synchronously; a baked clip in use by playback is replaced.
	//
	// Parameters:
	//   - frameCount: the number of frames to sample
	//
	// Returns:
	//   - error: ErrInvalidFrameCount or ErrTooFewKeyframes
	Bake(frameCount int) error

	// LoadBaked installs an externally produced baked cache, such as one read back from storage.
	//
	// Parameters:
	//   - frames: resolved frames, one every quantum seconds from time zero
	//   - quantum: the sampling interval in seconds
	//
	// Returns:
	//   - error: ErrInvalidFrameCount or ErrInvalidQuantum
	LoadBaked(frames []Frame, quantum float64) error

	// Type returns the active playback mode.
	Type() Type

	// SetType switches the playback mode and resets the keyframe pair to (0, 1).
	// The playback position is not carried across the switch.
	//
	// Parameters:
	//   - t: the new mode
	SetType(t Type)

	// Pause freezes the clock at its current elapsed time.
	Pause()

	// Resume unfreezes the clock.
	Resume()

	// Paused reports whether the clock is frozen.
	Paused() bool

	// Reset arms a clock restart for the next update.
	Reset()

	// Speed returns the playback speed multiplier.
	Speed() float64

	// SetSpeed sets the playback speed multiplier.
	SetSpeed(speed float64)

	// Duration returns the time of the last keyframe.
	Duration() float64

	// Quantum returns the baked sampling interval, or 0 if the animation has not been baked.
	Quantum() float64

	// Keyframes returns the keyframe sequence. Callers must not modify it during playback.
	Keyframes() []Frame

	// BakedFrames returns the baked cache, or nil if the animation has not been baked.
	BakedFrames() []Frame

	// KeyframeIndices returns the (current, next) keyframe pair. Outside interpolated mode it
	// reports the reset pair (0, 1).
	KeyframeIndices() (int, int)

	// BakedIndex returns the baked frame served by the last baked update, or -1 outside baked mode.
	BakedIndex() int

	// BlendFactor returns the blend factor used by the last interpolated update.
	BlendFactor() float64

	// LastOutput returns the pose returned by the last update, or nil before the first.
	LastOutput() *joint.Pose

	// Clock returns a snapshot of the playback clock.
	Clock() Clock

	// BindPose returns the bind pose, or nil when none was configured.
	BindPose() *joint.Pose
}

var _ Animation = &animationImpl{}

// NewAnimation creates an Animation. It starts running, in interpolated mode unless configured
// otherwise, with a pending reset so the first update starts the clip.
//
// Parameters:
//   - options: variadic list of AnimationBuilderOption functions to configure the Animation
//
// Returns:
//   - Animation: the new animation
func NewAnimation(options ...AnimationBuilderOption) Animation {
	a := &animationImpl{
		speed:        1,
		mode:         &interpolatedState{current: 0, next: 1},
		pendingReset: true,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animationImpl) Name() string {
	return a.name
}

func (a *animationImpl) Update(systemTime, deltaTime float64) *joint.Pose {
	a.delta = deltaTime

	if a.paused {
		a.startTime = systemTime - a.elapsed
		if a.lastOutput != nil {
			return a.lastOutput
		}
	}

	if a.pendingReset {
		a.resetIndices()
		a.startTime = systemTime
		a.pendingReset = false
	}

	a.elapsed = systemTime - a.startTime
	a.scaled = a.elapsed * a.speed
	duration := a.Duration()

	switch m := a.mode.(type) {
	case *interpolatedState:
		last := len(a.keyframes) - 1
		if m.next < last && a.scaled > a.keyframes[m.next].Time {
			m.current++
			m.next++
		}
		if a.scaled >= duration {
			a.pendingReset = true
		}
		a.lastOutput = a.blendInto(m.current, m.next, a.scaled)
	case *bakedState:
		if m.clip == nil {
			panic(fmt.Sprintf("animation: %q played in baked mode before it was baked", a.name))
		}
		n := len(m.clip.frames)
		idx := int(math.Floor(a.scaled / m.clip.quantum))
		if idx >= n {
			a.pendingReset = true
		}
		// Negative scaled time (negative speed) wraps backwards through the cache.
		m.index = ((idx % n) + n) % n
		a.lastOutput = m.clip.frames[m.index].Pose
	}
	return a.lastOutput
}

// blendInto interpolates keyframes current and next at time t into the working pose and resolves it.
func (a *animationImpl) blendInto(current, next int, t float64) *joint.Pose {
	kc, kn := a.keyframes[current], a.keyframes[next]
	a.blend = (t - kc.Time) / (kn.Time - kc.Time)
	a.work = joint.Interpolate(kc.Pose, kn.Pose, a.work, float32(a.blend))
	if a.bindPose != nil {
		a.work.ComposeWithBind(a.bindPose)
	}
	a.work.Resolve()
	return a.work
}

func (a *animationImpl) Bake(frameCount int) error {
	if frameCount < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameCount, frameCount)
	}
	if len(a.keyframes) < 2 {
		return fmt.Errorf("%w: %q has %d", ErrTooFewKeyframes, a.name, len(a.keyframes))
	}

	quantum := a.Duration() / float64(frameCount)
	clip := &bakedClip{
		frames:  make([]Frame, 0, frameCount),
		quantum: quantum,
	}

	// The pair only moves forward, so samples must be generated in ascending time. Unlike
	// Update it may cross several keyframes per sample when the bake is coarser than the keys.
	current, next, last := 0, 1, len(a.keyframes)-1
	for i := range frameCount {
		t := quantum * float64(i)
		for next < last && t > a.keyframes[next].Time {
			current++
			next++
		}
		kc, kn := a.keyframes[current], a.keyframes[next]
		factor := (t - kc.Time) / (kn.Time - kc.Time)
		pose := joint.Interpolate(kc.Pose, kn.Pose, nil, float32(factor))
		if a.bindPose != nil {
			pose.ComposeWithBind(a.bindPose)
		}
		pose.Resolve()
		clip.frames = append(clip.frames, Frame{Time: t, Pose: pose})
	}

	a.installBake(clip)
	return nil
}

func (a *animationImpl) LoadBaked(frames []Frame, quantum float64) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameCount, len(frames))
	}
	if quantum <= 0 || math.IsNaN(quantum) || math.IsInf(quantum, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidQuantum, quantum)
	}
	a.installBake(&bakedClip{frames: frames, quantum: quantum})
	return nil
}

// installBake replaces the baked cache, retargeting baked playback if it is active.
func (a *animationImpl) installBake(clip *bakedClip) {
	a.bake = clip
	if m, ok := a.mode.(*bakedState); ok {
		m.clip = clip
		m.index = 0
	}
}

func (a *animationImpl) Type() Type {
	return a.mode.kind()
}

func (a *animationImpl) SetType(t Type) {
	switch t {
	case TypeInterpolated:
		a.mode = &interpolatedState{current: 0, next: 1}
	case TypeBaked:
		a.mode = &bakedState{clip: a.bake}
	default:
		panic(fmt.Sprintf("animation: %v", t))
	}
}

// resetIndices rewinds the active mode to its first position.
func (a *animationImpl) resetIndices() {
	switch m := a.mode.(type) {
	case *interpolatedState:
		m.current, m.next = 0, 1
	case *bakedState:
		m.index = 0
	}
}

func (a *animationImpl) Pause() {
	a.paused = true
}

func (a *animationImpl) Resume() {
	a.paused = false
}

func (a *animationImpl) Paused() bool {
	return a.paused
}

func (a *animationImpl) Reset() {
	a.pendingReset = true
}

func (a *animationImpl) Speed() float64 {
	return a.speed
}

func (a *animationImpl) SetSpeed(speed float64) {
	a.speed = speed
}

func (a *animationImpl) Duration() float64 {
	return a.keyframes[len(a.keyframes)-1].Time
}

func (a *animationImpl) Quantum() float64 {
	if a.bake == nil {
		return 0
	}
	return a.bake.quantum
}

func (a *animationImpl) Keyframes() []Frame {
	return a.keyframes
}

func (a *animationImpl) BakedFrames() []Frame {
	if a.bake == nil {
		return nil
	}
	return a.bake.frames
}

func (a *animationImpl) KeyframeIndices() (int, int) {
	if m, ok := a.mode.(*interpolatedState); ok {
		return m.current, m.next
	}
	return 0, 1
}

func (a *animationImpl) BakedIndex() int {
	if m, ok := a.mode.(*bakedState); ok {
		return m.index
	}
	return -1
}

func (a *animationImpl) BlendFactor() float64 {
	return a.blend
}

func (a *animationImpl) LastOutput() *joint.Pose {
	return a.lastOutput
}

func (a *animationImpl) Clock() Clock {
	return Clock{
		StartTime:    a.startTime,
		Elapsed:      a.elapsed,
		ScaledTime:   a.scaled,
		DeltaTime:    a.delta,
		Paused:       a.paused,
		PendingReset: a.pendingReset,
	}
}

func (a *animationImpl) BindPose() *joint.Pose {
	return a.bindPose
}
