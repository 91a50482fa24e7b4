package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
)

// AnimationBuilderOption is a functional option for configuring an Animation during construction.
type AnimationBuilderOption func(*animationImpl)

// WithName is an option builder that sets the clip name.
//
// Parameters:
//   - name: the clip name
//
// Returns:
//   - AnimationBuilderOption: a function that applies the name option to an animation
func WithName(name string) AnimationBuilderOption {
	return func(a *animationImpl) {
		a.name = name
	}
}

// WithKeyframes is an option builder that sets the keyframe sequence.
// The frames are used as given; they must be in ascending time order and share one topology.
//
// Parameters:
//   - frames: the keyframes
//
// Returns:
//   - AnimationBuilderOption: a function that applies the keyframes option to an animation
func WithKeyframes(frames []Frame) AnimationBuilderOption {
	return func(a *animationImpl) {
		a.keyframes = frames
	}
}

// WithBindPose is an option builder that sets the bind pose whose inverse bind matrices are
// composed into every produced pose.
//
// Parameters:
//   - bind: the bind pose
//
// Returns:
//   - AnimationBuilderOption: a function that applies the bind pose option to an animation
func WithBindPose(bind *joint.Pose) AnimationBuilderOption {
	return func(a *animationImpl) {
		a.bindPose = bind
	}
}

// WithSpeed is an option builder that sets the playback speed multiplier.
//
// Parameters:
//   - speed: the speed multiplier (1.0 = normal)
//
// Returns:
//   - AnimationBuilderOption: a function that applies the speed option to an animation
func WithSpeed(speed float64) AnimationBuilderOption {
	return func(a *animationImpl) {
		a.speed = speed
	}
}

// WithType is an option builder that sets the initial playback mode.
//
// Parameters:
//   - t: the playback mode
//
// Returns:
//   - AnimationBuilderOption: a function that applies the type option to an animation
func WithType(t Type) AnimationBuilderOption {
	return func(a *animationImpl) {
		a.SetType(t)
	}
}

// WithBakedFrames is an option builder that installs a previously baked cache.
// An empty frame list or a non-positive quantum is ignored.
//
// Parameters:
//   - frames: resolved frames, one every quantum seconds
//   - quantum: the sampling interval in seconds
//
// Returns:
//   - AnimationBuilderOption: a function that applies the baked frames option to an animation
func WithBakedFrames(frames []Frame, quantum float64) AnimationBuilderOption {
	return func(a *animationImpl) {
		_ = a.LoadBaked(frames, quantum)
	}
}
