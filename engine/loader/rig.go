package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
)

// Asset is everything animatable found in one glTF document.
type Asset struct {
	Name string
	Rigs []*Rig
}

// Rig returns the rig with the given name.
func (a *Asset) Rig(name string) (*Rig, bool) {
	for _, r := range a.Rigs {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Rig is a skeleton and the clips authored for it.
type Rig struct {
	// Name is the skin name.
	Name string
	// BindPose is the skeleton at rest with inverse bind matrices populated.
	BindPose *joint.Pose
	// Joints lists the bind pose joints in skin order, the order used by vertex joint indices.
	// A synthetic root added for skins with several root joints is not listed.
	Joints []hierarchy.Handle
	// Clips are the animations that target this skeleton.
	Clips []*Clip
}

// Clip returns the clip with the given name.
func (r *Rig) Clip(name string) (*Clip, bool) {
	for _, c := range r.Clips {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NewAnimation creates an Animation playing clip on this rig's bind pose. Options are applied
// after the clip name, keyframes and bind pose, so they may override them.
//
// Parameters:
//   - clip: the clip to play
//   - options: additional AnimationBuilderOption functions
//
// Returns:
//   - animation.Animation: the new animation
func (r *Rig) NewAnimation(clip *Clip, options ...animation.AnimationBuilderOption) animation.Animation {
	opts := append([]animation.AnimationBuilderOption{
		animation.WithName(clip.Name),
		animation.WithKeyframes(clip.Keyframes),
		animation.WithBindPose(r.BindPose),
	}, options...)
	return animation.NewAnimation(opts...)
}

// Clip is a named keyframe sequence. Every keyframe pose shares the rig's bind pose topology and
// the first keyframe is at time zero.
type Clip struct {
	Name      string
	Keyframes []animation.Frame
}

// Duration returns the time of the last keyframe.
func (c *Clip) Duration() float64 {
	if len(c.Keyframes) == 0 {
		return 0
	}
	return c.Keyframes[len(c.Keyframes)-1].Time
}
