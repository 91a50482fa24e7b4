package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
)

// Frame pins a pose to a point in time.
type Frame struct {
	// Time is the frame timestamp in seconds from the start of the clip.
	Time float64
	// Pose is the skeleton at Time.
	Pose *joint.Pose
}

// Copy returns a Frame with the same time and a deep copy of the pose.
func (f Frame) Copy() Frame {
	var p *joint.Pose
	if f.Pose != nil {
		p = f.Pose.Clone()
	}
	return Frame{Time: f.Time, Pose: p}
}
