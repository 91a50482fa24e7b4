package loader

import (
	"fmt"
	"log"
	"slices"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfTrack is one animated property of one joint.
type gltfTrack struct {
	joint hierarchy.Handle
	path  string
	step  bool
	times []float32
	vecs  [][3]float32
	quats [][4]float32
}

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor converts glTF animations into keyframe clips for a rig.
//
// glTF animates each joint property on its own timeline. A clip keyframe is produced at every
// distinct timestamp of any channel, holding the rig's bind pose with every channel sampled at
// that time, so all keyframes share the rig topology. Keyframe times are shifted so the first is
// zero.
type gltfAnimationExtractor interface {
	// ExtractClip extracts a single animation for a rig.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - rig: the rig whose bind pose seeds every keyframe
	//   - nodeToJoint: maps glTF node index to bind pose joint
	//
	// Returns:
	//   - *Clip: the clip, or nil if no channel targets the rig
	//   - error: error if extraction fails
	ExtractClip(animIndex int, rig *Rig, nodeToJoint map[int]hierarchy.Handle) (*Clip, error)

	// ExtractClipsForRig extracts every animation that targets at least one joint of the rig.
	// Animations yielding fewer than two keyframes are skipped.
	//
	// Parameters:
	//   - rig: the rig whose bind pose seeds every keyframe
	//   - nodeToJoint: maps glTF node index to bind pose joint
	//
	// Returns:
	//   - []*Clip: the extracted clips in document order
	//   - error: error if extraction fails
	ExtractClipsForRig(rig *Rig, nodeToJoint map[int]hierarchy.Handle) ([]*Clip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractClip(animIndex int, rig *Rig, nodeToJoint map[int]hierarchy.Handle) (*Clip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}

	anim := &doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	var tracks []gltfTrack
	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		h, ok := nodeToJoint[*ch.Target.Node]
		if !ok {
			continue
		}
		if ch.Target.Path == gltfAnimPathWeights {
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		track, err := e.readTrack(&anim.Samplers[ch.Sampler], h, ch.Target.Path)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: %w", name, i, err)
		}
		if len(track.times) > 0 {
			tracks = append(tracks, track)
		}
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	var times []float32
	for _, t := range tracks {
		times = append(times, t.times...)
	}
	slices.Sort(times)
	times = slices.Compact(times)

	start := times[0]
	keyframes := make([]animation.Frame, len(times))
	for i, t := range times {
		pose := rig.BindPose.Clone()
		for j := range tracks {
			tracks[j].apply(pose, t)
		}
		keyframes[i] = animation.Frame{Time: float64(t) - float64(start), Pose: pose}
	}

	return &Clip{Name: name, Keyframes: keyframes}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractClipsForRig(rig *Rig, nodeToJoint map[int]hierarchy.Handle) ([]*Clip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	var clips []*Clip
	for animIdx := range doc.Animations {
		clip, err := e.ExtractClip(animIdx, rig, nodeToJoint)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", animIdx, err)
		}
		if clip == nil {
			continue
		}
		if len(clip.Keyframes) < 2 {
			log.Printf("[Loader] skipping clip %q on rig %q: %d keyframe(s)", clip.Name, rig.Name, len(clip.Keyframes))
			continue
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// readTrack reads the times and values of a sampler. CUBICSPLINE outputs store an in-tangent,
// value and out-tangent per key; only the values are kept and they are sampled linearly.
func (e *gltfAnimationExtractorImpl) readTrack(sampler *gltfAnimSampler, h hierarchy.Handle, path string) (gltfTrack, error) {
	track := gltfTrack{
		joint: h,
		path:  path,
		step:  sampler.Interpolation == gltfAnimInterpolationStep,
	}
	cubic := sampler.Interpolation == gltfAnimInterpolationCubicSpline

	times, err := e.parser.ReadScalarAccessor(sampler.Input)
	if err != nil {
		return track, fmt.Errorf("failed to read timestamps: %w", err)
	}

	var count int
	switch path {
	case gltfAnimPathTranslation, gltfAnimPathScale:
		values, err := e.parser.ReadVec3Accessor(sampler.Output)
		if err != nil {
			return track, fmt.Errorf("failed to read %s values: %w", path, err)
		}
		if cubic {
			values = gltfSplineValues(values)
		}
		track.vecs = values
		count = len(values)
	case gltfAnimPathRotation:
		values, err := e.parser.ReadVec4Accessor(sampler.Output)
		if err != nil {
			return track, fmt.Errorf("failed to read rotation values: %w", err)
		}
		if cubic {
			values = gltfSplineValues(values)
		}
		track.quats = values
		count = len(values)
	default:
		return track, fmt.Errorf("unsupported target path %q", path)
	}

	track.times = times[:min(len(times), count)]
	return track, nil
}

// gltfSplineValues keeps the middle element of every (in-tangent, value, out-tangent) triple.
func gltfSplineValues[T any](triples []T) []T {
	out := make([]T, len(triples)/3)
	for i := range out {
		out[i] = triples[3*i+1]
	}
	return out
}

// apply samples the track at t and writes the result into the matching joint of pose.
func (tr *gltfTrack) apply(pose *joint.Pose, t float32) {
	i, factor := tr.segment(t)
	local := &pose.Joint(tr.joint).Local

	switch tr.path {
	case gltfAnimPathTranslation, gltfAnimPathScale:
		v := mgl32.Vec3(tr.vecs[i])
		if factor > 0 {
			v = joint.LerpVec3(v, mgl32.Vec3(tr.vecs[i+1]), factor)
		}
		if tr.path == gltfAnimPathTranslation {
			local.Translation = v
		} else {
			local.Scale = v
		}
	case gltfAnimPathRotation:
		q := common.QuatFromXYZW(tr.quats[i]).Normalize()
		if factor > 0 {
			q = joint.SlerpShortest(q, common.QuatFromXYZW(tr.quats[i+1]).Normalize(), factor)
		}
		local.Rotation = q
	}
}

// segment locates t on the track, returning the key at or before t and the blend toward the
// next key. Times outside the track clamp to the first or last key.
func (tr *gltfTrack) segment(t float32) (int, float32) {
	last := len(tr.times) - 1
	if t <= tr.times[0] {
		return 0, 0
	}
	if t >= tr.times[last] {
		return last, 0
	}
	i := sort.Search(len(tr.times), func(k int) bool { return tr.times[k] > t }) - 1
	if tr.step {
		return i, 0
	}
	span := tr.times[i+1] - tr.times[i]
	if span <= 0 {
		return i, 0
	}
	return i, (t - tr.times[i]) / span
}
