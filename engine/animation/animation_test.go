package animation

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func linear(i int) float32    { return float32(i) * 10 }
func quadratic(i int) float32 { return float32(i*i) * 10 }

// keys builds one keyframe per time; keyframe i places the "arm" joint at x = value(i).
func keys(value func(int) float32, times ...float64) []Frame {
	frames := make([]Frame, len(times))
	for i, t := range times {
		p := joint.NewPose("root", joint.IdentityTransform())
		local := joint.IdentityTransform()
		local.Translation = mgl32.Vec3{value(i), 0, 0}
		p.AddJoint(p.Root(), "arm", local)
		frames[i] = Frame{Time: t, Pose: p}
	}
	return frames
}

// armX returns the resolved model-space x of the "arm" joint.
func armX(tb testing.TB, p *joint.Pose) float64 {
	tb.Helper()
	h, ok := p.Find("arm")
	require.True(tb, ok)
	return float64(p.Joint(h).WorldPosition()[0])
}

func TestUpdate_FirstTickStartsClip(t *testing.T) {
	a := NewAnimation(WithName("walk"), WithKeyframes(keys(linear, 0, 1, 2)))
	require.True(t, a.Clock().PendingReset)

	out := a.Update(100, 0)
	require.NotNil(t, out)
	assert.Same(t, out, a.LastOutput())
	assert.Equal(t, 100.0, a.Clock().StartTime)
	assert.InDelta(t, 0, armX(t, out), eps)
	assert.False(t, a.Clock().PendingReset)
}

func TestUpdate_HalfwayBetweenFirstPair(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Update(100, 0)

	out := a.Update(100.5, 0.5)
	cur, next := a.KeyframeIndices()
	assert.Equal(t, 0, cur)
	assert.Equal(t, 1, next)
	assert.InDelta(t, 0.5, a.BlendFactor(), 1e-9)
	assert.InDelta(t, 5, armX(t, out), eps)
	assert.Equal(t, 0.5, a.Clock().DeltaTime)
}

func TestUpdate_AdvancesOneKeyframePerTick(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2, 3)))
	a.Update(0, 0)

	out := a.Update(1.5, 1.5)
	cur, next := a.KeyframeIndices()
	assert.Equal(t, [2]int{1, 2}, [2]int{cur, next})
	assert.InDelta(t, 15, armX(t, out), eps)

	a.Reset()
	a.Update(10, 0)
	// A jump across two boundaries moves the pair by one step only and extrapolates.
	a.Update(12.5, 2.5)
	cur, next = a.KeyframeIndices()
	assert.Equal(t, [2]int{1, 2}, [2]int{cur, next})
	assert.InDelta(t, 1.5, a.BlendFactor(), 1e-9)
}

func TestUpdate_OvershootOnLastTickThenReset(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Update(0, 0)
	a.Update(1.5, 1.5)

	// The tick that passes the end still blends the last pair, extrapolating past it.
	out := a.Update(2.5, 1)
	cur, next := a.KeyframeIndices()
	assert.Equal(t, [2]int{1, 2}, [2]int{cur, next})
	assert.InDelta(t, 1.5, a.BlendFactor(), 1e-9)
	assert.InDelta(t, 25, armX(t, out), eps)
	assert.True(t, a.Clock().PendingReset)

	out = a.Update(2.6, 0.1)
	cur, next = a.KeyframeIndices()
	assert.Equal(t, [2]int{0, 1}, [2]int{cur, next})
	assert.Equal(t, 2.6, a.Clock().StartTime)
	assert.InDelta(t, 0, a.BlendFactor(), 1e-9)
	assert.InDelta(t, 0, armX(t, out), eps)
}

func TestUpdate_ReachingDurationArmsReset(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Update(0, 0)
	a.Update(1.5, 1.5)

	out := a.Update(2, 0.5)
	assert.True(t, a.Clock().PendingReset)
	assert.InDelta(t, 1, a.BlendFactor(), 1e-9)
	assert.InDelta(t, 20, armX(t, out), eps)
}

func TestUpdate_SpeedScalesTime(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)), WithSpeed(2))
	a.Update(0, 0)
	a.Update(0.25, 0.25)
	assert.InDelta(t, 0.5, a.Clock().ScaledTime, 1e-9)
	assert.InDelta(t, 0.5, a.BlendFactor(), 1e-9)

	a.SetSpeed(0.5)
	assert.Equal(t, 0.5, a.Speed())
}

func TestUpdate_PausedReturnsIdenticalPose(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Update(0, 0)
	a.Update(0.25, 0.25)

	a.Pause()
	require.True(t, a.Paused())
	first := a.Update(5, 4.75)
	h, _ := first.Find("arm")
	snapshot := *first.Joint(h)

	second := a.Update(9, 4)
	assert.Same(t, first, second)
	assert.Equal(t, snapshot, *second.Joint(h))
	assert.Equal(t, 0.25, a.Clock().Elapsed)

	a.Resume()
	out := a.Update(9.5, 0.5)
	assert.InDelta(t, 0.75, a.Clock().Elapsed, 1e-9)
	assert.InDelta(t, 7.5, armX(t, out), eps)
}

func TestUpdate_PausedBeforeFirstOutputStillComputes(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Pause()

	out := a.Update(3, 0)
	require.NotNil(t, out)
	assert.InDelta(t, 0, armX(t, out), eps)
	assert.Same(t, out, a.Update(4, 1))
}

func TestUpdate_ComposesBindPose(t *testing.T) {
	frames := keys(linear, 0, 1)
	bind := frames[0].Pose.Clone()
	bh, _ := bind.Find("arm")
	bind.Joint(bh).Local.Translation = mgl32.Vec3{2, 0, 0}
	bind.ComputeInverseBind()

	a := NewAnimation(WithKeyframes(frames), WithBindPose(bind))
	assert.Same(t, bind, a.BindPose())
	a.Update(0, 0)
	out := a.Update(0.5, 0.5)

	h, _ := out.Find("arm")
	j := out.Joint(h)
	assert.Equal(t, bind.Joint(bh).InverseBind, j.InverseBind)
	assert.InDelta(t, 3, float64(j.Skin.Col(3)[0]), eps)
	assert.InDelta(t, 5, armX(t, out), eps)
}

func TestBake_SamplesAtQuantum(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	require.NoError(t, a.Bake(4))

	assert.Equal(t, 0.5, a.Quantum())
	frames := a.BakedFrames()
	require.Len(t, frames, 4)
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = f.Time
		assert.InDelta(t, f.Time*10, armX(t, f.Pose), eps, "frame %d resolved", i)
	}
	assert.Equal(t, []float64{0, 0.5, 1.0, 1.5}, times)
}

func TestBake_MatchesInterpolatedPlayback(t *testing.T) {
	frames := keys(quadratic, 0, 1, 2)
	a := NewAnimation(WithKeyframes(frames))
	require.NoError(t, a.Bake(4))

	b := NewAnimation(WithKeyframes(frames))
	b.Update(0, 0)
	live := b.Update(1.5, 1.5)
	assert.InDelta(t, armX(t, live), armX(t, a.BakedFrames()[3].Pose), eps)
}

func TestBake_CoarseSamplesCrossSeveralKeyframes(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(quadratic, 0, 1, 2, 3, 4, 5, 6)))
	require.NoError(t, a.Bake(2))

	frames := a.BakedFrames()
	require.Len(t, frames, 2)
	assert.Equal(t, 3.0, frames[1].Time)
	assert.InDelta(t, 90, armX(t, frames[1].Pose), eps)
}

func TestBake_ReplacesCache(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	require.NoError(t, a.Bake(4))
	first := a.BakedFrames()

	require.NoError(t, a.Bake(2))
	assert.Len(t, a.BakedFrames(), 2)
	assert.Equal(t, 1.0, a.Quantum())
	assert.Len(t, first, 4, "previous cache is not modified")
	assert.NotSame(t, first[0].Pose, a.BakedFrames()[0].Pose)
}

func TestBake_Errors(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1)))
	require.ErrorIs(t, a.Bake(0), ErrInvalidFrameCount)
	assert.Nil(t, a.BakedFrames())
	assert.Zero(t, a.Quantum())

	single := NewAnimation(WithKeyframes(keys(linear, 0)))
	require.ErrorIs(t, single.Bake(4), ErrTooFewKeyframes)
}

func TestBake_DoesNotMutateKeyframes(t *testing.T) {
	frames := keys(linear, 0, 1, 2)
	before := frames[1].Copy()

	a := NewAnimation(WithKeyframes(frames))
	require.NoError(t, a.Bake(8))
	a.Update(0, 0)
	a.Update(1.3, 1.3)

	assert.True(t, frames[1].Pose.ApproxEqual(before.Pose, 0))
}

func TestUpdate_BakedPlayback(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	require.NoError(t, a.Bake(4))
	a.SetType(TypeBaked)
	assert.Equal(t, TypeBaked, a.Type())

	a.Update(10, 0)
	assert.Equal(t, 0, a.BakedIndex())

	out := a.Update(10.74, 0.74)
	assert.Equal(t, 1, a.BakedIndex())
	assert.Same(t, a.BakedFrames()[1].Pose, out)
	assert.False(t, a.Clock().PendingReset)

	out = a.Update(12.1, 1.36)
	assert.Equal(t, 0, a.BakedIndex())
	assert.Same(t, a.BakedFrames()[0].Pose, out)
	assert.True(t, a.Clock().PendingReset)
}

func TestUpdate_BakedNegativeSpeedWraps(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)), WithSpeed(-1))
	require.NoError(t, a.Bake(4))
	a.SetType(TypeBaked)

	a.Update(10, 0)
	assert.Equal(t, 0, a.BakedIndex())

	var out *joint.Pose
	require.NotPanics(t, func() { out = a.Update(10.6, 0.6) })
	assert.Equal(t, 2, a.BakedIndex())
	assert.Same(t, a.BakedFrames()[2].Pose, out)

	require.NotPanics(t, func() { a.Update(13.1, 2.5) })
	assert.Equal(t, 1, a.BakedIndex())
}

func TestUpdate_BakedWithoutBakePanics(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1)), WithType(TypeBaked))
	assert.Panics(t, func() { a.Update(0, 0) })
}

func TestBake_WhileBakedRetargetsPlayback(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)), WithType(TypeBaked))
	require.NoError(t, a.Bake(4))
	a.Update(0, 0)
	out := a.Update(0.5, 0.5)
	assert.Same(t, a.BakedFrames()[1].Pose, out)
}

func TestSetType_ResetsKeyframePair(t *testing.T) {
	a := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	a.Update(0, 0)
	a.Update(1.5, 1.5)
	cur, next := a.KeyframeIndices()
	require.Equal(t, [2]int{1, 2}, [2]int{cur, next})

	a.SetType(TypeInterpolated)
	cur, next = a.KeyframeIndices()
	assert.Equal(t, [2]int{0, 1}, [2]int{cur, next})

	a.SetType(TypeBaked)
	cur, next = a.KeyframeIndices()
	assert.Equal(t, [2]int{0, 1}, [2]int{cur, next})
	assert.Equal(t, 0, a.BakedIndex())

	a.SetType(TypeInterpolated)
	assert.Equal(t, -1, a.BakedIndex())
}

func TestLoadBaked(t *testing.T) {
	src := NewAnimation(WithKeyframes(keys(linear, 0, 1, 2)))
	require.NoError(t, src.Bake(4))

	a := NewAnimation(
		WithKeyframes(keys(linear, 0, 1, 2)),
		WithBakedFrames(src.BakedFrames(), src.Quantum()),
		WithType(TypeBaked),
	)
	assert.Equal(t, 0.5, a.Quantum())
	a.Update(0, 0)
	assert.Same(t, src.BakedFrames()[0].Pose, a.Update(0.2, 0.2))

	require.ErrorIs(t, a.LoadBaked(nil, 0.5), ErrInvalidFrameCount)
	require.ErrorIs(t, a.LoadBaked(src.BakedFrames(), 0), ErrInvalidQuantum)
	assert.Equal(t, 0.5, a.Quantum(), "failed load keeps the previous cache")
}

func TestFrame_CopyIsDeep(t *testing.T) {
	f := keys(linear, 1)[0]
	cp := f.Copy()

	assert.Equal(t, f.Time, cp.Time)
	assert.NotSame(t, f.Pose, cp.Pose)
	h, _ := cp.Pose.Find("arm")
	cp.Pose.Joint(h).Local.Translation[0] = 99
	assert.InDelta(t, 0, f.Pose.Joint(h).Local.Translation[0], eps)

	assert.Nil(t, Frame{Time: 1}.Copy().Pose)
}

func TestParseType(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Type
	}{
		{"interpolated", TypeInterpolated},
		{"Baked", TypeBaked},
	} {
		got, err := ParseType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}

	_, err := ParseType("sampled")
	require.ErrorIs(t, err, ErrUnknownType)
}

func mustParse(tb testing.TB, s string) Type {
	tb.Helper()
	got, err := ParseType(s)
	require.NoError(tb, err)
	return got
}
