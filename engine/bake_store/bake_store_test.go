package bake_store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// rig builds a root with an "arm" joint one unit along x, with inverse bind matrices computed.
func rig(armName string) *joint.Pose {
	p := joint.NewPose("root", joint.IdentityTransform())
	local := joint.IdentityTransform()
	local.Translation = mgl32.Vec3{1, 0, 0}
	p.AddJoint(p.Root(), armName, local)
	p.ComputeInverseBind()
	return p
}

// bakedWalk bakes a clip that swings the arm from x=0 to x=30 and rotates it about z.
func bakedWalk(t *testing.T, bind *joint.Pose, frameCount int) animation.Animation {
	t.Helper()
	frames := make([]animation.Frame, 4)
	for i := range frames {
		p := bind.Clone()
		h, _ := p.Find("arm")
		p.Joint(h).Local.Translation = mgl32.Vec3{float32(i) * 10, 0, 0}
		p.Joint(h).Local.Rotation = mgl32.QuatRotate(float32(i)*0.3, mgl32.Vec3{0, 0, 1})
		frames[i] = animation.Frame{Time: float64(i), Pose: p}
	}
	a := animation.NewAnimation(animation.WithName("walk"), animation.WithKeyframes(frames), animation.WithBindPose(bind))
	require.NoError(t, a.Bake(frameCount))
	return a
}

// walkSource stands in for the keyframe signature in tests that do not exercise it.
const walkSource = "walk-keys"

func openTempStore(t *testing.T, options ...StoreBuilderOption) Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bakes.db"), options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func requireFramesMatch(t *testing.T, want, got []animation.Frame) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Time, got[i].Time)
		require.True(t, want[i].Pose.ApproxEqual(got[i].Pose, 1e-6), "frame %d locals", i)
		wh, _ := want[i].Pose.Find("arm")
		gh, _ := got[i].Pose.Find("arm")
		ws, gs := want[i].Pose.Joint(wh).Skin, got[i].Pose.Joint(gh).Skin
		for k := range ws {
			require.InDelta(t, ws[k], gs[k], 1e-5, "frame %d skin[%d]", i, k)
		}
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	bind := rig("arm")
	a := bakedWalk(t, bind, 6)
	s := openTempStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "walk", walkSource, a.Quantum(), a.BakedFrames()))

	frames, quantum, err := s.Load(ctx, "walk", walkSource, bind)
	require.NoError(t, err)
	assert.Equal(t, a.Quantum(), quantum)
	requireFramesMatch(t, a.BakedFrames(), frames)

	loaded := animation.NewAnimation(animation.WithKeyframes(a.Keyframes()), animation.WithBakedFrames(frames, quantum), animation.WithType(animation.TypeBaked))
	played := loaded.Update(0, 0)
	assert.True(t, played.ApproxEqual(a.BakedFrames()[0].Pose, 1e-6))
}

func TestSave_ReplacesPreviousBake(t *testing.T) {
	bind := rig("arm")
	s := openTempStore(t, WithClock(func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) }))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "walk", walkSource, 0.5, bakedWalk(t, bind, 6).BakedFrames()))
	short := bakedWalk(t, bind, 2)
	require.NoError(t, s.Save(ctx, "walk", walkSource, short.Quantum(), short.BakedFrames()))

	frames, quantum, err := s.Load(ctx, "walk", walkSource, bind)
	require.NoError(t, err)
	assert.Equal(t, 1.5, quantum)
	requireFramesMatch(t, short.BakedFrames(), frames)

	clips, err := s.Clips(ctx)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, ClipInfo{
		Name:       "walk",
		Source:     walkSource,
		Quantum:    1.5,
		FrameCount: 2,
		JointCount: 2,
		UpdatedAt:  time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}, clips[0])
}

func TestClips_OrderedByName(t *testing.T) {
	bind := rig("arm")
	frames := bakedWalk(t, bind, 3).BakedFrames()
	s := openTempStore(t)
	ctx := context.Background()

	for _, name := range []string{"walk", "idle", "run"} {
		require.NoError(t, s.Save(ctx, name, walkSource, 1, frames))
	}
	clips, err := s.Clips(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range clips {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"idle", "run", "walk"}, names)
}

func TestDelete(t *testing.T) {
	bind := rig("arm")
	s := openTempStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Delete(ctx, "walk"), ErrNotFound)
	require.NoError(t, s.Save(ctx, "walk", walkSource, 1, bakedWalk(t, bind, 3).BakedFrames()))
	require.NoError(t, s.Delete(ctx, "walk"))

	_, _, err := s.Load(ctx, "walk", walkSource, bind)
	require.ErrorIs(t, err, ErrNotFound)
	clips, err := s.Clips(ctx)
	require.NoError(t, err)
	assert.Empty(t, clips)
}

func TestLoad_Errors(t *testing.T) {
	bind := rig("arm")
	s := openTempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "walk", walkSource, 1, bakedWalk(t, bind, 3).BakedFrames()))

	_, _, err := s.Load(ctx, "missing", walkSource, bind)
	require.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Load(ctx, "walk", walkSource, rig("leg"))
	require.ErrorIs(t, err, ErrTopologyMismatch)

	_, _, err = s.Load(ctx, "walk", walkSource, nil)
	require.ErrorIs(t, err, ErrInvalidClip)

	_, err = s.(*storeImpl).db.ExecContext(ctx, `UPDATE baked_frames SET data = x'0000' WHERE idx = 1`)
	require.NoError(t, err)
	_, _, err = s.Load(ctx, "walk", walkSource, bind)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestLoad_StaleSource(t *testing.T) {
	bind := rig("arm")
	a := bakedWalk(t, bind, 4)
	s := openTempStore(t)
	ctx := context.Background()

	source := Signature(a.Keyframes())
	require.NoError(t, s.Save(ctx, "walk", source, a.Quantum(), a.BakedFrames()))

	_, _, err := s.Load(ctx, "walk", source, bind)
	require.NoError(t, err)

	_, _, err = s.Load(ctx, "walk", "other-keys", bind)
	require.ErrorIs(t, err, ErrStale)
}

func TestSignature(t *testing.T) {
	bind := rig("arm")
	keys := bakedWalk(t, bind, 2).Keyframes()
	sig := Signature(keys)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Signature(bakedWalk(t, bind, 5).Keyframes()), "independent of the bake")

	moved := make([]animation.Frame, len(keys))
	for i, f := range keys {
		moved[i] = f.Copy()
	}
	h, _ := moved[2].Pose.Find("arm")
	moved[2].Pose.Joint(h).Local.Translation[0] += 1
	assert.NotEqual(t, sig, Signature(moved))

	retimed := make([]animation.Frame, len(keys))
	for i, f := range keys {
		retimed[i] = f.Copy()
		retimed[i].Time *= 2
	}
	assert.NotEqual(t, sig, Signature(retimed))

	renamed := append([]animation.Frame(nil), keys...)
	renamed[0] = animation.Frame{Time: keys[0].Time, Pose: rig("leg")}
	assert.NotEqual(t, sig, Signature(renamed))
}

func TestOpen_MigratesSourceColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	ctx := context.Background()
	s, err := Open(ctx, path)
	require.NoError(t, err)
	db := s.(*storeImpl).db
	_, err = db.ExecContext(ctx, `DROP TABLE baked_clips`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE baked_clips (
		name TEXT PRIMARY KEY, quantum REAL NOT NULL, frame_count INTEGER NOT NULL,
		joint_names TEXT NOT NULL, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO baked_clips VALUES ('walk', 1, 3, 'root'||char(10)||'arm', 0)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	_, _, err = s.Load(ctx, "walk", walkSource, rig("arm"))
	require.ErrorIs(t, err, ErrStale)
	clips, err := s.Clips(ctx)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Empty(t, clips[0].Source)
}

func TestSave_Validation(t *testing.T) {
	bind := rig("arm")
	good := bakedWalk(t, bind, 2).BakedFrames()
	other := joint.NewPose("solo", joint.IdentityTransform())
	s := openTempStore(t)
	ctx := context.Background()

	cases := map[string]struct {
		clip    string
		quantum float64
		frames  []animation.Frame
	}{
		"empty name":     {"", 1, good},
		"zero quantum":   {"walk", 0, good},
		"no frames":      {"walk", 1, nil},
		"nil pose":       {"walk", 1, []animation.Frame{{Time: 0}}},
		"mixed topology": {"walk", 1, []animation.Frame{good[0], {Time: 1, Pose: other}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Save(ctx, tc.clip, walkSource, tc.quantum, tc.frames), ErrInvalidClip)
		})
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	bind := rig("arm")
	a := bakedWalk(t, bind, 4)
	path := filepath.Join(t.TempDir(), "bakes.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "walk", walkSource, a.Quantum(), a.BakedFrames()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	frames, _, err := s.Load(ctx, "walk", walkSource, bind)
	require.NoError(t, err)
	requireFramesMatch(t, a.BakedFrames(), frames)
}

func TestStore_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	bind := rig("arm")
	s := openTempStore(t, WithTracer(tp.Tracer("test")))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "walk", walkSource, 1, bakedWalk(t, bind, 3).BakedFrames()))
	_, _, err := s.Load(ctx, "missing", walkSource, bind)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "bake_store.Save", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "bake_store.Load", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
