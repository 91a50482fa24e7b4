package skinning

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skeleton builds root -> spine -> head plus root -> tail, each one unit from its parent, with
// inverse bind matrices computed so every skinning matrix starts at identity.
func skeleton() (*joint.Pose, map[string]hierarchy.Handle) {
	offset := func(x, y float32) joint.Transform {
		t := joint.IdentityTransform()
		t.Translation = mgl32.Vec3{x, y, 0}
		return t
	}
	p := joint.NewPose("root", joint.IdentityTransform())
	h := map[string]hierarchy.Handle{"root": p.Root()}
	h["spine"] = p.AddJoint(p.Root(), "spine", offset(0, 1))
	h["head"] = p.AddJoint(h["spine"], "head", offset(0, 1))
	h["tail"] = p.AddJoint(p.Root(), "tail", offset(-1, 0))
	p.ComputeInverseBind()
	return p, h
}

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(b[i*4:]))
}

func TestGPUJointMatrix_Marshal(t *testing.T) {
	m := GPUJointMatrix{Skin: [16]float32(mgl32.Translate3D(1, 2, 3))}
	b := m.Marshal()

	require.Len(t, b, GPUJointMatrixSize)
	assert.Equal(t, GPUJointMatrixSize, m.Size())
	assert.Equal(t, float32(1), floatAt(b, 0))
	assert.Equal(t, float32(1), floatAt(b, 12))
	assert.Equal(t, float32(2), floatAt(b, 13))
	assert.Equal(t, float32(3), floatAt(b, 14))
	assert.Equal(t, float32(1), floatAt(b, 15))
}

func TestNewPalette_DescribesBufferAndStagesEverything(t *testing.T) {
	bind, _ := skeleton()
	p := NewPalette(bind, WithLabel("Hero Palette"))

	assert.Equal(t, 4, p.JointCount())
	d := p.Provider().Descriptor(p.Binding())
	require.NotNil(t, d)
	assert.Equal(t, uint64(4*GPUJointMatrixSize), d.Size)
	assert.Equal(t, storageUsage, d.Usage)
	assert.Equal(t, "Hero Palette", p.Provider().Label())

	ident := [16]float32(mgl32.Ident4())
	for _, m := range p.Matrices() {
		assert.InDeltaSlice(t, ident[:], m.Skin[:], 1e-5)
	}

	writes := p.Stage(nil)
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Equal(t, p.Bytes(), writes[0].Data)
	require.NoError(t, p.Provider().Validate(writes[0]))

	assert.Empty(t, p.Stage(nil), "nothing changed since the last stage")
}

func TestPalette_StagesOnlyChangedRuns(t *testing.T) {
	bind, h := skeleton()
	p := NewPalette(bind)
	p.Stage(nil)

	pose := bind.Clone()
	pose.Joint(h["head"]).Local.Translation = mgl32.Vec3{0, 2, 0}
	pose.Resolve()
	p.Update(pose)

	// Pre-order is root, spine, head, tail: head is entry 2.
	writes := p.Stage(make([]bind_group_provider.BufferWrite, 0, 4))
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(2*GPUJointMatrixSize), writes[0].Offset)
	require.Len(t, writes[0].Data, GPUJointMatrixSize)
	assert.InDelta(t, 1, floatAt(writes[0].Data, 13), 1e-5, "head skin translates y by one")

	pose = bind.Clone()
	pose.Joint(h["root"]).Local.Translation = mgl32.Vec3{5, 0, 0}
	pose.Joint(h["tail"]).Local.Translation = mgl32.Vec3{-3, 0, 0}
	pose.Resolve()
	p.Update(pose)

	// Moving the root changes every entry, which coalesces into one write.
	writes = p.Stage(nil)
	require.Len(t, writes, 1)
	assert.Len(t, writes[0].Data, 4*GPUJointMatrixSize)
	for _, w := range writes {
		require.NoError(t, p.Provider().Validate(w))
	}
}

func TestPalette_SplitRuns(t *testing.T) {
	bind, h := skeleton()
	p := NewPalette(bind, WithJointOrder([]hierarchy.Handle{h["head"], h["spine"], h["tail"]}))
	p.Stage(nil)

	pose := bind.Clone()
	pose.Joint(h["head"]).Local.Rotation = mgl32.QuatRotate(0.5, mgl32.Vec3{0, 0, 1})
	pose.Joint(h["tail"]).Local.Scale = mgl32.Vec3{2, 2, 2}
	pose.Resolve()
	p.Update(pose)

	writes := p.Stage(nil)
	require.Len(t, writes, 2)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Len(t, writes[0].Data, GPUJointMatrixSize)
	assert.Equal(t, uint64(2*GPUJointMatrixSize), writes[1].Offset)
	assert.Len(t, writes[1].Data, GPUJointMatrixSize)
}

func TestPalette_JointOrderAndSharedProvider(t *testing.T) {
	bind, h := skeleton()
	provider := bind_group_provider.NewBindGroupProvider("Skinned Mesh", bind_group_provider.WithStorageBuffer(0, 256))
	p := NewPalette(bind,
		WithJointOrder([]hierarchy.Handle{h["tail"], h["head"]}),
		WithProvider(provider, 3),
	)

	assert.Equal(t, 2, p.JointCount())
	assert.Equal(t, []int{0, 3}, provider.Bindings())
	assert.Equal(t, uint64(2*GPUJointMatrixSize), provider.Descriptor(3).Size)

	pose := bind.Clone()
	pose.Joint(h["tail"]).Local.Translation = mgl32.Vec3{-1, 4, 0}
	pose.Resolve()
	p.Update(pose)

	assert.InDelta(t, 4, p.Matrices()[0].Skin[13], 1e-5)
	assert.InDelta(t, 0, p.Matrices()[1].Skin[13], 1e-5)
	writes := p.Stage(nil)
	require.Len(t, writes, 1)
	assert.Equal(t, 3, writes[0].Binding)
	assert.Same(t, provider, writes[0].Provider)
}

func TestPalette_UpdateForeignPosePanics(t *testing.T) {
	bind, _ := skeleton()
	p := NewPalette(bind)
	assert.Panics(t, func() { p.Update(joint.NewPose("solo", joint.IdentityTransform())) })
}
