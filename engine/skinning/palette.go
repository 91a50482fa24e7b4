// Package skinning turns resolved poses into the joint matrix palette a skinning shader reads,
// and stages the palette for upload as buffer writes.
package skinning

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
)

// paletteImpl is the implementation of the Palette interface.
type paletteImpl struct {
	label    string
	order    []hierarchy.Handle
	matrices []GPUJointMatrix
	dirty    []bool

	provider bind_group_provider.BindGroupProvider
	binding  int
}

// Palette is the skinning matrix palette of one skeleton.
//
// Entries follow the palette order: the skin's joint order when given, otherwise the bind pose
// pre-order. Every pose passed to Update must share the bind pose topology, which holds for poses
// cloned from it such as keyframes, blended outputs and baked frames.
type Palette interface {
	// JointCount returns the number of palette entries.
	JointCount() int

	// Update copies the skinning matrices of a resolved pose into the palette and marks the
	// entries that changed.
	//
	// Parameters:
	//   - pose: a resolved pose on the bind pose topology
	Update(pose *joint.Pose)

	// Matrices returns the palette entries. The slice is owned by the Palette.
	Matrices() []GPUJointMatrix

	// Bytes returns the whole palette serialized for upload.
	Bytes() []byte

	// Stage appends buffer writes for the entries changed since the last Stage, coalescing
	// adjacent entries into one write, and clears the change marks. The first Stage writes the
	// whole palette.
	//
	// Parameters:
	//   - writes: the slice to append to, typically a reused frame buffer
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the extended slice
	Stage(writes []bind_group_provider.BufferWrite) []bind_group_provider.BufferWrite

	// Provider returns the bind group provider that describes the palette buffer.
	Provider() bind_group_provider.BindGroupProvider

	// Binding returns the palette's binding index on the provider.
	Binding() int
}

var _ Palette = &paletteImpl{}

// NewPalette creates a palette for the skeleton of bind, initialized from its skinning matrices,
// and declares a storage buffer of JointCount()*64 bytes on its provider.
//
// Parameters:
//   - bind: the bind pose
//   - options: variadic list of PaletteBuilderOption functions to configure the Palette
//
// Returns:
//   - Palette: the new palette
func NewPalette(bind *joint.Pose, options ...PaletteBuilderOption) Palette {
	p := &paletteImpl{label: "Joint Palette"}
	for _, opt := range options {
		opt(p)
	}
	if p.order == nil {
		for h := range bind.Joints() {
			p.order = append(p.order, h)
		}
	}
	p.matrices = make([]GPUJointMatrix, len(p.order))
	p.dirty = make([]bool, len(p.order))
	if p.provider == nil {
		p.provider = bind_group_provider.NewBindGroupProvider(p.label)
	}
	p.provider.Describe(p.binding, uint64(len(p.order)*GPUJointMatrixSize), storageUsage)

	p.Update(bind)
	for i := range p.dirty {
		p.dirty[i] = true
	}
	return p
}

func (p *paletteImpl) JointCount() int {
	return len(p.order)
}

func (p *paletteImpl) Update(pose *joint.Pose) {
	for i, h := range p.order {
		if !pose.Tree().Valid(h) {
			panic(fmt.Sprintf("skinning: joint %d of %s is not in the pose", i, p.label))
		}
		skin := [16]float32(pose.Joint(h).Skin)
		if p.matrices[i].Skin != skin {
			p.matrices[i].Skin = skin
			p.dirty[i] = true
		}
	}
}

func (p *paletteImpl) Matrices() []GPUJointMatrix {
	return p.matrices
}

func (p *paletteImpl) Bytes() []byte {
	buf := make([]byte, 0, len(p.matrices)*GPUJointMatrixSize)
	for i := range p.matrices {
		buf = p.matrices[i].appendTo(buf)
	}
	return buf
}

func (p *paletteImpl) Stage(writes []bind_group_provider.BufferWrite) []bind_group_provider.BufferWrite {
	for i := 0; i < len(p.dirty); {
		if !p.dirty[i] {
			i++
			continue
		}
		start := i
		var data []byte
		for ; i < len(p.dirty) && p.dirty[i]; i++ {
			data = p.matrices[i].appendTo(data)
			p.dirty[i] = false
		}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: p.provider,
			Binding:  p.binding,
			Offset:   uint64(start * GPUJointMatrixSize),
			Data:     data,
		})
	}
	return writes
}

func (p *paletteImpl) Provider() bind_group_provider.BindGroupProvider {
	return p.provider
}

func (p *paletteImpl) Binding() int {
	return p.binding
}
