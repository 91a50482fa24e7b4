package bind_group_provider

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// descriptors describes the buffer each binding needs, keyed by binding index. The renderer
	// creates buffers from these.
	descriptors map[int]*wgpu.BufferDescriptor

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the renderer, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not initialized.
	bindGroup *wgpu.BindGroup
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]*wgpu.Buffer
}

// BindGroupProvider describes the storage buffers a component needs on the GPU and holds the
// handles once a renderer has created them.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider and declares each binding with Describe
//  2. The renderer creates a buffer per Descriptor and stores it with SetBuffer
//  3. Each frame the component stages BufferWrites against the provider
//  4. The renderer applies the writes to Buffer(binding) with queue writes
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Describe declares the buffer for a binding, replacing any previous declaration.
	// Buffer labels are derived from the provider label.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the buffer size in bytes
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - *wgpu.BufferDescriptor: the descriptor stored for the binding
	Describe(binding int, size uint64, usage wgpu.BufferUsage) *wgpu.BufferDescriptor

	// Descriptor returns the declared buffer descriptor for a binding, or nil.
	Descriptor(binding int) *wgpu.BufferDescriptor

	// Bindings returns the declared binding indices in ascending order.
	Bindings() []int

	// Validate checks that a write fits inside its binding's declared buffer.
	//
	// Parameters:
	//   - w: the staged write
	//
	// Returns:
	//   - error: an error naming the binding when the write is out of range or undeclared
	Validate(w BufferWrite) error

	// BindGroup returns the created bind group, or nil if GPU resources have not been initialized.
	BindGroup() *wgpu.BindGroup

	// SetBindGroup sets the bind group after GPU initialization.
	SetBindGroup(bg *wgpu.BindGroup)

	// Buffer returns the created buffer for a binding, or nil if it has not been initialized.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// SetBuffer stores the created buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf *wgpu.Buffer)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:       label,
		descriptors: make(map[int]*wgpu.BufferDescriptor),
		buffers:     make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Describe(binding int, size uint64, usage wgpu.BufferUsage) *wgpu.BufferDescriptor {
	d := &wgpu.BufferDescriptor{
		Label:            fmt.Sprintf("%s Buffer %d", p.label, binding),
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	}
	p.descriptors[binding] = d
	return d
}

func (p *bindGroupProvider) Descriptor(binding int) *wgpu.BufferDescriptor {
	return p.descriptors[binding]
}

func (p *bindGroupProvider) Bindings() []int {
	return slices.Sorted(maps.Keys(p.descriptors))
}

func (p *bindGroupProvider) Validate(w BufferWrite) error {
	d, ok := p.descriptors[w.Binding]
	if !ok {
		return fmt.Errorf("bind_group_provider: %s has no binding %d", p.label, w.Binding)
	}
	if w.Offset%4 != 0 {
		return fmt.Errorf("bind_group_provider: %s binding %d offset %d is not 4-byte aligned", p.label, w.Binding, w.Offset)
	}
	if end := w.Offset + uint64(len(w.Data)); end > d.Size {
		return fmt.Errorf("bind_group_provider: %s binding %d write ends at %d past size %d", p.label, w.Binding, end, d.Size)
	}
	return nil
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]*wgpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) Release() {
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}
