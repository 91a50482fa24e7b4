package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithStorageBuffer declares a storage buffer that can be written from the CPU.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - size: the buffer size in bytes
//
// Returns:
//   - BindGroupProviderOption: a function that declares the buffer for the specified binding
func WithStorageBuffer(binding int, size uint64) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.Describe(binding, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	}
}

// WithBuffer sets an already created buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
