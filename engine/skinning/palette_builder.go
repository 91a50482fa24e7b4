package skinning

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/cogentcore/webgpu/wgpu"
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst

// PaletteBuilderOption is a functional option for configuring a Palette during construction.
type PaletteBuilderOption func(*paletteImpl)

// WithLabel is an option builder that sets the debug label of the default provider.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - PaletteBuilderOption: a function that applies the label option to a palette
func WithLabel(label string) PaletteBuilderOption {
	return func(p *paletteImpl) {
		p.label = label
	}
}

// WithJointOrder is an option builder that sets the palette order, typically the skin's joint
// list so palette indices match vertex joint indices.
//
// Parameters:
//   - order: the joints in palette order
//
// Returns:
//   - PaletteBuilderOption: a function that applies the joint order option to a palette
func WithJointOrder(order []hierarchy.Handle) PaletteBuilderOption {
	return func(p *paletteImpl) {
		p.order = append([]hierarchy.Handle(nil), order...)
	}
}

// WithProvider is an option builder that places the palette buffer on an existing provider at
// the given binding.
//
// Parameters:
//   - provider: the bind group provider
//   - binding: the binding index of the palette buffer
//
// Returns:
//   - PaletteBuilderOption: a function that applies the provider option to a palette
func WithProvider(provider bind_group_provider.BindGroupProvider, binding int) PaletteBuilderOption {
	return func(p *paletteImpl) {
		p.provider = provider
		p.binding = binding
	}
}
