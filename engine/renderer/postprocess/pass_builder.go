package postprocess

import "github.com/Cultered/Webcraft-sub001/engine/renderer/shader"

// PassBuilderOption is a functional option for configuring a Pass during construction.
type PassBuilderOption func(*pass)

// WithFragmentCode sets the WGSL fragment stage source of the pass.
//
// Parameters:
//   - code: the WGSL source
//
// Returns:
//   - PassBuilderOption: functional option to set the fragment code
func WithFragmentCode(code string) PassBuilderOption {
	return func(p *pass) {
		p.fragmentCode = code
	}
}

// WithBuffer declares a custom buffer binding in the pass's group 1.
//
// Parameters:
//   - binding: the binding index within group 1
//   - size: the GPU buffer size in bytes (0 to size from the initial data)
//   - data: the initial contents ([]byte, []float32, []uint32, or []int32)
//
// Returns:
//   - PassBuilderOption: functional option to add the buffer spec
func WithBuffer(binding uint32, size uint64, data any) PassBuilderOption {
	return func(p *pass) {
		p.buffers = append(p.buffers, &shader.BufferSpec{Binding: binding, Size: size, Data: data})
	}
}

// WithOrder sets the pass's sort key. Defaults to 0.
//
// Parameters:
//   - order: the ascending execution sort key
//
// Returns:
//   - PassBuilderOption: functional option to set the order
func WithOrder(order int) PassBuilderOption {
	return func(p *pass) {
		p.order = order
	}
}

// WithEnabled sets the initial enabled state. Passes default to enabled.
//
// Parameters:
//   - enabled: false to create the pass disabled
//
// Returns:
//   - PassBuilderOption: functional option to set the enabled state
func WithEnabled(enabled bool) PassBuilderOption {
	return func(p *pass) {
		p.enabled = enabled
	}
}

// WithSceneTexture marks the pass as consuming the original scene render as
// a second input texture, in addition to the previous pass's output.
//
// Returns:
//   - PassBuilderOption: functional option to request the scene texture
func WithSceneTexture() PassBuilderOption {
	return func(p *pass) {
		p.needsScene = true
	}
}

// NewPass creates a post-processing pass. Without options the pass is an
// enabled, order-0 passthrough copy of its input.
//
// Parameters:
//   - id: the pass identifier and pipeline cache key
//   - opts: variadic PassBuilderOption to configure the pass
//
// Returns:
//   - Pass: the configured pass
func NewPass(id string, opts ...PassBuilderOption) Pass {
	p := &pass{
		id:           id,
		fragmentCode: shader.PassthroughPostSource,
		enabled:      true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
