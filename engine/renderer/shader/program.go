package shader

import (
	"fmt"
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
)

// CullMode selects which triangle faces are discarded before rasterization.
type CullMode uint8

const (
	// CullBack discards back faces. This is the default.
	CullBack CullMode = iota
	// CullFront discards front faces.
	CullFront
	// CullNone rasterizes both faces.
	CullNone
)

// BlendMode selects how fragment output combines with the color target.
type BlendMode uint8

const (
	// BlendAlpha is standard alpha blending
	// (src-alpha, one-minus-src-alpha, add). This is the default.
	BlendAlpha BlendMode = iota
	// BlendNone disables blending entirely (opaque output). This is an
	// explicit setting, distinct from leaving the blend mode unspecified.
	BlendNone
)

// CompareFunction selects the depth test comparison.
type CompareFunction uint8

const (
	// CompareLess passes fragments closer than the stored depth. Default.
	CompareLess CompareFunction = iota
	// CompareLessEqual passes fragments at or closer than the stored depth.
	CompareLessEqual
	// CompareAlways passes every fragment.
	CompareAlways
)

// PipelineSettings carries the fixed-function state a shader program needs.
// The zero value is the default state: back-face culling, alpha blending,
// depth writes enabled, less depth comparison.
type PipelineSettings struct {
	CullMode     CullMode
	Blend        BlendMode
	DepthWrite   bool
	DepthCompare CompareFunction
}

// DefaultPipelineSettings returns the settings applied when a program leaves
// them unspecified.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		CullMode:     CullBack,
		Blend:        BlendAlpha,
		DepthWrite:   true,
		DepthCompare: CompareLess,
	}
}

// BufferSpec declares one custom GPU buffer binding of a shader program,
// bound in group 1 at the declared binding index. Data accepts a raw byte
// slice or a typed numeric slice ([]float32, []uint32, []int32); it is
// normalized to bytes before upload.
type BufferSpec struct {
	// Binding is the binding index within group 1.
	Binding uint32

	// Size is the GPU buffer size in bytes. When zero, the size of the
	// initial data is used.
	Size uint64

	// Data is the initial (and subsequently current) buffer contents.
	Data any
}

// Bytes normalizes the spec's current data to a byte slice.
//
// Returns:
//   - []byte: the normalized contents, nil when Data is nil
//   - error: error when Data has an unsupported type
func (b *BufferSpec) Bytes() ([]byte, error) {
	switch d := b.Data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return d, nil
	case []float32:
		return common.SliceToBytes(d), nil
	case []uint32:
		return common.SliceToBytes(d), nil
	case []int32:
		return common.SliceToBytes(d), nil
	default:
		return nil, fmt.Errorf("buffer binding %d: unsupported data type %T", b.Binding, b.Data)
	}
}

// ByteSize returns the GPU allocation size for the spec: the declared Size,
// or the length of the initial data when Size is zero.
func (b *BufferSpec) ByteSize() (uint64, error) {
	if b.Size != 0 {
		return b.Size, nil
	}
	data, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("buffer binding %d: neither size nor initial data given", b.Binding)
	}
	return uint64(len(data)), nil
}

// TextureSpec declares one custom texture binding of a shader program, bound
// in group 2. Each texture occupies two consecutive binding slots: the
// texture view at Binding and its sampler at Binding+1.
type TextureSpec struct {
	// Binding is the texture view's binding index within group 2.
	Binding uint32

	// TextureID names a texture registered with the renderer.
	TextureID string
}

// Program is a complete shader program description: WGSL source for both
// stages, the custom resource bindings, and the fixed-function settings.
// The id is the pipeline cache key; two programs with the same id must have
// identical binding layouts, because the cache never revalidates content.
type Program interface {
	// ID returns the stable cache key for this program.
	ID() string

	// VertexCode returns the WGSL vertex stage source.
	VertexCode() string

	// FragmentCode returns the WGSL fragment stage source.
	FragmentCode() string

	// Buffers returns the custom buffer specs (group 1).
	Buffers() []*BufferSpec

	// Textures returns the custom texture specs (group 2).
	Textures() []TextureSpec

	// Settings returns the fixed-function pipeline settings.
	Settings() PipelineSettings

	// SetBufferData replaces the current data of the custom buffer at the
	// given binding. The new contents reach the GPU on the next frame.
	//
	// Parameters:
	//   - binding: the group-1 binding index
	//   - data: the new contents ([]byte, []float32, []uint32, or []int32)
	//
	// Returns:
	//   - error: error when no buffer is declared at that binding
	SetBufferData(binding uint32, data any) error
}

// Provider is implemented by entity components that supply a shader program.
// The renderer discovers it under the well-known shader component key.
type Provider interface {
	Program() Program
}

type program struct {
	mu sync.Mutex

	id           string
	vertexCode   string
	fragmentCode string
	buffers      []*BufferSpec
	textures     []TextureSpec
	settings     PipelineSettings
}

var _ Program = &program{}

func (p *program) ID() string {
	return p.id
}

func (p *program) VertexCode() string {
	return p.vertexCode
}

func (p *program) FragmentCode() string {
	return p.fragmentCode
}

func (p *program) Buffers() []*BufferSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*BufferSpec, len(p.buffers))
	copy(out, p.buffers)
	return out
}

func (p *program) Textures() []TextureSpec {
	return p.textures
}

func (p *program) Settings() PipelineSettings {
	return p.settings
}

func (p *program) SetBufferData(binding uint32, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.buffers {
		if b.Binding == binding {
			b.Data = data
			return nil
		}
	}
	return fmt.Errorf("shader %s: no custom buffer declared at binding %d", p.id, binding)
}
