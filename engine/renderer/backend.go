package renderer

import (
	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

// BackendType identifies the GPU backend implementation used by the Renderer.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU BackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8
)

// Buffer is an opaque GPU buffer handle owned by a Backend.
type Buffer interface {
	Release()
}

// Texture is an opaque GPU texture handle owned by a Backend.
type Texture interface {
	Release()
}

// Pipeline is an opaque compiled GPU pipeline handle owned by a Backend.
type Pipeline interface {
	Release()
}

// BindingSet is an opaque GPU resource-binding-set handle owned by a Backend.
type BindingSet interface {
	Release()
}

// ScenePipelineDescriptor describes one scene render pipeline compile:
// WGSL sources, fixed-function settings, and the shape of the custom binding
// groups so the backend can derive the pipeline layout.
type ScenePipelineDescriptor struct {
	// Label names the pipeline in debug output.
	Label string

	// VertexCode and FragmentCode are the WGSL stage sources.
	VertexCode   string
	FragmentCode string

	// Settings are the fixed-function pipeline settings.
	Settings shader.PipelineSettings

	// CustomBuffers lists the group-1 uniform buffer binding indices.
	CustomBuffers []uint32

	// CustomTextures lists the group-2 texture binding indices. Each texture
	// also claims the following binding index for its sampler.
	CustomTextures []uint32
}

// PostPipelineDescriptor describes one post-processing pipeline compile. The
// vertex stage is always the built-in full-screen triangle.
type PostPipelineDescriptor struct {
	// Label names the pipeline in debug output.
	Label string

	// FragmentCode is the WGSL fragment stage source.
	FragmentCode string

	// NeedsSceneTexture adds the original scene render as a third group-0
	// binding after the input sampler and input texture.
	NeedsSceneTexture bool

	// CustomBuffers lists the group-1 uniform buffer binding indices.
	CustomBuffers []uint32
}

// SceneResources are the concrete GPU resources bound as a scene pipeline's
// default binding group (group 0): instance transforms at binding 0, the
// camera uniform at binding 1, the backend's default sampler at binding 2,
// the diffuse texture at binding 3, and the globals uniform at binding 4.
type SceneResources struct {
	Transforms Buffer
	Camera     Buffer
	Diffuse    Texture
	Globals    Buffer
}

// BufferBinding pairs a group-local binding index with a buffer.
type BufferBinding struct {
	Binding uint32
	Buffer  Buffer
}

// TextureBinding pairs a group-local binding index with a texture. The
// texture's sampler is bound at Binding+1.
type TextureBinding struct {
	Binding uint32
	Texture Texture
}

// Backend is the narrow GPU interface the Renderer drives. The wgpu
// implementation is the production backend; tests substitute a recording
// fake. All methods are single-frame, single-goroutine operations unless
// noted.
type Backend interface {
	// ConfigureSurface (re)configures the swapchain, depth and MSAA targets,
	// and the post-processing ping-pong textures for the given pixel size.
	ConfigureSurface(width, height int)

	// SetPresentMode selects the presentation mode. Takes effect on the next
	// ConfigureSurface call.
	SetPresentMode(mode PresentMode)

	// SetMSAA selects the multisample count. Takes effect on the next
	// ConfigureSurface call.
	SetMSAA(count MSAASampleCount)

	// CreateVertexBuffer allocates an immutable vertex buffer holding data.
	CreateVertexBuffer(label string, data []byte) (Buffer, error)

	// CreateIndexBuffer allocates an immutable uint32 index buffer holding data.
	CreateIndexBuffer(label string, data []byte) (Buffer, error)

	// CreateStorageBuffer allocates a writable storage buffer of the given size.
	CreateStorageBuffer(label string, size uint64) (Buffer, error)

	// CreateUniformBuffer allocates a writable uniform buffer of the given size.
	CreateUniformBuffer(label string, size uint64) (Buffer, error)

	// WriteBuffer uploads data into buf starting at the given byte offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte)

	// CreateTexture uploads RGBA staging data into a new sampled texture.
	CreateTexture(label string, data *common.TextureStagingData) (Texture, error)

	// CompileScenePipeline compiles one scene render pipeline.
	CompileScenePipeline(desc ScenePipelineDescriptor) (Pipeline, error)

	// CompilePostPipeline compiles one post-processing pipeline.
	CompilePostPipeline(desc PostPipelineDescriptor) (Pipeline, error)

	// CreateSceneBindings builds the group-0 binding set for a scene pipeline.
	CreateSceneBindings(p Pipeline, res SceneResources) (BindingSet, error)

	// CreateBufferBindings builds a binding set of uniform buffers for the
	// given group of a pipeline.
	CreateBufferBindings(p Pipeline, group uint32, buffers []BufferBinding) (BindingSet, error)

	// CreateTextureBindings builds a binding set of texture/sampler pairs
	// for the given group of a pipeline.
	CreateTextureBindings(p Pipeline, group uint32, textures []TextureBinding) (BindingSet, error)

	// BeginFrame acquires the swapchain texture and opens the scene render
	// pass. With offscreen set, the scene renders into an intermediate
	// texture that the post-processing chain consumes.
	BeginFrame(offscreen bool) error

	// SetPipeline binds a scene pipeline on the open scene pass.
	SetPipeline(p Pipeline)

	// SetBindingSet binds a binding set at the given group index.
	SetBindingSet(group uint32, set BindingSet)

	// SetMesh binds a mesh's vertex and index buffers.
	SetMesh(vertex, index Buffer)

	// DrawIndexed encodes one instanced draw on the open scene pass.
	DrawIndexed(indexCount, instanceCount, firstInstance uint32)

	// EndScenePass closes the scene render pass. Post passes may follow.
	EndScenePass()

	// RunPostPass executes one full-screen pass reading the previous pass's
	// output (or the scene texture for the first pass). With needsScene set,
	// the untouched scene render is bound as a second input. With final set,
	// the pass writes to the swapchain instead of a ping-pong target.
	RunPostPass(p Pipeline, custom BindingSet, needsScene, final bool) error

	// EndFrame submits the frame's command buffer and presents.
	EndFrame()
}
