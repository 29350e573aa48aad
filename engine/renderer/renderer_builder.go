package renderer

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/batch"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/postprocess"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
	"github.com/Cultered/Webcraft-sub001/engine/window"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*sceneRenderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x) are adapter-dependent and may not be supported by
// all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, or MSAA8x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for benchmarking CPU vs GPU rendering performance.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.forceFallbackAdapter = force
	}
}

// WithBackend injects a pre-built Backend, bypassing device creation.
// Intended for tests that substitute a recording backend.
//
// Parameters:
//   - b: the backend to render through
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(b Backend) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.backend = b
	}
}

// WithMeshStore shares an existing mesh store with the renderer instead of
// the process-wide default store.
//
// Parameters:
//   - store: the mesh store to validate batches against
//
// Returns:
//   - RendererBuilderOption: a function that applies the mesh store option to a renderer
func WithMeshStore(store mesh.Store) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.meshes = store
	}
}

// WithFieldOfView sets the vertical field of view in radians. Default is 60 degrees.
//
// Parameters:
//   - fov: vertical field of view in radians
//
// Returns:
//   - RendererBuilderOption: a function that applies the field of view option to a renderer
func WithFieldOfView(fov float32) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.fov = fov
	}
}

// WithClipPlanes sets the near and far clip plane distances. Defaults are 0.1 and 1000.
//
// Parameters:
//   - near: near clip plane distance
//   - far: far clip plane distance
//
// Returns:
//   - RendererBuilderOption: a function that applies the clip plane option to a renderer
func WithClipPlanes(near, far float32) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.near = near
		r.far = far
	}
}

// WithBatchWorkers sets the worker count of the transform-packing pool.
// Default is 4.
//
// Parameters:
//   - workers: number of concurrent packing workers
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker count option to a renderer
func WithBatchWorkers(workers int) RendererBuilderOption {
	return func(r *sceneRenderer) {
		r.batchWorkers = workers
	}
}

// NewRenderer creates a Renderer bound to the given window surface. Device
// and surface initialization failures panic: a renderer that cannot reach
// the GPU has no degraded mode to fall back to.
//
// Parameters:
//   - backendType: the graphics backend to initialize (BackendTypeWGPU)
//   - win: the window providing the presentation surface
//   - options: optional configuration (present mode, MSAA, projection, workers)
//
// Returns:
//   - Renderer: the initialized renderer with the default pipeline compiled
func NewRenderer(backendType BackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &sceneRenderer{
		meshes:        mesh.DefaultStore(),
		chain:         postprocess.NewChain(),
		gpuMeshes:     make(map[string]*gpuMesh),
		textures:      make(map[string]Texture),
		pipelines:     make(map[string]*pipelineEntry),
		postPipelines: make(map[string]*postEntry),
		fov:           math32.Pi / 3,
		near:          0.1,
		far:           1000,
		batchWorkers:  4,
	}
	for _, opt := range options {
		opt(r)
	}

	r.batcher = batch.NewEngine(r.meshes, r.batchWorkers)

	if r.backend == nil {
		if backendType != BackendTypeWGPU {
			panic(fmt.Sprintf("renderer: unsupported backend type %d", backendType))
		}
		if win == nil {
			panic("renderer: a window is required to create a surface")
		}
		backend, err := newWGPUBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
		if err != nil {
			panic(fmt.Sprintf("renderer: backend initialization failed: %v", err))
		}
		r.backend = backend
	}

	if r.pendingMSAA != nil {
		r.backend.SetMSAA(*r.pendingMSAA)
	}
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.width, r.height = 1280, 720
	if win != nil {
		r.width, r.height = win.Width(), win.Height()
	}
	r.backend.ConfigureSurface(r.width, r.height)

	var err error
	r.cameraBuf, err = r.backend.CreateUniformBuffer("camera", GPUCameraUniformSize)
	if err != nil {
		panic(fmt.Sprintf("renderer: camera buffer: %v", err))
	}
	r.globalsBuf, err = r.backend.CreateUniformBuffer("globals", GPUGlobalsUniformSize)
	if err != nil {
		panic(fmt.Sprintf("renderer: globals buffer: %v", err))
	}
	if _, err = r.ensureInstanceCapacity(initialInstanceCapacity); err != nil {
		panic(fmt.Sprintf("renderer: %v", err))
	}

	r.defaultDiffuse, err = r.backend.CreateTexture("default diffuse", solidTexture(255, 255, 255))
	if err != nil {
		panic(fmt.Sprintf("renderer: default diffuse texture: %v", err))
	}
	r.placeholder, err = r.backend.CreateTexture("missing texture placeholder", solidTexture(255, 0, 255))
	if err != nil {
		panic(fmt.Sprintf("renderer: placeholder texture: %v", err))
	}

	// Globals start with a usable overhead light so the default shader shows
	// shading before the first SetGlobals call.
	r.globals.LightDir = [3]float32{0.3, -1, 0.2}

	if err = r.EnsurePipeline(shader.Default()); err != nil {
		panic(fmt.Sprintf("renderer: default pipeline: %v", err))
	}
	return r
}

// solidTexture builds a 1x1 RGBA texture of a single color.
func solidTexture(red, green, blue byte) *common.TextureStagingData {
	return &common.TextureStagingData{
		Pixels: []byte{red, green, blue, 255},
		Width:  1,
		Height: 1,
	}
}
