package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

// wgpuBuffer wraps a device buffer as a Backend handle.
type wgpuBuffer struct {
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Release() {
	b.buffer.Release()
}

// wgpuTexture wraps a sampled texture and its view as a Backend handle.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *wgpuTexture) Release() {
	t.view.Release()
	t.texture.Release()
}

// wgpuPipeline wraps a render pipeline together with the bind group layouts
// it was built from, indexed by group, so binding sets can be created later.
type wgpuPipeline struct {
	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
}

func (p *wgpuPipeline) Release() {
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.pipeline.Release()
}

// wgpuBindingSet wraps a bind group as a Backend handle.
type wgpuBindingSet struct {
	group *wgpu.BindGroup
}

func (s *wgpuBindingSet) Release() {
	s.group.Release()
}

// offscreenTarget is a render target that can also be sampled, used for the
// scene texture and the post-processing ping-pong pair.
type offscreenTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (t *offscreenTarget) release() {
	if t == nil {
		return
	}
	t.view.Release()
	t.texture.Release()
}

type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   MSAASampleCount
	width, height int

	// Surface-sized targets, rebuilt by ConfigureSurface.
	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
	sceneTarget  *offscreenTarget
	pingPong     [2]*offscreenTarget

	sceneSampler *wgpu.Sampler // repeat + linear, group 0 binding 2
	postSampler  *wgpu.Sampler // clamp-to-edge + linear, post input

	scenePassDescriptor *wgpu.RenderPassDescriptor

	// Frame state between BeginFrame and EndFrame.
	frameEncoder *wgpu.CommandEncoder
	scenePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Post-pass chaining state: the view the next pass samples from and the
	// ping-pong slot it writes to. Transient bind groups are released after
	// submission.
	postSource     *wgpu.TextureView
	postWriteIndex int
	transientSets  []*wgpu.BindGroup
}

var _ Backend = &wgpuBackend{}

// newWGPUBackend creates the WGPU instance, adapter, device and queue for the
// given surface. The calling goroutine is locked to its OS thread for the
// lifetime of the process, as required by the native windowing layer.
func newWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (Backend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("wgpu: nil surface descriptor")
	}
	runtime.LockOSThread()

	b := &wgpuBackend{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		sampleCount: MSAA4x,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	b.sceneSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Scene Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: scene sampler: %w", err)
	}
	b.postSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Post Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: post sampler: %w", err)
	}

	return b, nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.width, b.height = width, height

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseTargets()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result
		// lands in the per-frame ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTexture = msaaTexture
		b.msaaView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTexture = depthTexture
	b.depthView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// Sampleable targets: the scene texture the post chain reads from, plus
	// the ping-pong pair intermediate passes bounce between. Always single
	// sampled; MSAA is resolved into them.
	b.sceneTarget = b.createOffscreenTarget("Scene Texture")
	b.pingPong[0] = b.createOffscreenTarget("Post Target A")
	b.pingPong[1] = b.createOffscreenTarget("Post Target B")

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // resolved, not stored
	}
	b.scenePassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,        // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: 0.1, G: 0.1, B: 0.1, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuBackend) createOffscreenTarget(label string) *offscreenTarget {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(b.width),
			Height:             uint32(b.height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        *b.surfaceFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return &offscreenTarget{texture: tex, view: view}
}

func (b *wgpuBackend) releaseTargets() {
	if b.msaaView != nil {
		b.msaaView.Release()
		b.msaaTexture.Release()
		b.msaaView, b.msaaTexture = nil, nil
	}
	if b.depthView != nil {
		b.depthView.Release()
		b.depthTexture.Release()
		b.depthView, b.depthTexture = nil, nil
	}
	b.sceneTarget.release()
	b.pingPong[0].release()
	b.pingPong[1].release()
	b.sceneTarget, b.pingPong[0], b.pingPong[1] = nil, nil, nil
}

func (b *wgpuBackend) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuBackend) SetMSAA(count MSAASampleCount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleCount = count
}

func (b *wgpuBackend) CreateVertexBuffer(label string, data []byte) (Buffer, error) {
	return b.createInitializedBuffer(label+" Vertex Buffer", data, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
}

func (b *wgpuBackend) CreateIndexBuffer(label string, data []byte) (Buffer, error) {
	return b.createInitializedBuffer(label+" Index Buffer", data, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
}

func (b *wgpuBackend) createInitializedBuffer(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, data)
	return &wgpuBuffer{buffer: buf}, nil
}

func (b *wgpuBackend) CreateStorageBuffer(label string, size uint64) (Buffer, error) {
	return b.createEmptyBuffer(label, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
}

func (b *wgpuBackend) CreateUniformBuffer(label string, size uint64) (Buffer, error) {
	return b.createEmptyBuffer(label, size, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
}

func (b *wgpuBackend) createEmptyBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf}, nil
}

func (b *wgpuBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf.(*wgpuBuffer).buffer, offset, data)
}

func (b *wgpuBackend) CreateTexture(label string, data *common.TextureStagingData) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

// sceneGroup0Layout describes the fixed scene resources every scene shader
// binds: instance transforms, camera, default sampler and diffuse texture,
// and frame globals.
func (b *wgpuBackend) sceneGroup0Layout(label string) (*wgpu.BindGroupLayout, error) {
	transforms := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex}
	transforms.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage

	camera := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	camera.Buffer.Type = wgpu.BufferBindingTypeUniform

	sampler := wgpu.BindGroupLayoutEntry{Binding: 2, Visibility: wgpu.ShaderStageFragment}
	sampler.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	diffuse := wgpu.BindGroupLayoutEntry{Binding: 3, Visibility: wgpu.ShaderStageFragment}
	diffuse.Texture.SampleType = wgpu.TextureSampleTypeFloat
	diffuse.Texture.ViewDimension = wgpu.TextureViewDimension2D

	globals := wgpu.BindGroupLayoutEntry{Binding: 4, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	globals.Buffer.Type = wgpu.BufferBindingTypeUniform

	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Group 0",
		Entries: []wgpu.BindGroupLayoutEntry{transforms, camera, sampler, diffuse, globals},
	})
}

// uniformGroupLayout describes a group of uniform buffers at the given
// bindings, visible to both stages.
func (b *wgpuBackend) uniformGroupLayout(label string, bindings []uint32) (*wgpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, binding := range bindings {
		e := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
		entries = append(entries, e)
	}
	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
}

// textureGroupLayout describes a group of texture/sampler pairs: the view at
// each given binding and its sampler at the next.
func (b *wgpuBackend) textureGroupLayout(label string, bindings []uint32) (*wgpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings)*2)
	for _, binding := range bindings {
		tex := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageFragment}
		tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D

		samp := wgpu.BindGroupLayoutEntry{Binding: binding + 1, Visibility: wgpu.ShaderStageFragment}
		samp.Sampler.Type = wgpu.SamplerBindingTypeFiltering

		entries = append(entries, tex, samp)
	}
	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
}

// postGroup0Layout describes the inputs of a post pass: sampler, chained
// input texture, and optionally the original scene texture.
func (b *wgpuBackend) postGroup0Layout(label string, needsScene bool) (*wgpu.BindGroupLayout, error) {
	sampler := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment}
	sampler.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	input := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	input.Texture.SampleType = wgpu.TextureSampleTypeFloat
	input.Texture.ViewDimension = wgpu.TextureViewDimension2D

	entries := []wgpu.BindGroupLayoutEntry{sampler, input}
	if needsScene {
		scene := wgpu.BindGroupLayoutEntry{Binding: 2, Visibility: wgpu.ShaderStageFragment}
		scene.Texture.SampleType = wgpu.TextureSampleTypeFloat
		scene.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, scene)
	}
	return b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Group 0",
		Entries: entries,
	})
}

func toWGPUCullMode(mode shader.CullMode) wgpu.CullMode {
	switch mode {
	case shader.CullFront:
		return wgpu.CullModeFront
	case shader.CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func toWGPUCompare(fn shader.CompareFunction) wgpu.CompareFunction {
	switch fn {
	case shader.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case shader.CompareAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionLess
	}
}

// alphaBlendState is standard source-over alpha blending.
func alphaBlendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

func (b *wgpuBackend) CompileScenePipeline(desc ScenePipelineDescriptor) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return nil, errors.New("wgpu: pipeline compiled before the surface was configured")
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.VertexCode,
		},
	})
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.FragmentCode,
		},
	})
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	layouts := make([]*wgpu.BindGroupLayout, 1, 3)
	layouts[0], err = b.sceneGroup0Layout(desc.Label)
	if err != nil {
		return nil, err
	}
	if len(desc.CustomBuffers) > 0 || len(desc.CustomTextures) > 0 {
		group1, layoutErr := b.uniformGroupLayout(desc.Label+" Group 1", desc.CustomBuffers)
		if layoutErr != nil {
			return nil, layoutErr
		}
		layouts = append(layouts, group1)
	}
	if len(desc.CustomTextures) > 0 {
		group2, layoutErr := b.textureGroupLayout(desc.Label+" Group 2", desc.CustomTextures)
		if layoutErr != nil {
			return nil, layoutErr
		}
		layouts = append(layouts, group2)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Settings.Blend == shader.BlendAlpha {
		target.Blend = alphaBlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: mesh.VertexStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  toWGPUCullMode(desc.Settings.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.Settings.DepthWrite,
			DepthCompare:      toWGPUCompare(desc.Settings.DepthCompare),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &wgpuPipeline{pipeline: created, layouts: layouts}, nil
}

func (b *wgpuBackend) CompilePostPipeline(desc PostPipelineDescriptor) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return nil, errors.New("wgpu: pipeline compiled before the surface was configured")
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Fullscreen Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.FullscreenVertexSource,
		},
	})
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.FragmentCode,
		},
	})
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	layouts := make([]*wgpu.BindGroupLayout, 1, 2)
	layouts[0], err = b.postGroup0Layout(desc.Label, desc.NeedsSceneTexture)
	if err != nil {
		return nil, err
	}
	if len(desc.CustomBuffers) > 0 {
		group1, layoutErr := b.uniformGroupLayout(desc.Label+" Group 1", desc.CustomBuffers)
		if layoutErr != nil {
			return nil, layoutErr
		}
		layouts = append(layouts, group1)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Post Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1, // post passes draw to single-sampled targets
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	return &wgpuPipeline{pipeline: created, layouts: layouts}, nil
}

func (b *wgpuBackend) CreateSceneBindings(p Pipeline, res SceneResources) (BindingSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := p.(*wgpuPipeline)
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Scene Bind Group",
		Layout: pipe.layouts[0],
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: res.Transforms.(*wgpuBuffer).buffer, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: res.Camera.(*wgpuBuffer).buffer, Size: wgpu.WholeSize},
			{Binding: 2, Sampler: b.sceneSampler},
			{Binding: 3, TextureView: res.Diffuse.(*wgpuTexture).view},
			{Binding: 4, Buffer: res.Globals.(*wgpuBuffer).buffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindingSet{group: group}, nil
}

func (b *wgpuBackend) CreateBufferBindings(p Pipeline, group uint32, buffers []BufferBinding) (BindingSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := p.(*wgpuPipeline)
	if int(group) >= len(pipe.layouts) || pipe.layouts[group] == nil {
		return nil, fmt.Errorf("wgpu: pipeline has no layout for group %d", group)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers))
	for _, binding := range buffers {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: binding.Binding,
			Buffer:  binding.Buffer.(*wgpuBuffer).buffer,
			Size:    wgpu.WholeSize,
		})
	}
	created, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Buffer Bind Group",
		Layout:  pipe.layouts[group],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindingSet{group: created}, nil
}

func (b *wgpuBackend) CreateTextureBindings(p Pipeline, group uint32, textures []TextureBinding) (BindingSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pipe := p.(*wgpuPipeline)
	if int(group) >= len(pipe.layouts) || pipe.layouts[group] == nil {
		return nil, fmt.Errorf("wgpu: pipeline has no layout for group %d", group)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(textures)*2)
	for _, binding := range textures {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: binding.Binding, TextureView: binding.Texture.(*wgpuTexture).view},
			wgpu.BindGroupEntry{Binding: binding.Binding + 1, Sampler: b.sceneSampler},
		)
	}
	created, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Texture Bind Group",
		Layout:  pipe.layouts[group],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindingSet{group: created}, nil
}

func (b *wgpuBackend) BeginFrame(offscreen bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one ("Surface image is already acquired" validation errors).
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	// The scene draws into the scene texture when a post chain will run,
	// otherwise straight to the swapchain. With MSAA on, the MSAA texture is
	// the attachment and the chosen target is the resolve destination.
	target := view
	if offscreen {
		target = b.sceneTarget.view
	}
	if b.sampleCount > 1 {
		b.scenePassDescriptor.ColorAttachments[0].ResolveTarget = target
	} else {
		b.scenePassDescriptor.ColorAttachments[0].View = target
	}

	b.frameEncoder = encoder
	b.scenePass = encoder.BeginRenderPass(b.scenePassDescriptor)
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.postSource = b.sceneTarget.view
	b.postWriteIndex = 0
	return nil
}

func (b *wgpuBackend) SetPipeline(p Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenePass.SetPipeline(p.(*wgpuPipeline).pipeline)
}

func (b *wgpuBackend) SetBindingSet(group uint32, set BindingSet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenePass.SetBindGroup(group, set.(*wgpuBindingSet).group, nil)
}

func (b *wgpuBackend) SetMesh(vertex, index Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenePass.SetVertexBuffer(0, vertex.(*wgpuBuffer).buffer, 0, wgpu.WholeSize)
	b.scenePass.SetIndexBuffer(index.(*wgpuBuffer).buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (b *wgpuBackend) DrawIndexed(indexCount, instanceCount, firstInstance uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenePass.DrawIndexed(indexCount, instanceCount, 0, 0, firstInstance)
}

func (b *wgpuBackend) EndScenePass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scenePass == nil {
		return
	}
	b.scenePass.End()
	b.scenePass = nil
}

func (b *wgpuBackend) RunPostPass(p Pipeline, custom BindingSet, needsScene, final bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.New("wgpu: post pass outside a frame")
	}
	pipe := p.(*wgpuPipeline)

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Sampler: b.postSampler},
		{Binding: 1, TextureView: b.postSource},
	}
	if needsScene {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 2, TextureView: b.sceneTarget.view})
	}
	inputs, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Post Input Bind Group",
		Layout:  pipe.layouts[0],
		Entries: entries,
	})
	if err != nil {
		return err
	}
	b.transientSets = append(b.transientSets, inputs)

	target := b.frameView
	if !final {
		target = b.pingPong[b.postWriteIndex].view
	}
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0, G: 0, B: 0, A: 1,
				},
			},
		},
	})
	pass.SetPipeline(pipe.pipeline)
	pass.SetBindGroup(0, inputs, nil)
	if custom != nil {
		pass.SetBindGroup(1, custom.(*wgpuBindingSet).group, nil)
	}
	pass.Draw(3, 1, 0, 0)
	pass.End()

	if !final {
		b.postSource = b.pingPong[b.postWriteIndex].view
		b.postWriteIndex = 1 - b.postWriteIndex
	}
	return nil
}

func (b *wgpuBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	if b.scenePass != nil {
		b.scenePass.End()
		b.scenePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	for _, set := range b.transientSets {
		set.Release()
	}
	b.transientSets = b.transientSets[:0]

	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	b.postSource = nil
}
