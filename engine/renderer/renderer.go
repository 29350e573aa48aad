package renderer

import (
	"fmt"
	"log"
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/batch"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/postprocess"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

// initialInstanceCapacity is the instance count the transform buffer starts
// with; it doubles on demand.
const initialInstanceCapacity = 256

// gpuMesh pairs a stored mesh with its uploaded GPU buffers.
type gpuMesh struct {
	vertex     Buffer
	index      Buffer
	indexCount uint32
}

// pipelineEntry is one pipeline-cache slot: the compiled pipeline, the GPU
// buffers backing the shader's custom bindings, and the lazily created
// binding sets. One entry exists per shader id for the process lifetime;
// buffers are written in place on later frames, never recreated.
type pipelineEntry struct {
	program  shader.Program
	pipeline Pipeline

	customBuffers map[uint32]Buffer

	// Binding sets are created lazily, after the pipeline, because late
	// resources (textures registered from component start hooks) may only
	// exist by then. group0 is additionally invalidated when the instance
	// buffer grows.
	group0 BindingSet
	group1 BindingSet
	group2 BindingSet
}

// postEntry is the cached GPU state of one post-processing pass.
type postEntry struct {
	pipeline      Pipeline
	customBuffers map[uint32]Buffer
	group1        BindingSet
	needsScene    bool
}

// Renderer is the high-level rendering facade: it owns the mesh store's GPU
// buffers, the texture registry, the pipeline cache, the packed instance
// buffer, and the post-processing chain, and turns registered scenes into
// instanced draw calls.
//
// The external control loop drives it once per tick: RegisterCamera,
// RegisterScene, then Render.
type Renderer interface {
	// MeshStore returns the mesh store the renderer validates batches against.
	MeshStore() mesh.Store

	// UploadMeshes registers raw mesh data and uploads the GPU buffers for
	// every id not yet present. Idempotent per id.
	//
	// Parameters:
	//   - meshes: mesh data keyed by id
	//
	// Returns:
	//   - error: the first upload error, if any
	UploadMeshes(meshes map[string]mesh.Data) error

	// AddTexture registers decoded RGBA image data under id. Idempotent; the
	// first registration wins. Failures are logged, not returned, since a
	// missing texture downgrades to the placeholder at bind time.
	AddTexture(id string, data *common.TextureStagingData)

	// RegisterCamera adopts the entity's transform as the frame camera.
	// Idempotent: if the entity's position and rotation are unchanged since
	// the previous registration, no matrix recomputation or upload happens.
	RegisterCamera(cam entity.Entity)

	// RegisterScene batches the frame's entities and uploads the packed
	// instance transforms. The static region is only repacked and rewritten
	// when updateStatic is true. Pipelines for every shader id present in
	// the frame are compiled on first encounter.
	//
	// Parameters:
	//   - staticEntities: the static partition, in insertion order
	//   - nonStaticEntities: the non-static partition, in insertion order
	//   - updateStatic: true to repack and rewrite the static region
	//
	// Returns:
	//   - error: error if a pipeline compile or buffer allocation fails
	RegisterScene(staticEntities, nonStaticEntities []entity.Entity, updateStatic bool) error

	// EnsurePipeline compiles and caches the pipeline and custom buffers for
	// the program, keyed by its id. A cache hit is an O(1) no-op that never
	// recompiles.
	//
	// Parameters:
	//   - program: the shader program description
	//
	// Returns:
	//   - error: error if compilation or buffer allocation fails
	EnsurePipeline(program shader.Program) error

	// UpdateCustomBuffer replaces the contents of one of a shader's custom
	// buffers and uploads them to the existing GPU buffer. Callable every
	// frame.
	//
	// Parameters:
	//   - shaderID: the pipeline cache key
	//   - binding: the group-1 binding index
	//   - data: the new contents ([]byte, []float32, []uint32, or []int32)
	//
	// Returns:
	//   - error: error if the shader or binding is unknown
	UpdateCustomBuffer(shaderID string, binding uint32, data any) error

	// ResourceBindingSets returns the custom binding sets (group 1, group 2)
	// for a cached pipeline, creating them on first request. Requesting them
	// before the pipeline exists is a call-ordering bug and fails loudly.
	//
	// Parameters:
	//   - shaderID: the pipeline cache key
	//
	// Returns:
	//   - BindingSet: the group-1 set (nil when the shader declares no custom buffers)
	//   - BindingSet: the group-2 set (nil when the shader declares no custom textures)
	//   - error: fatal error when the device or pipeline does not exist
	ResourceBindingSets(shaderID string) (BindingSet, BindingSet, error)

	// PostChain returns the mutable post-processing chain.
	PostChain() postprocess.Chain

	// SetGlobals updates the frame globals uniform (directional light and
	// elapsed time) uploaded at the start of the next render.
	SetGlobals(lightDir common.Vec3, timeSeconds float32)

	// Render draws one frame: every batch in static-then-non-static order,
	// then the enabled post passes in ascending order. Skipped without error
	// while no camera is registered.
	//
	// Returns:
	//   - error: error if frame acquisition or a post pass fails
	Render() error

	// Resize reconfigures the surface and invalidates the cached camera
	// matrices so the projection picks up the new aspect ratio.
	Resize(width, height int)
}

type sceneRenderer struct {
	mu sync.Mutex

	backend Backend
	meshes  mesh.Store
	batcher batch.Engine
	chain   postprocess.Chain

	gpuMeshes map[string]*gpuMesh
	textures  map[string]Texture

	// placeholder stands in for unknown texture ids; defaultDiffuse is the
	// plain white texture behind group 0's diffuse binding.
	placeholder    Texture
	defaultDiffuse Texture

	pipelines     map[string]*pipelineEntry
	postPipelines map[string]*postEntry

	instanceBuf Buffer
	instanceCap uint64 // capacity in instances

	cameraBuf  Buffer
	globalsBuf Buffer
	globals    GPUGlobalsUniform

	cameraSet bool
	camPos    common.Vec3
	camRot    common.Quat
	camDirty  bool

	fov, near, far float32
	width, height  int

	warnedNoCamera bool

	// Construction-time settings consumed by NewRenderer.
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	forceFallbackAdapter bool
	batchWorkers         int
}

var _ Renderer = &sceneRenderer{}
var _ entity.TextureRegistry = &sceneRenderer{}

func (r *sceneRenderer) MeshStore() mesh.Store {
	return r.meshes
}

func (r *sceneRenderer) UploadMeshes(meshes map[string]mesh.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, data := range meshes {
		m, err := r.meshes.Upload(id, data)
		if err != nil {
			return err
		}
		if _, ok := r.gpuMeshes[id]; ok {
			continue
		}
		vertex, err := r.backend.CreateVertexBuffer(id, m.VertexData())
		if err != nil {
			return fmt.Errorf("mesh %s: %w", id, err)
		}
		index, err := r.backend.CreateIndexBuffer(id, m.IndexData())
		if err != nil {
			vertex.Release()
			return fmt.Errorf("mesh %s: %w", id, err)
		}
		r.gpuMeshes[id] = &gpuMesh{vertex: vertex, index: index, indexCount: uint32(m.IndexCount())}
	}
	return nil
}

func (r *sceneRenderer) AddTexture(id string, data *common.TextureStagingData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.textures[id]; ok {
		return
	}
	tex, err := r.backend.CreateTexture(id, data)
	if err != nil {
		log.Printf("renderer: failed to upload texture %q: %v", id, err)
		return
	}
	r.textures[id] = tex
}

func (r *sceneRenderer) RegisterCamera(cam entity.Entity) {
	if cam == nil {
		return
	}
	pos, rot := cam.Position(), cam.Rotation()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cameraSet && !r.camDirty && pos == r.camPos && rot == r.camRot {
		return
	}
	r.camPos, r.camRot = pos, rot
	r.cameraSet = true
	r.camDirty = false

	view := make([]float32, 16)
	common.ViewFromTransform(view, pos, rot)

	proj := make([]float32, 16)
	aspect := float32(1)
	if r.height > 0 {
		aspect = float32(r.width) / float32(r.height)
	}
	common.Perspective(proj, r.fov, aspect, r.near, r.far)

	var uniform GPUCameraUniform
	common.Mul4(uniform.ViewProj[:], proj, view)
	uniform.Position = [3]float32{pos.X, pos.Y, pos.Z}
	r.backend.WriteBuffer(r.cameraBuf, 0, uniform.Marshal())
}

func (r *sceneRenderer) RegisterScene(staticEntities, nonStaticEntities []entity.Entity, updateStatic bool) error {
	// Compile pipelines for every shader id present in the frame before any
	// buffer traffic, so a compile failure leaves the previous frame intact.
	for _, e := range staticEntities {
		if err := r.ensureEntityPipeline(e); err != nil {
			return err
		}
	}
	for _, e := range nonStaticEntities {
		if err := r.ensureEntityPipeline(e); err != nil {
			return err
		}
	}

	writes := r.batcher.RegisterScene(staticEntities, nonStaticEntities, updateStatic)

	r.mu.Lock()
	defer r.mu.Unlock()

	grew, err := r.ensureInstanceCapacity(uint64(r.batcher.InstanceCount()))
	if err != nil {
		return err
	}
	if grew && !updateStatic {
		// The new buffer starts empty; restore the cached static region that
		// this registration deliberately did not repack.
		if staticBytes := r.batcher.StaticBytes(); len(staticBytes) > 0 {
			r.backend.WriteBuffer(r.instanceBuf, 0, staticBytes)
		}
	}
	for _, w := range writes {
		r.backend.WriteBuffer(r.instanceBuf, w.Offset, w.Data)
	}
	return nil
}

// ensureEntityPipeline compiles the pipeline for the entity's shader
// program, or the default program for entities without one.
func (r *sceneRenderer) ensureEntityPipeline(e entity.Entity) error {
	program := shader.Default()
	if c, ok := e.Component(entity.KeyShader); ok {
		if p, ok := c.(shader.Provider); ok {
			program = p.Program()
		}
	}
	return r.EnsurePipeline(program)
}

// ensureInstanceCapacity grows the packed instance buffer to hold at least
// count instances. Growth doubles the capacity, swaps the buffer, and
// invalidates every cached group-0 binding set referencing the old buffer.
func (r *sceneRenderer) ensureInstanceCapacity(count uint64) (bool, error) {
	if count <= r.instanceCap {
		return false, nil
	}
	capacity := r.instanceCap
	if capacity == 0 {
		capacity = initialInstanceCapacity
	}
	for capacity < count {
		capacity *= 2
	}

	buf, err := r.backend.CreateStorageBuffer("instance transforms", capacity*batch.InstanceStride)
	if err != nil {
		return false, fmt.Errorf("instance buffer grow to %d instances: %w", capacity, err)
	}
	if r.instanceBuf != nil {
		r.instanceBuf.Release()
	}
	r.instanceBuf = buf
	r.instanceCap = capacity

	for _, entry := range r.pipelines {
		if entry.group0 != nil {
			entry.group0.Release()
			entry.group0 = nil
		}
	}
	return true, nil
}

func (r *sceneRenderer) EnsurePipeline(program shader.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensurePipelineLocked(program)
}

func (r *sceneRenderer) ensurePipelineLocked(program shader.Program) error {
	if r.backend == nil {
		return fmt.Errorf("renderer: pipeline %q requested before the device was initialized", program.ID())
	}
	if _, ok := r.pipelines[program.ID()]; ok {
		return nil
	}

	desc := ScenePipelineDescriptor{
		Label:        program.ID(),
		VertexCode:   program.VertexCode(),
		FragmentCode: program.FragmentCode(),
		Settings:     program.Settings(),
	}
	for _, b := range program.Buffers() {
		desc.CustomBuffers = append(desc.CustomBuffers, b.Binding)
	}
	for _, t := range program.Textures() {
		desc.CustomTextures = append(desc.CustomTextures, t.Binding)
	}

	compiled, err := r.backend.CompileScenePipeline(desc)
	if err != nil {
		return fmt.Errorf("shader %s: pipeline compile failed: %w", program.ID(), err)
	}

	entry := &pipelineEntry{
		program:       program,
		pipeline:      compiled,
		customBuffers: make(map[uint32]Buffer),
	}
	for _, spec := range program.Buffers() {
		size, sizeErr := spec.ByteSize()
		if sizeErr != nil {
			return fmt.Errorf("shader %s: %w", program.ID(), sizeErr)
		}
		buf, bufErr := r.backend.CreateUniformBuffer(fmt.Sprintf("%s custom %d", program.ID(), spec.Binding), size)
		if bufErr != nil {
			return fmt.Errorf("shader %s: custom buffer %d: %w", program.ID(), spec.Binding, bufErr)
		}
		entry.customBuffers[spec.Binding] = buf
		if initial, dataErr := spec.Bytes(); dataErr != nil {
			return fmt.Errorf("shader %s: custom buffer %d: %w", program.ID(), spec.Binding, dataErr)
		} else if len(initial) > 0 {
			r.backend.WriteBuffer(buf, 0, initial)
		}
	}

	r.pipelines[program.ID()] = entry
	return nil
}

func (r *sceneRenderer) UpdateCustomBuffer(shaderID string, binding uint32, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.pipelines[shaderID]
	if !ok {
		return fmt.Errorf("renderer: no pipeline cached for shader %q", shaderID)
	}
	buf, ok := entry.customBuffers[binding]
	if !ok {
		return fmt.Errorf("shader %s: no custom buffer at binding %d", shaderID, binding)
	}
	if err := entry.program.SetBufferData(binding, data); err != nil {
		return err
	}
	spec := shader.BufferSpec{Binding: binding, Data: data}
	payload, err := spec.Bytes()
	if err != nil {
		return err
	}
	r.backend.WriteBuffer(buf, 0, payload)
	return nil
}

func (r *sceneRenderer) ResourceBindingSets(shaderID string) (BindingSet, BindingSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return nil, nil, fmt.Errorf("renderer: binding sets for %q requested before the device was initialized", shaderID)
	}
	entry, ok := r.pipelines[shaderID]
	if !ok {
		return nil, nil, fmt.Errorf("renderer: binding sets requested for shader %q but its pipeline was never created", shaderID)
	}
	if err := r.ensureCustomBindingSetsLocked(entry); err != nil {
		return nil, nil, err
	}
	return entry.group1, entry.group2, nil
}

// ensureCustomBindingSetsLocked lazily builds the group-1 and group-2 sets
// of a cache entry. Unknown texture ids bind the placeholder with a warning.
func (r *sceneRenderer) ensureCustomBindingSetsLocked(entry *pipelineEntry) error {
	// A shader with custom textures still occupies group 1 in the pipeline
	// layout, so an (empty) group-1 set is created even without buffers.
	if entry.group1 == nil && (len(entry.customBuffers) > 0 || len(entry.program.Textures()) > 0) {
		bindings := make([]BufferBinding, 0, len(entry.customBuffers))
		for _, spec := range entry.program.Buffers() {
			bindings = append(bindings, BufferBinding{Binding: spec.Binding, Buffer: entry.customBuffers[spec.Binding]})
		}
		set, err := r.backend.CreateBufferBindings(entry.pipeline, 1, bindings)
		if err != nil {
			return fmt.Errorf("shader %s: group 1 bindings: %w", entry.program.ID(), err)
		}
		entry.group1 = set
	}

	if entry.group2 == nil && len(entry.program.Textures()) > 0 {
		bindings := make([]TextureBinding, 0, len(entry.program.Textures()))
		for _, spec := range entry.program.Textures() {
			tex, ok := r.textures[spec.TextureID]
			if !ok {
				log.Printf("renderer: shader %s references unknown texture %q, using placeholder", entry.program.ID(), spec.TextureID)
				tex = r.placeholder
			}
			bindings = append(bindings, TextureBinding{Binding: spec.Binding, Texture: tex})
		}
		set, err := r.backend.CreateTextureBindings(entry.pipeline, 2, bindings)
		if err != nil {
			return fmt.Errorf("shader %s: group 2 bindings: %w", entry.program.ID(), err)
		}
		entry.group2 = set
	}
	return nil
}

// ensureSceneBindingsLocked lazily builds a cache entry's group-0 set
// against the current instance buffer.
func (r *sceneRenderer) ensureSceneBindingsLocked(entry *pipelineEntry) error {
	if entry.group0 != nil {
		return nil
	}
	set, err := r.backend.CreateSceneBindings(entry.pipeline, SceneResources{
		Transforms: r.instanceBuf,
		Camera:     r.cameraBuf,
		Diffuse:    r.defaultDiffuse,
		Globals:    r.globalsBuf,
	})
	if err != nil {
		return fmt.Errorf("shader %s: group 0 bindings: %w", entry.program.ID(), err)
	}
	entry.group0 = set
	return nil
}

func (r *sceneRenderer) PostChain() postprocess.Chain {
	return r.chain
}

func (r *sceneRenderer) SetGlobals(lightDir common.Vec3, timeSeconds float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals.LightDir = [3]float32{lightDir.X, lightDir.Y, lightDir.Z}
	r.globals.Time = timeSeconds
}

func (r *sceneRenderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cameraSet {
		// Transient startup state: skip the frame, don't fail it.
		if !r.warnedNoCamera {
			log.Println("renderer: no camera registered, skipping frame")
			r.warnedNoCamera = true
		}
		return nil
	}

	r.backend.WriteBuffer(r.globalsBuf, 0, r.globals.Marshal())

	passes := r.chain.Enabled()
	offscreen := len(passes) > 0

	if err := r.backend.BeginFrame(offscreen); err != nil {
		return fmt.Errorf("renderer: begin frame: %w", err)
	}

	if err := r.drawBatchesLocked(); err != nil {
		return err
	}
	r.backend.EndScenePass()

	for i, pass := range passes {
		entry, err := r.ensurePostPipelineLocked(pass)
		if err != nil {
			return err
		}
		if err := r.uploadPassBuffersLocked(pass, entry); err != nil {
			return err
		}
		final := i == len(passes)-1
		if err := r.backend.RunPostPass(entry.pipeline, entry.group1, pass.NeedsSceneTexture(), final); err != nil {
			return fmt.Errorf("post pass %s: %w", pass.ID(), err)
		}
	}

	r.backend.EndFrame()
	return nil
}

// drawBatchesLocked encodes one instanced draw per batch, in batch order.
// The mesh is rebound only when it changes between consecutive batches.
func (r *sceneRenderer) drawBatchesLocked() error {
	var boundMesh string
	var boundShader string

	for _, b := range r.batcher.Batches() {
		gpu, ok := r.gpuMeshes[b.MeshID]
		if !ok {
			log.Printf("renderer: batch references mesh %q with no GPU buffers, skipping", b.MeshID)
			continue
		}
		entry, ok := r.pipelines[b.ShaderID]
		if !ok {
			return fmt.Errorf("renderer: batch references shader %q but its pipeline was never created", b.ShaderID)
		}

		if b.ShaderID != boundShader {
			if err := r.ensureSceneBindingsLocked(entry); err != nil {
				return err
			}
			if err := r.ensureCustomBindingSetsLocked(entry); err != nil {
				return err
			}
			r.backend.SetPipeline(entry.pipeline)
			r.backend.SetBindingSet(0, entry.group0)
			if entry.group1 != nil {
				r.backend.SetBindingSet(1, entry.group1)
			}
			if entry.group2 != nil {
				r.backend.SetBindingSet(2, entry.group2)
			}
			boundShader = b.ShaderID
		}
		if b.MeshID != boundMesh {
			r.backend.SetMesh(gpu.vertex, gpu.index)
			boundMesh = b.MeshID
		}
		r.backend.DrawIndexed(gpu.indexCount, b.InstanceCount, b.InstanceOffset)
	}
	return nil
}

// ensurePostPipelineLocked compiles and caches the pipeline and custom
// buffers of a post-processing pass, keyed by pass id.
func (r *sceneRenderer) ensurePostPipelineLocked(pass postprocess.Pass) (*postEntry, error) {
	if entry, ok := r.postPipelines[pass.ID()]; ok {
		return entry, nil
	}

	desc := PostPipelineDescriptor{
		Label:             pass.ID(),
		FragmentCode:      pass.FragmentCode(),
		NeedsSceneTexture: pass.NeedsSceneTexture(),
	}
	for _, b := range pass.Buffers() {
		desc.CustomBuffers = append(desc.CustomBuffers, b.Binding)
	}

	compiled, err := r.backend.CompilePostPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("post pass %s: pipeline compile failed: %w", pass.ID(), err)
	}

	entry := &postEntry{
		pipeline:      compiled,
		customBuffers: make(map[uint32]Buffer),
		needsScene:    pass.NeedsSceneTexture(),
	}
	for _, spec := range pass.Buffers() {
		size, sizeErr := spec.ByteSize()
		if sizeErr != nil {
			return nil, fmt.Errorf("post pass %s: %w", pass.ID(), sizeErr)
		}
		buf, bufErr := r.backend.CreateUniformBuffer(fmt.Sprintf("%s custom %d", pass.ID(), spec.Binding), size)
		if bufErr != nil {
			return nil, fmt.Errorf("post pass %s: custom buffer %d: %w", pass.ID(), spec.Binding, bufErr)
		}
		entry.customBuffers[spec.Binding] = buf
	}
	if len(entry.customBuffers) > 0 {
		bindings := make([]BufferBinding, 0, len(entry.customBuffers))
		for _, spec := range pass.Buffers() {
			bindings = append(bindings, BufferBinding{Binding: spec.Binding, Buffer: entry.customBuffers[spec.Binding]})
		}
		set, setErr := r.backend.CreateBufferBindings(compiled, 1, bindings)
		if setErr != nil {
			return nil, fmt.Errorf("post pass %s: group 1 bindings: %w", pass.ID(), setErr)
		}
		entry.group1 = set
	}

	r.postPipelines[pass.ID()] = entry
	return entry, nil
}

// uploadPassBuffersLocked pushes a pass's current custom buffer contents to
// the GPU. Pass buffers are small and assumed animated, so they upload every
// frame.
func (r *sceneRenderer) uploadPassBuffersLocked(pass postprocess.Pass, entry *postEntry) error {
	for _, spec := range pass.Buffers() {
		payload, err := spec.Bytes()
		if err != nil {
			return fmt.Errorf("post pass %s: %w", pass.ID(), err)
		}
		if len(payload) == 0 {
			continue
		}
		r.backend.WriteBuffer(entry.customBuffers[spec.Binding], 0, payload)
	}
	return nil
}

func (r *sceneRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	r.width, r.height = width, height
	r.backend.ConfigureSurface(width, height)
	// Projection depends on the aspect ratio; force a camera rewrite.
	r.camDirty = true
}
