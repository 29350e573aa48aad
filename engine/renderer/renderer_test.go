package renderer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/batch"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/postprocess"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

type fakeBuffer struct {
	label    string
	size     uint64
	released bool
}

func (b *fakeBuffer) Release() { b.released = true }

type fakeTexture struct {
	label string
}

func (t *fakeTexture) Release() {}

type fakePipeline struct {
	label string
	post  bool
}

func (p *fakePipeline) Release() {}

type fakeBindingSet struct {
	group    uint32
	textures []TextureBinding
	released bool
}

func (s *fakeBindingSet) Release() { s.released = true }

type recordedWrite struct {
	buffer *fakeBuffer
	offset uint64
	data   []byte
}

type recordedDraw struct {
	indexCount    uint32
	instanceCount uint32
	firstInstance uint32
}

type recordedPostRun struct {
	label      string
	needsScene bool
	final      bool
}

// fakeBackend records every Backend call so tests can assert on pipeline
// compiles, buffer traffic and draw submission without a GPU.
type fakeBackend struct {
	sceneCompiles []string
	postCompiles  []string
	buffers       []*fakeBuffer
	writes        []recordedWrite
	draws         []recordedDraw
	postRuns      []recordedPostRun
	frames        []bool // offscreen flag per BeginFrame
	boundSets     map[uint32]*fakeBindingSet

	failSceneBindings bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{boundSets: make(map[uint32]*fakeBindingSet)}
}

func (f *fakeBackend) ConfigureSurface(width, height int) {}
func (f *fakeBackend) SetPresentMode(mode PresentMode)    {}
func (f *fakeBackend) SetMSAA(count MSAASampleCount)      {}

func (f *fakeBackend) newBuffer(label string, size uint64) *fakeBuffer {
	buf := &fakeBuffer{label: label, size: size}
	f.buffers = append(f.buffers, buf)
	return buf
}

func (f *fakeBackend) CreateVertexBuffer(label string, data []byte) (Buffer, error) {
	return f.newBuffer(label+" vertex", uint64(len(data))), nil
}

func (f *fakeBackend) CreateIndexBuffer(label string, data []byte) (Buffer, error) {
	return f.newBuffer(label+" index", uint64(len(data))), nil
}

func (f *fakeBackend) CreateStorageBuffer(label string, size uint64) (Buffer, error) {
	return f.newBuffer(label, size), nil
}

func (f *fakeBackend) CreateUniformBuffer(label string, size uint64) (Buffer, error) {
	return f.newBuffer(label, size), nil
}

func (f *fakeBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) {
	copied := append([]byte(nil), data...)
	f.writes = append(f.writes, recordedWrite{buffer: buf.(*fakeBuffer), offset: offset, data: copied})
}

func (f *fakeBackend) CreateTexture(label string, data *common.TextureStagingData) (Texture, error) {
	return &fakeTexture{label: label}, nil
}

func (f *fakeBackend) CompileScenePipeline(desc ScenePipelineDescriptor) (Pipeline, error) {
	f.sceneCompiles = append(f.sceneCompiles, desc.Label)
	return &fakePipeline{label: desc.Label}, nil
}

func (f *fakeBackend) CompilePostPipeline(desc PostPipelineDescriptor) (Pipeline, error) {
	f.postCompiles = append(f.postCompiles, desc.Label)
	return &fakePipeline{label: desc.Label, post: true}, nil
}

func (f *fakeBackend) CreateSceneBindings(p Pipeline, res SceneResources) (BindingSet, error) {
	if f.failSceneBindings {
		return nil, fmt.Errorf("device lost")
	}
	return &fakeBindingSet{group: 0}, nil
}

func (f *fakeBackend) CreateBufferBindings(p Pipeline, group uint32, buffers []BufferBinding) (BindingSet, error) {
	return &fakeBindingSet{group: group}, nil
}

func (f *fakeBackend) CreateTextureBindings(p Pipeline, group uint32, textures []TextureBinding) (BindingSet, error) {
	return &fakeBindingSet{group: group, textures: textures}, nil
}

func (f *fakeBackend) BeginFrame(offscreen bool) error {
	f.frames = append(f.frames, offscreen)
	return nil
}

func (f *fakeBackend) SetPipeline(p Pipeline) {}

func (f *fakeBackend) SetBindingSet(group uint32, set BindingSet) {
	f.boundSets[group] = set.(*fakeBindingSet)
}

func (f *fakeBackend) SetMesh(vertex, index Buffer) {}

func (f *fakeBackend) DrawIndexed(indexCount, instanceCount, firstInstance uint32) {
	f.draws = append(f.draws, recordedDraw{indexCount: indexCount, instanceCount: instanceCount, firstInstance: firstInstance})
}

func (f *fakeBackend) EndScenePass() {}

func (f *fakeBackend) RunPostPass(p Pipeline, custom BindingSet, needsScene, final bool) error {
	f.postRuns = append(f.postRuns, recordedPostRun{label: p.(*fakePipeline).label, needsScene: needsScene, final: final})
	return nil
}

func (f *fakeBackend) EndFrame() {}

// bufferWrites returns the writes targeting the buffer with the given label.
func (f *fakeBackend) bufferWrites(label string) []recordedWrite {
	var out []recordedWrite
	for _, w := range f.writes {
		if w.buffer.label == label {
			out = append(out, w)
		}
	}
	return out
}

func newTestRenderer(t *testing.T) (Renderer, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	r := NewRenderer(BackendTypeWGPU, nil, WithBackend(backend), WithMeshStore(mesh.NewStore()), WithBatchWorkers(1))
	require.NoError(t, r.UploadMeshes(map[string]mesh.Data{
		"cube": mesh.Cube(),
		"quad": mesh.Quad(),
	}))
	return r, backend
}

func testCamera() entity.Entity {
	return entity.NewEntity(entity.WithID("camera"), entity.WithPosition(0, 0, -5))
}

func staticCube(id string, x float32) entity.Entity {
	return entity.NewEntity(entity.WithID(id), entity.WithMesh("cube"), entity.WithPosition(x, 0, 0))
}

func TestEnsurePipelineCachesByID(t *testing.T) {
	r, backend := newTestRenderer(t)

	// The default pipeline is compiled during construction.
	require.Len(t, backend.sceneCompiles, 1)

	prog := shader.NewProgram("glow")
	require.NoError(t, r.EnsurePipeline(prog))
	require.NoError(t, r.EnsurePipeline(prog))

	// A different program under the same id never triggers a recompile.
	other := shader.NewProgram("glow", shader.WithCullMode(shader.CullNone))
	require.NoError(t, r.EnsurePipeline(other))

	assert.Equal(t, []string{shader.DefaultID, "glow"}, backend.sceneCompiles)
}

func TestRegisterSceneCompilesEncounteredShadersOnce(t *testing.T) {
	r, backend := newTestRenderer(t)

	glow := entity.NewEntity(
		entity.WithID("glowing"),
		entity.WithMesh("cube"),
		entity.WithComponents(shader.NewComponent(shader.NewProgram("glow"))),
	)
	plain := staticCube("plain", 1)

	require.NoError(t, r.RegisterScene([]entity.Entity{glow, plain}, nil, true))
	require.NoError(t, r.RegisterScene([]entity.Entity{glow, plain}, nil, false))

	assert.Equal(t, []string{shader.DefaultID, "glow"}, backend.sceneCompiles)
}

func TestRegisterCameraSkipsUnchangedTransform(t *testing.T) {
	r, backend := newTestRenderer(t)

	cam := testCamera()
	r.RegisterCamera(cam)
	r.RegisterCamera(cam)
	assert.Len(t, backend.bufferWrites("camera"), 1)

	cam.SetPosition(common.Vec3{Z: -10})
	r.RegisterCamera(cam)
	assert.Len(t, backend.bufferWrites("camera"), 2)
}

func TestResizeForcesCameraRewrite(t *testing.T) {
	r, backend := newTestRenderer(t)

	cam := testCamera()
	r.RegisterCamera(cam)
	r.Resize(640, 480)
	r.RegisterCamera(cam)

	assert.Len(t, backend.bufferWrites("camera"), 2)
}

func TestRenderSkipsFrameWithoutCamera(t *testing.T) {
	r, backend := newTestRenderer(t)

	require.NoError(t, r.RegisterScene([]entity.Entity{staticCube("a", 0)}, nil, true))
	require.NoError(t, r.Render())
	assert.Empty(t, backend.frames)

	r.RegisterCamera(testCamera())
	require.NoError(t, r.Render())
	assert.Len(t, backend.frames, 1)
}

func TestRenderDrawsBatchesWithInstanceOffsets(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	statics := []entity.Entity{staticCube("a", 0), staticCube("b", 1)}
	moving := entity.NewEntity(entity.WithID("m"), entity.WithMesh("quad"))
	require.NoError(t, r.RegisterScene(statics, []entity.Entity{moving}, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.draws, 2)
	assert.Equal(t, uint32(2), backend.draws[0].instanceCount)
	assert.Equal(t, uint32(0), backend.draws[0].firstInstance)
	assert.Equal(t, uint32(1), backend.draws[1].instanceCount)
	assert.Equal(t, uint32(2), backend.draws[1].firstInstance)
}

func TestStaticRegionWrittenOnlyOnRequest(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	statics := []entity.Entity{staticCube("a", 0), staticCube("b", 1)}
	moving := entity.NewEntity(entity.WithID("m"), entity.WithMesh("quad"))

	require.NoError(t, r.RegisterScene(statics, []entity.Entity{moving}, true))
	firstFrameWrites := len(backend.bufferWrites("instance transforms"))
	require.Greater(t, firstFrameWrites, 0)

	// Without updateStatic only the non-static region is touched, at offsets
	// past the two static instances.
	moving.SetPosition(common.Vec3{X: 3})
	require.NoError(t, r.RegisterScene(statics, []entity.Entity{moving}, false))
	writes := backend.bufferWrites("instance transforms")[firstFrameWrites:]
	require.NotEmpty(t, writes)
	for _, w := range writes {
		assert.GreaterOrEqual(t, w.offset, uint64(2*batch.InstanceStride))
	}
}

func TestInstanceBufferGrowthPreservesStaticRegion(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	statics := []entity.Entity{staticCube("a", 0)}
	require.NoError(t, r.RegisterScene(statics, nil, true))

	// Push the instance count past the initial capacity without repacking
	// the static region. The grown buffer must be reseeded with the cached
	// static bytes.
	many := make([]entity.Entity, 300)
	for i := range many {
		many[i] = entity.NewEntity(entity.WithID(fmt.Sprintf("e%d", i)), entity.WithMesh("cube"))
	}
	require.NoError(t, r.RegisterScene(statics, many, false))

	var grown *fakeBuffer
	for _, buf := range backend.buffers {
		if buf.label == "instance transforms" && buf.size > initialInstanceCapacity*batch.InstanceStride {
			grown = buf
		}
	}
	require.NotNil(t, grown, "expected a larger instance buffer after growth")

	var staticReseed bool
	for _, w := range backend.writes {
		if w.buffer == grown && w.offset == 0 && len(w.data) == batch.InstanceStride {
			staticReseed = true
		}
	}
	assert.True(t, staticReseed, "static region should be rewritten into the grown buffer")
}

func TestUpdateCustomBuffer(t *testing.T) {
	r, backend := newTestRenderer(t)

	prog := shader.NewProgram("tint", shader.WithBuffer(0, 16, []float32{1, 0, 0, 1}))
	require.NoError(t, r.EnsurePipeline(prog))

	// Initial contents upload on pipeline creation.
	require.Len(t, backend.bufferWrites("tint custom 0"), 1)

	require.NoError(t, r.UpdateCustomBuffer("tint", 0, []float32{0, 1, 0, 1}))
	assert.Len(t, backend.bufferWrites("tint custom 0"), 2)

	err := r.UpdateCustomBuffer("tint", 7, []float32{0})
	assert.Error(t, err)
	err = r.UpdateCustomBuffer("unknown", 0, []float32{0})
	assert.Error(t, err)
}

func TestResourceBindingSets(t *testing.T) {
	r, _ := newTestRenderer(t)

	_, _, err := r.ResourceBindingSets("unknown")
	require.Error(t, err)

	prog := shader.NewProgram("textured",
		shader.WithBuffer(0, 16, nil),
		shader.WithTexture(0, "noise"),
	)
	require.NoError(t, r.EnsurePipeline(prog))

	group1, group2, err := r.ResourceBindingSets("textured")
	require.NoError(t, err)
	assert.NotNil(t, group1)
	require.NotNil(t, group2)

	// Repeated requests return the cached sets.
	again1, again2, err := r.ResourceBindingSets("textured")
	require.NoError(t, err)
	assert.Same(t, group1, again1)
	assert.Same(t, group2, again2)
}

func TestUnknownTextureBindsPlaceholder(t *testing.T) {
	r, _ := newTestRenderer(t)

	prog := shader.NewProgram("textured", shader.WithTexture(0, "never-registered"))
	require.NoError(t, r.EnsurePipeline(prog))

	_, group2, err := r.ResourceBindingSets("textured")
	require.NoError(t, err)
	set := group2.(*fakeBindingSet)
	require.Len(t, set.textures, 1)
	assert.Equal(t, "missing texture placeholder", set.textures[0].Texture.(*fakeTexture).label)
}

func TestRegisteredTextureBound(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.AddTexture("noise", &common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1})
	prog := shader.NewProgram("textured", shader.WithTexture(0, "noise"))
	require.NoError(t, r.EnsurePipeline(prog))

	_, group2, err := r.ResourceBindingSets("textured")
	require.NoError(t, err)
	set := group2.(*fakeBindingSet)
	require.Len(t, set.textures, 1)
	assert.Equal(t, "noise", set.textures[0].Texture.(*fakeTexture).label)
}

func TestPostPassesRunInOrder(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	chain := r.PostChain()
	chain.Add(postprocess.NewPass("late", postprocess.WithOrder(2)))
	chain.Add(postprocess.NewPass("early", postprocess.WithOrder(0), postprocess.WithSceneTexture()))
	chain.Add(postprocess.NewPass("off", postprocess.WithOrder(1), postprocess.WithEnabled(false)))

	require.NoError(t, r.RegisterScene([]entity.Entity{staticCube("a", 0)}, nil, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.frames, 1)
	assert.True(t, backend.frames[0], "scene must render offscreen when a post chain is active")

	require.Len(t, backend.postRuns, 2)
	assert.Equal(t, "early", backend.postRuns[0].label)
	assert.True(t, backend.postRuns[0].needsScene)
	assert.False(t, backend.postRuns[0].final)
	assert.Equal(t, "late", backend.postRuns[1].label)
	assert.True(t, backend.postRuns[1].final)
}

func TestPostPipelinesCompileOnce(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	r.PostChain().Add(postprocess.NewPass("blur"))
	require.NoError(t, r.RegisterScene([]entity.Entity{staticCube("a", 0)}, nil, true))

	require.NoError(t, r.Render())
	require.NoError(t, r.Render())
	assert.Equal(t, []string{"blur"}, backend.postCompiles)
}

func TestRenderWithoutPostChainStaysOnSwapchain(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	require.NoError(t, r.RegisterScene([]entity.Entity{staticCube("a", 0)}, nil, true))
	require.NoError(t, r.Render())

	require.Len(t, backend.frames, 1)
	assert.False(t, backend.frames[0])
	assert.Empty(t, backend.postRuns)
}

func TestSceneBindingFailureIsFatal(t *testing.T) {
	r, backend := newTestRenderer(t)
	r.RegisterCamera(testCamera())

	require.NoError(t, r.RegisterScene([]entity.Entity{staticCube("a", 0)}, nil, true))
	backend.failSceneBindings = true
	assert.Error(t, r.Render())
}

func TestUploadMeshesIdempotent(t *testing.T) {
	r, backend := newTestRenderer(t)

	before := len(backend.buffers)
	require.NoError(t, r.UploadMeshes(map[string]mesh.Data{"cube": mesh.Cube()}))
	assert.Len(t, backend.buffers, before, "re-uploading a known mesh must not allocate")
}
