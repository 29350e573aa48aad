package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/postprocess"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

type registeredScene struct {
	staticIDs    []string
	nonStaticIDs []string
	updateStatic bool
}

// recordingRenderer records the per-tick registration calls the scene makes.
type recordingRenderer struct {
	store      mesh.Store
	chain      postprocess.Chain
	registered []registeredScene
	cameras    []entity.Entity
	rendered   int
}

var _ renderer.Renderer = &recordingRenderer{}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{store: mesh.NewStore(), chain: postprocess.NewChain()}
}

func (r *recordingRenderer) MeshStore() mesh.Store { return r.store }

func (r *recordingRenderer) UploadMeshes(meshes map[string]mesh.Data) error {
	return r.store.UploadAll(meshes)
}

func (r *recordingRenderer) AddTexture(id string, data *common.TextureStagingData) {}

func (r *recordingRenderer) RegisterCamera(cam entity.Entity) {
	r.cameras = append(r.cameras, cam)
}

func (r *recordingRenderer) RegisterScene(static, nonStatic []entity.Entity, updateStatic bool) error {
	reg := registeredScene{updateStatic: updateStatic}
	for _, e := range static {
		reg.staticIDs = append(reg.staticIDs, e.ID())
	}
	for _, e := range nonStatic {
		reg.nonStaticIDs = append(reg.nonStaticIDs, e.ID())
	}
	r.registered = append(r.registered, reg)
	return nil
}

func (r *recordingRenderer) EnsurePipeline(program shader.Program) error { return nil }

func (r *recordingRenderer) UpdateCustomBuffer(shaderID string, binding uint32, data any) error {
	return nil
}

func (r *recordingRenderer) ResourceBindingSets(shaderID string) (renderer.BindingSet, renderer.BindingSet, error) {
	return nil, nil, nil
}

func (r *recordingRenderer) PostChain() postprocess.Chain { return r.chain }

func (r *recordingRenderer) SetGlobals(lightDir common.Vec3, timeSeconds float32) {}

func (r *recordingRenderer) Render() error {
	r.rendered++
	return nil
}

func (r *recordingRenderer) Resize(width, height int) {}

// spinner is a minimal updater component, so entities carrying it count as
// non-static.
type spinner struct{}

func (spinner) Key() entity.ComponentKey { return "spinner" }

func (spinner) Update(ctx *entity.Context, e entity.Entity, deltaMs float64) any { return nil }

func TestPartitionPreservesInsertionOrder(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec,
		WithEntities(
			entity.NewEntity(entity.WithID("a")),
			entity.NewEntity(entity.WithID("b"), entity.WithComponents(spinner{})),
			entity.NewEntity(entity.WithID("c")),
		),
	)

	require.NoError(t, s.Render())
	require.Len(t, rec.registered, 1)
	assert.Equal(t, []string{"a", "c"}, rec.registered[0].staticIDs)
	assert.Equal(t, []string{"b"}, rec.registered[0].nonStaticIDs)
	assert.Equal(t, 1, rec.rendered)
}

func TestFirstRenderPacksStatic(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec, WithEntities(entity.NewEntity(entity.WithID("a"))))

	require.NoError(t, s.Render())
	require.NoError(t, s.Render())

	require.Len(t, rec.registered, 2)
	assert.True(t, rec.registered[0].updateStatic)
	assert.False(t, rec.registered[1].updateStatic, "unchanged static set must not repack")
}

func TestMarkStaticDirtyRequestsRepack(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec, WithEntities(entity.NewEntity(entity.WithID("a"))))

	require.NoError(t, s.Render())
	s.MarkStaticDirty()
	require.NoError(t, s.Render())
	require.NoError(t, s.Render())

	require.Len(t, rec.registered, 3)
	assert.True(t, rec.registered[1].updateStatic)
	assert.False(t, rec.registered[2].updateStatic)
}

func TestAddAndRemoveMarkStaticDirty(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec, WithEntities(entity.NewEntity(entity.WithID("a"))))

	require.NoError(t, s.Render())
	s.Add(entity.NewEntity(entity.WithID("b")))
	require.NoError(t, s.Render())
	assert.True(t, rec.registered[1].updateStatic)

	require.NoError(t, s.Render())
	assert.False(t, rec.registered[2].updateStatic)

	s.Remove("a")
	require.NoError(t, s.Render())
	assert.True(t, rec.registered[3].updateStatic)
	assert.Equal(t, []string{"b"}, rec.registered[3].staticIDs)
}

func TestStaticMembershipChangeTriggersRepack(t *testing.T) {
	rec := newRecordingRenderer()
	e := entity.NewEntity(entity.WithID("a"))
	s := NewScene(rec, WithEntities(e))

	require.NoError(t, s.Render())
	require.NoError(t, s.Render())
	assert.False(t, rec.registered[1].updateStatic)

	// Gaining an updater moves the entity to the non-static partition, which
	// shrinks the static region.
	e.AddComponent(spinner{})
	require.NoError(t, s.Render())
	assert.True(t, rec.registered[2].updateStatic)
	assert.Empty(t, rec.registered[2].staticIDs)
	assert.Equal(t, []string{"a"}, rec.registered[2].nonStaticIDs)
}

func TestCameraRegisteredEachRender(t *testing.T) {
	rec := newRecordingRenderer()
	cam := entity.NewEntity(entity.WithID("camera"))
	s := NewScene(rec, WithCamera(cam))

	require.NoError(t, s.Render())
	require.NoError(t, s.Render())
	assert.Len(t, rec.cameras, 2)
}

func TestRenderWithoutCameraStillDraws(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec)

	require.NoError(t, s.Render())
	assert.Empty(t, rec.cameras)
	assert.Equal(t, 1, rec.rendered)
}

func TestGetAndCount(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec, WithEntities(entity.NewEntity(entity.WithID("a"))))

	assert.Equal(t, 1, s.Count())
	assert.NotNil(t, s.Get("a"))
	assert.Nil(t, s.Get("missing"))

	s.Remove("a")
	assert.Equal(t, 0, s.Count())
}

func TestAddReplacesSameID(t *testing.T) {
	rec := newRecordingRenderer()
	s := NewScene(rec)

	s.Add(entity.NewEntity(entity.WithID("a"), entity.WithMesh("cube")))
	replacement := entity.NewEntity(entity.WithID("a"), entity.WithMesh("sphere"))
	s.Add(replacement)

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, "sphere", s.Get("a").Render().MeshID)
}
