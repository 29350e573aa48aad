package batch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

func newTestStore(t *testing.T) mesh.Store {
	t.Helper()
	store := mesh.NewStore()
	require.NoError(t, store.UploadAll(map[string]mesh.Data{
		"A": mesh.Cube(),
		"B": mesh.Quad(),
	}))
	return store
}

func newMeshEntity(id, meshID string, x float32) entity.Entity {
	return entity.NewEntity(
		entity.WithID(id),
		entity.WithMesh(meshID),
		entity.WithPosition(x, 0, 0),
	)
}

// translationX reads the packed X translation of the instance at the given
// index: row 0, column 3 of a row-major matrix.
func translationX(data []byte, instance int) float32 {
	off := instance*InstanceStride + 3*4
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestRegisterSceneGroupsByMeshWithinPartition(t *testing.T) {
	eng := NewEngine(newTestStore(t), 2)

	static := []entity.Entity{
		newMeshEntity("s1", "A", 1),
		newMeshEntity("s2", "A", 2),
		newMeshEntity("s3", "B", 3),
		newMeshEntity("s4", "A", 4),
		newMeshEntity("s5", "B", 5),
	}
	nonStatic := []entity.Entity{newMeshEntity("n1", "A", 6)}

	eng.RegisterScene(static, nonStatic, true)

	batches := eng.Batches()
	require.Len(t, batches, 3)

	assert.Equal(t, Batch{MeshID: "A", ShaderID: shader.DefaultID, InstanceOffset: 0, InstanceCount: 3, Static: true}, batches[0])
	assert.Equal(t, Batch{MeshID: "B", ShaderID: shader.DefaultID, InstanceOffset: 3, InstanceCount: 2, Static: true}, batches[1])
	assert.Equal(t, Batch{MeshID: "A", ShaderID: shader.DefaultID, InstanceOffset: 5, InstanceCount: 1, Static: false}, batches[2])
	assert.EqualValues(t, 6, eng.InstanceCount())
}

func TestShaderChangeSplitsSameMeshRun(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	custom := newMeshEntity("custom", "A", 0)
	custom.AddComponent(shader.NewComponent(shader.NewProgram("glow")))

	eng.RegisterScene([]entity.Entity{
		newMeshEntity("plain1", "A", 0),
		custom,
		newMeshEntity("plain2", "A", 0),
	}, nil, true)

	batches := eng.Batches()
	require.Len(t, batches, 2, "same mesh, different shader cannot share a draw")
	assert.Equal(t, shader.DefaultID, batches[0].ShaderID)
	assert.EqualValues(t, 2, batches[0].InstanceCount)
	assert.Equal(t, "glow", batches[1].ShaderID)
	assert.EqualValues(t, 1, batches[1].InstanceCount)
}

func TestStableSortKeepsInsertionOrderWithinMesh(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	static := []entity.Entity{
		newMeshEntity("b-first", "B", 1),
		newMeshEntity("a-first", "A", 10),
		newMeshEntity("a-second", "A", 20),
	}
	writes := eng.RegisterScene(static, nil, true)
	require.Len(t, writes, 1)

	data := writes[0].Data
	require.Len(t, data, 3*InstanceStride)
	assert.Equal(t, float32(10), translationX(data, 0), "mesh A sorts first")
	assert.Equal(t, float32(20), translationX(data, 1), "insertion order kept within mesh A")
	assert.Equal(t, float32(1), translationX(data, 2))
}

func TestStaticRegionUntouchedWithoutUpdateStatic(t *testing.T) {
	eng := NewEngine(newTestStore(t), 2)

	staticEnt := newMeshEntity("s1", "A", 0)
	moving := newMeshEntity("n1", "A", 0)

	writes := eng.RegisterScene([]entity.Entity{staticEnt}, []entity.Entity{moving}, true)
	require.Len(t, writes, 2)
	assert.EqualValues(t, 0, writes[0].Offset)
	assert.EqualValues(t, InstanceStride, writes[1].Offset)

	staticBefore := append([]byte(nil), eng.StaticBytes()...)

	// Mutate both entities; only the non-static range may change.
	staticEnt.SetPosition(common.Vec3{X: 99})
	moving.SetPosition(common.Vec3{X: 5})

	writes = eng.RegisterScene([]entity.Entity{staticEnt}, []entity.Entity{moving}, false)
	require.Len(t, writes, 1, "only the non-static range is written")
	assert.EqualValues(t, InstanceStride, writes[0].Offset)
	assert.Equal(t, float32(5), translationX(writes[0].Data, 0))

	assert.True(t, bytes.Equal(staticBefore, eng.StaticBytes()),
		"static region must stay byte-identical without an explicit static update")
}

func TestStaticRegionRepackedOnRequest(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	staticEnt := newMeshEntity("s1", "A", 1)
	eng.RegisterScene([]entity.Entity{staticEnt}, nil, true)

	staticEnt.SetPosition(common.Vec3{X: 42})
	writes := eng.RegisterScene([]entity.Entity{staticEnt}, nil, true)
	require.Len(t, writes, 1)
	assert.EqualValues(t, 0, writes[0].Offset)
	assert.Equal(t, float32(42), translationX(writes[0].Data, 0))
}

func TestEmptyPartitionsProduceNoWrites(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	writes := eng.RegisterScene(nil, nil, true)
	assert.Empty(t, writes)
	assert.Empty(t, eng.Batches())
	assert.EqualValues(t, 0, eng.InstanceCount())
}

func TestUnknownMeshAndHiddenEntitiesAreSkipped(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	hidden := entity.NewEntity(entity.WithID("h"), entity.WithMesh("A"), entity.WithHidden(true))
	unmeshed := entity.NewEntity(entity.WithID("u"))
	missing := newMeshEntity("m", "no-such-mesh", 0)
	ok := newMeshEntity("ok", "A", 0)

	eng.RegisterScene([]entity.Entity{hidden, unmeshed, missing, ok}, nil, true)

	batches := eng.Batches()
	require.Len(t, batches, 1)
	assert.EqualValues(t, 1, batches[0].InstanceCount)
}

func TestParallelPackingMatchesSequential(t *testing.T) {
	// Enough entities to cross the parallel threshold.
	count := parallelThreshold * 2
	entities := make([]entity.Entity, count)
	for i := range entities {
		entities[i] = newMeshEntity(fmt.Sprintf("e%04d", i), "A", float32(i))
	}

	eng := NewEngine(newTestStore(t), 4)
	eng.RegisterScene(entities, nil, true)

	batches := eng.Batches()
	require.Len(t, batches, 1)
	assert.EqualValues(t, count, batches[0].InstanceCount)

	data := eng.StaticBytes()
	require.Len(t, data, count*InstanceStride)
	for i := 0; i < count; i++ {
		assert.Equal(t, float32(i), translationX(data, i), "instance %d translation", i)
	}
}

func TestNonStaticOffsetFollowsStaticRegion(t *testing.T) {
	eng := NewEngine(newTestStore(t), 1)

	static := []entity.Entity{
		newMeshEntity("s1", "A", 0),
		newMeshEntity("s2", "B", 0),
		newMeshEntity("s3", "B", 0),
	}
	nonStatic := []entity.Entity{newMeshEntity("n1", "B", 7)}

	writes := eng.RegisterScene(static, nonStatic, true)
	require.Len(t, writes, 2)
	assert.EqualValues(t, 3*InstanceStride, writes[1].Offset,
		"non-static bytes start right after the static region")

	batches := eng.Batches()
	require.Len(t, batches, 3)
	assert.EqualValues(t, 3, batches[2].InstanceOffset)
}
