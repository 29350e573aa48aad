package batch

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/mesh"
	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

// InstanceStride is the byte size of one packed instance transform:
// a row-major 4x4 float32 matrix composed as T * R * S.
const InstanceStride = 64

// parallelThreshold is the entity count below which packing runs inline;
// pool dispatch overhead dominates for small scenes.
const parallelThreshold = 256

// packChunk is the number of instances one pool task packs.
const packChunk = 128

// Batch is a contiguous run of same-mesh instance transforms in the packed
// instance buffer, served by exactly one instanced draw call.
type Batch struct {
	// MeshID names the mesh every instance in this batch uses.
	MeshID string

	// ShaderID names the shader program every instance in this batch is
	// drawn with. Entities without a shader component get the default id.
	ShaderID string

	// InstanceOffset is the index of the batch's first instance in the
	// packed buffer (not a byte offset).
	InstanceOffset uint32

	// InstanceCount is the number of instances in the batch.
	InstanceCount uint32

	// Static reports which partition the batch belongs to. Static batches
	// always precede non-static ones.
	Static bool
}

// ShaderIDOf resolves the shader id an entity draws with: the id of the
// program attached under the shader component key, or the default id.
//
// Parameters:
//   - e: the entity to inspect
//
// Returns:
//   - string: the shader program id
func ShaderIDOf(e entity.Entity) string {
	if c, ok := e.Component(entity.KeyShader); ok {
		if p, ok := c.(shader.Provider); ok {
			return p.Program().ID()
		}
	}
	return shader.DefaultID
}

// Write is one pending byte range for the GPU instance buffer.
type Write struct {
	// Offset is the destination byte offset within the instance buffer.
	Offset uint64

	// Data is the bytes to upload.
	Data []byte
}

// Engine converts the live entity set into packed instance transforms and
// draw-call descriptors while avoiding GPU traffic for the static partition.
//
// The static region occupies the front of the instance buffer and is only
// repacked when a registration asks for it; registrations with updateStatic
// false reuse the cached static bytes untouched, so a caller that mutates a
// static entity's transform without requesting a static update renders stale
// data until the next static registration. The non-static region starts
// immediately after the static region and is repacked on every registration.
type Engine interface {
	// RegisterScene lays out and packs the frame's instance buffer.
	//
	// Entities within each partition are stable-sorted by mesh id (ties keep
	// input order), so each (partition, mesh) pair forms one contiguous run.
	// Entities that are hidden, have no mesh id, or reference a mesh id not
	// present in the store are skipped with a warning.
	//
	// Parameters:
	//   - staticEntities: the static partition, in insertion order
	//   - nonStaticEntities: the non-static partition, in insertion order
	//   - updateStatic: true to repack the static region
	//
	// Returns:
	//   - []Write: the byte ranges to upload this frame, static range first
	RegisterScene(staticEntities, nonStaticEntities []entity.Entity, updateStatic bool) []Write

	// Batches returns the frame's draw descriptors: static batches first,
	// then non-static, each partition in its mesh-sorted run order.
	Batches() []Batch

	// InstanceCount returns the total packed instance count, both partitions.
	InstanceCount() uint32

	// StaticBytes returns the cached static region bytes. The slice is the
	// engine's own cache; callers must not mutate it.
	StaticBytes() []byte
}

type batchEngine struct {
	mu sync.Mutex

	meshes mesh.Store
	pool   worker.DynamicWorkerPool

	staticBatches  []Batch
	staticData     []byte
	staticCount    uint32
	nonStatBatches []Batch
	nonStatCount   uint32
}

var _ Engine = &batchEngine{}

// NewEngine creates a batching engine reading mesh availability from the
// given store.
//
// Parameters:
//   - meshes: the mesh store used to validate entity mesh ids
//   - workers: the packing pool size (minimum 1)
//
// Returns:
//   - Engine: the new engine
func NewEngine(meshes mesh.Store, workers int) Engine {
	if workers < 1 {
		workers = 1
	}
	return &batchEngine{
		meshes: meshes,
		pool:   worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
}

func (b *batchEngine) RegisterScene(staticEntities, nonStaticEntities []entity.Entity, updateStatic bool) []Write {
	b.mu.Lock()
	defer b.mu.Unlock()

	var writes []Write

	if updateStatic {
		batches, data := b.pack(staticEntities, 0, true)
		b.staticBatches = batches
		b.staticData = data
		b.staticCount = uint32(len(data) / InstanceStride)
		if len(data) > 0 {
			writes = append(writes, Write{Offset: 0, Data: data})
		}
	}

	staticByteLen := uint64(b.staticCount) * InstanceStride
	batches, data := b.pack(nonStaticEntities, b.staticCount, false)
	b.nonStatBatches = batches
	b.nonStatCount = uint32(len(data) / InstanceStride)
	if len(data) > 0 {
		writes = append(writes, Write{Offset: staticByteLen, Data: data})
	}
	return writes
}

// pack sorts one partition into contiguous mesh runs and packs its instance
// transforms, returning the run descriptors and the packed bytes.
func (b *batchEngine) pack(entities []entity.Entity, baseInstance uint32, static bool) ([]Batch, []byte) {
	drawable := make([]entity.Entity, 0, len(entities))
	for _, e := range entities {
		info := e.Render()
		if info.Hidden || info.MeshID == "" {
			continue
		}
		if _, ok := b.meshes.Get(info.MeshID); !ok {
			log.Printf("batch: entity %s references unknown mesh %q, skipping", e.ID(), info.MeshID)
			continue
		}
		drawable = append(drawable, e)
	}
	if len(drawable) == 0 {
		return nil, nil
	}

	// Stable sort keeps insertion order within a (mesh, shader) group. Mesh
	// is the primary key so same-mesh runs stay adjacent and rebinds stay
	// minimal; a shader change within a mesh still has to split the run,
	// since one draw call uses one pipeline.
	sort.SliceStable(drawable, func(i, j int) bool {
		mi, mj := drawable[i].Render().MeshID, drawable[j].Render().MeshID
		if mi != mj {
			return mi < mj
		}
		return ShaderIDOf(drawable[i]) < ShaderIDOf(drawable[j])
	})

	var batches []Batch
	for i, e := range drawable {
		meshID := e.Render().MeshID
		shaderID := ShaderIDOf(e)
		last := len(batches) - 1
		if last < 0 || batches[last].MeshID != meshID || batches[last].ShaderID != shaderID {
			batches = append(batches, Batch{
				MeshID:         meshID,
				ShaderID:       shaderID,
				InstanceOffset: baseInstance + uint32(i),
				Static:         static,
			})
			last++
		}
		batches[last].InstanceCount++
	}

	return batches, b.packTransforms(drawable)
}

// packTransforms composes the row-major T*R*S matrix of every entity, in
// order, into one contiguous byte slice.
func (b *batchEngine) packTransforms(entities []entity.Entity) []byte {
	matrices := make([]float32, len(entities)*16)

	packRange := func(start, end int) {
		for i := start; i < end; i++ {
			e := entities[i]
			common.ComposeTRS(matrices[i*16:(i+1)*16], e.Position(), e.Rotation(), e.Scale())
		}
	}

	if len(entities) < parallelThreshold {
		packRange(0, len(entities))
		return common.SliceToBytes(matrices)
	}

	// Parallel packing over the worker pool. A WaitGroup provides the
	// per-frame barrier since pool.Wait() blocks until workers idle-exit,
	// which is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(entities); start += packChunk {
		end := min(start+packChunk, len(entities))
		wg.Add(1)
		s, e := start, end
		b.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				packRange(s, e)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	return common.SliceToBytes(matrices)
}

func (b *batchEngine) Batches() []Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Batch, 0, len(b.staticBatches)+len(b.nonStatBatches))
	out = append(out, b.staticBatches...)
	out = append(out, b.nonStatBatches...)
	return out
}

func (b *batchEngine) InstanceCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.staticCount + b.nonStatCount
}

func (b *batchEngine) StaticBytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.staticData
}
