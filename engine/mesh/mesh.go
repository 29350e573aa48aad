package mesh

import (
	"fmt"
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
)

// VertexStride is the byte size of one interleaved vertex:
// position vec3 + normal vec3 + uv vec2, all float32.
const VertexStride = 32

// Data holds the raw CPU-side arrays an asset loader supplies for one mesh.
// Vertices and Normals are packed xyz triples, UVs are packed uv pairs.
// Normals and UVs may be empty; they are zero-filled during interleaving.
type Data struct {
	Vertices []float32
	Normals  []float32
	UVs      []float32
	Indices  []uint32
}

// IndicesFromUint16 widens a 16-bit index array to the store's native
// 32-bit form.
//
// Parameters:
//   - indices: the 16-bit triangle indices
//
// Returns:
//   - []uint32: the widened indices
func IndicesFromUint16(indices []uint16) []uint32 {
	out := make([]uint32, len(indices))
	for i, v := range indices {
		out[i] = uint32(v)
	}
	return out
}

// Mesh is an immutable, GPU-upload-ready mesh: interleaved vertex bytes and
// index bytes, keyed by id in the Store. Many entities share one Mesh by id;
// none own it.
type Mesh interface {
	// ID returns the mesh identifier.
	ID() string

	// VertexData returns the interleaved vertex bytes (VertexStride per vertex).
	VertexData() []byte

	// IndexData returns the uint32 index bytes.
	IndexData() []byte

	// IndexCount returns the number of indices.
	IndexCount() int

	// VertexCount returns the number of vertices.
	VertexCount() int
}

type storedMesh struct {
	id          string
	vertexData  []byte
	indexData   []byte
	indexCount  int
	vertexCount int
}

var _ Mesh = &storedMesh{}

func (m *storedMesh) ID() string         { return m.id }
func (m *storedMesh) VertexData() []byte { return m.vertexData }
func (m *storedMesh) IndexData() []byte  { return m.indexData }
func (m *storedMesh) IndexCount() int    { return m.indexCount }
func (m *storedMesh) VertexCount() int   { return m.vertexCount }

// Store maps mesh ids to uploaded meshes. Uploads are idempotent: the first
// upload of an id wins and later uploads of the same id are ignored, so
// concurrent producers never double-allocate.
type Store interface {
	// Upload validates and interleaves the given data and registers it under
	// id. A second upload of the same id is a no-op returning the existing
	// mesh.
	//
	// Parameters:
	//   - id: the mesh identifier
	//   - data: the raw vertex/normal/uv/index arrays
	//
	// Returns:
	//   - Mesh: the stored mesh for id
	//   - error: error if the data arrays are malformed
	Upload(id string, data Data) (Mesh, error)

	// UploadAll uploads every entry of the map, stopping at the first error.
	//
	// Parameters:
	//   - meshes: mesh data keyed by id
	//
	// Returns:
	//   - error: the first upload error, if any
	UploadAll(meshes map[string]Data) error

	// Get returns the mesh registered under id, or false if none is.
	Get(id string) (Mesh, bool)

	// IDs returns the ids of all uploaded meshes, in no particular order.
	IDs() []string
}

type meshStore struct {
	mu     sync.RWMutex
	meshes map[string]*storedMesh
}

var _ Store = &meshStore{}

// NewStore creates an empty mesh store.
//
// Returns:
//   - Store: the new store
func NewStore() Store {
	return &meshStore{meshes: make(map[string]*storedMesh)}
}

var (
	defaultStore     Store
	defaultStoreOnce sync.Once
)

// DefaultStore returns the process-wide mesh store. All renderers share it
// unless explicitly given their own store, so meshes uploaded once are
// visible everywhere.
//
// Returns:
//   - Store: the shared store
func DefaultStore() Store {
	defaultStoreOnce.Do(func() {
		defaultStore = NewStore()
	})
	return defaultStore
}

func (s *meshStore) Upload(id string, data Data) (Mesh, error) {
	if id == "" {
		return nil, fmt.Errorf("mesh id must not be empty")
	}

	s.mu.RLock()
	existing, ok := s.meshes[id]
	s.mu.RUnlock()
	if ok {
		return existing, nil
	}

	interleaved, vertexCount, err := interleave(id, data)
	if err != nil {
		return nil, err
	}
	for _, idx := range data.Indices {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("mesh %s: index %d out of range (%d vertices)", id, idx, vertexCount)
		}
	}

	m := &storedMesh{
		id:          id,
		vertexData:  common.SliceToBytes(interleaved),
		indexData:   common.SliceToBytes(data.Indices),
		indexCount:  len(data.Indices),
		vertexCount: vertexCount,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if winner, ok := s.meshes[id]; ok {
		// Lost the race; the first upload wins.
		return winner, nil
	}
	s.meshes[id] = m
	return m, nil
}

func (s *meshStore) UploadAll(meshes map[string]Data) error {
	for id, data := range meshes {
		if _, err := s.Upload(id, data); err != nil {
			return err
		}
	}
	return nil
}

func (s *meshStore) Get(id string) (Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[id]
	if !ok {
		return nil, false
	}
	return m, true
}

func (s *meshStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.meshes))
	for id := range s.meshes {
		ids = append(ids, id)
	}
	return ids
}

// interleave packs the separate attribute arrays into the position/normal/uv
// vertex layout. Missing normals or UVs are zero-filled.
func interleave(id string, data Data) ([]float32, int, error) {
	if len(data.Vertices) == 0 || len(data.Vertices)%3 != 0 {
		return nil, 0, fmt.Errorf("mesh %s: vertex array length %d is not a positive multiple of 3", id, len(data.Vertices))
	}
	vertexCount := len(data.Vertices) / 3

	if len(data.Normals) != 0 && len(data.Normals) != len(data.Vertices) {
		return nil, 0, fmt.Errorf("mesh %s: normal array length %d does not match %d vertices", id, len(data.Normals), vertexCount)
	}
	if len(data.UVs) != 0 && len(data.UVs) != vertexCount*2 {
		return nil, 0, fmt.Errorf("mesh %s: uv array length %d does not match %d vertices", id, len(data.UVs), vertexCount)
	}

	out := make([]float32, 0, vertexCount*8)
	for v := 0; v < vertexCount; v++ {
		out = append(out, data.Vertices[v*3], data.Vertices[v*3+1], data.Vertices[v*3+2])
		if len(data.Normals) != 0 {
			out = append(out, data.Normals[v*3], data.Normals[v*3+1], data.Normals[v*3+2])
		} else {
			out = append(out, 0, 0, 0)
		}
		if len(data.UVs) != 0 {
			out = append(out, data.UVs[v*2], data.UVs[v*2+1])
		} else {
			out = append(out, 0, 0)
		}
	}
	return out, vertexCount, nil
}
