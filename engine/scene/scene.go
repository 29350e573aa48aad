package scene

import (
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/renderer"
)

// Scene owns a set of entities, the camera, and the bookkeeping the renderer
// needs each tick: the static/non-static partition and the static-dirty flag
// that controls when the static instance region is repacked. Thread-safe.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently ticked and rendered.
	Active() bool

	// SetActive sets whether this scene is ticked and rendered.
	SetActive(active bool)

	// Camera returns the camera entity, or nil if none is set.
	Camera() entity.Entity

	// SetCamera replaces the camera entity. The camera is registered with the
	// renderer every tick; registration is idempotent while its transform is
	// unchanged.
	SetCamera(cam entity.Entity)

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Add inserts an entity. Insertion order is preserved and decides batch
	// tie-breaking for equal mesh ids. Adding marks the static region dirty.
	//
	// Parameters:
	//   - e: the entity to add
	Add(e entity.Entity)

	// Get retrieves an entity by id, or nil when absent.
	Get(id string) entity.Entity

	// Remove deletes the entity with the given id. Removing marks the static
	// region dirty.
	Remove(id string)

	// Count returns the number of entities in the scene.
	Count() int

	// MarkStaticDirty requests a repack of the static instance region on the
	// next tick. Callers that mutate a static entity's transform must call
	// this; the scene does not watch static transforms.
	MarkStaticDirty()

	// SetLightDirection sets the directional light uploaded with the frame
	// globals.
	SetLightDirection(dir common.Vec3)

	// Update runs one logic tick: every non-static entity's components update
	// in registration order with the given context.
	//
	// Parameters:
	//   - ctx: the frame context handed to component updates
	//   - deltaMs: elapsed time since the previous tick in milliseconds
	Update(ctx *entity.Context, deltaMs float64)

	// Render registers the camera and the current partition with the
	// renderer and draws one frame. The static region is repacked only when
	// the partition changed or MarkStaticDirty was called since the last
	// render.
	//
	// Returns:
	//   - error: error if scene registration or the draw fails
	Render() error
}

type sceneImpl struct {
	mu sync.Mutex

	name   string
	active bool

	renderer renderer.Renderer
	camera   entity.Entity

	entities []entity.Entity
	byID     map[string]int

	lightDir    common.Vec3
	timeSeconds float32

	staticDirty bool
	lastStatic  []string // static partition ids of the previous render
}

var _ Scene = &sceneImpl{}

func (s *sceneImpl) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *sceneImpl) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *sceneImpl) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *sceneImpl) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *sceneImpl) Camera() entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *sceneImpl) SetCamera(cam entity.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *sceneImpl) Renderer() renderer.Renderer {
	return s.renderer
}

func (s *sceneImpl) Add(e entity.Entity) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byID[e.ID()]; ok {
		s.entities[idx] = e
	} else {
		s.byID[e.ID()] = len(s.entities)
		s.entities = append(s.entities, e)
	}
	s.staticDirty = true
}

func (s *sceneImpl) Get(id string) entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.byID[id]; ok {
		return s.entities[idx]
	}
	return nil
}

func (s *sceneImpl) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return
	}
	s.entities = append(s.entities[:idx], s.entities[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.entities); i++ {
		s.byID[s.entities[i].ID()] = i
	}
	s.staticDirty = true
}

func (s *sceneImpl) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

func (s *sceneImpl) MarkStaticDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staticDirty = true
}

func (s *sceneImpl) SetLightDirection(dir common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lightDir = dir
}

func (s *sceneImpl) Update(ctx *entity.Context, deltaMs float64) {
	s.mu.Lock()
	entities := make([]entity.Entity, len(s.entities))
	copy(entities, s.entities)
	s.timeSeconds += float32(deltaMs) / 1000
	s.mu.Unlock()

	// Component callbacks run outside the scene lock so they may add or
	// remove entities.
	for _, e := range entities {
		e.BindContext(ctx)
		e.Update(ctx, deltaMs)
	}
}

// partition splits the entities into static and non-static slices, both in
// insertion order.
func (s *sceneImpl) partition() (static, nonStatic []entity.Entity) {
	for _, e := range s.entities {
		if e.Static() {
			static = append(static, e)
		} else {
			nonStatic = append(nonStatic, e)
		}
	}
	return static, nonStatic
}

func (s *sceneImpl) Render() error {
	s.mu.Lock()
	static, nonStatic := s.partition()

	// Repack the static region when explicitly requested or when the static
	// membership itself changed (an entity gained or lost an updater).
	updateStatic := s.staticDirty || len(static) != len(s.lastStatic)
	if !updateStatic {
		for i, e := range static {
			if e.ID() != s.lastStatic[i] {
				updateStatic = true
				break
			}
		}
	}
	if updateStatic {
		s.lastStatic = s.lastStatic[:0]
		for _, e := range static {
			s.lastStatic = append(s.lastStatic, e.ID())
		}
	}
	s.staticDirty = false
	cam := s.camera
	lightDir := s.lightDir
	timeSeconds := s.timeSeconds
	s.mu.Unlock()

	if cam != nil {
		s.renderer.RegisterCamera(cam)
	}
	s.renderer.SetGlobals(lightDir, timeSeconds)
	if err := s.renderer.RegisterScene(static, nonStatic, updateStatic); err != nil {
		return err
	}
	return s.renderer.Render()
}
