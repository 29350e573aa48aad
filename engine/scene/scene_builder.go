package scene

import (
	"github.com/Cultered/Webcraft-sub001/common"
	"github.com/Cultered/Webcraft-sub001/engine/entity"
	"github.com/Cultered/Webcraft-sub001/engine/renderer"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *sceneImpl)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for ticking and rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.active = active
	}
}

// WithCamera sets the scene's camera entity.
//
// Parameters:
//   - cam: the camera entity
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam entity.Entity) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.camera = cam
	}
}

// WithEntities adds initial entities to the scene, in the given order.
//
// Parameters:
//   - entities: the entities to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEntities(entities ...entity.Entity) SceneBuilderOption {
	return func(s *sceneImpl) {
		for _, e := range entities {
			if e == nil {
				continue
			}
			s.byID[e.ID()] = len(s.entities)
			s.entities = append(s.entities, e)
		}
	}
}

// WithLightDirection sets the initial directional light.
//
// Parameters:
//   - dir: world-space light direction
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLightDirection(dir common.Vec3) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.lightDir = dir
	}
}

// NewScene creates a Scene rendering through r. The scene starts active and
// with the static region marked dirty so the first render packs everything.
//
// Parameters:
//   - r: the renderer the scene draws through
//   - options: optional configuration
//
// Returns:
//   - Scene: the new scene
func NewScene(r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if r == nil {
		panic("scene: a renderer is required")
	}
	s := &sceneImpl{
		renderer:    r,
		active:      true,
		byID:        make(map[string]int),
		lightDir:    common.Vec3{X: 0.3, Y: -1, Z: 0.2},
		staticDirty: true,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}
