package entity

import "github.com/Cultered/Webcraft-sub001/common"

// EntityBuilderOption is a functional option for configuring an Entity during construction.
type EntityBuilderOption func(*sceneEntity)

// WithID sets the ID of the Entity.
//
// Parameters:
//   - id: unique identifier for the Entity within its scene
//
// Returns:
//   - EntityBuilderOption: functional option to set the ID
func WithID(id string) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.id = id
	}
}

// WithPosition sets the initial world-space position of the Entity.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - EntityBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.pos = common.Vec3{X: x, Y: y, Z: z}
	}
}

// WithRotation sets the initial rotation of the Entity.
//
// Parameters:
//   - r: the rotation as a unit quaternion
//
// Returns:
//   - EntityBuilderOption: functional option to set the initial rotation
func WithRotation(r common.Quat) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.rot = r
		e.invStale = true
	}
}

// WithScale sets the initial per-axis scale of the Entity.
//
// Parameters:
//   - x: the x scale factor
//   - y: the y scale factor
//   - z: the z scale factor
//
// Returns:
//   - EntityBuilderOption: functional option to set the initial scale
func WithScale(x, y, z float32) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.scale = common.Vec3{X: x, Y: y, Z: z}
	}
}

// WithMesh sets the mesh id this Entity is drawn with.
//
// Parameters:
//   - meshID: the mesh id registered in the mesh store
//
// Returns:
//   - EntityBuilderOption: functional option to set the mesh id
func WithMesh(meshID string) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.render.MeshID = meshID
	}
}

// WithHidden excludes the Entity from batching while keeping it in the scene.
//
// Parameters:
//   - hidden: true to skip the entity when batching
//
// Returns:
//   - EntityBuilderOption: functional option to set the hidden flag
func WithHidden(hidden bool) EntityBuilderOption {
	return func(e *sceneEntity) {
		e.render.Hidden = hidden
	}
}

// WithComponents attaches the given components in order during construction.
// Start hooks fire immediately, in attachment order.
//
// Parameters:
//   - components: the components to attach
//
// Returns:
//   - EntityBuilderOption: functional option to attach the components
func WithComponents(components ...Component) EntityBuilderOption {
	return func(e *sceneEntity) {
		for _, c := range components {
			e.AddComponent(c)
		}
	}
}

// NewEntity creates a new Entity with the provided options applied in order.
// The defaults are the origin position, the identity rotation, and unit scale.
//
// Parameters:
//   - opts: variadic EntityBuilderOption to configure the Entity
//
// Returns:
//   - Entity: the configured Entity
func NewEntity(opts ...EntityBuilderOption) Entity {
	e := &sceneEntity{
		rot:    common.QuatIdentity(),
		invRot: common.QuatIdentity(),
		scale:  common.One(),
		static: true,
		byKey:  make(map[ComponentKey]*componentEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
