package entity

import (
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
)

// RenderInfo is the fixed set of renderer-consumed metadata an entity
// carries. The shader program, if any, is discovered separately through the
// KeyShader component.
type RenderInfo struct {
	// MeshID names the mesh this entity is drawn with. Empty means the
	// entity is not drawn.
	MeshID string

	// Hidden excludes the entity from batching without detaching it from
	// the scene.
	Hidden bool
}

// Entity is a scene object: an id, a transform, renderer metadata, and an
// ordered registry of components. At most one component is registered per
// ComponentKey; attaching a second replaces the first in place.
type Entity interface {
	// ID returns the entity's identifier, unique within a scene.
	ID() string

	// Position returns the world-space translation.
	Position() common.Vec3

	// SetPosition replaces the world-space translation.
	SetPosition(p common.Vec3)

	// Rotation returns the world-space rotation.
	Rotation() common.Quat

	// SetRotation replaces the rotation and marks the cached inverse
	// rotation stale.
	SetRotation(r common.Quat)

	// Scale returns the per-axis scale.
	Scale() common.Vec3

	// SetScale replaces the per-axis scale.
	SetScale(s common.Vec3)

	// InverseRotation returns the inverse of the current rotation. The value
	// is cached: it is recomputed only when the rotation changed since the
	// previous call.
	InverseRotation() common.Quat

	// Render returns the renderer metadata for this entity.
	Render() RenderInfo

	// SetRender replaces the renderer metadata.
	SetRender(info RenderInfo)

	// Static reports whether the entity is never ticked. An entity is static
	// while no attached component implements Updater; attaching one makes it
	// non-static, and only component removal re-evaluates the flag.
	Static() bool

	// AddComponent registers c under its key, replacing any prior component
	// with the same key while keeping its registration-order slot. If c
	// implements Starter its Start hook runs immediately, before any update.
	// The component is returned unchanged to allow chaining.
	AddComponent(c Component) Component

	// Component returns the component registered under key, or false if
	// none is.
	Component(key ComponentKey) (Component, bool)

	// RemoveComponent detaches the component registered under key, if any,
	// and re-evaluates the static flag.
	RemoveComponent(key ComponentKey)

	// Update ticks every registered component in registration order and
	// returns their results, with a nil slot for each component that has no
	// update capability. If the entity is static no update occurs and the
	// second return is false.
	Update(ctx *Context, deltaMs float64) ([]any, bool)

	// BindContext sets the context passed to component hooks that fire
	// outside a tick, such as Start during AddComponent.
	BindContext(ctx *Context)
}

type componentEntry struct {
	key       ComponentKey
	component Component
	updater   Updater // nil when the component has no update capability
}

type sceneEntity struct {
	mu sync.Mutex

	id     string
	pos    common.Vec3
	rot    common.Quat
	scale  common.Vec3
	render RenderInfo

	// Inverse-rotation cache: invRot is valid only while invStale is false.
	// Every rotation mutation sets invStale; InverseRotation clears it.
	invRot        common.Quat
	invStale      bool
	invRecomputes uint64

	static  bool
	entries []*componentEntry
	byKey   map[ComponentKey]*componentEntry

	ctx *Context
}

var _ Entity = &sceneEntity{}

func (e *sceneEntity) ID() string {
	return e.id
}

func (e *sceneEntity) Position() common.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *sceneEntity) SetPosition(p common.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = p
}

func (e *sceneEntity) Rotation() common.Quat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rot
}

func (e *sceneEntity) SetRotation(r common.Quat) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rot = r
	e.invStale = true
}

func (e *sceneEntity) Scale() common.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scale
}

func (e *sceneEntity) SetScale(s common.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scale = s
}

func (e *sceneEntity) InverseRotation() common.Quat {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invStale {
		e.invRot = e.rot.Inverse()
		e.invStale = false
		e.invRecomputes++
	}
	return e.invRot
}

func (e *sceneEntity) Render() RenderInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render
}

func (e *sceneEntity) SetRender(info RenderInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render = info
}

func (e *sceneEntity) Static() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.static
}

func (e *sceneEntity) AddComponent(c Component) Component {
	updater, _ := c.(Updater)

	e.mu.Lock()
	if existing, ok := e.byKey[c.Key()]; ok {
		// Replace in place, keeping the original registration-order slot.
		existing.component = c
		existing.updater = updater
	} else {
		entry := &componentEntry{key: c.Key(), component: c, updater: updater}
		e.entries = append(e.entries, entry)
		e.byKey[c.Key()] = entry
	}
	if updater != nil {
		e.static = false
	}
	ctx := e.ctx
	e.mu.Unlock()

	// Start runs outside the lock so the hook may call back into the entity.
	if starter, ok := c.(Starter); ok {
		starter.Start(ctx, e)
	}
	return c
}

func (e *sceneEntity) Component(key ComponentKey) (Component, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.byKey[key]
	if !ok {
		return nil, false
	}
	return entry.component, true
}

func (e *sceneEntity) RemoveComponent(key ComponentKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byKey[key]; !ok {
		return
	}
	delete(e.byKey, key)
	for i, entry := range e.entries {
		if entry.key == key {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			break
		}
	}

	// Removal is the one mutation that may promote an entity back to static.
	static := true
	for _, entry := range e.entries {
		if entry.updater != nil {
			static = false
			break
		}
	}
	e.static = static
}

func (e *sceneEntity) Update(ctx *Context, deltaMs float64) ([]any, bool) {
	e.mu.Lock()
	if e.static {
		e.mu.Unlock()
		return nil, false
	}
	entries := make([]*componentEntry, len(e.entries))
	copy(entries, e.entries)
	e.mu.Unlock()

	// Callbacks run outside the lock; components mutate their own entity.
	results := make([]any, len(entries))
	for i, entry := range entries {
		if entry.updater == nil {
			results[i] = nil
			continue
		}
		results[i] = entry.updater.Update(ctx, e, deltaMs)
	}
	return results, true
}

func (e *sceneEntity) BindContext(ctx *Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = ctx
}
