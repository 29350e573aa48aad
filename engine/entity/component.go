package entity

// ComponentKey is the stable type tag a component registers under. Each
// entity holds at most one component per key; attaching a second component
// with the same key replaces the first.
type ComponentKey string

// KeyShader is the well-known key under which shader components register.
// The renderer looks this key up on every entity to decide which shader
// program draws it; entities without one use the built-in default shader.
const KeyShader ComponentKey = "shader"

// Component is a unit of behavior or data attached to an entity.
// Capabilities beyond the key are expressed through the optional Starter and
// Updater interfaces, which are detected once at registration time.
type Component interface {
	// Key returns the stable type tag this component registers under.
	Key() ComponentKey
}

// Starter is a component that runs a hook once when it is attached to an
// entity, before any update on that component.
type Starter interface {
	Component

	// Start is invoked immediately on attach.
	//
	// Parameters:
	//   - ctx: the frame context the owning entity was built with (may be nil before the engine runs)
	//   - e: the entity the component was attached to
	Start(ctx *Context, e Entity)
}

// Updater is a component that is ticked once per frame. An entity is static
// until its first Updater is attached.
type Updater interface {
	Component

	// Update advances the component by one tick.
	//
	// Parameters:
	//   - ctx: the frame context (timing, input, texture registration)
	//   - e: the owning entity
	//   - deltaMs: elapsed time since the previous tick, in milliseconds
	//
	// Returns:
	//   - any: an arbitrary per-tick result collected by Entity.Update, or nil
	Update(ctx *Context, e Entity, deltaMs float64) any
}
