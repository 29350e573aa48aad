package shader

import "github.com/Cultered/Webcraft-sub001/engine/entity"

// Component attaches a shader program to an entity. The renderer looks it up
// under the shader component key; entities without one use the default
// program.
type Component struct {
	program Program

	// OnStart, when set, runs once on attach. Typical use is registering
	// externally-loaded textures through ctx.Textures before the program's
	// texture specs are first resolved.
	OnStart func(ctx *entity.Context, e entity.Entity)

	// OnUpdate, when set, runs every tick. Typical use is pushing animated
	// values into the program's custom buffers. Attaching a component with
	// OnUpdate set makes the owning entity non-static.
	OnUpdate func(ctx *entity.Context, e entity.Entity, deltaMs float64)
}

var (
	_ entity.Component = &Component{}
	_ Provider         = &Component{}
)

// NewComponent wraps a program in an entity component.
//
// Parameters:
//   - program: the shader program to attach
//
// Returns:
//   - *Component: the component, ready for Entity.AddComponent
func NewComponent(program Program) *Component {
	return &Component{program: program}
}

// Key returns the well-known shader component key.
func (c *Component) Key() entity.ComponentKey {
	return entity.KeyShader
}

// Program returns the attached shader program.
func (c *Component) Program() Program {
	return c.program
}

// Start runs the optional OnStart hook.
func (c *Component) Start(ctx *entity.Context, e entity.Entity) {
	if c.OnStart != nil {
		c.OnStart(ctx, e)
	}
}

// animatedComponent adds the Updater capability on top of Component. It is a
// separate type so that plain shader components leave their entity static.
type animatedComponent struct {
	Component
}

var _ entity.Updater = &animatedComponent{}

// NewAnimatedComponent wraps a program in a component ticked every frame.
// The owning entity becomes non-static on attach.
//
// Parameters:
//   - program: the shader program to attach
//   - onUpdate: the per-tick hook (may be nil)
//
// Returns:
//   - entity.Component: the component, ready for Entity.AddComponent
func NewAnimatedComponent(program Program, onUpdate func(ctx *entity.Context, e entity.Entity, deltaMs float64)) entity.Component {
	c := &animatedComponent{}
	c.program = program
	c.OnUpdate = onUpdate
	return c
}

func (c *animatedComponent) Update(ctx *entity.Context, e entity.Entity, deltaMs float64) any {
	if c.OnUpdate != nil {
		c.OnUpdate(ctx, e, deltaMs)
	}
	return nil
}
