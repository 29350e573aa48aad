package entity

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cultered/Webcraft-sub001/common"
)

type dataComponent struct {
	key ComponentKey
	tag string
}

func (c *dataComponent) Key() ComponentKey { return c.key }

type tickComponent struct {
	key     ComponentKey
	started int
	ticks   int
	result  any
}

func (c *tickComponent) Key() ComponentKey { return c.key }

func (c *tickComponent) Start(_ *Context, _ Entity) { c.started++ }

func (c *tickComponent) Update(_ *Context, _ Entity, _ float64) any {
	c.ticks++
	return c.result
}

func TestStaticFlagFollowsUpdateCapability(t *testing.T) {
	e := NewEntity(WithID("e1"))
	assert.True(t, e.Static(), "entity with no components starts static")

	e.AddComponent(&dataComponent{key: "tag"})
	assert.True(t, e.Static(), "data-only component keeps the entity static")

	e.AddComponent(&tickComponent{key: "spin"})
	assert.False(t, e.Static(), "updater component makes the entity non-static")

	e.AddComponent(&dataComponent{key: "tag2"})
	assert.False(t, e.Static(), "further data components never flip it back")
}

func TestRemoveComponentReevaluatesStatic(t *testing.T) {
	e := NewEntity()
	e.AddComponent(&tickComponent{key: "spin"})
	require.False(t, e.Static())

	e.RemoveComponent("spin")
	assert.True(t, e.Static(), "removing the only updater promotes back to static")
}

func TestUpdateOnStaticEntityIsNoOp(t *testing.T) {
	e := NewEntity()
	results, updated := e.Update(nil, 16)
	assert.False(t, updated)
	assert.Nil(t, results)

	e.AddComponent(&dataComponent{key: "tag"})
	results, updated = e.Update(nil, 16)
	assert.False(t, updated, "static entity with data-only components still no-ops")
	assert.Nil(t, results)
}

func TestUpdateReturnsResultsInRegistrationOrder(t *testing.T) {
	e := NewEntity()
	e.AddComponent(&tickComponent{key: "a", result: "first"})
	e.AddComponent(&dataComponent{key: "b"})
	e.AddComponent(&tickComponent{key: "c", result: "third"})

	results, updated := e.Update(nil, 16)
	require.True(t, updated)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0])
	assert.Nil(t, results[1], "component without update capability yields a nil slot")
	assert.Equal(t, "third", results[2])
}

func TestAddComponentReplacesSameKeyInPlace(t *testing.T) {
	e := NewEntity()
	first := &tickComponent{key: "a", result: 1}
	second := &tickComponent{key: "a", result: 2}
	e.AddComponent(first)
	e.AddComponent(&tickComponent{key: "b", result: 10})
	e.AddComponent(second)

	got, ok := e.Component("a")
	require.True(t, ok)
	assert.Same(t, second, got)

	// The replaced component keeps its original slot in update order.
	results, updated := e.Update(nil, 16)
	require.True(t, updated)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0])
	assert.Equal(t, 10, results[1])
	assert.Equal(t, 0, first.ticks, "replaced component is no longer ticked")
}

func TestComponentLookupMiss(t *testing.T) {
	e := NewEntity()
	got, ok := e.Component("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStartRunsOnceOnAttach(t *testing.T) {
	e := NewEntity()
	c := &tickComponent{key: "spin"}
	returned := e.AddComponent(c)
	assert.Same(t, c, returned, "AddComponent returns the component for chaining")
	assert.Equal(t, 1, c.started)
	assert.Equal(t, 0, c.ticks, "start precedes any update")
}

func TestInverseRotationRoundTrip(t *testing.T) {
	e := NewEntity()
	rot := common.QuatFromAxisAngle(common.Vec3{X: 0.3, Y: 1, Z: -0.2}, 1.3)
	e.SetRotation(rot)

	inv := e.InverseRotation()
	id := rot.Mul(inv)
	assert.InDelta(t, 0, id.X, 1e-6)
	assert.InDelta(t, 0, id.Y, 1e-6)
	assert.InDelta(t, 0, id.Z, 1e-6)
	assert.InDelta(t, 1, id.W, 1e-6)
}

func TestInverseRotationIsCached(t *testing.T) {
	e := NewEntity().(*sceneEntity)
	e.SetRotation(common.QuatFromAxisAngle(common.Vec3{Y: 1}, math32.Pi/3))

	first := e.InverseRotation()
	require.EqualValues(t, 1, e.invRecomputes)

	second := e.InverseRotation()
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, e.invRecomputes, "repeated request must not recompute")

	e.SetRotation(common.QuatFromAxisAngle(common.Vec3{Y: 1}, math32.Pi/2))
	e.InverseRotation()
	assert.EqualValues(t, 2, e.invRecomputes, "rotation change invalidates the cache")
}

func TestBuilderDefaults(t *testing.T) {
	e := NewEntity(WithID("cube"), WithMesh("cube"), WithPosition(1, 2, 3))
	assert.Equal(t, "cube", e.ID())
	assert.Equal(t, common.Vec3{X: 1, Y: 2, Z: 3}, e.Position())
	assert.Equal(t, common.QuatIdentity(), e.Rotation())
	assert.Equal(t, common.One(), e.Scale())
	assert.Equal(t, "cube", e.Render().MeshID)
	assert.False(t, e.Render().Hidden)
}
