package postprocess

import (
	"sort"
	"sync"

	"github.com/Cultered/Webcraft-sub001/engine/renderer/shader"
)

// Pass is one full-screen shader stage in the post-processing chain. Each
// enabled pass reads the previous pass's output; a pass that needs the
// untouched scene render additionally receives it as a second input texture.
type Pass interface {
	// ID returns the pass identifier, unique within a chain. It doubles as
	// the pipeline cache key for the pass's shader.
	ID() string

	// FragmentCode returns the WGSL fragment stage source.
	FragmentCode() string

	// Buffers returns the pass's custom buffer specs (group 1).
	Buffers() []*shader.BufferSpec

	// Enabled reports whether the pass executes. May be toggled between
	// frames at any time.
	Enabled() bool

	// SetEnabled toggles the pass; effective from the next frame.
	SetEnabled(enabled bool)

	// Order returns the pass's sort key. Enabled passes execute in ascending
	// order; ties keep chain insertion order.
	Order() int

	// SetOrder changes the sort key; effective from the next frame.
	SetOrder(order int)

	// NeedsSceneTexture reports whether the pass receives the original scene
	// render as a second input.
	NeedsSceneTexture() bool

	// SetBufferData replaces a custom buffer's contents, like
	// shader.Program.SetBufferData.
	SetBufferData(binding uint32, data any) error
}

type pass struct {
	mu sync.Mutex

	id           string
	fragmentCode string
	buffers      []*shader.BufferSpec
	enabled      bool
	order        int
	needsScene   bool
}

var _ Pass = &pass{}

func (p *pass) ID() string {
	return p.id
}

func (p *pass) FragmentCode() string {
	return p.fragmentCode
}

func (p *pass) Buffers() []*shader.BufferSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*shader.BufferSpec, len(p.buffers))
	copy(out, p.buffers)
	return out
}

func (p *pass) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *pass) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

func (p *pass) Order() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order
}

func (p *pass) SetOrder(order int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = order
}

func (p *pass) NeedsSceneTexture() bool {
	return p.needsScene
}

func (p *pass) SetBufferData(binding uint32, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.buffers {
		if b.Binding == binding {
			b.Data = data
			return nil
		}
	}
	return &UnknownBindingError{PassID: p.id, Binding: binding}
}

// UnknownBindingError reports a SetBufferData call against a binding the
// pass never declared.
type UnknownBindingError struct {
	PassID  string
	Binding uint32
}

func (e *UnknownBindingError) Error() string {
	return "postprocess pass " + e.PassID + ": no custom buffer declared at that binding"
}

// Chain is the ordered, mutable list of post-processing passes. The
// execution order is re-derived every frame from the passes' current order
// values, so toggling and reordering between frames needs no chain rebuild.
type Chain interface {
	// Add appends a pass to the chain. Adding an id twice replaces the
	// previous pass while keeping its insertion slot (the tie-break key).
	Add(p Pass)

	// Remove detaches the pass with the given id, if present.
	Remove(id string)

	// Get returns the pass with the given id, or false if none is.
	Get(id string) (Pass, bool)

	// Enabled returns the enabled passes sorted ascending by order, ties in
	// insertion order. Computed fresh on every call.
	Enabled() []Pass

	// All returns every pass in insertion order.
	All() []Pass
}

type chain struct {
	mu     sync.Mutex
	passes []Pass
}

var _ Chain = &chain{}

// NewChain creates an empty post-processing chain.
//
// Returns:
//   - Chain: the new chain
func NewChain() Chain {
	return &chain{}
}

func (c *chain) Add(p Pass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.passes {
		if existing.ID() == p.ID() {
			c.passes[i] = p
			return
		}
	}
	c.passes = append(c.passes, p)
}

func (c *chain) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.passes {
		if p.ID() == id {
			c.passes = append(c.passes[:i], c.passes[i+1:]...)
			return
		}
	}
}

func (c *chain) Get(id string) (Pass, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.passes {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

func (c *chain) Enabled() []Pass {
	c.mu.Lock()
	enabled := make([]Pass, 0, len(c.passes))
	for _, p := range c.passes {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	c.mu.Unlock()

	// Stable sort keeps insertion order for equal order values, so ties are
	// deterministic across frames.
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Order() < enabled[j].Order()
	})
	return enabled
}

func (c *chain) All() []Pass {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Pass, len(c.passes))
	copy(out, c.passes)
	return out
}
