package entity

import (
	"sync"

	"github.com/Cultered/Webcraft-sub001/common"
)

// TextureRegistry is the narrow slice of the renderer that components may
// touch from their hooks: registering externally-loaded image data under an
// id that shader texture specs reference.
type TextureRegistry interface {
	// AddTexture registers decoded RGBA image data under id. Registering an
	// id twice is idempotent; the first upload wins.
	AddTexture(id string, data *common.TextureStagingData)
}

// Input is the live keyboard and mouse state, written by the window thread's
// event callbacks and read by component updates on the tick loop.
type Input struct {
	mu sync.Mutex

	keysDown       map[uint32]bool
	buttonsDown    map[uint32]bool
	mouseX, mouseY int32
	scrollDelta    float32
}

// NewInput returns an empty input state.
func NewInput() *Input {
	return &Input{
		keysDown:    make(map[uint32]bool),
		buttonsDown: make(map[uint32]bool),
	}
}

// SetKey records a key press or release.
func (i *Input) SetKey(code uint32, down bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if down {
		i.keysDown[code] = true
	} else {
		delete(i.keysDown, code)
	}
}

// KeyDown reports whether the key with the given code is currently held.
func (i *Input) KeyDown(code uint32) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.keysDown[code]
}

// SetMouseButton records a mouse button press or release.
func (i *Input) SetMouseButton(button uint32, down bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if down {
		i.buttonsDown[button] = true
	} else {
		delete(i.buttonsDown, button)
	}
}

// MouseButtonDown reports whether the given mouse button is currently held.
func (i *Input) MouseButtonDown(button uint32) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.buttonsDown[button]
}

// SetMouse records the cursor position in framebuffer pixels.
func (i *Input) SetMouse(x, y int32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.mouseX, i.mouseY = x, y
}

// Mouse returns the cursor position in framebuffer pixels.
func (i *Input) Mouse() (x, y int32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mouseX, i.mouseY
}

// AddScroll accumulates vertical scroll wheel movement.
func (i *Input) AddScroll(delta float32) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.scrollDelta += delta
}

// Scroll returns the scroll amount accumulated since the last EndTick.
func (i *Input) Scroll() float32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.scrollDelta
}

// EndTick clears the per-tick accumulators. Called by the engine loop after
// component updates have run.
func (i *Input) EndTick() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.scrollDelta = 0
}

// Context carries the per-tick services and timing values that component
// hooks consume. It is created once at engine startup and passed by
// reference into every start and update call; components must not retain it
// past the call.
type Context struct {
	// DeltaMs is the elapsed time since the previous tick, in milliseconds.
	DeltaMs float64

	// Time is the total elapsed time since engine start, in seconds.
	Time float64

	// Frame is the tick counter, starting at 0.
	Frame uint64

	// Input is the input snapshot for this tick. May be nil in headless use.
	Input *Input

	// Textures lets component start hooks register image data with the
	// renderer. May be nil before the renderer is attached.
	Textures TextureRegistry
}
