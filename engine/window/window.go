package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the platform surface the renderer presents to. It owns the
// native window handle, pumps the OS event loop and forwards input events
// to registered callbacks.
type Window interface {
	// SetUpdateCallback registers a function invoked once per event-loop
	// iteration, after pending OS events have been dispatched.
	SetUpdateCallback(callback func())

	// SetResizeCallback registers a function invoked when the framebuffer
	// size changes.
	//
	// Parameters:
	//   - callback: receives the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback registers a function invoked on mouse wheel events.
	// Positive deltas scroll up.
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback registers a function invoked on key press and repeat.
	//
	// Parameters:
	//   - callback: receives the platform key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback registers a function invoked on key release.
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseButtonCallback registers a function invoked on mouse button
	// press and release.
	//
	// Parameters:
	//   - callback: receives the button index, whether it was pressed, and
	//     the cursor position at the time of the event
	SetMouseButtonCallback(callback func(button uint32, pressed bool, x, y int32))

	// SetMouseMoveCallback registers a function invoked when the cursor moves.
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns the platform-specific descriptor used to
	// create a WebGPU surface for this window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil before the native
	//     window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and has not been asked
	// to close.
	IsRunning() bool

	// Close destroys the native window and releases platform resources.
	Close() error

	// ProcessMessages runs the event loop until the window closes, calling
	// the update callback each iteration. Must run on the thread that
	// created the window.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// desktopWindow implements Window on top of GLFW.
type desktopWindow struct {
	title     string
	width     int
	height    int
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int
	resizable bool

	native *nativeWindow

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onKeyUp       func(keyCode uint32)
	onMouseButton func(button uint32, pressed bool, x, y int32)
	onMouseMove   func(x, y int32)
}

var _ Window = &desktopWindow{}

// NewWindow creates and opens a desktop window.
// Applies defaults first, then each option in order, then spawns the
// native window. Panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &desktopWindow{
		title:     "Webcraft",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := w.open(); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *desktopWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *desktopWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *desktopWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *desktopWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *desktopWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *desktopWindow) SetMouseButtonCallback(callback func(button uint32, pressed bool, x, y int32)) {
	w.onMouseButton = callback
}

func (w *desktopWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *desktopWindow) Width() int {
	return w.width
}

func (w *desktopWindow) Height() int {
	return w.height
}
