package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfw.DontCare for optional size limits.
const dontCare = glfw.DontCare

// nativeWindow holds the GLFW handle and its lifetime flag.
type nativeWindow struct {
	handle  *glfw.Window
	running bool
}

// open initializes GLFW, creates the native window and wires the GLFW
// event callbacks through to the registered Window callbacks.
func (w *desktopWindow) open() error {
	// GLFW event processing must stay on the thread that created the window.
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	// The surface is driven by WebGPU, so no OpenGL context is needed.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if w.resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}

	maxW, maxH := dontCare, dontCare
	if w.maxWidth > 0 {
		maxW = w.maxWidth
	}
	if w.maxHeight > 0 {
		maxH = w.maxHeight
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, maxW, maxH)

	native := &nativeWindow{handle: handle, running: true}
	w.native = native

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			native.running = false
			handle.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(uint32(key))
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(uint32(key))
			}
		}
	})

	handle.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	handle.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if w.onMouseButton == nil {
			return
		}
		xpos, ypos := handle.GetCursorPos()
		switch action {
		case glfw.Press:
			w.onMouseButton(uint32(button), true, int32(xpos), int32(ypos))
		case glfw.Release:
			w.onMouseButton(uint32(button), false, int32(xpos), int32(ypos))
		}
	})

	handle.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(int32(xpos), int32(ypos))
		}
	})

	// Resize events report framebuffer size, not window size. On high-DPI
	// displays the two differ and the surface needs pixel dimensions.
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	fbWidth, fbHeight := handle.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// SurfaceDescriptor builds the platform-appropriate wgpu surface descriptor
// (Win32 HWND, X11, Wayland or Metal layer) from the GLFW handle.
func (w *desktopWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.native == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.native.handle)
}

func (w *desktopWindow) IsRunning() bool {
	if w.native == nil {
		return false
	}
	return w.native.running && !w.native.handle.ShouldClose()
}

func (w *desktopWindow) Close() error {
	if w.native == nil {
		return fmt.Errorf("window is not initialized")
	}
	w.native.running = false
	w.native.handle.SetShouldClose(true)
	w.native.handle.Destroy()
	glfw.Terminate()
	return nil
}

// ProcessMessages polls GLFW events without blocking until the window is
// asked to close.
func (w *desktopWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}
