package engine

import (
	"time"

	"github.com/Cultered/Webcraft-sub001/engine/scene"
	"github.com/Cultered/Webcraft-sub001/engine/window"
)

// EngineBuilderOption is a functional option applied to the engine during
// construction. Use the With* functions to create options.
type EngineBuilderOption func(*engine)

// WithProfiling turns the periodic FPS and memory log line on or off.
//
// Parameters:
//   - enabled: true to log profiler output
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets how many logic ticks run per second. Component updates
// and the tick callback fire at this rate, independent of the render loop.
// Non-positive values fall back to the 60Hz default.
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow hands the engine an already-configured window instead of
// letting it open a default one.
//
// Parameters:
//   - w: the window to drive the engine's event loop
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene registers a scene under a z-index key at construction time.
// Active scenes update and render in ascending key order.
//
// Parameters:
//   - key: the z-index (lower updates and renders first)
//   - s: the scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit caps the render loop at the given frames per second.
// Zero or negative leaves the render loop uncapped, which is the default.
//
// Parameters:
//   - fps: maximum render frames per second, or 0 for no cap
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
