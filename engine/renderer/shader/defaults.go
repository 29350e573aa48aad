package shader

import _ "embed"

// DefaultID is the cache id of the built-in shader used by entities that
// attach no shader component.
const DefaultID = "__default"

// DefaultSceneSource is the WGSL source of the built-in scene shader. It
// declares the full group-0 default binding layout (instance transforms,
// camera uniform, sampler, diffuse texture, globals) and both stages.
//
//go:embed assets/default_scene.wgsl
var DefaultSceneSource string

// FullscreenVertexSource is the WGSL vertex stage shared by every
// post-processing pass: a single full-screen triangle with UV output.
//
//go:embed assets/fullscreen_vertex.wgsl
var FullscreenVertexSource string

// PassthroughPostSource is the fragment stage of a post-processing pass that
// copies its input unmodified. Useful as a chain terminator and in tests.
//
//go:embed assets/passthrough_post.wgsl
var PassthroughPostSource string

// Default returns the built-in scene shader program. All entities without a
// shader component render through it.
//
// Returns:
//   - Program: the default program
func Default() Program {
	return NewProgram(DefaultID,
		WithVertexCode(DefaultSceneSource),
		WithFragmentCode(DefaultSceneSource),
	)
}
