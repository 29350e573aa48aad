package shader

// ProgramBuilderOption is a functional option for configuring a Program during construction.
type ProgramBuilderOption func(*program)

// WithVertexCode sets the WGSL vertex stage source.
//
// Parameters:
//   - code: the WGSL source
//
// Returns:
//   - ProgramBuilderOption: functional option to set the vertex code
func WithVertexCode(code string) ProgramBuilderOption {
	return func(p *program) {
		p.vertexCode = code
	}
}

// WithFragmentCode sets the WGSL fragment stage source.
//
// Parameters:
//   - code: the WGSL source
//
// Returns:
//   - ProgramBuilderOption: functional option to set the fragment code
func WithFragmentCode(code string) ProgramBuilderOption {
	return func(p *program) {
		p.fragmentCode = code
	}
}

// WithBuffer declares a custom buffer binding in group 1.
//
// Parameters:
//   - binding: the binding index within group 1
//   - size: the GPU buffer size in bytes (0 to size from the initial data)
//   - data: the initial contents ([]byte, []float32, []uint32, or []int32)
//
// Returns:
//   - ProgramBuilderOption: functional option to add the buffer spec
func WithBuffer(binding uint32, size uint64, data any) ProgramBuilderOption {
	return func(p *program) {
		p.buffers = append(p.buffers, &BufferSpec{Binding: binding, Size: size, Data: data})
	}
}

// WithTexture declares a custom texture binding in group 2.
//
// Parameters:
//   - binding: the texture view's binding index within group 2
//   - textureID: a texture id registered with the renderer
//
// Returns:
//   - ProgramBuilderOption: functional option to add the texture spec
func WithTexture(binding uint32, textureID string) ProgramBuilderOption {
	return func(p *program) {
		p.textures = append(p.textures, TextureSpec{Binding: binding, TextureID: textureID})
	}
}

// WithCullMode overrides the default back-face culling.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - ProgramBuilderOption: functional option to set the cull mode
func WithCullMode(mode CullMode) ProgramBuilderOption {
	return func(p *program) {
		p.settings.CullMode = mode
	}
}

// WithOpaque explicitly disables blending for this program. Without this
// option programs default to standard alpha blending.
//
// Returns:
//   - ProgramBuilderOption: functional option to disable blending
func WithOpaque() ProgramBuilderOption {
	return func(p *program) {
		p.settings.Blend = BlendNone
	}
}

// WithDepthWrite overrides the default of writing depth.
//
// Parameters:
//   - write: true to write depth for passing fragments
//
// Returns:
//   - ProgramBuilderOption: functional option to set depth writes
func WithDepthWrite(write bool) ProgramBuilderOption {
	return func(p *program) {
		p.settings.DepthWrite = write
	}
}

// WithDepthCompare overrides the default less depth comparison.
//
// Parameters:
//   - compare: the depth comparison function
//
// Returns:
//   - ProgramBuilderOption: functional option to set the depth comparison
func WithDepthCompare(compare CompareFunction) ProgramBuilderOption {
	return func(p *program) {
		p.settings.DepthCompare = compare
	}
}

// NewProgram creates a shader Program with the given cache id. Stage sources
// left unset fall back to the built-in default shader's stages, so a program
// may override only a fragment stage. Pipeline settings default to back-face
// culling, alpha blending, depth writes enabled, and less depth comparison.
//
// Parameters:
//   - id: the stable cache key for the program
//   - opts: variadic ProgramBuilderOption to configure the program
//
// Returns:
//   - Program: the configured program
func NewProgram(id string, opts ...ProgramBuilderOption) Program {
	p := &program{
		id:       id,
		settings: DefaultPipelineSettings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.vertexCode == "" {
		p.vertexCode = DefaultSceneSource
	}
	if p.fragmentCode == "" {
		p.fragmentCode = DefaultSceneSource
	}
	return p
}
