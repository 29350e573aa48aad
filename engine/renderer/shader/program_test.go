package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	p := NewProgram("plain")
	s := p.Settings()
	assert.Equal(t, CullBack, s.CullMode)
	assert.Equal(t, BlendAlpha, s.Blend)
	assert.True(t, s.DepthWrite)
	assert.Equal(t, CompareLess, s.DepthCompare)
}

func TestWithOpaqueDisablesBlending(t *testing.T) {
	p := NewProgram("opaque", WithOpaque())
	assert.Equal(t, BlendNone, p.Settings().Blend)
}

func TestSettingOverrides(t *testing.T) {
	p := NewProgram("custom",
		WithCullMode(CullNone),
		WithDepthWrite(false),
		WithDepthCompare(CompareLessEqual),
	)
	s := p.Settings()
	assert.Equal(t, CullNone, s.CullMode)
	assert.False(t, s.DepthWrite)
	assert.Equal(t, CompareLessEqual, s.DepthCompare)
}

func TestStageSourcesFallBackToDefault(t *testing.T) {
	p := NewProgram("frag-only", WithFragmentCode("@fragment fn fs_main() {}"))
	assert.Equal(t, DefaultSceneSource, p.VertexCode())
	assert.Equal(t, "@fragment fn fs_main() {}", p.FragmentCode())
}

func TestBufferSpecNormalization(t *testing.T) {
	cases := []struct {
		name string
		data any
		want int
	}{
		{"bytes", []byte{1, 2, 3, 4}, 4},
		{"float32", []float32{1, 2}, 8},
		{"uint32", []uint32{1, 2, 3}, 12},
		{"int32", []int32{-1}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := &BufferSpec{Binding: 0, Data: tc.data}
			b, err := spec.Bytes()
			require.NoError(t, err)
			assert.Len(t, b, tc.want)
		})
	}

	spec := &BufferSpec{Binding: 3, Data: "nope"}
	_, err := spec.Bytes()
	assert.Error(t, err)
}

func TestBufferSpecByteSize(t *testing.T) {
	sized := &BufferSpec{Binding: 0, Size: 256}
	n, err := sized.ByteSize()
	require.NoError(t, err)
	assert.EqualValues(t, 256, n)

	fromData := &BufferSpec{Binding: 0, Data: []float32{1, 2, 3, 4}}
	n, err = fromData.ByteSize()
	require.NoError(t, err)
	assert.EqualValues(t, 16, n)

	empty := &BufferSpec{Binding: 0}
	_, err = empty.ByteSize()
	assert.Error(t, err)
}

func TestSetBufferData(t *testing.T) {
	p := NewProgram("buffered", WithBuffer(0, 0, []float32{0, 0, 0, 0}))

	require.NoError(t, p.SetBufferData(0, []float32{1, 2, 3, 4}))
	b, err := p.Buffers()[0].Bytes()
	require.NoError(t, err)
	assert.Len(t, b, 16)

	assert.Error(t, p.SetBufferData(9, []float32{1}), "undeclared binding is rejected")
}

func TestComponentExposesProgram(t *testing.T) {
	p := NewProgram("comp")
	c := NewComponent(p)
	assert.Same(t, p, c.Program())
}
