package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-5

func assertMat4Equal(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, 16)
	for i := range want {
		assert.InDelta(t, want[i], got[i], epsilon, "element %d", i)
	}
}

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	Identity(m)

	want := []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	assertMat4Equal(t, want, m)
}

func TestMul4IdentityIsNeutral(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	m := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}

	out := make([]float32, 16)
	Mul4(out, id, m)
	assertMat4Equal(t, m, out)

	Mul4(out, m, id)
	assertMat4Equal(t, m, out)
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	ComposeTRS(m, Vec3{1, -2, 3}, QuatFromAxisAngle(Vec3{0, 1, 0}, 0.7), Vec3{2, 2, 2})

	// ComposeTRS is row-major; transpose into column-major for Invert4.
	cm := make([]float32, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			cm[c*4+r] = m[r*4+c]
		}
	}

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, cm))

	out := make([]float32, 16)
	Mul4(out, cm, inv)

	id := make([]float32, 16)
	Identity(id)
	assertMat4Equal(t, id, out)
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16) // all zeros
	out := make([]float32, 16)
	assert.False(t, Invert4(out, m))
}

func TestComposeTRSTranslationOnly(t *testing.T) {
	out := make([]float32, 16)
	ComposeTRS(out, Vec3{4, 5, 6}, QuatIdentity(), One())

	want := []float32{
		1, 0, 0, 4,
		0, 1, 0, 5,
		0, 0, 1, 6,
		0, 0, 0, 1,
	}
	assertMat4Equal(t, want, out)
}

func TestComposeTRSOrderIsTranslateRotateScale(t *testing.T) {
	// 90° around Y maps +X to -Z. With scale 2 and translation (10, 0, 0),
	// the point (1, 0, 0) must land at (10, 0, -2).
	rot := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)
	m := make([]float32, 16)
	ComposeTRS(m, Vec3{10, 0, 0}, rot, Vec3{2, 2, 2})

	p := [4]float32{1, 0, 0, 1}
	var got [4]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			got[r] += m[r*4+c] * p[c]
		}
	}

	assert.InDelta(t, 10, got[0], epsilon)
	assert.InDelta(t, 0, got[1], epsilon)
	assert.InDelta(t, -2, got[2], epsilon)
	assert.InDelta(t, 1, got[3], epsilon)
}

func TestViewFromTransformInvertsModel(t *testing.T) {
	pos := Vec3{3, -1, 7}
	rot := QuatFromAxisAngle(Vec3{1, 2, 0}, 1.1)

	view := make([]float32, 16)
	ViewFromTransform(view, pos, rot)

	// The view matrix applied to the camera position must give the origin.
	var got [3]float32
	for r := 0; r < 3; r++ {
		got[r] = view[r]*pos.X + view[4+r]*pos.Y + view[8+r]*pos.Z + view[12+r]
	}
	assert.InDelta(t, 0, got[0], epsilon)
	assert.InDelta(t, 0, got[1], epsilon)
	assert.InDelta(t, 0, got[2], epsilon)
}

func TestPerspectiveDepthRange(t *testing.T) {
	m := make([]float32, 16)
	Perspective(m, math32.Pi/3, 16.0/9.0, 0.1, 100)

	// Near plane maps to depth 0, far plane to depth 1 (WebGPU clip space).
	near := []float32{0, 0, -0.1, 1}
	far := []float32{0, 0, -100, 1}

	project := func(p []float32) float32 {
		z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]*p[3]
		w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]*p[3]
		return z / w
	}

	assert.InDelta(t, 0, project(near), epsilon)
	assert.InDelta(t, 1, project(far), epsilon)
}

func TestSliceToBytes(t *testing.T) {
	data := []float32{1, 2}
	b := SliceToBytes(data)
	require.Len(t, b, 8)

	assert.Nil(t, SliceToBytes[float32](nil))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 0, 5, 7))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Equal(t, 0, Coalesce(0, 0))
}
