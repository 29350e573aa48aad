package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestQuatIdentityRotatesNothing(t *testing.T) {
	v := Vec3{1, 2, 3}
	got := QuatIdentity().Rotate(v)
	assert.InDelta(t, v.X, got.X, epsilon)
	assert.InDelta(t, v.Y, got.Y, epsilon)
	assert.InDelta(t, v.Z, got.Z, epsilon)
}

func TestQuatFromAxisAngleRotate(t *testing.T) {
	// 90° around Z maps +X to +Y.
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)
	got := q.Rotate(Vec3{1, 0, 0})
	assert.InDelta(t, 0, got.X, epsilon)
	assert.InDelta(t, 1, got.Y, epsilon)
	assert.InDelta(t, 0, got.Z, epsilon)
}

func TestQuatInverseUndoesRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 1, 0}, 0.73)
	v := Vec3{0.3, -2, 5}

	got := q.Inverse().Rotate(q.Rotate(v))
	assert.InDelta(t, v.X, got.X, epsilon)
	assert.InDelta(t, v.Y, got.Y, epsilon)
	assert.InDelta(t, v.Z, got.Z, epsilon)
}

func TestQuatMulComposesRightToLeft(t *testing.T) {
	// Applying qz then qy must equal (qy * qz).Rotate.
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)

	v := Vec3{1, 0, 0}
	step := qy.Rotate(qz.Rotate(v))
	combined := qy.Mul(qz).Rotate(v)

	assert.InDelta(t, step.X, combined.X, epsilon)
	assert.InDelta(t, step.Y, combined.Y, epsilon)
	assert.InDelta(t, step.Z, combined.Z, epsilon)
}

func TestQuatNormalized(t *testing.T) {
	q := Quat{0, 0, 0, 2}.Normalized()
	assert.InDelta(t, 1, q.W, epsilon)

	zero := Quat{}.Normalized()
	assert.Equal(t, QuatIdentity(), zero)
}

func TestQuatRotationMatchesComposeTRS(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0.2, 1, -0.5}, 1.9)
	v := Vec3{1, 2, 3}

	m := make([]float32, 16)
	ComposeTRS(m, Vec3{}, q, One())

	var viaMat [3]float32
	p := [4]float32{v.X, v.Y, v.Z, 1}
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			viaMat[r] += m[r*4+c] * p[c]
		}
	}

	direct := q.Rotate(v)
	assert.InDelta(t, direct.X, viaMat[0], epsilon)
	assert.InDelta(t, direct.Y, viaMat[1], epsilon)
	assert.InDelta(t, direct.Z, viaMat[2], epsilon)
}
