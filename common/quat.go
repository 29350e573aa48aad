package common

import "github.com/chewxy/math32"

// Quat is a rotation quaternion with the scalar part last (x, y, z, w).
// Transform rotations are expected to be unit quaternions; the identity
// rotation is (0, 0, 0, 1).
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// QuatFromAxisAngle builds a unit quaternion rotating angle radians around
// the given axis. The axis does not need to be normalized.
//
// Parameters:
//   - axis: rotation axis
//   - angle: rotation angle in radians
//
// Returns:
//   - Quat: the resulting unit quaternion
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	n := axis.Normalized()
	s := math32.Sin(angle / 2)
	return Quat{
		X: n.X * s,
		Y: n.Y * s,
		Z: n.Z * s,
		W: math32.Cos(angle / 2),
	}
}

// Mul returns the Hamilton product q * o, the rotation that applies o first
// and then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Inverse returns the inverse rotation. For non-unit quaternions the
// conjugate is divided by the squared norm; a zero quaternion is returned
// unchanged.
func (q Quat) Inverse() Quat {
	n := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if n == 0 {
		return q
	}
	inv := 1 / n
	return Quat{-q.X * inv, -q.Y * inv, -q.Z * inv, q.W * inv}
}

// Normalized returns q scaled to unit length. The zero quaternion maps to
// the identity rotation.
func (q Quat) Normalized() Quat {
	n := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return QuatIdentity()
	}
	inv := 1 / n
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Rotate applies the rotation to a vector: q * v * q⁻¹.
//
// Parameters:
//   - v: the vector to rotate
//
// Returns:
//   - Vec3: the rotated vector
func (q Quat) Rotate(v Vec3) Vec3 {
	// Optimized form: v + 2w(u × v) + 2(u × (u × v)) with u = (x, y, z).
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}
