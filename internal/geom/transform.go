package geom

import "math"

// MatrixValidationTolerance is the tolerance for checking rotation matrix validity.
const MatrixValidationTolerance = 0.01

// RigidTransform is a 4x4 row-major homogeneous transform:
// m00,m01,m02,m03, m10,... The hand-tracking source supplies one per sample
// mapping the hand-local frame into the world frame.
type RigidTransform [16]float64

// Identity returns the identity transform.
func Identity() RigidTransform {
	return RigidTransform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a pure translation by (x, y, z).
func Translation(x, y, z float64) RigidTransform {
	t := Identity()
	t[3], t[7], t[11] = x, y, z
	return t
}

// Apply transforms point p (w = 1).
func (t RigidTransform) Apply(p Point) Point {
	return Point{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// IsRigid reports whether t is a proper rigid transform:
// 1. rotation submatrix with det ≈ 1 (no reflection or scale)
// 2. last row is [0 0 0 1]
func (t RigidTransform) IsRigid() bool {
	r00, r01, r02 := t[0], t[1], t[2]
	r10, r11, r12 := t[4], t[5], t[6]
	r20, r21, r22 := t[8], t[9], t[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}

	if t[12] != 0 || t[13] != 0 || t[14] != 0 || math.Abs(t[15]-1.0) > 0.001 {
		return false
	}

	return true
}
