package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parallel-vector thresholds on the dot product of two unit vectors.
const (
	parallelDot     = 0.999999
	antiParallelDot = -0.999999
	// minPerpendicular is the shortest helper cross product accepted when
	// choosing a half-turn axis.
	minPerpendicular = 0.01
)

var (
	axisX = Point{X: 1}
	axisY = Point{Y: 1}
)

// IdentityRotation is the rotation that leaves every vector unchanged.
func IdentityRotation() r3.Rotation {
	return r3.Rotation(quat.Number{Real: 1})
}

// RotationBetween returns the minimal rotation mapping the direction of from
// onto the direction of to. Both vectors must be non-zero.
//
// Opposite vectors have no unique minimal rotation; a half turn is taken about
// from × X, or from × Y when from is (nearly) parallel to X.
func RotationBetween(from, to Point) r3.Rotation {
	f := r3.Unit(from)
	t := r3.Unit(to)

	dot := r3.Dot(f, t)
	switch {
	case dot >= parallelDot:
		return IdentityRotation()
	case dot <= antiParallelDot:
		perp := r3.Cross(f, axisX)
		if r3.Norm(perp) < minPerpendicular {
			perp = r3.Cross(f, axisY)
		}
		return r3.NewRotation(math.Pi, r3.Unit(perp))
	default:
		axis := r3.Unit(r3.Cross(f, t))
		return r3.NewRotation(math.Acos(dot), axis)
	}
}

// Quaternion is the wire form of a rotation, scalar last.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuaternionOf converts a rotation into its wire form.
func QuaternionOf(r r3.Rotation) Quaternion {
	q := quat.Number(r)
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}
