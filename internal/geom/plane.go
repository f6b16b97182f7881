package geom

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCollinearEpsilon is the sine of the angle at p0 below which three
// points are treated as collinear (about 0.06 degrees).
const DefaultCollinearEpsilon = 0.001

// PlaneFit is the plane through three points.
type PlaneFit struct {
	// Center is the centroid of the three points.
	Center Point
	// Normal is the unit normal (p1-p0) × (p2-p0), or Up when Degenerate.
	Normal Point
	// Orientation rotates Up onto Normal.
	Orientation r3.Rotation
	// CrossLength is |(p1-p0) × (p2-p0)|, twice the triangle area.
	CrossLength float64
	// Degenerate is set when the points are (nearly) collinear or coincident.
	Degenerate bool
}

// FitPlane fits the plane through p0, p1, p2 taken in that order; the normal
// follows the right-hand rule over that winding.
//
// Collinearity is judged on |v1 × v2| / (|v1| |v2|), the sine of the angle
// between the two legs from p0, so the test does not depend on how far apart
// the markers are. When that sine is below eps, or either leg has zero
// length, the normal cannot be recovered. The fit then falls back to Up with
// the identity orientation and is flagged Degenerate; the centroid is still
// exact. FitPlane never returns NaN.
func FitPlane(p0, p1, p2 Point, eps float64) PlaneFit {
	v1 := r3.Sub(p1, p0)
	v2 := r3.Sub(p2, p0)
	cross := r3.Cross(v1, v2)
	crossLength := r3.Norm(cross)

	fit := PlaneFit{
		Center:      Centroid(p0, p1, p2),
		CrossLength: crossLength,
	}

	legs := r3.Norm(v1) * r3.Norm(v2)
	if legs == 0 || crossLength == 0 || crossLength/legs < eps || !IsFinite(cross) {
		fit.Normal = Up
		fit.Orientation = IdentityRotation()
		fit.Degenerate = true
		return fit
	}

	fit.Normal = r3.Scale(1/crossLength, cross)
	fit.Orientation = RotationBetween(Up, fit.Normal)
	return fit
}
