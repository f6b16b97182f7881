package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a position or direction in 3D space.
type Point = r3.Vec

// Up is the canonical reference normal of an unrotated cutting plane.
var Up = Point{X: 0, Y: 1, Z: 0}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Centroid returns the arithmetic mean of the given points. It returns the
// origin for an empty slice.
func Centroid(points ...Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sum Point
	for _, p := range points {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(points)), sum)
}

// IsFinite reports whether every component of p is neither NaN nor infinite.
func IsFinite(p Point) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NewPoint builds a Point from a 3-element slice such as a decoded JSON array.
// ok is false when the slice has the wrong length.
func NewPoint(v []float64) (p Point, ok bool) {
	if len(v) != 3 {
		return Point{}, false
	}
	return Point{X: v[0], Y: v[1], Z: v[2]}, true
}

// Array returns p as a [3]float64, the wire form used by the API.
func Array(p Point) [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}
