package geom

import "math"

// Bounds is an axis-aligned bounding box. The zero value is a box containing
// only the origin; use EmptyBounds for the fold identity.
type Bounds struct {
	Min Point
	Max Point
}

// EmptyBounds returns the identity of Union: +Inf minimum, -Inf maximum.
func EmptyBounds() Bounds {
	inf := math.Inf(1)
	return Bounds{
		Min: Point{X: inf, Y: inf, Z: inf},
		Max: Point{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether b contains no points.
func (b Bounds) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Extend returns b grown to contain p.
func (b Bounds) Extend(p Point) Bounds {
	return Union(b, Bounds{Min: p, Max: p})
}

// Union returns the smallest box containing a and b. It is associative and
// commutative with EmptyBounds as identity, so partial folds may be combined
// in any grouping.
func Union(a, b Bounds) Bounds {
	return Bounds{
		Min: Point{
			X: math.Min(a.Min.X, b.Min.X),
			Y: math.Min(a.Min.Y, b.Min.Y),
			Z: math.Min(a.Min.Z, b.Min.Z),
		},
		Max: Point{
			X: math.Max(a.Max.X, b.Max.X),
			Y: math.Max(a.Max.Y, b.Max.Y),
			Z: math.Max(a.Max.Z, b.Max.Z),
		},
	}
}

// FoldBounds returns the bounds of points.
func FoldBounds(points []Point) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Center returns the midpoint of b. It is undefined for empty bounds.
func (b Bounds) Center() Point {
	return Midpoint(b.Min, b.Max)
}

// Size returns the extent of b along each axis, zero for empty bounds.
func (b Bounds) Size() Point {
	if b.IsEmpty() {
		return Point{}
	}
	return Point{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

// MaxDimension returns the largest extent of b.
func (b Bounds) MaxDimension() float64 {
	s := b.Size()
	return math.Max(math.Max(s.X, s.Y), s.Z)
}
