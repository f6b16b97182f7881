package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func assertVecNear(t *testing.T, want, got Point, msgAndArgs ...interface{}) {
	t.Helper()
	ok := scalar.EqualWithinAbs(want.X, got.X, tol) &&
		scalar.EqualWithinAbs(want.Y, got.Y, tol) &&
		scalar.EqualWithinAbs(want.Z, got.Z, tol)
	assert.True(t, ok, append([]interface{}{"want %v, got %v", want, got}, msgAndArgs...)...)
}

func TestMidpointAndDistance(t *testing.T) {
	a := Point{X: 0.01, Y: 0.02, Z: -0.3}
	b := Point{X: 0.03, Y: 0.02, Z: -0.3}

	assertVecNear(t, Point{X: 0.02, Y: 0.02, Z: -0.3}, Midpoint(a, b))
	assert.InDelta(t, 0.02, Distance(a, b), tol)
}

func TestCentroid(t *testing.T) {
	assertVecNear(t, Point{}, Centroid())
	assertVecNear(t, Point{X: 1.0 / 3, Y: 1.0 / 3, Z: -1},
		Centroid(Point{Z: -1}, Point{X: 1, Z: -1}, Point{Y: 1, Z: -1}))
}

func TestNewPoint(t *testing.T) {
	p, ok := NewPoint([]float64{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, Array(p))

	_, ok = NewPoint([]float64{1, 2})
	assert.False(t, ok)
}

func TestRigidTransform(t *testing.T) {
	p := Point{X: 0.1, Y: 0.2, Z: 0.3}
	assertVecNear(t, p, Identity().Apply(p))
	assertVecNear(t, Point{X: 1.1, Y: 0.2, Z: -0.7}, Translation(1, 0, -1).Apply(p))

	// 90 degrees about Z: X -> Y.
	rotZ := RigidTransform{
		0, -1, 0, 0,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	assertVecNear(t, Point{Y: 1}, rotZ.Apply(Point{X: 1}))
	assert.True(t, rotZ.IsRigid())
	assert.True(t, Translation(3, 4, 5).IsRigid())

	scaled := Identity()
	scaled[0] = 2
	assert.False(t, scaled.IsRigid(), "scale is not rigid")

	projective := Identity()
	projective[12] = 0.5
	assert.False(t, projective.IsRigid(), "last row must be 0 0 0 1")
}

func TestRotationBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to Point
	}{
		{"parallel", Up, Point{Y: 2}},
		{"quarter turn", Up, Point{Z: 1}},
		{"oblique", Up, r3.Unit(Point{X: 1, Y: 1, Z: 1})},
		{"antiparallel up", Up, Point{Y: -1}},
		{"antiparallel x", Point{X: 1}, Point{X: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RotationBetween(tt.from, tt.to)
			assertVecNear(t, r3.Unit(tt.to), r.Rotate(r3.Unit(tt.from)))
		})
	}
}

func TestRotationBetweenParallelIsIdentity(t *testing.T) {
	r := RotationBetween(Up, Up)
	assert.Equal(t, Quaternion{W: 1}, QuaternionOf(r))
}

func TestRotationBetweenAntiparallelIsHalfTurn(t *testing.T) {
	r := RotationBetween(Up, Point{Y: -1})
	q := QuaternionOf(r)
	// A half turn has no scalar part and a unit axis perpendicular to Up.
	assert.InDelta(t, 0, q.W, tol)
	assert.InDelta(t, 0, q.Y, tol)
	assert.InDelta(t, 1, math.Sqrt(q.X*q.X+q.Y*q.Y+q.Z*q.Z), tol)
}

func TestFitPlaneRightTriangle(t *testing.T) {
	fit := FitPlane(Point{}, Point{X: 1}, Point{Y: 1}, DefaultCollinearEpsilon)

	require.False(t, fit.Degenerate)
	assertVecNear(t, Point{Z: 1}, fit.Normal)
	assertVecNear(t, Point{X: 1.0 / 3, Y: 1.0 / 3}, fit.Center)
	assert.InDelta(t, 1.0, fit.CrossLength, tol)
	assertVecNear(t, fit.Normal, fit.Orientation.Rotate(Up), "orientation maps Up onto the normal")
}

// Collinearity does not depend on scale: a hand-sized triangle fits.
func TestFitPlaneSmallTriangle(t *testing.T) {
	fit := FitPlane(Point{}, Point{X: 0.03}, Point{Y: 0.03}, DefaultCollinearEpsilon)

	require.False(t, fit.Degenerate)
	assertVecNear(t, Point{Z: 1}, fit.Normal)
	assert.InDelta(t, 0.0009, fit.CrossLength, tol)
}

func TestFitPlaneWindingFlipsNormal(t *testing.T) {
	fit := FitPlane(Point{}, Point{Y: 1}, Point{X: 1}, DefaultCollinearEpsilon)
	assertVecNear(t, Point{Z: -1}, fit.Normal)
}

func TestFitPlaneHorizontalKeepsIdentity(t *testing.T) {
	// (1,0,0) x (0,0,-1) is +Y.
	fit := FitPlane(Point{Y: 1}, Point{X: 1, Y: 1}, Point{Y: 1, Z: -1}, DefaultCollinearEpsilon)
	assertVecNear(t, Up, fit.Normal)
	assert.Equal(t, Quaternion{W: 1}, QuaternionOf(fit.Orientation))
}

func TestFitPlaneDegenerate(t *testing.T) {
	tests := []struct {
		name       string
		p0, p1, p2 Point
		center     Point
	}{
		{"collinear", Point{}, Point{X: 1}, Point{X: 2}, Point{X: 1}},
		{"coincident", Point{X: 1}, Point{X: 1}, Point{X: 1}, Point{X: 1}},
		{"nearly collinear", Point{}, Point{X: 1}, Point{X: 2, Y: 1e-5}, Point{X: 1, Y: 1e-5 / 3}},
		{"nearly collinear far apart", Point{}, Point{X: 100}, Point{X: 200, Y: 1e-5}, Point{X: 100, Y: 1e-5 / 3}},
		{"zero-length leg", Point{X: 1}, Point{X: 1}, Point{X: 2, Y: 1}, Point{X: 4.0 / 3, Y: 1.0 / 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit := FitPlane(tt.p0, tt.p1, tt.p2, DefaultCollinearEpsilon)

			assert.True(t, fit.Degenerate)
			assertVecNear(t, tt.center, fit.Center)
			assertVecNear(t, Up, fit.Normal)
			assert.True(t, IsFinite(fit.Normal))
			assert.Equal(t, Quaternion{W: 1}, QuaternionOf(fit.Orientation))
		})
	}
}

func TestBoundsFold(t *testing.T) {
	points := []Point{{X: 1, Y: -2, Z: 0}, {X: -1, Y: 3, Z: 0.5}, {X: 0, Y: 0, Z: -4}}
	b := FoldBounds(points)

	assertVecNear(t, Point{X: -1, Y: -2, Z: -4}, b.Min)
	assertVecNear(t, Point{X: 1, Y: 3, Z: 0.5}, b.Max)
	assertVecNear(t, Point{X: 0, Y: 0.5, Z: -1.75}, b.Center())
	assert.InDelta(t, 5, b.MaxDimension(), tol)
}

func TestBoundsUnionAssociativeWithIdentity(t *testing.T) {
	a := FoldBounds([]Point{{X: 1}, {Y: 2}})
	b := FoldBounds([]Point{{Z: -3}})
	c := FoldBounds([]Point{{X: -5, Y: 1, Z: 1}})

	assert.Equal(t, Union(Union(a, b), c), Union(a, Union(b, c)))
	assert.Equal(t, a, Union(EmptyBounds(), a))
	assert.Equal(t, a, Union(a, EmptyBounds()))

	// Splitting a fold and combining the halves gives the whole.
	all := []Point{{X: 1}, {Y: 2}, {Z: -3}, {X: -5, Y: 1, Z: 1}}
	assert.Equal(t, FoldBounds(all), Union(FoldBounds(all[:2]), FoldBounds(all[2:])))
}

func TestEmptyBounds(t *testing.T) {
	b := EmptyBounds()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, Point{}, b.Size())
	assert.False(t, b.Extend(Point{}).IsEmpty())
	assert.Equal(t, 0.0, b.Extend(Point{X: 2}).MaxDimension())
}
