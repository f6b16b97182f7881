package markers

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cutplane/internal/config"
	"github.com/banshee-data/cutplane/internal/geom"
)

// Capacity is the number of markers that define a cutting plane.
const Capacity = 3

// Color is an RGBA display color with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Hex returns the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

var (
	Red   = Color{R: 1, A: 1}
	Green = Color{G: 1, A: 1}
	Blue  = Color{B: 1, A: 1}
)

// Palette assigns marker colors by placement slot.
var Palette = [Capacity]Color{Red, Green, Blue}

// PlaneTint is the translucent tint of the cutting plane overlay.
var PlaneTint = Color{R: 0.2, G: 0.6, B: 1.0, A: 0.3}

// ColorForIndex returns the palette color for a marker slot.
func ColorForIndex(i int) Color {
	return Palette[((i%len(Palette))+len(Palette))%len(Palette)]
}

// Marker is a placed spatial marker. Index is its position in placement
// order and changes as older markers are evicted.
type Marker struct {
	Position geom.Point
	Index    int
	Color    Color
	// Scale is the current pulse animation scale factor.
	Scale float64
}

// CuttingPlane is the plane through the three current markers.
type CuttingPlane struct {
	Center      geom.Point
	Normal      geom.Point
	Orientation r3.Rotation
	Width       float64
	Depth       float64
	Tint        Color
	CrossLength float64
	// Degenerate is set when the markers were (nearly) collinear and the
	// orientation fell back to horizontal.
	Degenerate bool
}

// Snapshot is a consistent copy of the store contents.
type Snapshot struct {
	Markers []Marker
	Plane   *CuttingPlane
	// Version increases on every add or clear.
	Version uint64
}

// Options configures a Store.
type Options struct {
	PlaneSize        float64
	CollinearEpsilon float64
	PulsePeriod      time.Duration
	PulseScale       float64
}

// DefaultOptions returns a 1x1 plane, a 0.001 collinearity guard (sine of
// the angle between the triangle legs) and a 1 s,
// 1.2x marker pulse.
func DefaultOptions() Options {
	return Options{
		PlaneSize:        1.0,
		CollinearEpsilon: geom.DefaultCollinearEpsilon,
		PulsePeriod:      time.Second,
		PulseScale:       1.2,
	}
}

// OptionsFromTuning builds store Options from the tuning file.
func OptionsFromTuning(t *config.TuningConfig) Options {
	return Options{
		PlaneSize:        t.GetPlaneSize(),
		CollinearEpsilon: t.GetCollinearEpsilon(),
		PulsePeriod:      t.GetPulsePeriod(),
		PulseScale:       t.GetPulseScale(),
	}
}

// Corners returns the plane's four world-space corners. The unrotated plane
// lies in the XZ plane facing Up.
func (p CuttingPlane) Corners() [4]geom.Point {
	hw, hd := p.Width/2, p.Depth/2
	local := [4]geom.Point{
		{X: -hw, Z: -hd},
		{X: hw, Z: -hd},
		{X: hw, Z: hd},
		{X: -hw, Z: hd},
	}
	var out [4]geom.Point
	for i, c := range local {
		out[i] = r3.Add(p.Center, p.Orientation.Rotate(c))
	}
	return out
}
