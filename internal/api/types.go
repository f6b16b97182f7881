package api

import (
	"time"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
	"github.com/banshee-data/cutplane/internal/markers"
)

// MarkerJSON is the wire form of a marker.
type MarkerJSON struct {
	Index    int        `json:"index"`
	Position [3]float64 `json:"position"`
	Color    string     `json:"color"`
	Scale    float64    `json:"scale"`
}

// PlaneJSON is the wire form of the cutting plane.
type PlaneJSON struct {
	Center      [3]float64      `json:"center"`
	Normal      [3]float64      `json:"normal"`
	Orientation geom.Quaternion `json:"orientation"`
	Width       float64         `json:"width"`
	Depth       float64         `json:"depth"`
	Tint        markers.Color   `json:"tint"`
	Degenerate  bool            `json:"degenerate"`
}

// SnapshotJSON is the wire form of a store snapshot.
type SnapshotJSON struct {
	Version uint64       `json:"version"`
	Markers []MarkerJSON `json:"markers"`
	Plane   *PlaneJSON   `json:"plane"`
}

// NewSnapshotJSON converts a snapshot into its wire form.
func NewSnapshotJSON(snap markers.Snapshot) SnapshotJSON {
	out := SnapshotJSON{
		Version: snap.Version,
		Markers: make([]MarkerJSON, len(snap.Markers)),
	}
	for i, m := range snap.Markers {
		out.Markers[i] = MarkerJSON{
			Index:    m.Index,
			Position: geom.Array(m.Position),
			Color:    m.Color.Hex(),
			Scale:    m.Scale,
		}
	}
	if p := snap.Plane; p != nil {
		out.Plane = &PlaneJSON{
			Center:      geom.Array(p.Center),
			Normal:      geom.Array(p.Normal),
			Orientation: geom.QuaternionOf(p.Orientation),
			Width:       p.Width,
			Depth:       p.Depth,
			Tint:        p.Tint,
			Degenerate:  p.Degenerate,
		}
	}
	return out
}

// AddMarkerRequest is the body of POST /api/markers.
type AddMarkerRequest struct {
	Position []float64 `json:"position"`
}

// DecisionJSON is the wire form of a pinch release decision.
type DecisionJSON struct {
	At        time.Time   `json:"at"`
	Accepted  bool        `json:"accepted"`
	Reason    string      `json:"reason,omitempty"`
	HoldMS    float64     `json:"hold_ms"`
	SinceUIMS *float64    `json:"since_ui_ms,omitempty"`
	Position  *[3]float64 `json:"position,omitempty"`
}

// NewDecisionJSON converts a decision into its wire form.
func NewDecisionJSON(d gesture.Decision) DecisionJSON {
	out := DecisionJSON{
		At:       d.At,
		Accepted: d.Accepted,
		Reason:   string(d.Reason),
		HoldMS:   ms(d.Hold),
	}
	if d.SinceUI >= 0 {
		v := ms(d.SinceUI)
		out.SinceUIMS = &v
	}
	if d.Accepted {
		p := geom.Array(d.Request.Position)
		out.Position = &p
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
