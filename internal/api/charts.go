package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/httputil"
	"github.com/banshee-data/cutplane/internal/markers"
)

// chartPadding is the margin around the plotted points, in metres.
const chartPadding = 0.25

// handleMarkersChart renders a top-down (X/Z) scatter of the markers, the
// plane centre and the plane outline.
func (s *Server) handleMarkersChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	snap, err := s.session.Snapshot(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	scatter := MarkersChart(snap)
	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// MarkersChart builds the top-down chart of a snapshot.
func MarkersChart(snap markers.Snapshot) *charts.Scatter {
	points := make([]geom.Point, 0, len(snap.Markers)+5)
	for _, m := range snap.Markers {
		points = append(points, m.Position)
	}

	var outline []opts.ScatterData
	if p := snap.Plane; p != nil {
		points = append(points, p.Center)
		for _, c := range p.Corners() {
			points = append(points, c)
			outline = append(outline, opts.ScatterData{Value: []interface{}{c.X, c.Z}})
		}
	}

	bounds := geom.FoldBounds(points)
	xMin, xMax, zMin, zMax := -1.0, 1.0, -1.0, 1.0
	if !bounds.IsEmpty() {
		// Equal spans keep the top-down view undistorted.
		half := bounds.MaxDimension()/2 + chartPadding
		c := bounds.Center()
		xMin, xMax, zMin, zMax = c.X-half, c.X+half, c.Z-half, c.Z+half
	}

	subtitle := fmt.Sprintf("markers=%d version=%d", len(snap.Markers), snap.Version)
	if p := snap.Plane; p != nil && p.Degenerate {
		subtitle += " (degenerate plane)"
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Cutting plane", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Markers (top-down)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xMin, Max: xMax, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: zMin, Max: zMax, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
	)

	for _, m := range snap.Markers {
		scatter.AddSeries(
			fmt.Sprintf("marker %d", m.Index),
			[]opts.ScatterData{{Value: []interface{}{m.Position.X, m.Position.Z, m.Position.Y}}},
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: m.Color.Hex()}),
		)
	}
	if p := snap.Plane; p != nil {
		scatter.AddSeries("plane centre",
			[]opts.ScatterData{{Value: []interface{}{p.Center.X, p.Center.Z, p.Center.Y}}},
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ffffff"}),
		)
		scatter.AddSeries("plane outline", outline,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: p.Tint.Hex()}),
		)
	}
	return scatter
}
