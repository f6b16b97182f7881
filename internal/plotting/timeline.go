// Package plotting renders offline diagnostic plots of pinch detection.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
)

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("no tracked samples to plot")

var (
	distanceColor  = color.RGBA{R: 30, G: 120, B: 220, A: 255}
	thresholdColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	acceptedColor  = color.RGBA{R: 40, G: 170, B: 70, A: 255}
	rejectedColor  = color.RGBA{R: 220, G: 50, B: 50, A: 255}
)

// BuildPinchTimeline plots thumb-index distance against time, the pinch
// threshold, and each release decision at the threshold height. Times are
// seconds from the first timestamped sample; untimed samples are placed by
// index at 90 Hz.
func BuildPinchTimeline(samples []gesture.Sample, decisions []gesture.Decision, threshold float64) (*plot.Plot, error) {
	var origin time.Time
	for _, s := range samples {
		if !s.Timestamp.IsZero() {
			origin = s.Timestamp
			break
		}
	}

	at := func(i int, t time.Time) float64 {
		if t.IsZero() || origin.IsZero() {
			return float64(i) / 90
		}
		return t.Sub(origin).Seconds()
	}

	dist := make(plotter.XYs, 0, len(samples))
	for i, s := range samples {
		if !s.ThumbTip.Tracked || !s.IndexTip.Tracked {
			continue
		}
		dist = append(dist, plotter.XY{
			X: at(i, s.Timestamp),
			Y: geom.Distance(s.ThumbTip.Position, s.IndexTip.Position),
		})
	}
	if len(dist) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pinch timeline (%d samples, %d releases)", len(dist), len(decisions))
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Thumb-index distance (m)"

	line, err := plotter.NewLine(dist)
	if err != nil {
		return nil, fmt.Errorf("distance line: %w", err)
	}
	line.Color = distanceColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("distance", line)

	xMin, xMax := dist[0].X, dist[len(dist)-1].X
	thresholdLine, err := plotter.NewLine(plotter.XYs{{X: xMin, Y: threshold}, {X: xMax, Y: threshold}})
	if err != nil {
		return nil, fmt.Errorf("threshold line: %w", err)
	}
	thresholdLine.Color = thresholdColor
	thresholdLine.Width = vg.Points(1)
	thresholdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(thresholdLine)
	p.Legend.Add(fmt.Sprintf("threshold %.3f m", threshold), thresholdLine)

	var accepted, rejected plotter.XYs
	for _, d := range decisions {
		pt := plotter.XY{X: at(0, d.At), Y: threshold}
		if d.Accepted {
			accepted = append(accepted, pt)
		} else {
			rejected = append(rejected, pt)
		}
	}
	for _, set := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"accepted", accepted, acceptedColor, draw.CircleGlyph{}},
		{"rejected", rejected, rejectedColor, draw.CrossGlyph{}},
	} {
		if len(set.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(set.pts)
		if err != nil {
			return nil, fmt.Errorf("%s releases: %w", set.name, err)
		}
		sc.GlyphStyle.Color = set.color
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Shape = set.shape
		p.Add(sc)
		p.Legend.Add(set.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())

	return p, nil
}

// PinchTimeline renders the timeline to path; the format follows the
// extension (.png, .svg, .pdf).
func PinchTimeline(samples []gesture.Sample, decisions []gesture.Decision, threshold float64, path string) error {
	p, err := BuildPinchTimeline(samples, decisions, threshold)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save pinch timeline: %w", err)
	}
	return nil
}
