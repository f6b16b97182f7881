// Package markers owns the bounded marker sequence and the cutting plane
// derived from it.
//
// At most Capacity markers exist; adding one more evicts the oldest. The
// plane exists exactly when Capacity markers exist and is refit in full
// from their positions, in placement order, on every change.
package markers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/monitoring"
)

const instrumentationName = "github.com/banshee-data/cutplane/internal/markers"

type entry struct {
	position geom.Point
	pulse    Pulse
}

// Store holds markers and the cutting plane. It is not safe for concurrent
// use; the session loop is its single owner.
type Store struct {
	opts    Options
	log     zerolog.Logger
	entries []entry
	plane   *CuttingPlane
	version uint64

	added   metric.Int64Counter
	evicted metric.Int64Counter
	fitted  metric.Int64Counter
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	s := &Store{
		opts:    opts,
		log:     monitoring.Component("markers"),
		entries: make([]entry, 0, Capacity),
	}
	s.initMetrics(otel.Meter(instrumentationName))
	return s
}

func (s *Store) initMetrics(m metric.Meter) {
	var err error
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	if s.added, err = m.Int64Counter("markers.added",
		metric.WithDescription("Markers placed")); err != nil {
		s.added, _ = fallback.Int64Counter("markers.added")
	}
	if s.evicted, err = m.Int64Counter("markers.evicted",
		metric.WithDescription("Markers evicted on overflow")); err != nil {
		s.evicted, _ = fallback.Int64Counter("markers.evicted")
	}
	if s.fitted, err = m.Int64Counter("markers.plane.fitted",
		metric.WithDescription("Cutting planes fitted")); err != nil {
		s.fitted, _ = fallback.Int64Counter("markers.plane.fitted")
	}
}

// Add places a marker at position. When the store is full the oldest marker
// is evicted first. Add never fails.
func (s *Store) Add(position geom.Point) {
	ctx := context.Background()

	if len(s.entries) >= Capacity {
		s.entries = append(s.entries[:0], s.entries[1:]...)
		s.evicted.Add(ctx, 1)
	}

	s.entries = append(s.entries, entry{
		position: position,
		pulse:    NewPulse(s.opts.PulsePeriod, s.opts.PulseScale),
	})
	s.version++
	s.added.Add(ctx, 1)

	s.log.Info().
		Int("index", len(s.entries)-1).
		Int("count", len(s.entries)).
		Floats64("position", []float64{position.X, position.Y, position.Z}).
		Msg("marker added")

	if len(s.entries) == Capacity {
		s.refit(ctx)
	} else {
		s.plane = nil
	}
}

// Clear removes all markers and the plane. Clearing an empty store is a no-op
// apart from the version bump.
func (s *Store) Clear() {
	s.entries = s.entries[:0]
	s.plane = nil
	s.version++
	s.log.Info().Msg("all markers cleared")
}

func (s *Store) refit(ctx context.Context) {
	fit := geom.FitPlane(s.entries[0].position, s.entries[1].position, s.entries[2].position, s.opts.CollinearEpsilon)
	if fit.Degenerate {
		s.log.Warn().
			Float64("cross_length", fit.CrossLength).
			Msg("markers nearly collinear, cutting plane falls back to horizontal")
	}

	s.plane = &CuttingPlane{
		Center:      fit.Center,
		Normal:      fit.Normal,
		Orientation: fit.Orientation,
		Width:       s.opts.PlaneSize,
		Depth:       s.opts.PlaneSize,
		Tint:        PlaneTint,
		CrossLength: fit.CrossLength,
		Degenerate:  fit.Degenerate,
	}
	s.fitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("degenerate", fit.Degenerate)))

	s.log.Debug().
		Floats64("center", []float64{fit.Center.X, fit.Center.Y, fit.Center.Z}).
		Floats64("normal", []float64{fit.Normal.X, fit.Normal.Y, fit.Normal.Z}).
		Msg("cutting plane updated")
}

// Count returns the number of markers.
func (s *Store) Count() int {
	return len(s.entries)
}

// Markers returns a copy of the markers in placement order.
func (s *Store) Markers() []Marker {
	out := make([]Marker, len(s.entries))
	for i, e := range s.entries {
		out[i] = Marker{
			Position: e.position,
			Index:    i,
			Color:    ColorForIndex(i),
			Scale:    e.pulse.Scale(),
		}
	}
	return out
}

// Plane returns the current cutting plane, if any.
func (s *Store) Plane() (CuttingPlane, bool) {
	if s.plane == nil {
		return CuttingPlane{}, false
	}
	return *s.plane, true
}

// Snapshot returns a consistent copy of markers and plane.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{Markers: s.Markers(), Version: s.version}
	if p, ok := s.Plane(); ok {
		snap.Plane = &p
	}
	return snap
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	return s.version
}

// Advance steps every marker's pulse animation by dt.
func (s *Store) Advance(dt time.Duration) {
	for i := range s.entries {
		s.entries[i].pulse.Advance(dt)
	}
}
