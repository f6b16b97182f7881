// Package gesture turns a continuous hand-tracking signal into discrete
// marker placement requests.
//
// A pinch is thumb tip and index tip closer than the pinch threshold. A
// request is emitted on release only when the hold lasted between MinHold
// and MaxHold and no UI interaction happened within UIDebounce; everything
// else is dropped as incidental or UI-directed.
package gesture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/monitoring"
	"github.com/banshee-data/cutplane/internal/timeutil"
)

const instrumentationName = "github.com/banshee-data/cutplane/internal/gesture"

// Detector is the pinch state machine for one hand. Process must be called
// from a single goroutine; NoteUIInteraction may be called from any.
type Detector struct {
	cfg   Config
	clock timeutil.Clock
	log   zerolog.Logger

	isPinching bool
	pinchStart time.Time // zero when no pinch is in progress

	lastUI atomic.Int64 // unix nanos; 0 means never

	last    Decision
	hasLast bool

	processed metric.Int64Counter
	accepted  metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewDetector creates a detector. A nil clock uses the real clock.
// Metrics go to the global OpenTelemetry meter (no-op if not configured).
func NewDetector(cfg Config, clock timeutil.Clock) *Detector {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	d := &Detector{
		cfg:   cfg,
		clock: clock,
		log:   monitoring.Component("gesture"),
	}
	d.initMetrics(otel.Meter(instrumentationName))
	return d
}

func (d *Detector) initMetrics(m metric.Meter) {
	var err error
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	if d.processed, err = m.Int64Counter("gesture.samples.processed",
		metric.WithDescription("Hand samples evaluated by the pinch detector")); err != nil {
		d.log.Warn().Err(err).Msg("creating processed counter")
		d.processed, _ = fallback.Int64Counter("gesture.samples.processed")
	}
	if d.accepted, err = m.Int64Counter("gesture.pinch.accepted",
		metric.WithDescription("Pinch releases accepted as marker placements")); err != nil {
		d.log.Warn().Err(err).Msg("creating accepted counter")
		d.accepted, _ = fallback.Int64Counter("gesture.pinch.accepted")
	}
	if d.rejected, err = m.Int64Counter("gesture.pinch.rejected",
		metric.WithDescription("Pinch releases rejected, by reason")); err != nil {
		d.log.Warn().Err(err).Msg("creating rejected counter")
		d.rejected, _ = fallback.Int64Counter("gesture.pinch.rejected")
	}
}

// Config returns the detector thresholds.
func (d *Detector) Config() Config {
	return d.cfg
}

// NoteUIInteraction records that the user focused or tapped a UI control at t.
func (d *Detector) NoteUIInteraction(t time.Time) {
	d.lastUI.Store(t.UnixNano())
}

// LastUIInteraction returns the last recorded UI interaction, or ok=false if
// none has been recorded.
func (d *Detector) LastUIInteraction() (t time.Time, ok bool) {
	n := d.lastUI.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// IsPinching reports the pinch state after the last tracked sample.
func (d *Detector) IsPinching() bool {
	return d.isPinching
}

// PinchStart returns when the current pinch began.
func (d *Detector) PinchStart() (time.Time, bool) {
	return d.pinchStart, !d.pinchStart.IsZero()
}

// LastDecision returns the most recent release decision.
func (d *Detector) LastDecision() (Decision, bool) {
	return d.last, d.hasLast
}

// Reset discards any in-flight pinch. The UI interaction time is kept.
func (d *Detector) Reset() {
	d.isPinching = false
	d.pinchStart = time.Time{}
}

// Process feeds one sample through the state machine. ok is true when the
// sample released a pinch; the returned Decision then says whether a marker
// placement was requested.
//
// Samples for the other hand are ignored, and samples with an untracked
// thumb or index tip are skipped without touching the pinch state.
func (d *Detector) Process(ctx context.Context, s Sample) (Decision, bool) {
	if s.Hand != d.cfg.Hand {
		return Decision{}, false
	}
	if !s.ThumbTip.Tracked || !s.IndexTip.Tracked {
		return Decision{}, false
	}
	d.processed.Add(ctx, 1)

	now := s.Timestamp
	if now.IsZero() {
		now = d.clock.Now()
	}

	distance := geom.Distance(s.ThumbTip.Position, s.IndexTip.Position)
	pinching := distance < d.cfg.PinchThreshold
	wasPinching := d.isPinching
	d.isPinching = pinching

	switch {
	case !wasPinching && pinching:
		d.pinchStart = now
		d.log.Trace().Float64("distance_m", distance).Msg("pinch started")
		return Decision{}, false

	case wasPinching && !pinching:
		dec := d.evaluate(now)
		if dec.Accepted {
			local := geom.Midpoint(s.ThumbTip.Position, s.IndexTip.Position)
			dec.Request = MarkerPlacementRequested{
				Position: s.HandToWorld.Apply(local),
				At:       now,
				Hold:     dec.Hold,
			}
			d.accepted.Add(ctx, 1)
			d.log.Info().
				Dur("hold", dec.Hold).
				Floats64("position", []float64{dec.Request.Position.X, dec.Request.Position.Y, dec.Request.Position.Z}).
				Msg("pinch released, marker requested")
		} else {
			d.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(dec.Reason))))
			d.log.Debug().
				Str("reason", string(dec.Reason)).
				Dur("hold", dec.Hold).
				Dur("since_ui", dec.SinceUI).
				Msg("pinch ignored")
		}
		d.pinchStart = time.Time{}
		d.last, d.hasLast = dec, true
		return dec, true
	}

	return Decision{}, false
}

// evaluate applies the acceptance rules to a release at now.
func (d *Detector) evaluate(now time.Time) Decision {
	dec := Decision{At: now, SinceUI: -1}

	if ui, ok := d.LastUIInteraction(); ok {
		dec.SinceUI = now.Sub(ui)
		if dec.SinceUI < d.cfg.UIDebounce {
			dec.Reason = RejectUIDebounce
			return dec
		}
	}

	if d.pinchStart.IsZero() {
		dec.Reason = RejectNoStart
		return dec
	}

	dec.Hold = now.Sub(d.pinchStart)
	switch {
	case dec.Hold < d.cfg.MinHold:
		dec.Reason = RejectTooShort
	case dec.Hold > d.cfg.MaxHold:
		dec.Reason = RejectTooLong
	default:
		dec.Accepted = true
	}
	return dec
}
