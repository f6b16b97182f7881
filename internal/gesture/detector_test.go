package gesture

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/timeutil"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}

// sample builds a right-hand sample with the thumb at the hand origin and
// the index tip gap metres along +X.
func sample(ts time.Time, gap float64) Sample {
	return Sample{
		Hand:        Right,
		ThumbTip:    Joint{Position: geom.Point{}, Tracked: true},
		IndexTip:    Joint{Position: geom.Point{X: gap}, Tracked: true},
		HandToWorld: geom.Identity(),
		Timestamp:   ts,
	}
}

func pinched(ts time.Time) Sample  { return sample(ts, 0.01) }
func released(ts time.Time) Sample { return sample(ts, 0.08) }

func newTestDetector() *Detector {
	return NewDetector(DefaultConfig(), timeutil.NewMockClock(t0))
}

// pinchAndRelease drives a full pinch and returns the release decision.
func pinchAndRelease(t *testing.T, d *Detector, start, end time.Time) Decision {
	t.Helper()
	ctx := context.Background()
	_, ok := d.Process(ctx, pinched(start))
	require.False(t, ok, "pinch start is not a release")
	dec, ok := d.Process(ctx, released(end))
	require.True(t, ok, "release must be evaluated")
	return dec
}

func TestHappyPathCreatesMarkerAtMidpoint(t *testing.T) {
	d := newTestDetector()
	d.NoteUIInteraction(at(-10))

	ctx := context.Background()
	_, ok := d.Process(ctx, pinched(at(0)))
	require.False(t, ok)

	// Release with the fingers 8 cm apart in a hand frame offset to (0,1,-1).
	release := released(at(1.0))
	release.HandToWorld = geom.Translation(0, 1, -1)
	dec, ok := d.Process(ctx, release)

	require.True(t, ok)
	assert.True(t, dec.Accepted)
	assert.Empty(t, dec.Reason)
	assert.Equal(t, time.Second, dec.Hold)
	assert.Equal(t, 10*time.Second, dec.SinceUI)
	assert.InDelta(t, 0.04, dec.Request.Position.X, 1e-12)
	assert.InDelta(t, 1.0, dec.Request.Position.Y, 1e-12)
	assert.InDelta(t, -1.0, dec.Request.Position.Z, 1e-12)
	assert.Equal(t, at(1.0), dec.Request.At)
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name     string
		lastUI   *float64
		start    float64
		end      float64
		reason   RejectReason
		accepted bool
	}{
		{name: "too short", start: 0, end: 0.1, reason: RejectTooShort},
		{name: "too long", start: 0, end: 4.0, reason: RejectTooLong},
		{name: "ui debounce", lastUI: ptr(-1.0), start: -2.0, end: 0, reason: RejectUIDebounce},
		{name: "debounce boundary accepted", lastUI: ptr(-2.0), start: -1, end: 0, accepted: true},
		{name: "min hold boundary accepted", start: 0, end: 0.3, accepted: true},
		{name: "max hold boundary accepted", start: 0, end: 3.0, accepted: true},
		{name: "no ui interaction ever", start: 0, end: 0.5, accepted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector()
			if tt.lastUI != nil {
				d.NoteUIInteraction(at(*tt.lastUI))
			}
			dec := pinchAndRelease(t, d, at(tt.start), at(tt.end))
			assert.Equal(t, tt.accepted, dec.Accepted)
			assert.Equal(t, tt.reason, dec.Reason)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestUIDebounceTakesPrecedence(t *testing.T) {
	d := newTestDetector()
	d.NoteUIInteraction(at(0.05))

	// Too short as well, but the UI debounce is reported first.
	dec := pinchAndRelease(t, d, at(0), at(0.1))
	assert.Equal(t, RejectUIDebounce, dec.Reason)
}

func TestOtherHandIgnored(t *testing.T) {
	d := newTestDetector()
	ctx := context.Background()

	s := pinched(at(0))
	s.Hand = Left
	_, ok := d.Process(ctx, s)
	assert.False(t, ok)
	assert.False(t, d.IsPinching(), "left hand must not affect state")

	_, started := d.PinchStart()
	assert.False(t, started)
}

func TestUntrackedJointSkipsSample(t *testing.T) {
	d := newTestDetector()
	ctx := context.Background()

	_, _ = d.Process(ctx, pinched(at(0)))
	require.True(t, d.IsPinching())

	lost := released(at(0.5))
	lost.IndexTip.Tracked = false
	_, ok := d.Process(ctx, lost)
	assert.False(t, ok)
	assert.True(t, d.IsPinching(), "untracked sample leaves pinch state alone")

	start, ok := d.PinchStart()
	require.True(t, ok)
	assert.Equal(t, at(0), start)

	dec, ok := d.Process(ctx, released(at(0.8)))
	require.True(t, ok)
	assert.True(t, dec.Accepted)
	assert.Equal(t, 800*time.Millisecond, dec.Hold)
}

func TestHeldPinchDoesNotRestartTimer(t *testing.T) {
	d := newTestDetector()
	ctx := context.Background()

	for _, s := range []float64{0, 0.1, 0.2, 0.3, 0.4} {
		_, ok := d.Process(ctx, pinched(at(s)))
		require.False(t, ok)
	}
	start, _ := d.PinchStart()
	assert.Equal(t, at(0), start)

	dec, ok := d.Process(ctx, released(at(0.5)))
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, dec.Hold)
}

func TestStateResetsAfterRelease(t *testing.T) {
	d := newTestDetector()
	ctx := context.Background()

	pinchAndRelease(t, d, at(0), at(0.1))
	_, started := d.PinchStart()
	assert.False(t, started, "pinch start cleared after rejected release")

	// Open samples after a release are not further releases.
	_, ok := d.Process(ctx, released(at(0.2)))
	assert.False(t, ok)

	dec := pinchAndRelease(t, d, at(1), at(1.5))
	assert.True(t, dec.Accepted)

	last, ok := d.LastDecision()
	require.True(t, ok)
	assert.Equal(t, dec, last)
}

func TestThresholdIsStrict(t *testing.T) {
	d := newTestDetector()
	_, _ = d.Process(context.Background(), sample(at(0), 0.03))
	assert.False(t, d.IsPinching(), "distance equal to the threshold is not a pinch")

	_, _ = d.Process(context.Background(), sample(at(0.1), 0.0299))
	assert.True(t, d.IsPinching())
}

func TestZeroTimestampUsesClock(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	d := NewDetector(DefaultConfig(), clock)
	ctx := context.Background()

	_, _ = d.Process(ctx, pinched(time.Time{}))
	clock.Advance(700 * time.Millisecond)
	dec, ok := d.Process(ctx, released(time.Time{}))

	require.True(t, ok)
	assert.True(t, dec.Accepted)
	assert.Equal(t, 700*time.Millisecond, dec.Hold)
	assert.Equal(t, t0.Add(700*time.Millisecond), dec.At)
}

func TestResetDiscardsInFlightPinch(t *testing.T) {
	d := newTestDetector()
	ctx := context.Background()

	_, _ = d.Process(ctx, pinched(at(0)))
	d.Reset()
	assert.False(t, d.IsPinching())

	_, ok := d.Process(ctx, released(at(1)))
	assert.False(t, ok, "no release after reset")
}

func TestLastUIInteraction(t *testing.T) {
	d := newTestDetector()
	_, ok := d.LastUIInteraction()
	assert.False(t, ok)

	d.NoteUIInteraction(at(3))
	got, ok := d.LastUIInteraction()
	require.True(t, ok)
	assert.True(t, got.Equal(at(3)))
}

func TestParseChirality(t *testing.T) {
	for in, want := range map[string]Chirality{"left": Left, "R": Right, " Right ": Right, "l": Left} {
		got, err := ParseChirality(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseChirality("both")
	assert.Error(t, err)
}

func TestLeftHandConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hand = Left
	d := NewDetector(cfg, nil)

	start, end := pinched(at(0)), released(at(1))
	start.Hand, end.Hand = Left, Left
	_, _ = d.Process(context.Background(), start)
	dec, ok := d.Process(context.Background(), end)
	require.True(t, ok)
	assert.True(t, dec.Accepted)
}
