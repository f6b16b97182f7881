package gesture

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/cutplane/internal/config"
	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/monitoring"
)

// Chirality is the handedness of a tracked hand.
type Chirality string

const (
	Left  Chirality = "left"
	Right Chirality = "right"
)

// ParseChirality accepts "left"/"right" in any case, and the "l"/"r" shorthands.
func ParseChirality(s string) (Chirality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return "", fmt.Errorf("unknown chirality %q", s)
	}
}

// Joint is one tracked skeleton joint in the hand-local frame.
type Joint struct {
	Position geom.Point
	Tracked  bool
}

// Sample is one hand-tracking update for a single hand.
type Sample struct {
	Hand     Chirality
	ThumbTip Joint
	IndexTip Joint
	// HandToWorld maps the hand-local frame into the world frame.
	HandToWorld geom.RigidTransform
	// Timestamp is the sensor time of the sample. A zero value means the
	// detector clock is used instead.
	Timestamp time.Time
}

// MarkerPlacementRequested is emitted for every accepted pinch release.
type MarkerPlacementRequested struct {
	// Position is the thumb/index midpoint in world coordinates.
	Position geom.Point
	At       time.Time
	Hold     time.Duration
}

// RejectReason names the acceptance condition a release failed.
type RejectReason string

const (
	RejectUIDebounce RejectReason = "ui_debounce"
	RejectNoStart    RejectReason = "no_start"
	RejectTooShort   RejectReason = "too_short"
	RejectTooLong    RejectReason = "too_long"
)

// Decision is the outcome of evaluating one pinch release.
type Decision struct {
	At       time.Time
	Accepted bool
	Reason   RejectReason
	// Hold is the pinch duration; zero when no start was recorded.
	Hold time.Duration
	// SinceUI is the time since the last UI interaction; negative when no
	// interaction has been recorded.
	SinceUI time.Duration
	// Request is set only when Accepted.
	Request MarkerPlacementRequested
}

// Config holds the detector thresholds.
type Config struct {
	Hand           Chirality
	PinchThreshold float64
	UIDebounce     time.Duration
	MinHold        time.Duration
	MaxHold        time.Duration
}

// DefaultConfig returns the calibrated defaults: right hand, 3 cm pinch,
// 2 s UI debounce, holds between 300 ms and 3 s.
func DefaultConfig() Config {
	return Config{
		Hand:           Right,
		PinchThreshold: 0.03,
		UIDebounce:     2 * time.Second,
		MinHold:        300 * time.Millisecond,
		MaxHold:        3 * time.Second,
	}
}

// ConfigFromTuning builds a detector Config from the tuning file. An
// unknown hand falls back to Right with a warning; TuningConfig.Validate
// rejects it up front.
func ConfigFromTuning(t *config.TuningConfig) Config {
	hand, err := ParseChirality(t.GetHand())
	if err != nil {
		hand = Right
		log := monitoring.Component("gesture")
		log.Warn().Err(err).Str("hand", t.GetHand()).Msg("unknown hand in tuning config, tracking the right hand")
	}
	return Config{
		Hand:           hand,
		PinchThreshold: t.GetPinchThreshold(),
		UIDebounce:     t.GetUIDebounce(),
		MinHold:        t.GetMinHold(),
		MaxHold:        t.GetMaxHold(),
	}
}
