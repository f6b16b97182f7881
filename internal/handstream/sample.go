package handstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/cutplane/internal/geom"
	"github.com/banshee-data/cutplane/internal/gesture"
)

// ErrMalformedSample wraps every line ParseSample rejects.
var ErrMalformedSample = errors.New("malformed hand sample")

// wireSample is one line of the hand stream:
//
//	{"t":1760000000.25,"hand":"right","thumb":[x,y,z],"thumb_tracked":true,
//	 "index":[x,y,z],"index_tracked":true,"hand_to_world":[16 floats]}
//
// hand_to_world is row-major with the translation in elements 3, 7 and 11.
// A missing tracked flag means tracked; a missing transform means identity.
type wireSample struct {
	T            float64   `json:"t"`
	Hand         string    `json:"hand"`
	Thumb        []float64 `json:"thumb"`
	ThumbTracked *bool     `json:"thumb_tracked,omitempty"`
	Index        []float64 `json:"index"`
	IndexTracked *bool     `json:"index_tracked,omitempty"`
	HandToWorld  []float64 `json:"hand_to_world,omitempty"`
}

// ParseSample decodes one stream line.
func ParseSample(line []byte) (gesture.Sample, error) {
	var w wireSample
	if err := json.Unmarshal(line, &w); err != nil {
		return gesture.Sample{}, fmt.Errorf("%w: %v", ErrMalformedSample, err)
	}

	hand, err := gesture.ParseChirality(w.Hand)
	if err != nil {
		return gesture.Sample{}, fmt.Errorf("%w: %v", ErrMalformedSample, err)
	}

	thumb, ok := geom.NewPoint(w.Thumb)
	if !ok {
		return gesture.Sample{}, fmt.Errorf("%w: thumb must be 3 finite numbers, got %v", ErrMalformedSample, w.Thumb)
	}
	index, ok := geom.NewPoint(w.Index)
	if !ok {
		return gesture.Sample{}, fmt.Errorf("%w: index must be 3 finite numbers, got %v", ErrMalformedSample, w.Index)
	}

	xf := geom.Identity()
	if w.HandToWorld != nil {
		if len(w.HandToWorld) != len(xf) {
			return gesture.Sample{}, fmt.Errorf("%w: hand_to_world has %d elements, want %d", ErrMalformedSample, len(w.HandToWorld), len(xf))
		}
		copy(xf[:], w.HandToWorld)
		if !xf.IsRigid() {
			return gesture.Sample{}, fmt.Errorf("%w: hand_to_world is not a rigid transform", ErrMalformedSample)
		}
	}

	if math.IsNaN(w.T) || math.IsInf(w.T, 0) || w.T < 0 {
		return gesture.Sample{}, fmt.Errorf("%w: invalid timestamp %v", ErrMalformedSample, w.T)
	}

	return gesture.Sample{
		Hand:        hand,
		ThumbTip:    gesture.Joint{Position: thumb, Tracked: tracked(w.ThumbTracked)},
		IndexTip:    gesture.Joint{Position: index, Tracked: tracked(w.IndexTracked)},
		HandToWorld: xf,
		Timestamp:   fromUnixSeconds(w.T),
	}, nil
}

// FormatSample encodes s as one stream line without the trailing newline.
func FormatSample(s gesture.Sample) ([]byte, error) {
	thumbTracked, indexTracked := s.ThumbTip.Tracked, s.IndexTip.Tracked
	thumb, index := geom.Array(s.ThumbTip.Position), geom.Array(s.IndexTip.Position)
	w := wireSample{
		T:            toUnixSeconds(s.Timestamp),
		Hand:         string(s.Hand),
		Thumb:        thumb[:],
		ThumbTracked: &thumbTracked,
		Index:        index[:],
		IndexTracked: &indexTracked,
		HandToWorld:  s.HandToWorld[:],
	}
	return json.Marshal(w)
}

func tracked(b *bool) bool {
	return b == nil || *b
}

func fromUnixSeconds(t float64) time.Time {
	if t == 0 {
		return time.Time{}
	}
	// float64 seconds carry about a quarter microsecond of precision at
	// current epochs, so the wire resolution is one microsecond.
	sec := math.Floor(t)
	usec := math.Round((t - sec) * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC()
}

func toUnixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond()/1000)/1e6
}
