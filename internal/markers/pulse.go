package markers

import "time"

// Pulse is the marker "breathing" animation: the scale ramps linearly from 1
// to Peak over the first half of Period and back over the second half. It
// holds no timers; the frame loop advances it.
type Pulse struct {
	Period  time.Duration
	Peak    float64
	elapsed time.Duration
}

// NewPulse returns a pulse at the start of its cycle.
func NewPulse(period time.Duration, peak float64) Pulse {
	return Pulse{Period: period, Peak: peak}
}

// Advance moves the animation forward by dt. Negative steps are ignored.
func (p *Pulse) Advance(dt time.Duration) {
	if dt <= 0 || p.Period <= 0 {
		return
	}
	p.elapsed = (p.elapsed + dt) % p.Period
}

// Scale returns the current scale factor in [1, Peak].
func (p Pulse) Scale() float64 {
	if p.Period <= 0 || p.Peak <= 1 {
		return 1
	}
	phase := float64(p.elapsed) / float64(p.Period)
	ramp := 2 * phase
	if phase > 0.5 {
		ramp = 2 - 2*phase
	}
	return 1 + (p.Peak-1)*ramp
}
