package game

import (
	"time"

	"github.com/drgolem/traction-maze/gpio"
)

// courseDetector counts wall touches with an invincibility window.
//
// A fresh contact starts the window timer. Every full window the probe stays
// in contact counts one touch and advances the timer by one window, so a
// contact held for T counts floor(T/window) touches. A re-contact less than
// one window after release resumes the running timer instead of starting a
// new one, which absorbs contact bounce.
type courseDetector struct {
	window time.Duration

	touching   bool
	timerStart time.Time
	lastSample time.Time
	releasedAt time.Time
}

// step feeds one sample and returns the touches to count and the contact
// time to accrue.
func (d *courseDetector) step(now time.Time, lvl gpio.Level) (touches int, contact time.Duration) {
	switch lvl {
	case gpio.Unknown:
		// Hold counters; the gap is neither contact time nor window time.
		if d.touching {
			d.timerStart = d.timerStart.Add(now.Sub(d.lastSample))
			d.lastSample = now
		}
		return 0, 0
	case gpio.Inactive:
		if d.touching {
			d.touching = false
			d.releasedAt = now
		}
		return 0, 0
	}

	if !d.touching {
		d.touching = true
		d.lastSample = now
		if d.releasedAt.IsZero() || now.Sub(d.releasedAt) >= d.window {
			d.timerStart = now
		}
		return 0, 0
	}

	contact = now.Sub(d.lastSample)
	d.lastSample = now
	for d.window > 0 && now.Sub(d.timerStart) >= d.window {
		touches++
		d.timerStart = d.timerStart.Add(d.window)
	}
	return touches, contact
}

func (d *courseDetector) reset() {
	*d = courseDetector{window: d.window}
}

// dwellDetector fires once a line has been active continuously for at least
// the required duration. Any inactive sample restarts the dwell; unknown
// samples hold it.
type dwellDetector struct {
	required time.Duration

	active     bool
	dwell      time.Duration
	lastSample time.Time
}

// step feeds one sample and reports whether the dwell requirement is met.
func (d *dwellDetector) step(now time.Time, lvl gpio.Level) bool {
	switch lvl {
	case gpio.Unknown:
		if d.active {
			d.lastSample = now
		}
		return d.active && d.dwell >= d.required
	case gpio.Inactive:
		d.active = false
		d.dwell = 0
		return false
	}

	if d.active {
		d.dwell += now.Sub(d.lastSample)
	}
	d.active = true
	d.lastSample = now
	return d.dwell >= d.required
}

func (d *dwellDetector) reset() {
	*d = dwellDetector{required: d.required}
}
