// Package waveform synthesizes the asymmetric traction cue.
//
// One period of the cue is |sin(n/2 · x)| over x ∈ [0, 2π), i.e. n positive
// lobes, with the last lobe negated. The lopsided period is what the hand
// perceives as a pull; negating the whole buffer reverses the pull.
//
// Buffers are cycle aligned: they hold a whole number of periods, so looping a
// buffer or swapping it for one with new parameters never leaves a phase jump.
package waveform

import (
	"errors"
	"fmt"
	"math"

	"github.com/drgolem/traction-maze/state"
)

// NominalDuration is the target buffer length before snapping to whole cycles.
const NominalDuration = 0.1 // seconds

var (
	// ErrTooFewAntinodes is returned for fewer than three lobes per period;
	// the inversion rule needs at least one upright lobe besides the inverted one.
	ErrTooFewAntinodes = errors.New("waveform: antinode count must be at least 3")
	ErrInvalidParams   = errors.New("waveform: sample rate and frequency must be positive")
)

// Cycles returns how many whole periods of frequency fit the nominal duration
// (rounded to nearest, at least one).
func Cycles(frequency int) int {
	return max(1, int(math.Round(NominalDuration*float64(frequency))))
}

// Length returns the buffer length in samples for the given rate and frequency.
func Length(sampleRate, frequency int) int {
	return Cycles(frequency) * sampleRate / frequency
}

// Generate builds one cycle-aligned buffer of the traction cue.
// It is pure: equal arguments give bit-identical output.
func Generate(sampleRate, frequency, antinodes int, dir state.Direction) ([]float32, error) {
	if sampleRate <= 0 || frequency <= 0 {
		return nil, fmt.Errorf("%w: rate=%d frequency=%d", ErrInvalidParams, sampleRate, frequency)
	}
	if antinodes < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewAntinodes, antinodes)
	}

	n := Length(sampleRate, frequency)
	buf := make([]float32, n)

	sign := 1.0
	if dir == state.Down {
		sign = -1.0
	}
	lobes := float64(antinodes)
	lastLobe := (lobes - 1) / lobes
	rate := int64(sampleRate)
	f := int64(frequency)

	for i := range buf {
		// Phase within the period as an exact fraction of the sample rate,
		// so long buffers do not drift.
		frac := float64((int64(i)*f)%rate) / float64(rate)
		v := math.Abs(math.Sin(lobes * math.Pi * frac))
		if frac > lastLobe {
			v = -v
		}
		buf[i] = float32(sign * v)
	}

	return buf, nil
}
