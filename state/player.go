package state

import (
	"math"
	"sync/atomic"
)

const (
	DefaultSampleRate = 44100

	// VolumeStep is the increment used by VolumeUp and VolumeDown.
	VolumeStep = 0.1
)

// PlayerState controls the audio output loop. The sample rate is fixed at
// construction; volume is kept in [0, 1].
type PlayerState struct {
	sampleRate int
	volume     atomic.Uint64 // math.Float64bits
	playing    atomic.Bool
}

func NewPlayerState(sampleRate int, volume float64, playing bool) *PlayerState {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	p := &PlayerState{sampleRate: sampleRate}
	p.SetVolume(volume)
	p.playing.Store(playing)
	return p
}

// SampleRate returns the output sample rate in Hz.
func (p *PlayerState) SampleRate() int {
	return p.sampleRate
}

func (p *PlayerState) Volume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// SetVolume stores v clamped to [0, 1]. NaN is treated as silence.
func (p *PlayerState) SetVolume(v float64) {
	p.volume.Store(math.Float64bits(clampVolume(v)))
}

func (p *PlayerState) VolumeUp() {
	p.addVolume(VolumeStep)
}

func (p *PlayerState) VolumeDown() {
	p.addVolume(-VolumeStep)
}

func (p *PlayerState) addVolume(delta float64) {
	for {
		old := p.volume.Load()
		next := math.Float64bits(clampVolume(math.Float64frombits(old) + delta))
		if next == old || p.volume.CompareAndSwap(old, next) {
			return
		}
	}
}

// Playing reports whether audio should be streaming.
func (p *PlayerState) Playing() bool {
	return p.playing.Load()
}

func (p *PlayerState) SetPlaying(on bool) {
	p.playing.Store(on)
}

// TogglePlaying flips the play state and returns the new value.
func (p *PlayerState) TogglePlaying() bool {
	for {
		old := p.playing.Load()
		if p.playing.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// 0.1 steps accumulate binary error; keep the value on a clean grid.
	return math.Round(v*1e9) / 1e9
}
