package state

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Bounds of the traction signal parameters.
const (
	MinFrequency = 20
	MaxFrequency = 1000
	MinAntinodes = 3
	MaxAntinodes = 1000
)

// Direction is the polarity applied to the asymmetric waveform.
type Direction int32

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
}

// Opposite returns the other traction direction.
func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

// ParseDirection accepts "up" or "down", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return Up, fmt.Errorf("unknown traction direction %q", s)
	}
}

// SignalParam holds the parameters of the traction waveform. Frequency and
// antinode count never leave their bounds: attempts to step past a bound are
// no-ops.
type SignalParam struct {
	frequency atomic.Int64
	antinodes atomic.Int64
	direction atomic.Int32
}

func NewSignalParam(frequency, antinodes int, dir Direction) *SignalParam {
	p := &SignalParam{}
	p.SetFrequency(frequency)
	p.SetAntinodes(antinodes)
	p.SetDirection(dir)
	return p
}

// Frequency returns the waveform frequency in Hz.
func (p *SignalParam) Frequency() int {
	return int(p.frequency.Load())
}

// SetFrequency stores f clamped to [MinFrequency, MaxFrequency].
func (p *SignalParam) SetFrequency(f int) {
	p.frequency.Store(int64(clampInt(f, MinFrequency, MaxFrequency)))
}

func (p *SignalParam) FrequencyUp() {
	stepInt(&p.frequency, 1, MinFrequency, MaxFrequency)
}

func (p *SignalParam) FrequencyDown() {
	stepInt(&p.frequency, -1, MinFrequency, MaxFrequency)
}

// Antinodes returns the number of lobes per waveform period.
func (p *SignalParam) Antinodes() int {
	return int(p.antinodes.Load())
}

// SetAntinodes stores n clamped to [MinAntinodes, MaxAntinodes].
func (p *SignalParam) SetAntinodes(n int) {
	p.antinodes.Store(int64(clampInt(n, MinAntinodes, MaxAntinodes)))
}

func (p *SignalParam) AntinodesUp() {
	stepInt(&p.antinodes, 1, MinAntinodes, MaxAntinodes)
}

func (p *SignalParam) AntinodesDown() {
	stepInt(&p.antinodes, -1, MinAntinodes, MaxAntinodes)
}

func (p *SignalParam) Direction() Direction {
	return Direction(p.direction.Load())
}

func (p *SignalParam) SetDirection(d Direction) {
	if d != Down {
		d = Up
	}
	p.direction.Store(int32(d))
}

func (p *SignalParam) TractionUp() {
	p.SetDirection(Up)
}

func (p *SignalParam) TractionDown() {
	p.SetDirection(Down)
}

// TractionChange flips the direction atomically.
func (p *SignalParam) TractionChange() {
	for {
		old := p.direction.Load()
		next := int32(Direction(old).Opposite())
		if p.direction.CompareAndSwap(old, next) {
			return
		}
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// stepInt adds delta to cell unless the result would leave [lo, hi].
func stepInt(cell *atomic.Int64, delta, lo, hi int64) {
	for {
		old := cell.Load()
		next := old + delta
		if next < lo || next > hi {
			return
		}
		if cell.CompareAndSwap(old, next) {
			return
		}
	}
}
