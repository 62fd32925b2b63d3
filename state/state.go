// Package state holds the process-wide records shared by every worker of the
// traction maze: application lifecycle, audio player settings, traction signal
// parameters, game session progress and the current GUI page.
//
// Every scalar field lives in its own atomic cell. Readers and writers of
// different fields never block each other, and saturating updates are done
// with compare-and-swap loops so no worker can observe a value outside its
// declared bounds. There is no cross-field transaction: a reader may see a new
// frequency together with a stale antinode count for one iteration.
package state

import (
	"time"
)

// Shared bundles the five records. It is created once at process start and
// handed to every worker; workers keep the pointer, never a copy.
type Shared struct {
	App    *AppRunState
	Player *PlayerState
	Signal *SignalParam
	Game   *GameState
	GUI    *GuiState
}

// Options seeds the initial values of a Shared state.
type Options struct {
	SampleRate int
	Volume     float64
	Playing    bool
	Frequency  int
	Antinodes  int
	Direction  Direction
}

// DefaultOptions mirrors the values the device ships with.
func DefaultOptions() Options {
	return Options{
		SampleRate: DefaultSampleRate,
		Volume:     0.5,
		Playing:    true,
		Frequency:  63,
		Antinodes:  4,
		Direction:  Up,
	}
}

// New creates the shared state. Out-of-range option values are clamped.
func New(opts Options) *Shared {
	return &Shared{
		App:    NewAppRunState(),
		Player: NewPlayerState(opts.SampleRate, opts.Volume, opts.Playing),
		Signal: NewSignalParam(opts.Frequency, opts.Antinodes, opts.Direction),
		Game:   NewGameState(time.Now()),
		GUI:    NewGuiState(),
	}
}
