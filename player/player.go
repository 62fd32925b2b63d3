// Package player runs the audio output loop: it picks the next buffer to
// play from the shared state and hands it to a blocking output device.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/drgolem/traction-maze/state"
	"github.com/drgolem/traction-maze/waveform"
)

// IdlePoll is how often a stopped player rechecks the play state and page.
const IdlePoll = 10 * time.Millisecond

// Device is a mono float32 output. Write blocks until the device has
// accepted the whole buffer; that blocking paces the loop.
type Device interface {
	Start() error
	Stop() error
	Write(samples []float32) error
	Close() error
}

// Effects provides the one-shot sounds. A nil or empty buffer means the
// effect is unavailable and the waveform plays instead.
type Effects interface {
	Fanfare() []float32
	WallHit() []float32
}

// Player is the audio worker.
//
// Each iteration writes exactly one buffer:
//
//	page entered Result  ─▶ fanfare (once per entry)
//	touch count grew     ─▶ random wall hit
//	otherwise            ─▶ cached traction waveform scaled by volume
type Player struct {
	shared  *state.Shared
	device  Device
	effects Effects
	cache   *waveform.Cache
	logger  *slog.Logger

	started  bool
	prevPage state.Page
	touches  int
	scratch  []float32

	writes        atomic.Uint64
	samplesOut    atomic.Uint64
	effectsPlayed atomic.Uint64
	idleLoops     atomic.Uint64
	maxWriteNs    atomic.Int64
	totalWriteNs  atomic.Int64
}

func New(shared *state.Shared, device Device, effects Effects, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		shared:   shared,
		device:   device,
		effects:  effects,
		cache:    waveform.NewCache(),
		logger:   logger,
		prevPage: shared.GUI.Page(),
		touches:  shared.Game.TouchCount(),
	}
}

// Run loops until ctx is done or the application stops. A device failure is
// returned so the supervisor can stop the application; the device is closed
// on return either way.
func (p *Player) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := p.shutdown(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	for p.shared.App.Running() {
		if ctx.Err() != nil {
			return nil
		}
		// Audio is only live on the Game and Result pages.
		if !p.shared.Player.Playing() || p.shared.GUI.Page() == state.Title {
			if err := p.pause(); err != nil {
				return err
			}
			p.idleLoops.Add(1)
			select {
			case <-ctx.Done():
				return nil
			case <-p.shared.App.Done():
				return nil
			case <-time.After(IdlePoll):
			}
			continue
		}

		if !p.started {
			if err := p.device.Start(); err != nil {
				return fmt.Errorf("start device: %w", err)
			}
			p.started = true
		}

		buf, err := p.next()
		if err != nil {
			return err
		}
		if err := p.write(buf); err != nil {
			return err
		}
	}
	return nil
}

// next selects the buffer for this iteration and advances the page and
// touch cursors.
func (p *Player) next() ([]float32, error) {
	page := p.shared.GUI.Page()
	enteredResult := page == state.Result && p.prevPage != state.Result
	p.prevPage = page

	touches := p.shared.Game.TouchCount()
	touched := page == state.Game && touches > p.touches
	// A cleared session lowers the count; follow it without a sound.
	p.touches = touches

	if p.effects != nil {
		var fx []float32
		switch {
		case enteredResult:
			fx = p.effects.Fanfare()
		case touched:
			fx = p.effects.WallHit()
		}
		if len(fx) > 0 {
			p.effectsPlayed.Add(1)
			return fx, nil
		}
	}

	sig := p.shared.Signal
	wave, err := p.cache.Get(waveform.Key{
		SampleRate: p.shared.Player.SampleRate(),
		Frequency:  sig.Frequency(),
		Direction:  sig.Direction(),
		Antinodes:  sig.Antinodes(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate waveform: %w", err)
	}
	return p.scale(wave, float32(p.shared.Player.Volume())), nil
}

// scale copies wave into the scratch buffer multiplied by vol. The cached
// buffer itself is never modified.
func (p *Player) scale(wave []float32, vol float32) []float32 {
	if cap(p.scratch) < len(wave) {
		p.scratch = make([]float32, len(wave))
	}
	out := p.scratch[:len(wave)]
	for i, v := range wave {
		out[i] = v * vol
	}
	return out
}

func (p *Player) write(buf []float32) error {
	start := time.Now()
	err := p.device.Write(buf)
	d := time.Since(start).Nanoseconds()

	p.totalWriteNs.Add(d)
	if d > p.maxWriteNs.Load() {
		p.maxWriteNs.Store(d)
	}
	if err != nil {
		return fmt.Errorf("write device: %w", err)
	}
	p.writes.Add(1)
	p.samplesOut.Add(uint64(len(buf)))
	return nil
}

func (p *Player) pause() error {
	if !p.started {
		return nil
	}
	p.started = false
	if err := p.device.Stop(); err != nil {
		return fmt.Errorf("stop device: %w", err)
	}
	return nil
}

func (p *Player) shutdown() error {
	var errs []error
	if err := p.pause(); err != nil {
		errs = append(errs, err)
	}
	if err := p.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	return errors.Join(errs...)
}

// Stats is a snapshot of the player diagnostics.
type Stats struct {
	Writes        uint64
	Samples       uint64
	EffectsPlayed uint64
	IdleLoops     uint64
	Generated     uint64
	MaxWrite      time.Duration
	AvgWrite      time.Duration
}

func (p *Player) Stats() Stats {
	s := Stats{
		Writes:        p.writes.Load(),
		Samples:       p.samplesOut.Load(),
		EffectsPlayed: p.effectsPlayed.Load(),
		IdleLoops:     p.idleLoops.Load(),
		Generated:     p.cache.Generated(),
		MaxWrite:      time.Duration(p.maxWriteNs.Load()),
	}
	if s.Writes > 0 {
		s.AvgWrite = time.Duration(p.totalWriteNs.Load() / int64(s.Writes))
	}
	return s
}
