// Package feedback drives the indicator LED: steady on by default, a short
// fast blink on every wall touch and a long slow blink while the goal
// fanfare plays.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/state"
)

// Config holds the blink timings.
type Config struct {
	CrashBlink  time.Duration
	CrashPeriod time.Duration
	GoalBlink   time.Duration
	GoalPeriod  time.Duration
	Tick        time.Duration
}

func DefaultConfig() Config {
	return Config{
		CrashBlink:  500 * time.Millisecond,
		CrashPeriod: 100 * time.Millisecond,
		GoalBlink:   9300 * time.Millisecond,
		GoalPeriod:  300 * time.Millisecond,
		Tick:        time.Millisecond,
	}
}

type window struct {
	start  time.Time
	end    time.Time
	period time.Duration
}

// level is the LED state at now: alternating every period from start, on
// first.
func (w window) level(now time.Time) (on, active bool) {
	if w.period <= 0 || now.Before(w.start) || !now.Before(w.end) {
		return true, false
	}
	phase := now.Sub(w.start) / w.period
	return phase%2 == 0, true
}

// Blinker computes the LED level from wall clock deadlines. It keeps its own
// page and touch cursors and is not safe for concurrent use.
type Blinker struct {
	cfg      Config
	blink    window
	prevPage state.Page
	touches  int
	primed   bool
}

func NewBlinker(cfg Config) *Blinker {
	return &Blinker{cfg: cfg}
}

// Level returns whether the LED should be lit.
func (b *Blinker) Level(now time.Time, page state.Page, touchCount int) bool {
	if !b.primed {
		b.primed = true
		b.prevPage = page
		b.touches = touchCount
	}

	switch {
	case page == state.Result && b.prevPage != state.Result:
		b.blink = window{start: now, end: now.Add(b.cfg.GoalBlink), period: b.cfg.GoalPeriod}
	case page == state.Game && touchCount > b.touches:
		b.blink = window{start: now, end: now.Add(b.cfg.CrashBlink), period: b.cfg.CrashPeriod}
	case page == state.Title:
		b.blink = window{}
	}
	b.prevPage = page
	b.touches = touchCount

	on, _ := b.blink.level(now)
	return on
}

// Loop writes the blinker level to an output line.
type Loop struct {
	cfg     Config
	shared  *state.Shared
	out     gpio.Output
	blinker *Blinker
	logger  *slog.Logger
}

func NewLoop(cfg Config, shared *state.Shared, out gpio.Output, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{cfg: cfg, shared: shared, out: out, blinker: NewBlinker(cfg), logger: logger}
}

// Run updates the LED every Tick, writing only when the level changes. The
// LED is left on when the loop exits.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Tick)
	defer ticker.Stop()

	if err := l.out.Set(true); err != nil {
		return fmt.Errorf("led: %w", err)
	}
	lit := true
	defer func() {
		if !lit {
			if err := l.out.Set(true); err != nil {
				l.logger.Warn("led restore failed", "error", err)
			}
		}
	}()

	for l.shared.App.Running() {
		select {
		case <-ctx.Done():
			return nil
		case <-l.shared.App.Done():
			return nil
		case now := <-ticker.C:
			on := l.blinker.Level(now, l.shared.GUI.Page(), l.shared.Game.TouchCount())
			if on == lit {
				continue
			}
			if err := l.out.Set(on); err != nil {
				return fmt.Errorf("led: %w", err)
			}
			lit = on
		}
	}
	return nil
}
