// Package game turns the maze sensor lines into session progress: wall
// touches with an invincibility window, goal and start pad dwell detection,
// and the page transitions that go with them.
package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/state"
)

// Config holds the sensing timings.
type Config struct {
	// InvincibleInterval is the minimum time between two counted touches.
	InvincibleInterval time.Duration
	// GoalDetectionDuration is how long the probe must rest on the goal.
	GoalDetectionDuration time.Duration
	// StartDetectionDuration is how long the probe must rest on the start pad
	// before the session clock is re-armed.
	StartDetectionDuration time.Duration
	PollInterval           time.Duration
}

func DefaultConfig() Config {
	return Config{
		InvincibleInterval:     200 * time.Millisecond,
		GoalDetectionDuration:  500 * time.Millisecond,
		StartDetectionDuration: 500 * time.Millisecond,
		PollInterval:           20 * time.Millisecond,
	}
}

// Reading is one sample of all sensor lines.
type Reading struct {
	Course1 gpio.Level
	Course2 gpio.Level
	Goal    gpio.Level
	Start   gpio.Level
}

// Lines are the inputs the controller samples. A nil line reads Unknown.
type Lines struct {
	Course1 gpio.Input
	Course2 gpio.Input
	Goal    gpio.Input
	Start   gpio.Input
}

// Controller is the session worker. Step is not safe for concurrent use;
// the controller owns its detectors and is driven by a single goroutine.
type Controller struct {
	cfg    Config
	shared *state.Shared
	nav    *Navigator
	lines  Lines
	logger *slog.Logger

	course     courseDetector
	goal       dwellDetector
	start      dwellDetector
	goalFired  bool
	inGame     bool
	readErrors uint64
}

func NewController(cfg Config, shared *state.Shared, nav *Navigator, lines Lines, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:    cfg,
		shared: shared,
		nav:    nav,
		lines:  lines,
		logger: logger,
	}
	c.course.window = cfg.InvincibleInterval
	c.goal.required = cfg.GoalDetectionDuration
	c.start.required = cfg.StartDetectionDuration
	return c
}

// Run samples the lines every PollInterval until ctx is done or the
// application stops.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for c.shared.App.Running() {
		select {
		case <-ctx.Done():
			return nil
		case <-c.shared.App.Done():
			return nil
		case now := <-ticker.C:
			c.Step(now, c.sample())
		}
	}
	return nil
}

func (c *Controller) sample() Reading {
	return Reading{
		Course1: c.read("course1", c.lines.Course1),
		Course2: c.read("course2", c.lines.Course2),
		Goal:    c.read("goal", c.lines.Goal),
		Start:   c.read("start", c.lines.Start),
	}
}

func (c *Controller) read(name string, in gpio.Input) gpio.Level {
	if in == nil {
		return gpio.Unknown
	}
	lvl, err := in.Read()
	if err != nil {
		c.readErrors++
		// Log the first failure and then sparsely; a dead line fails every poll.
		if c.readErrors == 1 || c.readErrors%1000 == 0 {
			c.logger.Warn("sensor read failed", "line", name, "error", err, "count", c.readErrors)
		}
		return gpio.Unknown
	}
	return lvl
}

// Step applies one reading taken at now.
func (c *Controller) Step(now time.Time, r Reading) {
	if c.shared.GUI.Page() != state.Game {
		if c.inGame {
			c.reset()
		}
		return
	}
	c.inGame = true
	g := c.shared.Game

	if c.start.step(now, r.Start) {
		g.Clear(now)
	}

	touches, contact := c.course.step(now, gpio.Any(r.Course1, r.Course2))
	for range touches {
		g.IncrementTouchCount()
	}
	g.AddTouchTime(contact)
	if touches > 0 {
		c.logger.Debug("touch", "count", g.TouchCount())
	}

	fired := c.goal.step(now, r.Goal)
	if fired && !c.goalFired {
		g.SetGoaled(true)
	}
	c.goalFired = fired

	if g.Goaled() {
		if c.nav.FinishAt(now) {
			c.logger.Info("goal",
				"elapsed", g.Elapsed(now).Round(time.Millisecond),
				"touches", g.TouchCount(),
				"touch_time", g.TouchTime().Round(time.Millisecond))
		}
		g.SetGoaled(false)
		c.reset()
	}
}

func (c *Controller) reset() {
	c.course.reset()
	c.goal.reset()
	c.start.reset()
	c.goalFired = false
	c.inGame = false
}
