package game

import (
	"testing"
	"time"

	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/state"
)

const tick = 20 * time.Millisecond

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

func TestCourseHeldContactCountsFloor(t *testing.T) {
	tests := []struct {
		hold time.Duration
		want int
	}{
		{0, 0},
		{180 * time.Millisecond, 0},
		{200 * time.Millisecond, 1},
		{980 * time.Millisecond, 4},
		{1000 * time.Millisecond, 5},
		{2 * time.Second, 10},
	}
	for _, tt := range tests {
		d := courseDetector{window: 200 * time.Millisecond}
		got := 0
		var contact time.Duration
		for ts := time.Duration(0); ts <= tt.hold; ts += tick {
			n, c := d.step(at(ts), gpio.Active)
			got += n
			contact += c
		}
		if got != tt.want {
			t.Errorf("hold %v: touches = %d, want %d", tt.hold, got, tt.want)
		}
		if contact != tt.hold {
			t.Errorf("hold %v: contact time = %v", tt.hold, contact)
		}
	}
}

func TestCourseBounceResumesTimer(t *testing.T) {
	d := courseDetector{window: 200 * time.Millisecond}
	d.step(at(0), gpio.Active)
	d.step(at(100*time.Millisecond), gpio.Active)
	d.step(at(150*time.Millisecond), gpio.Inactive)

	// Back within the window: the timer started at 0 keeps running.
	if n, _ := d.step(at(250*time.Millisecond), gpio.Active); n != 0 {
		t.Fatalf("re-contact counted %d touches", n)
	}
	if n, _ := d.step(at(260*time.Millisecond), gpio.Active); n != 1 {
		t.Errorf("resumed timer: touches = %d, want 1", n)
	}
}

func TestCourseSeparateContacts(t *testing.T) {
	d := courseDetector{window: 200 * time.Millisecond}
	d.step(at(0), gpio.Active)
	d.step(at(100*time.Millisecond), gpio.Inactive)

	// Released for longer than the window: a fresh timer.
	d.step(at(400*time.Millisecond), gpio.Active)
	if n, _ := d.step(at(580*time.Millisecond), gpio.Active); n != 0 {
		t.Errorf("fresh contact counted early: %d", n)
	}
	if n, _ := d.step(at(600*time.Millisecond), gpio.Active); n != 1 {
		t.Errorf("fresh contact at window: %d, want 1", n)
	}
}

func TestCourseBriefBrushesAreFree(t *testing.T) {
	d := courseDetector{window: 200 * time.Millisecond}
	var touches int
	var contact time.Duration
	for i := range 5 {
		start := time.Duration(i) * 400 * time.Millisecond
		for ts := start; ts <= start+140*time.Millisecond; ts += tick {
			n, c := d.step(at(ts), gpio.Active)
			touches += n
			contact += c
		}
		d.step(at(start+160*time.Millisecond), gpio.Inactive)
	}
	if touches != 0 {
		t.Errorf("brushes shorter than the window counted %d touches", touches)
	}
	// Still charged as touch time.
	if want := 5 * 140 * time.Millisecond; contact != want {
		t.Errorf("contact time = %v, want %v", contact, want)
	}
}

func TestCourseUnknownHolds(t *testing.T) {
	d := courseDetector{window: 200 * time.Millisecond}
	d.step(at(0), gpio.Active)
	d.step(at(100*time.Millisecond), gpio.Active)
	if n, c := d.step(at(500*time.Millisecond), gpio.Unknown); n != 0 || c != 0 {
		t.Fatalf("unknown sample produced %d touches, %v contact", n, c)
	}
	if !d.touching {
		t.Fatal("unknown sample released the contact")
	}
	// The unknown gap is neither contact time nor window time.
	n, c := d.step(at(520*time.Millisecond), gpio.Active)
	if c != tick {
		t.Errorf("contact after unknown = %v, want %v", c, tick)
	}
	if n != 0 {
		t.Errorf("touches after unknown = %d, want 0", n)
	}
}

func TestCourseUnknownGapAddsNoTouches(t *testing.T) {
	d := courseDetector{window: 200 * time.Millisecond}
	d.step(at(0), gpio.Active)
	for ts := tick; ts < time.Second; ts += tick {
		d.step(at(ts), gpio.Unknown)
	}
	n, c := d.step(at(time.Second), gpio.Active)
	if n != 0 || c != tick {
		t.Errorf("after a no-data gap: %d touches, %v contact; want 0, %v", n, c, tick)
	}

	// The window keeps running on real contact after the gap.
	var total int
	for ts := time.Second + tick; ts <= time.Second+200*time.Millisecond; ts += tick {
		got, _ := d.step(at(ts), gpio.Active)
		total += got
	}
	if total != 1 {
		t.Errorf("touches after one more window of contact = %d, want 1", total)
	}
}

func TestGoalDwell(t *testing.T) {
	required := 500 * time.Millisecond

	t.Run("full dwell", func(t *testing.T) {
		d := dwellDetector{required: required}
		var firedAt time.Duration = -1
		for ts := time.Duration(0); ts <= time.Second; ts += tick {
			if d.step(at(ts), gpio.Active) && firedAt < 0 {
				firedAt = ts
			}
		}
		if firedAt != required {
			t.Errorf("fired at %v, want %v", firedAt, required)
		}
	})

	t.Run("interrupted at 0.9", func(t *testing.T) {
		d := dwellDetector{required: required}
		hold := required * 9 / 10
		ts := time.Duration(0)
		for range 3 {
			for end := ts + hold; ts <= end; ts += tick {
				if d.step(at(ts), gpio.Active) {
					t.Fatalf("fired at %v after an interrupted dwell", ts)
				}
			}
			d.step(at(ts), gpio.Inactive)
			ts += tick
		}
	})

	t.Run("unknown holds", func(t *testing.T) {
		d := dwellDetector{required: required}
		for ts := time.Duration(0); ts <= 300*time.Millisecond; ts += tick {
			d.step(at(ts), gpio.Active)
		}
		if d.step(at(800*time.Millisecond), gpio.Unknown) {
			t.Fatal("unknown gap counted as dwell")
		}
		if d.dwell != 300*time.Millisecond {
			t.Fatalf("dwell after unknown = %v", d.dwell)
		}
		if !d.step(at(1000*time.Millisecond), gpio.Active) {
			t.Errorf("dwell of %v did not fire", d.dwell)
		}
	})
}

func newGame(t *testing.T) (*state.Shared, *Navigator, *Controller) {
	t.Helper()
	shared := state.New(state.DefaultOptions())
	nav := NewNavigator(shared)
	nav.now = func() time.Time { return t0 }
	c := NewController(DefaultConfig(), shared, nav, Lines{}, nil)
	return shared, nav, c
}

var idle = Reading{Course1: gpio.Inactive, Course2: gpio.Inactive, Goal: gpio.Inactive, Start: gpio.Inactive}

func TestNavigator(t *testing.T) {
	shared, nav, _ := newGame(t)
	shared.Player.SetPlaying(false)
	shared.Game.IncrementTouchCount()

	if nav.Finish() || nav.Acknowledge() || nav.Abort() {
		t.Fatal("moves not valid from the title page succeeded")
	}
	if !nav.Confirm() {
		t.Fatal("Confirm on title did not start")
	}
	if shared.GUI.Page() != state.Game || !shared.Player.Playing() || shared.Game.TouchCount() != 0 {
		t.Fatalf("after start: page %v playing %v touches %d",
			shared.GUI.Page(), shared.Player.Playing(), shared.Game.TouchCount())
	}
	if !shared.Game.StartTime().Equal(t0) {
		t.Errorf("start time not stamped")
	}
	if nav.Confirm() {
		t.Error("Confirm during a game moved the page")
	}
	if !nav.Finish() || nav.Finish() {
		t.Fatal("Finish should succeed exactly once")
	}
	if !nav.Confirm() || shared.GUI.Page() != state.Title || shared.Player.Playing() {
		t.Errorf("acknowledge: page %v playing %v", shared.GUI.Page(), shared.Player.Playing())
	}

	nav.Start()
	if !nav.Abort() || shared.GUI.Page() != state.Title {
		t.Error("Abort did not return to title")
	}
}

func TestControllerIgnoresSensorsOutsideGame(t *testing.T) {
	shared, _, c := newGame(t)
	for ts := time.Duration(0); ts < time.Second; ts += tick {
		c.Step(at(ts), Reading{Course1: gpio.Active, Goal: gpio.Active})
	}
	if shared.Game.TouchCount() != 0 || shared.Game.Goaled() || shared.GUI.Page() != state.Title {
		t.Errorf("title page changed game state: touches %d goaled %v page %v",
			shared.Game.TouchCount(), shared.Game.Goaled(), shared.GUI.Page())
	}
}

func TestControllerSession(t *testing.T) {
	shared, nav, c := newGame(t)
	nav.Start()

	ts := time.Duration(0)
	run := func(d time.Duration, r Reading) {
		for end := ts + d; ts < end; ts += tick {
			c.Step(at(ts), r)
		}
	}

	run(100*time.Millisecond, idle)
	touch := idle
	touch.Course2 = gpio.Active
	run(420*time.Millisecond, touch) // samples 0..400ms of contact
	run(100*time.Millisecond, idle)

	if got := shared.Game.TouchCount(); got != 2 {
		t.Errorf("touches = %d, want 2", got)
	}
	if got := shared.Game.TouchTime(); got != 400*time.Millisecond {
		t.Errorf("touch time = %v, want 400ms", got)
	}

	goal := idle
	goal.Goal = gpio.Active
	run(480*time.Millisecond, goal)
	if shared.GUI.Page() != state.Game {
		t.Fatal("finished before the goal dwell elapsed")
	}
	run(40*time.Millisecond, goal)
	if shared.GUI.Page() != state.Result {
		t.Fatalf("page = %v after goal dwell, want result", shared.GUI.Page())
	}
	if shared.Game.Goaled() {
		t.Error("goaled flag not cleared after the transition")
	}
	if shared.Game.TouchCount() != 2 {
		t.Error("result page lost the touch count")
	}
	f, ok := shared.Game.LastFinish()
	if !ok {
		t.Fatal("no finish recorded")
	}
	// Goal contact began at 620ms; the dwell completes on the 1120ms sample.
	if f.At != at(1120*time.Millisecond) || f.Elapsed() != 1120*time.Millisecond || f.Touches != 2 {
		t.Errorf("finish = %+v, elapsed %v", f, f.Elapsed())
	}
}

func TestControllerForcedGoal(t *testing.T) {
	shared, nav, c := newGame(t)
	nav.Start()
	shared.Game.SetGoaled(true)
	c.Step(at(0), idle)
	if shared.GUI.Page() != state.Result || shared.Game.Goaled() {
		t.Errorf("forced goal: page %v goaled %v", shared.GUI.Page(), shared.Game.Goaled())
	}
}

func TestControllerStartPadRestamps(t *testing.T) {
	shared, nav, c := newGame(t)
	nav.Start()
	shared.Game.IncrementTouchCount()

	pad := idle
	pad.Start = gpio.Active
	ts := time.Duration(0)
	for ; ts <= 700*time.Millisecond; ts += tick {
		c.Step(at(ts), pad)
	}
	if shared.Game.TouchCount() != 0 {
		t.Error("start pad dwell did not clear the session")
	}
	last := at(ts - tick)
	if !shared.Game.StartTime().Equal(last) {
		t.Errorf("start time = %v, want last pad sample %v", shared.Game.StartTime(), last)
	}

	c.Step(at(ts), idle)
	if !shared.Game.StartTime().Equal(last) {
		t.Error("leaving the pad moved the start time")
	}
}

func TestControllerResetsOnLeavingGame(t *testing.T) {
	shared, nav, c := newGame(t)
	nav.Start()
	touch := idle
	touch.Course1 = gpio.Active
	for ts := time.Duration(0); ts < 150*time.Millisecond; ts += tick {
		c.Step(at(ts), touch)
	}
	nav.Abort()
	c.Step(at(160*time.Millisecond), touch)
	nav.Start()

	// A stale timer would count a touch at 200ms.
	c.Step(at(180*time.Millisecond), touch)
	c.Step(at(220*time.Millisecond), touch)
	if shared.Game.TouchCount() != 0 {
		t.Errorf("touch carried over from the aborted game: %d", shared.Game.TouchCount())
	}
}

type stubInput struct {
	lvl gpio.Level
	err error
}

func (s stubInput) Read() (gpio.Level, error) {
	return s.lvl, s.err
}

func TestControllerSampleFailures(t *testing.T) {
	shared := state.New(state.DefaultOptions())
	c := NewController(DefaultConfig(), shared, NewNavigator(shared), Lines{
		Course1: stubInput{lvl: gpio.Active},
		Goal:    stubInput{err: gpio.ErrClosed},
	}, nil)
	r := c.sample()
	if r.Course1 != gpio.Active || r.Course2 != gpio.Unknown || r.Goal != gpio.Unknown {
		t.Errorf("sample = %+v", r)
	}
	if c.readErrors != 1 {
		t.Errorf("readErrors = %d, want 1", c.readErrors)
	}
}
