package state

import (
	"sync/atomic"
	"time"
)

// GameState is the progress of the current maze session. Touch count, touch
// time and the goaled flag are written by the session controller; Clear is
// called on page transitions and at the start pad.
type GameState struct {
	touchCount atomic.Int64
	touchTime  atomic.Int64 // nanoseconds
	goaled     atomic.Bool
	startTime  atomic.Pointer[time.Time]
	finishes   atomic.Uint64
	finish     atomic.Pointer[Finish]
}

// Finish is the session snapshot taken when the goal is reached. Seq grows
// by one per finished session.
type Finish struct {
	Seq       uint64
	Start     time.Time
	At        time.Time
	Touches   int
	TouchTime time.Duration
}

// Elapsed is the session time from start to goal.
func (f Finish) Elapsed() time.Duration {
	return f.At.Sub(f.Start)
}

func NewGameState(now time.Time) *GameState {
	g := &GameState{}
	g.startTime.Store(&now)
	return g
}

func (g *GameState) TouchCount() int {
	return int(g.touchCount.Load())
}

func (g *GameState) IncrementTouchCount() {
	g.touchCount.Add(1)
}

// TouchTime is the cumulative time the probe spent touching the course.
func (g *GameState) TouchTime() time.Duration {
	return time.Duration(g.touchTime.Load())
}

// AddTouchTime accrues d; negative durations are ignored.
func (g *GameState) AddTouchTime(d time.Duration) {
	if d <= 0 {
		return
	}
	g.touchTime.Add(int64(d))
}

func (g *GameState) Goaled() bool {
	return g.goaled.Load()
}

func (g *GameState) SetGoaled(v bool) {
	g.goaled.Store(v)
}

// StartTime is the monotonic timestamp the current session started at.
func (g *GameState) StartTime() time.Time {
	return *g.startTime.Load()
}

func (g *GameState) SetStartTime(t time.Time) {
	g.startTime.Store(&t)
}

// Elapsed returns the time since the session started.
func (g *GameState) Elapsed(now time.Time) time.Duration {
	return now.Sub(g.StartTime())
}

// Clear resets count, time and goaled flag and stamps now as the start time.
func (g *GameState) Clear(now time.Time) {
	g.touchCount.Store(0)
	g.touchTime.Store(0)
	g.goaled.Store(false)
	g.SetStartTime(now)
}

// MarkFinished records the session as finished at now. Clear does not touch
// the snapshot, so a reader that polls late still sees the finished session.
func (g *GameState) MarkFinished(now time.Time) Finish {
	f := Finish{
		Seq:       g.finishes.Add(1),
		Start:     g.StartTime(),
		At:        now,
		Touches:   g.TouchCount(),
		TouchTime: g.TouchTime(),
	}
	g.finish.Store(&f)
	return f
}

// LastFinish returns the most recent finish snapshot, if any.
func (g *GameState) LastFinish() (Finish, bool) {
	f := g.finish.Load()
	if f == nil {
		return Finish{}, false
	}
	return *f, true
}
