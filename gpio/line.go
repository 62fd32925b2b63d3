package gpio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Line is an in-memory line usable as input, output and edge source. It backs
// the tests and lets the maze run without hardware, with inputs driven from
// the keyboard or a simulator.
type Line struct {
	level       atomic.Int32
	transitions atomic.Uint64

	mu    sync.Mutex
	edges chan struct{}
}

func NewLine(initial Level) *Line {
	l := &Line{edges: make(chan struct{}, 1)}
	l.level.Store(int32(initial))
	return l
}

func (l *Line) Read() (Level, error) {
	return Level(l.level.Load()), nil
}

// Drive sets the sampled level. A move to Active from any other level is
// delivered to WaitForEdge.
func (l *Line) Drive(level Level) {
	prev := Level(l.level.Swap(int32(level)))
	if prev == level {
		return
	}
	l.transitions.Add(1)
	if level == Active {
		l.mu.Lock()
		select {
		case l.edges <- struct{}{}:
		default:
		}
		l.mu.Unlock()
	}
}

// Set drives the line as an output.
func (l *Line) Set(on bool) error {
	if on {
		l.Drive(Active)
	} else {
		l.Drive(Inactive)
	}
	return nil
}

// On reports whether the line is currently driven active.
func (l *Line) On() bool {
	return Level(l.level.Load()) == Active
}

// Transitions counts level changes since creation.
func (l *Line) Transitions() uint64 {
	return l.transitions.Load()
}

func (l *Line) WaitForEdge(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.edges:
		return nil
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
