// Package gpio is the digital line capability the maze sensors and the LED are
// driven through. Workers see only the Input, Output and EdgeWaiter
// interfaces; the sysfs backend and the in-memory lines implement them.
package gpio

import (
	"context"
	"errors"
	"time"
)

// Level is a sampled line state. Unknown means no reading is available yet
// and must never be taken for contact.
type Level int

const (
	Unknown Level = iota
	Inactive
	Active
)

func (l Level) String() string {
	switch l {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Any returns Active if either level is Active, Inactive if both are known
// and inactive, and Unknown otherwise.
func Any(a, b Level) Level {
	switch {
	case a == Active || b == Active:
		return Active
	case a == Inactive && b == Inactive:
		return Inactive
	default:
		return Unknown
	}
}

var (
	ErrClosed  = errors.New("gpio: line closed")
	ErrTimeout = errors.New("gpio: timed out waiting for edge")
)

// Input is a digital input line.
type Input interface {
	Read() (Level, error)
}

// Output is a digital output line.
type Output interface {
	Set(on bool) error
}

// EdgeWaiter blocks until the line becomes active. It returns ErrTimeout
// if no edge happened within timeout so the caller can check for shutdown.
type EdgeWaiter interface {
	WaitForEdge(ctx context.Context, timeout time.Duration) error
}
