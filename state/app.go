package state

import (
	"sync"
	"sync/atomic"
)

// AppRunState is the process lifecycle flag. It starts running and is
// stopped exactly once; it is never reset.
type AppRunState struct {
	running atomic.Bool
	once    sync.Once
	done    chan struct{}
}

func NewAppRunState() *AppRunState {
	a := &AppRunState{done: make(chan struct{})}
	a.running.Store(true)
	return a
}

// Running reports whether workers should keep iterating.
func (a *AppRunState) Running() bool {
	return a.running.Load()
}

// Stop flips the state to not running. Safe to call from any worker, any
// number of times.
func (a *AppRunState) Stop() {
	a.once.Do(func() {
		a.running.Store(false)
		close(a.done)
	})
}

// Done is closed when Stop is called, so sleeping workers can wake up.
func (a *AppRunState) Done() <-chan struct{} {
	return a.done
}
