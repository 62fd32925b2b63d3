// Package app runs the controller workers and coordinates their shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drgolem/traction-maze/state"
)

// Worker is one long running loop. It returns when ctx is done or the
// application stops; a non-nil error stops the whole application.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context) error

func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedWorker struct {
	name string
	w    Worker
}

// Supervisor starts every worker in its own goroutine. Any worker failure or
// panic stops the application cooperatively; the others see AppRunState turn
// false and exit at their next iteration.
type Supervisor struct {
	app     *state.AppRunState
	logger  *slog.Logger
	workers []namedWorker
}

func NewSupervisor(app *state.AppRunState, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{app: app, logger: logger}
}

// Add registers a worker. It must be called before Run.
func (s *Supervisor) Add(name string, w Worker) {
	s.workers = append(s.workers, namedWorker{name: name, w: w})
}

// Names lists the registered workers in start order.
func (s *Supervisor) Names() []string {
	names := make([]string, len(s.workers))
	for i, w := range s.workers {
		names[i] = w.name
	}
	return names
}

// Run blocks until every worker has returned. The first worker error is
// returned; ctx cancellation is a clean stop.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// Bridge the two stop signals: a cancelled context stops the app, and a
	// stopped app cancels the context for workers blocked on it.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			s.app.Stop()
		case <-s.app.Done():
			cancel()
		}
		return nil
	})

	for _, nw := range s.workers {
		g.Go(func() error {
			return s.run(gctx, nw)
		})
	}
	return g.Wait()
}

func (s *Supervisor) run(ctx context.Context, nw namedWorker) (err error) {
	log := s.logger.With("worker", nw.name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s: panic: %v", nw.name, r)
		}
		if err != nil {
			log.Error("worker failed", "error", err)
			s.app.Stop()
			return
		}
		log.Debug("worker stopped", "uptime", time.Since(start).Round(time.Millisecond))
	}()

	log.Debug("worker started")
	if err := nw.w.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", nw.name, err)
	}
	return nil
}
