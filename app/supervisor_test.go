package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/drgolem/traction-maze/state"
)

// loop is a well behaved worker that runs until the app stops.
func loop(app *state.AppRunState) WorkerFunc {
	return func(ctx context.Context) error {
		for app.Running() {
			select {
			case <-ctx.Done():
				return nil
			case <-app.Done():
				return nil
			case <-time.After(time.Millisecond):
			}
		}
		return nil
	}
}

func runWithTimeout(t *testing.T, s *Supervisor, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}

func TestWorkerErrorStopsApp(t *testing.T) {
	app := state.NewAppRunState()
	s := NewSupervisor(app, nil)
	s.Add("audio", loop(app))
	s.Add("sensor", WorkerFunc(func(context.Context) error {
		return errors.New("line vanished")
	}))

	err := runWithTimeout(t, s, context.Background())
	if err == nil || !strings.Contains(err.Error(), "sensor: line vanished") {
		t.Errorf("Run = %v", err)
	}
	if app.Running() {
		t.Error("app still running after worker failure")
	}
}

func TestWorkerPanicIsRecovered(t *testing.T) {
	app := state.NewAppRunState()
	s := NewSupervisor(app, nil)
	s.Add("led", loop(app))
	s.Add("bad", WorkerFunc(func(context.Context) error {
		var m map[string]int
		m["x"]++
		return nil
	}))

	err := runWithTimeout(t, s, context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad: panic") {
		t.Errorf("Run = %v", err)
	}
	if app.Running() {
		t.Error("app still running after panic")
	}
}

func TestStopCommand(t *testing.T) {
	app := state.NewAppRunState()
	s := NewSupervisor(app, nil)
	s.Add("a", loop(app))
	s.Add("b", WorkerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))

	go func() {
		time.Sleep(10 * time.Millisecond)
		app.Stop()
	}()
	if err := runWithTimeout(t, s, context.Background()); err != nil {
		t.Errorf("Run = %v", err)
	}
}

func TestContextCancelStopsApp(t *testing.T) {
	app := state.NewAppRunState()
	s := NewSupervisor(app, nil)
	s.Add("a", loop(app))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := runWithTimeout(t, s, ctx); err != nil {
		t.Errorf("Run = %v", err)
	}
	if app.Running() {
		t.Error("app running after context cancel")
	}
	if got := s.Names(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Names = %v", got)
	}
}
