package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drgolem/traction-maze/gpio"
	"github.com/drgolem/traction-maze/state"
)

const (
	DefaultSwitchDebounce = 500 * time.Millisecond
	switchWaitTimeout     = 100 * time.Millisecond
)

// Switch flips the traction direction on every debounced press of the
// toggle switch.
type Switch struct {
	line     gpio.EdgeWaiter
	debounce time.Duration
	shared   *state.Shared
	dispatch *Dispatcher
	logger   *slog.Logger
}

func NewSwitch(line gpio.EdgeWaiter, debounce time.Duration, shared *state.Shared, dispatch *Dispatcher, logger *slog.Logger) *Switch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switch{line: line, debounce: debounce, shared: shared, dispatch: dispatch, logger: logger}
}

func (s *Switch) Run(ctx context.Context) error {
	for s.shared.App.Running() {
		err := s.line.WaitForEdge(ctx, switchWaitTimeout)
		switch {
		case err == nil:
		case errors.Is(err, gpio.ErrTimeout):
			continue
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("switch: %w", err)
		}

		s.dispatch.Apply(CmdTractionChange)
		s.logger.Debug("switch", "direction", s.shared.Signal.Direction())

		// Edges during the bounce window are consumed and ignored.
		deadline := time.Now().Add(s.debounce)
		for time.Now().Before(deadline) {
			wait := time.Until(deadline)
			err := s.line.WaitForEdge(ctx, wait)
			if err != nil && !errors.Is(err, gpio.ErrTimeout) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("switch: %w", err)
			}
			if !s.shared.App.Running() {
				return nil
			}
		}
	}
	return nil
}
