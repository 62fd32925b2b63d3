package input

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eiannone/keyboard"

	"github.com/drgolem/traction-maze/state"
)

// KeyCommand maps a terminal key press to a command.
//
//	q Esc Ctrl-C  stop          space  pause/resume
//	Up a / Down z volume        Left d / Right c  traction direction
//	s / x         frequency     f / v  antinode count
//	Enter         confirm       w      back to title
//	g             force goal    r      force touch
func KeyCommand(ch rune, key keyboard.Key) Command {
	switch key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return CmdStop
	case keyboard.KeySpace:
		return CmdTogglePlay
	case keyboard.KeyArrowUp:
		return CmdVolumeUp
	case keyboard.KeyArrowDown:
		return CmdVolumeDown
	case keyboard.KeyArrowLeft:
		return CmdTractionUp
	case keyboard.KeyArrowRight:
		return CmdTractionDown
	case keyboard.KeyEnter:
		return CmdConfirm
	}

	switch ch {
	case 'q', 'Q':
		return CmdStop
	case ' ':
		return CmdTogglePlay
	case 'a':
		return CmdVolumeUp
	case 'z':
		return CmdVolumeDown
	case 'd':
		return CmdTractionUp
	case 'c':
		return CmdTractionDown
	case 's':
		return CmdFrequencyUp
	case 'x':
		return CmdFrequencyDown
	case 'f':
		return CmdAntinodeUp
	case 'v':
		return CmdAntinodeDown
	case 'w':
		return CmdBack
	case 'g':
		return CmdForceGoal
	case 'r':
		return CmdForceTouch
	}
	return CmdNone
}

// Keyboard reads key presses from the controlling terminal. The terminal
// is put in raw mode while the worker runs.
type Keyboard struct {
	shared   *state.Shared
	dispatch *Dispatcher
	logger   *slog.Logger
}

func NewKeyboard(shared *state.Shared, dispatch *Dispatcher, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{shared: shared, dispatch: dispatch, logger: logger}
}

// Open puts the terminal in raw mode. The caller skips the worker when it
// fails, for example when stdin is not a terminal.
func (k *Keyboard) Open() error {
	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	return nil
}

// Run blocks on key presses until the application stops. Closing the
// keyboard on shutdown unblocks the pending read.
func (k *Keyboard) Run(ctx context.Context) error {
	var closeOnce sync.Once
	closeKeyboard := func() {
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}
	defer closeKeyboard()

	go func() {
		select {
		case <-ctx.Done():
		case <-k.shared.App.Done():
		}
		closeKeyboard()
	}()

	for k.shared.App.Running() {
		ch, key, err := keyboard.GetKey()
		if err != nil {
			if !k.shared.App.Running() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read key: %w", err)
		}
		cmd := KeyCommand(ch, key)
		if cmd == CmdNone {
			continue
		}
		k.dispatch.Apply(cmd)
		k.logger.Debug("key", "command", cmd)
	}
	return nil
}
