// Package input translates operator devices into state mutations: the
// keyboard, an analog stick read over serial or three parallel lines, and a
// toggle switch. Every adapter funnels its events through a Dispatcher or
// writes the analog volume and direction directly.
package input

import (
	"github.com/drgolem/traction-maze/game"
	"github.com/drgolem/traction-maze/state"
)

// Command is one discrete operator action.
type Command int

const (
	CmdNone Command = iota
	CmdStop
	CmdTogglePlay
	CmdVolumeUp
	CmdVolumeDown
	CmdTractionUp
	CmdTractionDown
	CmdTractionChange
	CmdFrequencyUp
	CmdFrequencyDown
	CmdAntinodeUp
	CmdAntinodeDown
	CmdConfirm
	CmdBack
	CmdForceGoal
	CmdForceTouch
)

var commandNames = [...]string{
	CmdNone:           "none",
	CmdStop:           "stop",
	CmdTogglePlay:     "toggle-play",
	CmdVolumeUp:       "volume-up",
	CmdVolumeDown:     "volume-down",
	CmdTractionUp:     "traction-up",
	CmdTractionDown:   "traction-down",
	CmdTractionChange: "traction-change",
	CmdFrequencyUp:    "frequency-up",
	CmdFrequencyDown:  "frequency-down",
	CmdAntinodeUp:     "antinode-up",
	CmdAntinodeDown:   "antinode-down",
	CmdConfirm:        "confirm",
	CmdBack:           "back",
	CmdForceGoal:      "force-goal",
	CmdForceTouch:     "force-touch",
}

func (c Command) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "unknown"
}

// Dispatcher applies commands to the shared state. Each command performs
// exactly one mutation; bounded values saturate instead of failing.
type Dispatcher struct {
	shared *state.Shared
	nav    *game.Navigator
}

func NewDispatcher(shared *state.Shared, nav *game.Navigator) *Dispatcher {
	return &Dispatcher{shared: shared, nav: nav}
}

// Apply performs cmd and reports whether it changed anything the operator
// can observe. Saturated steps still report true.
func (d *Dispatcher) Apply(cmd Command) bool {
	s := d.shared
	switch cmd {
	case CmdStop:
		s.App.Stop()
	case CmdTogglePlay:
		s.Player.TogglePlaying()
	case CmdVolumeUp:
		s.Player.VolumeUp()
	case CmdVolumeDown:
		s.Player.VolumeDown()
	case CmdTractionUp:
		s.Signal.TractionUp()
	case CmdTractionDown:
		s.Signal.TractionDown()
	case CmdTractionChange:
		s.Signal.TractionChange()
	case CmdFrequencyUp:
		s.Signal.FrequencyUp()
	case CmdFrequencyDown:
		s.Signal.FrequencyDown()
	case CmdAntinodeUp:
		s.Signal.AntinodesUp()
	case CmdAntinodeDown:
		s.Signal.AntinodesDown()
	case CmdConfirm:
		return d.nav.Confirm()
	case CmdBack:
		switch s.GUI.Page() {
		case state.Game:
			return d.nav.Abort()
		case state.Result:
			return d.nav.Acknowledge()
		}
		return false
	case CmdForceGoal:
		if s.GUI.Page() != state.Game {
			return false
		}
		s.Game.SetGoaled(true)
	case CmdForceTouch:
		if s.GUI.Page() != state.Game {
			return false
		}
		s.Game.IncrementTouchCount()
	default:
		return false
	}
	return true
}
