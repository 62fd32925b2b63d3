package game

import (
	"time"

	"github.com/drgolem/traction-maze/state"
)

// Navigator performs page transitions together with their entry effects.
// Every move is a compare-and-swap on the current page, so a keyboard
// confirm racing the controller's auto-finish moves the page only once.
type Navigator struct {
	shared *state.Shared
	now    func() time.Time
}

func NewNavigator(shared *state.Shared) *Navigator {
	return &Navigator{shared: shared, now: time.Now}
}

// Start leaves the title page for a fresh session.
func (n *Navigator) Start() bool {
	if !n.shared.GUI.CompareAndSwapPage(state.Title, state.Game) {
		return false
	}
	n.shared.Game.Clear(n.now())
	n.shared.Player.SetPlaying(true)
	return true
}

// Finish shows the result page after a goal.
func (n *Navigator) Finish() bool {
	return n.FinishAt(n.now())
}

// FinishAt is Finish with the goal time given by the caller; the session
// snapshot is stamped with now.
func (n *Navigator) FinishAt(now time.Time) bool {
	if !n.shared.GUI.CompareAndSwapPage(state.Game, state.Result) {
		return false
	}
	n.shared.Game.MarkFinished(now)
	n.shared.Player.SetPlaying(true)
	return true
}

// Acknowledge returns from the result page to the title.
func (n *Navigator) Acknowledge() bool {
	if !n.shared.GUI.CompareAndSwapPage(state.Result, state.Title) {
		return false
	}
	n.shared.Player.SetPlaying(false)
	return true
}

// Abort drops an unfinished session back to the title page.
func (n *Navigator) Abort() bool {
	if !n.shared.GUI.CompareAndSwapPage(state.Game, state.Title) {
		return false
	}
	n.shared.Player.SetPlaying(false)
	return true
}

// Confirm is the single "next" action of the operator: it starts a session
// from the title and acknowledges a result. During a game it does nothing;
// only the goal ends a game.
func (n *Navigator) Confirm() bool {
	switch n.shared.GUI.Page() {
	case state.Title:
		return n.Start()
	case state.Result:
		return n.Acknowledge()
	default:
		return false
	}
}
