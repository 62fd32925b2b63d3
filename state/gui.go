package state

import (
	"fmt"
	"sync/atomic"
)

// Page is the screen the presentation shell shows.
type Page int32

const (
	Title Page = iota
	Game
	Result
)

func (p Page) String() string {
	switch p {
	case Title:
		return "title"
	case Game:
		return "game"
	case Result:
		return "result"
	default:
		return fmt.Sprintf("Page(%d)", int32(p))
	}
}

type GuiState struct {
	page atomic.Int32
}

// NewGuiState starts on the title page.
func NewGuiState() *GuiState {
	return &GuiState{}
}

func (g *GuiState) Page() Page {
	return Page(g.page.Load())
}

func (g *GuiState) SetPage(p Page) {
	g.page.Store(int32(p))
}

// SwapPage stores p and returns the page it replaced.
func (g *GuiState) SwapPage(p Page) Page {
	return Page(g.page.Swap(int32(p)))
}

// CompareAndSwapPage moves from old to new only if old is current.
func (g *GuiState) CompareAndSwapPage(old, new Page) bool {
	return g.page.CompareAndSwap(int32(old), int32(new))
}
