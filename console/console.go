// Package console is the terminal front end of the maze: a one-line status
// that follows the shared state, and result recording when a session ends.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/drgolem/traction-maze/result"
	"github.com/drgolem/traction-maze/state"
)

const (
	DefaultRefresh = 100 * time.Millisecond
	// RankingSize is how many results are listed after a session.
	RankingSize = 5
)

// Console redraws the status line and records finished sessions. Drawing is
// skipped when the output is not a terminal.
type Console struct {
	shared  *state.Shared
	store   *result.Store
	name    string
	out     io.Writer
	fd      int
	refresh time.Duration
	logger  *slog.Logger
	now     func() time.Time

	penalty float64

	prevPage  state.Page
	finishSeq uint64
	last      *result.Ranked
	drawn     bool
}

// New creates a console writing to out. fd is the descriptor behind out, or
// -1 if there is none. store may be nil to disable recording; penalty is the
// per-touch score penalty shown in that case.
func New(shared *state.Shared, store *result.Store, name string, penalty float64, out io.Writer, fd int, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if store != nil {
		penalty = store.Penalty()
	}
	c := &Console{
		shared:   shared,
		store:    store,
		name:     name,
		out:      out,
		fd:       fd,
		refresh:  DefaultRefresh,
		logger:   logger,
		now:      time.Now,
		penalty:  penalty,
		prevPage: shared.GUI.Page(),
	}
	if f, ok := shared.Game.LastFinish(); ok {
		c.finishSeq = f.Seq
	}
	return c
}

func (c *Console) interactive() bool {
	return c.fd >= 0 && term.IsTerminal(c.fd)
}

func (c *Console) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()
	defer c.finish()

	for c.shared.App.Running() {
		select {
		case <-ctx.Done():
			return nil
		case <-c.shared.App.Done():
			return nil
		case <-ticker.C:
			c.Update()
		}
	}
	return nil
}

// Update records newly finished sessions, logs page changes and redraws the
// status line. Sessions are taken from the finish snapshot, so one that
// passes through Result between two updates is still recorded.
func (c *Console) Update() {
	now := c.now()
	page := c.shared.GUI.Page()
	if page != c.prevPage {
		if page == state.Game {
			c.last = nil
		}
		c.logger.Info("page", "page", page)
		c.prevPage = page
	}
	if f, ok := c.shared.Game.LastFinish(); ok && f.Seq != c.finishSeq {
		c.finishSeq = f.Seq
		c.record(f)
	}
	if c.interactive() {
		c.draw(c.Status(now))
	}
}

func (c *Console) record(f state.Finish) {
	rec := result.Record{
		Name:      c.name,
		Start:     f.Start,
		Time:      f.Elapsed(),
		Touches:   f.Touches,
		TouchTime: f.TouchTime,
	}
	if c.store == nil {
		r := result.Ranked{Record: rec, Score: result.Score(rec, c.penalty)}
		c.last = &r
		return
	}

	saved, err := c.store.Append(rec)
	if err != nil {
		c.logger.Error("record result", "error", err)
		return
	}
	ranked, err := c.store.RankOf(saved.ID)
	if err != nil {
		c.logger.Error("rank result", "error", err)
		return
	}
	c.last = &ranked
	c.logger.Info("result recorded",
		"id", ranked.ID,
		"time", ranked.Time.Round(time.Millisecond),
		"touches", ranked.Touches,
		"score", ranked.Score,
		"rank", ranked.Rank)

	top, err := c.store.Top(RankingSize)
	if err != nil {
		c.logger.Error("ranking", "error", err)
		return
	}
	for _, r := range top {
		c.logger.Info("ranking", "rank", r.Rank, "name", r.Name, "score", r.Score, "time", r.Time.Round(time.Millisecond))
	}
}

// Status formats the one-line view of the shared state.
func (c *Console) Status(now time.Time) string {
	s := c.shared
	play := "paused"
	if s.Player.Playing() {
		play = "playing"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s vol %.2f | %d Hz %s x%d",
		s.GUI.Page(), play, s.Player.Volume(),
		s.Signal.Frequency(), s.Signal.Direction(), s.Signal.Antinodes())

	switch s.GUI.Page() {
	case state.Game:
		fmt.Fprintf(&b, " | %.1fs | touches %d (%.1fs)",
			s.Game.Elapsed(now).Seconds(), s.Game.TouchCount(), s.Game.TouchTime().Seconds())
	case state.Result:
		if c.last != nil {
			fmt.Fprintf(&b, " | %.1fs touches %d score %.1f", c.last.Time.Seconds(), c.last.Touches, c.last.Score)
			if c.last.Rank > 0 {
				fmt.Fprintf(&b, " rank %d", c.last.Rank)
			}
		}
	}
	return b.String()
}

func (c *Console) draw(line string) {
	if w, _, err := term.GetSize(c.fd); err == nil && w > 0 && len(line) >= w {
		line = line[:w-1]
	}
	// Raw mode may be on; return to column zero explicitly.
	fmt.Fprintf(c.out, "\r%s\x1b[K", line)
	c.drawn = true
}

func (c *Console) finish() {
	if c.drawn {
		fmt.Fprint(c.out, "\r\n")
	}
}
