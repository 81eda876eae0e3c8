// Package game tracks the positions of a game for display and repetition avoidance.
package game

import (
	"errors"
	"fmt"

	"github.com/hailam/penguin/internal/board"
)

// ErrOutOfRange is returned when selecting a position that does not exist.
var ErrOutOfRange = errors.New("history index out of range")

// Entry is one position of the game and the move that produced it.
type Entry struct {
	State board.State `json:"-"`
	// Move is NoMove for the first entry.
	Move board.Move `json:"move"`
}

// Game is a linear list of positions with a cursor. Playing a move from an
// earlier position discards the positions after the cursor.
type Game struct {
	entries []Entry
	current int
}

// New starts a game from the given position.
func New(start board.State) *Game {
	return &Game{entries: []Entry{{State: start, Move: board.NoMove}}}
}

// Current returns the position at the cursor.
func (g *Game) Current() board.State {
	return g.entries[g.current].State
}

// Index returns the cursor.
func (g *Game) Index() int {
	return g.current
}

// Len returns the number of recorded positions.
func (g *Game) Len() int {
	return len(g.entries)
}

// Entries returns the recorded positions.
func (g *Game) Entries() []Entry {
	return g.entries
}

// Apply plays m from the current position.
func (g *Game) Apply(m board.Move) error {
	cur := g.Current()
	if !board.IsLegal(cur, m) {
		return fmt.Errorf("%w: %v", board.ErrIllegalMove, m)
	}
	g.entries = append(g.entries[:g.current+1], Entry{State: cur.Apply(m), Move: m})
	g.current++
	return nil
}

// ApplyCells plays the move of the piece on from to to.
func (g *Game) ApplyCells(from, to board.Square) (board.Move, error) {
	m, err := board.FindMove(g.Current(), from, to)
	if err != nil {
		return board.NoMove, err
	}
	return m, g.Apply(m)
}

// Select moves the cursor to position i.
func (g *Game) Select(i int) error {
	if i < 0 || i >= len(g.entries) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(g.entries))
	}
	g.current = i
	return nil
}

// Undo moves the cursor back one position.
func (g *Game) Undo() error {
	return g.Select(g.current - 1)
}

// History returns the positions up to and including the cursor.
func (g *Game) History() []board.State {
	states := make([]board.State, g.current+1)
	for i := range states {
		states[i] = g.entries[i].State
	}
	return states
}

// Winner returns the winner of the current position, or NoColor.
func (g *Game) Winner() board.Color {
	return g.Current().Winner()
}
