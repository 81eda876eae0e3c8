package engine

import (
	"cmp"
	"slices"

	"github.com/hailam/penguin/internal/board"
)

// ttMoveKey sorts the previous depth's best move ahead of everything else.
const ttMoveKey = -10000000

// child is a candidate move with the state it leads to.
type child struct {
	move  board.Move
	state board.State
	key   int
}

// orderChildren puts the table move first, then sorts by the static score
// of the resulting state: best for the side to move first.
func orderChildren(children []child, ttMove board.Move, maximizing bool) {
	for i := range children {
		c := &children[i]
		switch {
		case c.move == ttMove:
			c.key = ttMoveKey
		case maximizing:
			c.key = -c.state.Score()
		default:
			c.key = c.state.Score()
		}
	}
	slices.SortStableFunc(children, func(a, b child) int {
		return cmp.Compare(a.key, b.key)
	})
}
