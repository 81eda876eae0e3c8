package engine

import (
	"time"

	"github.com/hailam/penguin/internal/board"
)

// ClockLimits describes the clocks of both sides.
type ClockLimits struct {
	Time      [2]time.Duration // remaining time, indexed by color
	Inc       [2]time.Duration // increment per move, indexed by color
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides the clocks)
}

// Time allocation bounds
const (
	minMoveTime        = 10 * time.Millisecond
	defaultMovesToGo   = 30
	minimumMovesToGo   = 8
	remainingTimeShare = 8 // never plan to spend more than 1/8 of the clock
)

// AllocateTime returns how long the side to move may think, or 0 for no limit.
// ply is the number of moves already played.
func AllocateTime(limits ClockLimits, us board.Color, ply int) time.Duration {
	if limits.MoveTime > 0 {
		return limits.MoveTime
	}
	timeLeft := limits.Time[us]
	if timeLeft <= 0 {
		return 0
	}

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = defaultMovesToGo - ply/4
		if mtg < minimumMovesToGo {
			mtg = minimumMovesToGo
		}
	}

	alloc := timeLeft/time.Duration(mtg) + limits.Inc[us]*9/10
	if ceiling := timeLeft / remainingTimeShare; alloc > ceiling && limits.Inc[us] == 0 {
		alloc = ceiling
	}
	if alloc > timeLeft*95/100 {
		alloc = timeLeft * 95 / 100
	}
	if alloc < minMoveTime {
		alloc = minMoveTime
	}
	return alloc
}
