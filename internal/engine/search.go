package engine

import (
	"errors"
	"math"
	"slices"

	"github.com/hailam/penguin/internal/board"
)

// ErrInterrupted unwinds a search once cancellation has been observed.
var ErrInterrupted = errors.New("search interrupted")

// Search bounds
const (
	minScore = math.MinInt32
	maxScore = math.MaxInt32
)

// MoveScore is the score of one root move.
type MoveScore struct {
	Move  board.Move `json:"move"`
	Score int        `json:"score"`
}

// SearchResult is the outcome of one completed depth.
type SearchResult struct {
	Score int `json:"score"`
	// BestPath is the principal variation, root move first.
	BestPath []board.Move `json:"best_path"`
	// FirstMoveScores holds the score of every root move when requested.
	FirstMoveScores []MoveScore `json:"first_move_scores,omitempty"`
}

// BestMove returns the root move of the principal variation.
func (r SearchResult) BestMove() (board.Move, bool) {
	if len(r.BestPath) == 0 {
		return board.NoMove, false
	}
	return r.BestPath[0], true
}

// node is the result of one alphaBeta call. The path is stored leaf first.
type node struct {
	score      int
	path       []board.Move
	moveScores []MoveScore
}

// Searcher performs iterative alpha-beta over packed states.
// A Searcher serves a single search invocation and is not safe for concurrent use.
type Searcher struct {
	cfg Config
	tt  *TranspositionTable

	// Positions on the active path plus the game history, with multiplicity.
	inProgress map[board.State]int

	nodes    uint64
	maxDepth int

	shouldStop        func() bool
	reportChildScores bool
}

// NewSearcher creates a searcher. The history states are never revisited.
func NewSearcher(cfg Config, shouldStop func() bool, reportChildScores bool, history []board.State) *Searcher {
	cfg = cfg.withDefaults()
	if shouldStop == nil {
		shouldStop = func() bool { return false }
	}
	s := &Searcher{
		cfg:               cfg,
		tt:                NewTranspositionTable(cfg.MaxTTEntries),
		inProgress:        make(map[board.State]int, len(history)+64),
		shouldStop:        shouldStop,
		reportChildScores: reportChildScores,
	}
	for _, h := range history {
		s.inProgress[h]++
	}
	return s
}

// NextDepth promotes the table generation and raises the depth limit.
func (s *Searcher) NextDepth() {
	s.tt.NextGeneration()
	s.maxDepth += s.cfg.DepthStep
	s.nodes = 0
}

// Depth returns the current depth limit.
func (s *Searcher) Depth() int {
	return s.maxDepth
}

// Nodes returns the number of interior nodes visited at the current depth.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// TableSize returns the number of entries written at the current depth.
func (s *Searcher) TableSize() int {
	return s.tt.Len()
}

// HitRate returns the transposition table hit rate.
func (s *Searcher) HitRate() float64 {
	return s.tt.HitRate()
}

// Search runs one full-window search to the current depth limit.
func (s *Searcher) Search(root board.State) (SearchResult, error) {
	n, err := s.alphaBeta(root, 0, minScore, maxScore)
	if err != nil {
		return SearchResult{}, err
	}
	path := slices.Clone(n.path)
	slices.Reverse(path)
	return SearchResult{
		Score:           n.score,
		BestPath:        path,
		FirstMoveScores: n.moveScores,
	}, nil
}

func (s *Searcher) enter(state board.State) {
	s.inProgress[state]++
}

func (s *Searcher) leave(state board.State) {
	if s.inProgress[state] <= 1 {
		delete(s.inProgress, state)
		return
	}
	s.inProgress[state]--
}

func (s *Searcher) alphaBeta(state board.State, ply, alpha, beta int) (node, error) {
	if s.shouldStop() {
		return node{}, ErrInterrupted
	}
	if ply >= s.maxDepth || state.Ended() {
		return node{score: state.Score()}, nil
	}

	s.nodes++

	maximizing := state.Maximizing()

	var ml board.MoveList
	state.GenerateMoves(&ml)

	var buf [board.MaxMoves]child
	children := buf[:0]
	for _, m := range ml.Slice() {
		next := state.Apply(m)
		// A repeat of the active line would never make progress.
		if s.inProgress[next] > 0 {
			continue
		}
		children = append(children, child{move: m, state: next})
	}
	if len(children) == 0 {
		if maximizing {
			return node{score: -board.WinScore}, nil
		}
		return node{score: board.WinScore}, nil
	}

	ttMove := board.NoMove
	if entry, ok := s.tt.Probe(state); ok {
		ttMove = entry.BestMove
	}
	orderChildren(children, ttMove, maximizing)

	collect := s.reportChildScores && ply == 0
	best := node{score: maxScore}
	if maximizing {
		best.score = minScore
	}
	if collect {
		best.moveScores = make([]MoveScore, 0, len(children))
	}

	s.enter(state)
	for _, c := range children {
		sub, err := s.alphaBeta(c.state, ply+1, alpha, beta)
		if err != nil {
			s.leave(state)
			return node{}, err
		}

		if maximizing {
			if sub.score > best.score {
				best.score = sub.score
				best.path = append(sub.path, c.move)
			}
			if sub.score > alpha && !collect {
				alpha = sub.score
			}
		} else {
			if sub.score < best.score {
				best.score = sub.score
				best.path = append(sub.path, c.move)
			}
			if sub.score < beta && !collect {
				beta = sub.score
			}
		}
		if collect {
			best.moveScores = append(best.moveScores, MoveScore{Move: c.move, Score: sub.score})
		}
		if alpha >= beta {
			break
		}
	}
	s.leave(state)

	if ply < s.cfg.MaxTTDepth {
		s.tt.Store(state, best.score, best.path[len(best.path)-1])
	}

	return best, nil
}
