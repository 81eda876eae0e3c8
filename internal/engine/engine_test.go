package engine

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/hailam/penguin/internal/board"
)

// minimax is an unpruned full-width search with the same leaf, repetition
// and no-move rules as the engine.
func minimax(s board.State, ply, depth int, path map[board.State]int) int {
	if ply >= depth || s.Ended() {
		return s.Score()
	}
	maximizing := s.Maximizing()
	best := maxScore
	if maximizing {
		best = minScore
	}
	found := false

	path[s]++
	for _, m := range s.Moves().Slice() {
		next := s.Apply(m)
		if path[next] > 0 {
			continue
		}
		found = true
		v := minimax(next, ply+1, depth, path)
		if maximizing && v > best || !maximizing && v < best {
			best = v
		}
	}
	path[s]--

	if !found {
		if maximizing {
			return -board.WinScore
		}
		return board.WinScore
	}
	return best
}

// samplePositions returns positions reached by seeded random play.
func samplePositions(n, plies int) []board.State {
	rng := rand.New(rand.NewPCG(3, 5))
	var out []board.State
	for len(out) < n {
		s := board.NewState()
		for ply := 0; ply < plies; ply++ {
			ml := s.Moves()
			if s.Ended() || ml.Len() == 0 {
				break
			}
			s = s.Apply(ml.Get(rng.IntN(ml.Len())))
		}
		if !s.Ended() {
			out = append(out, s)
		}
	}
	return out
}

func mustPack(t *testing.T, white, black [4]board.Square, whiteKing, blackKing board.Square, toMove board.Color) board.State {
	t.Helper()
	s, err := board.Pack(white, black, whiteKing, blackKing, toMove)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	positions := append([]board.State{board.NewState(), board.NewStateKingsInverted()}, samplePositions(12, 9)...)
	for i, pos := range positions {
		s := NewSearcher(DefaultConfig(), nil, false, nil)
		for depth := 1; depth <= 3; depth++ {
			s.NextDepth()
			got, err := s.Search(pos)
			if err != nil {
				t.Fatal(err)
			}
			want := minimax(pos, 0, depth, map[board.State]int{})
			if got.Score != want {
				t.Errorf("position %d depth %d: alpha-beta %d, minimax %d\n%v", i, depth, got.Score, want, pos)
			}
		}
	}
}

func TestChildScoresUseFullWindow(t *testing.T) {
	for i, pos := range samplePositions(6, 7) {
		s := NewSearcher(DefaultConfig(), nil, true, nil)
		s.NextDepth()
		s.NextDepth()
		res, err := s.Search(pos)
		if err != nil {
			t.Fatal(err)
		}
		if n := pos.Moves().Len(); len(res.FirstMoveScores) != n {
			t.Fatalf("position %d: %d child scores for %d moves", i, len(res.FirstMoveScores), n)
		}
		for _, ms := range res.FirstMoveScores {
			want := minimax(pos.Apply(ms.Move), 1, 2, map[board.State]int{pos: 1})
			if ms.Score != want {
				t.Errorf("position %d move %v: score %d, want %d", i, ms.Move, ms.Score, want)
			}
		}
	}
}

func TestFindBestMoveTakesThrone(t *testing.T) {
	// The White king slides down from (1,2) and stops on the throne against the Black king.
	pos := mustPack(t, [4]board.Square{0, 1, 3, 4}, [4]board.Square{20, 21, 23, 24}, 7, 17, board.White)

	var reports []PartialResult
	res, ok := Analyze(pos, Options{
		Config:     DefaultConfig(),
		OnProgress: func(p PartialResult) { reports = append(reports, p) },
	})
	if !ok {
		t.Fatal("no depth completed")
	}
	if res.Depth != 1 || len(reports) != 1 {
		t.Errorf("decisive result should stop at depth 1, got depth %d after %d reports", res.Depth, len(reports))
	}
	if res.Result.Score != board.WinScore {
		t.Errorf("score = %d, want %d", res.Result.Score, board.WinScore)
	}
	move, _ := res.Result.BestMove()
	if want := board.NewMove(board.WhiteKingSlot, board.Center); move != want {
		t.Errorf("best move = %v, want %v", move, want)
	}
}

func TestCancelBeforeFirstDepth(t *testing.T) {
	calls := 0
	move, ok := FindBestMove(board.NewState(), Options{
		ShouldCancel: func() bool { return true },
		OnProgress:   func(PartialResult) { calls++ },
	})
	if ok || move != board.NoMove {
		t.Errorf("got move %v, want none", move)
	}
	if calls != 0 {
		t.Errorf("progress reported %d times", calls)
	}
}

func TestCancelAfterFirstDepth(t *testing.T) {
	stop := false
	var first PartialResult
	move, ok := FindBestMove(board.NewState(), Options{
		ShouldCancel: func() bool { return stop },
		OnProgress: func(p PartialResult) {
			if p.Depth == 1 {
				first = p
				stop = true
			}
		},
	})
	if !ok {
		t.Fatal("expected the depth 1 move")
	}
	want, _ := first.Result.BestMove()
	if move != want {
		t.Errorf("move = %v, want depth 1 move %v", move, want)
	}
}

func TestHistoryStatesAreAvoided(t *testing.T) {
	root := board.NewState()
	ml := root.Moves()
	keep := ml.Get(ml.Len() - 1)

	var history []board.State
	for _, m := range ml.Slice()[:ml.Len()-1] {
		history = append(history, root.Apply(m))
	}

	cfg := DefaultConfig()
	cfg.MaxDepth = 3
	move, ok := FindBestMove(root, Options{Config: cfg, History: history})
	if !ok || move != keep {
		t.Errorf("move = %v, want the only unvisited move %v", move, keep)
	}
}

func TestNoRemainingMovesLoses(t *testing.T) {
	root := board.NewState()
	res, ok := Analyze(root, Options{History: root.Children()})
	if !ok {
		t.Fatal("no depth completed")
	}
	if res.Result.Score != -board.WinScore {
		t.Errorf("score = %d, want %d", res.Result.Score, -board.WinScore)
	}
	if _, ok := res.Result.BestMove(); ok {
		t.Error("expected no move")
	}
}

func TestPrincipalVariationNeverRepeats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 5
	root := board.NewState()
	res, ok := Analyze(root, Options{Config: cfg})
	if !ok {
		t.Fatal("no depth completed")
	}
	seen := map[board.State]bool{root: true}
	s := root
	for i, m := range res.Result.BestPath {
		if !board.IsLegal(s, m) {
			t.Fatalf("pv move %d (%v) is illegal", i, m)
		}
		s = s.Apply(m)
		if seen[s] {
			t.Fatalf("pv repeats a position at move %d", i)
		}
		seen[s] = true
	}
}

// shuttleHistory plays one pawn of each side out and back, returning the
// start position and the game history that revisits it.
func shuttleHistory(t *testing.T) (board.State, []board.State) {
	t.Helper()
	s := board.NewState()
	history := []board.State{s}
	for _, cells := range [][2]board.Square{{0, 15}, {24, 9}, {15, 0}, {9, 24}} {
		m, err := board.FindMove(s, cells[0], cells[1])
		if err != nil {
			t.Fatal(err)
		}
		s = s.Apply(m)
		history = append(history, s)
	}
	if s != board.NewState() {
		t.Fatalf("shuttle did not return to the start:\n%v", s)
	}
	return s, history
}

func TestReversingMovesAfterShuttle(t *testing.T) {
	root, history := shuttleHistory(t)
	visited := make(map[board.State]bool, len(history))
	for _, h := range history {
		visited[h] = true
	}

	cfg := DefaultConfig()
	cfg.MaxDepth = 4
	var depths []int
	res, ok := Analyze(root, Options{
		Config:  cfg,
		History: history,
		OnProgress: func(p PartialResult) {
			depths = append(depths, p.Depth)
			s := root
			for i, m := range p.Result.BestPath {
				if !board.IsLegal(s, m) {
					t.Fatalf("depth %d: pv move %d (%v) is illegal", p.Depth, i, m)
				}
				s = s.Apply(m)
				if visited[s] {
					t.Fatalf("depth %d: pv move %d (%v) recreates a game position", p.Depth, i, m)
				}
			}
		},
	})
	if !ok {
		t.Fatal("no depth completed")
	}
	if !board.IsDecisive(res.Result.Score) && res.Depth != cfg.MaxDepth {
		t.Errorf("stopped at depth %d, want %d", res.Depth, cfg.MaxDepth)
	}
	if len(depths) != res.Depth {
		t.Errorf("reported depths %v", depths)
	}

	path := make(map[board.State]int)
	for _, h := range history {
		path[h]++
	}
	if want := minimax(root, 0, res.Depth, path); res.Result.Score != want {
		t.Errorf("score = %d, minimax with history = %d", res.Result.Score, want)
	}

	shuttle, _ := board.FindMove(root, 0, 15)
	if m, _ := res.Result.BestMove(); m == shuttle {
		t.Errorf("best move %v replays the shuttle", m)
	}
}

func TestTranspositionTableGenerations(t *testing.T) {
	tt := NewTranspositionTable(2)
	a := board.NewState()
	children := a.Children()

	if !tt.Store(a, 5, board.NewMove(0, 15)) || !tt.Store(children[0], -3, board.NewMove(4, 5)) {
		t.Fatal("store below cap failed")
	}
	if tt.Store(children[1], 1, board.NewMove(1, 16)) {
		t.Error("store past cap accepted")
	}
	if tt.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tt.Len())
	}
	if _, ok := tt.Probe(a); ok {
		t.Error("next generation visible before promotion")
	}

	tt.NextGeneration()
	entry, ok := tt.Probe(a)
	if !ok || entry.Score != 5 || entry.BestMove != board.NewMove(0, 15) {
		t.Errorf("Probe after promotion = %+v, %v", entry, ok)
	}
	if tt.Len() != 0 {
		t.Errorf("next generation not cleared: %d", tt.Len())
	}
	if tt.HitRate() != 50 {
		t.Errorf("HitRate() = %v, want 50", tt.HitRate())
	}
}

func TestOrderChildrenPutsTableMoveFirst(t *testing.T) {
	root := board.NewState()
	var children []child
	for _, m := range root.Moves().Slice() {
		children = append(children, child{move: m, state: root.Apply(m)})
	}
	ttMove := children[len(children)-1].move
	orderChildren(children, ttMove, true)

	if children[0].move != ttMove {
		t.Errorf("first move = %v, want table move %v", children[0].move, ttMove)
	}
	for i := 2; i < len(children); i++ {
		if children[i-1].state.Score() < children[i].state.Score() {
			t.Errorf("children not sorted by descending score at %d", i)
		}
	}
}

func TestEngineSearch(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	var depths []int
	eng.OnInfo = func(p PartialResult) { depths = append(depths, p.Depth) }

	move, ok := eng.Search(context.Background(), board.NewState(), nil, SearchLimits{Depth: 2})
	if !ok || !board.IsLegal(board.NewState(), move) {
		t.Fatalf("Search returned %v, %v", move, ok)
	}
	if len(depths) != 2 || depths[0] != 1 || depths[1] != 2 {
		t.Errorf("reported depths %v, want [1 2]", depths)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := eng.Search(ctx, board.NewState(), nil, SearchLimits{}); ok {
		t.Error("search with cancelled context returned a move")
	}
}

func TestEngineMoveTime(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	start := time.Now()
	_, _ = eng.Search(context.Background(), board.NewState(), nil, SearchLimits{MoveTime: 200 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("search ignored move time, ran %v", elapsed)
	}
}

func TestAllocateTime(t *testing.T) {
	limits := ClockLimits{Time: [2]time.Duration{60 * time.Second, 60 * time.Second}}
	got := AllocateTime(limits, board.White, 0)
	if got <= 0 || got > 60*time.Second/8 {
		t.Errorf("AllocateTime = %v", got)
	}
	if got := AllocateTime(ClockLimits{MoveTime: time.Second}, board.Black, 0); got != time.Second {
		t.Errorf("fixed move time = %v", got)
	}
	if got := AllocateTime(ClockLimits{}, board.White, 0); got != 0 {
		t.Errorf("no clock = %v, want 0", got)
	}
}

func TestScoreToString(t *testing.T) {
	tests := map[int]string{
		board.WinScore:  "White wins",
		-board.WinScore: "Black wins",
		25:              "+25",
		-3:              "-3",
		0:               "+0",
	}
	for score, want := range tests {
		if got := ScoreToString(score); got != want {
			t.Errorf("ScoreToString(%d) = %q, want %q", score, got, want)
		}
	}
}
