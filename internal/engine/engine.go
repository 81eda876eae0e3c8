package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hailam/penguin/internal/board"
)

// PartialResult is reported after every completed depth.
type PartialResult struct {
	Depth                  int          `json:"depth"`
	NodesSearched          uint64       `json:"nodes_searched"`
	TranspositionTableSize int          `json:"transposition_table_size"`
	Result                 SearchResult `json:"result"`
}

// Options configures a single call to Analyze or FindBestMove.
type Options struct {
	Config Config
	// ShouldCancel is polled on entry to every node.
	ShouldCancel func() bool
	// OnProgress receives the result of each completed depth.
	OnProgress func(PartialResult)
	// ReportChildScores evaluates every root move under the full window.
	ReportChildScores bool
	// History lists earlier positions of the game; the search never recreates them.
	History []board.State
}

// Analyze deepens until a decisive score, the depth limit, or cancellation.
// It returns the last fully completed depth, and false if none completed.
func Analyze(state board.State, opts Options) (PartialResult, bool) {
	s := NewSearcher(opts.Config, opts.ShouldCancel, opts.ReportChildScores, opts.History)

	var last PartialResult
	completed := false
	for {
		s.NextDepth()
		result, err := s.Search(state)
		if errors.Is(err, ErrInterrupted) {
			break
		}

		last = PartialResult{
			Depth:                  s.Depth(),
			NodesSearched:          s.Nodes(),
			TranspositionTableSize: s.TableSize(),
			Result:                 result,
		}
		completed = true
		if opts.OnProgress != nil {
			opts.OnProgress(last)
		}

		if board.IsDecisive(result.Score) {
			break
		}
		if limit := s.cfg.MaxDepth; limit > 0 && s.Depth() >= limit {
			break
		}
	}
	return last, completed
}

// FindBestMove returns the root move of the deepest completed search,
// or false if cancellation came before depth one finished or no move exists.
func FindBestMove(state board.State, opts Options) (board.Move, bool) {
	res, ok := Analyze(state, opts)
	if !ok {
		return board.NoMove, false
	}
	return res.Result.BestMove()
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth             int           // Maximum depth (0 = no limit)
	MoveTime          time.Duration // Time for this move (0 = no limit)
	ReportChildScores bool
}

// Engine wraps the search with a stop flag, limits and an info callback.
// Each call to Analyze builds fresh tables; calls must not overlap.
type Engine struct {
	cfg      Config
	stopFlag atomic.Bool

	// Callbacks
	OnInfo func(PartialResult)
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the engine configuration.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg.withDefaults()
}

// Stop signals the running search to stop. A search started afterwards
// clears the flag; cancel its context to stop a search that may not have
// reached Analyze yet.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// IsStopped returns true if the search has been stopped.
func (e *Engine) IsStopped() bool {
	return e.stopFlag.Load()
}

// Analyze searches pos under the given limits. Cancelling ctx stops the search.
func (e *Engine) Analyze(ctx context.Context, pos board.State, history []board.State, limits SearchLimits) (PartialResult, bool) {
	e.stopFlag.Store(false)
	if ctx.Err() != nil {
		return PartialResult{}, false
	}

	if limits.MoveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MoveTime)
		defer cancel()
	}
	unregister := context.AfterFunc(ctx, e.Stop)
	defer unregister()

	cfg := e.cfg
	if limits.Depth > 0 {
		cfg.MaxDepth = limits.Depth
	}

	return Analyze(pos, Options{
		Config:            cfg,
		ShouldCancel:      e.stopFlag.Load,
		OnProgress:        e.OnInfo,
		ReportChildScores: limits.ReportChildScores,
		History:           history,
	})
}

// Search returns the best move for pos under the given limits.
func (e *Engine) Search(ctx context.Context, pos board.State, history []board.State, limits SearchLimits) (board.Move, bool) {
	res, ok := e.Analyze(ctx, pos, history, limits)
	if !ok {
		return board.NoMove, false
	}
	return res.Result.BestMove()
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos board.State) int {
	return pos.Score()
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	switch {
	case score >= board.WinScore:
		return "White wins"
	case score <= -board.WinScore:
		return "Black wins"
	default:
		return fmt.Sprintf("%+d", score)
	}
}
