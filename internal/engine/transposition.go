package engine

import "github.com/hailam/penguin/internal/board"

// TTEntry is a cached search result for one position.
type TTEntry struct {
	Score    int32
	BestMove board.Move
}

// TranspositionTable keeps two generations of results keyed by canonical state.
// The current generation is read for move ordering; the next generation is
// written during the depth being searched and promoted by NextGeneration.
// Inserts past the entry cap are dropped.
type TranspositionTable struct {
	current    map[board.State]TTEntry
	next       map[board.State]TTEntry
	maxEntries int

	hits   uint64
	probes uint64
}

// NewTranspositionTable creates a table holding at most maxEntries per generation.
func NewTranspositionTable(maxEntries int) *TranspositionTable {
	return &TranspositionTable{
		current:    make(map[board.State]TTEntry),
		next:       make(map[board.State]TTEntry),
		maxEntries: maxEntries,
	}
}

// Probe looks up a position in the current generation.
func (tt *TranspositionTable) Probe(s board.State) (TTEntry, bool) {
	tt.probes++
	entry, ok := tt.current[s]
	if ok {
		tt.hits++
	}
	return entry, ok
}

// Store records a result in the next generation. It reports false when the cap was reached.
func (tt *TranspositionTable) Store(s board.State, score int, bestMove board.Move) bool {
	if len(tt.next) >= tt.maxEntries {
		return false
	}
	tt.next[s] = TTEntry{Score: int32(score), BestMove: bestMove}
	return true
}

// NextGeneration promotes the next generation to current and empties next.
func (tt *TranspositionTable) NextGeneration() {
	tt.current, tt.next = tt.next, tt.current
	clear(tt.next)
}

// Clear empties both generations and resets statistics.
func (tt *TranspositionTable) Clear() {
	clear(tt.current)
	clear(tt.next)
	tt.hits = 0
	tt.probes = 0
}

// Len returns the number of entries written in the next generation.
func (tt *TranspositionTable) Len() int {
	return len(tt.next)
}

// HitRate returns the probe hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}
