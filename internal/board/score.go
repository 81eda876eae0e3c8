package board

// Score constants
const (
	// WinScore is the score of a decided game, from White's point of view.
	WinScore = 100000
	// DecisiveScore separates forced outcomes from positional scores.
	DecisiveScore = 10000
)

// Positional weights. The inner ring is worth the most.
var pawnWeights = [NumSquares]int{
	0, 3, 0, 3, 0,
	3, 25, 25, 25, 3,
	0, 25, 0, 25, 0,
	3, 25, 25, 25, 3,
	0, 3, 0, 3, 0,
}

// The throne entry is never read: Score returns early once a king is there.
var kingWeights = [NumSquares]int{
	10, 0, 10, 0, 10,
	0, 50, 50, 50, 0,
	10, 50, WinScore, 50, 10,
	0, 50, 50, 50, 0,
	10, 0, 10, 0, 10,
}

// Score returns the static evaluation from White's point of view.
// A decided game scores ±WinScore.
func (s State) Score() int {
	whiteKing := s.King(White)
	blackKing := s.King(Black)
	if whiteKing == Center {
		return WinScore
	}
	if blackKing == Center {
		return -WinScore
	}

	score := kingWeights[whiteKing] - kingWeights[blackKing]
	for i := 0; i < PawnsPerSide; i++ {
		score += pawnWeights[s.Field(i)]
		score -= pawnWeights[s.Field(PawnsPerSide+i)]
	}
	return score
}

// IsDecisive returns true if the score reports a forced outcome.
func IsDecisive(score int) bool {
	return score > DecisiveScore || score < -DecisiveScore
}
