package board

// GenerateMoves appends every legal move of the side to move to ml.
// Each non-blocked direction yields one move: the longest slide.
// Callers must check Ended first.
func (s State) GenerateMoves(ml *MoveList) {
	occ := s.Occupancy()
	us := s.SideToMove()

	first := pawnSlot(us)
	for slot := first; slot < first+PawnsPerSide; slot++ {
		s.generateSlotMoves(ml, slot, occ, false)
	}
	s.generateSlotMoves(ml, KingSlot(us), occ, true)
}

func (s State) generateSlotMoves(ml *MoveList, slot int, occ Bitboard, king bool) {
	for _, ray := range Rays(s.Field(slot)) {
		to := slideTarget(ray, occ)
		if to == NoSquare {
			continue
		}
		// Pawns may cross the throne but never stop on it.
		if !king && to == Center {
			continue
		}
		ml.Add(NewMove(slot, to))
	}
}

// slideTarget returns the farthest empty cell before the first blocker,
// or NoSquare if the first cell is already occupied.
func slideTarget(ray Ray, occ Bitboard) Square {
	to := NoSquare
	for _, sq := range ray {
		if sq == NoSquare || occ.IsSet(sq) {
			break
		}
		to = sq
	}
	return to
}

// Moves returns the legal moves of the side to move.
func (s State) Moves() *MoveList {
	ml := NewMoveList()
	if !s.Ended() {
		s.GenerateMoves(ml)
	}
	return ml
}

// Children returns the states reachable in one move.
func (s State) Children() []State {
	ml := s.Moves()
	children := make([]State, ml.Len())
	for i, m := range ml.Slice() {
		children[i] = s.Apply(m)
	}
	return children
}

// Perft counts the leaf nodes of the move tree to the given depth.
// Finished games are leaves.
func Perft(s State, depth int) uint64 {
	if depth == 0 || s.Ended() {
		return 1
	}

	var ml MoveList
	s.GenerateMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		nodes += Perft(s.Apply(m), depth-1)
	}
	return nodes
}
