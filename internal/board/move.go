package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned when a requested move is not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Move encodes a move in 16 bits:
// bits 0-3: slot of the moving piece (0-9)
// bits 4-8: destination square (0-24)
//
// A move only has meaning relative to the state it was generated from.
type Move uint16

// NoMove represents an invalid or null move.
const NoMove Move = 0xFFFF

// MaxMoves bounds the moves of one side: five pieces, eight directions.
const MaxMoves = (PawnsPerSide + 1) * int(NumDirections)

// NewMove creates a move of the piece in slot to a destination.
func NewMove(slot int, to Square) Move {
	return Move(slot) | Move(to)<<4
}

// Slot returns the slot of the moving piece.
func (m Move) Slot() int {
	return int(m & 0xF)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 4) & 0x1F)
}

// From returns the origin square of the move in s.
func (m Move) From(s State) Square {
	return s.Field(m.Slot())
}

// String returns the "[slot] -> destination" form.
func (m Move) String() string {
	if m == NoMove {
		return "none"
	}
	return fmt.Sprintf("[%d] -> %d", m.Slot(), m.To())
}

// ParseMove parses the "[slot] -> destination" form.
func ParseMove(s string) (Move, error) {
	var slot, to int
	if _, err := fmt.Sscanf(s, "[%d] -> %d", &slot, &to); err != nil {
		return NoMove, fmt.Errorf("invalid move string %q: %w", s, err)
	}
	if slot < 0 || slot >= NumSlots || to < 0 || to >= NumSquares {
		return NoMove, fmt.Errorf("invalid move string %q", s)
	}
	return NewMove(slot, Square(to)), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// FindMove resolves a (from, to) cell pair into a legal move of the side to move.
func FindMove(s State, from, to Square) (Move, error) {
	if s.Ended() {
		return NoMove, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}
	var ml MoveList
	s.GenerateMoves(&ml)
	for _, m := range ml.Slice() {
		if m.From(s) == from && m.To() == to {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %d to %d", ErrIllegalMove, from, to)
}

// IsLegal returns true if m is one of the generated moves of s.
func IsLegal(s State, m Move) bool {
	if s.Ended() {
		return false
	}
	var ml MoveList
	s.GenerateMoves(&ml)
	return ml.Contains(m)
}

// MarshalText encodes the move in its "[slot] -> destination" form.
func (m Move) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes the "[slot] -> destination" form.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, err := ParseMove(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
