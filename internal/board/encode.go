package board

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidPosition is returned when external input does not describe a legal packed state.
var ErrInvalidPosition = errors.New("invalid position")

// Position encodings exchanged with hosts.
const (
	// PositionLen is the bare form: White pawns, Black pawns, White king, Black king.
	PositionLen = NumSlots
	// PositionLenWithSide appends the side to move (1 = White).
	PositionLenWithSide = NumSlots + 1
)

// Pack builds a canonical state from piece cells. Pawn groups may be given in any order.
func Pack(white, black [PawnsPerSide]Square, whiteKing, blackKing Square, toMove Color) (State, error) {
	slices.Sort(white[:])
	slices.Sort(black[:])

	var s State
	cells := make([]Square, 0, NumSlots)
	cells = append(cells, white[:]...)
	cells = append(cells, black[:]...)
	cells = append(cells, whiteKing, blackKing)

	var seen Bitboard
	for slot, sq := range cells {
		if !sq.IsValid() {
			return 0, fmt.Errorf("%w: cell %d out of range in slot %d", ErrInvalidPosition, sq, slot)
		}
		if seen.IsSet(sq) {
			return 0, fmt.Errorf("%w: cell %d occupied twice", ErrInvalidPosition, sq)
		}
		seen = seen.Set(sq)
		s = s.withField(slot, sq)
	}

	switch toMove {
	case White:
		s |= sideToMove
	case Black:
	default:
		return 0, fmt.Errorf("%w: no side to move", ErrInvalidPosition)
	}
	return s, nil
}

// FromPositions decodes the host form: ten cells, optionally followed by the
// side to move (1 = White, 0 = Black). Without the eleventh value White moves.
func FromPositions(positions []int) (State, error) {
	if len(positions) != PositionLen && len(positions) != PositionLenWithSide {
		return 0, fmt.Errorf("%w: want %d or %d values, got %d",
			ErrInvalidPosition, PositionLen, PositionLenWithSide, len(positions))
	}

	var cells [NumSlots]Square
	for i := 0; i < NumSlots; i++ {
		v := positions[i]
		if v < 0 || v >= NumSquares {
			return 0, fmt.Errorf("%w: cell %d out of range in slot %d", ErrInvalidPosition, v, i)
		}
		cells[i] = Square(v)
	}

	toMove := White
	if len(positions) == PositionLenWithSide {
		switch positions[NumSlots] {
		case 1:
		case 0:
			toMove = Black
		default:
			return 0, fmt.Errorf("%w: side to move must be 0 or 1, got %d", ErrInvalidPosition, positions[NumSlots])
		}
	}

	return Pack(
		[PawnsPerSide]Square(cells[0:4]),
		[PawnsPerSide]Square(cells[4:8]),
		cells[WhiteKingSlot], cells[BlackKingSlot], toMove)
}

// Positions encodes the state in the eleven-value host form.
func (s State) Positions() []int {
	out := make([]int, PositionLenWithSide)
	for slot := 0; slot < NumSlots; slot++ {
		out[slot] = int(s.Field(slot))
	}
	if s.Maximizing() {
		out[NumSlots] = 1
	}
	return out
}

// ParseHistory decodes a concatenation of positions of the given stride
// (PositionLen or PositionLenWithSide).
func ParseHistory(values []int, stride int) ([]State, error) {
	if stride != PositionLen && stride != PositionLenWithSide {
		return nil, fmt.Errorf("%w: unsupported stride %d", ErrInvalidPosition, stride)
	}
	if len(values)%stride != 0 {
		return nil, fmt.Errorf("%w: history length %d is not a multiple of %d", ErrInvalidPosition, len(values), stride)
	}
	states := make([]State, 0, len(values)/stride)
	for i := 0; i < len(values); i += stride {
		s, err := FromPositions(values[i : i+stride])
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i/stride, err)
		}
		states = append(states, s)
	}
	return states, nil
}
