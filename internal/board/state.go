package board

import "strings"

// State packs a whole position into a single word:
// bits 0-19:  White pawns, four 5-bit cells in non-decreasing order
// bits 20-39: Black pawns, four 5-bit cells in non-decreasing order
// bits 40-44: White king
// bits 45-49: Black king
// bit  50:    set when White is to move
//
// Keeping each pawn group sorted makes positions that differ only in which
// pawn stands where pack to the same value.
type State uint64

// Packing layout
const (
	NumSlots     = 10
	PawnsPerSide = 4

	WhiteKingSlot = 8
	BlackKingSlot = 9

	fieldBits     = 5
	fieldMask     = 0x1F
	sideToMoveBit = 50
	sideToMove    = State(1) << sideToMoveBit
)

// SlotColor returns the side owning the piece in a slot.
func SlotColor(slot int) Color {
	switch {
	case slot < PawnsPerSide, slot == WhiteKingSlot:
		return White
	default:
		return Black
	}
}

// SlotIsKing reports whether a slot holds a king.
func SlotIsKing(slot int) bool {
	return slot >= WhiteKingSlot
}

// KingSlot returns the slot of a side's king.
func KingSlot(c Color) int {
	return WhiteKingSlot + int(c)
}

// pawnSlot returns the first pawn slot of a side.
func pawnSlot(c Color) int {
	return int(c) * PawnsPerSide
}

// Field returns the cell stored in a slot.
func (s State) Field(slot int) Square {
	return Square((s >> (slot * fieldBits)) & fieldMask)
}

func (s State) withField(slot int, sq Square) State {
	shift := slot * fieldBits
	return s&^(fieldMask<<shift) | State(sq)<<shift
}

func (s State) swap(i, j int) State {
	a, b := s.Field(i), s.Field(j)
	return s.withField(i, b).withField(j, a)
}

// SideToMove returns the side to move.
func (s State) SideToMove() Color {
	if s&sideToMove != 0 {
		return White
	}
	return Black
}

// Maximizing returns true when White, the maximizing side, is to move.
func (s State) Maximizing() bool {
	return s&sideToMove != 0
}

// King returns the square of a side's king.
func (s State) King(c Color) Square {
	return s.Field(KingSlot(c))
}

// Pawns returns a side's pawn squares in ascending order.
func (s State) Pawns(c Color) [PawnsPerSide]Square {
	var pawns [PawnsPerSide]Square
	first := pawnSlot(c)
	for i := range pawns {
		pawns[i] = s.Field(first + i)
	}
	return pawns
}

// Flatten expands the state into a per-cell classification.
func (s State) Flatten() [NumSquares]Cell {
	var cells [NumSquares]Cell
	for slot := 0; slot < NumSlots; slot++ {
		cells[s.Field(slot)] = slotCell(slot)
	}
	return cells
}

func slotCell(slot int) Cell {
	switch {
	case slot == WhiteKingSlot:
		return WhiteKing
	case slot == BlackKingSlot:
		return BlackKing
	case slot < PawnsPerSide:
		return WhitePawn
	default:
		return BlackPawn
	}
}

// Occupancy returns the set of occupied cells.
func (s State) Occupancy() Bitboard {
	var occ Bitboard
	for slot := 0; slot < NumSlots; slot++ {
		occ |= 1 << s.Field(slot)
	}
	return occ
}

// Apply returns the state after m. The moved slot is bubbled back into
// place within its pawn group; only one field changed, so one pass suffices.
func (s State) Apply(m Move) State {
	slot := m.Slot()
	from := s.Field(slot)
	to := m.To()

	next := s.withField(slot, to) ^ sideToMove
	if SlotIsKing(slot) {
		return next
	}

	lo := slot / PawnsPerSide * PawnsPerSide
	hi := lo + PawnsPerSide - 1
	if to > from {
		for i := slot; i < hi && next.Field(i) > next.Field(i+1); i++ {
			next = next.swap(i, i+1)
		}
	} else {
		for i := slot; i > lo && next.Field(i) < next.Field(i-1); i-- {
			next = next.swap(i-1, i)
		}
	}
	return next
}

// Ended returns true if either king stands on the throne.
func (s State) Ended() bool {
	return s.King(White) == Center || s.King(Black) == Center
}

// Winner returns the side whose king reached the throne, or NoColor.
func (s State) Winner() Color {
	if s.King(White) == Center {
		return White
	}
	if s.King(Black) == Center {
		return Black
	}
	return NoColor
}

// IsCanonical reports whether both pawn groups are sorted and no two pieces share a cell.
func (s State) IsCanonical() bool {
	var seen Bitboard
	for slot := 0; slot < NumSlots; slot++ {
		sq := s.Field(slot)
		if !sq.IsValid() || seen.IsSet(sq) {
			return false
		}
		seen = seen.Set(sq)
	}
	for _, c := range [2]Color{White, Black} {
		pawns := s.Pawns(c)
		for i := 1; i < PawnsPerSide; i++ {
			if pawns[i-1] > pawns[i] {
				return false
			}
		}
	}
	return s>>(sideToMoveBit+1) == 0
}

// String renders the board as a 5x5 diagram followed by the side to move.
func (s State) String() string {
	var sb strings.Builder
	cells := s.Flatten()
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sb.WriteByte(cells[NewSquare(row, col)].Char())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(s.SideToMove().String())
	sb.WriteString(" to move\n")
	return sb.String()
}

// NewState returns the standard starting layout with White to move.
func NewState() State {
	return mustPack([4]Square{0, 1, 3, 4}, [4]Square{20, 21, 23, 24}, 2, 22, White)
}

// NewStateKingsInverted returns the starting layout with the kings swapped:
// each king starts on the opponent's back row.
func NewStateKingsInverted() State {
	return mustPack([4]Square{0, 1, 3, 4}, [4]Square{20, 21, 23, 24}, 22, 2, White)
}

func mustPack(white, black [4]Square, whiteKing, blackKing Square, toMove Color) State {
	s, err := Pack(white, black, whiteKing, blackKing, toMove)
	if err != nil {
		panic(err)
	}
	return s
}
