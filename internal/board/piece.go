package board

// Color identifies a side. White (side A) moves first and maximizes the score.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// Cell classifies the occupant of a square.
type Cell uint8

const (
	EmptyCell Cell = iota
	WhitePawn
	BlackPawn
	WhiteKing
	BlackKing
)

// IsKing returns true for either king.
func (c Cell) IsKing() bool {
	return c == WhiteKing || c == BlackKing
}

// Color returns the owner of the occupant, or NoColor for an empty cell.
func (c Cell) Color() Color {
	switch c {
	case WhitePawn, WhiteKing:
		return White
	case BlackPawn, BlackKing:
		return Black
	default:
		return NoColor
	}
}

// Char returns the diagram character for the cell.
func (c Cell) Char() byte {
	switch c {
	case WhitePawn:
		return 'o'
	case BlackPawn:
		return 'x'
	case WhiteKing:
		return '@'
	case BlackKing:
		return '*'
	default:
		return '_'
	}
}

// String returns the diagram character as a string.
func (c Cell) String() string {
	return string(c.Char())
}
