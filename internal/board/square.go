// Package board implements the packed 5x5 board representation and move generation.
package board

import "fmt"

// Square represents a cell on the board (0-24).
// Cells are numbered row-major from the top-left corner:
//
//	 0  1  2  3  4
//	 5  6  7  8  9
//	10 11 12 13 14
//	15 16 17 18 19
//	20 21 22 23 24
type Square uint8

// Board dimensions.
const (
	BoardSize  = 5
	NumSquares = BoardSize * BoardSize
)

// Center is the throne. A king standing here wins the game.
const Center Square = 12

// NoSquare marks the end of a ray.
const NoSquare Square = 0xFF

// NewSquare creates a square from row and column (0-indexed).
func NewSquare(row, col int) Square {
	return Square(row*BoardSize + col)
}

// Row returns the row of the square (0 = top).
func (sq Square) Row() int {
	return int(sq) / BoardSize
}

// Col returns the column of the square (0 = left).
func (sq Square) Col() int {
	return int(sq) % BoardSize
}

// IsValid returns true if the square is on the board.
func (sq Square) IsValid() bool {
	return sq < NumSquares
}

// String returns the cell index, or "-" for NoSquare.
func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d", uint8(sq))
}

// Coords returns the "(row,col)" form of the square.
func (sq Square) Coords() string {
	if !sq.IsValid() {
		return "-"
	}
	return fmt.Sprintf("(%d,%d)", sq.Row(), sq.Col())
}
