package board

import "sort"

// grid is a naive cell-array board used as an oracle for the packed generator.
type grid struct {
	cells  [BoardSize][BoardSize]Cell
	toMove Color
}

func gridFromState(s State) grid {
	var g grid
	flat := s.Flatten()
	for sq := Square(0); sq < NumSquares; sq++ {
		g.cells[sq.Row()][sq.Col()] = flat[sq]
	}
	g.toMove = s.SideToMove()
	return g
}

// state packs the grid back, sorting each pawn group.
func (g grid) state() State {
	var white, black []Square
	var whiteKing, blackKing Square
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sq := NewSquare(row, col)
			switch g.cells[row][col] {
			case WhitePawn:
				white = append(white, sq)
			case BlackPawn:
				black = append(black, sq)
			case WhiteKing:
				whiteKing = sq
			case BlackKing:
				blackKing = sq
			}
		}
	}
	s, err := Pack([4]Square(white), [4]Square(black), whiteKing, blackKing, g.toMove)
	if err != nil {
		panic(err)
	}
	return s
}

// slide moves the piece at (row, col) step by step until blocked.
func (g grid) slide(row, col int, d Direction) (grid, bool) {
	dr, dc := d.delta()
	r, c := row, col
	for {
		nr, nc := r+dr, c+dc
		if nr < 0 || nr >= BoardSize || nc < 0 || nc >= BoardSize || g.cells[nr][nc] != EmptyCell {
			break
		}
		r, c = nr, nc
	}
	if r == row && c == col {
		return g, false
	}
	piece := g.cells[row][col]
	if !piece.IsKing() && NewSquare(r, c) == Center {
		return g, false
	}
	next := g
	next.cells[r][c] = piece
	next.cells[row][col] = EmptyCell
	next.toMove = g.toMove.Other()
	return next, true
}

// referenceChildren returns the sorted packed children of s computed on the grid.
func referenceChildren(s State) []State {
	g := gridFromState(s)
	var out []State
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if g.cells[row][col].Color() != g.toMove {
				continue
			}
			for d := Direction(0); d < NumDirections; d++ {
				if next, ok := g.slide(row, col, d); ok {
					out = append(out, next.state())
				}
			}
		}
	}
	sortStates(out)
	return out
}

func sortStates(states []State) {
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
}
