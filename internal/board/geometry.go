package board

// Direction is one of the eight sliding directions.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
	UpLeft
	UpRight
	DownLeft
	DownRight
	NumDirections
)

// delta returns the (row, col) step of the direction.
func (d Direction) delta() (int, int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	case UpLeft:
		return -1, -1
	case UpRight:
		return -1, 1
	case DownLeft:
		return 1, -1
	default:
		return 1, 1
	}
}

// String returns the direction name.
func (d Direction) String() string {
	names := [...]string{"up", "down", "left", "right", "up-left", "up-right", "down-left", "down-right"}
	if d >= NumDirections {
		return "none"
	}
	return names[d]
}

// MaxRayLength is the longest slide possible on a 5-wide board.
const MaxRayLength = BoardSize - 1

// Ray lists the cells met when sliding from a square, nearest first,
// padded with NoSquare.
type Ray [MaxRayLength]Square

// Len returns the number of cells on the ray.
func (r Ray) Len() int {
	for i, sq := range r {
		if sq == NoSquare {
			return i
		}
	}
	return MaxRayLength
}

// geometry holds the non-empty rays of a square, compacted to the front.
type geometry struct {
	rays  [NumDirections]Ray
	dirs  [NumDirections]Direction
	count int
}

// Precomputed slide geometry, indexed by square. Read-only after init.
var geometryTable [NumSquares]geometry

func init() {
	initGeometry()
}

func initGeometry() {
	for sq := Square(0); sq < NumSquares; sq++ {
		g := &geometryTable[sq]
		for i := range g.rays {
			g.rays[i] = Ray{NoSquare, NoSquare, NoSquare, NoSquare}
		}
		// Nothing ever moves off the throne.
		if sq == Center {
			continue
		}
		for d := Direction(0); d < NumDirections; d++ {
			ray := buildRay(sq, d)
			if ray[0] == NoSquare {
				continue
			}
			g.rays[g.count] = ray
			g.dirs[g.count] = d
			g.count++
		}
	}
}

// buildRay walks from sq in direction d until the edge.
func buildRay(sq Square, d Direction) Ray {
	ray := Ray{NoSquare, NoSquare, NoSquare, NoSquare}
	dr, dc := d.delta()
	row, col := sq.Row()+dr, sq.Col()+dc
	for i := 0; i < MaxRayLength; i++ {
		if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
			break
		}
		ray[i] = NewSquare(row, col)
		row += dr
		col += dc
	}
	return ray
}

// Rays returns the non-empty rays leaving sq. The throne has none.
func Rays(sq Square) []Ray {
	g := &geometryTable[sq]
	return g.rays[:g.count]
}

// RayInDirection returns the ray from sq in direction d and whether it is non-empty.
func RayInDirection(sq Square, d Direction) (Ray, bool) {
	g := &geometryTable[sq]
	for i := 0; i < g.count; i++ {
		if g.dirs[i] == d {
			return g.rays[i], true
		}
	}
	return Ray{NoSquare, NoSquare, NoSquare, NoSquare}, false
}
