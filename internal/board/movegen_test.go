package board

import (
	"math/rand/v2"
	"slices"
	"testing"
)

// selfPlay walks random games from start and calls visit on every state reached.
func selfPlay(t *testing.T, start State, games, plies int, visit func(State)) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	for g := 0; g < games; g++ {
		s := start
		for ply := 0; ply < plies; ply++ {
			visit(s)
			if s.Ended() {
				break
			}
			ml := s.Moves()
			if ml.Len() == 0 {
				break
			}
			s = s.Apply(ml.Get(rng.IntN(ml.Len())))
		}
	}
}

func TestGeneratorMatchesReference(t *testing.T) {
	starts := map[string]State{
		"standard":      NewState(),
		"kingsInverted": NewStateKingsInverted(),
	}
	for name, start := range starts {
		t.Run(name, func(t *testing.T) {
			checked := 0
			selfPlay(t, start, 200, 80, func(s State) {
				if s.Ended() {
					return
				}
				got := s.Children()
				sortStates(got)
				want := referenceChildren(s)
				if !slices.Equal(got, want) {
					t.Fatalf("children mismatch for\n%v\ngot  %d states\nwant %d states", s, len(got), len(want))
				}
				checked++
			})
			t.Logf("checked %d positions", checked)
		})
	}
}

func TestReachableStatesAreCanonical(t *testing.T) {
	selfPlay(t, NewState(), 100, 100, func(s State) {
		if !s.IsCanonical() {
			t.Fatalf("non-canonical state %#x:\n%v", uint64(s), s)
		}
		back, err := FromPositions(s.Positions())
		if err != nil {
			t.Fatalf("FromPositions(%v): %v", s.Positions(), err)
		}
		if back != s {
			t.Fatalf("round trip changed state: %#x -> %#x", uint64(s), uint64(back))
		}
	})
}

func TestKingSlidesToFarthestCell(t *testing.T) {
	// White king at (1,2); every other piece sits off its rays.
	s, err := Pack([4]Square{0, 4, 10, 14}, [4]Square{20, 21, 23, 24}, 7, 16, White)
	if err != nil {
		t.Fatal(err)
	}

	var got []Square
	for _, m := range s.Moves().Slice() {
		if m.Slot() == WhiteKingSlot {
			got = append(got, m.To())
		}
	}
	slices.Sort(got)

	want := []Square{
		NewSquare(0, 1), // up-left
		NewSquare(0, 2), // up
		NewSquare(0, 3), // up-right
		NewSquare(1, 0), // left
		NewSquare(1, 4), // right
		NewSquare(3, 0), // down-left
		NewSquare(3, 4), // down-right
		NewSquare(4, 2), // down, across the throne
	}
	if !slices.Equal(got, want) {
		t.Errorf("king destinations = %v, want %v", got, want)
	}
}

func TestPawnCannotStopOnThrone(t *testing.T) {
	// White pawn at (1,2) with the Black king at (3,2) below the throne.
	s, err := Pack([4]Square{0, 4, 7, 10}, [4]Square{20, 21, 23, 24}, 14, 17, White)
	if err != nil {
		t.Fatal(err)
	}

	var got []Square
	for _, m := range s.Moves().Slice() {
		if m.From(s) == 7 {
			got = append(got, m.To())
		}
	}
	if len(got) != 7 {
		t.Errorf("pawn has %d moves (%v), want 7", len(got), got)
	}
	for _, to := range got {
		if to == Center {
			t.Errorf("pawn allowed to stop on the throne")
		}
		if to.Col() == 2 && to.Row() > 1 {
			t.Errorf("pawn moved down to %v", to.Coords())
		}
	}
}

func TestPawnCrossesThrone(t *testing.T) {
	s, err := Pack([4]Square{0, 4, 7, 10}, [4]Square{20, 21, 23, 24}, 14, 18, White)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := FindMove(s, 7, 22); err != nil {
		t.Errorf("pawn should slide across the throne: %v", err)
	}
}

func TestEnclosedPieceHasNoMoves(t *testing.T) {
	// White pawn in the corner, boxed in by its neighbours.
	s, err := Pack([4]Square{0, 1, 5, 20}, [4]Square{6, 21, 23, 24}, 4, 22, White)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range s.Moves().Slice() {
		if m.From(s) == 0 {
			t.Errorf("enclosed pawn produced move %v", m)
		}
	}
}

func TestGeometry(t *testing.T) {
	if n := len(Rays(Center)); n != 0 {
		t.Errorf("throne has %d rays, want 0", n)
	}
	if n := len(Rays(0)); n != 3 {
		t.Errorf("corner has %d rays, want 3", n)
	}
	if n := len(Rays(6)); n != 8 {
		t.Errorf("inner cell has %d rays, want 8", n)
	}
	ray, ok := RayInDirection(2, Down)
	if !ok || ray != (Ray{7, 12, 17, 22}) {
		t.Errorf("down ray from 2 = %v, want [7 12 17 22]", ray)
	}
	ray, ok = RayInDirection(18, UpLeft)
	if !ok || ray.Len() != 3 {
		t.Errorf("up-left ray from 18 = %v, want 3 cells", ray)
	}
}

func TestPerft(t *testing.T) {
	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 13},
	}
	for _, tc := range tests {
		if got := Perft(NewState(), tc.depth); got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// referencePerft counts leaves using the grid generator.
func referencePerft(s State, depth int) uint64 {
	if depth == 0 || s.Ended() {
		return 1
	}
	var nodes uint64
	for _, child := range referenceChildren(s) {
		nodes += referencePerft(child, depth-1)
	}
	return nodes
}

func TestPerftMatchesReference(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		for _, start := range []State{NewState(), NewStateKingsInverted()} {
			got := Perft(start, depth)
			want := referencePerft(start, depth)
			if got != want {
				t.Errorf("perft(%d) = %d, reference %d", depth, got, want)
			}
		}
	}
}
