package shogi_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kogoma/pkg/shogi"
)

var stateOpts = cmp.AllowUnexported(shogi.State{})

func at(row, col int) shogi.Position {
	return shogi.Position{Row: row, Col: col}
}

func movesFrom(moves []shogi.Move, from shogi.Position) []shogi.Move {
	var out []shogi.Move
	for _, m := range moves {
		if bm, ok := m.(shogi.BoardMove); ok && bm.From == from {
			out = append(out, m)
		}
	}
	return out
}

func dropsOnly(moves []shogi.Move) []shogi.DropMove {
	var out []shogi.DropMove
	for _, m := range moves {
		if dm, ok := m.(shogi.DropMove); ok {
			out = append(out, dm)
		}
	}
	return out
}

func pieceRef(p shogi.Piece) *shogi.Piece {
	return &p
}

// playout walks a random game from the initial position and calls fn for
// every state visited before the game ends or maxPlies is reached.
func playout(t *testing.T, seed int64, maxPlies int, fn func(s shogi.State, moves []shogi.Move)) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := shogi.NewInitialState()
	for ply := 0; ply < maxPlies && !s.Terminal(); ply++ {
		moves := shogi.GenerateMoves(s, s.Turn())
		fn(s, moves)
		if len(moves) == 0 {
			return
		}
		s = shogi.ApplyMove(s, moves[rng.Intn(len(moves))])
	}
}
