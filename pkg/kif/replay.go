package kif

import (
	"errors"
	"fmt"
	"time"

	"kogoma/pkg/shogi"
)

var ErrMovesAfterEnd = errors.New("moves recorded after the game ended")

// Game is a validated move sequence together with its result.
type Game struct {
	Black, White Player
	Start        shogi.State
	Moves        []shogi.Move
	Final        shogi.State
	Winner       shogi.Player
	Decided      bool
	// Terminal overrides the closing token Write emits.
	Terminal string
	Started  time.Time
}

// Replay checks every recorded move against the candidate moves of the
// position it is played in. A king capture ends the game; anything recorded
// after it is ErrMovesAfterEnd.
func Replay(rec Record) (Game, error) {
	g := Game{Black: rec.Black, White: rec.White, Start: rec.Start, Terminal: rec.Terminal}
	s := rec.Start
	for i, text := range rec.Moves {
		if s.Terminal() {
			return g, fmt.Errorf("ply %d %s: %w", i+1, text, ErrMovesAfterEnd)
		}
		mv, err := shogi.ParseUSIMove(s, text)
		if err != nil {
			return g, fmt.Errorf("ply %d: %w", i+1, err)
		}
		s = shogi.ApplyMove(s, mv)
		g.Moves = append(g.Moves, mv)
	}
	g.Final = s
	if winner, ok := s.Winner(); ok {
		g.Winner, g.Decided = winner, true
	} else {
		g.Winner, g.Decided = rec.Outcome()
	}
	return g, nil
}

// SFENAt returns the position after the first ply moves, numbered the way
// engines expect.
func (g Game) SFENAt(ply int) (string, error) {
	if ply < 0 || ply > len(g.Moves) {
		return "", fmt.Errorf("move out of range: %d", ply)
	}
	s := g.Start
	for _, mv := range g.Moves[:ply] {
		s = shogi.ApplyMove(s, mv)
	}
	return s.SFEN(ply + 1), nil
}
