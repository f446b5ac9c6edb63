package shogi

import (
	"errors"
	"fmt"
)

var ErrUnknownMove = errors.New("move is not a candidate")

// FormatUSI renders m in USI notation: "7g7f", "8h2b+" or "P*5e".
func FormatUSI(m Move) string {
	switch mv := m.(type) {
	case BoardMove:
		text := formatSquare(mv.From) + formatSquare(mv.To)
		if mv.Promote {
			text += "+"
		}
		return text
	case DropMove:
		return fmt.Sprintf("%c*%s", mv.Piece.Type.Letter(), formatSquare(mv.To))
	default:
		return ""
	}
}

func formatSquare(p Position) string {
	return fmt.Sprintf("%d%c", p.Col+1, byte('a'+p.Row))
}

// ParseUSIMove resolves a USI move string against the candidate moves of the
// side to move. Anything GenerateMoves would not offer is ErrUnknownMove.
func ParseUSIMove(s State, text string) (Move, error) {
	for _, m := range GenerateMoves(s, s.turn) {
		if FormatUSI(m) == text {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMove, text)
}

// Contains reports whether moves holds a move with the same notation as m.
func Contains(moves []Move, m Move) bool {
	if m == nil {
		return false
	}
	want := FormatUSI(m)
	for _, candidate := range moves {
		if FormatUSI(candidate) == want {
			return true
		}
	}
	return false
}
