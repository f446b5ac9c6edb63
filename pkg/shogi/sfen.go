package shogi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSFEN = errors.New("invalid sfen")

// StandardSFEN is the SFEN of NewInitialState.
const StandardSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// handOrder is the canonical order of hand pieces in SFEN.
var handOrder = []PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// SFEN encodes s. Rows map to ranks a..i and column c to file c+1, so the
// leftmost SFEN file (9) is column 8. The winner is not encoded.
func (s State) SFEN(moveNumber int) string {
	rows := make([]string, 0, BoardSize)
	for r := 0; r < BoardSize; r++ {
		rows = append(rows, s.rowToSFEN(r))
	}
	turn := "b"
	if s.turn == White {
		turn = "w"
	}
	hand := s.handsToSFEN()
	if hand == "" {
		hand = "-"
	}
	return fmt.Sprintf("%s %s %s %d", strings.Join(rows, "/"), turn, hand, moveNumber)
}

func (s State) rowToSFEN(row int) string {
	var b strings.Builder
	empty := 0
	flushEmpty := func() {
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
			empty = 0
		}
	}
	for col := BoardSize - 1; col >= 0; col-- {
		p := s.board[row][col]
		if p == nil {
			empty++
			continue
		}
		flushEmpty()
		if p.Promoted {
			b.WriteByte('+')
		}
		b.WriteByte(sfenLetter(p.Type, p.Owner))
	}
	flushEmpty()
	return b.String()
}

func (s State) handsToSFEN() string {
	var b strings.Builder
	for _, owner := range []Player{Black, White} {
		counts := make(map[PieceType]int)
		for _, t := range s.hands[owner] {
			counts[t]++
		}
		for _, t := range handOrder {
			n := counts[t]
			if n == 0 {
				continue
			}
			if n > 1 {
				b.WriteString(strconv.Itoa(n))
			}
			b.WriteByte(sfenLetter(t, owner))
		}
	}
	return b.String()
}

func sfenLetter(t PieceType, owner Player) byte {
	l := t.Letter()
	if owner == White {
		return l + ('a' - 'A')
	}
	return l
}

// ParseSFEN decodes the board, side to move and hands of an SFEN string.
// Hands come back in canonical order (rook first, pawns last).
func ParseSFEN(sfen string) (State, error) {
	fields := strings.Fields(sfen)
	if len(fields) < 3 {
		return State{}, fmt.Errorf("%w: %q", ErrInvalidSFEN, sfen)
	}
	s := NewEmptyState()
	switch fields[1] {
	case "b":
		s.turn = Black
	case "w":
		s.turn = White
	default:
		return State{}, fmt.Errorf("%w: side to move %q", ErrInvalidSFEN, fields[1])
	}
	if err := parseBoardSFEN(fields[0], &s); err != nil {
		return State{}, err
	}
	if err := parseHandsSFEN(fields[2], &s); err != nil {
		return State{}, err
	}
	return s, nil
}

func parseBoardSFEN(board string, s *State) error {
	rows := strings.Split(board, "/")
	if len(rows) != BoardSize {
		return fmt.Errorf("%w: %d ranks", ErrInvalidSFEN, len(rows))
	}
	for row, text := range rows {
		col := BoardSize - 1
		for i := 0; i < len(text); i++ {
			ch := text[i]
			if ch >= '1' && ch <= '9' {
				col -= int(ch - '0')
				continue
			}
			promoted := false
			if ch == '+' {
				promoted = true
				i++
				if i >= len(text) {
					return fmt.Errorf("%w: dangling promotion marker", ErrInvalidSFEN)
				}
				ch = text[i]
			}
			owner := Black
			if ch >= 'a' && ch <= 'z' {
				owner = White
				ch -= 'a' - 'A'
			}
			t, ok := pieceTypeFromLetter(ch)
			if !ok {
				return fmt.Errorf("%w: unknown piece %c", ErrInvalidSFEN, ch)
			}
			if col < 0 {
				return fmt.Errorf("%w: too many files in rank %d", ErrInvalidSFEN, row+1)
			}
			if promoted && !t.Promotable() {
				return fmt.Errorf("%w: %s cannot promote", ErrInvalidSFEN, t)
			}
			*s = s.WithPiece(Position{Row: row, Col: col}, Piece{Type: t, Owner: owner, Promoted: promoted})
			col--
		}
		if col != -1 {
			return fmt.Errorf("%w: rank %d does not have 9 files", ErrInvalidSFEN, row+1)
		}
	}
	return nil
}

func parseHandsSFEN(hand string, s *State) error {
	if hand == "-" {
		return nil
	}
	counts := [2]map[PieceType]int{{}, {}}
	count := 0
	for i := 0; i < len(hand); i++ {
		ch := hand[i]
		if ch >= '0' && ch <= '9' {
			count = count*10 + int(ch-'0')
			continue
		}
		if count == 0 {
			count = 1
		}
		owner := Black
		if ch >= 'a' && ch <= 'z' {
			owner = White
			ch -= 'a' - 'A'
		}
		t, ok := pieceTypeFromLetter(ch)
		if !ok || t == King {
			return fmt.Errorf("%w: unknown hand piece %c", ErrInvalidSFEN, hand[i])
		}
		counts[owner][t] += count
		count = 0
	}
	if count != 0 {
		return fmt.Errorf("%w: trailing hand count", ErrInvalidSFEN)
	}
	for _, owner := range []Player{Black, White} {
		var types []PieceType
		for _, t := range handOrder {
			for n := 0; n < counts[owner][t]; n++ {
				types = append(types, t)
			}
		}
		*s = s.WithHand(owner, types...)
	}
	return nil
}
