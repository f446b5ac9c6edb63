package kif

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"kogoma/pkg/shogi"
)

// Diagram rows look like "|v香v桂v銀v金v玉v金v銀v桂v香|一"; the rank suffix
// is optional.
var boardRowRe = regexp.MustCompile(`^\|(.*)\|\s*[一二三四五六七八九]?$`)

// boardGlyphs are the single-character forms used inside a diagram.
var boardGlyphs = map[rune]shogi.Piece{
	'王': {Type: shogi.King},
	'玉': {Type: shogi.King},
	'飛': {Type: shogi.Rook},
	'角': {Type: shogi.Bishop},
	'金': {Type: shogi.Gold},
	'銀': {Type: shogi.Silver},
	'桂': {Type: shogi.Knight},
	'香': {Type: shogi.Lance},
	'歩': {Type: shogi.Pawn},
	'龍': {Type: shogi.Rook, Promoted: true},
	'竜': {Type: shogi.Rook, Promoted: true},
	'馬': {Type: shogi.Bishop, Promoted: true},
	'全': {Type: shogi.Silver, Promoted: true},
	'圭': {Type: shogi.Knight, Promoted: true},
	'杏': {Type: shogi.Lance, Promoted: true},
	'と': {Type: shogi.Pawn, Promoted: true},
}

// startPosition returns the standard setup for 平手 records without a
// diagram, and otherwise builds the state from the diagram, hands and 手番.
func startPosition(lines []string) (shogi.State, error) {
	rows := collectBoardRows(lines)
	if len(rows) == 0 {
		handicap := headerValue(lines, "手合割")
		if handicap == "" || strings.Contains(handicap, "平手") {
			return shogi.NewInitialState(), nil
		}
		return shogi.State{}, fmt.Errorf("handicap %q without a board diagram", handicap)
	}
	if len(rows) != shogi.BoardSize {
		return shogi.State{}, fmt.Errorf("board diagram must have 9 rows, got %d", len(rows))
	}

	s := shogi.NewEmptyState()
	for r, row := range rows {
		cells, err := parseBoardRow(row)
		if err != nil {
			return shogi.State{}, fmt.Errorf("row %d: %w", r+1, err)
		}
		// Cells run from file 9 down to file 1.
		for i, cell := range cells {
			if cell != nil {
				s = s.WithPiece(square(shogi.BoardSize-i, r+1), *cell)
			}
		}
	}
	for _, side := range []struct {
		prefix string
		owner  shogi.Player
	}{{"先手の持駒", shogi.Black}, {"後手の持駒", shogi.White}} {
		for _, line := range lines {
			trim := strings.TrimSpace(line)
			if !strings.HasPrefix(trim, side.prefix) {
				continue
			}
			hand, err := parseHandLine(trim)
			if err != nil {
				return shogi.State{}, err
			}
			s = s.WithHand(side.owner, hand...)
		}
	}
	return s.WithTurn(parseTurn(lines)), nil
}

func collectBoardRows(lines []string) []string {
	var rows []string
	for _, line := range lines {
		if m := boardRowRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			rows = append(rows, m[1])
		}
	}
	return rows
}

func parseBoardRow(row string) ([]*shogi.Piece, error) {
	runes := []rune(row)
	var cells []*shogi.Piece
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case ' ', '\t', '　':
			continue
		case '・':
			cells = append(cells, nil)
			continue
		}
		owner := shogi.Black
		if r == 'v' {
			owner = shogi.White
			i++
			if i >= len(runes) {
				return nil, errors.New("dangling gote marker")
			}
			r = runes[i]
		}
		piece, ok := boardGlyphs[r]
		if !ok && r == '成' && i+1 < len(runes) {
			// Two-rune form such as 成銀.
			if base, found := boardGlyphs[runes[i+1]]; found && base.Type.Promotable() && !base.Promoted {
				piece, ok = shogi.Piece{Type: base.Type, Promoted: true}, true
				i++
			}
		}
		if !ok {
			return nil, fmt.Errorf("unknown piece %c", r)
		}
		piece.Owner = owner
		cells = append(cells, &piece)
	}
	if len(cells) != shogi.BoardSize {
		return nil, fmt.Errorf("expected 9 cells, got %d", len(cells))
	}
	return cells, nil
}

// parseTurn accepts both "手番：後手" and a bare "後手番" line.
func parseTurn(lines []string) shogi.Player {
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if trim == "後手番" || (strings.HasPrefix(trim, "手番") && strings.Contains(trim, "後手")) {
			return shogi.White
		}
	}
	return shogi.Black
}

// parseHandLine reads "先手の持駒：飛　角　歩十八" into piece types.
func parseHandLine(line string) ([]shogi.PieceType, error) {
	_, text, ok := strings.Cut(line, "：")
	if !ok {
		_, text, ok = strings.Cut(line, ":")
	}
	if !ok {
		return nil, fmt.Errorf("invalid hand line: %s", line)
	}
	runes := []rune(strings.TrimSpace(text))
	if string(runes) == "なし" {
		return nil, nil
	}
	var hand []shogi.PieceType
	for i := 0; i < len(runes); {
		if runes[i] == ' ' || runes[i] == '　' {
			i++
			continue
		}
		piece, ok := boardGlyphs[runes[i]]
		if !ok || piece.Promoted || piece.Type == shogi.King {
			return nil, fmt.Errorf("unknown hand piece %c", runes[i])
		}
		i++
		count, consumed := parseKanjiNumber(runes[i:])
		i += consumed
		if consumed == 0 {
			count = 1
		}
		for n := 0; n < count; n++ {
			hand = append(hand, piece.Type)
		}
	}
	return hand, nil
}

// diagramHands lists the hand order used when writing a diagram.
var diagramHands = []shogi.PieceType{shogi.Rook, shogi.Bishop, shogi.Gold, shogi.Silver, shogi.Knight, shogi.Lance, shogi.Pawn}

func formatHand(hand []shogi.PieceType) string {
	counts := make(map[shogi.PieceType]int, len(hand))
	for _, t := range hand {
		counts[t]++
	}
	var parts []string
	for _, t := range diagramHands {
		switch n := counts[t]; {
		case n == 1:
			parts = append(parts, t.Kanji())
		case n > 1:
			parts = append(parts, t.Kanji()+kanjiNumber(n))
		}
	}
	if len(parts) == 0 {
		return "なし"
	}
	return strings.Join(parts, "　")
}

func boardGlyph(p shogi.Piece) string {
	if !p.Promoted {
		return p.Type.Kanji()
	}
	switch p.Type {
	case shogi.Rook:
		return "龍"
	case shogi.Bishop:
		return "馬"
	case shogi.Silver:
		return "全"
	case shogi.Knight:
		return "圭"
	case shogi.Lance:
		return "杏"
	default:
		return "と"
	}
}

// writeDiagram appends the hands, board and side to move in the layout
// Kifu for Windows uses.
func writeDiagram(b *strings.Builder, s shogi.State) {
	fmt.Fprintf(b, "後手の持駒：%s\n", formatHand(s.Hand(shogi.White)))
	b.WriteString("  ９ ８ ７ ６ ５ ４ ３ ２ １\n")
	b.WriteString("+---------------------------+\n")
	for r := 0; r < shogi.BoardSize; r++ {
		b.WriteString("|")
		for file := shogi.BoardSize; file >= 1; file-- {
			p, ok := s.At(square(file, r+1))
			switch {
			case !ok:
				b.WriteString(" ・")
			case p.Owner == shogi.White:
				b.WriteString("v" + boardGlyph(p))
			default:
				b.WriteString(" " + boardGlyph(p))
			}
		}
		fmt.Fprintf(b, "|%c\n", rankKanji[r])
	}
	b.WriteString("+---------------------------+\n")
	fmt.Fprintf(b, "先手の持駒：%s\n", formatHand(s.Hand(shogi.Black)))
	if s.Turn() == shogi.White {
		b.WriteString("後手番\n")
	}
}
