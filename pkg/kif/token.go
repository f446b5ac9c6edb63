package kif

import (
	"errors"
	"fmt"
	"strings"

	"kogoma/pkg/shogi"
)

type pieceName struct {
	name     string
	typ      shogi.PieceType
	promoted bool
}

// Longer names first so 成銀 wins over 銀.
var pieceNames = []pieceName{
	{"成銀", shogi.Silver, true},
	{"成桂", shogi.Knight, true},
	{"成香", shogi.Lance, true},
	{"全", shogi.Silver, true},
	{"圭", shogi.Knight, true},
	{"杏", shogi.Lance, true},
	{"と", shogi.Pawn, true},
	{"馬", shogi.Bishop, true},
	{"龍", shogi.Rook, true},
	{"竜", shogi.Rook, true},
	{"王", shogi.King, false},
	{"玉", shogi.King, false},
	{"飛", shogi.Rook, false},
	{"角", shogi.Bishop, false},
	{"金", shogi.Gold, false},
	{"銀", shogi.Silver, false},
	{"桂", shogi.Knight, false},
	{"香", shogi.Lance, false},
	{"歩", shogi.Pawn, false},
}

func lookupPiece(text string) (pieceName, string, bool) {
	for _, p := range pieceNames {
		if strings.HasPrefix(text, p.name) {
			return p, strings.TrimPrefix(text, p.name), true
		}
	}
	return pieceName{}, text, false
}

var rankKanji = []rune("一二三四五六七八九")

// parseMoveToken converts "７六歩(77)", "同　歩(23)", "２二飛成(24)" or
// "５五角打" to USI. It returns the destination for a following 同.
func parseMoveToken(token string, prev *shogi.Position) (string, shogi.Position, error) {
	var dest shogi.Position
	work := token
	if strings.HasPrefix(work, "同") {
		if prev == nil {
			return "", dest, errors.New("同 without a previous destination")
		}
		dest = *prev
		work = strings.TrimLeft(strings.TrimPrefix(work, "同"), " 　")
	} else {
		runes := []rune(work)
		if len(runes) < 2 {
			return "", dest, fmt.Errorf("invalid move token %q", token)
		}
		file, ok := parseFileRune(runes[0])
		if !ok {
			return "", dest, fmt.Errorf("invalid destination file in %q", token)
		}
		rank, ok := parseRankRune(runes[1])
		if !ok {
			return "", dest, fmt.Errorf("invalid destination rank in %q", token)
		}
		dest = square(file, rank)
		work = string(runes[2:])
	}

	piece, rest, ok := lookupPiece(work)
	if !ok {
		return "", dest, fmt.Errorf("unknown piece in %q", token)
	}
	// Relative-position hints carry nothing the origin square does not.
	rest = strings.TrimLeft(rest, "右左直上寄引行")

	promote, drop := false, false
	switch {
	case strings.HasPrefix(rest, "不成"):
		rest = strings.TrimPrefix(rest, "不成")
	case strings.HasPrefix(rest, "成"):
		promote = true
		rest = strings.TrimPrefix(rest, "成")
	case strings.HasPrefix(rest, "打"):
		drop = true
		rest = strings.TrimPrefix(rest, "打")
	}

	if drop {
		if piece.promoted {
			return "", dest, fmt.Errorf("cannot drop a promoted piece in %q", token)
		}
		return fmt.Sprintf("%c*%s", piece.typ.Letter(), usiSquare(dest)), dest, nil
	}
	from, ok := parseOrigin(rest)
	if !ok {
		return "", dest, fmt.Errorf("missing source square in %q", token)
	}
	usi := usiSquare(from) + usiSquare(dest)
	if promote {
		usi += "+"
	}
	return usi, dest, nil
}

// parseOrigin reads the "(77)" suffix.
func parseOrigin(text string) (shogi.Position, bool) {
	text = strings.TrimSpace(text)
	if len(text) != 4 || text[0] != '(' || text[3] != ')' {
		return shogi.Position{}, false
	}
	file, rank := int(text[1]-'0'), int(text[2]-'0')
	if file < 1 || file > 9 || rank < 1 || rank > 9 {
		return shogi.Position{}, false
	}
	return square(file, rank), true
}

func parseFileRune(r rune) (int, bool) {
	switch {
	case r >= '1' && r <= '9':
		return int(r - '0'), true
	case r >= '１' && r <= '９':
		return int(r-'１') + 1, true
	}
	return 0, false
}

func parseRankRune(r rune) (int, bool) {
	for i, k := range rankKanji {
		if r == k {
			return i + 1, true
		}
	}
	return 0, false
}

// square maps KIF file/rank numbers (1-9) to a board position.
func square(file, rank int) shogi.Position {
	return shogi.Position{Row: rank - 1, Col: file - 1}
}

func usiSquare(p shogi.Position) string {
	return fmt.Sprintf("%d%c", p.Col+1, byte('a'+p.Row))
}

// kanjiNumber renders 1..18 the way hands are written: 二, 十, 十八.
func kanjiNumber(n int) string {
	var b strings.Builder
	if n >= 10 {
		b.WriteRune('十')
		n -= 10
	}
	if n > 0 {
		b.WriteRune(rankKanji[n-1])
	}
	return b.String()
}

// parseKanjiNumber reads a leading kanji or ASCII count and returns the
// number of runes consumed, 0 when there is none.
func parseKanjiNumber(runes []rune) (int, int) {
	i, value := 0, 0
	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		value = value*10 + int(runes[i]-'0')
		i++
	}
	if i > 0 {
		return value, i
	}
	if i < len(runes) && runes[i] == '十' {
		value = 10
		i++
	}
	if i < len(runes) {
		if n, ok := parseRankRune(runes[i]); ok {
			value += n
			i++
		}
	}
	return value, i
}
