package kif

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"kogoma/pkg/shogi"
)

var (
	ErrNoMoves     = errors.New("no moves found")
	ErrPlySequence = errors.New("move number out of sequence")
)

// Player is a name from the 先手/後手 header, with an optional rating
// written as "name(1500)".
type Player struct {
	Name   string
	Rating int32
}

// Record is a parsed KIF file. Moves are in USI notation and have not been
// checked against the rules; see Replay.
type Record struct {
	Black    Player
	White    Player
	Handicap string
	Start    shogi.State
	Moves    []string
	// Terminal is the closing token (投了, 中断, ...) and TerminalPly the
	// ply number it was written on. Both are zero when the record just stops.
	Terminal    string
	TerminalPly int
}

// Optional clock suffix: "   1 ７六歩(77)   ( 0:01/00:00:01)". A trailing
// "+" marks a move that has a variation.
var moveLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.+?)(?:\s+\(.*\))?\s*\+?\s*$`)
var nameRatingRe = regexp.MustCompile(`^(.+?)\((\d+)\)$`)

// ReadFile loads and parses a KIF file in UTF-8 or Shift-JIS.
func ReadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	lines, err := decodeLines(data)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	rec, err := Parse(lines)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func decodeLines(data []byte) ([]string, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines, nil
}

func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("failed to decode Shift-JIS KIF")
	}
	return string(decoded), nil
}

// Parse reads the header, start position and move list from decoded lines.
func Parse(lines []string) (Record, error) {
	start, err := startPosition(lines)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Black:    parseNameRating(headerValue(lines, "先手")),
		White:    parseNameRating(headerValue(lines, "後手")),
		Handicap: headerValue(lines, "手合割"),
		Start:    start,
	}

	var prev *shogi.Position
	for i, line := range lines {
		// Branches follow the main line; only the main line is read.
		if strings.HasPrefix(strings.TrimSpace(line), "変化") {
			break
		}
		m := moveLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ply, _ := strconv.Atoi(m[1])
		if want := len(rec.Moves) + 1; ply != want {
			return Record{}, fmt.Errorf("line %d: move %d, want %d: %w", i+1, ply, want, ErrPlySequence)
		}
		token := strings.TrimSpace(m[2])
		if isTerminal(token) {
			rec.Terminal, rec.TerminalPly = token, ply
			break
		}
		move, dest, err := parseMoveToken(token, prev)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		rec.Moves = append(rec.Moves, move)
		prev = &dest
	}
	if len(rec.Moves) == 0 && rec.Terminal == "" {
		return Record{}, ErrNoMoves
	}
	return rec, nil
}

func isTerminal(token string) bool {
	switch token {
	case "投了", "中断", "持将棋", "千日手", "詰み", "切れ負け", "反則勝ち", "反則負け", "入玉勝ち", "勝ち宣言":
		return true
	default:
		return false
	}
}

// Outcome maps the terminal token to a winner. Draws, aborts and records
// without a terminal token are undecided.
func (r Record) Outcome() (shogi.Player, bool) {
	switch r.Terminal {
	case "反則勝ち", "入玉勝ち", "勝ち宣言":
		return r.moverAt(r.TerminalPly), true
	case "投了", "詰み", "切れ負け", "反則負け":
		return r.moverAt(r.TerminalPly + 1), true
	default:
		return shogi.Black, false
	}
}

// moverAt returns the side that plays the given 1-based ply.
func (r Record) moverAt(ply int) shogi.Player {
	if ply%2 == 1 {
		return r.Start.Turn()
	}
	return r.Start.Turn().Opponent()
}

func headerValue(lines []string, key string) string {
	prefixes := []string{key + "：", key + ":"}
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		for _, prefix := range prefixes {
			if strings.HasPrefix(trim, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(trim, prefix))
			}
		}
	}
	return ""
}

func parseNameRating(raw string) Player {
	raw = strings.TrimSpace(raw)
	if m := nameRatingRe.FindStringSubmatch(raw); m != nil {
		rating, _ := strconv.ParseInt(m[2], 10, 32)
		return Player{Name: strings.TrimSpace(m[1]), Rating: int32(rating)}
	}
	return Player{Name: raw}
}

// CollectKIF returns every .kif file under root, sorted.
func CollectKIF(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".kif") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
