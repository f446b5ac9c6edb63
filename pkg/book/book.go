// Package book builds, stores and plays from opening books in the YaneuraOu
// DB2016 text format.
package book

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"kogoma/pkg/shogi"
)

const header = "#YANEURAOU-DB2016 1.00"

// ErrMalformedBook is returned by Read for a move line it cannot parse.
var ErrMalformedBook = errors.New("malformed book")

// Entry holds the moves played from one position.
type Entry struct {
	// Ply is the lowest SFEN move number the position was reached at.
	Ply   int
	Moves map[string]uint32
}

// Count returns how many times the position was seen with a following move.
func (e *Entry) Count() uint32 {
	var n uint32
	for _, c := range e.Moves {
		n += c
	}
	return n
}

// MoveCount is a book move and how often it was played.
type MoveCount struct {
	Move  string
	Count uint32
}

// Book maps packed positions to the moves played from them. Lookup may run
// concurrently once nothing adds to the book.
type Book struct {
	entries map[Key]*Entry
}

// New creates an empty Book.
func New() *Book {
	return &Book{entries: make(map[Key]*Entry)}
}

// Len returns the number of positions in the book.
func (b *Book) Len() int { return len(b.entries) }

// Add records that move was played from s at SFEN move number ply.
func (b *Book) Add(s shogi.State, ply int, move string) error {
	k, err := Pack(s)
	if err != nil {
		return err
	}
	b.addKey(k, ply, move, 1)
	return nil
}

func (b *Book) addKey(k Key, ply int, move string, count uint32) {
	e := b.entries[k]
	if e == nil {
		e = &Entry{Ply: ply, Moves: make(map[string]uint32)}
		b.entries[k] = e
	}
	if ply < e.Ply {
		e.Ply = ply
	}
	e.Moves[move] += count
}

// AddGame records the first maxPly moves of a game played from start.
// maxPly <= 0 takes every move. A start position that cannot be packed
// returns ErrNotPackable before anything is added.
func (b *Book) AddGame(start shogi.State, moves []shogi.Move, maxPly int) error {
	if maxPly <= 0 || maxPly > len(moves) {
		maxPly = len(moves)
	}
	type step struct {
		key  Key
		move string
	}
	steps := make([]step, 0, maxPly)
	s := start
	for i := 0; i < maxPly; i++ {
		k, err := Pack(s)
		if err != nil {
			if i == 0 {
				return err
			}
			break
		}
		steps = append(steps, step{k, shogi.FormatUSI(moves[i])})
		s = shogi.ApplyMove(s, moves[i])
	}
	for i, st := range steps {
		b.addKey(st.key, i+1, st.move, 1)
	}
	return nil
}

// Merge adds every count from other into b.
func (b *Book) Merge(other *Book) {
	for k, e := range other.entries {
		for mv, c := range e.Moves {
			b.addKey(k, e.Ply, mv, c)
		}
	}
}

// Prune drops positions seen fewer than threshold times and returns how
// many remain.
func (b *Book) Prune(threshold uint32) int {
	for k, e := range b.entries {
		if e.Count() < threshold {
			delete(b.entries, k)
		}
	}
	return len(b.entries)
}

// Lookup returns the moves stored for s, most played first.
func (b *Book) Lookup(s shogi.State) []MoveCount {
	k, err := Pack(s)
	if err != nil {
		return nil
	}
	e := b.entries[k]
	if e == nil {
		return nil
	}
	return sortedMoves(e)
}

func sortedMoves(e *Entry) []MoveCount {
	ms := make([]MoveCount, 0, len(e.Moves))
	for m, c := range e.Moves {
		ms = append(ms, MoveCount{m, c})
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Count != ms[j].Count {
			return ms[i].Count > ms[j].Count
		}
		return ms[i].Move < ms[j].Move
	})
	return ms
}

// Write emits the book sorted by SFEN. Each move line is
// "<move> none 0 0 <count>": no response move, eval or depth is tracked.
func (b *Book) Write(w io.Writer) error {
	type line struct {
		sfen  string
		entry *Entry
	}
	lines := make([]line, 0, len(b.entries))
	for k, e := range b.entries {
		s, err := Unpack(k)
		if err != nil {
			return err
		}
		lines = append(lines, line{s.SFEN(e.Ply), e})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].sfen < lines[j].sfen
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, header)
	for _, l := range lines {
		fmt.Fprintf(bw, "sfen %s\n", l.sfen)
		for _, m := range sortedMoves(l.entry) {
			fmt.Fprintf(bw, "%s none 0 0 %d\n", m.Move, m.Count)
		}
	}
	return bw.Flush()
}

// WriteFile writes the book to path, replacing any existing file.
func (b *Book) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses a DB2016 book. Positions that cannot be packed are skipped.
func Read(r io.Reader) (*Book, error) {
	b := New()
	sc := bufio.NewScanner(r)
	var (
		cur    Key
		ply    int
		inPos  bool
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "sfen "); ok {
			s, err := shogi.ParseSFEN(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			k, err := Pack(s)
			if err != nil {
				inPos = false
				continue
			}
			cur, inPos = k, true
			ply = 1
			if fields := strings.Fields(rest); len(fields) == 4 {
				if n, err := strconv.Atoi(fields[3]); err == nil && n > 0 {
					ply = n
				}
			}
			continue
		}
		if !inPos {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: %q: %w", lineNo, line, ErrMalformedBook)
		}
		count, err := strconv.ParseUint(fields[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: count %q: %w", lineNo, fields[4], ErrMalformedBook)
		}
		b.addKey(cur, ply, fields[0], uint32(count))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadFile reads a book written by WriteFile or by another DB2016 tool.
func ReadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
