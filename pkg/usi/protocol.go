package usi

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned for a blank line or a known command missing
// its arguments.
var ErrMalformedLine = errors.New("malformed usi line")

// EventType says which engine-to-GUI command a line carried.
type EventType int

const (
	// EventUnknown covers commands the session does not act on, such as
	// option or checkmate.
	EventUnknown EventType = iota
	EventID
	EventUSIOK
	EventReadyOK
	EventInfo
	EventBestMove
)

// Event is one line from the engine. Which fields are set depends on Type:
// EventID fills Key ("name" or "author") and Value, EventBestMove fills Move
// (possibly "resign" or "win") and Ponder when the engine names one. Raw is
// always the trimmed line, so info lines can be mined for a score later.
type Event struct {
	Type   EventType
	Key    string
	Value  string
	Move   string
	Ponder string
	Raw    string
}

// Reader turns an engine's stdout into Events.
type Reader struct {
	lines *bufio.Scanner
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{lines: bufio.NewScanner(r)}
}

// Next returns the event on the next non-blank line. It returns io.EOF when
// the stream ends and wraps ErrMalformedLine for lines it cannot parse; the
// Reader stays usable after a malformed line.
func (r *Reader) Next() (Event, error) {
	for r.lines.Scan() {
		line := strings.TrimSpace(r.lines.Text())
		if line != "" {
			return ParseLine(line)
		}
	}
	if err := r.lines.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// ParseLine parses a single engine line.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("empty line: %w", ErrMalformedLine)
	}
	ev := Event{Raw: line}
	args := fields[1:]
	switch fields[0] {
	case "usiok":
		ev.Type = EventUSIOK
	case "readyok":
		ev.Type = EventReadyOK
	case "info":
		ev.Type = EventInfo
	case "id":
		if len(args) < 2 {
			return Event{}, fmt.Errorf("id without value %q: %w", line, ErrMalformedLine)
		}
		ev.Type, ev.Key, ev.Value = EventID, args[0], strings.Join(args[1:], " ")
	case "bestmove":
		if len(args) == 0 {
			return Event{}, fmt.Errorf("bestmove without move %q: %w", line, ErrMalformedLine)
		}
		ev.Type, ev.Move = EventBestMove, args[0]
		if len(args) >= 3 && args[1] == "ponder" {
			ev.Ponder = args[2]
		}
	default:
		ev.Type = EventUnknown
	}
	return ev, nil
}

// ScoreKind is the unit of a Score.
type ScoreKind string

const (
	ScoreCP   ScoreKind = "cp"
	ScoreMate ScoreKind = "mate"
)

// Score is an evaluation from the side to move. For ScoreCP, Value is in
// centipawns; for ScoreMate it is plies to mate, negative when the side to
// move is the one being mated.
type Score struct {
	Kind  ScoreKind
	Value int
}

func (s Score) String() string {
	if s.Kind != ScoreCP && s.Kind != ScoreMate {
		return "unknown"
	}
	return string(s.Kind) + " " + strconv.Itoa(s.Value)
}

// parseInfoScore pulls "score cp N" or "score mate N" out of an info line.
// A "lowerbound" or "upperbound" after the value is ignored.
func parseInfoScore(line string) (Score, bool) {
	_, rest, ok := strings.Cut(" "+line+" ", " score ")
	if !ok {
		return Score{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return Score{}, false
	}
	kind := ScoreKind(fields[0])
	if kind != ScoreCP && kind != ScoreMate {
		return Score{}, false
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return Score{}, false
	}
	return Score{Kind: kind, Value: v}, true
}
