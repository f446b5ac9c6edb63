package usi_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"kogoma/pkg/shogi"
	"kogoma/pkg/usi"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line string
		want usi.Event
	}{
		{"id name Fake Engine", usi.Event{Type: usi.EventID, Key: "name", Value: "Fake Engine", Raw: "id name Fake Engine"}},
		{"usiok", usi.Event{Type: usi.EventUSIOK, Raw: "usiok"}},
		{"  readyok \r", usi.Event{Type: usi.EventReadyOK, Raw: "readyok"}},
		{"bestmove 7g7f ponder 3c3d", usi.Event{Type: usi.EventBestMove, Move: "7g7f", Ponder: "3c3d", Raw: "bestmove 7g7f ponder 3c3d"}},
		{"bestmove resign", usi.Event{Type: usi.EventBestMove, Move: "resign", Raw: "bestmove resign"}},
		{"info depth 3 score cp 12", usi.Event{Type: usi.EventInfo, Raw: "info depth 3 score cp 12"}},
		{"option name USI_Hash type spin", usi.Event{Type: usi.EventUnknown, Raw: "option name USI_Hash type spin"}},
	}
	for _, tc := range cases {
		got, err := usi.ParseLine(tc.line)
		if err != nil {
			t.Fatalf("%q: %v", tc.line, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q mismatch (-want +got):\n%s", tc.line, diff)
		}
	}

	for _, bad := range []string{"", "bestmove", "id name"} {
		if _, err := usi.ParseLine(bad); !errors.Is(err, usi.ErrMalformedLine) {
			t.Errorf("%q: expected ErrMalformedLine, got %v", bad, err)
		}
	}
}

func TestReaderSkipsBlankLines(t *testing.T) {
	r := usi.NewReader(strings.NewReader("\n\nusiok\n  \nreadyok\n"))
	for _, want := range []usi.EventType{usi.EventUSIOK, usi.EventReadyOK} {
		ev, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if ev.Type != want {
			t.Fatalf("got event %v, want %v", ev.Type, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScoreString(t *testing.T) {
	cases := map[usi.Score]string{
		{Kind: usi.ScoreCP, Value: -35}: "cp -35",
		{Kind: usi.ScoreMate, Value: 7}: "mate 7",
		{}:                              "unknown",
	}
	for score, want := range cases {
		if got := score.String(); got != want {
			t.Errorf("%#v: got %q, want %q", score, got, want)
		}
	}
}

func TestEngineCloseEndsProcess(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}
	e, err := usi.Start(context.Background(), cat)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Send("usi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	line, err := bufio.NewReader(e.Stdout()).ReadString('\n')
	if err != nil || line != "usi\n" {
		t.Fatalf("echo = %q, %v", line, err)
	}

	// cat exits on end of input, well inside the kill grace period.
	start := time.Now()
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("close took %v", d)
	}
	if err := e.Send("isready"); !errors.Is(err, usi.ErrClosed) {
		t.Fatalf("send after close: %v, want ErrClosed", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// fakeEngine answers the handful of commands a Session sends.
type fakeEngine struct {
	mu       sync.Mutex
	received []string
	bestmove string
}

func (f *fakeEngine) run(cmds io.Reader, out *io.PipeWriter) {
	defer out.Close()
	scanner := bufio.NewScanner(cmds)
	for scanner.Scan() {
		line := scanner.Text()
		f.mu.Lock()
		f.received = append(f.received, line)
		f.mu.Unlock()
		switch {
		case line == "usi":
			io.WriteString(out, "id name Fake\nid author\nid author Test\nusiok\n")
		case line == "isready":
			io.WriteString(out, "\nreadyok\n")
		case strings.HasPrefix(line, "go "):
			io.WriteString(out, "info depth 1 score cp 30\ninfo depth 2 score cp 42 pv "+f.bestmove+"\nbestmove "+f.bestmove+"\n")
		case line == "quit":
			return
		}
	}
}

func (f *fakeEngine) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func startFake(t *testing.T, bestmove string) (*usi.Session, *fakeEngine, <-chan struct{}) {
	t.Helper()
	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	fake := &fakeEngine{bestmove: bestmove}
	done := make(chan struct{})
	go func() {
		fake.run(cmdR, outW)
		close(done)
	}()
	return usi.NewSession(cmdW, outR, nil), fake, done
}

func TestSessionHandshakeAndSearch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, fake, done := startFake(t, "7g7f")

	if err := session.Handshake(ctx, usi.Option{Name: "Threads", Value: "1"}); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if err := session.NewGame(); err != nil {
		t.Fatalf("new game: %v", err)
	}
	res, err := session.Search(ctx, shogi.StandardSFEN, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := usi.Search{Move: "7g7f", Score: usi.Score{Kind: "cp", Value: 42}, HasScore: true}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("search mismatch (-want +got):\n%s", diff)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	<-done

	wantLines := []string{
		"usi",
		"setoption name Threads value 1",
		"isready",
		"usinewgame",
		"position sfen " + shogi.StandardSFEN,
		"go movetime 1",
		"quit",
	}
	if diff := cmp.Diff(wantLines, fake.lines()); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionEngineExit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		// Read one command and die without answering.
		bufio.NewReader(cmdR).ReadString('\n')
		outW.Close()
		io.Copy(io.Discard, cmdR)
	}()
	session := usi.NewSession(cmdW, outR, nil)
	defer session.Close()

	if err := session.Handshake(ctx); err == nil {
		t.Fatal("expected handshake to fail when the engine exits")
	}
	if _, err := session.BestMove(ctx, shogi.StandardSFEN, 10); err == nil {
		t.Fatal("expected search to fail after the engine exited")
	}
}

// slowEngine holds back the first search's bestmove until it is told to
// stop; later searches answer at once. With answerStop false it never
// answers stop at all.
func slowEngine(cmds io.Reader, out *io.PipeWriter, answerStop bool) {
	defer out.Close()
	scanner := bufio.NewScanner(cmds)
	searches := 0
	for scanner.Scan() {
		switch line := scanner.Text(); {
		case strings.HasPrefix(line, "go "):
			searches++
			if searches > 1 {
				io.WriteString(out, "bestmove 2g2f\n")
			}
		case line == "stop" && answerStop:
			io.WriteString(out, "info depth 9 score cp 5\nbestmove 7g7f\n")
		case line == "quit":
			return
		}
	}
}

func startSlow(answerStop bool) *usi.Session {
	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	go slowEngine(cmdR, outW, answerStop)
	return usi.NewSession(cmdW, outR, nil)
}

const afterFirstMove = "lnsgkgsnl/1r5b1/ppppppppp/9/9/2P6/PP1PPPPPP/1B5R1/LNSGKGSNL w - 2"

func TestCancelledSearchDiscardsLateBestMove(t *testing.T) {
	session := startSlow(true)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := session.BestMove(ctx, shogi.StandardSFEN, 60000); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	got, err := session.BestMove(ctx2, afterFirstMove, 10)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if got != "2g2f" {
		t.Fatalf("second search answered %q, want 2g2f", got)
	}
}

func TestSearchFailsAfterIgnoredStop(t *testing.T) {
	session := startSlow(false)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := session.BestMove(ctx, shogi.StandardSFEN, 60000); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if _, err := session.BestMove(context.Background(), afterFirstMove, 10); !errors.Is(err, usi.ErrOutOfSync) {
		t.Fatalf("expected ErrOutOfSync, got %v", err)
	}
}

type fakeSearcher struct {
	reply string
	err   error
	sfens []string
}

func (f *fakeSearcher) BestMove(_ context.Context, sfen string, _ int) (string, error) {
	f.sfens = append(f.sfens, sfen)
	return f.reply, f.err
}

func TestPolicySelectMove(t *testing.T) {
	s := shogi.NewInitialState()
	searcher := &fakeSearcher{reply: "2g2f"}
	mv, err := usi.NewPolicy(searcher, 100, nil).SelectMove(context.Background(), s)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := shogi.FormatUSI(mv); got != "2g2f" {
		t.Fatalf("got %s, want 2g2f", got)
	}
	if diff := cmp.Diff([]string{shogi.StandardSFEN}, searcher.sfens); diff != "" {
		t.Fatalf("sfen mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyReplies(t *testing.T) {
	s := shogi.NewInitialState()
	boom := errors.New("pipe broken")
	cases := []struct {
		name    string
		reply   string
		err     error
		wantErr error
	}{
		{name: "resign", reply: "resign"},
		{name: "declaration", reply: "win", wantErr: usi.ErrDeclaration},
		{name: "not a candidate", reply: "2g2e", wantErr: shogi.ErrUnknownMove},
		{name: "searcher error", err: boom, wantErr: boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := usi.NewPolicy(&fakeSearcher{reply: tc.reply, err: tc.err}, 10, nil)
			mv, err := p.SelectMove(context.Background(), s)
			if tc.wantErr == nil {
				if err != nil || mv != nil {
					t.Fatalf("expected no move and no error, got %v %v", mv, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPolicySkipsSearchWithoutMoves(t *testing.T) {
	searcher := &fakeSearcher{reply: "7g7f"}
	mv, err := usi.NewPolicy(searcher, 10, nil).SelectMove(context.Background(), shogi.NewEmptyState())
	if err != nil || mv != nil {
		t.Fatalf("expected no move, got %v %v", mv, err)
	}
	if len(searcher.sfens) != 0 {
		t.Fatalf("engine should not be asked: %v", searcher.sfens)
	}
}
