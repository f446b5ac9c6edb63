package match_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kogoma/pkg/match"
	"kogoma/pkg/shogi"
)

func randomMatch(seed int64, maxPlies int) *match.Match {
	rng := rand.New(rand.NewSource(seed))
	return &match.Match{
		Black:    match.NewRandomPolicy(rng),
		White:    match.NewRandomPolicy(rng),
		MaxPlies: maxPlies,
	}
}

func usiMoves(moves []shogi.Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, shogi.FormatUSI(m))
	}
	return out
}

func TestRandomGamesAreReplayable(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		a, err := randomMatch(seed, 400).Play(context.Background())
		if err != nil {
			t.Fatalf("seed %d: play: %v", seed, err)
		}
		b, err := randomMatch(seed, 400).Play(context.Background())
		if err != nil {
			t.Fatalf("seed %d: play: %v", seed, err)
		}
		if diff := cmp.Diff(usiMoves(a.Moves), usiMoves(b.Moves)); diff != "" {
			t.Fatalf("seed %d: games differ (-first +second):\n%s", seed, diff)
		}
		if a.ID == b.ID {
			t.Fatalf("seed %d: game ids should be unique", seed)
		}
	}
}

func TestRandomGameEndsByKingCapture(t *testing.T) {
	res, err := randomMatch(3, 0).Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.Decided || res.Reason != match.ReasonKingCapture {
		t.Fatalf("expected a decided game by king capture, got decided=%v reason=%s", res.Decided, res.Reason)
	}
	if res.Final.Turn() != res.Winner {
		t.Fatalf("winner %s should still be the side to move, got %s", res.Winner, res.Final.Turn())
	}
	replayed := res.Initial
	for _, m := range res.Moves {
		replayed = shogi.ApplyMove(replayed, m)
	}
	if replayed.SFEN(1) != res.Final.SFEN(1) {
		t.Fatalf("moves do not reproduce the final state")
	}
}

func TestMaxPliesStopsUndecided(t *testing.T) {
	res, err := randomMatch(1, 4).Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.Decided || res.Reason != match.ReasonMaxPlies || len(res.Moves) != 4 {
		t.Fatalf("unexpected result: decided=%v reason=%s moves=%d", res.Decided, res.Reason, len(res.Moves))
	}
}

func TestNoMovesLoses(t *testing.T) {
	start := shogi.NewEmptyState().
		WithPiece(shogi.Position{Row: 0, Col: 4}, shogi.Piece{Type: shogi.King, Owner: shogi.White})
	m := &match.Match{
		Black: match.NewRandomPolicy(rand.New(rand.NewSource(1))),
		White: match.PolicyFunc(func(context.Context, shogi.State) (shogi.Move, error) {
			t.Fatal("white should never be asked to move")
			return nil, nil
		}),
		Start: &start,
	}
	res, err := m.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.Decided || res.Winner != shogi.White || res.Reason != match.ReasonNoMoves {
		t.Fatalf("unexpected result: decided=%v winner=%s reason=%s", res.Decided, res.Winner, res.Reason)
	}
	if start.Terminal() {
		t.Fatal("start state must not be modified")
	}
}

func TestPolicyIsNotCalledAfterKingCapture(t *testing.T) {
	rook := shogi.Piece{Type: shogi.Rook, Owner: shogi.Black}
	start := shogi.NewEmptyState().
		WithPiece(shogi.Position{Row: 8, Col: 4}, shogi.Piece{Type: shogi.King, Owner: shogi.Black}).
		WithPiece(shogi.Position{Row: 4, Col: 4}, rook).
		WithPiece(shogi.Position{Row: 0, Col: 4}, shogi.Piece{Type: shogi.King, Owner: shogi.White})
	calls := 0
	capture := match.PolicyFunc(func(_ context.Context, s shogi.State) (shogi.Move, error) {
		calls++
		return shogi.ParseUSIMove(s, "5e5a")
	})
	m := &match.Match{Black: capture, White: capture, Start: &start}

	res, err := m.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if calls != 1 {
		t.Fatalf("policy called %d times, want 1", calls)
	}
	if res.Winner != shogi.Black || res.Reason != match.ReasonKingCapture {
		t.Fatalf("unexpected result: winner=%s reason=%s", res.Winner, res.Reason)
	}
}

func TestIllegalMoveRejected(t *testing.T) {
	bogus := match.PolicyFunc(func(context.Context, shogi.State) (shogi.Move, error) {
		pawn := shogi.Piece{Type: shogi.Pawn, Owner: shogi.Black}
		return shogi.BoardMove{From: shogi.Position{Row: 6, Col: 4}, To: shogi.Position{Row: 4, Col: 4}, Piece: pawn}, nil
	})
	m := &match.Match{Black: bogus, White: bogus}
	if _, err := m.Play(context.Background()); !errors.Is(err, match.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestPolicyErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	failing := match.PolicyFunc(func(context.Context, shogi.State) (shogi.Move, error) {
		return nil, boom
	})
	m := &match.Match{Black: failing, White: failing}
	if _, err := m.Play(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped policy error, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := randomMatch(1, 0).Play(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlayLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := randomMatch(2, 10)
	m.Logger = zap.New(core)

	res, err := m.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	entries := logs.FilterMessage("game over").All()
	if len(entries) != 1 {
		t.Fatalf("expected one game over entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["game_id"]; got != res.ID {
		t.Fatalf("log entry game_id = %v, want %s", got, res.ID)
	}
}

func TestRandomPolicyNoMoves(t *testing.T) {
	p := match.NewRandomPolicy(rand.New(rand.NewSource(1)))
	mv, err := p.SelectMove(context.Background(), shogi.NewEmptyState())
	if err != nil || mv != nil {
		t.Fatalf("expected no move, got %v err=%v", mv, err)
	}
}
