package record_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kogoma/pkg/match"
	"kogoma/pkg/record"
	"kogoma/pkg/shogi"
)

func playRandom(t *testing.T, seed int64, maxPlies int) match.Result {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	m := &match.Match{
		Black:    match.NewRandomPolicy(rng),
		White:    match.NewRandomPolicy(rng),
		MaxPlies: maxPlies,
	}
	res, err := m.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	return res
}

func TestFromResult(t *testing.T) {
	res := playRandom(t, 11, 6)
	rec := record.FromResult(res, "random", "random", 11)

	if rec.GameID != res.ID || rec.Seed != 11 {
		t.Fatalf("identity not copied: %+v", rec)
	}
	if rec.Result != record.ResultUndecided || rec.WinReason != string(match.ReasonMaxPlies) {
		t.Fatalf("unexpected result %s/%s", rec.Result, rec.WinReason)
	}
	if rec.MoveCount != 6 || len(rec.Moves) != 6 {
		t.Fatalf("unexpected move count %d (%d moves)", rec.MoveCount, len(rec.Moves))
	}
	if rec.StartSFEN != shogi.StandardSFEN {
		t.Fatalf("unexpected start %s", rec.StartSFEN)
	}
	if rec.FinalSFEN != res.Final.SFEN(7) {
		t.Fatalf("unexpected final %s", rec.FinalSFEN)
	}
}

func TestFromResultDecided(t *testing.T) {
	res := playRandom(t, 5, 0)
	rec := record.FromResult(res, "random", "random", 5)
	want := record.ResultBlackWin
	if res.Winner == shogi.White {
		want = record.ResultWhiteWin
	}
	if rec.Result != want {
		t.Fatalf("got result %s want %s", rec.Result, want)
	}

	start, moves, err := rec.Replay()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	s := start
	for _, mv := range moves {
		s = shogi.ApplyMove(s, mv)
	}
	if got := s.SFEN(len(moves) + 1); got != rec.FinalSFEN {
		t.Fatalf("replayed final %s, stored %s", got, rec.FinalSFEN)
	}
	if !s.Terminal() {
		t.Fatal("a decided random game ends with a captured king")
	}
}

func TestReplayRejectsCorruptMoves(t *testing.T) {
	rec := record.GameRecord{GameID: "x", StartSFEN: shogi.StandardSFEN, Moves: []string{"7g7f", "7c7c"}}
	if _, _, err := rec.Replay(); err == nil {
		t.Fatal("expected an error for an unknown move")
	}
	rec = record.GameRecord{GameID: "y", StartSFEN: "not a position"}
	if _, _, err := rec.Replay(); err == nil {
		t.Fatal("expected an error for a bad start position")
	}
}

func TestParquetRoundTrip(t *testing.T) {
	var want []record.GameRecord
	for seed := int64(1); seed <= 3; seed++ {
		want = append(want, record.FromResult(playRandom(t, seed, 40), "random", "usi", seed))
	}

	path := filepath.Join(t.TempDir(), "games.parquet")
	records := make(chan record.GameRecord)
	errCh := make(chan error, 1)
	go func() { errCh <- record.WriteParquet(path, records, 1) }()
	for _, rec := range want {
		records <- rec
	}
	close(records)
	if err := <-errCh; err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	got, err := record.ReadParquet(path, 1)
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}
