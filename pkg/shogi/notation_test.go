package shogi_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kogoma/pkg/shogi"
)

func TestInitialSFEN(t *testing.T) {
	if got := shogi.NewInitialState().SFEN(1); got != shogi.StandardSFEN {
		t.Fatalf("unexpected sfen: got %s want %s", got, shogi.StandardSFEN)
	}
}

func TestParseSFENInitial(t *testing.T) {
	s, err := shogi.ParseSFEN(shogi.StandardSFEN)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(shogi.NewInitialState(), s, stateOpts); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSFENHandsAndPromotion(t *testing.T) {
	sfen := "lnsg3nl/1r2k1gs1/p1ppppp1p/9/1p7/9/PPPPPPPP1/1BG6/LNS1KGSN+L w BPrp2p 13"
	s, err := shogi.ParseSFEN(sfen)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Turn() != shogi.White {
		t.Fatalf("expected white to move, got %s", s.Turn())
	}
	if p, _ := s.At(at(8, 0)); p != (shogi.Piece{Type: shogi.Lance, Owner: shogi.Black, Promoted: true}) {
		t.Fatalf("expected promoted black lance at (8,0), got %+v", p)
	}
	if diff := cmp.Diff([]shogi.PieceType{shogi.Bishop, shogi.Pawn}, s.Hand(shogi.Black)); diff != "" {
		t.Fatalf("black hand mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]shogi.PieceType{shogi.Rook, shogi.Pawn, shogi.Pawn, shogi.Pawn}, s.Hand(shogi.White)); diff != "" {
		t.Fatalf("white hand mismatch (-want +got):\n%s", diff)
	}
	if got := s.SFEN(13); got != "lnsg3nl/1r2k1gs1/p1ppppp1p/9/1p7/9/PPPPPPPP1/1BG6/LNS1KGSN+L w BPr3p 13" {
		t.Fatalf("unexpected re-encoded sfen: %s", got)
	}
}

func TestParseSFENErrors(t *testing.T) {
	cases := []string{
		"",
		"lnsgkgsnl/1r5b1 b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL x - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNX b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSG+KGSNL b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b 2 1",
	}
	for _, sfen := range cases {
		if _, err := shogi.ParseSFEN(sfen); !errors.Is(err, shogi.ErrInvalidSFEN) {
			t.Errorf("%q: expected ErrInvalidSFEN, got %v", sfen, err)
		}
	}
}

func TestFormatUSI(t *testing.T) {
	pawn := shogi.Piece{Type: shogi.Pawn, Owner: shogi.Black}
	cases := []struct {
		move shogi.Move
		want string
	}{
		{shogi.BoardMove{From: at(6, 6), To: at(5, 6), Piece: pawn}, "7g7f"},
		{shogi.BoardMove{From: at(7, 7), To: at(1, 1), Piece: shogi.Piece{Type: shogi.Bishop}, Promote: true}, "8h2b+"},
		{shogi.DropMove{To: at(4, 4), Piece: pawn}, "P*5e"},
	}
	for _, tc := range cases {
		if got := shogi.FormatUSI(tc.move); got != tc.want {
			t.Errorf("FormatUSI(%+v) = %s, want %s", tc.move, got, tc.want)
		}
	}
}

func TestParseUSIMove(t *testing.T) {
	s := shogi.NewInitialState()
	m, err := shogi.ParseUSIMove(s, "7g7f")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := shogi.BoardMove{From: at(6, 6), To: at(5, 6), Piece: shogi.Piece{Type: shogi.Pawn, Owner: shogi.Black}}
	if diff := cmp.Diff(shogi.Move(want), m); diff != "" {
		t.Fatalf("move mismatch (-want +got):\n%s", diff)
	}

	for _, text := range []string{"7g7e", "3c3d", "P*5e", "garbage"} {
		if _, err := shogi.ParseUSIMove(s, text); !errors.Is(err, shogi.ErrUnknownMove) {
			t.Errorf("%s: expected ErrUnknownMove, got %v", text, err)
		}
	}
}

func TestLabel(t *testing.T) {
	cases := []struct {
		piece shogi.Piece
		want  string
	}{
		{shogi.Piece{Type: shogi.King}, "王"},
		{shogi.Piece{Type: shogi.Pawn}, "歩"},
		{shogi.Piece{Type: shogi.Pawn, Promoted: true}, "成歩"},
		{shogi.Piece{Type: shogi.Rook, Promoted: true}, "成飛"},
	}
	for _, tc := range cases {
		if got := shogi.Label(tc.piece); got != tc.want {
			t.Errorf("Label(%+v) = %s, want %s", tc.piece, got, tc.want)
		}
	}
}
