package kif

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"kogoma/pkg/shogi"
)

var fullwidthDigits = []rune("１２３４５６７８９")

// Write renders g as a KIF record. A decided game closes with 投了 on the
// loser's ply and an undecided one with 中断, unless g.Terminal says
// otherwise.
func Write(w io.Writer, g Game) error {
	var b strings.Builder
	b.WriteString("# ---- kogoma self-play record ----\n")
	if !g.Started.IsZero() {
		fmt.Fprintf(&b, "開始日時：%s\n", g.Started.Format("2006/01/02 15:04:05"))
	}
	if g.Start.SFEN(1) == shogi.StandardSFEN {
		b.WriteString("手合割：平手\n")
	} else {
		writeDiagram(&b, g.Start)
	}
	fmt.Fprintf(&b, "先手：%s\n", formatPlayer(g.Black))
	fmt.Fprintf(&b, "後手：%s\n", formatPlayer(g.White))
	b.WriteString("手数----指手---------消費時間--\n")

	var prev *shogi.Position
	for i, mv := range g.Moves {
		fmt.Fprintf(&b, "%4d %s\n", i+1, moveText(mv, prev))
		dest := mv.Dest()
		prev = &dest
	}

	terminal := g.Terminal
	if terminal == "" {
		terminal = "中断"
		if g.Decided {
			terminal = "投了"
		}
	}
	n := len(g.Moves)
	fmt.Fprintf(&b, "%4d %s\n", n+1, terminal)
	if g.Decided {
		side := "先手"
		if g.Winner == shogi.White {
			side = "後手"
		}
		fmt.Fprintf(&b, "まで%d手で%sの勝ち\n", n, side)
	} else {
		fmt.Fprintf(&b, "まで%d手で中断\n", n)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile writes g to path, encoded as Shift-JIS when sjis is set.
func WriteFile(path string, g Game, sjis bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if !sjis {
		return Write(f, g)
	}
	enc := transform.NewWriter(f, japanese.ShiftJIS.NewEncoder())
	if err := Write(enc, g); err != nil {
		return err
	}
	return enc.Close()
}

func formatPlayer(p Player) string {
	if p.Rating > 0 {
		return fmt.Sprintf("%s(%d)", p.Name, p.Rating)
	}
	return p.Name
}

// moveText renders "７六歩(77)", "同　銀(31)", "２二飛成(24)" or "５五角打".
func moveText(mv shogi.Move, prev *shogi.Position) string {
	var b strings.Builder
	dest := mv.Dest()
	if prev != nil && *prev == dest {
		b.WriteString("同　")
	} else {
		b.WriteRune(fullwidthDigits[dest.Col])
		b.WriteRune(rankKanji[dest.Row])
	}
	b.WriteString(moveName(mv.Mover()))
	switch m := mv.(type) {
	case shogi.DropMove:
		b.WriteString("打")
	case shogi.BoardMove:
		if m.Promote {
			b.WriteString("成")
		}
		fmt.Fprintf(&b, "(%d%d)", m.From.Col+1, m.From.Row+1)
	}
	return b.String()
}

// moveName is the piece name used in move lines, where promoted minor
// pieces keep the two-character 成 form.
func moveName(p shogi.Piece) string {
	if !p.Promoted {
		return p.Type.Kanji()
	}
	switch p.Type {
	case shogi.Rook, shogi.Bishop, shogi.Pawn:
		return boardGlyph(p)
	default:
		return "成" + p.Type.Kanji()
	}
}
