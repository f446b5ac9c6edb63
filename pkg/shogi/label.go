package shogi

// Kanji returns the single-character name used on pieces and in hands.
func (t PieceType) Kanji() string {
	switch t {
	case King:
		return "王"
	case Rook:
		return "飛"
	case Bishop:
		return "角"
	case Gold:
		return "金"
	case Silver:
		return "銀"
	case Knight:
		return "桂"
	case Lance:
		return "香"
	case Pawn:
		return "歩"
	default:
		return "?"
	}
}

// Letter returns the upper-case SFEN/USI letter for t.
func (t PieceType) Letter() byte {
	switch t {
	case King:
		return 'K'
	case Rook:
		return 'R'
	case Bishop:
		return 'B'
	case Gold:
		return 'G'
	case Silver:
		return 'S'
	case Knight:
		return 'N'
	case Lance:
		return 'L'
	case Pawn:
		return 'P'
	default:
		return '?'
	}
}

func pieceTypeFromLetter(r byte) (PieceType, bool) {
	switch r {
	case 'K':
		return King, true
	case 'R':
		return Rook, true
	case 'B':
		return Bishop, true
	case 'G':
		return Gold, true
	case 'S':
		return Silver, true
	case 'N':
		return Knight, true
	case 'L':
		return Lance, true
	case 'P':
		return Pawn, true
	default:
		return 0, false
	}
}

// Label is the display label of a piece on the board, e.g. 歩 or 成歩.
func Label(p Piece) string {
	if p.Promoted {
		return "成" + p.Type.Kanji()
	}
	return p.Type.Kanji()
}
