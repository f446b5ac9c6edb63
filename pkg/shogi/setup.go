package shogi

var backRank = [BoardSize]PieceType{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}

// NewInitialState returns the standard starting position (平手).
// White's camp is rows 0-2, black's is rows 6-8; black moves first.
func NewInitialState() State {
	s := NewEmptyState()

	set := func(row, col int, t PieceType, owner Player) {
		s = s.WithPiece(Position{Row: row, Col: col}, Piece{Type: t, Owner: owner})
	}

	for c, t := range backRank {
		set(0, c, t, White)
		set(8, c, t, Black)
	}
	set(1, 1, Bishop, White)
	set(1, 7, Rook, White)
	set(7, 1, Rook, Black)
	set(7, 7, Bishop, Black)

	for c := 0; c < BoardSize; c++ {
		set(2, c, Pawn, White)
		set(6, c, Pawn, Black)
	}
	return s
}
