package shogi

// ApplyMove returns the state after m is played by the side to move.
// It does not validate m: only moves taken from GenerateMoves are supported.
// A board move from an empty square, or a nil move, returns s unchanged.
//
// Capturing a king ends the game: the returned state keeps the mover as the
// side to move and records it as the winner.
func ApplyMove(s State, m Move) State {
	switch mv := m.(type) {
	case DropMove:
		return applyDrop(s, mv)
	case BoardMove:
		return applyBoardMove(s, mv)
	default:
		return s
	}
}

func applyDrop(s State, mv DropMove) State {
	mover := s.turn
	next := s
	next.board[mv.To.Row][mv.To.Col] = &Piece{Type: mv.Piece.Type, Owner: mover}
	next.hands[mover] = removeHand(s.hands[mover], mv.Piece.Type)
	next.turn = mover.Opponent()
	return next
}

func applyBoardMove(s State, mv BoardMove) State {
	moving := s.pieceAt(mv.From)
	if moving == nil {
		return s
	}
	mover := s.turn
	next := s
	target := s.pieceAt(mv.To)
	kingTaken := false
	if target != nil {
		if target.Type == King {
			kingTaken = true
		} else {
			// Captured pieces enter the hand demoted.
			next.hands[mover] = pushHand(s.hands[mover], target.Type)
		}
	}

	placed := *moving
	placed.Promoted = moving.Promoted || (mv.Promote && moving.Type.Promotable())
	next.board[mv.From.Row][mv.From.Col] = nil
	next.board[mv.To.Row][mv.To.Col] = &placed

	if kingTaken {
		next.winner = mover
		next.over = true
		return next
	}
	next.turn = mover.Opponent()
	return next
}

// NoMovesFor returns the terminal state reached when the side to move has no
// candidate move: that side loses.
func NoMovesFor(s State) State {
	next := s
	next.winner = s.turn.Opponent()
	next.over = true
	return next
}
