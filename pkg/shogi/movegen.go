package shogi

// GenerateMoves returns every candidate move for player: board moves in
// row-major order of the moving piece, then drops by hand type (first
// appearance order) and row-major empty square.
//
// Moves that leave the mover's own king capturable are included; the only
// restrictions are the board edge, blocking, same-owner destinations and the
// one-unpromoted-pawn-per-file drop rule.
func GenerateMoves(s State, player Player) []Move {
	var moves []Move
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			p := s.board[r][c]
			if p == nil || p.Owner != player {
				continue
			}
			moves = append(moves, pieceMoves(s, Position{Row: r, Col: c}, *p)...)
		}
	}
	return append(moves, dropMoves(s, player)...)
}

func pieceMoves(s State, from Position, p Piece) []Move {
	dir := p.Owner.forward()
	goldLike := p.Promoted && (p.Type == Pawn || p.Type == Lance || p.Type == Knight || p.Type == Silver)

	switch {
	case p.Type == King:
		return stepMoves(s, from, p, kingVectors)
	case p.Type == Gold || goldLike:
		return stepMoves(s, from, p, goldVectors(dir))
	case p.Type == Silver:
		return stepMoves(s, from, p, silverVectors(dir))
	case p.Type == Knight:
		return stepMoves(s, from, p, knightVectors(dir))
	case p.Type == Pawn:
		return stepMoves(s, from, p, forwardVector(dir))
	case p.Type == Lance:
		return rayMoves(s, from, p, forwardVector(dir))
	case p.Type == Rook:
		moves := rayMoves(s, from, p, orthVectors)
		if p.Promoted {
			moves = append(moves, stepMoves(s, from, p, diagVectors)...)
		}
		return moves
	case p.Type == Bishop:
		moves := rayMoves(s, from, p, diagVectors)
		if p.Promoted {
			moves = append(moves, stepMoves(s, from, p, orthVectors)...)
		}
		return moves
	default:
		return nil
	}
}

// stepMoves tries a single displacement per vector.
func stepMoves(s State, from Position, p Piece, vectors []vector) []Move {
	var moves []Move
	for _, v := range vectors {
		to := from.add(v)
		if !to.Inside() {
			continue
		}
		target := s.pieceAt(to)
		if target != nil && target.Owner == p.Owner {
			continue
		}
		moves = append(moves, withPromotion(from, to, p, target)...)
	}
	return moves
}

// rayMoves slides along each vector until the edge, a friendly piece
// (excluded) or an opposing piece (included as a capture).
func rayMoves(s State, from Position, p Piece, vectors []vector) []Move {
	var moves []Move
	for _, v := range vectors {
		for to := from.add(v); to.Inside(); to = to.add(v) {
			target := s.pieceAt(to)
			if target != nil && target.Owner == p.Owner {
				break
			}
			moves = append(moves, withPromotion(from, to, p, target)...)
			if target != nil {
				break
			}
		}
	}
	return moves
}

// withPromotion expands a candidate into a non-promoting and a promoting
// variant when an unpromoted promotable piece starts or ends in its owner's
// promotion zone. Promotion is never forced.
func withPromotion(from, to Position, p Piece, target *Piece) []Move {
	base := BoardMove{From: from, To: to, Piece: p}
	if target != nil {
		captured := *target
		base.Captured = &captured
	}
	if !p.Type.Promotable() || p.Promoted {
		return []Move{base}
	}
	if !p.Owner.inPromotionZone(from.Row) && !p.Owner.inPromotionZone(to.Row) {
		return []Move{base}
	}
	promoted := base
	promoted.Promote = true
	return []Move{base, promoted}
}

func dropMoves(s State, player Player) []Move {
	var moves []Move
	seen := make(map[PieceType]bool, len(s.hands[player]))
	for _, t := range s.hands[player] {
		if seen[t] {
			continue
		}
		seen[t] = true
		for r := 0; r < BoardSize; r++ {
			for c := 0; c < BoardSize; c++ {
				if s.board[r][c] != nil {
					continue
				}
				if t == Pawn && hasPawnOnFile(s, player, c) {
					continue
				}
				moves = append(moves, DropMove{
					To:    Position{Row: r, Col: c},
					Piece: Piece{Type: t, Owner: player},
				})
			}
		}
	}
	return moves
}

// hasPawnOnFile reports whether player has an unpromoted pawn anywhere in col (二歩).
func hasPawnOnFile(s State, player Player, col int) bool {
	for r := 0; r < BoardSize; r++ {
		p := s.board[r][col]
		if p != nil && p.Owner == player && p.Type == Pawn && !p.Promoted {
			return true
		}
	}
	return false
}
