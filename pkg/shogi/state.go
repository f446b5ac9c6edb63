package shogi

// State is an immutable game state. Every operation that changes the game
// returns a new State; a State handed out by this package is never modified
// afterwards, so values may be shared freely between goroutines.
//
// Once Terminal reports true the game is over. GenerateMoves and ApplyMove do
// not refuse a terminal state, but callers must not pass one to them.
type State struct {
	// Pieces referenced from board are never written after placement.
	board  [BoardSize][BoardSize]*Piece
	hands  [2][]PieceType
	turn   Player
	winner Player
	over   bool
}

// NewEmptyState returns a state with an empty board and empty hands, black to move.
func NewEmptyState() State {
	return State{turn: Black}
}

// At returns the piece on pos. The second result is false for empty squares
// and squares off the board.
func (s State) At(pos Position) (Piece, bool) {
	if !pos.Inside() {
		return Piece{}, false
	}
	p := s.board[pos.Row][pos.Col]
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

// Turn returns the side to move. After a king capture it is still the
// capturing side.
func (s State) Turn() Player {
	return s.turn
}

// Hand returns a copy of the player's captured pieces in capture order.
func (s State) Hand(p Player) []PieceType {
	out := make([]PieceType, len(s.hands[p]))
	copy(out, s.hands[p])
	return out
}

// Winner returns the winning player once the game is over.
func (s State) Winner() (Player, bool) {
	return s.winner, s.over
}

// Terminal reports whether a king has been captured.
func (s State) Terminal() bool {
	return s.over
}

// PieceCount returns the number of pieces on the board plus both hands.
func (s State) PieceCount() int {
	n := len(s.hands[Black]) + len(s.hands[White])
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if s.board[r][c] != nil {
				n++
			}
		}
	}
	return n
}

// WithPiece returns a copy of s with p placed at pos.
// Promotion is dropped for types that cannot promote.
func (s State) WithPiece(pos Position, p Piece) State {
	if !pos.Inside() {
		return s
	}
	if !p.Type.Promotable() {
		p.Promoted = false
	}
	s.board[pos.Row][pos.Col] = &p
	return s
}

// WithoutPiece returns a copy of s with pos emptied.
func (s State) WithoutPiece(pos Position) State {
	if !pos.Inside() {
		return s
	}
	s.board[pos.Row][pos.Col] = nil
	return s
}

// WithHand returns a copy of s with the player's hand replaced by types.
func (s State) WithHand(p Player, types ...PieceType) State {
	hand := make([]PieceType, len(types))
	copy(hand, types)
	s.hands[p] = hand
	return s
}

// WithTurn returns a copy of s with p to move.
func (s State) WithTurn(p Player) State {
	s.turn = p
	return s
}

func (s State) pieceAt(pos Position) *Piece {
	return s.board[pos.Row][pos.Col]
}

// pushHand returns a fresh slice; the receiver's backing array may be shared.
func pushHand(hand []PieceType, t PieceType) []PieceType {
	out := make([]PieceType, len(hand), len(hand)+1)
	copy(out, hand)
	return append(out, t)
}

// removeHand drops the first occurrence of t. Hand entries are fungible.
func removeHand(hand []PieceType, t PieceType) []PieceType {
	out := make([]PieceType, 0, len(hand))
	removed := false
	for _, h := range hand {
		if h == t && !removed {
			removed = true
			continue
		}
		out = append(out, h)
	}
	return out
}
